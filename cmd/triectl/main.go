// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Command triectl drives a Badger-backed trie from the command line: insert
// a batch of key/value pairs on top of a root, read keys back out of a
// root, or remove a root entirely.
package main

import (
	"encoding/hex"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/optakt/merklebit/codec"
	"github.com/optakt/merklebit/store"
	"github.com/optakt/merklebit/trie"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

func run() int {

	var (
		flagPath  string
		flagLevel string
		flagRoot  string
		flagSet   []string
		flagGet   []string
		flagRemove bool
	)

	pflag.StringVarP(&flagPath, "path", "p", "./nodes", "directory for the node store")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.StringVarP(&flagRoot, "root", "r", "", "hex-encoded root hash to operate on; empty means start a new trie")
	pflag.StringSliceVarP(&flagSet, "set", "s", nil, "key=value pairs to insert, may be repeated")
	pflag.StringSliceVarP(&flagGet, "get", "g", nil, "hex-encoded keys to read, may be repeated")
	pflag.BoolVar(&flagRemove, "remove", false, "remove the given root instead of reading or writing")

	pflag.Parse()

	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	level, err := zerolog.ParseLevel(flagLevel)
	if err != nil {
		log.Error().Str("level", flagLevel).Err(err).Msg("could not parse log level")
		return failure
	}
	log = log.Level(level)

	backend, err := store.New(log, store.WithStoragePath(flagPath))
	if err != nil {
		log.Error().Err(err).Msg("could not open node store")
		return failure
	}
	defer backend.Close()

	metrics := store.NewMetricsBackend(backend)

	tr, err := trie.FromBackend(log, metrics)
	if err != nil {
		log.Error().Err(err).Msg("could not build trie")
		return failure
	}

	var root []byte
	if flagRoot != "" {
		root, err = hex.DecodeString(flagRoot)
		if err != nil {
			log.Error().Err(err).Msg("could not decode root")
			return failure
		}
	}

	switch {
	case flagRemove:
		if root == nil {
			log.Error().Msg("remove requires a root")
			return failure
		}
		if err := tr.Remove(root); err != nil {
			log.Error().Err(err).Msg("could not remove root")
			return failure
		}
		log.Info().Msg("root removed")

	case len(flagSet) > 0:
		cdc, err := codec.New()
		if err != nil {
			log.Error().Err(err).Msg("could not build codec")
			return failure
		}

		keys := make([][]byte, 0, len(flagSet))
		values := make([][]byte, 0, len(flagSet))
		for _, pair := range flagSet {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) != 2 {
				log.Error().Str("pair", pair).Msg("set flag must be key=value")
				return failure
			}
			key, err := hex.DecodeString(parts[0])
			if err != nil {
				log.Error().Err(err).Str("key", parts[0]).Msg("could not decode key")
				return failure
			}
			encoded, err := cdc.Marshal(parts[1])
			if err != nil {
				log.Error().Err(err).Msg("could not encode value")
				return failure
			}
			keys = append(keys, key)
			values = append(values, encoded)
		}

		newRoot, err := tr.Insert(root, keys, values)
		if err != nil {
			log.Error().Err(err).Msg("could not insert batch")
			return failure
		}
		log.Info().Str("root", hex.EncodeToString(newRoot)).Msg("batch inserted")

	case len(flagGet) > 0:
		if root == nil {
			log.Error().Msg("get requires a root")
			return failure
		}

		cdc, err := codec.New()
		if err != nil {
			log.Error().Err(err).Msg("could not build codec")
			return failure
		}

		keys := make([][]byte, 0, len(flagGet))
		for _, k := range flagGet {
			key, err := hex.DecodeString(k)
			if err != nil {
				log.Error().Err(err).Str("key", k).Msg("could not decode key")
				return failure
			}
			keys = append(keys, key)
		}

		got, err := tr.Get(root, keys)
		if err != nil {
			log.Error().Err(err).Msg("could not read batch")
			return failure
		}

		for _, key := range keys {
			encoded, ok := got[string(key)]
			if !ok {
				log.Info().Str("key", hex.EncodeToString(key)).Msg("not found")
				continue
			}
			var value string
			if err := cdc.Unmarshal(encoded, &value); err != nil {
				log.Error().Err(err).Str("key", hex.EncodeToString(key)).Msg("could not decode value")
				return failure
			}
			log.Info().Str("key", hex.EncodeToString(key)).Str("value", value).Msg("found")
		}

	default:
		log.Error().Msg("one of --set, --get or --remove is required")
		return failure
	}

	return success
}
