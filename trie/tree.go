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

// Package trie implements a binary Merkle Patricia trie over fixed-width
// keys: a content-addressed, persistent, reference-counted key/value store
// whose root hash summarizes the entire set of bindings. It provides
// batched Get, Insert and Remove on top of a pluggable node store.
package trie

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/optakt/merklebit/config"
	"github.com/optakt/merklebit/hasher"
	"github.com/optakt/merklebit/roots"
	"github.com/optakt/merklebit/store"
)

// Tree is a handle to a binary Merkle Patricia trie backed by a node
// store. A single Tree is not safe for concurrent Insert or Remove calls;
// concurrent Get calls are safe as long as the backend permits concurrent
// reads.
type Tree struct {
	log     zerolog.Logger
	backend store.Backend
	roots   *roots.Registry

	hashLength  int
	maxDepth    int
	workerCount int
}

// Open creates or opens a Badger-backed trie at path.
func Open(log zerolog.Logger, path string, opts ...config.Option) (*Tree, error) {
	cfg := config.DefaultConfig
	cfg.MaxDepth = 0 // recomputed from KeyLength below unless overridden by opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 8 * cfg.KeyLength
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("could not open trie: %w", err)
	}

	backend, err := store.New(log, store.WithStoragePath(path))
	if err != nil {
		return nil, fmt.Errorf("could not open node store: %w", err)
	}

	t := Tree{
		log:         log.With().Str("component", "trie").Logger(),
		backend:     backend,
		roots:       roots.New(),
		hashLength:  cfg.HashLength,
		maxDepth:    cfg.MaxDepth,
		workerCount: cfg.WorkerCount,
	}

	return &t, nil
}

// FromBackend builds a Tree on top of an already-open store.Backend, such
// as a store.MemStore in tests.
func FromBackend(log zerolog.Logger, backend store.Backend, opts ...config.Option) (*Tree, error) {
	cfg := config.DefaultConfig
	cfg.MaxDepth = 0 // recomputed from KeyLength below unless overridden by opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 8 * cfg.KeyLength
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("could not build trie: %w", err)
	}

	t := Tree{
		log:         log.With().Str("component", "trie").Logger(),
		backend:     backend,
		roots:       roots.New(),
		hashLength:  cfg.HashLength,
		maxDepth:    cfg.MaxDepth,
		workerCount: cfg.WorkerCount,
	}

	return &t, nil
}

// Roots returns every root hash the tree currently retains, i.e. every root
// produced by Insert that has not since been passed to Remove.
func (t *Tree) Roots() [][]byte {
	return t.roots.Roots()
}

// Parent returns the root that the given root was built on top of. It
// returns ok == false if root is not retained by this tree.
func (t *Tree) Parent(root []byte) (parent []byte, ok bool) {
	return t.roots.Parent(root)
}

// Close releases the resources held by the underlying store.
func (t *Tree) Close() error {
	return t.backend.Close()
}

func (t *Tree) newHasher() hasher.Hasher {
	return hasher.New(t.hashLength)
}
