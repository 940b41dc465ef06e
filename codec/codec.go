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

// Package codec implements a value encode/decode contract that callers can
// apply to values before they become Data node payloads (the trie itself
// stores values as opaque bytes): CBOR for canonical, deterministic
// encoding, zstandard for compression on top.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Codec encodes and decodes Go values using CBOR encoding and zstandard
// compression, the same pairing as the teacher's codec/zbor package, minus
// the payload-type-specific compression dictionaries that only make sense
// for Flow's ledger/event/transaction types.
type Codec struct {
	encoder cbor.EncMode
	decoder cbor.DecMode

	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// New creates a new Codec.
func New() (*Codec, error) {
	encOptions := cbor.CanonicalEncOptions()
	encoder, err := encOptions.EncMode()
	if err != nil {
		return nil, fmt.Errorf("could not build CBOR encoder: %w", err)
	}

	decOptions := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}
	decoder, err := decOptions.DecMode()
	if err != nil {
		return nil, fmt.Errorf("could not build CBOR decoder: %w", err)
	}

	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("could not build compressor: %w", err)
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("could not build decompressor: %w", err)
	}

	c := Codec{
		encoder:      encoder,
		decoder:      decoder,
		compressor:   compressor,
		decompressor: decompressor,
	}

	return &c, nil
}

// Marshal encodes the given value as CBOR and compresses the result.
func (c *Codec) Marshal(value interface{}) ([]byte, error) {
	data, err := c.encoder.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}
	return c.compressor.EncodeAll(data, nil), nil
}

// Unmarshal decompresses the given bytes and decodes the CBOR payload into
// value.
func (c *Codec) Unmarshal(compressed []byte, value interface{}) error {
	data, err := c.decompressor.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("could not decompress value: %w", err)
	}
	err = c.decoder.Unmarshal(data, value)
	if err != nil {
		return fmt.Errorf("could not decode value: %w", err)
	}
	return nil
}
