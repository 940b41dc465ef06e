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

// Package hasher defines the hashing contract the trie consumes to turn node
// contents into content-addresses, and a default implementation backed by
// BLAKE3.
package hasher

import "lukechampine.com/blake3"

// Hasher produces a digest of a fixed output length from a stream of
// updates. Implementations are not expected to be safe for concurrent use;
// callers that hash in parallel (see the trie package's leaf materialization)
// must create one Hasher per goroutine.
type Hasher interface {
	// Update appends data to the hasher's input.
	Update(data []byte)
	// Finalize consumes the hasher and returns its digest. The hasher must
	// not be reused afterwards.
	Finalize() []byte
}

// New returns a Hasher producing outputLen bytes of BLAKE3 digest, matching
// the teacher's use of lukechampine.com/blake3 for trie hashing.
func New(outputLen int) Hasher {
	return &blake3Hasher{
		h:         blake3.New(outputLen, nil),
		outputLen: outputLen,
	}
}

type blake3Hasher struct {
	h         *blake3.Hasher
	outputLen int
}

func (b *blake3Hasher) Update(data []byte) {
	_, _ = b.h.Write(data)
}

func (b *blake3Hasher) Finalize() []byte {
	return b.h.Sum(nil)[:b.outputLen]
}
