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

package trie

import "errors"

// Sentinel errors returned by Tree operations. Callers should match on
// these with errors.Is, since they are always wrapped with call-specific
// context before being returned.
var (
	// ErrDepthExceeded is returned when a traversal descends past the
	// tree's configured maximum depth, which guards against corrupt or
	// malicious stores containing cyclical or unbounded structures.
	ErrDepthExceeded = errors.New("depth of tree exceeded")

	// ErrCorrupt is returned when a structural invariant is violated: a
	// branch's child is missing, or a node is found at a position its
	// variant does not belong in.
	ErrCorrupt = errors.New("corrupt tree")

	// ErrDuplicateKey is returned when two keys within a single insert
	// batch are identical.
	ErrDuplicateKey = errors.New("duplicate key in batch")

	// ErrEmptyBatch is returned when insert is called with an empty or
	// mismatched keys/values batch.
	ErrEmptyBatch = errors.New("keys or values are empty or mismatched")

	// ErrRootNotFound is returned when insert's previous root does not
	// resolve to a node in the store.
	ErrRootNotFound = errors.New("previous root not found")
)
