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

// Package keyset partitions batches of sorted, fixed-width keys around a
// branch's split bit without copying key bytes. It is the trie's equivalent
// of the original Rust implementation's tree_utils module.
package keyset

import "github.com/optakt/merklebit/bitutil"

// SplitPairs splits a sorted batch of keys into the sub-slice that routes to
// the zero-child and the sub-slice that routes to the one-child of a branch
// at splitBit. Because keys is sorted lexicographically and every key shares
// the same prefix up to splitBit, the zeros form a contiguous prefix of keys
// and the ones the contiguous remainder; neither slice copies key bytes.
func SplitPairs(keys [][]byte, splitBit int) (zeros, ones [][]byte) {
	for i, key := range keys {
		if !bitutil.ChooseZero(key, splitBit) {
			return keys[:i], keys[i:]
		}
	}
	return keys, keys[len(keys):]
}

// CalcMinSplitIndex returns the minimum, over every key in keys, of the first
// bit at which that key differs from branchKey. It returns the key length in
// bits if keys is empty or every key is identical to branchKey, since no
// divergence was observed.
func CalcMinSplitIndex(keys [][]byte, branchKey []byte) int {
	min := len(branchKey) * 8
	for _, key := range keys {
		diff, ok := bitutil.FirstDiffBit(key, branchKey)
		if !ok {
			continue
		}
		if diff < min {
			min = diff
		}
	}
	return min
}

// CheckDescendants returns the contiguous sub-slice of keys that are
// descendants of a branch with the given split index and witness key, i.e.
// whose first differing bit against branchKey is at or above branchSplit.
// minSplit is the precomputed result of CalcMinSplitIndex, used as a
// fast-path: when minSplit is already at least branchSplit, every key in
// keys qualifies and the full slice is returned unfiltered.
//
// keys must be sorted and must all agree with each other through minSplit, a
// precondition the trie's traversal order guarantees; under it, the set of
// qualifying keys is contiguous.
func CheckDescendants(keys [][]byte, branchSplit int, branchKey []byte, minSplit int) [][]byte {
	if minSplit >= branchSplit {
		return keys
	}

	start := -1
	end := len(keys)
	for i, key := range keys {
		diff, ok := bitutil.FirstDiffBit(key, branchKey)
		descends := !ok || diff >= branchSplit
		if descends && start == -1 {
			start = i
		}
		if !descends && start != -1 {
			end = i
			break
		}
	}
	if start == -1 {
		return keys[:0]
	}
	return keys[start:end]
}
