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

import (
	"bytes"
	"container/heap"
	"fmt"
	"sort"

	"github.com/optakt/merklebit/bitutil"
	"github.com/optakt/merklebit/node"
)

// treeRef is an ephemeral handle to a subtree under construction by
// createTree. Span is the number of originally-adjacent tree refs that
// have been absorbed into this array slot by prior merges (the bookkeeping
// field the original implementation calls `count`); Leaves is the number of
// leaves in the subtree this ref points to (the original's `node_count`,
// which becomes a Branch's Count field once this ref is merged into one).
type treeRef struct {
	Key      []byte
	Location []byte
	Span     uint64
	Leaves   uint64
}

// splitItem is one entry of the merge priority queue: the split bit between
// the tree refs originally adjacent at indices left and left+1, and the
// fixed left index those refs occupy in the backing array. The right
// partner is not stored directly, since by the time this item is popped the
// slot at left+1 may have been absorbed into a later position; see the
// lookahead walk in createTree.
type splitItem struct {
	splitBit int
	left     int
}

// splitHeap is a max-heap over splitItem keyed by splitBit, implementing
// container/heap.Interface.
type splitHeap []splitItem

func (h splitHeap) Len() int            { return len(h) }
func (h splitHeap) Less(i, j int) bool  { return h[i].splitBit > h[j].splitBit }
func (h splitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *splitHeap) Push(x interface{}) { *h = append(*h, x.(splitItem)) }
func (h *splitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// buildSplitQueue computes, for every pair of tree refs adjacent in key
// order, the bit at which they diverge, and returns a max-heap over those
// split bits. refs must already be sorted by Key.
func buildSplitQueue(refs []treeRef) (*splitHeap, error) {
	h := make(splitHeap, 0, len(refs)-1)
	for i := 0; i < len(refs)-1; i++ {
		bit, ok := bitutil.FirstDiffBit(refs[i].Key, refs[i+1].Key)
		if !ok {
			return nil, fmt.Errorf("%w: %x", ErrDuplicateKey, refs[i].Key)
		}
		h = append(h, splitItem{splitBit: bit, left: i})
	}
	heap.Init(&h)
	return &h, nil
}

// createTree merges a set of tree refs, sorted or not, into a single root
// by repeatedly joining the pair whose split bit is deepest. It implements
// the split-and-merge algorithm: tree refs are kept in a single backing
// array, and each merge overwrites both the merged pair's left slot and the
// rightmost slot of the group it absorbed, so that later lookaheads (which
// walk forward by Span) observe the update without needing to shift the
// array or maintain a separate linked structure.
func (t *Tree) createTree(refs []treeRef) ([]byte, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no tree refs to build from", ErrCorrupt)
	}
	if len(refs) == 1 {
		if err := t.backend.Commit(); err != nil {
			return nil, fmt.Errorf("could not commit tree: %w", err)
		}
		return refs[0].Location, nil
	}

	sort.Slice(refs, func(i, j int) bool {
		return bytes.Compare(refs[i].Key, refs[j].Key) < 0
	})

	queue, err := buildSplitQueue(refs)
	if err != nil {
		return nil, err
	}

	iters := queue.Len()
	var branchHash []byte
	for i := 0; i < iters; i++ {
		item := heap.Pop(queue).(splitItem)
		left := item.left
		nextIndex := left + 1

		span := refs[nextIndex].Span
		lookahead := nextIndex
		if span > 1 {
			lookahead = left + int(span)
			lookaheadSpan := refs[lookahead].Span
			for lookaheadSpan > span {
				span = lookaheadSpan
				lookahead = left + int(span)
				lookaheadSpan = refs[lookahead].Span
			}
			span = lookaheadSpan
		}

		zero := refs[left].Location
		one := refs[lookahead].Location
		leaves := refs[left].Leaves + refs[lookahead].Leaves

		h := t.newHasher()
		branchHash = node.HashBranch(h, zero, one)

		branch := node.NewBranch(&node.Branch{
			SplitIndex: item.splitBit,
			Key:        refs[left].Key,
			Zero:       zero,
			One:        one,
			Count:      leaves,
		}, 1)
		if err := t.backend.PutNode(branchHash, branch); err != nil {
			return nil, fmt.Errorf("could not store branch: %w", err)
		}

		merged := treeRef{
			Key:      refs[left].Key,
			Location: branchHash,
			Span:     span + refs[left].Span,
			Leaves:   leaves,
		}
		refs[lookahead] = merged
		refs[left] = merged

		if queue.Len() == 0 {
			if err := t.backend.Commit(); err != nil {
				return nil, fmt.Errorf("could not commit tree: %w", err)
			}
			return branchHash, nil
		}
	}

	return nil, fmt.Errorf("%w: failed to build tree from refs", ErrCorrupt)
}
