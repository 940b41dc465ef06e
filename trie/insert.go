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
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/optakt/merklebit/keyset"
	"github.com/optakt/merklebit/node"
)

// Insert adds a batch of (key, value) bindings on top of previousRoot,
// which may be nil for an empty starting tree, and returns the hash of the
// resulting root. Keys must be unique within the batch; they need not be
// unique across calls. The prior root, if any, remains valid and
// independently retrievable after Insert returns.
func (t *Tree) Insert(previousRoot []byte, keys, values [][]byte) ([]byte, error) {
	if len(keys) == 0 || len(values) == 0 || len(keys) != len(values) {
		return nil, fmt.Errorf("%w: got %d keys and %d values", ErrEmptyBatch, len(keys), len(values))
	}

	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return bytes.Compare(keys[order[i]], keys[order[j]]) < 0
	})

	sortedKeys := make([][]byte, len(keys))
	sortedValues := make([][]byte, len(keys))
	for i, idx := range order {
		sortedKeys[i] = keys[idx]
		sortedValues[i] = values[idx]
	}

	leafRefs, keyMap, err := t.materializeLeaves(sortedKeys, sortedValues)
	if err != nil {
		return nil, fmt.Errorf("could not materialize leaves: %w", err)
	}

	treeRefs := leafRefs
	if previousRoot != nil {
		frontier, err := t.collectFrontier(previousRoot, sortedKeys, keyMap)
		if err != nil {
			return nil, fmt.Errorf("could not collect frontier: %w", err)
		}
		treeRefs = append(treeRefs, frontier...)
	}

	root, err := t.createTree(treeRefs)
	if err != nil {
		return nil, fmt.Errorf("could not build tree: %w", err)
	}

	t.roots.Add(root, previousRoot)

	return root, nil
}

// materializeLeaves builds a Data and a Leaf node for every (key, value)
// pair and returns one tree ref per pair, alongside a map from key to the
// leaf hash chosen for it. Pairs are independent of one another, so the
// work is spread across a bounded pool of goroutines.
func (t *Tree) materializeLeaves(keys, values [][]byte) ([]treeRef, map[string][]byte, error) {
	refs := make([]treeRef, len(keys))
	errs := make([]error, len(keys))

	sem := semaphore.NewWeighted(int64(t.workerCount))
	var wg sync.WaitGroup
	ctx := context.Background()

	for i := range keys {
		i := i
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, nil, fmt.Errorf("could not acquire worker slot: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			ref, err := t.materializeLeaf(keys[i], values[i])
			refs[i] = ref
			errs[i] = err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}

	keyMap := make(map[string][]byte, len(keys))
	for i, key := range keys {
		keyMap[string(key)] = refs[i].Location
	}

	return refs, keyMap, nil
}

// materializeLeaf builds the Data and Leaf node for a single (key, value)
// pair and stores both, incrementing their reference count if a node with
// the same content address was already present in the store.
func (t *Tree) materializeLeaf(key, value []byte) (treeRef, error) {
	dataHash := node.HashData(t.newHasher(), key, value)

	existing, found, err := t.backend.GetNode(dataHash)
	if err != nil {
		return treeRef{}, fmt.Errorf("could not look up data node %x: %w", dataHash, err)
	}
	dataRefs := uint64(1)
	if found {
		dataRefs = existing.Refs + 1
	}
	err = t.backend.PutNode(dataHash, node.NewData(&node.Data{Value: value}, dataRefs))
	if err != nil {
		return treeRef{}, fmt.Errorf("could not store data node %x: %w", dataHash, err)
	}

	leafHash := node.HashLeaf(t.newHasher(), key, dataHash)

	existing, found, err = t.backend.GetNode(leafHash)
	if err != nil {
		return treeRef{}, fmt.Errorf("could not look up leaf node %x: %w", leafHash, err)
	}
	leafRefs := uint64(1)
	if found {
		leafRefs = existing.Refs + 1
	}
	err = t.backend.PutNode(leafHash, node.NewLeaf(&node.Leaf{Key: key, Data: dataHash}, leafRefs))
	if err != nil {
		return treeRef{}, fmt.Errorf("could not store leaf node %x: %w", leafHash, err)
	}

	return treeRef{Key: key, Location: leafHash, Span: 1, Leaves: 1}, nil
}

// collectFrontier walks the tree rooted at previousRoot along the same
// descent used by Get, emitting a tree ref for every subtree that survives
// the batch untouched: leaves whose key is not being written by this
// batch, and branches none of whose descendants are targeted by it.
//
// A leaf whose key IS present in keyMap is always skipped here, whether or
// not its value changed: the new binding for that key is already
// represented by the tree ref materializeLeaves produced for it, and
// emitting a second one for the same key would make it look like a
// duplicate key to createTree.
func (t *Tree) collectFrontier(root []byte, keys [][]byte, keyMap map[string][]byte) ([]treeRef, error) {
	rootNode, ok, err := t.backend.GetNode(root)
	if err != nil {
		return nil, fmt.Errorf("could not load previous root: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrRootNotFound, root)
	}

	var frontier []treeRef

	queue := newCellQueue()
	queue.Push(cell{hash: root, keys: keys, depth: 0})

	for queue.Len() > 0 {
		c := queue.Pop()

		if c.depth > t.maxDepth {
			return nil, fmt.Errorf("%w: at depth %d", ErrDepthExceeded, c.depth)
		}

		var n *node.Node
		if bytes.Equal(c.hash, root) {
			n = rootNode
		} else {
			loaded, found, err := t.backend.GetNode(c.hash)
			if err != nil {
				return nil, fmt.Errorf("could not load node %x: %w", c.hash, err)
			}
			if !found {
				return nil, fmt.Errorf("%w: missing node %x", ErrCorrupt, c.hash)
			}
			n = loaded
		}

		switch n.Kind {
		case node.VariantLeaf:
			leaf := n.Leaf
			if _, inBatch := keyMap[string(leaf.Key)]; inBatch {
				continue
			}

			if err := t.incrementRefs(c.hash); err != nil {
				return nil, err
			}
			frontier = append(frontier, treeRef{Key: leaf.Key, Location: c.hash, Span: 1, Leaves: 1})

		case node.VariantBranch:
			branch := n.Branch

			descendants := c.keys
			minSplit := keyset.CalcMinSplitIndex(c.keys, branch.Key)
			if minSplit < branch.SplitIndex {
				descendants = keyset.CheckDescendants(c.keys, branch.SplitIndex, branch.Key, minSplit)
				if len(descendants) == 0 {
					if err := t.incrementRefs(c.hash); err != nil {
						return nil, err
					}
					frontier = append(frontier, treeRef{Key: branch.Key, Location: c.hash, Span: 1, Leaves: branch.Count})
					continue
				}
			}

			zeros, ones := keyset.SplitPairs(descendants, branch.SplitIndex)

			if len(ones) > 0 {
				queue.Push(cell{hash: branch.One, keys: ones, depth: c.depth + 1})
			} else {
				ref, err := t.promoteUnchangedChild(branch.One)
				if err != nil {
					return nil, err
				}
				frontier = append(frontier, ref)
			}

			if len(zeros) > 0 {
				queue.Push(cell{hash: branch.Zero, keys: zeros, depth: c.depth + 1})
			} else {
				ref, err := t.promoteUnchangedChild(branch.Zero)
				if err != nil {
					return nil, err
				}
				frontier = append(frontier, ref)
			}

		default:
			return nil, fmt.Errorf("%w: unexpected node kind at %x", ErrCorrupt, c.hash)
		}
	}

	return frontier, nil
}

// promoteUnchangedChild loads a branch child that the batch does not route
// through at all, increments its reference count, and returns a tree ref
// standing in for its whole subtree.
func (t *Tree) promoteUnchangedChild(hash []byte) (treeRef, error) {
	n, ok, err := t.backend.GetNode(hash)
	if err != nil {
		return treeRef{}, fmt.Errorf("could not load child %x: %w", hash, err)
	}
	if !ok {
		return treeRef{}, fmt.Errorf("%w: missing child %x", ErrCorrupt, hash)
	}

	var key []byte
	var leaves uint64
	switch n.Kind {
	case node.VariantBranch:
		key = n.Branch.Key
		leaves = n.Branch.Count
	case node.VariantLeaf:
		key = n.Leaf.Key
		leaves = 1
	default:
		return treeRef{}, fmt.Errorf("%w: unexpected child kind at %x", ErrCorrupt, hash)
	}

	if err := t.incrementRefs(hash); err != nil {
		return treeRef{}, err
	}

	return treeRef{Key: key, Location: hash, Span: 1, Leaves: leaves}, nil
}

// incrementRefs loads a node, increments its reference count by one, and
// writes it back.
func (t *Tree) incrementRefs(hash []byte) error {
	n, ok, err := t.backend.GetNode(hash)
	if err != nil {
		return fmt.Errorf("could not load node %x: %w", hash, err)
	}
	if !ok {
		return fmt.Errorf("%w: missing node %x", ErrCorrupt, hash)
	}
	n.Refs++
	if err := t.backend.PutNode(hash, n); err != nil {
		return fmt.Errorf("could not update references for %x: %w", hash, err)
	}
	return nil
}
