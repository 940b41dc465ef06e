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
	"fmt"
	"sort"

	"github.com/optakt/merklebit/keyset"
	"github.com/optakt/merklebit/node"
)

// Get resolves a batch of keys against root, returning a map keyed by the
// requested keys. A key absent from the returned map (or whose value is
// nil) was not bound under root. A root unknown to the store yields an
// empty result rather than an error, per the store facade's absent-is-not-an-error
// contract.
func (t *Tree) Get(root []byte, keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	sorted := make([][]byte, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	rootNode, ok, err := t.backend.GetNode(root)
	if err != nil {
		return nil, fmt.Errorf("could not load root: %w", err)
	}
	if !ok {
		return result, nil
	}

	queue := newCellQueue()
	queue.Push(cell{hash: root, keys: sorted, depth: 0})

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
		case node.VariantBranch:
			branch := n.Branch
			minSplit := keyset.CalcMinSplitIndex(c.keys, branch.Key)
			descendants := keyset.CheckDescendants(c.keys, branch.SplitIndex, branch.Key, minSplit)
			if len(descendants) == 0 {
				continue
			}

			zeros, ones := keyset.SplitPairs(descendants, branch.SplitIndex)

			if len(ones) > 0 {
				queue.Push(cell{hash: branch.One, keys: ones, depth: c.depth + 1})
			}
			if len(zeros) > 0 {
				queue.Push(cell{hash: branch.Zero, keys: zeros, depth: c.depth + 1})
			}

		case node.VariantLeaf:
			leaf := n.Leaf
			dataNode, found, err := t.backend.GetNode(leaf.Data)
			if err != nil {
				return nil, fmt.Errorf("could not load data node %x: %w", leaf.Data, err)
			}
			if !found || dataNode.Kind != node.VariantData {
				return nil, fmt.Errorf("%w: leaf %x has no data node", ErrCorrupt, c.hash)
			}

			if i := searchKey(c.keys, leaf.Key); i >= 0 {
				result[string(leaf.Key)] = dataNode.Data.Value
			}

		case node.VariantData:
			return nil, fmt.Errorf("%w: data node %x reached during traversal", ErrCorrupt, c.hash)
		}
	}

	return result, nil
}

// searchKey returns the index of key within sorted keys, or -1.
func searchKey(keys [][]byte, key []byte) int {
	i := sort.Search(len(keys), func(i int) bool { return bytes.Compare(keys[i], key) >= 0 })
	if i < len(keys) && bytes.Equal(keys[i], key) {
		return i
	}
	return -1
}
