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
	"fmt"

	"github.com/gammazero/deque"

	"github.com/optakt/merklebit/node"
)

// Remove decrements the reference count of root and, transitively, of every
// node it alone kept alive. A node whose reference count reaches zero is
// deleted and its children are visited in turn; a node that still has
// references after the decrement is written back as-is and its children are
// left untouched, since some other root still depends on them. A hash that
// is already absent from the backend, because this exact subtree was already
// reaped by a prior Remove call, is simply skipped, making Remove idempotent
// on any root or sub-hash it has already processed.
func (t *Tree) Remove(root []byte) error {
	pending := deque.New(256)
	pending.PushBack(root)

	for pending.Len() > 0 {
		hash := pending.PopFront().([]byte)

		n, ok, err := t.backend.GetNode(hash)
		if err != nil {
			return fmt.Errorf("could not load node %x: %w", hash, err)
		}
		if !ok {
			continue
		}

		if n.Refs > 1 {
			n.Refs--
			if err := t.backend.PutNode(hash, n); err != nil {
				return fmt.Errorf("could not update references for %x: %w", hash, err)
			}
			continue
		}

		if err := t.backend.DeleteNode(hash); err != nil {
			return fmt.Errorf("could not delete node %x: %w", hash, err)
		}

		switch n.Kind {
		case node.VariantBranch:
			pending.PushBack(n.Branch.Zero)
			pending.PushBack(n.Branch.One)
		case node.VariantLeaf:
			pending.PushBack(n.Leaf.Data)
		case node.VariantData:
			// No children to recurse into.
		}
	}

	if err := t.backend.Commit(); err != nil {
		return fmt.Errorf("could not commit removal: %w", err)
	}

	t.roots.Forget(root)

	return nil
}
