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

// Package node defines the three node variants that make up a trie (Branch,
// Leaf, Data), their content-addressing scheme, and the reference count
// every stored node carries.
package node

import (
	"fmt"

	"github.com/optakt/merklebit/hasher"
)

// Domain separator bytes, prefixed to each variant's hash preimage to
// prevent cross-type collisions between otherwise identically-shaped inputs.
const (
	domainData   = 'd'
	domainLeaf   = 'l'
	domainBranch = 'b'
)

// Variant identifies which of the three node kinds a Node holds.
type Variant uint8

const (
	// VariantBranch marks an internal node with a split bit and two children.
	VariantBranch Variant = iota
	// VariantLeaf marks a node representing a single key binding.
	VariantLeaf
	// VariantData marks a terminal node holding an opaque encoded value.
	VariantData
)

// Branch is an internal trie node. Zero and One are the hashes of its
// zero-child and one-child; both must exist in the store. Every leaf beneath
// Zero has bit SplitIndex equal to 0, every leaf beneath One has it equal to
// 1, and SplitIndex is strictly greater than the split index of any branch
// on the path from the root to this one.
type Branch struct {
	SplitIndex int
	Key        []byte // witness key, used only to recompute split-bit arithmetic
	Zero       []byte
	One        []byte
	Count      uint64 // number of leaves in this subtree
}

// Leaf represents one (key, value) binding. Data is the hash of the Data
// node holding the encoded value.
type Leaf struct {
	Key  []byte
	Data []byte
}

// Data is the terminal payload of a binding: the opaque encoded value.
type Data struct {
	Value []byte
}

// Node is an immutable, content-addressed record: exactly one of Branch,
// Leaf or Data is set, according to Kind. Refs is the number of live
// incoming parent edges to this node across every root.
type Node struct {
	Kind   Variant
	Branch *Branch
	Leaf   *Leaf
	Data   *Data
	Refs   uint64
}

// NewBranch wraps a Branch in a Node with the given reference count.
func NewBranch(b *Branch, refs uint64) *Node {
	return &Node{Kind: VariantBranch, Branch: b, Refs: refs}
}

// NewLeaf wraps a Leaf in a Node with the given reference count.
func NewLeaf(l *Leaf, refs uint64) *Node {
	return &Node{Kind: VariantLeaf, Leaf: l, Refs: refs}
}

// NewData wraps a Data node in a Node with the given reference count.
func NewData(d *Data, refs uint64) *Node {
	return &Node{Kind: VariantData, Data: d, Refs: refs}
}

// HashData computes the content address of a Data node: H('d' || key || value).
// Data is bound to the key so that two distinct keys holding the same value
// are stored at distinct addresses.
func HashData(h hasher.Hasher, key, value []byte) []byte {
	h.Update([]byte{domainData})
	h.Update(key)
	h.Update(value)
	return h.Finalize()
}

// HashLeaf computes the content address of a Leaf node: H('l' || key || dataHash).
func HashLeaf(h hasher.Hasher, key, dataHash []byte) []byte {
	h.Update([]byte{domainLeaf})
	h.Update(key)
	h.Update(dataHash)
	return h.Finalize()
}

// HashBranch computes the content address of a Branch node: H('b' || zero || one).
func HashBranch(h hasher.Hasher, zero, one []byte) []byte {
	h.Update([]byte{domainBranch})
	h.Update(zero)
	h.Update(one)
	return h.Finalize()
}

// String renders a short human-readable description of the node, useful for
// logging and debugging.
func (n *Node) String() string {
	switch n.Kind {
	case VariantBranch:
		return fmt.Sprintf("branch(split=%d, count=%d)", n.Branch.SplitIndex, n.Branch.Count)
	case VariantLeaf:
		return fmt.Sprintf("leaf(key=%x)", n.Leaf.Key)
	case VariantData:
		return fmt.Sprintf("data(%d bytes)", len(n.Data.Value))
	default:
		return "unknown"
	}
}
