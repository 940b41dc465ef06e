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

import "github.com/gammazero/deque"

// cell is one unit of traversal work: the hash of a node, the sorted
// sub-batch of keys still routed towards it, and its depth from the root.
type cell struct {
	hash  []byte
	keys  [][]byte
	depth int
}

// cellQueue is a LIFO work list for tree traversal, pushing and popping
// from the front so that descent proceeds depth-first.
type cellQueue struct {
	cells *deque.Deque
}

func newCellQueue() *cellQueue {
	return &cellQueue{
		cells: deque.New(256),
	}
}

func (q *cellQueue) Push(c cell) {
	q.cells.PushFront(c)
}

func (q *cellQueue) Pop() cell {
	return q.cells.PopFront().(cell)
}

func (q *cellQueue) Len() int {
	return q.cells.Len()
}
