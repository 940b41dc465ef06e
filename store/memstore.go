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

package store

import (
	"sync"

	"github.com/optakt/merklebit/node"
)

// MemStore is an in-memory node store, used in tests in place of a
// Badger-backed Store. Inserts are buffered in pending until Commit is
// called; GetNode already sees buffered writes, while Len counts only
// committed nodes.
type MemStore struct {
	mutex   sync.RWMutex
	nodes   map[string]*node.Node
	pending map[string]*node.Node
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:   make(map[string]*node.Node),
		pending: make(map[string]*node.Node),
	}
}

// PutNode buffers a node under its content hash.
func (m *MemStore) PutNode(hash []byte, n *node.Node) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.pending[string(hash)] = n
	return nil
}

// GetNode retrieves a node, checking pending writes before committed ones.
func (m *MemStore) GetNode(hash []byte) (*node.Node, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if n, ok := m.pending[string(hash)]; ok {
		return n, true, nil
	}
	n, ok := m.nodes[string(hash)]
	return n, ok, nil
}

// DeleteNode removes a node immediately from both the pending and committed
// sets.
func (m *MemStore) DeleteNode(hash []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.pending, string(hash))
	delete(m.nodes, string(hash))
	return nil
}

// Commit moves every pending write into the committed set.
func (m *MemStore) Commit() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for key, n := range m.pending {
		m.nodes[key] = n
	}
	m.pending = make(map[string]*node.Node)
	return nil
}

// Close is a no-op, satisfying the same lifecycle as Store.
func (m *MemStore) Close() error {
	return nil
}

// Len returns the number of committed nodes, useful for asserting on reap
// behaviour in tests.
func (m *MemStore) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.nodes)
}
