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

package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/merklebit/node"
	"github.com/optakt/merklebit/store"
)

func TestMemStore_PendingUntilCommit(t *testing.T) {
	m := store.NewMemStore()

	hash := []byte("h")
	n := node.NewData(&node.Data{Value: []byte("v")}, 1)

	require.NoError(t, m.PutNode(hash, n))

	// Visible immediately through GetNode, even though not yet committed.
	got, ok, err := m.GetNode(hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, n.Data.Value, got.Data.Value)
	assert.Zero(t, m.Len())

	require.NoError(t, m.Commit())
	assert.Equal(t, 1, m.Len())
}

func TestMemStore_DeleteNode(t *testing.T) {
	m := store.NewMemStore()

	hash := []byte("h")
	n := node.NewData(&node.Data{Value: []byte("v")}, 1)

	require.NoError(t, m.PutNode(hash, n))
	require.NoError(t, m.Commit())
	require.Equal(t, 1, m.Len())

	require.NoError(t, m.DeleteNode(hash))
	_, ok, err := m.GetNode(hash)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestMemStore_GetNode_Missing(t *testing.T) {
	m := store.NewMemStore()
	_, ok, err := m.GetNode([]byte("nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}
