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
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/merklebit/node"
	"github.com/optakt/merklebit/store"
)

func genericNodes(n int) ([][]byte, []*node.Node) {
	hashes := make([][]byte, n)
	nodes := make([]*node.Node, n)
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		value := []byte(fmt.Sprintf("value-%04d", i))
		hashes[i] = append([]byte(nil), key...)
		nodes[i] = node.NewData(&node.Data{Value: value}, 1)
	}
	return hashes, nodes
}

func TestStore_Eviction(t *testing.T) {
	hashes, nodes := genericNodes(512)

	t.Run("without concurrency", func(t *testing.T) {
		s, err := store.New(zerolog.Nop(), store.WithCacheSize(256), store.WithStoragePath(t.TempDir()))
		require.NoError(t, err)
		defer s.Close()

		for i := range hashes {
			err := s.PutNode(hashes[i], nodes[i])
			require.NoError(t, err)
		}

		for i := range hashes {
			got, ok, err := s.GetNode(hashes[i])
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, nodes[i].Data.Value, got.Data.Value)
		}
	})

	t.Run("with concurrency", func(t *testing.T) {
		s, err := store.New(zerolog.Nop(), store.WithCacheSize(256), store.WithStoragePath(t.TempDir()))
		require.NoError(t, err)
		defer s.Close()

		done := make(chan struct{})

		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				i := rand.Intn(len(hashes))
				_ = s.PutNode(hashes[i], nodes[i])
			}
		}()

		var successfulReads int
		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				i := rand.Intn(len(hashes))
				got, ok, err := s.GetNode(hashes[i])
				if err != nil || !ok {
					continue
				}
				if assert.Equal(t, nodes[i].Data.Value, got.Data.Value) {
					successfulReads++
				}
			}
		}()

		<-time.After(1 * time.Second)
		close(done)

		assert.NotZero(t, successfulReads)
	})
}

func TestStore_DeleteNode(t *testing.T) {
	s, err := store.New(zerolog.Nop(), store.WithCacheSize(16), store.WithStoragePath(t.TempDir()))
	require.NoError(t, err)
	defer s.Close()

	hash := []byte("some-hash")
	n := node.NewData(&node.Data{Value: []byte("some-value")}, 1)

	require.NoError(t, s.PutNode(hash, n))
	_, ok, err := s.GetNode(hash)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.DeleteNode(hash))
	_, ok, err = s.GetNode(hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Commit(t *testing.T) {
	s, err := store.New(zerolog.Nop(), store.WithCacheSize(16), store.WithStoragePath(t.TempDir()))
	require.NoError(t, err)
	defer s.Close()

	hash := []byte("committed-hash")
	n := node.NewData(&node.Data{Value: []byte("committed-value")}, 1)

	require.NoError(t, s.PutNode(hash, n))
	require.NoError(t, s.Commit())

	got, ok, err := s.GetNode(hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, n.Data.Value, got.Data.Value)
}
