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

package trie_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/merklebit/store"
	"github.com/optakt/merklebit/trie"
)

const keyLength = 32

// key builds a fixed-width key from a single varying byte, with the rest of
// the key zeroed, which is enough to exercise distinct trie paths without
// pulling in a fixture generator.
func key(b byte) []byte {
	k := make([]byte, keyLength)
	k[keyLength-1] = b
	return k
}

func value(s string) []byte {
	return []byte(s)
}

func newTestTree(t *testing.T) (*trie.Tree, *store.MemStore) {
	t.Helper()
	backend := store.NewMemStore()
	tr, err := trie.FromBackend(zerolog.Nop(), backend)
	require.NoError(t, err)
	return tr, backend
}

func TestTree_InsertAndGet_AllZerosKey(t *testing.T) {
	tr, _ := newTestTree(t)

	k := make([]byte, keyLength)
	v := value("all-zeros")

	root, err := tr.Insert(nil, [][]byte{k}, [][]byte{v})
	require.NoError(t, err)
	require.NotNil(t, root)

	got, err := tr.Get(root, [][]byte{k})
	require.NoError(t, err)
	assert.Equal(t, v, got[string(k)])
}

func TestTree_InsertAndGet_MaximallyDivergingKeys(t *testing.T) {
	tr, _ := newTestTree(t)

	zero := make([]byte, keyLength)
	one := make([]byte, keyLength)
	for i := range one {
		one[i] = 0xFF
	}

	root, err := tr.Insert(nil, [][]byte{zero, one}, [][]byte{value("zero"), value("one")})
	require.NoError(t, err)

	got, err := tr.Get(root, [][]byte{zero, one})
	require.NoError(t, err)
	assert.Equal(t, value("zero"), got[string(zero)])
	assert.Equal(t, value("one"), got[string(one)])
}

func TestTree_Insert_Update(t *testing.T) {
	tr, _ := newTestTree(t)

	k := key(1)
	root, err := tr.Insert(nil, [][]byte{k}, [][]byte{value("v1")})
	require.NoError(t, err)

	root2, err := tr.Insert(root, [][]byte{k}, [][]byte{value("v2")})
	require.NoError(t, err)

	got, err := tr.Get(root2, [][]byte{k})
	require.NoError(t, err)
	assert.Equal(t, value("v2"), got[string(k)])

	// The old root must still resolve to the old value.
	old, err := tr.Get(root, [][]byte{k})
	require.NoError(t, err)
	assert.Equal(t, value("v1"), old[string(k)])
}

func TestTree_Insert_StructuralSharing(t *testing.T) {
	tr, backend := newTestTree(t)

	keys := make([][]byte, 0, 64)
	values := make([][]byte, 0, 64)
	for i := 0; i < 64; i++ {
		keys = append(keys, key(byte(i)))
		values = append(values, value(string(rune('a'+i%26))))
	}

	root, err := tr.Insert(nil, keys, values)
	require.NoError(t, err)

	updateKey := keys[0]
	root2, err := tr.Insert(root, [][]byte{updateKey}, [][]byte{value("updated")})
	require.NoError(t, err)

	gotOld, err := tr.Get(root, keys)
	require.NoError(t, err)
	gotNew, err := tr.Get(root2, keys)
	require.NoError(t, err)

	for _, k := range keys[1:] {
		assert.Equal(t, gotOld[string(k)], gotNew[string(k)])
	}
	assert.Equal(t, value("updated"), gotNew[string(updateKey)])

	assert.Greater(t, backend.Len(), 0)
}

// TestTree_Insert_OrderIndependence exercises spec.md §8 property 2: the
// root produced by inserting a batch does not depend on the order its
// (key, value) pairs were passed in.
func TestTree_Insert_OrderIndependence(t *testing.T) {
	const n = 32
	keys := make([][]byte, n)
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = key(byte(i))
		values[i] = value(string(rune('a' + i%26)))
	}

	tr1, _ := newTestTree(t)
	root1, err := tr1.Insert(nil, keys, values)
	require.NoError(t, err)

	order := rand.Perm(n)
	shuffledKeys := make([][]byte, n)
	shuffledValues := make([][]byte, n)
	for i, idx := range order {
		shuffledKeys[i] = keys[idx]
		shuffledValues[i] = values[idx]
	}

	tr2, _ := newTestTree(t)
	root2, err := tr2.Insert(nil, shuffledKeys, shuffledValues)
	require.NoError(t, err)

	assert.Equal(t, root1, root2)
}

// TestTree_Insert_Determinism exercises spec.md §8 property 3: the root is
// a pure function of the multiset of bindings, independent of which Tree
// instance computed it.
func TestTree_Insert_Determinism(t *testing.T) {
	const n = 32
	keys := make([][]byte, n)
	values := make([][]byte, n)
	for i := 0; i < n; i++ {
		keys[i] = key(byte(i))
		values[i] = value(string(rune('a' + i%26)))
	}

	tr1, _ := newTestTree(t)
	root1, err := tr1.Insert(nil, keys, values)
	require.NoError(t, err)

	tr2, _ := newTestTree(t)
	root2, err := tr2.Insert(nil, keys, values)
	require.NoError(t, err)

	assert.Equal(t, root1, root2)
}

func TestTree_Insert_DuplicateKeyInBatch(t *testing.T) {
	tr, _ := newTestTree(t)

	k := key(7)
	_, err := tr.Insert(nil, [][]byte{k, k}, [][]byte{value("a"), value("b")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, trie.ErrDuplicateKey))
}

func TestTree_Insert_EmptyBatch(t *testing.T) {
	tr, _ := newTestTree(t)

	_, err := tr.Insert(nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, trie.ErrEmptyBatch))
}

func TestTree_Insert_MismatchedLengths(t *testing.T) {
	tr, _ := newTestTree(t)

	_, err := tr.Insert(nil, [][]byte{key(1), key(2)}, [][]byte{value("a")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, trie.ErrEmptyBatch))
}

func TestTree_Insert_UnknownPreviousRoot(t *testing.T) {
	tr, _ := newTestTree(t)

	bogus := make([]byte, keyLength)
	rand.Read(bogus)

	_, err := tr.Insert(bogus, [][]byte{key(1)}, [][]byte{value("a")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, trie.ErrRootNotFound))
}

func TestTree_Insert_ManyKeysRoundTrip(t *testing.T) {
	tr, _ := newTestTree(t)

	const n = 1000
	keys := make([][]byte, n)
	values := make([][]byte, n)
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		var k []byte
		for {
			k = make([]byte, keyLength)
			rand.Read(k)
			if !seen[string(k)] {
				seen[string(k)] = true
				break
			}
		}
		keys[i] = k
		values[i] = []byte{byte(i)}
	}

	root, err := tr.Insert(nil, keys, values)
	require.NoError(t, err)

	got, err := tr.Get(root, keys)
	require.NoError(t, err)
	for i, k := range keys {
		assert.Equal(t, values[i], got[string(k)])
	}
}
