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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree_Get_UnknownRoot(t *testing.T) {
	tr, _ := newTestTree(t)

	bogus := make([]byte, keyLength)
	got, err := tr.Get(bogus, [][]byte{key(1)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTree_Get_EmptyKeys(t *testing.T) {
	tr, _ := newTestTree(t)

	root, err := tr.Insert(nil, [][]byte{key(1)}, [][]byte{value("a")})
	require.NoError(t, err)

	got, err := tr.Get(root, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTree_Get_MissingKeyNotInResult(t *testing.T) {
	tr, _ := newTestTree(t)

	root, err := tr.Insert(nil, [][]byte{key(1)}, [][]byte{value("a")})
	require.NoError(t, err)

	got, err := tr.Get(root, [][]byte{key(2)})
	require.NoError(t, err)
	_, ok := got[string(key(2))]
	assert.False(t, ok)
}
