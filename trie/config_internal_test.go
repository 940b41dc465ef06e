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
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optakt/merklebit/config"
	"github.com/optakt/merklebit/store"
)

// TestFromBackend_KeyLengthDrivesDefaultMaxDepth confirms WithKeyLength
// actually changes trie behaviour: the default max depth tracks the
// configured key length (in bits), rather than being silently pinned to the
// package default regardless of what key length the caller asked for.
func TestFromBackend_KeyLengthDrivesDefaultMaxDepth(t *testing.T) {
	backend := store.NewMemStore()

	tr, err := FromBackend(zerolog.Nop(), backend, config.WithKeyLength(16))
	require.NoError(t, err)
	assert.Equal(t, 16*8, tr.maxDepth)
}

// TestFromBackend_ExplicitMaxDepthOverridesKeyLength confirms an explicit
// WithMaxDepth still wins over the key-length-derived default.
func TestFromBackend_ExplicitMaxDepthOverridesKeyLength(t *testing.T) {
	backend := store.NewMemStore()

	tr, err := FromBackend(zerolog.Nop(), backend, config.WithKeyLength(16), config.WithMaxDepth(4))
	require.NoError(t, err)
	assert.Equal(t, 4, tr.maxDepth)
}

// TestFromBackend_DefaultMaxDepth confirms that with no options at all, the
// max depth still matches the package's default key length in bits.
func TestFromBackend_DefaultMaxDepth(t *testing.T) {
	backend := store.NewMemStore()

	tr, err := FromBackend(zerolog.Nop(), backend)
	require.NoError(t, err)
	assert.Equal(t, 8*config.DefaultKeyLength, tr.maxDepth)
}
