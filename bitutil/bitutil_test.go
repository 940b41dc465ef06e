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

package bitutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optakt/merklebit/bitutil"
)

func TestChooseZero_Easy(t *testing.T) {
	key := []byte{0x0F}
	for i := 0; i < 8; i++ {
		want := i < 4
		assert.Equal(t, want, bitutil.ChooseZero(key, i))
	}
}

func TestChooseZero_Medium(t *testing.T) {
	key := []byte{0x55}
	for i := 0; i < 8; i++ {
		want := i%2 == 0
		assert.Equal(t, want, bitutil.ChooseZero(key, i))
	}

	key = []byte{0xAA}
	for i := 0; i < 8; i++ {
		want := i%2 != 0
		assert.Equal(t, want, bitutil.ChooseZero(key, i))
	}
}

func TestChooseZero_Hard(t *testing.T) {
	key := []byte{0x68}
	for i := 0; i < 8; i++ {
		want := !(i == 1 || i == 2 || i == 4)
		assert.Equal(t, want, bitutil.ChooseZero(key, i))
	}

	key = []byte{0xAB}
	for i := 0; i < 8; i++ {
		want := !(i == 0 || i == 2 || i == 4 || i == 6 || i == 7)
		assert.Equal(t, want, bitutil.ChooseZero(key, i))
	}
}

func TestFirstDiffBit(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []byte
		want    int
		wantOK  bool
	}{
		{
			name:   "identical keys",
			a:      []byte{0x00, 0x00},
			b:      []byte{0x00, 0x00},
			wantOK: false,
		},
		{
			name:   "differ in first byte, high bit",
			a:      []byte{0x00, 0x00},
			b:      []byte{0xFF, 0x00},
			want:   0,
			wantOK: true,
		},
		{
			name:   "differ in first byte, low bit",
			a:      []byte{0x00, 0x00},
			b:      []byte{0x01, 0x00},
			want:   7,
			wantOK: true,
		},
		{
			name:   "differ only in second byte",
			a:      []byte{0xFF, 0x00},
			b:      []byte{0xFF, 0x80},
			want:   8,
			wantOK: true,
		},
		{
			name:   "all-zeros vs all-ones",
			a:      []byte{0x00, 0x00, 0x00, 0x00},
			b:      []byte{0xFF, 0xFF, 0xFF, 0xFF},
			want:   0,
			wantOK: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := bitutil.FirstDiffBit(test.a, test.b)
			assert.Equal(t, test.wantOK, ok)
			if test.wantOK {
				assert.Equal(t, test.want, got)
			}
		})
	}
}
