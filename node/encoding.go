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

package node

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encode serializes a Node to its wire format: a reference count, a kind
// byte, and the variant's fields, with byte-string fields length-prefixed
// and a branch's split index and count as fixed 8-byte integers. This is
// the store's on-disk representation; it is independent of the hash
// preimage format defined by HashData/HashLeaf/HashBranch.
func Encode(n *Node) []byte {
	var buf bytes.Buffer

	var refsBuf [8]byte
	binary.BigEndian.PutUint64(refsBuf[:], n.Refs)
	buf.Write(refsBuf[:])
	buf.WriteByte(byte(n.Kind))

	switch n.Kind {
	case VariantData:
		writeBytes(&buf, n.Data.Value)
	case VariantLeaf:
		writeBytes(&buf, n.Leaf.Key)
		writeBytes(&buf, n.Leaf.Data)
	case VariantBranch:
		var splitBuf [8]byte
		binary.BigEndian.PutUint64(splitBuf[:], uint64(n.Branch.SplitIndex))
		buf.Write(splitBuf[:])
		writeBytes(&buf, n.Branch.Key)
		writeBytes(&buf, n.Branch.Zero)
		writeBytes(&buf, n.Branch.One)
		var countBuf [8]byte
		binary.BigEndian.PutUint64(countBuf[:], n.Branch.Count)
		buf.Write(countBuf[:])
	}

	return buf.Bytes()
}

// Decode parses the wire format produced by Encode.
func Decode(data []byte) (*Node, error) {
	if len(data) < 9 {
		return nil, fmt.Errorf("node encoding too short: %d bytes", len(data))
	}

	refs := binary.BigEndian.Uint64(data[:8])
	kind := Variant(data[8])
	rest := data[9:]

	switch kind {
	case VariantData:
		value, _, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("could not decode data node: %w", err)
		}
		return NewData(&Data{Value: value}, refs), nil

	case VariantLeaf:
		key, rest, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("could not decode leaf key: %w", err)
		}
		dataHash, _, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("could not decode leaf data hash: %w", err)
		}
		return NewLeaf(&Leaf{Key: key, Data: dataHash}, refs), nil

	case VariantBranch:
		if len(rest) < 8 {
			return nil, fmt.Errorf("branch encoding too short for split index")
		}
		splitIndex := int(binary.BigEndian.Uint64(rest[:8]))
		rest = rest[8:]
		key, rest, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("could not decode branch key: %w", err)
		}
		zero, rest, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("could not decode branch zero hash: %w", err)
		}
		one, rest, err := readBytes(rest)
		if err != nil {
			return nil, fmt.Errorf("could not decode branch one hash: %w", err)
		}
		if len(rest) < 8 {
			return nil, fmt.Errorf("branch encoding too short for count")
		}
		count := binary.BigEndian.Uint64(rest[:8])
		return NewBranch(&Branch{
			SplitIndex: splitIndex,
			Key:        key,
			Zero:       zero,
			One:        one,
			Count:      count,
		}, refs), nil

	default:
		return nil, fmt.Errorf("unknown node kind %d", kind)
	}
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf.Write(lenBuf[:])
	buf.Write(data)
}

func readBytes(data []byte) (value []byte, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("length prefix too short")
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, fmt.Errorf("declared length %d exceeds remaining %d bytes", n, len(data))
	}
	return data[:n], data[n:], nil
}
