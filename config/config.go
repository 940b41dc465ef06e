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

// Package config collects the trie's tunable parameters into a single
// validated structure, set through the library's functional options.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Default configuration values.
const (
	DefaultKeyLength   = 32
	DefaultHashLength  = 32
	DefaultMaxDepth    = 256
	DefaultWorkerCount = 4
)

// Config holds the parameters that define a trie's shape and runtime
// behaviour. KeyLength and HashLength are fixed for the lifetime of a given
// on-disk store: changing either one after nodes have been written makes
// the store unreadable.
type Config struct {
	KeyLength   int `validate:"required,gt=0"`
	HashLength  int `validate:"required,gt=0"`
	MaxDepth    int `validate:"required,gt=0"`
	WorkerCount int `validate:"required,gt=0"`
}

// Option is a function that modifies a configuration.
type Option func(*Config)

// DefaultConfig is the trie's default configuration: 32-byte keys, a
// 32-byte (BLAKE3-256) hash, depth bounded by the key length in bits, and
// four workers for parallel leaf hashing.
var DefaultConfig = Config{
	KeyLength:   DefaultKeyLength,
	HashLength:  DefaultHashLength,
	MaxDepth:    DefaultMaxDepth,
	WorkerCount: DefaultWorkerCount,
}

// WithKeyLength sets the key length, in bytes, from which the trie derives
// its default maximum depth. The trie does not check the length of the keys
// it is given against it.
func WithKeyLength(n int) Option {
	return func(c *Config) {
		c.KeyLength = n
	}
}

// WithHashLength sets the digest length, in bytes, produced by the trie's
// hasher.
func WithHashLength(n int) Option {
	return func(c *Config) {
		c.HashLength = n
	}
}

// WithMaxDepth sets the maximum number of branch levels a lookup will
// descend before returning a depth-exceeded error.
func WithMaxDepth(n int) Option {
	return func(c *Config) {
		c.MaxDepth = n
	}
}

// WithWorkerCount sets the number of goroutines used to hash leaves in
// parallel during a batch insert.
func WithWorkerCount(n int) Option {
	return func(c *Config) {
		c.WorkerCount = n
	}
}

// Validate checks that a Config satisfies its struct tag constraints.
func Validate(c Config) error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
