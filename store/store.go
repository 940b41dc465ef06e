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

// Package store provides the content-addressed node storage the trie is
// built on: a persistent key/value backend fronted by an LRU write-behind
// cache, so that inserting a large batch of nodes does not pay one disk
// write per node.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v2"
	multierror "github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/optakt/merklebit/node"
)

// Backend is the contract the trie package relies on to read and write
// nodes. Both Store and MemStore implement it.
type Backend interface {
	GetNode(hash []byte) (*node.Node, bool, error)
	PutNode(hash []byte, n *node.Node) error
	DeleteNode(hash []byte) error
	Commit() error
	Close() error
}

// persistInterval is how often the store checks whether its cache has grown
// past half full and, if so, evicts its oldest entries to disk.
const persistInterval = 100 * time.Millisecond

// inFlightCommits bounds the number of Badger transactions committing
// concurrently in the background.
const inFlightCommits = 16

// Store is a content-addressed node store. Reads first check the
// write-behind cache, then the transaction currently being built, then the
// database. Writes go to the cache and are persisted asynchronously as
// entries are evicted or as the periodic flush fires.
type Store struct {
	log zerolog.Logger

	db    *badger.DB
	sema  *semaphore.Weighted
	tx    *badger.Txn
	mutex *sync.RWMutex
	wg    *sync.WaitGroup
	err   chan error

	cache     *lru.Cache
	cacheSize int

	done chan struct{}
}

// New creates a Store backed by a Badger database, using a cache of the
// configured size as a write-behind buffer in front of it.
func New(log zerolog.Logger, opts ...Option) (*Store, error) {
	logger := log.With().Str("component", "node_store").Logger()

	config := DefaultConfig
	for _, opt := range opts {
		opt(&config)
	}

	badgerOpts := badger.DefaultOptions(config.StoragePath)
	badgerOpts.Logger = nil
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("could not open node storage: %w", err)
	}

	s := Store{
		log: logger,
		db:  db,
		tx:  db.NewTransaction(true),

		sema:      semaphore.NewWeighted(inFlightCommits),
		err:       make(chan error, inFlightCommits),
		done:      make(chan struct{}),
		mutex:     &sync.RWMutex{},
		wg:        &sync.WaitGroup{},
		cacheSize: config.CacheSize,
	}

	s.wg.Add(1)
	go s.flush()

	s.cache, err = lru.NewWithEvict(config.CacheSize, func(k interface{}, v interface{}) {
		key, ok := k.(string)
		if !ok {
			logger.Fatal().Interface("got", k).Msg("unexpected cache key format")
		}

		encoded, ok := v.([]byte)
		if !ok {
			logger.Fatal().Interface("got", v).Msg("unexpected cache value format")
		}

		err := s.write([]byte(key), encoded)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not persist evicted node")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not create node cache: %w", err)
	}

	go s.persist()

	return &s, nil
}

// PutNode buffers a node under its content hash. The write may not be
// visible on disk until the cache evicts it or Close/Commit is called, but
// it is immediately visible to GetNode.
func (s *Store) PutNode(hash []byte, n *node.Node) error {
	encoded := node.Encode(n)
	_ = s.cache.Add(string(hash), encoded)
	return nil
}

// GetNode retrieves a node by its content hash, checking the cache, the
// in-flight transaction and the database, in that order. It returns
// ok == false if the hash is not known to the store.
func (s *Store) GetNode(hash []byte) (n *node.Node, ok bool, err error) {
	val, cached := s.cache.Get(string(hash))
	if cached {
		n, err := node.Decode(val.([]byte))
		if err != nil {
			return nil, false, fmt.Errorf("could not decode cached node %x: %w", hash, err)
		}
		return n, true, nil
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	item, err := s.tx.Get(hash)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("could not read node %x: %w", hash, err)
	}

	encoded, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, fmt.Errorf("could not copy node %x: %w", hash, err)
	}

	n, err = node.Decode(encoded)
	if err != nil {
		return nil, false, fmt.Errorf("could not decode node %x: %w", hash, err)
	}

	return n, true, nil
}

// DeleteNode removes a node from the store immediately; unlike PutNode, this
// is not buffered, since reaped nodes must not be resurrected by a stale
// cache entry being flushed later.
func (s *Store) DeleteNode(hash []byte) error {
	s.cache.Remove(string(hash))

	s.mutex.Lock()
	err := s.tx.Delete(hash)
	if errors.Is(err, badger.ErrTxnTooBig) {
		_ = s.sema.Acquire(context.Background(), 1)
		s.tx.CommitWith(s.committed)
		s.tx = s.db.NewTransaction(true)
		err = s.tx.Delete(hash)
	}
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not delete node %x: %w", hash, err)
	}

	return nil
}

// Commit flushes the cache and commits the current transaction, making
// every buffered write visible on disk.
func (s *Store) Commit() error {
	for _, key := range s.cache.Keys() {
		s.cache.Remove(key) // triggers eviction callback, which calls write
	}

	s.mutex.Lock()
	err := s.tx.Commit()
	s.tx = s.db.NewTransaction(true)
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Close stops the store's background goroutines, flushes every buffered
// write and closes the underlying database.
func (s *Store) Close() error {
	close(s.done)
	s.wg.Wait()

	for _, key := range s.cache.Keys() {
		s.cache.Remove(key)
	}

	s.mutex.Lock()
	err := s.tx.Commit()
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not commit final transaction: %w", err)
	}

	_ = s.sema.Acquire(context.Background(), inFlightCommits)
	err = s.db.Close()
	close(s.err)

	var merr *multierror.Error
	if err != nil {
		merr = multierror.Append(merr, fmt.Errorf("could not close database: %w", err))
	}
	for err := range s.err {
		merr = multierror.Append(merr, err)
	}

	return merr.ErrorOrNil()
}

// persist periodically evicts the cache's oldest entries once it grows past
// half full, so that a long batch insert does not block on a full cache.
func (s *Store) persist() {
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return

		case <-ticker.C:
			if s.cache.Len() < s.cacheSize/2 {
				continue
			}
			for i := 0; i < s.cache.Len()-s.cacheSize/2; i++ {
				s.cache.RemoveOldest()
			}
		}
	}
}

func (s *Store) write(hash []byte, encoded []byte) error {
	select {
	case err := <-s.err:
		return fmt.Errorf("could not commit transaction: %w", err)
	default:
	}

	s.mutex.Lock()
	err := s.tx.Set(hash, encoded)
	if errors.Is(err, badger.ErrTxnTooBig) {
		_ = s.sema.Acquire(context.Background(), 1)
		s.tx.CommitWith(s.committed)
		s.tx = s.db.NewTransaction(true)
		err = s.tx.Set(hash, encoded)
	}
	s.mutex.Unlock()
	if errors.Is(err, badger.ErrDiscardedTxn) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not apply write: %w", err)
	}

	return nil
}

func (s *Store) committed(err error) {
	if err != nil {
		s.err <- err
	}
	s.sema.Release(1)
}

func (s *Store) flush() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mutex.Lock()
			_ = s.sema.Acquire(context.Background(), 1)
			s.tx.CommitWith(s.committed)
			s.tx = s.db.NewTransaction(true)
			s.mutex.Unlock()

		case <-s.done:
			return
		}
	}
}
