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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/optakt/merklebit/node"
)

// MetricsBackend wraps a Backend and records a counter for every operation
// and a latency histogram for Commit, the way the teacher's MetricsWriter
// wraps a plain writer.
type MetricsBackend struct {
	backend Backend

	gets    prometheus.Counter
	hits    prometheus.Counter
	puts    prometheus.Counter
	deletes prometheus.Counter
	commits prometheus.Counter

	commitDuration prometheus.Histogram
}

// NewMetricsBackend wraps backend, registering its counters under the
// merklebit_store namespace.
func NewMetricsBackend(backend Backend) *MetricsBackend {
	getsOpts := prometheus.CounterOpts{
		Name: "merklebit_store_gets_total",
		Help: "number of GetNode calls",
	}
	gets := promauto.NewCounter(getsOpts)

	hitsOpts := prometheus.CounterOpts{
		Name: "merklebit_store_hits_total",
		Help: "number of GetNode calls that found a node",
	}
	hits := promauto.NewCounter(hitsOpts)

	putsOpts := prometheus.CounterOpts{
		Name: "merklebit_store_puts_total",
		Help: "number of PutNode calls",
	}
	puts := promauto.NewCounter(putsOpts)

	deletesOpts := prometheus.CounterOpts{
		Name: "merklebit_store_deletes_total",
		Help: "number of DeleteNode calls",
	}
	deletes := promauto.NewCounter(deletesOpts)

	commitsOpts := prometheus.CounterOpts{
		Name: "merklebit_store_commits_total",
		Help: "number of Commit calls",
	}
	commits := promauto.NewCounter(commitsOpts)

	commitDurationOpts := prometheus.HistogramOpts{
		Name: "merklebit_store_commit_duration_seconds",
		Help: "duration of Commit calls",
	}
	commitDuration := promauto.NewHistogram(commitDurationOpts)

	m := MetricsBackend{
		backend:        backend,
		gets:           gets,
		hits:           hits,
		puts:           puts,
		deletes:        deletes,
		commits:        commits,
		commitDuration: commitDuration,
	}

	return &m
}

// GetNode delegates to the wrapped backend, recording a hit only when the
// node is actually found.
func (m *MetricsBackend) GetNode(hash []byte) (*node.Node, bool, error) {
	m.gets.Inc()
	n, ok, err := m.backend.GetNode(hash)
	if err == nil && ok {
		m.hits.Inc()
	}
	return n, ok, err
}

// PutNode delegates to the wrapped backend.
func (m *MetricsBackend) PutNode(hash []byte, n *node.Node) error {
	m.puts.Inc()
	return m.backend.PutNode(hash, n)
}

// DeleteNode delegates to the wrapped backend.
func (m *MetricsBackend) DeleteNode(hash []byte) error {
	m.deletes.Inc()
	return m.backend.DeleteNode(hash)
}

// Commit delegates to the wrapped backend and observes its duration.
func (m *MetricsBackend) Commit() error {
	m.commits.Inc()
	start := time.Now()
	err := m.backend.Commit()
	m.commitDuration.Observe(time.Since(start).Seconds())
	return err
}

// Close delegates to the wrapped backend.
func (m *MetricsBackend) Close() error {
	return m.backend.Close()
}
