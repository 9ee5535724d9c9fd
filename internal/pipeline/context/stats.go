// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package context

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats records what each stage did.
type Stats struct {
	mu     sync.Mutex
	stages []*StageStats
}

func NewStats() *Stats {
	return &Stats{}
}

// Stage returns the counters of the named stage. Keys not yet known are
// added in the given order, which is the display order.
func (s *Stats) Stage(name string, keys ...string) *StageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st *StageStats
	for _, existing := range s.stages {
		if existing.Name == name {
			st = existing
		}
	}
	if st == nil {
		st = &StageStats{Name: name, counts: make(map[string]*atomic.Int64)}
		s.stages = append(s.stages, st)
	}
	for _, key := range keys {
		st.counter(key)
	}
	return st
}

// Stages returns the stages in the order they first reported.
func (s *Stats) Stages() []*StageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*StageStats(nil), s.stages...)
}

type StageStats struct {
	Name    string
	Elapsed time.Duration

	mu     sync.Mutex
	keys   []string
	counts map[string]*atomic.Int64
}

func (st *StageStats) counter(key string) *atomic.Int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, ok := st.counts[key]
	if !ok {
		c = new(atomic.Int64)
		st.counts[key] = c
		st.keys = append(st.keys, key)
	}
	return c
}

// Add increments a counter. It is safe to call from several goroutines.
func (st *StageStats) Add(key string, n int64) {
	st.counter(key).Add(n)
}

func (st *StageStats) Get(key string) int64 {
	return st.counter(key).Load()
}

// Each calls fn for every counter in display order.
func (st *StageStats) Each(fn func(key string, value int64)) {
	st.mu.Lock()
	keys := append([]string(nil), st.keys...)
	st.mu.Unlock()
	for _, key := range keys {
		fn(key, st.Get(key))
	}
}
