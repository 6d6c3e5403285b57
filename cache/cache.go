// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// shardCount is the number of independently locked shards.
const shardCount = 16

// Hasher maps a key to a shard.
type Hasher[K comparable] func(K) uint64

// StringHasher hashes string keys.
func StringHasher(s string) uint64 { return xxhash.Sum64String(s) }

// UUIDHasher hashes UUID keys.
func UUIDHasher(id uuid.UUID) uint64 { return xxhash.Sum64(id[:]) }

// Uint64Hasher spreads integer keys with a Fibonacci multiply.
func Uint64Hasher(v uint64) uint64 { return v * 0x9E3779B97F4A7C15 }

// Stats contains store statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the total capacity across all shards; 0 is unlimited.
	Capacity int
	Hits     uint64
	Misses   uint64
	// HitRate is Hits / (Hits + Misses), 0 before any lookup.
	HitRate   float64
	Evictions uint64
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*lruNode[K, V]
	lru     lruList[K, V]
}

// Store is a sharded LRU cache that also serves as an engine subsystem.
//
// Each of the 16 shards evicts its least recently used entry when it grows
// past its share of the capacity. Evicted, deleted and cleared values are
// passed to the release function, if any, outside of the shard lock.
//
// Store is safe for concurrent use and must not be copied.
type Store[K comparable, V any] struct {
	name     string
	hash     Hasher[K]
	perShard int
	release  func(K, V)

	shards [shardCount]shard[K, V]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// Option configures a Store.
type Option[K comparable, V any] func(*Store[K, V])

// WithRelease sets the function called for every value leaving the store.
func WithRelease[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(s *Store[K, V]) { s.release = fn }
}

// New creates a store called name holding about capacity entries.
// A capacity of 0 means unlimited.
func New[K comparable, V any](name string, capacity int, hash Hasher[K], opts ...Option[K, V]) *Store[K, V] {
	s := &Store[K, V]{name: name, hash: hash}
	if capacity > 0 {
		s.perShard = max(1, (capacity+shardCount-1)/shardCount)
	}
	for i := range s.shards {
		s.shards[i].entries = make(map[K]*lruNode[K, V])
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store[K, V]) shard(key K) *shard[K, V] {
	return &s.shards[s.hash(key)%shardCount]
}

// Name implements the engine subsystem contract.
func (s *Store[K, V]) Name() string { return s.name }

// Init implements the engine subsystem contract; it resets statistics.
func (s *Store[K, V]) Init() error {
	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
	slogger().Debug("cache: init", "name", s.name, "per_shard", s.perShard)
	return nil
}

// Deinit releases every entry.
func (s *Store[K, V]) Deinit() {
	n := s.Len()
	s.Clear()
	slogger().Info("cache: deinit", "name", s.name, "released", n)
}

// Get returns the value stored under key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	sh := s.shard(key)
	sh.mu.Lock()
	node, ok := sh.entries[key]
	if ok {
		sh.lru.moveToFront(node)
		v := node.value
		sh.mu.Unlock()
		s.hits.Add(1)
		return v, true
	}
	sh.mu.Unlock()
	s.misses.Add(1)
	var zero V
	return zero, false
}

// Set stores value under key, replacing and releasing any previous value.
func (s *Store[K, V]) Set(key K, value V) {
	sh := s.shard(key)
	sh.mu.Lock()
	var replaced *lruNode[K, V]
	if node, ok := sh.entries[key]; ok {
		replaced = &lruNode[K, V]{key: key, value: node.value}
		node.value = value
		sh.lru.moveToFront(node)
	} else {
		node := &lruNode[K, V]{key: key, value: value}
		sh.entries[key] = node
		sh.lru.pushFront(node)
	}
	evicted := s.evictLocked(sh)
	sh.mu.Unlock()

	if replaced != nil {
		s.releaseOne(replaced)
	}
	s.releaseAll(evicted)
}

// GetOrCreate returns the value under key, storing create() on a miss.
// create runs under the shard lock and must not use the store.
func (s *Store[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	if node, ok := sh.entries[key]; ok {
		sh.lru.moveToFront(node)
		v := node.value
		sh.mu.Unlock()
		s.hits.Add(1)
		return v, nil
	}
	s.misses.Add(1)
	v, err := create()
	if err != nil {
		sh.mu.Unlock()
		return v, err
	}
	node := &lruNode[K, V]{key: key, value: v}
	sh.entries[key] = node
	sh.lru.pushFront(node)
	evicted := s.evictLocked(sh)
	sh.mu.Unlock()

	s.releaseAll(evicted)
	return v, nil
}

// Delete removes and releases the entry under key.
func (s *Store[K, V]) Delete(key K) bool {
	sh := s.shard(key)
	sh.mu.Lock()
	node, ok := sh.entries[key]
	if ok {
		delete(sh.entries, key)
		sh.lru.unlink(node)
	}
	sh.mu.Unlock()
	if ok {
		s.releaseOne(node)
	}
	return ok
}

// Range calls fn for every entry until it returns false. fn must not use
// the store.
func (s *Store[K, V]) Range(fn func(K, V) bool) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for node := sh.lru.head; node != nil; node = node.next {
			if !fn(node.key, node.value) {
				sh.mu.Unlock()
				return
			}
		}
		sh.mu.Unlock()
	}
}

// Clear removes and releases every entry.
func (s *Store[K, V]) Clear() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		var nodes []*lruNode[K, V]
		for node := sh.lru.head; node != nil; node = node.next {
			nodes = append(nodes, node)
		}
		clear(sh.entries)
		sh.lru.clear()
		sh.mu.Unlock()
		s.releaseAll(nodes)
	}
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Stats returns store statistics.
func (s *Store[K, V]) Stats() Stats {
	st := Stats{
		Len:       s.Len(),
		Capacity:  s.perShard * shardCount,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// evictLocked trims sh to its capacity. Caller must hold sh.mu.
func (s *Store[K, V]) evictLocked(sh *shard[K, V]) []*lruNode[K, V] {
	if s.perShard == 0 {
		return nil
	}
	var evicted []*lruNode[K, V]
	for sh.lru.len > s.perShard {
		node := sh.lru.removeOldest()
		delete(sh.entries, node.key)
		evicted = append(evicted, node)
	}
	if len(evicted) > 0 {
		s.evictions.Add(uint64(len(evicted)))
	}
	return evicted
}

func (s *Store[K, V]) releaseOne(node *lruNode[K, V]) {
	if s.release != nil {
		s.release(node.key, node.value)
	}
}

func (s *Store[K, V]) releaseAll(nodes []*lruNode[K, V]) {
	for _, node := range nodes {
		s.releaseOne(node)
	}
}
