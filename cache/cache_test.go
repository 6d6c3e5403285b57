// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestStoreGetSet(t *testing.T) {
	s := New[string, int]("test", 0, StringHasher)
	if _, ok := s.Get("a"); ok {
		t.Fatal("empty store returned a value")
	}
	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 3)
	if v, ok := s.Get("a"); !ok || v != 3 {
		t.Errorf("Get(a) = %d, %v; want 3, true", v, ok)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if !s.Delete("b") || s.Delete("b") {
		t.Error("Delete did not report presence correctly")
	}
	st := s.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.HitRate != 0.5 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	var released []uint64
	// Capacity 16 gives one entry per shard; keys 0 and 16 share a shard
	// under the identity-like hash below.
	s := New[uint64, string]("lru", 16, func(k uint64) uint64 { return k },
		WithRelease(func(k uint64, _ string) { released = append(released, k) }))

	s.Set(0, "zero")
	s.Set(16, "sixteen")
	if _, ok := s.Get(0); ok {
		t.Error("oldest entry of a full shard not evicted")
	}
	if v, ok := s.Get(16); !ok || v != "sixteen" {
		t.Errorf("Get(16) = %q, %v", v, ok)
	}
	if len(released) != 1 || released[0] != 0 {
		t.Errorf("released = %v, want [0]", released)
	}
	if s.Stats().Evictions != 1 {
		t.Errorf("evictions = %d, want 1", s.Stats().Evictions)
	}
}

func TestStoreRecencyWithinShard(t *testing.T) {
	s := New[uint64, int]("lru", 32, func(k uint64) uint64 { return 0 })
	// All keys land in shard 0, which holds two entries.
	s.Set(1, 1)
	s.Set(2, 2)
	s.Get(1)
	s.Set(3, 3)
	if _, ok := s.Get(2); ok {
		t.Error("least recently used key survived")
	}
	if _, ok := s.Get(1); !ok {
		t.Error("recently read key evicted")
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	s := New[uuid.UUID, string]("objects", 0, UUIDHasher)
	id := uuid.New()
	calls := 0
	create := func() (string, error) {
		calls++
		return "made", nil
	}
	for range 3 {
		v, err := s.GetOrCreate(id, create)
		if err != nil || v != "made" {
			t.Fatalf("GetOrCreate = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := s.GetOrCreate(uuid.New(), func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if s.Len() != 1 {
		t.Errorf("failed create stored an entry: Len = %d", s.Len())
	}
}

func TestStoreSubsystemLifecycle(t *testing.T) {
	released := map[string]int{}
	s := New[string, int]("resource", 0, StringHasher,
		WithRelease(func(k string, v int) { released[k] = v }))
	if s.Name() != "resource" {
		t.Errorf("Name = %q", s.Name())
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		s.Set(fmt.Sprint(i), i)
	}
	s.Set("2", 20)
	if released["2"] != 2 {
		t.Errorf("replaced value not released: %v", released)
	}

	seen := 0
	s.Range(func(string, int) bool {
		seen++
		return seen < 3
	})
	if seen != 3 {
		t.Errorf("Range visited %d entries after stop, want 3", seen)
	}

	s.Deinit()
	if s.Len() != 0 || len(released) != 5 {
		t.Errorf("after Deinit: Len = %d, released = %v", s.Len(), released)
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := New[string, int]("concurrent", 64, StringHasher)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := fmt.Sprintf("%d-%d", g, i%40)
				s.Set(k, i)
				s.Get(k)
			}
		}()
	}
	wg.Wait()
	if n := s.Len(); n > s.Stats().Capacity {
		t.Errorf("Len = %d exceeds capacity %d", n, s.Stats().Capacity)
	}
}
