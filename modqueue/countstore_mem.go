package modqueue

import (
	"context"
	"sync"
)

type MemCountStore struct {
	mu             sync.Mutex
	counts         map[string]int
	distinctCounts map[string]map[string]bool
}

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		counts:         make(map[string]int),
		distinctCounts: make(map[string]map[string]bool),
	}
}

func countBucket(name, val string) string {
	return name + "/" + val
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[countBucket(name, val)], nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[countBucket(name, val)]++
	return nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.distinctCounts[name]), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.distinctCounts[name]
	if !ok {
		m = make(map[string]bool)
		s.distinctCounts[name] = m
	}
	m[val] = true
	return nil
}
