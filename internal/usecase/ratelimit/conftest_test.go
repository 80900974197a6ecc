package ratelimit

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/ragsearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// memStore is a fixed-window counter with a controllable clock.
type memStore struct {
	mu      sync.Mutex
	now     time.Time
	counts  map[string]int64
	expires map[string]time.Time
	keys    []string
	err     error
}

func newMemStore() *memStore {
	return &memStore{
		now:     time.Unix(1_700_000_000, 0),
		counts:  map[string]int64{},
		expires: map[string]time.Time{},
	}
}

func (s *memStore) IncrementWithTTL(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	if s.err != nil {
		return 0, 0, s.err
	}
	if exp, ok := s.expires[key]; ok && !s.now.Before(exp) {
		delete(s.counts, key)
		delete(s.expires, key)
	}
	s.counts[key]++
	if _, ok := s.expires[key]; !ok {
		s.expires[key] = s.now.Add(ttl)
	}
	return s.counts[key], s.expires[key].Sub(s.now), nil
}

func (s *memStore) advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
}
