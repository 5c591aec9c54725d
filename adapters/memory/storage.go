package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"scorekeeper/core"
	"scorekeeper/engine"
)

// Store is a concurrent in-memory key-value Storage, the server-side analogue of
// browser localStorage. An optional byte quota reproduces its capacity limit.
type Store struct {
	mu    sync.RWMutex
	data  map[string]string
	size  int
	quota int
}

// Option configures a Store.
type Option func(*Store)

// WithQuota caps the total size (len(key)+len(value) over all entries) in bytes; 0 disables the cap.
func WithQuota(bytes int) Option { return func(s *Store) { s.quota = bytes } }

func New(opts ...Option) *Store {
	s := &Store{data: map[string]string{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.size + len(key) + len(value)
	if old, ok := s.data[key]; ok {
		next -= len(key) + len(old)
	}
	if s.quota > 0 && next > s.quota {
		return fmt.Errorf("set %s (%d bytes, quota %d): %w", key, next, s.quota, core.ErrStorageFull)
	}
	s.data[key] = value
	s.size = next
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.data, key)
	}
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Size reports the bytes currently used.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

var _ engine.Storage = (*Store)(nil)
