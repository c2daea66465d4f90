package transfer

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long an idle browsing session keeps its slots.
const DefaultTTL = 30 * time.Minute

// SlotStore holds serialized values per browsing-session scope.
type SlotStore interface {
	Get(ctx context.Context, scope, key string) ([]byte, bool, error)
	Set(ctx context.Context, scope, key string, value []byte) error
	Delete(ctx context.Context, scope, key string) error
	Clear(ctx context.Context, scope string) error
}

// MemoryStore is a process-wide SlotStore. A scope expires after ttl without access,
// which models the browsing session ending. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	scopes map[string]*scopeEntry
}

type scopeEntry struct {
	values   map[string][]byte
	lastSeen time.Time
}

// NewMemoryStore constructs a MemoryStore. A nil now uses time.Now; ttl <= 0 uses DefaultTTL.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		ttl:    ttl,
		now:    now,
		scopes: make(map[string]*scopeEntry),
	}
}

// Get returns a copy of the stored value and refreshes the scope.
func (s *MemoryStore) Get(ctx context.Context, scope, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(scope)
	if entry == nil {
		return nil, false, nil
	}
	val, ok := entry.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

// Set replaces the value under key.
func (s *MemoryStore) Set(ctx context.Context, scope, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(scope)
	if entry == nil {
		entry = &scopeEntry{values: make(map[string][]byte), lastSeen: s.now()}
		s.scopes[scope] = entry
	}
	entry.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes one key.
func (s *MemoryStore) Delete(ctx context.Context, scope, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry := s.live(scope); entry != nil {
		delete(entry.values, key)
	}
	return nil
}

// Clear drops every value of a scope.
func (s *MemoryStore) Clear(ctx context.Context, scope string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope)
	return nil
}

// Sweep removes expired scopes and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	dropped := 0
	for scope, entry := range s.scopes {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.scopes, scope)
			dropped++
		}
	}
	return dropped
}

// live returns the scope if it has not expired, refreshing its last access. Caller holds mu.
func (s *MemoryStore) live(scope string) *scopeEntry {
	entry, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	now := s.now()
	if now.Sub(entry.lastSeen) > s.ttl {
		delete(s.scopes, scope)
		return nil
	}
	entry.lastSeen = now
	return entry
}

var _ SlotStore = (*MemoryStore)(nil)
