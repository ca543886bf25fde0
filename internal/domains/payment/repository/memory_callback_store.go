package repository

import (
	"context"
	"sync"
	"time"

	"vnpay-broker/internal/domains/payment/model"
)

// MemoryCallbackStore is a bounded in-process CallbackStore. Expiry is
// checked lazily on lookup and on insert when the store is full.
type MemoryCallbackStore struct {
	mu         sync.Mutex
	items      map[string]*model.CallbackTarget
	maxEntries int
	now        func() time.Time
}

func NewMemoryCallbackStore(maxEntries int) *MemoryCallbackStore {
	if maxEntries <= 0 {
		maxEntries = model.DefaultMaxCallbacks
	}
	return &MemoryCallbackStore{
		items:      make(map[string]*model.CallbackTarget),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

var _ CallbackStore = (*MemoryCallbackStore)(nil)

func (s *MemoryCallbackStore) Create(ctx context.Context, target *model.CallbackTarget, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = model.DefaultCallbackTTL
	}
	now := s.now()

	entry := *target
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.ExpiresAt = now.Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[entry.TxnRef]; ok {
		if !existing.IsExpired(now) {
			return model.ErrCallbackTargetExists
		}
		delete(s.items, entry.TxnRef)
	}
	if len(s.items) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.items[entry.TxnRef] = &entry
	return nil
}

func (s *MemoryCallbackStore) Get(ctx context.Context, txnRef string) (*model.CallbackTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.liveLocked(txnRef)
	if err != nil {
		return nil, err
	}

	out := *entry
	return &out, nil
}

func (s *MemoryCallbackStore) Update(
	ctx context.Context,
	txnRef string,
	fn func(*model.CallbackTarget) error,
) (*model.CallbackTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.liveLocked(txnRef)
	if err != nil {
		return nil, err
	}

	updated := *entry
	if err := fn(&updated); err != nil {
		return nil, err
	}
	updated.TxnRef = entry.TxnRef
	updated.ExpiresAt = entry.ExpiresAt
	s.items[txnRef] = &updated

	out := updated
	return &out, nil
}

// liveLocked returns the stored entry, dropping it if it has expired.
func (s *MemoryCallbackStore) liveLocked(txnRef string) (*model.CallbackTarget, error) {
	entry, ok := s.items[txnRef]
	if !ok {
		return nil, model.ErrCallbackTargetNotFound
	}
	if entry.IsExpired(s.now()) {
		delete(s.items, txnRef)
		return nil, model.ErrCallbackTargetNotFound
	}
	return entry, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryCallbackStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// PurgeExpired removes every expired entry and reports how many went.
func (s *MemoryCallbackStore) PurgeExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.items {
		if entry.IsExpired(now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// evictLocked drops expired entries; if none expired, the oldest one goes.
func (s *MemoryCallbackStore) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	removed := 0
	for key, entry := range s.items {
		if entry.IsExpired(now) {
			delete(s.items, key)
			removed++
			continue
		}
		if oldestKey == "" || entry.CreatedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.CreatedAt
		}
	}
	if removed == 0 && oldestKey != "" {
		delete(s.items, oldestKey)
	}
}
