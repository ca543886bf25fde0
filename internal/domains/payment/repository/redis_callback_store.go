package repository

import (
	"context"
	"fmt"
	"time"

	"vnpay-broker/internal/domains/payment/model"
	"vnpay-broker/pkg/cache"
)

// RedisCallbackStore keeps callback targets in redis with a native TTL,
// so every API instance behind a load balancer sees the same entries.
type RedisCallbackStore struct {
	cache  cache.Cache
	prefix string
	now    func() time.Time
}

func NewRedisCallbackStore(c cache.Cache) *RedisCallbackStore {
	return &RedisCallbackStore{
		cache:  c,
		prefix: model.CallbackKeyPrefix,
		now:    time.Now,
	}
}

var _ CallbackStore = (*RedisCallbackStore)(nil)

func (s *RedisCallbackStore) key(txnRef string) string {
	return s.prefix + txnRef
}

// Create relies on SET NX so two instances cannot claim the same txn ref
func (s *RedisCallbackStore) Create(ctx context.Context, target *model.CallbackTarget, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = model.DefaultCallbackTTL
	}

	entry := *target
	now := s.now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.ExpiresAt = now.Add(ttl)

	created, err := s.cache.SetNX(ctx, s.key(entry.TxnRef), &entry, ttl)
	if err != nil {
		return fmt.Errorf("create callback target: %w", err)
	}
	if !created {
		return model.ErrCallbackTargetExists
	}
	return nil
}

func (s *RedisCallbackStore) Get(ctx context.Context, txnRef string) (*model.CallbackTarget, error) {
	var entry model.CallbackTarget
	found, err := s.cache.Get(ctx, s.key(txnRef), &entry)
	if err != nil {
		return nil, fmt.Errorf("get callback target: %w", err)
	}
	if !found {
		return nil, model.ErrCallbackTargetNotFound
	}
	return &entry, nil
}

func (s *RedisCallbackStore) Update(
	ctx context.Context,
	txnRef string,
	fn func(*model.CallbackTarget) error,
) (*model.CallbackTarget, error) {
	var (
		entry  model.CallbackTarget
		fnErr  error
		frozen model.CallbackTarget
	)

	found, err := s.cache.Update(ctx, s.key(txnRef), &entry, func() error {
		frozen = entry
		if fnErr = fn(&entry); fnErr != nil {
			return fnErr
		}
		entry.TxnRef = frozen.TxnRef
		entry.ExpiresAt = frozen.ExpiresAt
		return nil
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		return nil, fmt.Errorf("update callback target: %w", err)
	}
	if !found {
		return nil, model.ErrCallbackTargetNotFound
	}
	return &entry, nil
}
