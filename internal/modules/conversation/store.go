// README: Conversation context store backed by Redis with sliding TTL.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resbot/internal/types"
)

var ErrNotFound = errors.New("conversation context not found")

const keyPrefix = "conv:%s:%s"

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{redis: rdb, ttl: ttl}
}

func contextKey(companyID types.ID, phone string) string {
	return fmt.Sprintf(keyPrefix, string(companyID), phone)
}

// Get loads the context and slides its TTL forward.
func (s *Store) Get(ctx context.Context, companyID types.ID, phone string) (*Context, error) {
	key := contextKey(companyID, phone)
	val, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var c Context
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return nil, fmt.Errorf("decode context %s: %w", key, err)
	}
	// Sliding expiry: reading keeps an active conversation alive.
	_ = s.redis.Expire(ctx, key, s.ttl).Err()
	return &c, nil
}

// Put stores the context, resetting the TTL. Last writer wins per key; the
// orchestrator's keyed mutex provides single-writer semantics.
func (s *Store) Put(ctx context.Context, c *Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, contextKey(c.CompanyID, c.Phone), raw, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, companyID types.ID, phone string) error {
	return s.redis.Del(ctx, contextKey(companyID, phone)).Err()
}

// ListByCompany scans all live contexts for a tenant.
func (s *Store) ListByCompany(ctx context.Context, companyID types.ID) ([]*Context, error) {
	pattern := fmt.Sprintf(keyPrefix, string(companyID), "*")
	var out []*Context
	iter := s.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		val, err := s.redis.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var c Context
		if err := json.Unmarshal([]byte(val), &c); err != nil {
			continue
		}
		out = append(out, &c)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
