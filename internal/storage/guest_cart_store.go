package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// GuestCartStore keeps anonymous carts in Redis. Every save pushes the TTL
// forward, so a guest cart lives as long as the visitor keeps using it.
type GuestCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestCartStore(client *redis.Client, ttl time.Duration) *GuestCartStore {
	return &GuestCartStore{client: client, ttl: ttl}
}

func guestCartKey(visitorID string) string {
	return fmt.Sprintf("guestcart:%s", visitorID)
}

func (s *GuestCartStore) Get(ctx context.Context, visitorID string) ([]model.CartLineItem, error) {
	data, err := s.client.Get(ctx, guestCartKey(visitorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get guest cart failed: %w", err)
	}

	var items []model.CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		// a corrupt slot is treated as empty so the visitor can keep shopping
		logger.Warn("Discarding unreadable guest cart", map[string]interface{}{
			"visitor_id": visitorID,
			"error":      err.Error(),
		})
		return nil, nil
	}
	return items, nil
}

func (s *GuestCartStore) Save(ctx context.Context, visitorID string, items []model.CartLineItem) error {
	if len(items) == 0 {
		return s.Clear(ctx, visitorID)
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal guest cart failed: %w", err)
	}
	if err := s.client.Set(ctx, guestCartKey(visitorID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set guest cart failed: %w", err)
	}
	return nil
}

func (s *GuestCartStore) Clear(ctx context.Context, visitorID string) error {
	if err := s.client.Del(ctx, guestCartKey(visitorID)).Err(); err != nil {
		return fmt.Errorf("redis delete guest cart failed: %w", err)
	}
	return nil
}
