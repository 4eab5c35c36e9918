package cart

import (
	"context"

	"github.com/flexystyles/storefront-backend/internal/app/model"
)

// LocalStore is the anonymous visitor's slot. Get on an unknown visitor
// returns an empty cart, not an error.
type LocalStore interface {
	Get(ctx context.Context, visitorID string) ([]model.CartLineItem, error)
	Save(ctx context.Context, visitorID string, items []model.CartLineItem) error
	Clear(ctx context.Context, visitorID string) error
}

// RemoteStore is the per-user record. Save always replaces the whole list.
type RemoteStore interface {
	Get(ctx context.Context, userID uint) ([]model.CartLineItem, error)
	Save(ctx context.Context, userID uint, items []model.CartLineItem) error
	Clear(ctx context.Context, userID uint) error
}

// Notifier receives the cart of a signed-in user after every change.
type Notifier interface {
	PublishCart(userID uint, snapshot Snapshot)
}
