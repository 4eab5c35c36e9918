package service

import (
	"context"
	"errors"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/cart"
	"github.com/flexystyles/storefront-backend/pkg/logger"
)

var ErrMissingVisitor = errors.New("visitor id is required")

// CartSessions hands out the cart session of a visitor, loaded for userID.
type CartSessions interface {
	Session(ctx context.Context, visitorID string, userID *uint) *cart.Session
}

// CartService is the request-facing side of the cart: it resolves products
// into lines and routes every call to the visitor's session.
type CartService interface {
	GetCart(ctx context.Context, visitorID string, userID *uint) (cart.Snapshot, error)
	AddToCart(ctx context.Context, visitorID string, userID *uint, productID uint, size, color string) (cart.Snapshot, error)
	UpdateQuantity(ctx context.Context, visitorID string, userID *uint, key model.LineKey, quantity int) (cart.Snapshot, error)
	RemoveFromCart(ctx context.Context, visitorID string, userID *uint, key model.LineKey) (cart.Snapshot, error)
	ClearCart(ctx context.Context, visitorID string, userID *uint) (cart.Snapshot, error)
}

type cartService struct {
	sessions       CartSessions
	productService ProductService
}

func NewCartService(sessions CartSessions, productService ProductService) CartService {
	return &cartService{
		sessions:       sessions,
		productService: productService,
	}
}

func (s *cartService) session(ctx context.Context, visitorID string, userID *uint) (*cart.Session, error) {
	if visitorID == "" {
		return nil, ErrMissingVisitor
	}
	return s.sessions.Session(ctx, visitorID, userID), nil
}

func (s *cartService) GetCart(ctx context.Context, visitorID string, userID *uint) (cart.Snapshot, error) {
	sess, err := s.session(ctx, visitorID, userID)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (s *cartService) AddToCart(ctx context.Context, visitorID string, userID *uint, productID uint, size, color string) (cart.Snapshot, error) {
	sess, err := s.session(ctx, visitorID, userID)
	if err != nil {
		return cart.Snapshot{}, err
	}

	line, err := s.productService.ResolveLine(productID, size, color)
	if err != nil {
		logger.Warn("Cannot add product to cart", map[string]interface{}{
			"visitor_id": visitorID,
			"product_id": productID,
			"size":       size,
			"color":      color,
			"error":      err.Error(),
		})
		return cart.Snapshot{}, err
	}

	snap := sess.Add(line)
	logger.Debug("Added to cart", map[string]interface{}{
		"visitor_id": visitorID,
		"product_id": productID,
		"count":      snap.Count,
	})
	return snap, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, visitorID string, userID *uint, key model.LineKey, quantity int) (cart.Snapshot, error) {
	sess, err := s.session(ctx, visitorID, userID)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return sess.UpdateQuantity(key, quantity), nil
}

func (s *cartService) RemoveFromCart(ctx context.Context, visitorID string, userID *uint, key model.LineKey) (cart.Snapshot, error) {
	sess, err := s.session(ctx, visitorID, userID)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return sess.Remove(key), nil
}

func (s *cartService) ClearCart(ctx context.Context, visitorID string, userID *uint) (cart.Snapshot, error) {
	sess, err := s.session(ctx, visitorID, userID)
	if err != nil {
		return cart.Snapshot{}, err
	}
	snap := sess.Clear(ctx)
	logger.Info("Cart cleared", map[string]interface{}{
		"visitor_id": visitorID,
	})
	return snap, nil
}
