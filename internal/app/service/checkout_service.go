package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/flexystyles/storefront-backend/pkg/util"
)

var (
	ErrCheckoutInProgress = errors.New("a checkout is already in progress")
	ErrNoCheckout         = errors.New("no checkout in progress")
	ErrCheckoutMismatch   = errors.New("payment does not belong to the current checkout")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidQuantity    = errors.New("quantity must not be negative")
)

// BuyNowItem checks out a single product without touching the cart.
type BuyNowItem struct {
	ProductID uint
	Size      string
	Color     string
	Quantity  int
}

type BeginCheckoutInput struct {
	UserID    uint
	VisitorID string
	Shipping  model.ShippingInfo
	BuyNow    *BuyNowItem
}

// CheckoutIntent is a priced checkout waiting for the payment widget.
type CheckoutIntent struct {
	OrderNumber    string               `json:"order_number"`
	GatewayOrderID string               `json:"gateway_order_id"`
	KeyID          string               `json:"key_id"`
	Amount         int64                `json:"amount"`
	Currency       string               `json:"currency"`
	Totals         Totals               `json:"totals"`
	Items          []model.CartLineItem `json:"items"`
	Shipping       model.ShippingInfo   `json:"shipping_info"`
	BuyNow         bool                 `json:"buy_now"`
	CreatedAt      time.Time            `json:"created_at"`

	completing bool
}

type CheckoutService interface {
	Begin(ctx context.Context, input BeginCheckoutInput) (*CheckoutIntent, error)
	Complete(ctx context.Context, userID uint, confirmation PaymentConfirmation) (*PlacementResult, error)
	Dismiss(ctx context.Context, userID uint, orderNumber string) error
	IsProcessing(userID uint) bool
	SweepStale(maxAge time.Duration) int
}

type checkoutService struct {
	mu       sync.Mutex
	inflight map[uint]*CheckoutIntent

	carts    CartService
	products ProductService
	payments PaymentService
	orders   OrderService
	currency string
	ttl      time.Duration
	now      func() time.Time
}

func NewCheckoutService(carts CartService, products ProductService, payments PaymentService, orders OrderService, currency string, ttl time.Duration) CheckoutService {
	if currency == "" {
		currency = defaultCurrency
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &checkoutService{
		inflight: make(map[uint]*CheckoutIntent),
		carts:    carts,
		products: products,
		payments: payments,
		orders:   orders,
		currency: currency,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Begin prices the checkout and opens a gateway order for it. Only one
// checkout per user may be in flight; an unfinished one older than the TTL
// is replaced.
func (s *checkoutService) Begin(ctx context.Context, input BeginCheckoutInput) (*CheckoutIntent, error) {
	if err := ValidateShipping(input.Shipping); err != nil {
		return nil, err
	}

	reservation := &CheckoutIntent{CreatedAt: s.now()}
	s.mu.Lock()
	if existing, ok := s.inflight[input.UserID]; ok && (existing.completing || s.now().Sub(existing.CreatedAt) < s.ttl) {
		s.mu.Unlock()
		logger.Warn("Checkout already in progress", map[string]interface{}{
			"user_id":      input.UserID,
			"order_number": existing.OrderNumber,
		})
		return nil, ErrCheckoutInProgress
	}
	s.inflight[input.UserID] = reservation
	s.mu.Unlock()

	intent, err := s.prepare(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[input.UserID] != reservation {
		return nil, ErrNoCheckout
	}
	if err != nil {
		delete(s.inflight, input.UserID)
		return nil, err
	}
	s.inflight[input.UserID] = intent

	logger.Info("Checkout started", map[string]interface{}{
		"user_id":          input.UserID,
		"order_number":     intent.OrderNumber,
		"gateway_order_id": intent.GatewayOrderID,
		"amount":           intent.Amount,
		"buy_now":          intent.BuyNow,
	})
	return intent, nil
}

func (s *checkoutService) prepare(ctx context.Context, input BeginCheckoutInput) (*CheckoutIntent, error) {
	var items []model.CartLineItem
	if input.BuyNow != nil {
		// zero means the default single unit
		if input.BuyNow.Quantity < 0 {
			return nil, ErrInvalidQuantity
		}
		line, err := s.products.ResolveLine(input.BuyNow.ProductID, input.BuyNow.Size, input.BuyNow.Color)
		if err != nil {
			return nil, err
		}
		if input.BuyNow.Quantity > 1 {
			line.Quantity = input.BuyNow.Quantity
		}
		items = []model.CartLineItem{line}
	} else {
		userID := input.UserID
		snap, err := s.carts.GetCart(ctx, input.VisitorID, &userID)
		if err != nil {
			return nil, err
		}
		items = snap.Items
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	totals := ComputeTotals(items)
	orderNumber := util.GenerateOrderNumber(now)
	amount := GatewayAmount(totals.Total)

	gatewayOrder, err := s.payments.CreateGatewayOrder(ctx, CreateGatewayOrderInput{
		Amount:   amount,
		Currency: s.currency,
		Receipt:  orderNumber,
		Notes:    map[string]string{"order_number": orderNumber},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	return &CheckoutIntent{
		OrderNumber:    orderNumber,
		GatewayOrderID: gatewayOrder.ID,
		KeyID:          s.payments.KeyID(),
		Amount:         amount,
		Currency:       s.currency,
		Totals:         totals,
		Items:          items,
		Shipping:       input.Shipping,
		BuyNow:         input.BuyNow != nil,
		CreatedAt:      now,
	}, nil
}

// Complete turns a paid checkout into orders. The signature is checked
// before anything is written, and the checkout is closed whatever the outcome.
func (s *checkoutService) Complete(ctx context.Context, userID uint, confirmation PaymentConfirmation) (*PlacementResult, error) {
	s.mu.Lock()
	intent, ok := s.inflight[userID]
	switch {
	case !ok || intent.GatewayOrderID == "":
		s.mu.Unlock()
		return nil, ErrNoCheckout
	case intent.completing:
		s.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	intent.completing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.inflight[userID] == intent {
			delete(s.inflight, userID)
		}
		s.mu.Unlock()
	}()

	if confirmation.OrderNumber == "" {
		confirmation.OrderNumber = intent.OrderNumber
	}
	if err := s.payments.VerifyPayment(ctx, confirmation); err != nil {
		return nil, err
	}
	if confirmation.GatewayOrderID != intent.GatewayOrderID || confirmation.OrderNumber != intent.OrderNumber {
		logger.Warn("Payment does not match checkout", map[string]interface{}{
			"user_id":          userID,
			"order_number":     intent.OrderNumber,
			"gateway_order_id": confirmation.GatewayOrderID,
			"payment_id":       confirmation.PaymentID,
		})
		return nil, ErrCheckoutMismatch
	}

	return s.orders.PlaceOrder(ctx, PlaceOrderInput{
		UserID:         userID,
		Items:          intent.Items,
		Shipping:       intent.Shipping,
		PaymentID:      confirmation.PaymentID,
		GatewayOrderID: confirmation.GatewayOrderID,
		CartCheckout:   !intent.BuyNow,
		OrderNumber:    intent.OrderNumber,
	})
}

// Dismiss closes the checkout after the payment widget was closed. Nothing
// is written and the cart is left alone.
func (s *checkoutService) Dismiss(ctx context.Context, userID uint, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.inflight[userID]
	if !ok {
		return ErrNoCheckout
	}
	if intent.completing {
		return ErrCheckoutInProgress
	}
	if orderNumber != "" && intent.OrderNumber != "" && orderNumber != intent.OrderNumber {
		return ErrCheckoutMismatch
	}
	delete(s.inflight, userID)

	logger.Info("Checkout dismissed", map[string]interface{}{
		"user_id":      userID,
		"order_number": intent.OrderNumber,
	})
	return nil
}

func (s *checkoutService) IsProcessing(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[userID]
	return ok
}

// SweepStale drops checkouts older than maxAge that are not being completed.
func (s *checkoutService) SweepStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	swept := 0
	for userID, intent := range s.inflight {
		if !intent.completing && intent.CreatedAt.Before(cutoff) {
			delete(s.inflight, userID)
			swept++
		}
	}
	if swept > 0 {
		logger.Info("Stale checkouts swept", map[string]interface{}{
			"count": swept,
		})
	}
	return swept
}
