package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/flexystyles/storefront-backend/pkg/payment/razorpay"
	"github.com/flexystyles/storefront-backend/pkg/util"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrMissingPaymentParams    = errors.New("missing required payment parameters")
	ErrInvalidPaymentSignature = errors.New("invalid payment signature")
	ErrGatewayUnavailable      = errors.New("payment gateway request failed")
)

const defaultCurrency = "INR"

// PaymentGateway is the slice of the Razorpay client the services use.
type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	Sign(orderID, paymentID string) string
	VerifySignature(orderID, paymentID, signature string) bool
}

type CreateGatewayOrderInput struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// PaymentConfirmation is what the hosted checkout widget hands back.
type PaymentConfirmation struct {
	GatewayOrderID string          `json:"razorpay_order_id"`
	PaymentID      string          `json:"razorpay_payment_id"`
	Signature      string          `json:"razorpay_signature"`
	OrderNumber    string          `json:"orderNumber"`
	OrderData      json.RawMessage `json:"orderData,omitempty"`
}

type PaymentService interface {
	KeyID() string
	CreateGatewayOrder(ctx context.Context, input CreateGatewayOrderInput) (*razorpay.Order, error)
	VerifyPayment(ctx context.Context, confirmation PaymentConfirmation) error
}

type paymentService struct {
	gateway          PaymentGateway
	verificationRepo repository.PaymentVerificationRepository
	now              func() time.Time
}

func NewPaymentService(gateway PaymentGateway, verificationRepo repository.PaymentVerificationRepository) PaymentService {
	return &paymentService{
		gateway:          gateway,
		verificationRepo: verificationRepo,
		now:              time.Now,
	}
}

func (s *paymentService) KeyID() string {
	return s.gateway.KeyID()
}

// CreateGatewayOrder opens a gateway order for amount minor units. Currency
// defaults to INR and the receipt to receipt_<unix millis>.
func (s *paymentService) CreateGatewayOrder(ctx context.Context, input CreateGatewayOrderInput) (*razorpay.Order, error) {
	if input.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.Currency == "" {
		input.Currency = defaultCurrency
	}
	if input.Receipt == "" {
		input.Receipt = util.DefaultReceipt(s.now())
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   input.Amount,
		Currency: input.Currency,
		Receipt:  input.Receipt,
		Notes:    input.Notes,
	})
	if err != nil {
		logger.Error("Failed to create gateway order", err, map[string]interface{}{
			"amount":   input.Amount,
			"currency": input.Currency,
			"receipt":  input.Receipt,
		})
		return nil, err
	}

	logger.Info("Gateway order created", map[string]interface{}{
		"gateway_order_id": order.ID,
		"amount":           order.Amount,
		"receipt":          order.Receipt,
	})
	return order, nil
}

// VerifyPayment checks the callback signature and, when it matches, writes
// an audit row. A failed audit write is logged and does not fail the call.
func (s *paymentService) VerifyPayment(ctx context.Context, c PaymentConfirmation) error {
	if strings.TrimSpace(c.GatewayOrderID) == "" || strings.TrimSpace(c.PaymentID) == "" || strings.TrimSpace(c.Signature) == "" {
		return ErrMissingPaymentParams
	}

	if !s.gateway.VerifySignature(c.GatewayOrderID, c.PaymentID, c.Signature) {
		logger.Error("Signature verification failed", ErrInvalidPaymentSignature, map[string]interface{}{
			"expected":         s.gateway.Sign(c.GatewayOrderID, c.PaymentID),
			"received":         c.Signature,
			"gateway_order_id": c.GatewayOrderID,
			"payment_id":       c.PaymentID,
		})
		return ErrInvalidPaymentSignature
	}

	logger.Info("Payment verified", map[string]interface{}{
		"order_number":     c.OrderNumber,
		"payment_id":       c.PaymentID,
		"gateway_order_id": c.GatewayOrderID,
	})

	record := &model.PaymentVerification{
		GatewayOrderID: c.GatewayOrderID,
		PaymentID:      c.PaymentID,
		OrderNumber:    c.OrderNumber,
		Status:         "verified",
		VerifiedAt:     s.now(),
	}
	if len(c.OrderData) > 0 && string(c.OrderData) != "null" {
		record.OrderData = string(c.OrderData)
	}
	if s.verificationRepo != nil {
		if err := s.verificationRepo.Create(ctx, record); err != nil {
			logger.Warn("Payment verification not recorded", map[string]interface{}{
				"payment_id": c.PaymentID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}
