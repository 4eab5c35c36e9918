package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/flexystyles/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("no items to order")
	ErrInvalidOrderLine  = errors.New("order line needs a product and a positive quantity")
	ErrInvalidShipping   = errors.New("shipping information is incomplete")
	ErrMissingPayment    = errors.New("payment id is required")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("order status cannot move backwards")
	ErrPlacementFailed   = errors.New("order placement failed")
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

var (
	freeShippingAbove = decimal.NewFromInt(100)
	flatShipping      = decimal.RequireFromString("9.99")
	taxRate           = decimal.RequireFromString("0.08")
)

const defaultFanOut = 8

// Totals are computed once per checkout and copied onto every order line.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	ShippingCost float64 `json:"shipping_cost"`
	Tax          float64 `json:"tax"`
	Total        float64 `json:"total"`
}

// ComputeTotals prices a checkout: free shipping above 100, 8% tax.
func ComputeTotals(items []model.CartLineItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	shipping := flatShipping
	if subtotal.GreaterThan(freeShippingAbove) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(taxRate).Round(2)
	grand := subtotal.Add(shipping).Add(tax).Round(2)

	return Totals{
		Subtotal:     subtotal.Round(2).InexactFloat64(),
		ShippingCost: shipping.InexactFloat64(),
		Tax:          tax.InexactFloat64(),
		Total:        grand.InexactFloat64(),
	}
}

// GatewayAmount converts a grand total to minor units.
func GatewayAmount(total float64) int64 {
	return decimal.NewFromFloat(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ValidateShipping checks that every shipping field is filled in and the
// email looks like local@domain.tld.
func ValidateShipping(info model.ShippingInfo) error {
	fields := []struct {
		name  string
		value string
	}{
		{"full_name", info.FullName},
		{"email", info.Email},
		{"phone", info.Phone},
		{"address", info.Address},
		{"city", info.City},
		{"state", info.State},
		{"zip_code", info.ZipCode},
		{"country", info.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidShipping, f.name)
		}
	}
	if !emailPattern.MatchString(info.Email) {
		return fmt.Errorf("%w: email is invalid", ErrInvalidShipping)
	}
	return nil
}

// PlaceOrderInput is a paid checkout waiting to be written.
type PlaceOrderInput struct {
	UserID         uint
	Items          []model.CartLineItem
	Shipping       model.ShippingInfo
	PaymentID      string
	GatewayOrderID string
	CartCheckout   bool
	OrderNumber    string
}

type PlacementResult struct {
	OrderNumber string        `json:"order_number"`
	PaymentID   string        `json:"payment_id"`
	Totals      Totals        `json:"totals"`
	Orders      []model.Order `json:"orders"`
	Created     int           `json:"created"`
}

// PlacementError reports a fan-out where some lines could not be written.
// Lines already written are kept; the payment id is what support needs to
// reconcile the rest.
type PlacementError struct {
	OrderNumber string
	PaymentID   string
	Written     int
	Failed      int
	Err         error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("order %s: %d of %d lines failed (payment %s): %v",
		e.OrderNumber, e.Failed, e.Written+e.Failed, e.PaymentID, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

func (e *PlacementError) Is(target error) bool { return target == ErrPlacementFailed }

// CartClearer empties every cart session of a user.
type CartClearer interface {
	ClearUser(ctx context.Context, userID uint)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlacementResult, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrder(userID, orderID uint) (*model.Order, error)
	GetOrdersByNumber(userID uint, orderNumber string) ([]model.Order, error)
	ListOrders(status *model.OrderStatus) ([]model.Order, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus, note string) (*model.Order, error)
	AdvanceStatus(orderID uint) (*model.Order, error)
	Statistics() (*model.OrderStatistics, error)
	ExportXLSX(w io.Writer) error
}

type orderService struct {
	orderRepo   repository.OrderRepository
	carts       CartClearer
	concurrency int
	now         func() time.Time
}

func NewOrderService(orderRepo repository.OrderRepository, carts CartClearer) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		carts:       carts,
		concurrency: defaultFanOut,
		now:         time.Now,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlacementResult, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range input.Items {
		if item.ProductID == 0 || item.Quantity < 1 {
			return nil, ErrInvalidOrderLine
		}
	}
	if err := ValidateShipping(input.Shipping); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PaymentID) == "" {
		return nil, ErrMissingPayment
	}

	now := s.now()
	totals := ComputeTotals(input.Items)
	orderNumber := input.OrderNumber
	if orderNumber == "" {
		orderNumber = util.GenerateOrderNumber(now)
	}
	orderType := model.OrderTypeBuyNow
	if input.CartCheckout {
		orderType = model.OrderTypeCart
	}

	logger.Info("Placing order", map[string]interface{}{
		"user_id":      input.UserID,
		"order_number": orderNumber,
		"payment_id":   input.PaymentID,
		"lines":        len(input.Items),
		"total":        totals.Total,
		"order_type":   orderType,
	})

	orders := make([]model.Order, len(input.Items))
	for i, item := range input.Items {
		orders[i] = s.buildLine(input, item, i+1, orderNumber, orderType, totals, now)
	}

	var written, failed, created atomic.Int32
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i := range orders {
		order := &orders[i]
		g.Go(func() error {
			ok, err := s.orderRepo.CreateLine(ctx, order)
			if err != nil {
				failed.Add(1)
				return fmt.Errorf("line %d: %w", order.LineNo, err)
			}
			written.Add(1)
			if ok {
				created.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		perr := &PlacementError{
			OrderNumber: orderNumber,
			PaymentID:   input.PaymentID,
			Written:     int(written.Load()),
			Failed:      int(failed.Load()),
			Err:         err,
		}
		logger.Error("Order placement partially failed", err, map[string]interface{}{
			"user_id":      input.UserID,
			"order_number": orderNumber,
			"payment_id":   input.PaymentID,
			"written":      perr.Written,
			"failed":       perr.Failed,
		})
		return nil, perr
	}

	if input.CartCheckout && s.carts != nil {
		s.carts.ClearUser(ctx, input.UserID)
	}

	logger.Info("Order placed", map[string]interface{}{
		"user_id":      input.UserID,
		"order_number": orderNumber,
		"created":      created.Load(),
	})

	return &PlacementResult{
		OrderNumber: orderNumber,
		PaymentID:   input.PaymentID,
		Totals:      totals,
		Orders:      orders,
		Created:     int(created.Load()),
	}, nil
}

func (s *orderService) buildLine(input PlaceOrderInput, item model.CartLineItem, lineNo int, orderNumber string, orderType model.OrderType, totals Totals, now time.Time) model.Order {
	image := ""
	if len(item.Images) > 0 {
		image = item.Images[0]
	}
	paidAt := now

	return model.Order{
		OrderNumber:    orderNumber,
		LineNo:         lineNo,
		UserID:         input.UserID,
		CustomerName:   input.Shipping.FullName,
		CustomerEmail:  input.Shipping.Email,
		ProductID:      item.ProductID,
		ProductName:    item.Name,
		ProductImage:   image,
		Size:           orDefault(item.SelectedSize, model.NoVariant),
		Color:          orDefault(item.SelectedColor, model.NoVariant),
		Quantity:       item.Quantity,
		Price:          item.Price,
		LineTotal:      decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2).InexactFloat64(),
		Subtotal:       totals.Subtotal,
		ShippingCost:   totals.ShippingCost,
		Tax:            totals.Tax,
		TotalAmount:    totals.Total,
		Status:         model.OrderStatusProcessing,
		ShippingInfo:   input.Shipping,
		PaymentMethod:  model.PaymentMethodRazorpay,
		PaymentStatus:  model.PaymentStatusPaid,
		PaymentID:      input.PaymentID,
		GatewayOrderID: input.GatewayOrderID,
		PaidAt:         &paidAt,
		OrderType:      orderType,
		StatusHistory: []model.StatusEntry{{
			Status:    model.OrderStatusProcessing,
			Timestamp: now,
			Note:      "Payment received",
		}},
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// NextStatus is the status the admin "advance" action moves an order to.
// Pending jumps straight to Shipped.
func NextStatus(current model.OrderStatus) model.OrderStatus {
	switch current {
	case model.OrderStatusPending:
		return model.OrderStatusShipped
	case model.OrderStatusProcessing, model.OrderStatusShipped:
		return model.OrderStatusDelivered
	default:
		return current
	}
}

func statusRank(status model.OrderStatus) int {
	switch status {
	case model.OrderStatusPending:
		return 0
	case model.OrderStatusProcessing:
		return 1
	case model.OrderStatusShipped:
		return 2
	case model.OrderStatusDelivered:
		return 3
	default:
		return -1
	}
}

// CanTransition reports whether an order may move from one status to another.
// Re-applying the current status is allowed and changes nothing.
func CanTransition(from, to model.OrderStatus) bool {
	if from == to {
		return true
	}
	if from == model.OrderStatusDelivered || from == model.OrderStatusCancelled {
		return false
	}
	if to == model.OrderStatusCancelled {
		return from == model.OrderStatusPending || from == model.OrderStatusProcessing
	}
	return statusRank(to) > statusRank(from)
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (s *orderService) GetOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		logger.Warn("Order requested by another user", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrdersByNumber returns every line of one checkout owned by userID.
func (s *orderService) GetOrdersByNumber(userID uint, orderNumber string) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByOrderNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 || orders[0].UserID != userID {
		return nil, ErrOrderNotFound
	}
	return orders, nil
}

func (s *orderService) ListOrders(status *model.OrderStatus) ([]model.Order, error) {
	if status != nil && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.orderRepo.FindAll(status)
}

func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus, note string) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Order status updated to %s", status)
	}

	order, err := s.orderRepo.UpdateLocked(orderID, func(order *model.Order) error {
		if order.Status == status {
			return nil
		}
		if !CanTransition(order.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
		}
		order.Status = status
		order.StatusHistory = append(order.StatusHistory, model.StatusEntry{
			Status:    status,
			Timestamp: s.now(),
			Note:      note,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   order.Status,
	})
	return order, nil
}

func (s *orderService) AdvanceStatus(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return s.UpdateOrderStatus(orderID, NextStatus(order.Status), "")
}

func (s *orderService) Statistics() (*model.OrderStatistics, error) {
	return s.orderRepo.Statistics()
}

var exportHeader = []interface{}{
	"Order Number", "Line", "Date", "Customer", "Email", "Product", "Size", "Color",
	"Quantity", "Price", "Line Total", "Subtotal", "Shipping", "Tax", "Total",
	"Status", "Payment ID", "Order Type", "City", "Country",
}

// ExportXLSX writes every order line to a single "Orders" sheet.
func (s *orderService) ExportXLSX(w io.Writer) error {
	orders, err := s.orderRepo.FindAll(nil)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return err
	}

	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			o.OrderNumber, o.LineNo, o.CreatedAt.Format(time.RFC3339), o.CustomerName, o.CustomerEmail,
			o.ProductName, o.Size, o.Color, o.Quantity, o.Price, o.LineTotal, o.Subtotal,
			o.ShippingCost, o.Tax, o.TotalAmount, string(o.Status), o.PaymentID, string(o.OrderType),
			o.ShippingInfo.City, o.ShippingInfo.Country,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	logger.Info("Exported orders", map[string]interface{}{
		"rows": len(orders),
	})
	return f.Write(w)
}
