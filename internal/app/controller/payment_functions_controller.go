package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flexystyles/storefront-backend/internal/app/service"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// PaymentFunctionsController serves the two public gateway endpoints the
// storefront widget calls directly. Their bodies are a fixed contract, so
// they answer with plain gin.H instead of the apperrors envelope.
type PaymentFunctionsController struct {
	paymentService service.PaymentService
}

func NewPaymentFunctionsController(paymentService service.PaymentService) *PaymentFunctionsController {
	return &PaymentFunctionsController{
		paymentService: paymentService,
	}
}

// CreateOrderRequest carries the amount in minor units; a fractional amount
// fails binding.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID string          `json:"razorpay_order_id"`
	PaymentID      string          `json:"razorpay_payment_id"`
	Signature      string          `json:"razorpay_signature"`
	OrderNumber    string          `json:"orderNumber"`
	OrderData      json.RawMessage `json:"orderData,omitempty"`
}

// CreateOrder opens a gateway order and returns it unchanged
// POST /createOrder
func (ctrl *PaymentFunctionsController) CreateOrder(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
		return
	}

	log := middleware.GetLoggerFromContext(c)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	order, err := ctrl.paymentService.CreateGatewayOrder(c.Request.Context(), service.CreateGatewayOrderInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		log.Error("createOrder failed", err, map[string]interface{}{
			"amount": req.Amount,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create order",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, order)
}

// VerifyPayment checks the gateway callback signature
// POST /verifyPayment
func (ctrl *PaymentFunctionsController) VerifyPayment(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "Method Not Allowed"})
		return
	}

	log := middleware.GetLoggerFromContext(c)

	var req VerifyPaymentRequest
	// An unreadable body is treated like an empty one.
	_ = c.ShouldBindJSON(&req)

	err := ctrl.paymentService.VerifyPayment(c.Request.Context(), service.PaymentConfirmation{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
		OrderNumber:    req.OrderNumber,
		OrderData:      req.OrderData,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"message":   "Payment verified successfully",
			"paymentId": req.PaymentID,
			"orderId":   req.GatewayOrderID,
		})
	case errors.Is(err, service.ErrMissingPaymentParams):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required payment parameters"})
	case errors.Is(err, service.ErrInvalidPaymentSignature):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid payment signature"})
	default:
		log.Error("verifyPayment failed", err, map[string]interface{}{
			"payment_id": req.PaymentID,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Payment verification failed",
			"message": err.Error(),
		})
	}
}
