package controller

import (
	"errors"
	"net/http"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	apperrors "github.com/flexystyles/storefront-backend/internal/errors"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type CheckoutController struct {
	checkoutService service.CheckoutService
}

func NewCheckoutController(checkoutService service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
	}
}

type BuyNowRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type BeginCheckoutRequest struct {
	ShippingInfo model.ShippingInfo `json:"shipping_info"`
	BuyNow       *BuyNowRequest     `json:"buy_now"`
}

type DismissCheckoutRequest struct {
	OrderNumber string `json:"order_number"`
}

func respondCheckoutError(c *gin.Context, err error) {
	log := middleware.GetLoggerFromContext(c)

	var placement *service.PlacementError
	switch {
	case errors.As(err, &placement):
		log.Error("Order placement failed after payment", err, map[string]interface{}{
			"order_number": placement.OrderNumber,
			"payment_id":   placement.PaymentID,
			"written":      placement.Written,
			"failed":       placement.Failed,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        apperrors.OrderPlacementFailed,
			"message":      "Your payment went through but we could not record every item. Please contact support with your payment id",
			"order_number": placement.OrderNumber,
			"payment_id":   placement.PaymentID,
		})
	case errors.Is(err, service.ErrCheckoutInProgress):
		apperrors.Conflict(c, apperrors.CheckoutInProgress, "A checkout is already in progress")
	case errors.Is(err, service.ErrNoCheckout):
		apperrors.NotFound(c, apperrors.CheckoutNotFound, "No checkout in progress")
	case errors.Is(err, service.ErrCheckoutMismatch):
		apperrors.BadRequest(c, apperrors.CheckoutOrderMismatch, "This payment does not belong to your current checkout")
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrEmptyOrder):
		apperrors.BadRequest(c, apperrors.CheckoutEmpty, "Your cart is empty")
	case errors.Is(err, service.ErrInvalidShipping), errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
	case errors.Is(err, service.ErrMissingPaymentParams), errors.Is(err, service.ErrMissingPayment):
		apperrors.BadRequest(c, apperrors.ValidationRequired, "Missing required payment parameters")
	case errors.Is(err, service.ErrInvalidPaymentSignature):
		apperrors.BadRequest(c, apperrors.PaymentInvalidSignature, "Invalid payment signature")
	case errors.Is(err, service.ErrGatewayUnavailable):
		log.Error("Payment gateway failed", err, nil)
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.PaymentGatewayFailed, "Payment could not be started. Please try again")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrProductInactive):
		apperrors.BadRequest(c, apperrors.ProductInactive, "This product is currently unavailable")
	case errors.Is(err, service.ErrInvalidVariant):
		apperrors.BadRequest(c, apperrors.ProductInvalidVariant, "Please pick a size and color offered for this product")
	case errors.Is(err, service.ErrMissingVisitor):
		apperrors.BadRequest(c, apperrors.CartVisitorNeeded, "A visitor id is required")
	default:
		log.Error("Checkout failed", err, nil)
		apperrors.InternalError(c, "")
	}
}

// BeginCheckout prices the cart (or a buy-now item) and opens a gateway order
// POST /api/v1/checkout
func (ctrl *CheckoutController) BeginCheckout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req BeginCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid checkout request")
		return
	}

	input := service.BeginCheckoutInput{
		UserID:    userID,
		VisitorID: middleware.GetVisitorID(c),
		Shipping:  req.ShippingInfo,
	}
	if req.BuyNow != nil {
		input.BuyNow = &service.BuyNowItem{
			ProductID: req.BuyNow.ProductID,
			Size:      req.BuyNow.Size,
			Color:     req.BuyNow.Color,
			Quantity:  req.BuyNow.Quantity,
		}
	}

	intent, err := ctrl.checkoutService.Begin(c.Request.Context(), input)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"checkout": intent,
	})
}

// CompleteCheckout verifies the payment and places the orders
// POST /api/v1/checkout/complete
func (ctrl *CheckoutController) CompleteCheckout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req service.PaymentConfirmation
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid payment confirmation")
		return
	}

	result, err := ctrl.checkoutService.Complete(c.Request.Context(), userID, req)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order placed", map[string]interface{}{
		"user_id":      userID,
		"order_number": result.OrderNumber,
		"lines":        len(result.Orders),
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   result,
	})
}

// DismissCheckout ends a checkout whose payment window was closed
// POST /api/v1/checkout/dismiss
func (ctrl *CheckoutController) DismissCheckout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req DismissCheckoutRequest
	_ = c.ShouldBindJSON(&req)

	if err := ctrl.checkoutService.Dismiss(c.Request.Context(), userID, req.OrderNumber); err != nil {
		respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout dismissed",
	})
}

// CheckoutStatus reports whether the user has a checkout in flight
// GET /api/v1/checkout/status
func (ctrl *CheckoutController) CheckoutStatus(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processing": ctrl.checkoutService.IsProcessing(userID),
	})
}
