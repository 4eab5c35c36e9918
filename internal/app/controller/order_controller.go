package controller

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	apperrors "github.com/flexystyles/storefront-backend/internal/errors"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
	Note   string            `json:"note"`
}

func parseOrderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return 0, false
	}
	return uint(id), true
}

func respondOrderError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
	case errors.Is(err, service.ErrInvalidStatus):
		apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Unknown order status")
	case errors.Is(err, service.ErrInvalidTransition):
		apperrors.Conflict(c, apperrors.OrderInvalidTransition, err.Error())
	default:
		middleware.GetLoggerFromContext(c).Error("Order request failed", err, map[string]interface{}{
			"action": action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action)
	}
}

// GetOrders returns the signed-in user's orders, newest first
// GET /api/v1/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		respondOrderError(c, err, "load your orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns one order line owned by the user
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(userID, id)
	if err != nil {
		respondOrderError(c, err, "load the order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// GetOrdersByNumber returns every line of one checkout
// GET /api/v1/orders/number/:number
func (ctrl *OrderController) GetOrdersByNumber(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetOrdersByNumber(userID, c.Param("number"))
	if err != nil {
		respondOrderError(c, err, "load the order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_number": c.Param("number"),
		"orders":       orders,
	})
}

// ListOrders returns all orders, optionally filtered by status
// GET /api/v1/admin/orders?status=
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	var status *model.OrderStatus
	if raw := c.Query("status"); raw != "" {
		s := model.OrderStatus(raw)
		if !s.Valid() {
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Unknown order status")
			return
		}
		status = &s
	}

	orders, err := ctrl.orderService.ListOrders(status)
	if err != nil {
		respondOrderError(c, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// UpdateOrderStatus sets the status and appends a history entry
// PUT /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "status is required")
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(id, req.Status, req.Note)
	if err != nil {
		respondOrderError(c, err, "update the order")
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": id,
		"status":   order.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}

// AdvanceOrderStatus moves the order one step along its lifecycle
// POST /api/v1/admin/orders/:id/advance
func (ctrl *OrderController) AdvanceOrderStatus(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := ctrl.orderService.AdvanceStatus(id)
	if err != nil {
		respondOrderError(c, err, "update the order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// GetStatistics returns order counts and revenue
// GET /api/v1/admin/orders/stats
func (ctrl *OrderController) GetStatistics(c *gin.Context) {
	stats, err := ctrl.orderService.Statistics()
	if err != nil {
		respondOrderError(c, err, "load order statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statistics": stats,
	})
}

// ExportOrders streams every order as an XLSX workbook
// GET /api/v1/admin/orders/export
func (ctrl *OrderController) ExportOrders(c *gin.Context) {
	var buf bytes.Buffer
	if err := ctrl.orderService.ExportXLSX(&buf); err != nil {
		respondOrderError(c, err, "export orders")
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
