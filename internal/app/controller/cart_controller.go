package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	apperrors "github.com/flexystyles/storefront-backend/internal/errors"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	ws "github.com/flexystyles/storefront-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type CartController struct {
	cartService service.CartService
	hub         *ws.Hub
	upgrader    websocket.Upgrader
}

// NewCartController builds the cart handlers. hub may be nil, which disables
// the live cart stream.
func NewCartController(cartService service.CartService, hub *ws.Hub, allowedOrigins []string) *CartController {
	return &CartController{
		cartService: cartService,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

type AddToCartRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type UpdateCartRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Color     string `json:"color" binding:"required"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

func (r UpdateCartRequest) key() model.LineKey {
	return model.LineKey{ProductID: r.ProductID, Size: r.Size, Color: r.Color}
}

func (ctrl *CartController) respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMissingVisitor):
		apperrors.BadRequest(c, apperrors.CartVisitorNeeded, "A visitor id is required")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrProductInactive):
		apperrors.BadRequest(c, apperrors.ProductInactive, "This product is currently unavailable")
	case errors.Is(err, service.ErrInvalidVariant):
		apperrors.BadRequest(c, apperrors.ProductInvalidVariant, "Please pick a size and color offered for this product")
	default:
		middleware.GetLoggerFromContext(c).Error("Cart operation failed", err, nil)
		apperrors.InternalError(c, "")
	}
}

// GetCart returns the visitor's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	snap, err := ctrl.cartService.GetCart(c.Request.Context(), middleware.GetVisitorID(c), middleware.OptionalUserID(c))
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": snap,
	})
}

// AddToCart adds one unit of a product variant
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "product_id is required")
		return
	}

	snap, err := ctrl.cartService.AddToCart(c.Request.Context(), middleware.GetVisitorID(c), middleware.OptionalUserID(c), req.ProductID, req.Size, req.Color)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart",
		"cart":    snap,
	})
}

// UpdateCartItem sets the quantity of a line; zero or less removes it
// PUT /api/v1/cart/items
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "product_id, size, color and quantity are required")
		return
	}

	snap, err := ctrl.cartService.UpdateQuantity(c.Request.Context(), middleware.GetVisitorID(c), middleware.OptionalUserID(c), req.key(), *req.Quantity)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": snap,
	})
}

// RemoveFromCart drops a line identified by query parameters
// DELETE /api/v1/cart/items?product_id=&size=&color=
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Query("product_id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product id")
		return
	}
	key := model.LineKey{
		ProductID: uint(productID),
		Size:      c.DefaultQuery("size", model.NoVariant),
		Color:     c.DefaultQuery("color", model.NoVariant),
	}

	snap, err := ctrl.cartService.RemoveFromCart(c.Request.Context(), middleware.GetVisitorID(c), middleware.OptionalUserID(c), key)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": snap,
	})
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	snap, err := ctrl.cartService.ClearCart(c.Request.Context(), middleware.GetVisitorID(c), middleware.OptionalUserID(c))
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
		"cart":    snap,
	})
}

// Stream upgrades to a WebSocket that receives the signed-in user's cart on
// every change, starting with the current one
// GET /api/v1/cart/ws
func (ctrl *CartController) Stream(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if ctrl.hub == nil {
		apperrors.NotFound(c, apperrors.ResourceNotFound, "Live cart updates are disabled")
		return
	}
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	snap, err := ctrl.cartService.GetCart(c.Request.Context(), middleware.GetVisitorID(c), &userID)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID)
	if data, err := ws.EncodeCart(snap); err == nil {
		client.Send <- data
	}
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
