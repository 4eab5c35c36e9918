package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexystyles/storefront-backend/config"
	"github.com/flexystyles/storefront-backend/internal/app/controller"
	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	"github.com/flexystyles/storefront-backend/internal/cart"
	"github.com/flexystyles/storefront-backend/internal/db"
	"github.com/flexystyles/storefront-backend/internal/identity"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/flexystyles/storefront-backend/internal/router"
	"github.com/flexystyles/storefront-backend/internal/storage"
	ws "github.com/flexystyles/storefront-backend/internal/websocket"
	"github.com/flexystyles/storefront-backend/pkg/payment/razorpay"
	pkgredis "github.com/flexystyles/storefront-backend/pkg/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testJWTSecret     = "test-secret"
	testGatewaySecret = "gw-secret"
	adminEmail        = "admin@flexystyles.in"
	adminPassword     = "admin-password-1"
)

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
}

// gatewayStub answers POST /orders with sequential order ids.
func gatewayStub(t *testing.T) *httptest.Server {
	var (
		mu sync.Mutex
		n  int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req razorpay.CreateOrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		mu.Lock()
		n++
		id := fmt.Sprintf("order_%d", n)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(razorpay.Order{
			ID:       id,
			Entity:   "order",
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Status:   "created",
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	require.NoError(t, db.SeedAdmin(testDB, adminEmail, adminPassword))

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, Environment: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"https://flexystyles.in"}},
	}

	gateway, err := razorpay.NewClient(razorpay.Config{
		KeyID:     "rzp_test_key",
		KeySecret: testGatewaySecret,
		BaseURL:   gatewayStub(t).URL + "/",
	})
	require.NoError(t, err)

	// Cart engine
	hub := ws.NewHub()
	go hub.Run(ctx)

	writer := cart.NewWriter(time.Second, 3)
	go writer.Run(ctx)

	manager := cart.NewManager(cart.Backend{
		Local:    storage.NewGuestCartStore(redisClient, time.Hour),
		Remote:   repository.NewCartRepository(testDB),
		Writer:   writer,
		Strategy: cart.MergeSum,
	}, hub)

	bus := identity.NewBus()
	events, unsubscribe := bus.Subscribe(16)
	t.Cleanup(unsubscribe)
	go manager.Listen(ctx, events)

	// Services
	blacklist := pkgredis.NewTokenBlacklist(redisClient)
	authService := service.NewAuthService(
		repository.NewUserRepository(testDB),
		bus,
		blacklist,
		testJWTSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	productService := service.NewProductService(repository.NewProductRepository(testDB))
	cartService := service.NewCartService(manager, productService)
	orderService := service.NewOrderService(repository.NewOrderRepository(testDB), manager)
	paymentService := service.NewPaymentService(gateway, repository.NewPaymentVerificationRepository(testDB))
	checkoutService := service.NewCheckoutService(cartService, productService, paymentService, orderService, "INR", time.Minute)
	addressService := service.NewAddressService(repository.NewAddressRepository(testDB))

	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCartController(cartService, hub, cfg.CORS.AllowedOrigins),
		controller.NewCheckoutController(checkoutService),
		controller.NewOrderController(orderService),
		controller.NewAddressController(addressService),
		nil,
		middleware.NewAuthMiddleware(testJWTSecret, blacklist),
		cfg,
	)

	return &TestServer{
		Router: r.Setup(),
		DB:     testDB,
	}
}

func (s *TestServer) request(t *testing.T, method, path string, payload interface{}, token, visitorID string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if visitorID != "" {
		req.Header.Set(middleware.VisitorHeader, visitorID)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

type authResponse struct {
	User struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"tokens"`
}

type cartResponse struct {
	Cart struct {
		Items []struct {
			ProductID    uint   `json:"product_id"`
			SelectedSize string `json:"selected_size"`
			Quantity     int    `json:"quantity"`
		} `json:"items"`
		Authenticated bool `json:"authenticated"`
	} `json:"cart"`
}

func (s *TestServer) login(t *testing.T, email, password, visitorID string) authResponse {
	w := s.request(t, http.MethodPost, "/api/v1/auth/login", controller.LoginRequest{Email: email, Password: password}, "", visitorID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp authResponse
	decode(t, w, &resp)
	return resp
}

func shipping() model.ShippingInfo {
	return model.ShippingInfo{
		FullName: "Riya Sharma",
		Email:    "riya@example.com",
		Phone:    "+91 98765 43210",
		Address:  "12 MG Road",
		City:     "Bengaluru",
		State:    "Karnataka",
		ZipCode:  "560001",
		Country:  "India",
	}
}

func TestIntegration_GuestToPaidOrder(t *testing.T) {
	server := setupIntegrationTest(t)

	// Admin stocks the catalog
	admin := server.login(t, adminEmail, adminPassword, "")
	assert.Equal(t, string(model.RoleAdmin), admin.User.Role)

	w := server.request(t, http.MethodPost, "/api/v1/admin/products", controller.ProductRequest{
		Name:     "Linen Shirt",
		Category: "Shirts",
		Price:    40,
		Sizes:    []string{"M", "L"},
		Images:   []string{"linen.jpg"},
	}, admin.Tokens.AccessToken, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Product model.Product `json:"product"`
	}
	decode(t, w, &created)
	shirt := created.Product
	require.NotZero(t, shirt.ID)

	w = server.request(t, http.MethodGet, "/api/v1/products", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Linen Shirt")

	// A guest fills a cart
	const visitorID = "visitor-e2e"
	w = server.request(t, http.MethodPost, "/api/v1/cart/items", controller.AddToCartRequest{ProductID: shirt.ID, Size: "M"}, "", visitorID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = server.request(t, http.MethodPost, "/api/v1/cart/items", controller.AddToCartRequest{ProductID: shirt.ID, Size: "M"}, "", visitorID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// and signs up on the same device
	w = server.request(t, http.MethodPost, "/api/v1/auth/register", controller.RegisterRequest{
		Email:    "riya@example.com",
		Password: "password123",
		Name:     "Riya Sharma",
	}, "", visitorID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var member authResponse
	decode(t, w, &member)
	token := member.Tokens.AccessToken
	require.NotEmpty(t, token)

	w = server.request(t, http.MethodGet, "/api/v1/cart", nil, token, visitorID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var basket cartResponse
	decode(t, w, &basket)
	assert.True(t, basket.Cart.Authenticated)
	require.Len(t, basket.Cart.Items, 1)
	assert.Equal(t, 2, basket.Cart.Items[0].Quantity)

	// Checkout against the gateway
	w = server.request(t, http.MethodPost, "/api/v1/checkout", controller.BeginCheckoutRequest{ShippingInfo: shipping()}, token, visitorID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var begun struct {
		Checkout service.CheckoutIntent `json:"checkout"`
	}
	decode(t, w, &begun)
	intent := begun.Checkout
	assert.Equal(t, "order_1", intent.GatewayOrderID)
	assert.Equal(t, int64(9639), intent.Amount)

	w = server.request(t, http.MethodPost, "/api/v1/checkout/complete", service.PaymentConfirmation{
		GatewayOrderID: intent.GatewayOrderID,
		PaymentID:      "pay_e2e",
		Signature:      razorpay.Signature(testGatewaySecret, intent.GatewayOrderID, "pay_e2e"),
		OrderNumber:    intent.OrderNumber,
	}, token, visitorID)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order service.PlacementResult `json:"order"`
	}
	decode(t, w, &placed)
	assert.Equal(t, intent.OrderNumber, placed.Order.OrderNumber)
	require.Len(t, placed.Order.Orders, 1)
	assert.Equal(t, model.OrderStatusProcessing, placed.Order.Orders[0].Status)

	// The cart is empty after the order
	w = server.request(t, http.MethodGet, "/api/v1/cart", nil, token, visitorID)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &basket)
	assert.Empty(t, basket.Cart.Items)

	w = server.request(t, http.MethodGet, "/api/v1/orders", nil, token, visitorID)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Orders []model.Order `json:"orders"`
		Count  int           `json:"count"`
	}
	decode(t, w, &mine)
	require.Equal(t, 1, mine.Count)
	orderID := mine.Orders[0].ID

	// Admin delivers it; a delivered order is final
	w = server.request(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%d/advance", orderID), nil, admin.Tokens.AccessToken, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = server.request(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/orders/%d/status", orderID), controller.UpdateOrderStatusRequest{
		Status: model.OrderStatusCancelled,
	}, admin.Tokens.AccessToken, "")
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = server.request(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", orderID), nil, token, visitorID)
	require.Equal(t, http.StatusOK, w.Code)
	var one struct {
		Order model.Order `json:"order"`
	}
	decode(t, w, &one)
	assert.Equal(t, model.OrderStatusDelivered, one.Order.Status)

	var verifications int64
	require.NoError(t, server.DB.Table("payment_verifications").Count(&verifications).Error)
	assert.Equal(t, int64(1), verifications)
}

func TestIntegration_AccessControl(t *testing.T) {
	server := setupIntegrationTest(t)

	w := server.request(t, http.MethodPost, "/api/v1/auth/register", controller.RegisterRequest{
		Email:    "shopper@example.com",
		Password: "password123",
		Name:     "Shopper",
	}, "", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var shopper authResponse
	decode(t, w, &shopper)

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		wantCode int
	}{
		{"orders need a token", http.MethodGet, "/api/v1/orders", "", http.StatusUnauthorized},
		{"checkout needs a token", http.MethodPost, "/api/v1/checkout", "", http.StatusUnauthorized},
		{"addresses need a token", http.MethodGet, "/api/v1/addresses", "", http.StatusUnauthorized},
		{"admin needs the admin role", http.MethodGet, "/api/v1/admin/orders", shopper.Tokens.AccessToken, http.StatusForbidden},
		{"garbage token", http.MethodGet, "/api/v1/auth/me", "not-a-jwt", http.StatusUnauthorized},
		{"guests may read the cart", http.MethodGet, "/api/v1/cart", "", http.StatusOK},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := server.request(t, tt.method, tt.path, nil, tt.token, "visitor-ac")
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestIntegration_LogoutRevokesToken(t *testing.T) {
	server := setupIntegrationTest(t)

	w := server.request(t, http.MethodPost, "/api/v1/auth/register", controller.RegisterRequest{
		Email:    "leaver@example.com",
		Password: "password123",
		Name:     "Leaver",
	}, "", "visitor-out")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var member authResponse
	decode(t, w, &member)
	token := member.Tokens.AccessToken

	w = server.request(t, http.MethodGet, "/api/v1/auth/me", nil, token, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = server.request(t, http.MethodPost, "/api/v1/auth/logout", nil, token, "visitor-out")
	require.Equal(t, http.StatusOK, w.Code)

	w = server.request(t, http.MethodGet, "/api/v1/auth/me", nil, token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
