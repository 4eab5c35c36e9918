package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	"github.com/flexystyles/storefront-backend/internal/cart"
	"github.com/flexystyles/storefront-backend/internal/db"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/flexystyles/storefront-backend/internal/storage"
	"github.com/flexystyles/storefront-backend/pkg/payment/razorpay"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testGatewayKey    = "rzp_test_key"
	testGatewaySecret = "gw-secret"
)

// fakeGatewayServer answers POST /orders the way the payment gateway does.
type fakeGatewayServer struct {
	mu       sync.Mutex
	requests []razorpay.CreateOrderRequest
	fail     bool
}

func (g *fakeGatewayServer) handler(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"SERVER_ERROR","description":"gateway down"}}`))
		return
	}

	var req razorpay.CreateOrderRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	g.requests = append(g.requests, req)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(razorpay.Order{
		ID:        fmt.Sprintf("order_%d", len(g.requests)),
		Entity:    "order",
		Amount:    req.Amount,
		AmountDue: req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     req.Notes,
	})
}

func (g *fakeGatewayServer) setFail(fail bool) {
	g.mu.Lock()
	g.fail = fail
	g.mu.Unlock()
}

func (g *fakeGatewayServer) last() razorpay.CreateOrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

// storeEnv is the service graph the shop handlers run on: sqlite for the
// relational side, miniredis for guest carts and a fake payment gateway.
type storeEnv struct {
	db        *gorm.DB
	gateway   *fakeGatewayServer
	writer    *cart.Writer
	guests    *storage.GuestCartStore
	products  service.ProductService
	carts     service.CartService
	orders    service.OrderService
	payments  service.PaymentService
	checkout  service.CheckoutService
	addresses service.AddressService
}

func newStoreEnv(t *testing.T) *storeEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	gateway := &fakeGatewayServer{}
	server := httptest.NewServer(http.HandlerFunc(gateway.handler))
	t.Cleanup(server.Close)
	rzp, err := razorpay.NewClient(razorpay.Config{KeyID: testGatewayKey, KeySecret: testGatewaySecret, BaseURL: server.URL + "/"})
	require.NoError(t, err)

	env := &storeEnv{
		db:      testDB,
		gateway: gateway,
		writer:  cart.NewWriter(time.Second, 3),
		guests:  storage.NewGuestCartStore(client, time.Hour),
	}
	manager := cart.NewManager(cart.Backend{
		Local:    env.guests,
		Remote:   repository.NewCartRepository(testDB),
		Writer:   env.writer,
		Strategy: cart.MergeSum,
	}, nil)

	env.products = service.NewProductService(repository.NewProductRepository(testDB))
	env.carts = service.NewCartService(manager, env.products)
	env.orders = service.NewOrderService(repository.NewOrderRepository(testDB), manager)
	env.payments = service.NewPaymentService(rzp, repository.NewPaymentVerificationRepository(testDB))
	env.checkout = service.NewCheckoutService(env.carts, env.products, env.payments, env.orders, "INR", time.Minute)
	env.addresses = service.NewAddressService(repository.NewAddressRepository(testDB))

	gin.SetMode(gin.TestMode)
	return env
}

func (env *storeEnv) product(t *testing.T, name string, price float64, sizes []string) *model.Product {
	p := &model.Product{
		Name:     name,
		Category: "Shirts",
		Price:    price,
		Sizes:    sizes,
		Images:   []string{name + ".jpg"},
	}
	require.NoError(t, env.products.CreateProduct(p))
	return p
}

func testShipping() model.ShippingInfo {
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

// asUser stands in for the auth middleware.
func asUser(userID uint, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func doJSON(router http.Handler, method, path string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
