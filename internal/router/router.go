package router

import (
	"github.com/flexystyles/storefront-backend/config"
	"github.com/flexystyles/storefront-backend/internal/app/controller"
	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	orderController    *controller.OrderController
	addressController  *controller.AddressController
	uploadController   *controller.UploadController
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	orderController *controller.OrderController,
	addressController *controller.AddressController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		checkoutController: checkoutController,
		orderController:    orderController,
		addressController:  addressController,
		uploadController:   uploadController,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORS(middleware.APICORSPolicy(r.config.CORS.AllowedOrigins)))
	router.Use(middleware.Visitor(r.config.Server.Environment == "production"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "FlexyStyles API is running",
		})
	})

	authenticated := r.authMiddleware.Authenticate()
	adminOnly := r.authMiddleware.RequireRole(string(model.RoleAdmin))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.RefreshToken)
			auth.POST("/logout", authenticated, r.authController.Logout)
			auth.GET("/me", authenticated, r.authController.GetMe)
			auth.PUT("/me", authenticated, r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.GetAllProducts)
			products.GET("/categories", r.productController.GetCategories)
			products.GET("/:id", r.productController.GetProductByID)
		}

		// guests shop under their visitor id; a token, when present, selects the account cart
		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.OptionalAuthenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items", r.cartController.UpdateCartItem)
			cart.DELETE("/items", r.cartController.RemoveFromCart)
			cart.GET("/ws", authenticated, r.cartController.Stream)
		}

		checkout := v1.Group("/checkout")
		checkout.Use(authenticated)
		{
			checkout.POST("", r.checkoutController.BeginCheckout)
			checkout.POST("/complete", r.checkoutController.CompleteCheckout)
			checkout.POST("/dismiss", r.checkoutController.DismissCheckout)
			checkout.GET("/status", r.checkoutController.CheckoutStatus)
		}

		orders := v1.Group("/orders")
		orders.Use(authenticated)
		{
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/number/:number", r.orderController.GetOrdersByNumber)
			orders.GET("/:id", r.orderController.GetOrderByID)
		}

		addresses := v1.Group("/addresses")
		addresses.Use(authenticated)
		{
			addresses.GET("", r.addressController.ListAddresses)
			addresses.POST("", r.addressController.CreateAddress)
			addresses.PUT("/:id", r.addressController.UpdateAddress)
			addresses.DELETE("/:id", r.addressController.DeleteAddress)
			addresses.PUT("/:id/default", r.addressController.SetDefaultAddress)
		}

		admin := v1.Group("/admin")
		admin.Use(authenticated, adminOnly)
		{
			admin.GET("/products", r.productController.AdminListProducts)
			admin.POST("/products", r.productController.CreateProduct)
			admin.PUT("/products/:id", r.productController.UpdateProduct)
			admin.DELETE("/products/:id", r.productController.DeleteProduct)

			admin.GET("/orders", r.orderController.ListOrders)
			admin.GET("/orders/stats", r.orderController.GetStatistics)
			admin.GET("/orders/export", r.orderController.ExportOrders)
			admin.PUT("/orders/:id/status", r.orderController.UpdateOrderStatus)
			admin.POST("/orders/:id/advance", r.orderController.AdvanceOrderStatus)

			if r.uploadController != nil {
				admin.POST("/uploads", r.uploadController.UploadImage)
				admin.POST("/uploads/presigned-url", r.uploadController.GeneratePresignedURL)
			}
		}
	}

	return router
}

// SetupFunctions builds the engine for the two public payment endpoints.
// They answer every method themselves so a wrong one gets the 405 body the
// storefront expects.
func SetupFunctions(cfg *config.Config, functions *controller.PaymentFunctionsController) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORS(middleware.FunctionsCORSPolicy(cfg.Functions.AllowedOrigins)))

	router.Any("/createOrder", functions.CreateOrder)
	router.Any("/verifyPayment", functions.VerifyPayment)

	return router
}
