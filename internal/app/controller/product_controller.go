package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/internal/app/service"
	apperrors "github.com/flexystyles/storefront-backend/internal/errors"
	"github.com/flexystyles/storefront-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

const maxProductPageSize = 100

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

type ProductRequest struct {
	Name         string               `json:"name" binding:"required"`
	Category     string               `json:"category" binding:"required"`
	Price        float64              `json:"price" binding:"required,gt=0"`
	Description  string               `json:"description"`
	Images       []string             `json:"images"`
	Sizes        []string             `json:"sizes"`
	Colors       []string             `json:"colors"`
	Features     []string             `json:"features"`
	Details      model.ProductDetails `json:"details"`
	IsNew        bool                 `json:"is_new"`
	LimitedOffer bool                 `json:"limited_offer"`
	IsActive     *bool                `json:"is_active"`
	InStock      *bool                `json:"in_stock"`
	Stock        int                  `json:"stock" binding:"gte=0"`
	SKU          string               `json:"sku"`
}

func (r ProductRequest) toModel() *model.Product {
	p := &model.Product{
		Name:         r.Name,
		Category:     r.Category,
		Price:        r.Price,
		Description:  r.Description,
		Images:       r.Images,
		Sizes:        r.Sizes,
		Colors:       r.Colors,
		Features:     r.Features,
		Details:      r.Details,
		IsNew:        r.IsNew,
		LimitedOffer: r.LimitedOffer,
		IsActive:     true,
		InStock:      true,
		Stock:        r.Stock,
		SKU:          r.SKU,
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	if r.InStock != nil {
		p.InStock = *r.InStock
	}
	return p
}

func parseProductID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return 0, false
	}
	return uint(id), true
}

func listOptions(c *gin.Context, includeInactive bool) service.ProductListOptions {
	opts := service.ProductListOptions{
		Category:        c.Query("category"),
		NewArrivals:     c.Query("new") == "true",
		LimitedOffer:    c.Query("limited") == "true",
		Search:          c.Query("q"),
		IncludeInactive: includeInactive,
		SortAscending:   c.Query("order") == "asc",
	}
	switch repository.ProductSort(c.Query("sort")) {
	case repository.ProductSortPrice:
		opts.Sort = repository.ProductSortPrice
	case repository.ProductSortName:
		opts.Sort = repository.ProductSortName
	default:
		opts.Sort = repository.ProductSortCreatedAt
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		if limit > maxProductPageSize {
			limit = maxProductPageSize
		}
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}
	return opts
}

func (ctrl *ProductController) list(c *gin.Context, includeInactive bool) {
	products, err := ctrl.productService.ListProducts(listOptions(c, includeInactive))
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to fetch products", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "load products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetAllProducts lists active products
// GET /api/v1/products?category=&new=&limited=&q=&sort=&order=&limit=&offset=
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	ctrl.list(c, false)
}

// AdminListProducts lists every product, including inactive ones
// GET /api/v1/admin/products
func (ctrl *ProductController) AdminListProducts(c *gin.Context) {
	ctrl.list(c, true)
}

// GetCategories returns the categories of active products
// GET /api/v1/products/categories
func (ctrl *ProductController) GetCategories(c *gin.Context) {
	categories, err := ctrl.productService.ListCategories()
	if err != nil {
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "load categories")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
	})
}

// GetProductByID returns a product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "load the product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// CreateProduct creates a new product (Admin only)
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product creation request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "name, category and a positive price are required")
		return
	}

	product := req.toModel()
	if err := ctrl.productService.CreateProduct(product); err != nil {
		if errors.Is(err, service.ErrInvalidProduct) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
			return
		}
		log.Error("Failed to create product", err, map[string]interface{}{
			"name": req.Name,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create the product")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct updates an existing product (Admin only)
// PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseProductID(c)
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product update request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "name, category and a positive price are required")
		return
	}

	product, err := ctrl.productService.UpdateProduct(id, req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrInvalidProduct):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		default:
			log.Error("Failed to update product", err, map[string]interface{}{
				"product_id": id,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update the product")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct deletes a product (Admin only)
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete the product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}
