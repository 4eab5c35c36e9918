package service

import (
	"errors"
	"strings"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/flexystyles/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductInactive = errors.New("product is not available")
	ErrInvalidVariant  = errors.New("size or color not offered for this product")
	ErrInvalidProduct  = errors.New("name, category and a positive price are required")
)

type ProductListOptions struct {
	Category        string
	NewArrivals     bool
	LimitedOffer    bool
	Search          string
	IncludeInactive bool
	Sort            repository.ProductSort
	SortAscending   bool
	Limit           int
	Offset          int
}

type ProductService interface {
	ListProducts(opts ProductListOptions) ([]model.Product, error)
	GetProductByID(id uint) (*model.Product, error)
	ListCategories() ([]string, error)
	CreateProduct(product *model.Product) error
	UpdateProduct(id uint, changes *model.Product) (*model.Product, error)
	DeleteProduct(id uint) error
	ResolveLine(productID uint, size, color string) (model.CartLineItem, error)
}

type productService struct {
	productRepo repository.ProductRepository
	now         func() time.Time
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{
		productRepo: productRepo,
		now:         time.Now,
	}
}

func (s *productService) ListProducts(opts ProductListOptions) ([]model.Product, error) {
	products, err := s.productRepo.FindWithFilter(repository.ProductFilter{
		Category:        opts.Category,
		NewArrivals:     opts.NewArrivals,
		LimitedOffer:    opts.LimitedOffer,
		Search:          strings.TrimSpace(opts.Search),
		IncludeInactive: opts.IncludeInactive,
		SortBy:          opts.Sort,
		SortAscending:   opts.SortAscending,
		Limit:           opts.Limit,
		Offset:          opts.Offset,
	})
	if err != nil {
		logger.Error("Failed to list products", err, map[string]interface{}{
			"category": opts.Category,
			"search":   opts.Search,
		})
		return nil, err
	}
	return products, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) ListCategories() ([]string, error) {
	return s.productRepo.ListCategories()
}

// GenerateTags returns the lower-cased words of the name, the category and
// the colors, without duplicates, in that order.
func GenerateTags(name, category string, colors []string) []string {
	var candidates []string
	candidates = append(candidates, strings.Fields(strings.ToLower(name))...)
	if category != "" {
		candidates = append(candidates, strings.ToLower(category))
	}
	for _, c := range colors {
		candidates = append(candidates, strings.ToLower(c))
	}

	seen := make(map[string]bool, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, tag := range candidates {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

func normalize(p *model.Product) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.NameLower = strings.ToLower(p.Name)
	p.CategoryLower = strings.ToLower(p.Category)
	p.Tags = GenerateTags(p.Name, p.Category, p.Colors)
}

func validateProduct(p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Category) == "" || p.Price <= 0 {
		return ErrInvalidProduct
	}
	return nil
}

func (s *productService) CreateProduct(product *model.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}

	normalize(product)
	if product.SKU == "" {
		product.SKU = util.GenerateSKU(product.Name, s.now())
	}
	product.IsActive = true
	product.InStock = true

	if err := s.productRepo.Create(product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return nil
}

// UpdateProduct overwrites the editable fields of the product with changes.
func (s *productService) UpdateProduct(id uint, changes *model.Product) (*model.Product, error) {
	product, err := s.GetProductByID(id)
	if err != nil {
		return nil, err
	}
	if err := validateProduct(changes); err != nil {
		return nil, err
	}

	product.Name = changes.Name
	product.Category = changes.Category
	product.Price = changes.Price
	product.Description = changes.Description
	product.Images = changes.Images
	product.Sizes = changes.Sizes
	product.Colors = changes.Colors
	product.Features = changes.Features
	product.Details = changes.Details
	product.IsNew = changes.IsNew
	product.LimitedOffer = changes.LimitedOffer
	product.IsActive = changes.IsActive
	product.InStock = changes.InStock
	product.Stock = changes.Stock
	if changes.SKU != "" {
		product.SKU = changes.SKU
	}
	normalize(product)

	if err := s.productRepo.Update(product); err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": id,
	})
	return product, nil
}

func (s *productService) DeleteProduct(id uint) error {
	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func pickVariant(requested string, offered []string) (string, bool) {
	if len(offered) == 0 {
		return model.NoVariant, requested == "" || requested == model.NoVariant
	}
	if requested == "" {
		return offered[0], true
	}
	for _, v := range offered {
		if v == requested {
			return v, true
		}
	}
	return "", false
}

// ResolveLine builds a cart line for the product with the chosen size and
// color. An empty choice falls back to the first option, or "N/A" when the
// product has none. Name, price and images are copied from the product.
func (s *productService) ResolveLine(productID uint, size, color string) (model.CartLineItem, error) {
	product, err := s.GetProductByID(productID)
	if err != nil {
		return model.CartLineItem{}, err
	}
	if !product.IsActive || !product.InStock {
		return model.CartLineItem{}, ErrProductInactive
	}

	selectedSize, ok := pickVariant(size, product.Sizes)
	if !ok {
		return model.CartLineItem{}, ErrInvalidVariant
	}
	selectedColor, ok := pickVariant(color, product.Colors)
	if !ok {
		return model.CartLineItem{}, ErrInvalidVariant
	}

	return model.CartLineItem{
		ProductID:     product.ID,
		SelectedSize:  selectedSize,
		SelectedColor: selectedColor,
		Quantity:      1,
		Price:         product.Price,
		Name:          product.Name,
		Images:        append([]string(nil), product.Images...),
	}, nil
}
