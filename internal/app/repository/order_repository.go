package repository

import (
	"context"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	CreateLine(ctx context.Context, order *model.Order) (bool, error)
	FindByID(id uint) (*model.Order, error)
	FindByOrderNumber(orderNumber string) ([]model.Order, error)
	FindByUserID(userID uint) ([]model.Order, error)
	FindAll(status *model.OrderStatus) ([]model.Order, error)
	UpdateLocked(id uint, apply func(order *model.Order) error) (*model.Order, error)
	Statistics() (*model.OrderStatistics, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateLine inserts one order line. A line whose (order_number, line_no)
// already exists is left alone and reported as not created.
func (r *orderRepository) CreateLine(ctx context.Context, order *model.Order) (bool, error) {
	logger.Debug("Creating order line in database", map[string]interface{}{
		"order_number": order.OrderNumber,
		"line_no":      order.LineNo,
		"product_id":   order.ProductID,
	})

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_number"}, {Name: "line_no"}},
		DoNothing: true,
	}).Create(order)
	if result.Error != nil {
		logger.Error("Failed to create order line in database", result.Error, map[string]interface{}{
			"order_number": order.OrderNumber,
			"line_no":      order.LineNo,
		})
		return false, result.Error
	}

	created := result.RowsAffected > 0
	logger.Debug("Order line written", map[string]interface{}{
		"order_number": order.OrderNumber,
		"line_no":      order.LineNo,
		"created":      created,
	})
	return created, nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.db.First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByOrderNumber(orderNumber string) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.Where("order_number = ?", orderNumber).Order("line_no ASC").Find(&orders).Error
	if err != nil {
		logger.Error("Failed to find orders by number in database", err, map[string]interface{}{
			"order_number": orderNumber,
		})
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) FindByUserID(userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, order_number DESC, line_no ASC").
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

// FindAll lists every order line, newest first, optionally only those in status.
func (r *orderRepository) FindAll(status *model.OrderStatus) ([]model.Order, error) {
	query := r.db.Model(&model.Order{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var orders []model.Order
	if err := query.Order("created_at DESC, order_number DESC, line_no ASC").Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders in database", err, map[string]interface{}{
			"status": status,
		})
		return nil, err
	}
	return orders, nil
}

// UpdateLocked loads the order inside a transaction, lets apply change it
// and saves the result. An error from apply rolls back and is returned as is.
func (r *orderRepository) UpdateLocked(id uint, apply func(order *model.Order) error) (*model.Order, error) {
	logger.Debug("Updating order in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
			return err
		}
		if err := apply(&order); err != nil {
			return err
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		logger.Error("Failed to update order in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}

	logger.Debug("Order updated in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return &order, nil
}

// Statistics counts order lines per status. Revenue is the sum of line
// totals of lines that were not cancelled.
func (r *orderRepository) Statistics() (*model.OrderStatistics, error) {
	stats := &model.OrderStatistics{StatusCounts: make(map[model.OrderStatus]int64)}
	for _, status := range model.AllOrderStatuses {
		stats.StatusCounts[status] = 0
	}

	var rows []struct {
		Status  model.OrderStatus
		Count   int64
		Revenue float64
	}
	err := r.db.Model(&model.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(line_total), 0) AS revenue").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to aggregate order statistics", err)
		return nil, err
	}

	for _, row := range rows {
		stats.TotalOrders += row.Count
		stats.StatusCounts[row.Status] = row.Count
		if row.Status != model.OrderStatusCancelled {
			stats.TotalRevenue += row.Revenue
		}
	}

	logger.Debug("Order statistics aggregated", map[string]interface{}{
		"total_orders": stats.TotalOrders,
	})
	return stats, nil
}
