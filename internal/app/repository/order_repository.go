package repository

import (
	"errors"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderFilter struct {
	UserID *uint
	Status model.OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByIDForUpdate(id uint) (*model.Order, error)
	FindWithFilter(filter OrderFilter) ([]model.Order, int64, error)
	FindStale(status model.OrderStatus, createdBefore time.Time, limit int) ([]model.Order, error)
	UpdateStatus(order *model.Order) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":     order.UserID,
		"grand_total": order.GrandTotal,
		"items_count": order.ItemsCount,
		"status":      order.Status,
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id": order.UserID,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	return r.findByID(r.db, id)
}

func (r *orderRepository) FindByIDForUpdate(id uint) (*model.Order, error) {
	return r.findByID(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *orderRepository) findByID(query *gorm.DB, id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := query.First(&order, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})
	return &order, nil
}

func (r *orderRepository) FindWithFilter(filter OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Finding orders with filter", map[string]interface{}{
		"user_id": filter.UserID,
		"status":  filter.Status,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	query := r.db.Model(&model.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders with filter", err)
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders with filter", err)
		return nil, 0, err
	}

	logger.Debug("Orders found with filter", map[string]interface{}{
		"count": len(orders),
		"total": total,
	})
	return orders, total, nil
}

// FindStale returns orders still in status that were created before the cutoff
func (r *orderRepository) FindStale(status model.OrderStatus, createdBefore time.Time, limit int) ([]model.Order, error) {
	logger.Debug("Finding stale orders in database", map[string]interface{}{
		"status":         status,
		"created_before": createdBefore,
	})

	query := r.db.Where("status = ? AND created_at < ?", status, createdBefore).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find stale orders in database", err, map[string]interface{}{
			"status": status,
		})
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(order *model.Order) error {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})

	err := r.db.Model(order).
		Select("status", "remark", "updated_at").
		Updates(order).Error
	if err != nil {
		logger.Error("Failed to update order status in database", err, map[string]interface{}{
			"order_id": order.ID,
			"status":   order.Status,
		})
		return err
	}

	logger.Debug("Order status updated in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	return nil
}
