package repository

import (
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Create(cart *model.Cart) error
	FindByUserID(userID uint) (*model.Cart, error)
	FindByUserIDForUpdate(userID uint) (*model.Cart, error)
	Save(cart *model.Cart) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(cart *model.Cart) error {
	logger.Debug("Creating cart in database", map[string]interface{}{
		"user_id":     cart.UserID,
		"items_count": cart.ItemsCount,
	})

	if err := r.db.Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			"user_id": cart.UserID,
		})
		return err
	}

	logger.Debug("Cart created in database", map[string]interface{}{
		"cart_id": cart.ID,
		"user_id": cart.UserID,
	})
	return nil
}

func (r *cartRepository) FindByUserID(userID uint) (*model.Cart, error) {
	return r.findByUserID(r.db, userID)
}

func (r *cartRepository) FindByUserIDForUpdate(userID uint) (*model.Cart, error) {
	return r.findByUserID(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *cartRepository) findByUserID(query *gorm.DB, userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	if err := query.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find cart by user ID in database", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}

	logger.Debug("Cart found by user ID in database", map[string]interface{}{
		"cart_id":     cart.ID,
		"user_id":     userID,
		"items_count": cart.ItemsCount,
	})
	return &cart, nil
}

// Save overwrites the cart's lines and derived totals
func (r *cartRepository) Save(cart *model.Cart) error {
	logger.Debug("Updating cart in database", map[string]interface{}{
		"cart_id":     cart.ID,
		"user_id":     cart.UserID,
		"items_count": cart.ItemsCount,
		"grand_total": cart.GrandTotal,
	})

	err := r.db.Model(cart).
		Select("items_arr", "grand_total", "items_count", "updated_at").
		Updates(cart).Error
	if err != nil {
		logger.Error("Failed to update cart in database", err, map[string]interface{}{
			"cart_id": cart.ID,
			"user_id": cart.UserID,
		})
		return err
	}

	logger.Debug("Cart updated in database", map[string]interface{}{
		"cart_id": cart.ID,
		"user_id": cart.UserID,
	})
	return nil
}
