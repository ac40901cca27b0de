package repository

import (
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStockConflict means the product document changed between read and write.
var ErrStockConflict = errors.New("product was modified concurrently")

type ProductSort string

const (
	ProductSortCreatedAt ProductSort = "created_at"
	ProductSortPrice     ProductSort = "price"
	ProductSortName      ProductSort = "name"
)

type ProductFilter struct {
	Search         string
	IncludeDeleted bool
	SortBy         ProductSort
	SortAscending  bool
	Limit          int
	Offset         int
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindWithFilter(filter ProductFilter) ([]model.Product, int64, error)
	FindBySKU(sku string) (*model.Product, error)
	FindBySKUIncludingDeleted(sku string) (*model.Product, error)
	FindBySKUForUpdate(sku string) (*model.Product, error)
	Save(product *model.Product) error
	SoftDelete(product *model.Product) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"sku":  product.SKU,
		"name": product.Name,
	})

	if product.Version == 0 {
		product.Version = 1
	}
	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"sku": product.SKU,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
	})
	return nil
}

func (r *productRepository) FindWithFilter(filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"search":          filter.Search,
		"include_deleted": filter.IncludeDeleted,
		"sort_by":         filter.SortBy,
		"ascending":       filter.SortAscending,
		"limit":           filter.Limit,
		"offset":          filter.Offset,
	})

	query := r.db.Model(&model.Product{})
	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", filter.Search)
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(sku) LIKE LOWER(?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count products with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}
	switch filter.SortBy {
	case ProductSortPrice:
		query = query.Order("price " + direction)
	case ProductSortName:
		query = query.Order("name " + direction)
	default:
		query = query.Order("created_at " + direction)
	}
	query = query.Order("id ASC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err, map[string]interface{}{
			"search": filter.Search,
		})
		return nil, 0, err
	}

	logger.Debug("Products found with filter", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) FindBySKU(sku string) (*model.Product, error) {
	return r.findBySKU(r.db.Where("is_deleted = ?", false), sku)
}

func (r *productRepository) FindBySKUIncludingDeleted(sku string) (*model.Product, error) {
	return r.findBySKU(r.db, sku)
}

// FindBySKUForUpdate locks the product row for the rest of the transaction.
// Soft-deleted products are returned so that restocking still finds them.
func (r *productRepository) FindBySKUForUpdate(sku string) (*model.Product, error) {
	return r.findBySKU(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), sku)
}

func (r *productRepository) findBySKU(query *gorm.DB, sku string) (*model.Product, error) {
	logger.Debug("Finding product by SKU in database", map[string]interface{}{
		"sku": sku,
	})

	var product model.Product
	if err := query.Where("sku = ?", sku).First(&product).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find product by SKU in database", err, map[string]interface{}{
				"sku": sku,
			})
		}
		return nil, err
	}

	logger.Debug("Product found by SKU in database", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"version":    product.Version,
	})
	return &product, nil
}

// Save writes the whole product document if nobody else wrote it since it
// was read, and bumps its version. It returns ErrStockConflict otherwise.
func (r *productRepository) Save(product *model.Product) error {
	logger.Debug("Saving product document", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"version":    product.Version,
	})

	next := *product
	next.Version = product.Version + 1

	result := r.db.Model(&model.Product{ID: product.ID}).
		Where("version = ?", product.Version).
		Select("name", "description", "price", "mrp", "quantity", "max_items_per_order", "variants", "is_deleted", "version", "updated_at").
		Updates(&next)
	if result.Error != nil {
		logger.Error("Failed to save product document", result.Error, map[string]interface{}{
			"product_id": product.ID,
			"sku":        product.SKU,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		logger.Warn("Product version conflict", map[string]interface{}{
			"product_id": product.ID,
			"sku":        product.SKU,
			"version":    product.Version,
		})
		return ErrStockConflict
	}

	product.Version = next.Version
	product.UpdatedAt = next.UpdatedAt

	logger.Debug("Product document saved", map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"version":    product.Version,
	})
	return nil
}

func (r *productRepository) SoftDelete(product *model.Product) error {
	product.IsDeleted = true
	if err := r.Save(product); err != nil {
		product.IsDeleted = false
		return err
	}
	return nil
}
