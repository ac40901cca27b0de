package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	stockSheetName   = "Stock"
	productSaveTries = 3
)

var stockSheetHeader = []interface{}{
	"SKU", "Name", "VariantID", "Variant", "SubvariantID", "Subvariant",
	"Price", "MRP", "Quantity", "MaxItemsPerOrder",
}

type ProductInput struct {
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            float64         `json:"price"`
	MRP              float64         `json:"mrp"`
	Quantity         int             `json:"quantity"`
	MaxItemsPerOrder int             `json:"maxItemsPerOrder"`
	Variants         []model.Variant `json:"variants"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*model.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error)
	UpdateProduct(ctx context.Context, sku string, input ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, sku string) error
	ResolveStock(ctx context.Context, sku, variantID, subvariantID string) (*model.ResolvedStock, error)
	ExportStockSheet(ctx context.Context, w io.Writer) error
	ImportStockSheet(ctx context.Context, r io.Reader) (int, error)
}

type productService struct {
	productRepo     repository.ProductRepository
	defaultMaxItems int
}

func NewProductService(productRepo repository.ProductRepository, defaultMaxItems int) ProductService {
	return &productService{
		productRepo:     productRepo,
		defaultMaxItems: defaultMaxItems,
	}
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error) {
	logger.Info("Creating product", map[string]interface{}{
		"sku":      input.SKU,
		"variants": len(input.Variants),
	})

	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, ErrSKURequired
	}

	if _, err := s.productRepo.FindBySKUIncludingDeleted(sku); err == nil {
		logger.Warn("Product creation failed: sku exists", map[string]interface{}{
			"sku": sku,
		})
		return nil, ErrSKUExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	product := &model.Product{SKU: sku}
	s.apply(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"sku": sku,
		})
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"sku":        product.SKU,
		"product_id": product.ID,
	})
	return product, nil
}

// apply copies input onto product. Variants and subvariants keep their ids
// when given and get fresh uuids otherwise.
func (s *productService) apply(product *model.Product, input ProductInput) {
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Price = input.Price
	product.MRP = input.MRP
	product.Quantity = input.Quantity
	product.MaxItemsPerOrder = input.MaxItemsPerOrder
	if product.MaxItemsPerOrder == 0 {
		product.MaxItemsPerOrder = s.defaultMaxItems
	}

	variants := make([]model.Variant, len(input.Variants))
	copy(variants, input.Variants)
	for i := range variants {
		if variants[i].ID == "" {
			variants[i].ID = uuid.NewString()
		}
		subs := make([]model.Subvariant, len(variants[i].Subvariants))
		copy(subs, variants[i].Subvariants)
		for j := range subs {
			if subs[j].ID == "" {
				subs[j].ID = uuid.NewString()
			}
		}
		variants[i].Subvariants = subs
	}
	product.Variants = variants
}

func validateProduct(p *model.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.MaxItemsPerOrder < 0 {
		return fmt.Errorf("%w: maxItemsPerOrder cannot be negative", ErrInvalidProduct)
	}
	if err := validatePricing(p.SKU, p.Price, p.MRP, p.Quantity); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, v := range p.Variants {
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate variant id %s", ErrInvalidProduct, v.ID)
		}
		seen[v.ID] = true
		if err := validatePricing(v.ID, v.Price, v.MRP, v.Quantity); err != nil {
			return err
		}
		for _, sv := range v.Subvariants {
			if seen[sv.ID] {
				return fmt.Errorf("%w: duplicate subvariant id %s", ErrInvalidProduct, sv.ID)
			}
			seen[sv.ID] = true
			if err := validatePricing(sv.ID, sv.Price, sv.MRP, sv.Quantity); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePricing(id string, price, mrp float64, quantity int) error {
	if price < 0 || mrp < 0 {
		return fmt.Errorf("%w: %s has a negative price", ErrInvalidProduct, id)
	}
	if price > mrp {
		return fmt.Errorf("%w: %s price %.2f > mrp %.2f", ErrPriceAboveMRP, id, price, mrp)
	}
	if quantity < 0 {
		return fmt.Errorf("%w: %s has negative quantity", ErrInvalidProduct, id)
	}
	return nil
}

func (s *productService) GetProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	product, err := s.productRepo.FindBySKU(sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"sku": sku,
		})
		return nil, err
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	return s.productRepo.FindWithFilter(filter)
}

// UpdateProduct replaces every field but the sku. A concurrent stock write
// forces a reload, and input is reapplied on the fresh document.
func (s *productService) UpdateProduct(ctx context.Context, sku string, input ProductInput) (*model.Product, error) {
	logger.Info("Updating product", map[string]interface{}{
		"sku": sku,
	})

	for attempt := 1; attempt <= productSaveTries; attempt++ {
		product, err := s.GetProductBySKU(ctx, sku)
		if err != nil {
			return nil, err
		}

		s.apply(product, input)
		if err := validateProduct(product); err != nil {
			return nil, err
		}

		err = s.productRepo.Save(product)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, repository.ErrStockConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: product %s kept changing", ErrTransactionFailed, sku)
}

func (s *productService) DeleteProduct(ctx context.Context, sku string) error {
	logger.Info("Deleting product", map[string]interface{}{
		"sku": sku,
	})

	for attempt := 1; attempt <= productSaveTries; attempt++ {
		product, err := s.GetProductBySKU(ctx, sku)
		if err != nil {
			return err
		}
		err = s.productRepo.SoftDelete(product)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrStockConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: product %s kept changing", ErrTransactionFailed, sku)
}

func (s *productService) ResolveStock(ctx context.Context, sku, variantID, subvariantID string) (*model.ResolvedStock, error) {
	product, err := s.GetProductBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	resolved, err := product.Resolve(variantID, subvariantID)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

// ExportStockSheet writes one row per purchasable node of every live
// product.
func (s *productService) ExportStockSheet(ctx context.Context, w io.Writer) error {
	products, _, err := s.productRepo.FindWithFilter(repository.ProductFilter{
		SortBy:        repository.ProductSortName,
		SortAscending: true,
	})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), stockSheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(stockSheetName, "A1", &stockSheetHeader); err != nil {
		return err
	}

	row := 2
	for _, p := range products {
		for _, leaf := range p.StockLeaves() {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{
				p.SKU, p.Name,
				leaf.VariantID, leaf.VariantTitle,
				leaf.SubvariantID, leaf.SubvariantTitle,
				leaf.Stock.Price, leaf.Stock.MRP, leaf.Stock.Available,
				p.MaxItemsPerOrder,
			}
			if err := f.SetSheetRow(stockSheetName, cell, &values); err != nil {
				return err
			}
			row++
		}
	}

	logger.Info("Stock sheet exported", map[string]interface{}{
		"products": len(products),
		"rows":     row - 2,
	})
	return f.Write(w)
}

// ImportStockSheet creates products from a sheet laid out like
// ExportStockSheet's. Rows are grouped by sku; skus that already exist are
// skipped. It returns the number of products created.
func (s *productService) ImportStockSheet(ctx context.Context, r io.Reader) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to open sheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return 0, fmt.Errorf("no sheets found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read rows: %w", err)
	}

	var order []string
	inputs := make(map[string]*ProductInput)
	for i, row := range rows {
		if i == 0 {
			continue
		}
		sku := cell(row, 0)
		if sku == "" {
			continue
		}

		price, err := parseFloatCell(row, 6)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		mrp, err := parseFloatCell(row, 7)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		quantity, err := parseIntCell(row, 8)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		maxItems, err := parseIntCell(row, 9)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}

		input, ok := inputs[sku]
		if !ok {
			input = &ProductInput{SKU: sku, Name: cell(row, 1), MaxItemsPerOrder: maxItems}
			inputs[sku] = input
			order = append(order, sku)
		}
		addSheetRow(input, cell(row, 2), cell(row, 3), cell(row, 4), cell(row, 5), price, mrp, quantity)
	}

	created := 0
	for _, sku := range order {
		if _, err := s.CreateProduct(ctx, *inputs[sku]); err != nil {
			if errors.Is(err, ErrSKUExists) {
				continue
			}
			return created, fmt.Errorf("sku %s: %w", sku, err)
		}
		created++
	}

	logger.Info("Stock sheet imported", map[string]interface{}{
		"skus":    len(order),
		"created": created,
	})
	return created, nil
}

func addSheetRow(input *ProductInput, variantID, variantTitle, subvariantID, subvariantTitle string, price, mrp float64, quantity int) {
	if variantID == "" && variantTitle == "" {
		input.Price, input.MRP, input.Quantity = price, mrp, quantity
		return
	}

	vi := -1
	for i, v := range input.Variants {
		if (variantID != "" && v.ID == variantID) || (variantID == "" && v.Title == variantTitle) {
			vi = i
			break
		}
	}
	if vi < 0 {
		input.Variants = append(input.Variants, model.Variant{ID: variantID, Title: variantTitle})
		vi = len(input.Variants) - 1
	}
	variant := &input.Variants[vi]

	if subvariantID == "" && subvariantTitle == "" {
		variant.Price, variant.MRP, variant.Quantity = price, mrp, quantity
		return
	}
	if len(variant.Subvariants) == 0 {
		variant.Price, variant.MRP = price, mrp
	}
	variant.Subvariants = append(variant.Subvariants, model.Subvariant{
		ID:       subvariantID,
		Title:    subvariantTitle,
		Price:    price,
		MRP:      mrp,
		Quantity: quantity,
	})
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloatCell(row []string, i int) (float64, error) {
	v := cell(row, i)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseFloat(v, 64)
}

func parseIntCell(row []string, i int) (int, error) {
	v := cell(row, i)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
