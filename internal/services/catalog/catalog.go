package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop-system/internal/database/models"
)

const (
	DefaultPageSize   = 20
	SearchResultLimit = 10
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = errors.New("already exists")
	ErrProductInUse  = errors.New("product is referenced by invoices")
	ErrNegativeStock = errors.New("stock cannot go below zero")
)

type Service struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewService accepts a nil redis client, in which case nothing is cached.
func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{
		db:    db,
		redis: redisClient,
	}
}

// -- Categories --

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	category := models.Category{Name: name}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: category %q", ErrDuplicate, name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &category, nil
}

// DeleteCategory keeps the category's products and clears their category.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	var productIDs []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Pluck("id", &productIDs).Error; err != nil {
			return fmt.Errorf("failed to load category products: %w", err)
		}
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).
			UpdateColumn("category_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach products: %w", err)
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete category: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.InvalidateProducts(ctx, productIDs...)
	return nil
}

// -- Products --

type ProductInput struct {
	Name          string          `json:"name" binding:"required"`
	CategoryID    *int64          `json:"category_id"`
	SKU           *string         `json:"sku"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	StockQuantity int             `json:"stock_quantity"`
	ReorderLevel  *int            `json:"reorder_level"`
}

func (in ProductInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	case in.PurchasePrice.IsNegative() || in.SalePrice.IsNegative():
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidInput)
	case !models.IsMoney(in.PurchasePrice) || !models.IsMoney(in.SalePrice):
		return fmt.Errorf("%w: prices have more than %d decimal places", ErrInvalidInput, models.MoneyPlaces)
	case in.StockQuantity < 0:
		return fmt.Errorf("%w: stock quantity must not be negative", ErrInvalidInput)
	case in.ReorderLevel != nil && *in.ReorderLevel < 0:
		return fmt.Errorf("%w: reorder level must not be negative", ErrInvalidInput)
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.CategoryID = in.CategoryID
	p.SKU = nil
	if in.SKU != nil && strings.TrimSpace(*in.SKU) != "" {
		sku := strings.TrimSpace(*in.SKU)
		p.SKU = &sku
	}
	p.PurchasePrice = in.PurchasePrice
	p.SalePrice = in.SalePrice
	if in.ReorderLevel != nil {
		p.ReorderLevel = *in.ReorderLevel
	}
}

type ListProductsQuery struct {
	Search     string `form:"q"`
	CategoryID *int64 `form:"category_id"`
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
}

func (s *Service) ListProducts(ctx context.Context, q ListProductsQuery) ([]models.Product, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := containsPattern(term)
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if q.CategoryID != nil {
		query = query.Where("category_id = ?", *q.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	if err := query.Preload("Category").
		Order("name, id").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if cached, ok := s.cachedProduct(ctx, id); ok {
		stock, err := s.liveStock(ctx, id)
		if err != nil {
			return nil, err
		}
		if n, found := stock[id]; found {
			cached.StockQuantity = n
			return cached, nil
		}
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	s.cacheProduct(ctx, &product)
	return &product, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := models.Product{
		StockQuantity: in.StockQuantity,
		ReorderLevel:  models.DefaultReorderLevel,
	}
	in.apply(&product)

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, translateWriteError(err, "create product")
	}
	s.InvalidateProducts(ctx)
	return &product, nil
}

// UpdateProduct edits catalog fields. Stock is only changed through
// AdjustStock and sales, so in.StockQuantity is ignored here.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %d", ErrNotFound, id)
			}
			return fmt.Errorf("failed to load product: %w", err)
		}
		in.apply(&product)
		return tx.Model(&product).Select("name", "category_id", "sku", "purchase_price", "sale_price", "reorder_level", "updated_at").
			Updates(&product).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, translateWriteError(err, "update product")
	}

	s.InvalidateProducts(ctx, id)
	return &product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.InvoiceItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to check product references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: product %d appears on %d invoice lines", ErrProductInUse, id, refs)
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.StockMovement{}).Error; err != nil {
			return fmt.Errorf("failed to delete stock movements: %w", err)
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateProducts(ctx, id)
	return nil
}

// AdjustStock applies a manual stock correction and records it as a
// movement. The result may not go below zero.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int, reason string) (*models.Product, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment must not be zero", ErrInvalidInput)
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %d", ErrNotFound, id)
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		before := product.StockQuantity
		after := before + delta
		if after < 0 {
			return fmt.Errorf("%w: %s has %d in stock", ErrNegativeStock, product.Name, before)
		}

		if err := tx.Model(&models.Product{}).Where("id = ?", id).
			UpdateColumn("stock_quantity", after).Error; err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}
		product.StockQuantity = after

		return tx.Create(&models.StockMovement{
			ProductID:    id,
			MovementType: models.MovementAdjustment,
			Quantity:     delta,
			StockBefore:  before,
			StockAfter:   after,
			Reason:       strings.TrimSpace(reason),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateProducts(ctx, id)
	return &product, nil
}

func (s *Service) StockMovements(ctx context.Context, productID int64, limit int) ([]models.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []models.StockMovement
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}

// -- Typeahead search --

type ProductHit struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

// SearchProducts returns up to ten in-stock products whose name or sku
// contains term, case-insensitively.
func (s *Service) SearchProducts(ctx context.Context, term string) ([]ProductHit, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []ProductHit{}, nil
	}

	if hits, ok := s.cachedSearch(ctx, term); ok {
		return s.refreshHits(ctx, hits)
	}

	pattern := containsPattern(term)
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("stock_quantity > 0").
		Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order("name, id").
		Limit(SearchResultLimit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	hits := make([]ProductHit, 0, len(products))
	for _, p := range products {
		hits = append(hits, ProductHit{
			ID:    p.ID,
			Name:  p.Name,
			Price: p.SalePrice.StringFixed(2),
			Stock: p.StockQuantity,
		})
	}

	s.cacheSearch(ctx, term, hits)
	return hits, nil
}

// refreshHits replaces cached stock with current values and drops hits
// that sold out since they were cached.
func (s *Service) refreshHits(ctx context.Context, hits []ProductHit) ([]ProductHit, error) {
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	stock, err := s.liveStock(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]ProductHit, 0, len(hits))
	for _, h := range hits {
		if n := stock[h.ID]; n > 0 {
			h.Stock = n
			out = append(out, h)
		}
	}
	return out, nil
}

// liveStock reads stock straight from the database. Cached entries never
// carry an authoritative stock level.
func (s *Service) liveStock(ctx context.Context, ids ...int64) (map[int64]int, error) {
	stock := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return stock, nil
	}

	var rows []struct {
		ID            int64
		StockQuantity int
	}
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Select("id", "stock_quantity").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}
	for _, r := range rows {
		stock[r.ID] = r.StockQuantity
	}
	return stock, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func translateWriteError(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: sku is already used by another product", ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: unknown category", ErrInvalidInput)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
