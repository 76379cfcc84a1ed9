package pos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop-system/internal/database/models"
	"shop-system/internal/notify"
)

// CacheInvalidator drops cached catalog entries after stock changes.
type CacheInvalidator interface {
	InvalidateProducts(ctx context.Context, productIDs ...int64)
}

type Service struct {
	db            *gorm.DB
	notifier      notify.Notifier
	cache         CacheInvalidator
	now           func() time.Time
	notifyTimeout time.Duration
}

func NewService(db *gorm.DB, notifier notify.Notifier, cache CacheInvalidator) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		db:            db,
		notifier:      notifier,
		cache:         cache,
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: notify.DefaultTimeout,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

// stockChange records one product's stock across a committed invoice.
type stockChange struct {
	Product models.Product
	After   int
}

func (c stockChange) crossedIntoLow() bool {
	return !c.Product.IsLowOnStock() && c.After <= c.Product.ReorderLevel
}

// CreateInvoice validates the cart, writes the invoice and its items,
// debits stock and, for credit sales, raises the client's debt as one
// transaction. Notifications go out after commit and never affect the
// result.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*models.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	total := req.Total()
	quantities := req.quantities()
	ids := sortedIDs(quantities)

	var (
		invoice models.Invoice
		client  *models.Client
		changes []stockChange
	)

	// only credit sales belong to a client; a cash sale is anonymous even
	// when the request names one
	var clientID *int64
	if req.PaymentMethod == models.PaymentCredit {
		clientID = req.ClientID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clientID != nil {
			client = &models.Client{}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(client, *clientID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: client %d", ErrEntityNotFound, *clientID)
				}
				return fmt.Errorf("failed to load client: %w", err)
			}
		}

		products, err := lockProducts(tx, ids)
		if err != nil {
			return err
		}

		remaining := make(map[int64]int, len(products))
		for id, p := range products {
			remaining[id] = p.StockQuantity
		}
		for _, line := range req.Cart {
			p := products[line.ProductID]
			if remaining[p.ID] < line.Quantity {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   line.Quantity,
					Available:   remaining[p.ID],
				}
			}
			remaining[p.ID] -= line.Quantity
		}

		invoice = models.Invoice{
			ClientID:      clientID,
			CreatedAt:     s.now().UTC(),
			TotalAmount:   total,
			PaymentMethod: req.PaymentMethod,
			Items:         make([]models.InvoiceItem, 0, len(req.Cart)),
		}
		for _, line := range req.Cart {
			invoice.Items = append(invoice.Items, models.InvoiceItem{
				ProductID:   line.ProductID,
				Quantity:    line.Quantity,
				PriceAtSale: line.UnitPrice,
			})
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		changes = make([]stockChange, 0, len(ids))
		for _, id := range ids {
			p := products[id]
			if err := debitStock(tx, p, quantities[id], invoice.ID, invoice.CreatedAt); err != nil {
				return err
			}
			changes = append(changes, stockChange{Product: p, After: remaining[id]})
		}

		// client is locked above; the balance is written, not incremented
		if client != nil {
			debt := client.TotalDebt.Add(total)
			if err := tx.Model(&models.Client{}).
				Where("id = ?", client.ID).
				UpdateColumn("total_debt", debt).Error; err != nil {
				return fmt.Errorf("failed to update client debt: %w", err)
			}
			client.TotalDebt = debt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateProducts(ctx, ids...)
	}
	s.dispatch(ctx, evaluateTriggers(&invoice, changes, client))

	return &invoice, nil
}

// lockProducts loads every referenced product in one query, locking the
// rows in id order so concurrent checkouts cannot deadlock each other.
func lockProducts(tx *gorm.DB, ids []int64) (map[int64]models.Product, error) {
	var list []models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	products := make(map[int64]models.Product, len(list))
	for _, p := range list {
		products[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, fmt.Errorf("%w: product %d", ErrEntityNotFound, id)
		}
	}
	return products, nil
}

// debitStock decrements stock only while enough remains, so a stale read
// can never drive stock_quantity below zero.
func debitStock(tx *gorm.DB, p models.Product, qty int, invoiceID int64, at time.Time) error {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", p.ID, qty).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to update stock for product %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   qty,
			Available:   p.StockQuantity,
		}
	}

	movement := models.StockMovement{
		ProductID:    p.ID,
		MovementType: models.MovementSale,
		Quantity:     -qty,
		StockBefore:  p.StockQuantity,
		StockAfter:   p.StockQuantity - qty,
		InvoiceID:    &invoiceID,
		CreatedAt:    at,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, events []notify.Event) {
	if len(events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	for _, event := range events {
		if err := s.notifier.Notify(ctx, event); err != nil {
			log.Printf("notification %s failed: %v", event.Type, err)
		}
	}
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		First(&invoice, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invoice %d", ErrEntityNotFound, id)
		}
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return &invoice, nil
}

// ListInvoices returns invoices newest first, optionally for one client.
func (s *Service) ListInvoices(ctx context.Context, clientID *int64, page, pageSize int) ([]models.Invoice, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Invoice{})
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	var invoices []models.Invoice
	if err := query.Preload("Client").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&invoices).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}
