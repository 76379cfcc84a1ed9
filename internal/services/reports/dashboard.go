package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Debtor struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Phone     string          `db:"phone" json:"phone"`
	TotalDebt decimal.Decimal `db:"total_debt" json:"total_debt"`
}

type LowStockItem struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	StockQuantity int    `db:"stock_quantity" json:"stock_quantity"`
	ReorderLevel  int    `db:"reorder_level" json:"reorder_level"`
}

type RecentNote struct {
	ID          int64     `db:"id" json:"id"`
	Content     string    `db:"content" json:"content"`
	IsImportant bool      `db:"is_important" json:"is_important"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Dashboard struct {
	DailySalesTotal   decimal.Decimal `json:"daily_sales_total"`
	DailyInvoiceCount int             `json:"daily_invoice_count"`
	TotalDebt         decimal.Decimal `json:"total_debt"`
	TopDebtors        []Debtor        `json:"top_debtors"`
	TopLowStock       []LowStockItem  `json:"top_low_stock"`
	RecentNotes       []RecentNote    `json:"recent_notes"`
}

// Dashboard summarises today's sales, outstanding debt, the five largest
// debtors, the five emptiest low-stock products and the latest notes.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := Windows(s.now(), s.loc)[0]
	d := &Dashboard{
		DailySalesTotal: decimal.Zero,
		TotalDebt:       decimal.Zero,
		TopDebtors:      []Debtor{},
		TopLowStock:     []LowStockItem{},
		RecentNotes:     []RecentNote{},
	}

	var totals []decimal.Decimal
	if err := s.db.SelectContext(ctx, &totals,
		s.db.Rebind(`SELECT total_amount FROM invoices WHERE created_at >= ? AND created_at < ?`),
		*today.From, *today.Until); err != nil {
		return nil, fmt.Errorf("failed to load today's sales: %w", err)
	}
	d.DailyInvoiceCount = len(totals)
	d.DailySalesTotal = decimal.Sum(decimal.Zero, totals...)

	var debts []decimal.Decimal
	if err := s.db.SelectContext(ctx, &debts, `SELECT total_debt FROM clients WHERE total_debt > 0`); err != nil {
		return nil, fmt.Errorf("failed to load debt: %w", err)
	}
	d.TotalDebt = decimal.Sum(decimal.Zero, debts...)

	if err := s.db.SelectContext(ctx, &d.TopDebtors, s.db.Rebind(
		`SELECT id, name, phone, total_debt FROM clients
		WHERE total_debt > 0 ORDER BY total_debt DESC, id LIMIT ?`), dashboardLimit); err != nil {
		return nil, fmt.Errorf("failed to load top debtors: %w", err)
	}

	if err := s.db.SelectContext(ctx, &d.TopLowStock, s.db.Rebind(
		`SELECT id, name, stock_quantity, reorder_level FROM products
		WHERE stock_quantity <= reorder_level ORDER BY stock_quantity, id LIMIT ?`), dashboardLimit); err != nil {
		return nil, fmt.Errorf("failed to load low stock: %w", err)
	}

	if err := s.db.SelectContext(ctx, &d.RecentNotes, s.db.Rebind(
		`SELECT id, content, is_important, created_at FROM notes
		ORDER BY created_at DESC, id DESC LIMIT ?`), dashboardLimit); err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}

	return d, nil
}
