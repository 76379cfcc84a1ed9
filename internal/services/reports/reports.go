// Package reports holds the read-only aggregates: low stock, profit by
// calendar window and the dashboard summary. Queries go through sqlx on
// the same pool the write side uses.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"shop-system/internal/database/models"
)

const (
	SortDeficit = "deficit"
	SortName    = "name"
	SortStock   = "stock"

	dashboardLimit = 5
)

type Service struct {
	db  *sqlx.DB
	loc *time.Location
	now func() time.Time
}

// NewService computes calendar windows in loc. A nil loc means UTC.
func NewService(db *sqlx.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		db:  db,
		loc: loc,
		now: time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// -- Low stock --

type LowStockRow struct {
	ID            int64   `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	SKU           *string `db:"sku" json:"sku"`
	StockQuantity int     `db:"stock_quantity" json:"stock_quantity"`
	ReorderLevel  int     `db:"reorder_level" json:"reorder_level"`
	Deficit       int     `db:"deficit" json:"deficit"`
}

type LowStockQuery struct {
	Search string `form:"q"`
	SortBy string `form:"sort_by"`
}

var lowStockOrder = map[string]string{
	SortDeficit: "deficit DESC, id",
	SortName:    "name, id",
	SortStock:   "stock_quantity, id",
}

// LowStock lists products at or below their reorder level. Unknown sort
// keys fall back to deficit, largest first.
func (s *Service) LowStock(ctx context.Context, q LowStockQuery) ([]LowStockRow, error) {
	query := `SELECT id, name, sku, stock_quantity, reorder_level, reorder_level - stock_quantity AS deficit
		FROM products
		WHERE stock_quantity <= reorder_level`
	var args []interface{}

	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		query += ` AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(sku) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	order, ok := lowStockOrder[q.SortBy]
	if !ok {
		order = lowStockOrder[SortDeficit]
	}
	query += " ORDER BY " + order

	rows := []LowStockRow{}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load low stock report: %w", err)
	}
	return rows, nil
}

// -- Profit --

type Window struct {
	Key   string     `json:"key"`
	From  *time.Time `json:"from,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

type ProfitLine struct {
	Window Window          `json:"window"`
	Profit decimal.Decimal `json:"profit"`
}

type ProfitReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Lines       []ProfitLine `json:"lines"`
}

func (r ProfitReport) Get(key string) decimal.Decimal {
	for _, l := range r.Lines {
		if l.Window.Key == key {
			return l.Profit
		}
	}
	return decimal.Zero
}

// Windows returns today, this_week (from Monday), this_month,
// last_6_months, this_year and all_time. Each bounded window covers whole
// days in loc up to and including today: [from, tomorrow).
func Windows(now time.Time, loc *time.Location) []Window {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)

	weekday := (int(today.Weekday()) + 6) % 7
	starts := []struct {
		key  string
		from time.Time
	}{
		{"today", today},
		{"this_week", today.AddDate(0, 0, -weekday)},
		{"this_month", time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)},
		{"last_6_months", monthsBefore(today, 6)},
		{"this_year", time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, loc)},
	}

	until := tomorrow.UTC()
	windows := make([]Window, 0, len(starts)+1)
	for _, st := range starts {
		from := st.from.UTC()
		windows = append(windows, Window{Key: st.key, From: &from, Until: &until})
	}
	return append(windows, Window{Key: "all_time"})
}

// monthsBefore steps back whole calendar months, clamping to the last day
// of the target month (Aug 31 minus 6 months is Feb 28 or 29).
func monthsBefore(day time.Time, months int) time.Time {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, -months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	d := day.Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, day.Location())
}

const lineProfit = `(ii.price_at_sale - p.purchase_price) * ii.quantity`

// Profit sums (price_at_sale - purchase_price) * quantity per window using
// the product's current purchase price, one SUM column per window. Empty
// windows report zero.
func (s *Service) Profit(ctx context.Context) (*ProfitReport, error) {
	now := s.now()
	windows := Windows(now, s.loc)

	cols := make([]string, 0, len(windows))
	args := make([]interface{}, 0, 2*len(windows))
	for i, w := range windows {
		if w.From == nil {
			cols = append(cols, fmt.Sprintf("COALESCE(SUM(%s), 0) AS w%d", lineProfit, i))
			continue
		}
		cols = append(cols, fmt.Sprintf(
			"COALESCE(SUM(CASE WHEN i.created_at >= ? AND i.created_at < ? THEN %s ELSE 0 END), 0) AS w%d",
			lineProfit, i))
		args = append(args, *w.From, *w.Until)
	}
	query := `SELECT ` + strings.Join(cols, ", ") + `
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id`

	sums := make([]decimal.Decimal, len(windows))
	dest := make([]interface{}, len(windows))
	for i := range sums {
		dest[i] = &sums[i]
	}
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to compute profit report: %w", err)
	}

	report := &ProfitReport{GeneratedAt: now.UTC(), Lines: make([]ProfitLine, len(windows))}
	for i, w := range windows {
		// inputs carry two places; rounding drops float noise from
		// drivers that sum decimals as REAL
		report.Lines[i] = ProfitLine{Window: w, Profit: sums[i].Round(models.MoneyPlaces)}
	}
	return report, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
