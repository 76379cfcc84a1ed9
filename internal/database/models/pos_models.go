package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCredit PaymentMethod = "CREDIT"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCredit
}

// MoneyPlaces is the scale of every decimal(12,2) money column.
const MoneyPlaces = 2

// IsMoney reports whether d is storable without rounding. Trailing zeros
// past the second place are allowed.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}

// Invoice is immutable once created. A nil ClientID is an anonymous cash sale.
type Invoice struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID      *int64          `gorm:"index" json:"client_id"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"created_at"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaymentMethod PaymentMethod   `gorm:"size:10;not null" json:"payment_method"`

	Client *Client       `gorm:"foreignKey:ClientID;constraint:OnDelete:SET NULL" json:"client,omitempty"`
	Items  []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type InvoiceItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID   int64           `gorm:"index;not null" json:"invoice_id"`
	ProductID   int64           `gorm:"index;not null" json:"product_id"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	PriceAtSale decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price_at_sale"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
}

func (i InvoiceItem) LineTotal() decimal.Decimal {
	return i.PriceAtSale.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Category{},
		&Product{},
		&Client{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&Note{},
		&StockMovement{},
	}
}
