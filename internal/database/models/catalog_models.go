package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultReorderLevel = 5

type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"size:200;not null;index" json:"name"`
	CategoryID    *int64          `gorm:"index" json:"category_id"`
	SKU           *string         `gorm:"column:sku;size:50;uniqueIndex" json:"sku"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"purchase_price"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	StockQuantity int             `gorm:"not null" json:"stock_quantity"`
	ReorderLevel  int             `gorm:"not null" json:"reorder_level"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
}

// IsLowOnStock reports whether the product is at or below its reorder level.
func (p Product) IsLowOnStock() bool {
	return p.StockQuantity <= p.ReorderLevel
}

type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"
)

// StockMovement is the audit trail of every stock_quantity change.
type StockMovement struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID    int64        `gorm:"index;not null" json:"product_id"`
	MovementType MovementType `gorm:"size:20;not null" json:"movement_type"`
	Quantity     int          `gorm:"not null" json:"quantity"`
	StockBefore  int          `gorm:"not null" json:"stock_before"`
	StockAfter   int          `gorm:"not null" json:"stock_after"`
	InvoiceID    *int64       `gorm:"index" json:"invoice_id,omitempty"`
	Reason       string       `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}
