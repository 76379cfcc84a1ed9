package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client carries a running balance. TotalDebt is the sum of credit invoice
// totals minus payments and may go negative when a client overpays.
type Client struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"size:200;not null;index" json:"name"`
	Phone     string          `gorm:"size:20" json:"phone"`
	Address   string          `gorm:"type:text" json:"address"`
	TotalDebt decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_debt"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Payment struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ClientID    int64           `gorm:"index;not null" json:"client_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null;index" json:"payment_date"`
	Notes       string          `gorm:"type:text" json:"notes"`

	Client *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`
}

type Note struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	IsImportant bool      `gorm:"not null" json:"is_important"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
