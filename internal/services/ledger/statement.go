package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shop-system/internal/database/models"
)

const (
	EntryInvoice = "invoice"
	EntryPayment = "payment"
)

type StatementEntry struct {
	Type          string          `json:"type"`
	ID            int64           `json:"id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
}

type Statement struct {
	Client  models.Client    `json:"client"`
	Entries []StatementEntry `json:"entries"`
}

// Statement merges the client's invoices (debits) and payments (credits)
// in date order, computes the running balance and returns the entries
// most recent first. On equal timestamps invoices sort before payments,
// then by id.
func (s *Service) Statement(ctx context.Context, clientID int64) (*Statement, error) {
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	var payments []models.Payment
	if err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	entries := make([]StatementEntry, 0, len(invoices)+len(payments))
	for _, inv := range invoices {
		entries = append(entries, StatementEntry{
			Type:          EntryInvoice,
			ID:            inv.ID,
			Date:          inv.CreatedAt,
			Description:   fmt.Sprintf("Invoice #%d", inv.ID),
			PaymentMethod: string(inv.PaymentMethod),
			Debit:         inv.TotalAmount,
			Credit:        decimal.Zero,
		})
	}
	for _, p := range payments {
		desc := p.Notes
		if strings.TrimSpace(desc) == "" {
			desc = fmt.Sprintf("Payment #%d", p.ID)
		}
		entries = append(entries, StatementEntry{
			Type:        EntryPayment,
			ID:          p.ID,
			Date:        p.PaymentDate,
			Description: desc,
			Debit:       decimal.Zero,
			Credit:      p.Amount,
		})
	}

	return &Statement{Client: *client, Entries: runningBalance(entries)}, nil
}

// runningBalance orders entries chronologically, fills in Balance and
// returns them newest first.
func runningBalance(entries []StatementEntry) []StatementEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Type != b.Type {
			return a.Type == EntryInvoice
		}
		return a.ID < b.ID
	})

	balance := decimal.Zero
	for i := range entries {
		balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
		entries[i].Balance = balance
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}
