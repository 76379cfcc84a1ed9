package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop-system/internal/database/models"
	"shop-system/internal/notify"
)

const SearchResultLimit = 10

var (
	ErrClientNotFound = errors.New("client not found")
	ErrInvalidAmount  = errors.New("invalid payment amount")
	ErrInvalidInput   = errors.New("invalid input")
)

type Service struct {
	db            *gorm.DB
	notifier      notify.Notifier
	now           func() time.Time
	notifyTimeout time.Duration
}

func NewService(db *gorm.DB, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		db:            db,
		notifier:      notifier,
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

// -- Clients --

type ClientInput struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (in ClientInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidInput)
	}
	return nil
}

func (s *Service) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	client := models.Client{
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		TotalDebt: decimal.Zero,
	}
	if err := s.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &client, nil
}

// UpdateClient edits contact details. TotalDebt is owned by invoices and
// payments and cannot be edited directly.
func (s *Service) UpdateClient(ctx context.Context, id int64, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.Client{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":       strings.TrimSpace(in.Name),
		"phone":      strings.TrimSpace(in.Phone),
		"address":    strings.TrimSpace(in.Address),
		"updated_at": s.now(),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %d", ErrClientNotFound, id)
	}
	return s.GetClient(ctx, id)
}

func (s *Service) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrClientNotFound, id)
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return &client, nil
}

type ClientList struct {
	Clients   []models.Client `json:"clients"`
	TotalDebt decimal.Decimal `json:"total_debt"`
}

// ListClients filters by name or phone substring. TotalDebt sums the
// outstanding (positive) balances of the listed clients.
func (s *Service) ListClients(ctx context.Context, search string) (*ClientList, error) {
	query := s.db.WithContext(ctx).Model(&models.Client{})
	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var clients []models.Client
	if err := query.Order("name, id").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	total := decimal.Zero
	for _, c := range clients {
		if c.TotalDebt.IsPositive() {
			total = total.Add(c.TotalDebt)
		}
	}
	return &ClientList{Clients: clients, TotalDebt: total}, nil
}

type ClientHit struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SearchClients matches a case-insensitive name prefix, up to ten results.
func (s *Service) SearchClients(ctx context.Context, prefix string) ([]ClientHit, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []ClientHit{}, nil
	}

	hits := make([]ClientHit, 0, SearchResultLimit)
	if err := s.db.WithContext(ctx).Model(&models.Client{}).
		Select("id", "name").
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likeEscaper.Replace(prefix)+"%").
		Order("name, id").
		Limit(SearchResultLimit).
		Scan(&hits).Error; err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}
	return hits, nil
}

// DeleteClient keeps the client's invoices as anonymous history and drops
// its payments.
func (s *Service) DeleteClient(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Invoice{}).Where("client_id = ?", id).
			UpdateColumn("client_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach invoices: %w", err)
		}
		if err := tx.Where("client_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("failed to delete payments: %w", err)
		}
		res := tx.Delete(&models.Client{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete client: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %d", ErrClientNotFound, id)
		}
		return nil
	})
}

// TotalDebt is the sum of every positive client balance.
func (s *Service) TotalDebt(ctx context.Context) (decimal.Decimal, error) {
	var debts []decimal.Decimal
	if err := s.db.WithContext(ctx).Model(&models.Client{}).
		Where("total_debt > 0").
		Pluck("total_debt", &debts).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum debt: %w", err)
	}
	return decimal.Sum(decimal.Zero, debts...), nil
}

// -- Payments --

// RecordPayment parses amount exactly and lowers the client's debt by it.
// The balance is allowed to go negative.
func (s *Service) RecordPayment(ctx context.Context, clientID int64, amount, notes string) (*models.Payment, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, amount)
	}
	if !value.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount)
	}
	if !models.IsMoney(value) {
		return nil, fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidAmount, models.MoneyPlaces)
	}

	payment := models.Payment{
		ClientID:    clientID,
		Amount:      value,
		PaymentDate: s.now().UTC(),
		Notes:       strings.TrimSpace(notes),
	}
	var client models.Client

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&client, clientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrClientNotFound, clientID)
			}
			return fmt.Errorf("failed to load client: %w", err)
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		debt := client.TotalDebt.Sub(value)
		if err := tx.Model(&models.Client{}).Where("id = ?", clientID).
			UpdateColumn("total_debt", debt).Error; err != nil {
			return fmt.Errorf("failed to update client debt: %w", err)
		}
		client.TotalDebt = debt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.NewEvent(notify.EventPaymentCreated, "", map[string]interface{}{
		"payment_id": payment.ID,
		"client_id":  clientID,
		"amount":     value.StringFixed(2),
		"total_debt": client.TotalDebt.StringFixed(2),
	}))
	return &payment, nil
}

func (s *Service) publish(ctx context.Context, event notify.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("notification %s failed: %v", event.Type, err)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
