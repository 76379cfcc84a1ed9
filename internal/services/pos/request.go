package pos

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"shop-system/internal/database/models"
)

type CartLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type CreateInvoiceRequest struct {
	Cart          []CartLine
	PaymentMethod models.PaymentMethod
	ClientID      *int64
}

func (r CreateInvoiceRequest) Validate() error {
	if len(r.Cart) == 0 || r.PaymentMethod == "" {
		return fmt.Errorf("%w: cart and payment method are required", ErrMissingData)
	}
	if !r.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, r.PaymentMethod)
	}
	for _, line := range r.Cart {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: product id is required", ErrMissingData)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidInput, line.ProductID)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: price must not be negative for product %d", ErrInvalidInput, line.ProductID)
		}
		if !models.IsMoney(line.UnitPrice) {
			return fmt.Errorf("%w: price has more than %d decimal places for product %d", ErrInvalidInput, models.MoneyPlaces, line.ProductID)
		}
	}
	if r.PaymentMethod == models.PaymentCredit && r.ClientID == nil {
		return ErrMissingClientForCredit
	}
	return nil
}

// Total is the exact sum of unit price times quantity over the cart.
func (r CreateInvoiceRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Cart {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// quantities sums requested quantity per product. Lines naming the same
// product draw on the same stock.
func (r CreateInvoiceRequest) quantities() map[int64]int {
	q := make(map[int64]int, len(r.Cart))
	for _, line := range r.Cart {
		q[line.ProductID] += line.Quantity
	}
	return q
}

func sortedIDs(q map[int64]int) []int64 {
	ids := make([]int64, 0, len(q))
	for id := range q {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
