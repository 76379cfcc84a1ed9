package pos

import (
	"fmt"

	"shop-system/internal/database/models"
	"shop-system/internal/notify"
)

// evaluateTriggers turns a committed invoice into outbound events: one
// low-stock event per product that crossed its reorder level, one new-debt
// event per credit invoice and an invoice.created event for the stream.
func evaluateTriggers(invoice *models.Invoice, changes []stockChange, client *models.Client) []notify.Event {
	var events []notify.Event

	for _, c := range changes {
		if !c.crossedIntoLow() {
			continue
		}
		events = append(events, notify.NewEvent(notify.EventLowStock,
			fmt.Sprintf("📉 *Low stock* 📉\n\nProduct: *%s*\nRemaining quantity: *%d*", c.Product.Name, c.After),
			map[string]interface{}{
				"product_id":     c.Product.ID,
				"product_name":   c.Product.Name,
				"stock_quantity": c.After,
				"reorder_level":  c.Product.ReorderLevel,
				"invoice_id":     invoice.ID,
			}))
	}

	if invoice.PaymentMethod == models.PaymentCredit && client != nil {
		events = append(events, notify.NewEvent(notify.EventNewDebt,
			fmt.Sprintf("🚨 *New debt* 🚨\n\nClient: *%s*\nInvoice amount: *%s*\nCurrent total debt: *%s*",
				client.Name, invoice.TotalAmount.StringFixed(2), client.TotalDebt.StringFixed(2)),
			map[string]interface{}{
				"client_id":   client.ID,
				"client_name": client.Name,
				"invoice_id":  invoice.ID,
				"amount":      invoice.TotalAmount.StringFixed(2),
				"total_debt":  client.TotalDebt.StringFixed(2),
			}))
	}

	created := map[string]interface{}{
		"invoice_id":     invoice.ID,
		"payment_method": string(invoice.PaymentMethod),
		"total_amount":   invoice.TotalAmount.StringFixed(2),
		"items":          len(invoice.Items),
	}
	if invoice.ClientID != nil {
		created["client_id"] = *invoice.ClientID
	}
	events = append(events, notify.NewEvent(notify.EventInvoiceCreated, "", created))

	return events
}
