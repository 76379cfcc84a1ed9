package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"shop-system/internal/database/models"
	"shop-system/internal/services/pos"
)

type CheckoutHTTPHandler struct {
	pos *pos.Service
}

func NewCheckoutHTTPHandler(posService *pos.Service) *CheckoutHTTPHandler {
	return &CheckoutHTTPHandler{
		pos: posService,
	}
}

// CartItemRequest fields are raw so form-style string numbers ("3") are
// accepted alongside JSON numbers.
type CartItemRequest struct {
	ID       json.RawMessage `json:"id"`
	Price    json.RawMessage `json:"price"`
	Quantity json.RawMessage `json:"quantity"`
}

type CreateInvoiceRequest struct {
	Cart          []CartItemRequest `json:"cart"`
	PaymentMethod string            `json:"payment_method"`
	ClientID      json.RawMessage   `json:"client_id"`
}

type ListInvoicesQuery struct {
	ClientID *int64 `form:"client_id"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// CheckoutResponse keeps the flat shape the POS front end reads.
type CheckoutResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	InvoiceID int64  `json:"invoice_id,omitempty"`
}

func (r CreateInvoiceRequest) toServiceRequest() (pos.CreateInvoiceRequest, error) {
	out := pos.CreateInvoiceRequest{
		PaymentMethod: models.PaymentMethod(r.PaymentMethod),
		Cart:          make([]pos.CartLine, 0, len(r.Cart)),
	}
	if len(r.Cart) == 0 || r.PaymentMethod == "" {
		return out, fmt.Errorf("%w: cart and payment method are required", pos.ErrMissingData)
	}

	clientID, err := optionalInt(r.ClientID)
	if err != nil {
		return out, fmt.Errorf("%w: invalid client id", pos.ErrInvalidInput)
	}
	out.ClientID = clientID

	for _, item := range r.Cart {
		id, err := optionalInt(item.ID)
		if err != nil {
			return out, fmt.Errorf("%w: invalid product id", pos.ErrInvalidInput)
		}
		if id == nil {
			return out, fmt.Errorf("%w: product id is required", pos.ErrMissingData)
		}
		qty, err := optionalInt(item.Quantity)
		if err != nil || qty == nil || *qty > math.MaxInt32 {
			return out, fmt.Errorf("%w: invalid quantity for product %d", pos.ErrInvalidInput, *id)
		}
		if numberText(item.Price) == "" {
			return out, fmt.Errorf("%w: price is required for product %d", pos.ErrMissingData, *id)
		}
		price, err := decimal.NewFromString(numberText(item.Price))
		if err != nil {
			return out, fmt.Errorf("%w: invalid price for product %d", pos.ErrInvalidInput, *id)
		}
		out.Cart = append(out.Cart, pos.CartLine{
			ProductID: *id,
			Quantity:  int(*qty),
			UnitPrice: price,
		})
	}
	return out, nil
}

// optionalInt reads an integer sent as a JSON number or a numeric string.
// Absent, null and empty values yield nil.
func optionalInt(raw json.RawMessage) (*int64, error) {
	text := strings.TrimSpace(numberText(raw))
	if text == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsInteger() {
		return nil, fmt.Errorf("%q is not an integer", text)
	}
	v := d.IntPart()
	return &v, nil
}

// CreateInvoice runs a checkout. Errors come back as
// {status: "error", message} with 400, 404 or 500.
func (h *CheckoutHTTPHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CheckoutResponse{Status: "error", Message: "Invalid request format"})
		return
	}

	serviceReq, err := req.toServiceRequest()
	if err != nil {
		checkoutError(c, err)
		return
	}

	invoice, err := h.pos.CreateInvoice(c.Request.Context(), serviceReq)
	if err != nil {
		checkoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		Status:    "success",
		Message:   "Invoice created successfully!",
		InvoiceID: invoice.ID,
	})
}

func checkoutError(c *gin.Context, err error) {
	code := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	switch code {
	case http.StatusNotFound:
		msg = "A required item was not found."
	case http.StatusInternalServerError:
		log.Printf("unexpected error in checkout: %v", err)
		msg = "An unexpected server error occurred."
	}
	c.JSON(code, CheckoutResponse{Status: "error", Message: msg})
}

func (h *CheckoutHTTPHandler) GetInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.pos.GetInvoice(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Invoice retrieved successfully", invoice))
}

func (h *CheckoutHTTPHandler) ListInvoices(c *gin.Context) {
	var query ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	query.Page = max(query.Page, 1)
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	invoices, total, err := h.pos.ListInvoices(c.Request.Context(), query.ClientID, query.Page, query.PageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Invoices retrieved successfully", invoices, PaginationMeta{
		Page:     query.Page,
		PageSize: query.PageSize,
		Total:    total,
	}))
}
