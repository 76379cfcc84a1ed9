package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"shop-system/internal/services/ledger"
)

type ClientHTTPHandler struct {
	ledger *ledger.Service
}

func NewClientHTTPHandler(ledgerService *ledger.Service) *ClientHTTPHandler {
	return &ClientHTTPHandler{
		ledger: ledgerService,
	}
}

// RecordPaymentRequest accepts the amount as a JSON number or a string so
// it is never rounded through a float.
type RecordPaymentRequest struct {
	Amount json.RawMessage `json:"amount" binding:"required"`
	Notes  string          `json:"notes"`
}

// --- Client Handlers ---

func (h *ClientHTTPHandler) ListClients(c *gin.Context) {
	list, err := h.ledger.ListClients(c.Request.Context(), c.Query("q"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Clients retrieved successfully", list.Clients, gin.H{
		"total_debt": list.TotalDebt,
		"count":      len(list.Clients),
	}))
}

func (h *ClientHTTPHandler) CreateClient(c *gin.Context) {
	var req ledger.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	client, err := h.ledger.CreateClient(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Client created successfully", client))
}

func (h *ClientHTTPHandler) GetClient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	client, err := h.ledger.GetClient(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Client retrieved successfully", client))
}

func (h *ClientHTTPHandler) UpdateClient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ledger.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	client, err := h.ledger.UpdateClient(c.Request.Context(), id, req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Client updated successfully", client))
}

func (h *ClientHTTPHandler) DeleteClient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.DeleteClient(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Client deleted successfully", nil))
}

// SearchClients answers the POS typeahead with a bare JSON array.
func (h *ClientHTTPHandler) SearchClients(c *gin.Context) {
	hits, err := h.ledger.SearchClients(c.Request.Context(), c.Query("q"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, hits)
}

func (h *ClientHTTPHandler) Statement(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	statement, err := h.ledger.Statement(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Statement retrieved successfully", statement))
}

// --- Payment Handlers ---

func (h *ClientHTTPHandler) RecordPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	payment, err := h.ledger.RecordPayment(c.Request.Context(), id, numberText(req.Amount), req.Notes)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Payment recorded successfully", payment))
}

// numberText returns the literal text of a JSON number or string.
func numberText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
