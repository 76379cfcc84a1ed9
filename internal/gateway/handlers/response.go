package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shop-system/internal/services/catalog"
	"shop-system/internal/services/ledger"
	"shop-system/internal/services/notes"
	"shop-system/internal/services/pos"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type PaginationMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// statusFor maps service errors onto HTTP status codes. Anything it does
// not recognise is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pos.ErrEntityNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, ledger.ErrClientNotFound),
		errors.Is(err, notes.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicate),
		errors.Is(err, catalog.ErrProductInUse):
		return http.StatusConflict
	case pos.IsClientError(err),
		errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, catalog.ErrNegativeStock),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidInput),
		errors.Is(err, notes.ErrEmptyNote):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes the error envelope. Server errors are logged
// and replaced by a generic message.
func handleServiceError(c *gin.Context, err error) {
	code := statusFor(err)
	_ = c.Error(err)
	if code == http.StatusInternalServerError {
		log.Printf("unexpected error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(code, errorResponse("An unexpected server error occurred"))
		return
	}
	c.JSON(code, errorResponse(err.Error()))
}

func parseIDParam(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+param))
		return 0, false
	}
	return id, true
}
