package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shop-system/internal/services/notes"
	"shop-system/internal/services/reports"
)

type ReportsHTTPHandler struct {
	reports *reports.Service
	notes   *notes.Service
}

func NewReportsHTTPHandler(reportsService *reports.Service, notesService *notes.Service) *ReportsHTTPHandler {
	return &ReportsHTTPHandler{
		reports: reportsService,
		notes:   notesService,
	}
}

// --- Report Handlers ---

func (h *ReportsHTTPHandler) LowStock(c *gin.Context) {
	var query reports.LowStockQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}

	rows, err := h.reports.LowStock(c.Request.Context(), query)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Low stock report generated", rows, gin.H{
		"count":   len(rows),
		"sort_by": query.SortBy,
	}))
}

func (h *ReportsHTTPHandler) ExportLowStockCSV(c *gin.Context) {
	rows, err := h.reports.LowStock(c.Request.Context(), reports.LowStockQuery{SortBy: reports.SortDeficit})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"low_stock_report_%s.csv\"",
		time.Now().Format("20060102")))
	c.Status(http.StatusOK)

	if err := reports.WriteLowStockCSV(c.Writer, rows); err != nil {
		_ = c.Error(err)
	}
}

func (h *ReportsHTTPHandler) ExportLowStockXLSX(c *gin.Context) {
	rows, err := h.reports.LowStock(c.Request.Context(), reports.LowStockQuery{SortBy: reports.SortDeficit})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"low_stock_report_%s.xlsx\"",
		time.Now().Format("20060102")))
	c.Status(http.StatusOK)

	if err := reports.WriteLowStockXLSX(c.Writer, rows); err != nil {
		_ = c.Error(err)
	}
}

func (h *ReportsHTTPHandler) Profit(c *gin.Context) {
	report, err := h.reports.Profit(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Profit report generated", report))
}

func (h *ReportsHTTPHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Dashboard retrieved successfully", dashboard))
}

// --- Note Handlers ---

func (h *ReportsHTTPHandler) ListNotes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.notes.List(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Notes retrieved successfully", list))
}

func (h *ReportsHTTPHandler) CreateNote(c *gin.Context) {
	var req notes.NoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	note, err := h.notes.Create(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Note added successfully", note))
}

func (h *ReportsHTTPHandler) DeleteNote(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.notes.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Note deleted successfully", nil))
}
