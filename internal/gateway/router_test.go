package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shop-system/config"
	"shop-system/internal/database"
	"shop-system/internal/database/dbtest"
	"shop-system/internal/database/models"
	"shop-system/internal/gateway/middleware"
	"shop-system/internal/services/catalog"
	"shop-system/internal/services/ledger"
	"shop-system/internal/services/notes"
	"shop-system/internal/services/pos"
	"shop-system/internal/services/reports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	db := dbtest.New(t)
	reader, err := database.Reader(db)
	require.NoError(t, err)

	catalogService := catalog.NewService(db, nil)
	svc := Services{
		Catalog: catalogService,
		Ledger:  ledger.NewService(db, nil),
		POS:     pos.NewService(db, nil, catalogService),
		Reports: reports.NewService(reader, time.UTC),
		Notes:   notes.NewService(db),
	}
	if opts.RateLimit == "" {
		opts.RateLimit = "1000-M"
	}

	router, err := NewRouter(svc, opts)
	require.NoError(t, err)
	return &testServer{router: router, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewReader([]byte(raw))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) seedProduct(t *testing.T, name string, stock, reorder int) models.Product {
	t.Helper()
	p := models.Product{
		Name:          name,
		PurchasePrice: decimal.NewFromInt(1),
		SalePrice:     decimal.NewFromInt(2),
		StockQuantity: stock,
		ReorderLevel:  reorder,
	}
	require.NoError(t, s.db.Create(&p).Error)
	return p
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{Checks: map[string]HealthCheck{
		"up":   func(context.Context) bool { return true },
		"down": func(context.Context) bool { return false },
	}})

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = s.do(t, http.MethodGet, "/health/detailed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decodeBody(t, w)["overall_status"])
}

func TestAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	s := newTestServer(t, Options{Auth: config.AuthConfig{
		Username:     "owner",
		PasswordHash: string(hash),
		JWTSecret:    "jwt-secret",
		TokenTTL:     time.Hour,
	}})

	w := s.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "owner", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "owner", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]interface{})
	s.token = data["token"].(string)

	w = s.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.token = "garbage"
	w = s.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWhenAuthDisabled(t *testing.T) {
	s := newTestServer(t, Options{})
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "a", "password": "b"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckout(t *testing.T) {
	s := newTestServer(t, Options{})
	p := s.seedProduct(t, "Olive oil", 5, 1)

	w := s.do(t, http.MethodPost, "/api/v1/invoices",
		`{"cart":[{"id":`+itoa(p.ID)+`,"price":"19.99","quantity":2}],"payment_method":"CASH"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	invoiceID := int64(body["invoice_id"].(float64))
	assert.NotZero(t, invoiceID)

	w = s.do(t, http.MethodGet, "/api/v1/invoices/"+itoa(invoiceID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	invoice := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "39.98", invoice["total_amount"])

	var got models.Product
	require.NoError(t, s.db.First(&got, p.ID).Error)
	assert.Equal(t, 3, got.StockQuantity)
}

func TestCheckoutAcceptsStringNumbers(t *testing.T) {
	s := newTestServer(t, Options{})
	p := s.seedProduct(t, "Olive oil", 5, 1)

	w := s.do(t, http.MethodPost, "/api/v1/invoices",
		`{"cart":[{"id":"`+itoa(p.ID)+`","price":"2.50","quantity":"3"}],"payment_method":"CASH","client_id":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Product
	require.NoError(t, s.db.First(&got, p.ID).Error)
	assert.Equal(t, 2, got.StockQuantity)

	var invoice models.Invoice
	require.NoError(t, s.db.First(&invoice, int64(decodeBody(t, w)["invoice_id"].(float64))).Error)
	assert.Nil(t, invoice.ClientID)
	assert.True(t, invoice.TotalAmount.Equal(decimal.RequireFromString("7.5")))
}

func TestCheckoutErrors(t *testing.T) {
	s := newTestServer(t, Options{})
	p := s.seedProduct(t, "Olive oil", 5, 1)
	id := itoa(p.ID)

	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"missing data", `{"cart":[],"payment_method":"CASH"}`, http.StatusBadRequest, ""},
		{"missing price", `{"cart":[{"id":` + id + `,"quantity":1}],"payment_method":"CASH"}`, http.StatusBadRequest, ""},
		{"bad method", `{"cart":[{"id":` + id + `,"price":1,"quantity":1}],"payment_method":"CHEQUE"}`, http.StatusBadRequest, ""},
		{"credit without client", `{"cart":[{"id":` + id + `,"price":1,"quantity":1}],"payment_method":"CREDIT"}`, http.StatusBadRequest, ""},
		{"unknown client", `{"cart":[{"id":` + id + `,"price":1,"quantity":1}],"payment_method":"CREDIT","client_id":77}`, http.StatusNotFound, ""},
		{"unknown product", `{"cart":[{"id":999,"price":1,"quantity":1}],"payment_method":"CASH"}`, http.StatusNotFound, ""},
		{"insufficient stock", `{"cart":[{"id":` + id + `,"price":1,"quantity":10}],"payment_method":"CASH"}`, http.StatusBadRequest, "insufficient stock for product: Olive oil"},
		{"malformed", `{"cart":`, http.StatusBadRequest, ""},
		{"fractional quantity", `{"cart":[{"id":` + id + `,"price":1,"quantity":"1.5"}],"payment_method":"CASH"}`, http.StatusBadRequest, ""},
		{"non-numeric id", `{"cart":[{"id":"abc","price":1,"quantity":1}],"payment_method":"CASH"}`, http.StatusBadRequest, ""},
		{"sub-cent price", `{"cart":[{"id":` + id + `,"price":"0.005","quantity":3}],"payment_method":"CASH"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/invoices", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			body := decodeBody(t, w)
			assert.Equal(t, "error", body["status"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}

	var n int64
	require.NoError(t, s.db.Model(&models.Invoice{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPaymentsAndStatement(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodPost, "/api/v1/clients", map[string]string{"name": "Karim", "phone": "0555"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	clientID := int64(decodeBody(t, w)["data"].(map[string]interface{})["id"].(float64))
	p := s.seedProduct(t, "Coffee", 10, 1)

	w = s.do(t, http.MethodPost, "/api/v1/invoices",
		`{"cart":[{"id":`+itoa(p.ID)+`,"price":100,"quantity":1}],"payment_method":"CREDIT","client_id":`+itoa(clientID)+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/payments", `{"amount":"30.10"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/payments", `{"amount":9.9,"notes":"cash"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/clients/"+itoa(clientID)+"/payments", `{"amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/clients/999/payments", `{"amount":"1"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/clients/"+itoa(clientID)+"/statement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	statement := decodeBody(t, w)["data"].(map[string]interface{})
	entries := statement["entries"].([]interface{})
	require.Len(t, entries, 3)
	assert.Equal(t, "60", entries[0].(map[string]interface{})["balance"])

	var c models.Client
	require.NoError(t, s.db.First(&c, clientID).Error)
	assert.True(t, c.TotalDebt.Equal(decimal.NewFromInt(60)), c.TotalDebt.String())
}

func TestSearchEndpointsReturnArrays(t *testing.T) {
	s := newTestServer(t, Options{})
	s.seedProduct(t, "Green tea", 4, 1)
	s.seedProduct(t, "Black tea", 0, 1)

	w := s.do(t, http.MethodGet, "/api/v1/products/search?q=tea", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hits []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "Green tea", hits[0]["name"])
	assert.Equal(t, "2.00", hits[0]["price"])

	w = s.do(t, http.MethodGet, "/api/v1/products/search?q=", nil)
	assert.JSONEq(t, "[]", w.Body.String())
	w = s.do(t, http.MethodGet, "/api/v1/clients/search?q=", nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestProductDeleteConflict(t *testing.T) {
	s := newTestServer(t, Options{})
	p := s.seedProduct(t, "Dates", 5, 1)

	w := s.do(t, http.MethodPost, "/api/v1/invoices",
		`{"cart":[{"id":`+itoa(p.ID)+`,"price":2,"quantity":1}],"payment_method":"CASH"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/products/"+itoa(p.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLowStockExports(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodGet, "/api/v1/reports/low-stock/export.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\xEF\xBB\xBFname,stock_quantity,reorder_level,deficit\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "low_stock_report_")

	s.seedProduct(t, "Salt", 1, 5)
	w = s.do(t, http.MethodGet, "/api/v1/reports/low-stock/export.csv", nil)
	assert.True(t, strings.HasSuffix(w.Body.String(), "Salt,1,5,4\n"), w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/reports/low-stock/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = s.do(t, http.MethodGet, "/api/v1/reports/low-stock?sort_by=name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 1)
}

func TestDashboardAndNotes(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodPost, "/api/v1/notes", map[string]interface{}{"content": "order sugar", "is_important": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/v1/notes", map[string]interface{}{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Len(t, dash["recent_notes"], 1)
	assert.Equal(t, float64(0), dash["daily_invoice_count"])

	w = s.do(t, http.MethodGet, "/api/v1/reports/profit", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestWriteEndpointsAreRateLimited(t *testing.T) {
	s := newTestServer(t, Options{RateLimit: "2-M"})

	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPost, "/api/v1/invoices", `{"cart":[],"payment_method":"CASH"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := s.do(t, http.MethodPost, "/api/v1/invoices", `{"cart":[],"payment_method":"CASH"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// reads are not limited
	w = s.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvalidRateLimit(t *testing.T) {
	_, err := NewRouter(Services{}, Options{RateLimit: "lots"})
	assert.Error(t, err)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
