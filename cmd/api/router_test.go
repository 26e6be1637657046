package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikidaniel85/warehouse-pbb/internal/application"
	"github.com/mikidaniel85/warehouse-pbb/internal/bootstrap"
	"github.com/mikidaniel85/warehouse-pbb/internal/config"
	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/memory"
	"github.com/mikidaniel85/warehouse-pbb/internal/infrastructure/ocr"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
	"github.com/mikidaniel85/warehouse-pbb/pkg/middleware"
)

const (
	bossEmail   = "boss@example.com"
	pickerEmail = "picker@example.com"
)

type apiHarness struct {
	t        *testing.T
	router   *gin.Engine
	services *application.Services
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{StoreTimeout: time.Second, SentinelWarehouse: domain.DefaultSentinelWarehouse}
	logger := logging.NewNop()
	backend := bootstrap.NewMemoryBackend(memory.NewStore())
	auditor := application.NewAuditRecorder(backend.Repos.Audit, 64, nil, logger)
	t.Cleanup(auditor.Close)

	services := application.NewServices(bootstrap.Dependencies(cfg, backend, auditor, nil, logger), ocr.Disabled{})
	ctx := context.Background()
	_, err := services.Warehouses.EnsureSentinel(ctx)
	require.NoError(t, err)
	_, err = services.Users.EnsureManager(ctx, bossEmail)
	require.NoError(t, err)

	router := newRouter(services, routerConfig{Ready: func() error { return backend.HealthCheck(ctx) }}, logger)
	return &apiHarness{t: t, router: router, services: services}
}

func (h *apiHarness) do(method, path, email string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set(middleware.HeaderUserEmail, email)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// seed creates a warehouse, an item and a stocked slot, and an approved puller.
func (h *apiHarness) seed(qty int) application.ReceiptDTO {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/v1/warehouses", bossEmail, gin.H{"name": "WH1"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/api/v1/items", bossEmail, gin.H{"description": "Hydraulic Valve", "internalSku": "HV-1"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	item := decode[application.ItemDTO](h.t, w)

	w = h.do(http.MethodPost, "/api/v1/locations/receive", bossEmail, gin.H{
		"itemId": item.ID, "warehouse": "wh1", "row": "01", "column": "A", "floor": "2", "quantity": qty,
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	receipt := decode[application.ReceiptDTO](h.t, w)

	w = h.do(http.MethodPost, "/api/v1/users", "", gin.H{"email": pickerEmail, "role": "puller"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(http.MethodPost, "/api/v1/users/"+pickerEmail+"/approve", bossEmail, nil)
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	return receipt
}

func TestHealthAndReadiness(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/ready", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/nope", "", nil).Code)
}

func TestIdentityIsRequired(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/v1/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/api/v1/items", "stranger@example.com", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.CodeUnauthorized, decode[middleware.APIErrorResponse](t, w).Code)

	w = h.do(http.MethodPost, "/api/v1/users", "", gin.H{"email": "new@example.com", "role": "puller"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(http.MethodGet, "/api/v1/items", "new@example.com", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unapproved users are not let in")
}

func TestReceiveNormalizesAddress(t *testing.T) {
	h := newHarness(t)
	receipt := h.seed(5)

	assert.Equal(t, "WH1", receipt.Location.Warehouse)
	assert.Equal(t, "1", receipt.Location.Row)
	assert.Equal(t, 5, receipt.Location.Quantity)

	w := h.do(http.MethodGet, "/api/v1/locations/"+receipt.Location.ID, pickerEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hydraulic Valve", decode[application.LocationDTO](t, w).ItemName)

	w = h.do(http.MethodGet, "/api/v1/locations/pull-list", pickerEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), receipt.Location.ID)
}

func TestReceiveAcceptsNumericCoordinates(t *testing.T) {
	h := newHarness(t)
	receipt := h.seed(5)

	body := json.RawMessage(`{"itemId":"` + receipt.Location.ItemID + `","warehouse":"WH1","row":1,"column":"A","floor":2.0,"quantity":3}`)
	w := h.do(http.MethodPost, "/api/v1/locations/receive", bossEmail, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	again := decode[application.ReceiptDTO](t, w)
	assert.False(t, again.Created)
	assert.Equal(t, receipt.Location.ID, again.Location.ID)
	assert.Equal(t, 8, again.Location.Quantity)

	w = h.do(http.MethodPost, "/api/v1/locations/"+receipt.Location.ID+"/relocate", bossEmail,
		json.RawMessage(`{"warehouse":"WH1","row":3,"column":"A","floor":"02"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[application.RelocationDTO](t, w)
	assert.Equal(t, "3", moved.Location.Row)
	assert.Equal(t, "2", moved.Location.Floor)
	assert.Equal(t, 8, moved.Location.Quantity)

	w = h.do(http.MethodPost, "/api/v1/locations/receive", bossEmail,
		json.RawMessage(`{"itemId":"`+receipt.Location.ItemID+`","warehouse":"WH1","row":true,"column":"A","floor":2,"quantity":1}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestWorkflowOverHTTP(t *testing.T) {
	h := newHarness(t)
	receipt := h.seed(5)

	w := h.do(http.MethodPost, "/api/v1/requests", pickerEmail, gin.H{"locationId": receipt.Location.ID, "quantity": 8})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	req := decode[application.RequestDTO](t, w)
	assert.Equal(t, "pending", req.Status)

	w = h.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/approve", pickerEmail, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, "/api/v1/requests/pending/count", bossEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[application.CountDTO](t, w).Count)

	w = h.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/approve", bossEmail, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approval := decode[application.ApprovalDTO](t, w)
	assert.Equal(t, 5, approval.Applied)
	assert.Equal(t, 3, approval.Shortfall)
	assert.Equal(t, 0, approval.Location.Quantity)

	w = h.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/reject", bossEmail, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.CodeInvalidState, decode[middleware.APIErrorResponse](t, w).Code)
}

func TestValidationErrors(t *testing.T) {
	h := newHarness(t)
	receipt := h.seed(5)

	w := h.do(http.MethodPost, "/api/v1/items", bossEmail, gin.H{"description": "No SKU"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[middleware.APIErrorResponse](t, w)
	assert.Equal(t, errors.CodeValidationError, resp.Code)
	assert.Equal(t, "is required", resp.Details["internalSku"])

	w = h.do(http.MethodPost, "/api/v1/requests", pickerEmail, gin.H{"locationId": receipt.Location.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/users", "", gin.H{"email": "x@example.com", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/v1/requests?status=done", bossEmail, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportItemsFromCSV(t *testing.T) {
	h := newHarness(t)

	body := "description,internal_sku\nValve,V1\nHose,H1\nValve again,V1\n,X9\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/items/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set(middleware.HeaderUserEmail, bossEmail)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[application.ImportResultDTO](t, w)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Invalid)
}

func TestSearchEndpoints(t *testing.T) {
	h := newHarness(t)
	h.seed(5)

	w := h.do(http.MethodGet, "/api/v1/search?q=valve", pickerEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[application.SearchResultDTO](t, w)
	assert.Len(t, res.Locations, 1)
	assert.Len(t, res.Items, 1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "label.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.HeaderUserEmail, pickerEmail)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	imageRes := decode[application.SearchResultDTO](t, rec)
	assert.Empty(t, imageRes.Locations, "nothing recognized yields no candidates")
}

func TestWarehouseDeleteMovesStockToSentinel(t *testing.T) {
	h := newHarness(t)
	receipt := h.seed(5)

	w := h.do(http.MethodGet, "/api/v1/warehouses", bossEmail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Warehouses []application.WarehouseDTO `json:"warehouses"`
	}](t, w)

	var wh1 string
	for _, wh := range list.Warehouses {
		if wh.Name == "WH1" {
			wh1 = wh.ID
		}
	}
	require.NotEmpty(t, wh1)

	w = h.do(http.MethodDelete, "/api/v1/warehouses/"+wh1, bossEmail, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	change := decode[application.WarehouseChangeDTO](t, w)
	assert.Equal(t, domain.DefaultSentinelWarehouse, change.TargetName)
	assert.Equal(t, 1, change.MovedLocations)

	w = h.do(http.MethodGet, "/api/v1/locations/"+receipt.Location.ID, bossEmail, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "slot key changes with its warehouse")

	w = h.do(http.MethodDelete, "/api/v1/warehouses/"+domain.SentinelWarehouseID, bossEmail, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestActivityIsManagerOnly(t *testing.T) {
	h := newHarness(t)
	h.seed(1)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/activity", pickerEmail, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/activity?limit=10", bossEmail, nil).Code)
}
