package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoice-service/internal/content"
	"invoice-service/internal/middleware"
	"invoice-service/internal/models"
	"invoice-service/internal/services"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) CreateInvoice(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) GetContent(ctx context.Context, tenantID string, invoiceID uuid.UUID) (content.Tree, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).(content.Tree), args.Error(1)
}

func (m *MockInvoiceService) RenderPDF(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]byte, *models.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]byte), args.Get(1).(*models.Invoice), args.Error(2)
}

func (m *MockInvoiceService) ClearContent(ctx context.Context, tenantID string, invoiceID uuid.UUID) error {
	return m.Called(ctx, tenantID, invoiceID).Error(0)
}

type MockInvoiceConfigService struct {
	mock.Mock
}

func (m *MockInvoiceConfigService) GetActiveConfig(ctx context.Context, tenantID string) (*models.InvoiceConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceConfig), args.Error(1)
}

func (m *MockInvoiceConfigService) UpdateConfig(ctx context.Context, tenantID string, req *models.InvoiceConfigUpdateRequest) (*models.InvoiceConfig, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceConfig), args.Error(1)
}

var (
	_ services.InvoiceService       = (*MockInvoiceService)(nil)
	_ services.InvoiceConfigService = (*MockInvoiceConfigService)(nil)
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupRouter(invoices services.InvoiceService, configs services.InvoiceConfigService) *gin.Engine {
	logger := testLogger()
	invoiceHandler := NewInvoiceHandler(invoices, logger)
	configHandler := NewInvoiceConfigHandler(configs, logger)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.RequireTenantID())
	api.POST("/invoices", invoiceHandler.CreateInvoice)
	api.GET("/invoices/:id", invoiceHandler.GetInvoice)
	api.GET("/invoices/:id/content", invoiceHandler.GetInvoiceContent)
	api.GET("/invoices/:id/pdf", invoiceHandler.DownloadInvoicePDF)
	api.DELETE("/invoices/:id/content", invoiceHandler.ClearInvoiceContent)
	api.GET("/settings/invoice", configHandler.GetConfig)
	api.PUT("/settings/invoice", configHandler.UpdateConfig)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateInvoice(t *testing.T) {
	invoices := new(MockInvoiceService)
	orderID := uuid.New()
	invoices.On("CreateInvoice", mock.Anything, "tenant-1", orderID).
		Return(&models.Invoice{ID: uuid.New(), TenantID: "tenant-1", OrderID: orderID, DisplayID: 1, Status: models.InvoiceStatusIssued}, nil)
	router := setupRouter(invoices, new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodPost, "/api/v1/invoices", gin.H{"orderId": orderID.String()})

	assert.Equal(t, http.StatusCreated, w.Code)
	var invoice models.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoice))
	assert.Equal(t, orderID, invoice.OrderID)
}

func TestCreateInvoice_InvalidBody(t *testing.T) {
	router := setupRouter(new(MockInvoiceService), new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodPost, "/api/v1/invoices", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Error)
}

func TestCreateInvoice_OrderNotFound(t *testing.T) {
	invoices := new(MockInvoiceService)
	orderID := uuid.New()
	invoices.On("CreateInvoice", mock.Anything, "tenant-1", orderID).
		Return(nil, fmt.Errorf("%w: %s", services.ErrOrderNotFound, orderID))
	router := setupRouter(invoices, new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodPost, "/api/v1/invoices", gin.H{"orderId": orderID.String()})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", decodeError(t, w).Error)
}

func TestMissingTenant(t *testing.T) {
	router := setupRouter(new(MockInvoiceService), new(MockInvoiceConfigService))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetInvoice_InvalidID(t *testing.T) {
	router := setupRouter(new(MockInvoiceService), new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INVOICE_ID", decodeError(t, w).Error)
}

func TestGetInvoice_NotFound(t *testing.T) {
	invoices := new(MockInvoiceService)
	id := uuid.New()
	invoices.On("GetInvoice", mock.Anything, "tenant-1", id).Return(nil, services.ErrInvoiceNotFound)
	router := setupRouter(invoices, new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodGet, "/api/v1/invoices/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INVOICE_NOT_FOUND", decodeError(t, w).Error)
}

func TestGetInvoiceContent(t *testing.T) {
	invoices := new(MockInvoiceService)
	id := uuid.New()
	tree := content.Tree{Version: 1, Page: content.Page{Size: "A4", Blocks: content.Nodes{content.Text{Value: "INVOICE"}}}}
	invoices.On("GetContent", mock.Anything, "tenant-1", id).Return(tree, nil)
	router := setupRouter(invoices, new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodGet, "/api/v1/invoices/"+id.String()+"/content", nil)

	require.Equal(t, http.StatusOK, w.Code)
	got, err := content.Unmarshal(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"INVOICE"}, content.Texts(got))
}

func TestGetInvoiceContent_GenerationFailureHidesCause(t *testing.T) {
	invoices := new(MockInvoiceService)
	id := uuid.New()
	invoices.On("GetContent", mock.Anything, "tenant-1", id).
		Return(content.Tree{}, fmt.Errorf("%w: dial tcp 10.0.0.5:5432: connection refused", services.ErrGenerationFailed))
	router := setupRouter(invoices, new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodGet, "/api/v1/invoices/"+id.String()+"/content", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "GENERATION_FAILED", resp.Error)
	assert.Equal(t, "could not generate invoice", resp.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
}

func TestDownloadInvoicePDF(t *testing.T) {
	invoices := new(MockInvoiceService)
	id := uuid.New()
	invoices.On("RenderPDF", mock.Anything, "tenant-1", id).
		Return([]byte("%PDF-1.4"), &models.Invoice{ID: id, DisplayID: 7}, nil)
	router := setupRouter(invoices, new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodGet, "/api/v1/invoices/"+id.String()+"/pdf", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-INV-000007.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", w.Body.String())
}

func TestClearInvoiceContent(t *testing.T) {
	invoices := new(MockInvoiceService)
	id := uuid.New()
	invoices.On("ClearContent", mock.Anything, "tenant-1", id).Return(nil)
	router := setupRouter(invoices, new(MockInvoiceConfigService))

	w := doRequest(router, http.MethodDelete, "/api/v1/invoices/"+id.String()+"/content", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	invoices.AssertExpectations(t)
}

func TestGetConfig_DefaultsWhenMissing(t *testing.T) {
	configs := new(MockInvoiceConfigService)
	configs.On("GetActiveConfig", mock.Anything, "tenant-1").Return(nil, nil)
	router := setupRouter(new(MockInvoiceService), configs)

	w := doRequest(router, http.MethodGet, "/api/v1/settings/invoice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var cfg models.InvoiceConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, models.DefaultCompanyName, cfg.CompanyName)
	assert.Equal(t, models.TemplateDefault, cfg.TemplateType)
}

func TestUpdateConfig(t *testing.T) {
	configs := new(MockInvoiceConfigService)
	configs.On("UpdateConfig", mock.Anything, "tenant-1", mock.MatchedBy(func(req *models.InvoiceConfigUpdateRequest) bool {
		return req.CompanyName != nil && *req.CompanyName == "Acme" && req.TemplateType == nil
	})).Return(&models.InvoiceConfig{TenantID: "tenant-1", CompanyName: "Acme"}, nil)
	router := setupRouter(new(MockInvoiceService), configs)

	w := doRequest(router, http.MethodPut, "/api/v1/settings/invoice", gin.H{"companyName": "Acme"})

	assert.Equal(t, http.StatusOK, w.Code)
	configs.AssertExpectations(t)
}

func TestUpdateConfig_Errors(t *testing.T) {
	t.Run("unknown template is rejected by binding", func(t *testing.T) {
		router := setupRouter(new(MockInvoiceService), new(MockInvoiceConfigService))

		w := doRequest(router, http.MethodPut, "/api/v1/settings/invoice", gin.H{"templateType": "fancy"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_REQUEST", decodeError(t, w).Error)
	})

	t.Run("invalid merged config", func(t *testing.T) {
		configs := new(MockInvoiceConfigService)
		configs.On("UpdateConfig", mock.Anything, "tenant-1", mock.Anything).
			Return(nil, fmt.Errorf("%w: GSTIN is required", services.ErrInvalidConfig))
		router := setupRouter(new(MockInvoiceService), configs)

		w := doRequest(router, http.MethodPut, "/api/v1/settings/invoice", gin.H{"templateType": "indian_gst"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_CONFIG", decodeError(t, w).Error)
	})

	t.Run("persistence failure", func(t *testing.T) {
		configs := new(MockInvoiceConfigService)
		configs.On("UpdateConfig", mock.Anything, "tenant-1", mock.Anything).Return(nil, errors.New("deadlock detected"))
		router := setupRouter(new(MockInvoiceService), configs)

		w := doRequest(router, http.MethodPut, "/api/v1/settings/invoice", gin.H{"companyName": "Acme"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "deadlock")
	})
}

func TestHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)
	router.GET("/ready", NewHealthHandler(nil, nil).ReadinessCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), serviceName)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["checks"].(map[string]interface{})["redis"].(map[string]interface{})["status"])
}
