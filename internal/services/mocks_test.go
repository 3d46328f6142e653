package services

import (
	"context"
	"io"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"invoice-service/internal/assets"
	"invoice-service/internal/clients"
	"invoice-service/internal/content"
	"invoice-service/internal/models"
	"invoice-service/internal/repository"
)

// MockResolver is a mock implementation of assets.Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, url string) (*assets.InlineImage, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assets.InlineImage), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of repository.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) SaveContentIfEmpty(ctx context.Context, tenantID string, id uuid.UUID, data []byte) (bool, error) {
	args := m.Called(ctx, tenantID, id, data)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) ClearContent(ctx context.Context, tenantID string, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SetDocumentID(ctx context.Context, tenantID string, id uuid.UUID, documentID string) error {
	args := m.Called(ctx, tenantID, id, documentID)
	return args.Error(0)
}

// MockInvoiceConfigRepository is a mock implementation of repository.InvoiceConfigRepository
type MockInvoiceConfigRepository struct {
	mock.Mock
}

func (m *MockInvoiceConfigRepository) GetFirst(ctx context.Context, tenantID string) (*models.InvoiceConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceConfig), args.Error(1)
}

func (m *MockInvoiceConfigRepository) Create(ctx context.Context, config *models.InvoiceConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockInvoiceConfigRepository) Update(ctx context.Context, config *models.InvoiceConfig) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockInvoiceConfigRepository) InvalidateCache(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockInvoiceConfigRepository) CacheStats() *cache.CacheStats {
	return nil
}

// MockOrdersClient is a mock implementation of clients.OrdersClient
type MockOrdersClient struct {
	mock.Mock
}

func (m *MockOrdersClient) GetOrderSnapshot(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.OrderSnapshot, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderSnapshot), args.Error(1)
}

// MockConfigProvider is a mock implementation of ConfigProvider
type MockConfigProvider struct {
	mock.Mock
}

func (m *MockConfigProvider) GetActiveConfig(ctx context.Context, tenantID string) (*models.InvoiceConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InvoiceConfig), args.Error(1)
}

// MockPDFCache is a mock implementation of repository.PDFCache
type MockPDFCache struct {
	mock.Mock
}

func (m *MockPDFCache) Get(ctx context.Context, invoiceID uuid.UUID, data []byte) ([]byte, bool, error) {
	args := m.Called(ctx, invoiceID, data)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockPDFCache) Set(ctx context.Context, invoiceID uuid.UUID, data []byte, pdf []byte) error {
	args := m.Called(ctx, invoiceID, data, pdf)
	return args.Error(0)
}

func (m *MockPDFCache) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockEventPublisher is a mock implementation of InvoiceEventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishInvoiceGenerated(ctx context.Context, invoice *models.Invoice, order *models.OrderSnapshot, template models.TemplateType) error {
	args := m.Called(ctx, invoice, order, template)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishInvoiceCleared(ctx context.Context, invoice *models.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockDocumentClient is a mock implementation of clients.DocumentClient
type MockDocumentClient struct {
	mock.Mock
}

func (m *MockDocumentClient) UploadDocument(ctx context.Context, req *clients.DocumentUploadRequest) (*clients.DocumentUploadResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.DocumentUploadResponse), args.Error(1)
}

// stubRenderer writes fixed bytes or fails
type stubRenderer struct {
	out   []byte
	err   error
	calls int
}

func (r *stubRenderer) Render(ctx context.Context, tree content.Tree, w io.Writer) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	_, err := w.Write(r.out)
	return err
}

var (
	_ assets.Resolver                    = (*MockResolver)(nil)
	_ repository.InvoiceRepository       = (*MockInvoiceRepository)(nil)
	_ repository.InvoiceConfigRepository = (*MockInvoiceConfigRepository)(nil)
	_ repository.PDFCache                = (*MockPDFCache)(nil)
	_ clients.OrdersClient               = (*MockOrdersClient)(nil)
	_ clients.DocumentClient             = (*MockDocumentClient)(nil)
	_ ConfigProvider                     = (*MockConfigProvider)(nil)
	_ InvoiceEventPublisher              = (*MockEventPublisher)(nil)
)
