package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"invoice-service/internal/clients"
	"invoice-service/internal/content"
	"invoice-service/internal/models"
	"invoice-service/internal/renderer"
	"invoice-service/internal/repository"
)

// InvoiceService defines the business logic for invoice generation
type InvoiceService interface {
	CreateInvoice(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.Invoice, error)
	GetInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error)
	// GetContent returns the stored content tree, building and storing it on first use
	GetContent(ctx context.Context, tenantID string, invoiceID uuid.UUID) (content.Tree, error)
	// RenderPDF returns the PDF bytes of the invoice
	RenderPDF(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]byte, *models.Invoice, error)
	// ClearContent drops the stored content so the next request rebuilds it
	ClearContent(ctx context.Context, tenantID string, invoiceID uuid.UUID) error
}

// ConfigProvider returns the authoritative invoice configuration of a tenant
type ConfigProvider interface {
	GetActiveConfig(ctx context.Context, tenantID string) (*models.InvoiceConfig, error)
}

// InvoiceEventPublisher publishes invoice lifecycle events
type InvoiceEventPublisher interface {
	PublishInvoiceGenerated(ctx context.Context, invoice *models.Invoice, order *models.OrderSnapshot, template models.TemplateType) error
	PublishInvoiceCleared(ctx context.Context, invoice *models.Invoice) error
}

// InvoiceServiceDeps wires an invoice service. Cache, Locker, Publisher and
// Documents are optional.
type InvoiceServiceDeps struct {
	Invoices      repository.InvoiceRepository
	Configs       ConfigProvider
	Orders        clients.OrdersClient
	Builder       *InvoiceBuilder
	Renderer      renderer.Renderer
	Cache         repository.PDFCache
	Locker        repository.ContentLocker
	Publisher     InvoiceEventPublisher
	Documents     clients.DocumentClient
	ArchiveBucket string
	Logger        *logrus.Logger
}

type invoiceService struct {
	invoices      repository.InvoiceRepository
	configs       ConfigProvider
	orders        clients.OrdersClient
	builder       *InvoiceBuilder
	renderer      renderer.Renderer
	cache         repository.PDFCache
	locker        repository.ContentLocker
	publisher     InvoiceEventPublisher
	documents     clients.DocumentClient
	archiveBucket string
	logger        *logrus.Entry
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(deps InvoiceServiceDeps) InvoiceService {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &invoiceService{
		invoices:      deps.Invoices,
		configs:       deps.Configs,
		orders:        deps.Orders,
		builder:       deps.Builder,
		renderer:      deps.Renderer,
		cache:         deps.Cache,
		locker:        deps.Locker,
		publisher:     deps.Publisher,
		documents:     deps.Documents,
		archiveBucket: deps.ArchiveBucket,
		logger:        logger.WithField("component", "invoice_service"),
	}
}

// generation is the outcome of loading or building an invoice's content.
type generation struct {
	invoice  *models.Invoice
	order    *models.OrderSnapshot
	template models.TemplateType
	tree     content.Tree
	data     []byte
	fresh    bool // built in this call and not yet stored
}

// CreateInvoice issues a new invoice for an order
func (s *invoiceService) CreateInvoice(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.Invoice, error) {
	if _, err := s.loadOrder(ctx, tenantID, orderID); err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		TenantID: tenantID,
		OrderID:  orderID,
		Status:   models.InvoiceStatusIssued,
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"invoice_id": invoice.ID,
		"order_id":   orderID,
		"number":     invoice.Number(),
	}).Info("Invoice created")
	return invoice, nil
}

// GetInvoice returns invoice metadata
func (s *invoiceService) GetInvoice(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *invoiceService) GetContent(ctx context.Context, tenantID string, invoiceID uuid.UUID) (content.Tree, error) {
	gen, release, err := s.prepare(ctx, tenantID, invoiceID)
	if err != nil {
		return content.Tree{}, err
	}
	defer release()

	if gen.fresh {
		if gen, err = s.persist(ctx, gen); err != nil {
			return content.Tree{}, err
		}
	}
	return gen.tree, nil
}

// RenderPDF renders before storing fresh content so a renderer failure leaves
// the invoice without content and a retry can rebuild it.
func (s *invoiceService) RenderPDF(ctx context.Context, tenantID string, invoiceID uuid.UUID) ([]byte, *models.Invoice, error) {
	gen, release, err := s.prepare(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	pdf, err := s.render(ctx, gen)
	if err != nil {
		return nil, nil, err
	}

	if gen.fresh {
		built := gen.data
		if gen, err = s.persist(ctx, gen); err != nil {
			return nil, nil, err
		}
		// Another writer stored different content first; serve that instead.
		if !bytes.Equal(built, gen.data) {
			if pdf, err = s.render(ctx, gen); err != nil {
				return nil, nil, err
			}
		}
	}

	s.archive(ctx, gen.invoice, pdf)
	return pdf, gen.invoice, nil
}

func (s *invoiceService) ClearContent(ctx context.Context, tenantID string, invoiceID uuid.UUID) error {
	invoice, err := s.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}
	if err := s.invoices.ClearContent(ctx, tenantID, invoiceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"invoice_id": invoiceID,
	}).Info("Invoice content cleared")

	if s.publisher != nil {
		if err := s.publisher.PublishInvoiceCleared(ctx, invoice); err != nil {
			s.logger.WithError(err).Warn("Failed to publish invoice cleared event")
		}
	}
	return nil
}

// prepare loads the invoice and returns its stored content, or builds fresh
// content when none is stored. The returned release func must always be called.
func (s *invoiceService) prepare(ctx context.Context, tenantID string, invoiceID uuid.UUID) (*generation, func(), error) {
	noop := func() {}

	invoice, err := s.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, noop, err
	}
	if invoice.HasContent() {
		gen, err := stored(invoice)
		return gen, noop, err
	}

	release := s.lock(ctx, invoiceID)

	// The lock holder before us may have stored content already.
	if s.locker != nil {
		if invoice, err = s.GetInvoice(ctx, tenantID, invoiceID); err != nil {
			release()
			return nil, noop, err
		}
		if invoice.HasContent() {
			gen, err := stored(invoice)
			if err != nil {
				release()
				return nil, noop, err
			}
			return gen, release, nil
		}
	}

	gen, err := s.build(ctx, invoice)
	if err != nil {
		release()
		return nil, noop, err
	}
	return gen, release, nil
}

func stored(invoice *models.Invoice) (*generation, error) {
	tree, err := content.Unmarshal(invoice.PDFContent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	// jsonb does not keep the bytes as written, so re-encode to get the
	// same canonical form the cache key was built from.
	data, err := content.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return &generation{invoice: invoice, tree: tree, data: data}, nil
}

// lock takes the per-invoice Redis lock when available. Lock failures fall
// back to the compare-and-set on the content column.
func (s *invoiceService) lock(ctx context.Context, invoiceID uuid.UUID) func() {
	if s.locker == nil {
		return func() {}
	}
	unlock, err := s.locker.Lock(ctx, invoiceID)
	if err != nil {
		s.logger.WithError(err).WithField("invoice_id", invoiceID).Warn("Proceeding without invoice content lock")
		return func() {}
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = unlock(releaseCtx)
	}
}

func (s *invoiceService) build(ctx context.Context, invoice *models.Invoice) (*generation, error) {
	var (
		order *models.OrderSnapshot
		cfg   *models.InvoiceConfig
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.loadOrder(gctx, invoice.TenantID, invoice.OrderID)
		return err
	})
	g.Go(func() error {
		var err error
		cfg, err = s.configs.GetActiveConfig(gctx, invoice.TenantID)
		if err != nil {
			return fmt.Errorf("%w: load config: %v", ErrGenerationFailed, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree, err := s.builder.Build(ctx, order, invoice, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	data, err := content.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	template := models.TemplateDefault
	if cfg.IsGST() {
		template = models.TemplateIndianGST
	}
	return &generation{
		invoice:  invoice,
		order:    order,
		template: template,
		tree:     tree,
		data:     data,
		fresh:    true,
	}, nil
}

func (s *invoiceService) loadOrder(ctx context.Context, tenantID string, orderID uuid.UUID) (*models.OrderSnapshot, error) {
	order, err := s.orders.GetOrderSnapshot(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, clients.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: load order: %v", ErrGenerationFailed, err)
	}
	return order, nil
}

// persist stores fresh content exactly once. When another writer won the
// race the stored content is returned instead.
func (s *invoiceService) persist(ctx context.Context, gen *generation) (*generation, error) {
	invoice := gen.invoice
	written, err := s.invoices.SaveContentIfEmpty(ctx, invoice.TenantID, invoice.ID, gen.data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if !written {
		current, err := s.GetInvoice(ctx, invoice.TenantID, invoice.ID)
		if err != nil {
			return nil, err
		}
		if !current.HasContent() {
			return nil, fmt.Errorf("%w: content was cleared concurrently", ErrGenerationFailed)
		}
		return stored(current)
	}

	invoice.PDFContent = models.JSONB(gen.data)
	gen.fresh = false

	s.logger.WithFields(logrus.Fields{
		"tenant_id":  invoice.TenantID,
		"invoice_id": invoice.ID,
		"template":   gen.template,
	}).Info("Invoice content generated")

	if s.publisher != nil {
		if err := s.publisher.PublishInvoiceGenerated(ctx, invoice, gen.order, gen.template); err != nil {
			s.logger.WithError(err).Warn("Failed to publish invoice generated event")
		}
	}
	return gen, nil
}

func (s *invoiceService) render(ctx context.Context, gen *generation) ([]byte, error) {
	invoiceID := gen.invoice.ID

	if s.cache != nil {
		pdf, ok, err := s.cache.Get(ctx, invoiceID, gen.data)
		if err != nil {
			s.logger.WithError(err).WithField("invoice_id", invoiceID).Warn("PDF cache read failed")
		} else if ok {
			return pdf, nil
		}
	}

	pdf, err := renderer.Collect(ctx, s.renderer, gen.tree)
	if err != nil {
		s.logger.WithError(err).WithField("invoice_id", invoiceID).Error("Failed to render invoice PDF")
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, invoiceID, gen.data, pdf); err != nil {
			s.logger.WithError(err).WithField("invoice_id", invoiceID).Warn("PDF cache write failed")
		}
	}
	return pdf, nil
}

// archive uploads the PDF to document-service once per stored content.
func (s *invoiceService) archive(ctx context.Context, invoice *models.Invoice, pdf []byte) {
	if s.documents == nil || s.archiveBucket == "" || invoice.DocumentID != "" {
		return
	}

	resp, err := s.documents.UploadDocument(ctx, &clients.DocumentUploadRequest{
		TenantID:    invoice.TenantID,
		Bucket:      s.archiveBucket,
		Path:        fmt.Sprintf("%s/invoices/%s", invoice.TenantID, invoice.ID),
		Filename:    PDFFilename(invoice),
		ContentType: "application/pdf",
		Data:        pdf,
		Tags:        map[string]string{"invoiceNumber": invoice.Number()},
		EntityType:  "invoice",
		EntityID:    invoice.ID.String(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Failed to archive invoice PDF")
		return
	}

	if err := s.invoices.SetDocumentID(ctx, invoice.TenantID, invoice.ID, resp.ID); err != nil {
		s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Failed to record archived document id")
		return
	}
	invoice.DocumentID = resp.ID
}

// PDFFilename is the download name of an invoice, e.g. invoice-INV-000007.pdf
func PDFFilename(invoice *models.Invoice) string {
	return fmt.Sprintf("invoice-%s.pdf", invoice.Number())
}
