package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-service/internal/models"
)

// InvoiceRepository defines the interface for invoice data operations
type InvoiceRepository interface {
	// Create assigns the next display id for the tenant and inserts the invoice
	Create(ctx context.Context, invoice *models.Invoice) error
	// GetByID returns nil without error when the invoice does not exist
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Invoice, error)
	// SaveContentIfEmpty stores the content tree only when none is stored yet
	// and reports whether this call wrote it
	SaveContentIfEmpty(ctx context.Context, tenantID string, id uuid.UUID, content []byte) (bool, error)
	ClearContent(ctx context.Context, tenantID string, id uuid.UUID) error
	SetDocumentID(ctx context.Context, tenantID string, id uuid.UUID, documentID string) error
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusDraft
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize numbering per tenant for the lifetime of the transaction
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "invoices:"+invoice.TenantID).Error; err != nil {
			return err
		}

		var last int64
		if err := tx.Unscoped().Model(&models.Invoice{}).
			Where("tenant_id = ?", invoice.TenantID).
			Select("COALESCE(MAX(display_id), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		invoice.DisplayID = last + 1

		return tx.Create(invoice).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) SaveContentIfEmpty(ctx context.Context, tenantID string, id uuid.UUID, content []byte) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("tenant_id = ? AND id = ? AND pdf_content IS NULL", tenantID, id).
		Update("pdf_content", models.JSONB(content))
	if res.Error != nil {
		return false, fmt.Errorf("failed to save invoice content: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *invoiceRepository) ClearContent(ctx context.Context, tenantID string, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]interface{}{"pdf_content": gorm.Expr("NULL"), "document_id": ""})
	if res.Error != nil {
		return fmt.Errorf("failed to clear invoice content: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepository) SetDocumentID(ctx context.Context, tenantID string, id uuid.UUID, documentID string) error {
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("document_id", documentID).Error
	if err != nil {
		return fmt.Errorf("failed to set invoice document id: %w", err)
	}
	return nil
}
