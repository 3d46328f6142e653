package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusIssued InvoiceStatus = "issued"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

// Invoice is an issued invoice for an order. PDFContent holds the serialized
// content tree and is written once.
type Invoice struct {
	ID         uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID   string        `json:"tenantId" gorm:"type:varchar(255);not null;uniqueIndex:idx_invoices_tenant_display"`
	DisplayID  int64         `json:"displayId" gorm:"not null;uniqueIndex:idx_invoices_tenant_display"`
	OrderID    uuid.UUID     `json:"orderId" gorm:"type:uuid;not null;index:idx_invoices_order"`
	Status     InvoiceStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	PDFContent JSONB         `json:"-" gorm:"type:jsonb"`

	// Set when the rendered PDF has been archived to the document service
	DocumentID string `json:"documentId,omitempty" gorm:"type:varchar(255)"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the table name for Invoice
func (Invoice) TableName() string {
	return "invoices"
}

// Number returns the display number, e.g. INV-000007.
func (i *Invoice) Number() string {
	return FormatInvoiceNumber(i.DisplayID)
}

// HasContent reports whether the content tree has been persisted.
func (i *Invoice) HasContent() bool {
	return !i.PDFContent.IsEmpty()
}

// FormatInvoiceNumber formats a display id as INV- plus six digits.
func FormatInvoiceNumber(displayID int64) string {
	return fmt.Sprintf("INV-%06d", displayID)
}

// CreateInvoiceRequest is the body of POST /invoices.
type CreateInvoiceRequest struct {
	OrderID uuid.UUID `json:"orderId" binding:"required"`
}
