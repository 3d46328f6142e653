package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"invoice-service/internal/models"
)

func TestBuildInvoiceEvent(t *testing.T) {
	p := &Publisher{}
	invoice := &models.Invoice{
		ID:        uuid.New(),
		TenantID:  "tenant-1",
		DisplayID: 12,
		OrderID:   uuid.New(),
		Status:    models.InvoiceStatusIssued,
		CreatedAt: time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
	}

	event := p.buildInvoiceEvent(InvoiceCleared, invoice, invoice.TenantID)

	assert.EqualValues(t, InvoiceCleared, event.EventType)
	assert.EqualValues(t, "tenant-1", event.TenantID)
	assert.Equal(t, invoice.OrderID.String(), event.OrderID)
	assert.NotEmpty(t, event.SourceID)
	assert.Equal(t, invoice.ID.String(), event.Metadata["invoiceId"])
	assert.Equal(t, "INV-000012", event.Metadata["invoiceNumber"])
	assert.Equal(t, "issued", event.Metadata["status"])
}

func TestInvoiceEventTypesUseOrdersStream(t *testing.T) {
	for _, eventType := range []string{InvoiceGenerated, InvoiceCleared} {
		assert.Regexp(t, `^order\.`, eventType)
	}
}
