package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"invoice-service/internal/models"
)

// Invoice event types, published on the orders stream
const (
	InvoiceGenerated = "order.invoice_generated"
	InvoiceCleared   = "order.invoice_cleared"
)

// Publisher wraps the go-shared events publisher for invoice events
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher creates a new invoice events publisher
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		// Default to GKE internal NATS service URL
		natsURL = "nats://nats.nats.svc.cluster.local:4222"
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "invoice-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamOrders, []string{"order.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure orders stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "invoice-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishInvoiceGenerated announces that an invoice's content was stored for the first time
func (p *Publisher) PublishInvoiceGenerated(ctx context.Context, invoice *models.Invoice, order *models.OrderSnapshot, template models.TemplateType) error {
	event := p.buildInvoiceEvent(InvoiceGenerated, invoice, invoice.TenantID)
	if order != nil {
		event.OrderNumber = order.OrderNumber
		event.TotalAmount = order.Total
		event.Subtotal = order.Subtotal
		event.Tax = order.TaxTotal
		event.Currency = order.CurrencyCode
		event.CustomerEmail = order.Email
		event.ItemCount = len(order.Items)
	}
	event.Metadata["templateType"] = string(template)
	return p.publish(ctx, event)
}

// PublishInvoiceCleared announces that stored invoice content was reset
func (p *Publisher) PublishInvoiceCleared(ctx context.Context, invoice *models.Invoice) error {
	return p.publish(ctx, p.buildInvoiceEvent(InvoiceCleared, invoice, invoice.TenantID))
}

func (p *Publisher) buildInvoiceEvent(eventType string, invoice *models.Invoice, tenantID string) *events.OrderEvent {
	event := events.NewOrderEvent(eventType, tenantID)
	event.SourceID = uuid.New().String()
	event.OrderID = invoice.OrderID.String()
	event.Metadata = map[string]interface{}{
		"invoiceId":     invoice.ID.String(),
		"invoiceNumber": invoice.Number(),
		"status":        string(invoice.Status),
	}
	return event
}

// publish sends the event in the background so invoice delivery never waits on NATS
func (p *Publisher) publish(ctx context.Context, event *events.OrderEvent) error {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fields := logrus.Fields{
			"eventType": event.EventType,
			"orderID":   event.OrderID,
			"tenantID":  event.TenantID,
		}
		if err := p.publisher.PublishOrder(pubCtx, event); err != nil {
			p.logger.WithFields(fields).WithError(err).Error("Failed to publish invoice event")
			return
		}
		p.logger.WithFields(fields).Info("Invoice event published successfully")
	}()

	return nil
}
