package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"invoice-service/internal/middleware"
	"invoice-service/internal/models"
	"invoice-service/internal/services"
)

// ErrorResponse is the error body of every endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// InvoiceHandler handles HTTP requests for invoices
type InvoiceHandler struct {
	invoiceService services.InvoiceService
	logger         *logrus.Entry
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService services.InvoiceService, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger.WithField("component", "invoice_handler"),
	}
}

// getTenantID extracts tenant ID from context
// SECURITY: RequireTenantID middleware ensures this is always set
func getTenantID(c *gin.Context) (string, bool) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "MISSING_TENANT_ID",
			Message: "X-Tenant-ID header is required",
		})
		return "", false
	}
	return tenantID, true
}

func parseInvoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_INVOICE_ID",
			Message: "Invoice ID must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors to HTTP responses. Generation failures
// never expose the underlying cause.
func (h *InvoiceHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "INVOICE_NOT_FOUND", Message: "Invoice not found"})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ORDER_NOT_FOUND", Message: "Order not found"})
	case errors.Is(err, services.ErrGenerationFailed):
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Invoice generation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "GENERATION_FAILED", Message: services.ErrGenerationFailed.Error()})
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Invoice request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL_ERROR", Message: "Internal server error"})
	}
}

// CreateInvoice issues an invoice for an order
// @Summary Create an invoice
// @Description Issue a new invoice for an existing order
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoice body models.CreateInvoiceRequest true "Invoice creation request"
// @Success 201 {object} models.Invoice
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), tenantID, req.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// GetInvoice returns invoice metadata
// @Summary Get invoice by ID
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} models.Invoice
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	invoiceID, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// GetInvoiceContent returns the document content tree of an invoice
// @Summary Get invoice content
// @Description Returns the layout tree the PDF is rendered from. Built and stored on first request.
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} content.Tree
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /invoices/{id}/content [get]
func (h *InvoiceHandler) GetInvoiceContent(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	invoiceID, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	tree, err := h.invoiceService.GetContent(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tree)
}

// DownloadInvoicePDF returns the rendered invoice
// @Summary Download invoice PDF
// @Tags invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) DownloadInvoicePDF(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	invoiceID, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	pdf, invoice, err := h.invoiceService.RenderPDF(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", services.PDFFilename(invoice)))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ClearInvoiceContent drops the stored content so the next request rebuilds it
// @Summary Clear stored invoice content
// @Tags invoices
// @Param id path string true "Invoice ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /invoices/{id}/content [delete]
func (h *InvoiceHandler) ClearInvoiceContent(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}
	invoiceID, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	if err := h.invoiceService.ClearContent(c.Request.Context(), tenantID, invoiceID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
