package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoice-service/internal/models"
	"invoice-service/internal/services"
)

// InvoiceConfigHandler handles the tenant's invoice settings
type InvoiceConfigHandler struct {
	configService services.InvoiceConfigService
	logger        *logrus.Entry
}

// NewInvoiceConfigHandler creates a new invoice settings handler
func NewInvoiceConfigHandler(configService services.InvoiceConfigService, logger *logrus.Logger) *InvoiceConfigHandler {
	return &InvoiceConfigHandler{
		configService: configService,
		logger:        logger.WithField("component", "invoice_config_handler"),
	}
}

// GetConfig returns the active invoice configuration
// @Summary Get invoice settings
// @Description Returns the tenant's invoice configuration, or defaults when none is stored
// @Tags settings
// @Produce json
// @Success 200 {object} models.InvoiceConfig
// @Failure 500 {object} ErrorResponse
// @Router /settings/invoice [get]
func (h *InvoiceConfigHandler) GetConfig(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	cfg, err := h.configService.GetActiveConfig(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.WithError(err).WithField("tenant_id", tenantID).Error("Failed to load invoice config")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Message: "Failed to load invoice settings",
		})
		return
	}
	if cfg == nil {
		cfg = &models.InvoiceConfig{
			TenantID:     tenantID,
			CompanyName:  models.DefaultCompanyName,
			TemplateType: models.TemplateDefault,
		}
	}

	c.JSON(http.StatusOK, cfg)
}

// UpdateConfig applies a partial update to the invoice configuration
// @Summary Update invoice settings
// @Tags settings
// @Accept json
// @Produce json
// @Param config body models.InvoiceConfigUpdateRequest true "Fields to update"
// @Success 200 {object} models.InvoiceConfig
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /settings/invoice [put]
func (h *InvoiceConfigHandler) UpdateConfig(c *gin.Context) {
	tenantID, ok := getTenantID(c)
	if !ok {
		return
	}

	var req models.InvoiceConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	cfg, err := h.configService.UpdateConfig(c.Request.Context(), tenantID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "INVALID_CONFIG",
				Message: err.Error(),
			})
			return
		}
		h.logger.WithError(err).WithField("tenant_id", tenantID).Error("Failed to update invoice config")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "INTERNAL_ERROR",
			Message: "Failed to update invoice settings",
		})
		return
	}

	c.JSON(http.StatusOK, cfg)
}
