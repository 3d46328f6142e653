package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"invoice-service/internal/models"
	"invoice-service/internal/repository"
)

// InvoiceConfigService manages the tenant's invoice settings
type InvoiceConfigService interface {
	ConfigProvider
	UpdateConfig(ctx context.Context, tenantID string, req *models.InvoiceConfigUpdateRequest) (*models.InvoiceConfig, error)
}

type invoiceConfigService struct {
	repo     repository.InvoiceConfigRepository
	validate *validator.Validate
	logger   *logrus.Entry
}

// NewInvoiceConfigService creates a new invoice configuration service
func NewInvoiceConfigService(repo repository.InvoiceConfigRepository, logger *logrus.Logger) InvoiceConfigService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &invoiceConfigService{
		repo:     repo,
		validate: validator.New(),
		logger:   logger.WithField("component", "invoice_config_service"),
	}
}

// GetActiveConfig returns the oldest configuration of the tenant, or nil
func (s *invoiceConfigService) GetActiveConfig(ctx context.Context, tenantID string) (*models.InvoiceConfig, error) {
	return s.repo.GetFirst(ctx, tenantID)
}

// UpdateConfig applies a partial update. When the update cannot be completed
// the previous values are written back.
func (s *invoiceConfigService) UpdateConfig(ctx context.Context, tenantID string, req *models.InvoiceConfigUpdateRequest) (*models.InvoiceConfig, error) {
	cfg, err := s.repo.GetFirst(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice config: %w", err)
	}

	if cfg == nil {
		return s.create(ctx, tenantID, req)
	}

	snapshot := *cfg
	req.Apply(cfg)

	if err := s.check(cfg); err != nil {
		*cfg = snapshot
		return nil, err
	}

	if err := s.repo.Update(ctx, cfg); err != nil {
		*cfg = snapshot
		return nil, fmt.Errorf("failed to update invoice config: %w", err)
	}

	if err := s.repo.InvalidateCache(ctx, tenantID); err != nil {
		s.restore(ctx, &snapshot)
		*cfg = snapshot
		return nil, fmt.Errorf("failed to invalidate invoice config cache: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"template":  cfg.TemplateType,
	}).Info("Invoice config updated")
	return cfg, nil
}

func (s *invoiceConfigService) create(ctx context.Context, tenantID string, req *models.InvoiceConfigUpdateRequest) (*models.InvoiceConfig, error) {
	cfg := &models.InvoiceConfig{TenantID: tenantID, TemplateType: models.TemplateDefault}
	req.Apply(cfg)

	if err := s.check(cfg); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to create invoice config: %w", err)
	}

	// Nothing to restore: a miss is never cached.
	if err := s.repo.InvalidateCache(ctx, tenantID); err != nil {
		s.logger.WithError(err).WithField("tenant_id", tenantID).Warn("Failed to invalidate invoice config cache")
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"template":  cfg.TemplateType,
	}).Info("Invoice config created")
	return cfg, nil
}

func (s *invoiceConfigService) restore(ctx context.Context, snapshot *models.InvoiceConfig) {
	if err := s.repo.Update(ctx, snapshot); err != nil {
		s.logger.WithError(err).WithField("tenant_id", snapshot.TenantID).Error("Failed to restore invoice config")
	}
}

type templateRules struct {
	TemplateType string `validate:"oneof=default indian_gst"`
}

type gstRules struct {
	GSTIN     string `validate:"required,len=15,alphanum,uppercase"`
	StateName string `validate:"required"`
	StateCode string `validate:"required,len=2,numeric"`
	PAN       string `validate:"omitempty,len=10,alphanum,uppercase"`
}

// check validates the merged record. The GST template needs the seller's
// registration details.
func (s *invoiceConfigService) check(cfg *models.InvoiceConfig) error {
	if cfg.TemplateType == "" {
		cfg.TemplateType = models.TemplateDefault
	}
	if err := s.validate.Struct(templateRules{TemplateType: string(cfg.TemplateType)}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !cfg.IsGST() {
		return nil
	}
	err := s.validate.Struct(gstRules{
		GSTIN:     cfg.GSTIN,
		StateName: cfg.StateName,
		StateCode: cfg.StateCode,
		PAN:       cfg.PAN,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
