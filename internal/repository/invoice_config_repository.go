package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"invoice-service/internal/models"
)

// InvoiceConfigCacheTTL bounds how long a cached configuration is served
const InvoiceConfigCacheTTL = 15 * time.Minute

// InvoiceConfigRepository defines the interface for invoice configuration persistence
type InvoiceConfigRepository interface {
	// GetFirst returns the oldest configuration of the tenant or nil
	GetFirst(ctx context.Context, tenantID string) (*models.InvoiceConfig, error)
	Create(ctx context.Context, config *models.InvoiceConfig) error
	Update(ctx context.Context, config *models.InvoiceConfig) error
	InvalidateCache(ctx context.Context, tenantID string) error
	CacheStats() *cache.CacheStats
}

type invoiceConfigRepository struct {
	db    *gorm.DB
	cache *cache.CacheLayer
}

// NewInvoiceConfigRepository creates a configuration repository with optional Redis caching
func NewInvoiceConfigRepository(db *gorm.DB, redisClient *redis.Client) InvoiceConfigRepository {
	repo := &invoiceConfigRepository{db: db}
	if redisClient != nil {
		repo.cache = cache.NewCacheLayerFromClient(redisClient, cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 1000,
			L1TTL:      30 * time.Second,
			DefaultTTL: InvoiceConfigCacheTTL,
			KeyPrefix:  "tesseract:invoices:",
		})
	}
	return repo
}

func configCacheKey(tenantID string) string {
	return fmt.Sprintf("config:%s", tenantID)
}

func (r *invoiceConfigRepository) GetFirst(ctx context.Context, tenantID string) (*models.InvoiceConfig, error) {
	if r.cache != nil {
		var cfg models.InvoiceConfig
		err := r.cache.GetOrSetJSON(ctx, configCacheKey(tenantID), &cfg, InvoiceConfigCacheTTL, func() (any, error) {
			return r.loadFirst(ctx, tenantID)
		})
		if err == nil {
			return &cfg, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice config: %w", err)
	}

	cfg, err := r.loadFirst(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invoice config: %w", err)
	}
	return cfg, nil
}

// loadFirst picks the oldest row, breaking creation-time ties by id.
func (r *invoiceConfigRepository) loadFirst(ctx context.Context, tenantID string) (*models.InvoiceConfig, error) {
	var cfg models.InvoiceConfig
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(1).
		Take(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *invoiceConfigRepository) Create(ctx context.Context, config *models.InvoiceConfig) error {
	if config.ID == uuid.Nil {
		config.ID = uuid.New()
	}
	if config.TemplateType == "" {
		config.TemplateType = models.TemplateDefault
	}
	if err := r.db.WithContext(ctx).Create(config).Error; err != nil {
		return fmt.Errorf("failed to create invoice config: %w", err)
	}
	return nil
}

func (r *invoiceConfigRepository) Update(ctx context.Context, config *models.InvoiceConfig) error {
	if err := r.db.WithContext(ctx).Save(config).Error; err != nil {
		return fmt.Errorf("failed to update invoice config: %w", err)
	}
	return nil
}

func (r *invoiceConfigRepository) InvalidateCache(ctx context.Context, tenantID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, configCacheKey(tenantID))
}

func (r *invoiceConfigRepository) CacheStats() *cache.CacheStats {
	if r.cache == nil {
		return nil
	}
	stats := r.cache.Stats()
	return &stats
}
