package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoice-service/internal/repository"
)

const serviceName = "invoice-service"

// HealthHandler reports service and dependency health
type HealthHandler struct {
	pdfCache repository.PDFCache
	configs  repository.InvoiceConfigRepository
}

// NewHealthHandler creates a health handler. Both arguments may be nil.
func NewHealthHandler(pdfCache repository.PDFCache, configs repository.InvoiceConfigRepository) *HealthHandler {
	return &HealthHandler{pdfCache: pdfCache, configs: configs}
}

// HealthCheck returns service health status (basic)
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// ReadinessCheck returns detailed health status including Redis
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	health := gin.H{
		"status":  "healthy",
		"service": serviceName,
		"checks":  checks,
	}

	if h.pdfCache == nil {
		checks["redis"] = gin.H{"status": "disabled"}
	} else if err := h.pdfCache.Health(ctx); err != nil {
		checks["redis"] = gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["redis"] = gin.H{"status": "healthy"}
	}

	if h.configs != nil {
		if stats := h.configs.CacheStats(); stats != nil {
			checks["cache_stats"] = gin.H{
				"l1_hits":   stats.L1Hits,
				"l1_misses": stats.L1Misses,
				"l2_hits":   stats.L2Hits,
				"l2_misses": stats.L2Misses,
			}
		}
	}

	// Redis is optional, so an unhealthy cache degrades rather than fails.
	for _, check := range checks {
		if checkMap, ok := check.(gin.H); ok && checkMap["status"] == "unhealthy" {
			health["status"] = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, health)
}
