package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pdfCachePrefix = "tesseract:invoices:pdf:"

// PDFCache stores rendered invoice PDFs keyed by invoice and content checksum
type PDFCache interface {
	Get(ctx context.Context, invoiceID uuid.UUID, content []byte) ([]byte, bool, error)
	Set(ctx context.Context, invoiceID uuid.UUID, content []byte, pdf []byte) error
	Health(ctx context.Context) error
}

type redisPDFCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPDFCache returns a Redis backed cache, or nil when Redis is not configured
func NewPDFCache(client *redis.Client, ttl time.Duration) PDFCache {
	if client == nil {
		return nil
	}
	return &redisPDFCache{client: client, ttl: ttl}
}

// PDFCacheKey derives the cache key. Changing the stored content changes the key.
func PDFCacheKey(invoiceID uuid.UUID, content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%s%s:%s", pdfCachePrefix, invoiceID.String(), hex.EncodeToString(sum[:]))
}

func (c *redisPDFCache) Get(ctx context.Context, invoiceID uuid.UUID, content []byte) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, PDFCacheKey(invoiceID, content)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (c *redisPDFCache) Set(ctx context.Context, invoiceID uuid.UUID, content []byte, pdf []byte) error {
	return c.client.Set(ctx, PDFCacheKey(invoiceID, content), pdf, c.ttl).Err()
}

func (c *redisPDFCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
