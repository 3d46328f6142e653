// Package assets fetches remote images (company logos) and turns them into
// inline data URIs that can be embedded in an invoice.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultTimeout bounds a single logo fetch.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBytes caps the logo body size.
	DefaultMaxBytes int64 = 5 << 20
	// DefaultContentType is assumed for data URIs without a media type.
	DefaultContentType = "image/png"
)

var (
	ErrEmptyURL    = errors.New("assets: empty url")
	ErrTooLarge    = errors.New("assets: image exceeds size limit")
	ErrNotAnImage  = errors.New("assets: response is not an image")
	ErrBadResponse = errors.New("assets: unexpected response status")
)

// InlineImage is an image ready to be embedded.
type InlineImage struct {
	ContentType string
	Base64      string
}

// DataURI returns the image as a data: URI.
func (i *InlineImage) DataURI() string {
	return "data:" + i.ContentType + ";base64," + i.Base64
}

// Resolver resolves a URL into an inline image.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*InlineImage, error)
}

// HTTPResolver fetches images over HTTP.
type HTTPResolver struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewHTTPResolver creates a resolver. Zero timeout or maxBytes select the
// defaults.
func NewHTTPResolver(timeout time.Duration, maxBytes int64) *HTTPResolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPResolver{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Resolve fetches url and returns it base64 encoded with its content type.
func (r *HTTPResolver) Resolve(ctx context.Context, url string) (*InlineImage, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrBadResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(body)) > r.maxBytes {
		return nil, ErrTooLarge
	}

	detected := mimetype.Detect(body)
	mediaType, ok := embeddable(detected)
	if !ok {
		return nil, fmt.Errorf("%w: detected %s", ErrNotAnImage, detected.String())
	}

	return &InlineImage{
		ContentType: mediaType,
		Base64:      base64.StdEncoding.EncodeToString(body),
	}, nil
}

// embeddableTypes are the raster formats the PDF renderer can decode.
var embeddableTypes = []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff"}

func embeddable(detected *mimetype.MIME) (string, bool) {
	for _, t := range embeddableTypes {
		if detected.Is(t) {
			return t, true
		}
	}
	return "", false
}

// ParseDataURI splits a base64 data URI into its media type and decoded bytes.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("assets: not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("assets: malformed data uri")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("assets: data uri is not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("assets: decode data uri: %w", err)
	}
	if mediaType == "" {
		mediaType = DefaultContentType
	}
	return mediaType, data, nil
}
