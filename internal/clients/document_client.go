package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const archiveUploadTimeout = 60 * time.Second

// DocumentClient archives rendered invoices in document-service
type DocumentClient interface {
	UploadDocument(ctx context.Context, req *DocumentUploadRequest) (*DocumentUploadResponse, error)
}

// DocumentUploadRequest describes one archived file. Entity fields link the
// file back to the invoice.
type DocumentUploadRequest struct {
	TenantID    string
	Bucket      string
	Path        string
	Filename    string
	ContentType string
	Data        []byte
	Tags        map[string]string
	EntityType  string
	EntityID    string
}

// DocumentUploadResponse is the stored document as reported by document-service
type DocumentUploadResponse struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

type documentClient struct {
	uploadURL  string
	httpClient *http.Client
}

// NewDocumentClient returns nil when baseURL is empty, which disables archiving.
func NewDocumentClient(baseURL string) DocumentClient {
	if baseURL == "" {
		return nil
	}
	return &documentClient{
		uploadURL:  strings.TrimRight(baseURL, "/") + "/api/v1/documents/upload",
		httpClient: &http.Client{Timeout: archiveUploadTimeout},
	}
}

func (c *documentClient) UploadDocument(ctx context.Context, req *DocumentUploadRequest) (*DocumentUploadResponse, error) {
	body, formType, err := encodeUpload(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", formType)
	httpReq.Header.Set("X-Tenant-ID", req.TenantID)
	httpReq.Header.Set("X-Product-ID", "marketplace")
	httpReq.Header.Set("X-Internal-Service", internalServiceName)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", req.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("document-service returned %d for %s: %s", resp.StatusCode, req.Filename, strings.TrimSpace(string(snippet)))
	}

	var stored DocumentUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &stored, nil
}

// encodeUpload builds the multipart form accepted by document-service.
func encodeUpload(req *DocumentUploadRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)

	fields := [][2]string{
		{"bucket", req.Bucket},
		{"path", req.Path},
		{"isPublic", "false"},
		{"entity_type", req.EntityType},
		{"entity_id", req.EntityID},
	}
	if len(req.Tags) > 0 {
		tags, err := json.Marshal(req.Tags)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode tags: %w", err)
		}
		fields = append(fields, [2]string{"tags", string(tags)})
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := form.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, req.Filename))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return buf, form.FormDataContentType(), nil
}
