package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TemplateType selects the invoice layout.
type TemplateType string

const (
	TemplateDefault   TemplateType = "default"
	TemplateIndianGST TemplateType = "indian_gst" // India GST Tax Invoice
)

// DefaultCompanyName is shown when no company name is configured.
const DefaultCompanyName = "Your Company Name"

// InvoiceConfig stores tenant-level invoice settings. A tenant may end up with
// several rows; the oldest one is authoritative.
type InvoiceConfig struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;index:idx_invoice_configs_tenant"`

	// Company information
	CompanyName  string  `json:"companyName" gorm:"type:varchar(255)"`
	CompanyPhone string  `json:"companyPhone,omitempty" gorm:"type:varchar(50)"`
	CompanyEmail string  `json:"companyEmail,omitempty" gorm:"type:varchar(255)"`
	CompanyLogo  *string `json:"companyLogo,omitempty" gorm:"type:varchar(500)"`
	Notes        *string `json:"notes,omitempty" gorm:"type:text"`

	TemplateType TemplateType `json:"templateType" gorm:"type:varchar(50);not null;default:'default'"`

	// India GST fields, required for the indian_gst template
	GSTIN               string `json:"gstin,omitempty" gorm:"type:varchar(15)"`
	StateName           string `json:"stateName,omitempty" gorm:"type:varchar(100)"`
	StateCode           string `json:"stateCode,omitempty" gorm:"type:varchar(5)"`
	PAN                 string `json:"pan,omitempty" gorm:"type:varchar(10)"`
	AuthorizedSignatory string `json:"authorizedSignatory,omitempty" gorm:"type:varchar(255)"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the table name for InvoiceConfig
func (InvoiceConfig) TableName() string {
	return "invoice_configs"
}

// IsGST reports whether the GST template is selected.
func (c *InvoiceConfig) IsGST() bool {
	return c != nil && c.TemplateType == TemplateIndianGST
}

// DisplayCompanyName returns the company name or the placeholder.
func (c *InvoiceConfig) DisplayCompanyName() string {
	if c == nil || c.CompanyName == "" {
		return DefaultCompanyName
	}
	return c.CompanyName
}

// LogoURL returns the configured logo URL or "".
func (c *InvoiceConfig) LogoURL() string {
	if c == nil || c.CompanyLogo == nil {
		return ""
	}
	return *c.CompanyLogo
}

// NotesText returns the configured notes or "".
func (c *InvoiceConfig) NotesText() string {
	if c == nil || c.Notes == nil {
		return ""
	}
	return *c.Notes
}

// InvoiceConfigUpdateRequest represents a partial update of the invoice
// configuration. Nil fields are left untouched.
type InvoiceConfigUpdateRequest struct {
	CompanyName  *string       `json:"companyName,omitempty" binding:"omitempty,max=255"`
	CompanyPhone *string       `json:"companyPhone,omitempty" binding:"omitempty,max=50"`
	CompanyEmail *string       `json:"companyEmail,omitempty" binding:"omitempty,max=255"`
	CompanyLogo  *string       `json:"companyLogo,omitempty" binding:"omitempty,max=500"`
	Notes        *string       `json:"notes,omitempty"`
	TemplateType *TemplateType `json:"templateType,omitempty" binding:"omitempty,oneof=default indian_gst"`

	GSTIN               *string `json:"gstin,omitempty"`
	StateName           *string `json:"stateName,omitempty"`
	StateCode           *string `json:"stateCode,omitempty"`
	PAN                 *string `json:"pan,omitempty"`
	AuthorizedSignatory *string `json:"authorizedSignatory,omitempty"`
}

// Apply copies the non-nil fields of req onto c.
func (req *InvoiceConfigUpdateRequest) Apply(c *InvoiceConfig) {
	setString(&c.CompanyName, req.CompanyName)
	setString(&c.CompanyPhone, req.CompanyPhone)
	setString(&c.CompanyEmail, req.CompanyEmail)
	if req.CompanyLogo != nil {
		c.CompanyLogo = optional(*req.CompanyLogo)
	}
	if req.Notes != nil {
		c.Notes = optional(*req.Notes)
	}
	if req.TemplateType != nil {
		c.TemplateType = *req.TemplateType
	}
	setString(&c.GSTIN, req.GSTIN)
	setString(&c.StateName, req.StateName)
	setString(&c.StateCode, req.StateCode)
	setString(&c.PAN, req.PAN)
	setString(&c.AuthorizedSignatory, req.AuthorizedSignatory)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// optional maps "" to nil so clearing a field removes it.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
