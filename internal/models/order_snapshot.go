package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderSnapshot is the read-only view of an order used to build invoices.
type OrderSnapshot struct {
	ID              uuid.UUID        `json:"id"`
	DisplayID       int64            `json:"displayId"`
	OrderNumber     string           `json:"orderNumber,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	CurrencyCode    string           `json:"currencyCode"`
	Email           string           `json:"email,omitempty"`
	Subtotal        float64          `json:"subtotal"`
	TaxTotal        float64          `json:"taxTotal"`
	ShippingTotal   float64          `json:"shippingTotal"`
	ShippingMethods []ShippingMethod `json:"shippingMethods,omitempty"`
	DiscountTotal   float64          `json:"discountTotal"`
	Total           float64          `json:"total"`
	BillingAddress  *Address         `json:"billingAddress,omitempty"`
	ShippingAddress *Address         `json:"shippingAddress,omitempty"`
	Items           []LineItem       `json:"items"`
}

// ShippingMethod is a shipping charge applied to the order.
type ShippingMethod struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// LineItem is one order line. Subtotal excludes tax, Total includes it.
type LineItem struct {
	Title     string  `json:"title"`
	SKU       string  `json:"sku,omitempty"`
	HSNCode   string  `json:"hsnCode,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
	Total     float64 `json:"total"`
}

// Address is a postal address. StateCode is the GST state code.
type Address struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address1,omitempty"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	StateCode   string `json:"stateCode,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// ShippingAmount returns the first shipping method's total, or 0.
func (o *OrderSnapshot) ShippingAmount() float64 {
	if len(o.ShippingMethods) == 0 {
		return 0
	}
	return o.ShippingMethods[0].Total
}

// CustomerStateCode returns the billing state code, falling back to the
// shipping address.
func (o *OrderSnapshot) CustomerStateCode() string {
	if o.BillingAddress != nil {
		if code := strings.TrimSpace(o.BillingAddress.StateCode); code != "" {
			return code
		}
	}
	if o.ShippingAddress != nil {
		return strings.TrimSpace(o.ShippingAddress.StateCode)
	}
	return ""
}

// Lines returns the printable lines of the address, skipping empty parts.
func (a *Address) Lines() []string {
	if a == nil {
		return nil
	}
	var lines []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, s)
		}
	}
	add(strings.TrimSpace(a.FirstName + " " + a.LastName))
	add(a.Company)
	add(a.Address1)
	add(a.Address2)

	var cityLine []string
	for _, part := range []string{a.City, a.Province, a.PostalCode} {
		if part = strings.TrimSpace(part); part != "" {
			cityLine = append(cityLine, part)
		}
	}
	add(strings.Join(cityLine, ", "))
	add(strings.ToUpper(a.CountryCode))
	add(a.Phone)
	return lines
}
