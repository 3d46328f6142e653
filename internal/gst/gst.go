// Package gst apportions an order's tax total into India GST components.
package gst

import (
	"math"
	"strconv"
	"strings"
)

// Split is the GST breakdown of a tax total. Amounts are not rounded; callers
// round at display time.
type Split struct {
	CGST       float64 `json:"cgst"`
	SGST       float64 `json:"sgst"`
	IGST       float64 `json:"igst"`
	Interstate bool    `json:"isInterstate"`
}

// Total returns the sum of all components.
func (s Split) Total() float64 {
	return s.CGST + s.SGST + s.IGST
}

// IsIntraState reports whether seller and buyer state codes match after
// trimming. Empty codes never match.
func IsIntraState(companyStateCode, customerStateCode string) bool {
	company := strings.TrimSpace(companyStateCode)
	customer := strings.TrimSpace(customerStateCode)
	return company != "" && customer != "" && company == customer
}

// Apportion splits taxTotal into CGST+SGST for intra-state supply and IGST
// otherwise. A missing state code on either side is treated as inter-state.
func Apportion(taxTotal float64, companyStateCode, customerStateCode string) Split {
	if IsIntraState(companyStateCode, customerStateCode) {
		half := taxTotal / 2
		return Split{CGST: half, SGST: half}
	}
	return Split{IGST: taxTotal, Interstate: true}
}

// ItemTaxRate returns the effective tax rate of a line as a whole percent
// string: round((total-subtotal)/subtotal*100). A zero subtotal yields "0".
func ItemTaxRate(subtotal, total float64) string {
	if subtotal == 0 {
		return "0"
	}
	rate := math.Round((total - subtotal) / subtotal * 100)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return "0"
	}
	return strconv.FormatFloat(rate, 'f', 0, 64)
}
