// Package words spells out rupee amounts in English using the Indian numbering
// scale (Thousand, Lakh, Crore).
package words

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	thousand = 1_000
	lakh     = 1_00_000
	crore    = 1_00_00_000
)

var ones = [...]string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = [...]string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

var hundred = decimal.NewFromInt(100)

// ToWords returns the English words for amount, e.g. 125.50 becomes
// "One Hundred Twenty Five and Fifty Paise". Zero yields "Zero". Negative,
// NaN and infinite inputs are treated as zero.
func ToWords(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return "Zero"
	}

	rupees, paise := split(amount)
	if rupees == 0 && paise == 0 {
		return "Zero"
	}

	whole := "Zero"
	if rupees > 0 {
		whole = Integer(rupees)
	}
	if paise == 0 {
		return whole
	}
	return whole + " and " + Integer(paise) + " Paise"
}

// split separates amount into whole rupees and rounded paise. Paise that round
// up to 100 carry into the rupee part.
func split(amount float64) (int64, int64) {
	d := decimal.NewFromFloat(amount)
	whole := d.Floor()
	frac := d.Sub(whole).Mul(hundred).Round(0).IntPart()
	rupees := whole.IntPart()
	if frac >= 100 {
		rupees++
		frac -= 100
	}
	return rupees, frac
}

// Integer spells out a non-negative integer. It returns "" for 0 so callers can
// compose groups without stray separators.
func Integer(n int64) string {
	if n <= 0 {
		return ""
	}
	var parts []string
	switch {
	case n < 20:
		return ones[n]
	case n < 100:
		parts = append(parts, tens[n/10], ones[n%10])
	case n < thousand:
		parts = append(parts, ones[n/100]+" Hundred", Integer(n%100))
	case n < lakh:
		parts = append(parts, Integer(n/thousand)+" Thousand", Integer(n%thousand))
	case n < crore:
		parts = append(parts, Integer(n/lakh)+" Lakh", Integer(n%lakh))
	default:
		parts = append(parts, Integer(n/crore)+" Crore", Integer(n%crore))
	}
	return join(parts)
}

func join(parts []string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
