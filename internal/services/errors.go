package services

import "errors"

var (
	// ErrInvoiceNotFound is returned when the invoice does not exist for the tenant
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrOrderNotFound is returned when the invoiced order cannot be found
	ErrOrderNotFound = errors.New("order not found")
	// ErrGenerationFailed wraps every failure to produce invoice content or PDF bytes
	ErrGenerationFailed = errors.New("could not generate invoice")
	// ErrInvalidConfig is returned when an invoice configuration fails validation
	ErrInvalidConfig = errors.New("invalid invoice configuration")
)
