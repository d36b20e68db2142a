package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseError represents parsing errors with field context
type ParseError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(field, message string, cause error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// AmbiguousNumberError is returned when an amount string contains both a
// period and a comma. The decimal separator cannot be told from a
// thousands separator, so the value is rejected rather than guessed.
type AmbiguousNumberError struct {
	Value string
}

func (e *AmbiguousNumberError) Error() string {
	return fmt.Sprintf("ambiguous number format, both '.' and ',' present: %q", e.Value)
}

// NewAmbiguousNumberError creates a new ambiguous number error
func NewAmbiguousNumberError(value string) *AmbiguousNumberError {
	return &AmbiguousNumberError{Value: value}
}

// UnsupportedDateFormatError is returned for any date format code
// other than CCYYMMDD
type UnsupportedDateFormatError struct {
	Format string
}

func (e *UnsupportedDateFormatError) Error() string {
	return fmt.Sprintf("unsupported date format code: %q", e.Format)
}

// NewUnsupportedDateFormatError creates a new unsupported date format error
func NewUnsupportedDateFormatError(format string) *UnsupportedDateFormatError {
	return &UnsupportedDateFormatError{Format: format}
}

// UnsupportedTypeCodeError is returned when an InvoiceTypeCode is not an
// importable invoice or refund code
type UnsupportedTypeCodeError struct {
	Code string
}

func (e *UnsupportedTypeCodeError) Error() string {
	return fmt.Sprintf("not an invoice/refund document, InvoiceTypeCode is %q", e.Code)
}

// NewUnsupportedTypeCodeError creates a new unsupported type code error
func NewUnsupportedTypeCodeError(code string) *UnsupportedTypeCodeError {
	return &UnsupportedTypeCodeError{Code: code}
}

// TaxNotFoundError is returned when no tax matches a row's VAT rate.
// Importing the row with a guessed tax would corrupt accounting totals,
// so the whole import is aborted.
type TaxNotFoundError struct {
	RatePercent decimal.Decimal
	Direction   string
}

func (e *TaxNotFoundError) Error() string {
	return fmt.Sprintf("could not find a %s tax for rate %s%%", e.Direction, e.RatePercent)
}

// NewTaxNotFoundError creates a new tax not found error
func NewTaxNotFoundError(rate decimal.Decimal, direction string) *TaxNotFoundError {
	return &TaxNotFoundError{RatePercent: rate, Direction: direction}
}

// SchemaError represents a failed XSD validation
type SchemaError struct {
	Version    string
	Violations []string
}

func (e *SchemaError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("document is not valid against the Finvoice %s schema", e.Version)
	}
	return fmt.Sprintf("document is not valid against the Finvoice %s schema: %s",
		e.Version, e.Violations[0])
}

// NewSchemaError creates a new schema error
func NewSchemaError(version string, violations []string) *SchemaError {
	return &SchemaError{Version: version, Violations: violations}
}
