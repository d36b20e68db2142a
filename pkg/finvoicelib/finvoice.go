// Package finvoicelib provides a public API for processing Finnish
// Finvoice 3.0 e-invoices.
//
// This package exposes the core types and operations for parsing,
// validating, importing and rendering Finvoice XML documents.
//
// Example usage:
//
//	p := finvoicelib.NewProcessor(finvoicelib.DefaultOptions())
//	result, err := p.Process(ctx, reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Invoice.AmountTotal)
package finvoicelib

import "github.com/rezonia/finvoice-processor/internal/model"

// Re-export core types for public API
type (
	Invoice            = model.Invoice
	InvoiceLine        = model.InvoiceLine
	Party              = model.Party
	Address            = model.Address
	PaymentInstruction = model.PaymentInstruction
	Attachment         = model.Attachment
	MoveKind           = model.MoveKind
	TypeInfo           = model.TypeInfo
)

// Re-export move kinds
const (
	MoveKindInvoice = model.MoveKindInvoice
	MoveKindRefund  = model.MoveKindRefund
)

// FinvoiceVersion is the supported Finvoice version
const FinvoiceVersion = model.FinvoiceVersion

// Re-export error types
type (
	ParseError                 = model.ParseError
	AmbiguousNumberError       = model.AmbiguousNumberError
	UnsupportedDateFormatError = model.UnsupportedDateFormatError
	UnsupportedTypeCodeError   = model.UnsupportedTypeCodeError
	TaxNotFoundError           = model.TaxNotFoundError
	SchemaError                = model.SchemaError
)

// Classify resolves an invoice type code into its kind and origin
func Classify(code string) (TypeInfo, error) {
	return model.Classify(code)
}
