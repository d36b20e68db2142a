package finvoicelib

import (
	"context"
	"io"

	"github.com/rezonia/finvoice-processor/internal/model"
)

// Parser parses Finvoice documents from XML
type Parser interface {
	// ParseXML parses XML content into an Invoice
	ParseXML(ctx context.Context, r io.Reader) (*model.Invoice, error)

	// DetectFraming identifies the XML framing from content
	DetectFraming(content []byte) (string, error)
}

// ValidationOutcome is the result of validating one document
type ValidationOutcome struct {
	Valid      bool
	Version    string
	Violations []string
}

// ProcessOutcome is the result of processing one document
type ProcessOutcome struct {
	Invoice  *Invoice
	Adapter  string
	Schema   ValidationOutcome
	Warnings []string
}

// Options configures processor behavior
type Options struct {
	// StrictValidation makes schema violations fatal for incoming
	// documents instead of warnings
	StrictValidation bool

	// CheckAttachments structurally validates PDF attachments
	CheckAttachments bool
}

// DefaultOptions returns the default processor options
func DefaultOptions() Options {
	return Options{
		StrictValidation: false,
		CheckAttachments: true,
	}
}
