// Package processor orchestrates parsing, schema validation and
// rendering of Finvoice documents.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rezonia/finvoice-processor/internal/export"
	"github.com/rezonia/finvoice-processor/internal/finvoice/schema"
	"github.com/rezonia/finvoice-processor/internal/model"
	xmlparser "github.com/rezonia/finvoice-processor/internal/parser/xml"
)

// Format represents the detected input format
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

// DetectFormat detects the input format from content
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXML
	}
	return FormatUnknown
}

// Result holds the processing result for one document
type Result struct {
	Invoice *model.Invoice `json:"invoice,omitempty"`
	// Adapter is the name of the framing adapter that parsed the document
	Adapter  string        `json:"adapter,omitempty"`
	Schema   schema.Result `json:"schema"`
	Warnings []string      `json:"warnings,omitempty"`
	Error    error         `json:"-"`
}

// Option configures the pipeline
type Option func(*Pipeline)

// WithRegistry sets the adapter registry
func WithRegistry(r *xmlparser.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithValidator sets the schema validator
func WithValidator(v *schema.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithStrictValidation makes schema violations fatal for incoming
// documents. In the default permissive mode violations become warnings
// and the raw document is logged for later inspection.
func WithStrictValidation(strict bool) Option {
	return func(p *Pipeline) { p.strict = strict }
}

// WithAttachmentCheck enables structural validation of PDF attachments
func WithAttachmentCheck(check bool) Option {
	return func(p *Pipeline) { p.checkAttachments = check }
}

// WithRenderer sets the renderer used by Export
func WithRenderer(r *export.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithLogger sets the operator-facing logger
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// Pipeline processes Finvoice documents in both directions
type Pipeline struct {
	registry         *xmlparser.Registry
	validator        *schema.Validator
	renderer         *export.Renderer
	strict           bool
	checkAttachments bool
	log              zerolog.Logger
}

// NewPipeline creates a processing pipeline with the given options
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		log: log.Logger.With().Str("component", "processor").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = xmlparser.NewRegistry()
	}
	if p.validator == nil {
		p.validator = schema.NewValidator()
	}
	if p.renderer == nil {
		p.renderer = export.NewRenderer(p.validator)
	}
	return p
}

// ProcessXML processes an XML document from a reader
func (p *Pipeline) ProcessXML(ctx context.Context, r io.Reader) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Result{Error: model.NewParseError("content", "failed to read input", err)}
	}
	return p.ProcessXMLBytes(ctx, data)
}

// ProcessXMLBytes parses and validates one XML document. Schema
// violations abort processing only in strict mode; parse failures
// always do.
func (p *Pipeline) ProcessXMLBytes(ctx context.Context, data []byte) *Result {
	result := &Result{}

	adapter, err := p.registry.Detect(data)
	if err != nil {
		result.Error = err
		return result
	}
	result.Adapter = adapter.Name()

	// Framed documents are validated on the bare Finvoice element, not
	// the transport envelope
	payload := data
	if u, ok := adapter.(xmlparser.Unwrapper); ok {
		payload, err = u.Unwrap(data)
		if err != nil {
			result.Error = err
			return result
		}
	}

	result.Schema = p.validator.ValidateBytes(payload)
	if !result.Schema.Valid {
		if p.strict {
			result.Error = result.Schema.Err()
			return result
		}
		p.log.Warn().Str("version", result.Schema.Version).
			Strs("violations", result.Schema.Violations).
			Msg("document does not validate against the XML Schema Definition, importing anyway")
		p.log.Debug().Bytes("xml", data).Msg("invalid incoming document")
		for _, v := range result.Schema.Violations {
			result.Warnings = append(result.Warnings, "schema: "+v)
		}
	}

	inv, err := adapter.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		result.Error = err
		return result
	}
	result.Invoice = inv

	if p.checkAttachments {
		result.Warnings = append(result.Warnings, p.verifyAttachments(inv)...)
	}

	p.log.Info().Str("adapter", result.Adapter).Str("number", inv.Number).
		Str("type_code", inv.TypeCode).Int("rows", len(inv.Lines)).
		Msg("document processed")
	return result
}

// Validate checks a document against the schema without importing it
func (p *Pipeline) Validate(data []byte) schema.Result {
	return p.validator.ValidateBytes(data)
}

// Export renders an invoice as Finvoice XML and names the file after
// the invoice number
func (p *Pipeline) Export(inv *model.Invoice) ([]byte, string, error) {
	out, err := p.renderer.Render(inv)
	if err != nil {
		return nil, "", err
	}
	return out, p.renderer.Filename(inv), nil
}

// verifyAttachments structurally validates attachments that claim to be
// PDF documents. A broken attachment is a warning, never an error: the
// invoice data itself is unaffected.
func (p *Pipeline) verifyAttachments(inv *model.Invoice) []string {
	var warnings []string
	for _, att := range inv.Attachments {
		isPDF := att.MimeType == "application/pdf" ||
			strings.HasPrefix(string(att.Content[:min(len(att.Content), 5)]), "%PDF-")
		if !isPDF {
			continue
		}
		conf := pdfmodel.NewDefaultConfiguration()
		conf.ValidationMode = pdfmodel.ValidationRelaxed
		if err := pdfapi.Validate(bytes.NewReader(att.Content), conf); err != nil {
			p.log.Warn().Str("attachment", att.Name).Err(err).
				Msg("attachment is not a well-formed PDF")
			warnings = append(warnings, fmt.Sprintf("attachment %q is not a well-formed PDF", att.Name))
		}
	}
	return warnings
}
