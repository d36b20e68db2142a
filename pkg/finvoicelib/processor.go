package finvoicelib

import (
	"context"
	"io"

	"github.com/rezonia/finvoice-processor/internal/model"
	"github.com/rezonia/finvoice-processor/internal/processor"
)

// Processor processes Finvoice documents using the internal pipeline
type Processor struct {
	pipeline *processor.Pipeline
	options  Options
}

// NewProcessor creates a new Finvoice processor with the given options
func NewProcessor(opts Options) *Processor {
	pipeline := processor.NewPipeline(
		processor.WithStrictValidation(opts.StrictValidation),
		processor.WithAttachmentCheck(opts.CheckAttachments),
	)

	return &Processor{
		pipeline: pipeline,
		options:  opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultOptions())
}

// Process parses and validates one Finvoice document
func (p *Processor) Process(ctx context.Context, r io.Reader) (*ProcessOutcome, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.ParseError{Message: "failed to read input", Cause: err}
	}
	return p.ProcessBytes(ctx, data)
}

// ProcessBytes parses and validates one Finvoice document from bytes
func (p *Processor) ProcessBytes(ctx context.Context, data []byte) (*ProcessOutcome, error) {
	result := p.pipeline.ProcessXMLBytes(ctx, data)
	if result.Error != nil {
		return nil, result.Error
	}

	return &ProcessOutcome{
		Invoice: result.Invoice,
		Adapter: result.Adapter,
		Schema: ValidationOutcome{
			Valid:      result.Schema.Valid,
			Version:    result.Schema.Version,
			Violations: result.Schema.Violations,
		},
		Warnings: result.Warnings,
	}, nil
}

// Validate checks a document against the Finvoice schema
func (p *Processor) Validate(data []byte) ValidationOutcome {
	result := p.pipeline.Validate(data)
	return ValidationOutcome{
		Valid:      result.Valid,
		Version:    result.Version,
		Violations: result.Violations,
	}
}

// Export renders an invoice as Finvoice XML. The returned filename is
// derived from the invoice number.
func (p *Processor) Export(inv *Invoice) ([]byte, string, error) {
	return p.pipeline.Export(inv)
}

// ProcessBatch processes multiple documents concurrently
func (p *Processor) ProcessBatch(ctx context.Context, inputs []io.Reader) ([]*ProcessOutcome, error) {
	results := make([]*ProcessOutcome, len(inputs))
	errCh := make(chan error, len(inputs))

	for i, input := range inputs {
		go func(idx int, r io.Reader) {
			result, err := p.Process(ctx, r)
			if err != nil {
				errCh <- err
				return
			}
			results[idx] = result
			errCh <- nil
		}(i, input)
	}

	// Wait for all goroutines
	var firstErr error
	for range inputs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
