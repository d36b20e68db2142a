package xml

import (
	"bytes"
	"context"
	"io"

	"github.com/rezonia/finvoice-processor/internal/model"
)

// Adapter parses one XML framing of a Finvoice document into an Invoice
type Adapter interface {
	// Parse parses XML content into Invoice
	Parse(ctx context.Context, r io.Reader) (*model.Invoice, error)

	// CanParse returns true if adapter can handle this content
	CanParse(content []byte) bool

	// Name returns the adapter name
	Name() string
}

// Unwrapper is implemented by adapters whose framing wraps the Finvoice
// element in a transport envelope. Unwrap returns the bare document so
// schema validation sees the same root the parser does.
type Unwrapper interface {
	Unwrap(content []byte) ([]byte, error)
}

// Registry holds all registered adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates registry with all adapters
// Order matters: the SOAP frame adapter must run before the bare one,
// both match on the Finvoice root element
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewSOAPAdapter(),
			NewFinvoiceAdapter(),
		},
	}
}

// Detect identifies the framing from XML content
func (r *Registry) Detect(content []byte) (Adapter, error) {
	for _, a := range r.adapters {
		if a.CanParse(content) {
			return a, nil
		}
	}
	return nil, model.NewParseError("root", "not a Finvoice document, no matching adapter found", nil)
}

// Parse parses XML using the appropriate adapter
func (r *Registry) Parse(ctx context.Context, content []byte) (*model.Invoice, error) {
	adapter, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	return adapter.Parse(ctx, bytes.NewReader(content))
}

// RegisterAdapter adds a custom adapter to the registry
func (r *Registry) RegisterAdapter(a Adapter) {
	// Add at the beginning so custom adapters take priority
	r.adapters = append([]Adapter{a}, r.adapters...)
}
