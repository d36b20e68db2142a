package xml

import (
	"bytes"
	"context"
	"io"

	"github.com/beevik/etree"

	"github.com/rezonia/finvoice-processor/internal/finvoice"
	"github.com/rezonia/finvoice-processor/internal/model"
)

// SOAPAdapter unwraps the SOAP transmission frame many operators use
// when routing Finvoice documents and parses the enclosed invoice
type SOAPAdapter struct{}

// NewSOAPAdapter creates a new SOAP frame adapter
func NewSOAPAdapter() *SOAPAdapter {
	return &SOAPAdapter{}
}

// Name returns the adapter name
func (a *SOAPAdapter) Name() string {
	return "finvoice-soap"
}

// CanParse checks if content is a SOAP-framed Finvoice document
func (a *SOAPAdapter) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("Envelope")) &&
		bytes.Contains(content, []byte("<Finvoice"))
}

// Parse extracts the Finvoice element from the envelope and parses it
func (a *SOAPAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("content", "failed to read content", err)
	}

	unwrapped, err := a.unwrapTree(content)
	if err != nil {
		return nil, err
	}

	doc, err := finvoice.FromTree(unwrapped)
	if err != nil {
		return nil, err
	}
	return buildInvoice(doc, content)
}

// Unwrap serializes the bare Finvoice element without the envelope
func (a *SOAPAdapter) Unwrap(content []byte) ([]byte, error) {
	unwrapped, err := a.unwrapTree(content)
	if err != nil {
		return nil, err
	}
	return unwrapped.WriteToBytes()
}

func (a *SOAPAdapter) unwrapTree(content []byte) (*etree.Document, error) {
	outer := etree.NewDocument()
	if err := outer.ReadFromBytes(content); err != nil {
		return nil, model.NewParseError("xml", "failed to parse XML", err)
	}

	root := outer.Root()
	if root == nil {
		return nil, model.NewParseError("root", "empty document", nil)
	}

	inner := root.FindElement(".//" + finvoice.RootTag)
	if inner == nil && root.Tag == finvoice.RootTag {
		inner = root
	}
	if inner == nil {
		return nil, model.NewParseError("root", "no Finvoice element inside the envelope", nil)
	}

	unwrapped := etree.NewDocument()
	unwrapped.SetRoot(inner.Copy())
	return unwrapped, nil
}
