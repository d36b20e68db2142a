// Package finvoice wraps a parsed Finvoice XML document and provides
// path-based field extraction over it.
package finvoice

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/finvoice-processor/internal/model"
)

// RootTag is the required root element of a Finvoice document
const RootTag = "Finvoice"

// Document is an immutable view over one parsed Finvoice tree.
// It is created per import call, consumed once, and discarded.
type Document struct {
	doc     *etree.Document
	root    *etree.Element
	version string
}

// Parse reads XML bytes into a Document. The root element must be
// Finvoice; the Version attribute defaults to 3.0 when absent.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, model.NewParseError("xml", "failed to parse XML", err)
	}
	return FromTree(doc)
}

// FromTree wraps an already parsed tree
func FromTree(doc *etree.Document) (*Document, error) {
	root := doc.Root()
	if root == nil || root.Tag != RootTag {
		tag := ""
		if root != nil {
			tag = root.Tag
		}
		return nil, model.NewParseError("root", "not a Finvoice document, root element is "+strings.TrimSpace("'"+tag+"'"), nil)
	}

	version := root.SelectAttrValue("Version", model.FinvoiceVersion)

	return &Document{
		doc:     doc,
		root:    root,
		version: version,
	}, nil
}

// Root returns the Finvoice root element
func (d *Document) Root() *etree.Element {
	return d.root
}

// Version returns the declared Finvoice version
func (d *Document) Version() string {
	return d.version
}

// Text returns the text of the first element matching path under the
// root, or empty when nothing matches. Extraction is always optional at
// this layer; required-field policy belongs to callers.
func (d *Document) Text(path string) string {
	return TextFrom(d.root, path)
}

// Attr returns an attribute of the first element matching path under
// the root, or empty
func (d *Document) Attr(path, attr string) string {
	return AttrFrom(d.root, path, attr)
}

// Joined joins the text of all elements matching path under the root
func (d *Document) Joined(path, sep string) string {
	return JoinedFrom(d.root, path, sep)
}

// Elements returns all elements matching path under the root
func (d *Document) Elements(path string) []*etree.Element {
	return d.root.FindElements(path)
}

// Bytes serializes the document as indented UTF-8 XML with a declaration
func (d *Document) Bytes() ([]byte, error) {
	d.doc.Indent(2)
	return d.doc.WriteToBytes()
}

// TextFrom returns the text of the first element matching path under el
func TextFrom(el *etree.Element, path string) string {
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

// AttrFrom returns an attribute of the first element matching path
// under el, or empty when the element or attribute is missing
func AttrFrom(el *etree.Element, path, attr string) string {
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return found.SelectAttrValue(attr, "")
}

// JoinedFrom joins the text of every element matching path under el.
// Matching no elements yields an empty string, not an error.
func JoinedFrom(el *etree.Element, path, sep string) string {
	found := el.FindElements(path)
	parts := make([]string, 0, len(found))
	for _, e := range found {
		parts = append(parts, strings.TrimSpace(e.Text()))
	}
	return strings.Join(parts, sep)
}
