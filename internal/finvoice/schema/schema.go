// Package schema validates Finvoice documents against the versioned XSD.
//
// The XSD is embedded and compiled once per version into an element
// model (allowed children, sequence order, occurrence bounds, declared
// attributes). The compiled schemas are cached for the process lifetime
// and safe for concurrent use.
package schema

import (
	_ "embed"
	"fmt"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/rezonia/finvoice-processor/internal/finvoice"
	"github.com/rezonia/finvoice-processor/internal/model"
)

//go:embed Finvoice3.0.xsd
var finvoice30XSD []byte

var xsdSources = map[string][]byte{
	"3.0": finvoice30XSD,
}

type childRule struct {
	name string
	min  int
	max  int // -1 means unbounded
}

type elementRule struct {
	name     string
	children []childRule
	attrs    map[string]bool
}

// Schema is a compiled, immutable element model for one Finvoice version.
// Element names are globally unique in the Finvoice vocabulary, so rules
// are keyed by element name alone.
type Schema struct {
	Version string
	rules   map[string]*elementRule
}

// Result is the outcome of validating one document
type Result struct {
	Valid      bool     `json:"valid"`
	Version    string   `json:"version"`
	Violations []string `json:"violations,omitempty"`
}

// Err returns a SchemaError when the document is invalid, nil otherwise
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return model.NewSchemaError(r.Version, r.Violations)
}

// Validator compiles and caches schemas by version string
type Validator struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewValidator creates an empty validator; schemas compile on first use
func NewValidator() *Validator {
	return &Validator{schemas: make(map[string]*Schema)}
}

// Schema returns the compiled schema for a version, compiling it at most
// once. Concurrent first use is guarded by the mutex.
func (v *Validator) Schema(version string) (*Schema, error) {
	v.mu.RLock()
	s, ok := v.schemas[version]
	v.mu.RUnlock()
	if ok {
		return s, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.schemas[version]; ok {
		return s, nil
	}

	src, ok := xsdSources[version]
	if !ok {
		return nil, fmt.Errorf("no Finvoice schema for version %q", version)
	}
	s, err := Compile(version, src)
	if err != nil {
		return nil, err
	}
	v.schemas[version] = s
	return s, nil
}

// Validate checks a parsed document against the schema for its declared
// version. Whether a failed validation blocks processing is a policy
// decision owned by the caller.
func (v *Validator) Validate(doc *finvoice.Document) Result {
	version := doc.Version()
	s, err := v.Schema(version)
	if err != nil {
		return Result{Valid: false, Version: version, Violations: []string{err.Error()}}
	}
	return s.Validate(doc.Root())
}

// ValidateBytes parses raw XML and validates it
func (v *Validator) ValidateBytes(data []byte) Result {
	doc, err := finvoice.Parse(data)
	if err != nil {
		return Result{Valid: false, Version: model.FinvoiceVersion, Violations: []string{err.Error()}}
	}
	return v.Validate(doc)
}

// Compile builds a Schema from XSD source. Only the subset of XSD the
// Finvoice schema uses is understood: global and inline element
// declarations, sequences with occurrence bounds, and attributes
// declared directly or through simpleContent extensions.
func Compile(version string, src []byte) (*Schema, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(src); err != nil {
		return nil, fmt.Errorf("cannot parse XSD: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "schema" {
		return nil, fmt.Errorf("not an XSD document")
	}

	// Named complex types only contribute attribute declarations
	typeAttrs := make(map[string]map[string]bool)
	for _, ct := range root.SelectElements("xs:complexType") {
		name := ct.SelectAttrValue("name", "")
		if name == "" {
			continue
		}
		typeAttrs[name] = collectAttrs(ct)
	}

	s := &Schema{Version: version, rules: make(map[string]*elementRule)}
	for _, el := range root.FindElements(".//xs:element") {
		name := el.SelectAttrValue("name", "")
		if name == "" {
			// a ref, handled where it is referenced
			continue
		}
		rule := &elementRule{name: name, attrs: collectAttrs(el)}

		if typeName := el.SelectAttrValue("type", ""); typeName != "" {
			for a := range typeAttrs[typeName] {
				rule.attrs[a] = true
			}
		}

		if seq := el.FindElement("./xs:complexType/xs:sequence"); seq != nil {
			for _, ce := range seq.SelectElements("xs:element") {
				childName := ce.SelectAttrValue("name", "")
				if childName == "" {
					childName = ce.SelectAttrValue("ref", "")
				}
				if childName == "" {
					continue
				}
				rule.children = append(rule.children, childRule{
					name: childName,
					min:  parseOccurs(ce.SelectAttrValue("minOccurs", "1"), 1),
					max:  parseOccurs(ce.SelectAttrValue("maxOccurs", "1"), 1),
				})
			}
		}

		s.rules[name] = rule
	}

	if _, ok := s.rules[finvoice.RootTag]; !ok {
		return nil, fmt.Errorf("XSD does not declare a %s root element", finvoice.RootTag)
	}
	return s, nil
}

func collectAttrs(el *etree.Element) map[string]bool {
	attrs := make(map[string]bool)
	for _, path := range []string{
		"./xs:complexType/xs:attribute",
		"./xs:complexType/xs:simpleContent/xs:extension/xs:attribute",
		"./xs:attribute",
		"./xs:simpleContent/xs:extension/xs:attribute",
	} {
		for _, a := range el.FindElements(path) {
			if name := a.SelectAttrValue("name", ""); name != "" {
				attrs[name] = true
			}
		}
	}
	return attrs
}

func parseOccurs(s string, def int) int {
	if s == "unbounded" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Validate walks the element tree against the compiled model
func (s *Schema) Validate(root *etree.Element) Result {
	res := Result{Valid: true, Version: s.Version}
	if root.Tag != finvoice.RootTag {
		res.Valid = false
		res.Violations = append(res.Violations,
			fmt.Sprintf("root element is <%s>, expected <%s>", root.Tag, finvoice.RootTag))
		return res
	}
	s.validateElement(root, &res.Violations)
	res.Valid = len(res.Violations) == 0
	return res
}

func (s *Schema) validateElement(el *etree.Element, violations *[]string) {
	rule := s.rules[el.Tag]
	if rule == nil {
		*violations = append(*violations, fmt.Sprintf("unknown element <%s>", el.Tag))
		return
	}

	for _, a := range el.Attr {
		if a.Space == "xmlns" || a.Key == "xmlns" || a.Space == "xsi" {
			continue
		}
		if !rule.attrs[a.Key] {
			*violations = append(*violations,
				fmt.Sprintf("unexpected attribute %q on <%s>", a.Key, el.Tag))
		}
	}

	children := el.ChildElements()
	i := 0
	for _, cr := range rule.children {
		count := 0
		for i < len(children) && children[i].Tag == cr.name {
			s.validateElement(children[i], violations)
			i++
			count++
		}
		if count < cr.min {
			*violations = append(*violations,
				fmt.Sprintf("missing required element <%s> in <%s>", cr.name, el.Tag))
		}
		if cr.max >= 0 && count > cr.max {
			*violations = append(*violations,
				fmt.Sprintf("too many <%s> elements in <%s>", cr.name, el.Tag))
		}
	}
	for ; i < len(children); i++ {
		*violations = append(*violations,
			fmt.Sprintf("unexpected element <%s> in <%s>", children[i].Tag, el.Tag))
	}
}
