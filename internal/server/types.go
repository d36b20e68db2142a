package server

import (
	"github.com/rezonia/finvoice-processor/internal/finvoice/schema"
	"github.com/rezonia/finvoice-processor/internal/importer"
	"github.com/rezonia/finvoice-processor/internal/model"
)

// ProcessResponse is the response for the process endpoint
type ProcessResponse struct {
	Invoice  *model.Invoice `json:"invoice"`
	Adapter  string         `json:"adapter"`
	Schema   schema.Result  `json:"schema"`
	Warnings []string       `json:"warnings,omitempty"`
}

// ImportResponse is the response for the import endpoint
type ImportResponse struct {
	Imported *importer.ImportedInvoice `json:"imported"`
	Adapter  string                    `json:"adapter"`
	Schema   schema.Result             `json:"schema"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// ValidationResponse is the response for the validate endpoint
type ValidationResponse struct {
	Valid      bool     `json:"valid"`
	Version    string   `json:"version"`
	Violations []string `json:"violations,omitempty"`
}

// InfoResponse is the response for the info endpoint
type InfoResponse struct {
	Format  string `json:"format"`
	Version string `json:"version,omitempty"`
	Size    int    `json:"size"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
