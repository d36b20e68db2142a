// Package server exposes the Finvoice pipeline over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rezonia/finvoice-processor/internal/export"
	"github.com/rezonia/finvoice-processor/internal/finvoice"
	"github.com/rezonia/finvoice-processor/internal/finvoice/schema"
	"github.com/rezonia/finvoice-processor/internal/importer"
	"github.com/rezonia/finvoice-processor/internal/model"
	"github.com/rezonia/finvoice-processor/internal/processor"
)

// Config holds server configuration
type Config struct {
	Address          string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Debug            bool
	StrictValidation bool
	CheckAttachments bool
	Direction        importer.Direction
	ZeroPriceSkip    int
	DefaultAccount   string
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *processor.Pipeline
	importer *importer.Importer
}

// NewServer creates a new API server. The importer runs against
// in-memory stores unless replaced with SetImporter.
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	validator := schema.NewValidator()
	pipeline := processor.NewPipeline(
		processor.WithValidator(validator),
		processor.WithStrictValidation(config.StrictValidation),
		processor.WithAttachmentCheck(config.CheckAttachments),
		processor.WithRenderer(export.NewRenderer(validator)),
	)

	direction := config.Direction
	if direction == "" {
		direction = importer.DirectionPurchase
	}
	imp := importer.New(importer.Stores{
		Parties:      importer.NewMemoryPartyStore(),
		Products:     importer.NewMemoryProductStore(),
		Accounts:     &importer.MemoryAccountResolver{},
		BankAccounts: importer.NewMemoryBankAccountStore(),
		Taxes:        importer.NewMemoryTaxTable(),
		Uoms:         importer.NewMemoryUomTable(importer.UomRecord{ID: 1, Code: "pcs"}),
	},
		importer.WithDirection(direction),
		importer.WithZeroPriceSkipThreshold(config.ZeroPriceSkip),
		importer.WithDefaultAccount(config.DefaultAccount),
	)

	s := &Server{
		config:   config,
		router:   router,
		pipeline: pipeline,
		importer: imp,
	}

	s.setupRoutes()
	return s
}

// SetImporter replaces the importer, typically to back it with real
// stores. Must be called before Run.
func (s *Server) SetImporter(imp *importer.Importer) {
	s.importer = imp
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/process", s.handleProcess)
		v1.POST("/import", s.handleImport)
		v1.POST("/export", s.handleExport)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/info", s.handleInfo)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	log.Info().Str("address", s.config.Address).Msg("starting HTTP server")
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleProcess parses a Finvoice document without touching any stores
func (s *Server) handleProcess(c *gin.Context) {
	body, ok := s.rawBody(c)
	if !ok {
		return
	}

	result := s.pipeline.ProcessXMLBytes(c.Request.Context(), body)
	if result.Error != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:    result.Error.Error(),
			Warnings: result.Warnings,
		})
		return
	}

	c.JSON(http.StatusOK, ProcessResponse{
		Invoice:  result.Invoice,
		Adapter:  result.Adapter,
		Schema:   result.Schema,
		Warnings: result.Warnings,
	})
}

// handleImport parses a document and materializes it against the stores
func (s *Server) handleImport(c *gin.Context) {
	body, ok := s.rawBody(c)
	if !ok {
		return
	}

	result := s.pipeline.ProcessXMLBytes(c.Request.Context(), body)
	if result.Error != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:    result.Error.Error(),
			Warnings: result.Warnings,
		})
		return
	}

	imported, err := s.importer.Import(c.Request.Context(), result.Invoice)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:    err.Error(),
			Warnings: result.Warnings,
		})
		return
	}

	c.JSON(http.StatusOK, ImportResponse{
		Imported: imported,
		Adapter:  result.Adapter,
		Schema:   result.Schema,
		Warnings: result.Warnings,
	})
}

// handleExport renders a JSON invoice as Finvoice XML
func (s *Server) handleExport(c *gin.Context) {
	var inv model.Invoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid invoice payload", Details: err.Error()})
		return
	}

	out, filename, err := s.pipeline.Export(&inv)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", out)
}

// handleValidate reports schema conformance without importing
func (s *Server) handleValidate(c *gin.Context) {
	body, ok := s.rawBody(c)
	if !ok {
		return
	}

	result := s.pipeline.Validate(body)
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, ValidationResponse{
		Valid:      result.Valid,
		Version:    result.Version,
		Violations: result.Violations,
	})
}

// handleInfo reports what the payload looks like without parsing it fully
func (s *Server) handleInfo(c *gin.Context) {
	body, ok := s.rawBody(c)
	if !ok {
		return
	}

	info := InfoResponse{
		Format: processor.DetectFormat(body).String(),
		Size:   len(body),
	}
	if doc, err := finvoice.Parse(body); err == nil {
		info.Version = doc.Version()
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) rawBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return nil, false
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}
	return body, true
}
