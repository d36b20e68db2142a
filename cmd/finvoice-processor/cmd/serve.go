package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/finvoice-processor/internal/importer"
	"github.com/rezonia/finvoice-processor/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for processing Finvoice documents.

The API provides endpoints for:
  - POST /api/v1/process   - Parse a Finvoice document
  - POST /api/v1/import    - Parse and materialize a document
  - POST /api/v1/export    - Render a JSON invoice as Finvoice XML
  - POST /api/v1/validate  - Validate against the XSD
  - POST /api/v1/info      - Get payload information
  - GET  /health           - Health check

Examples:
  # Start server on default port
  finvoice-processor serve

  # Start on custom port in strict mode
  finvoice-processor serve --address :8080 --strict

  # Start in debug mode
  finvoice-processor serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 30*time.Second, "HTTP write timeout")
	serveCmd.Flags().StringVar(&importDirection, "direction", "purchase", "Document direction (purchase, sale)")
	serveCmd.Flags().IntVar(&zeroPriceSkip, "zero-price-skip", 0, "Skip zero-price rows on invoices with more rows than this (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	config := &server.Config{
		Address:          serverAddr,
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		Debug:            serverDebug,
		StrictValidation: strictSchema,
		CheckAttachments: true,
		Direction:        importer.Direction(importDirection),
		ZeroPriceSkip:    zeroPriceSkip,
	}

	srv := server.NewServer(config)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", serverAddr)
	return srv.Run()
}
