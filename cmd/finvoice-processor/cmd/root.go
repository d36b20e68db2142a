package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rezonia/finvoice-processor/internal/logger"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	logFormat    string
	strictSchema bool
)

var rootCmd = &cobra.Command{
	Use:   "finvoice-processor",
	Short: "Import and export Finnish Finvoice 3.0 e-invoices",
	Long: `Finvoice Processor is a CLI tool for working with Finnish Finvoice 3.0
e-invoices.

Supports:
  - Parsing bare and SOAP-framed Finvoice XML
  - Schema validation against the Finvoice XSD
  - Materializing invoices against accounting stores
  - Rendering invoices back to Finvoice XML

Examples:
  # Parse a single Finvoice file
  finvoice-processor process invoice.xml

  # Import files against the in-memory stores
  finvoice-processor import *.xml

  # Validate against the schema
  finvoice-processor validate invoice.xml --strict

  # Render a JSON invoice as Finvoice XML
  finvoice-processor export invoice.json`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, csv, table)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&strictSchema, "strict", false, "Treat schema violations as errors")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A .env file is optional
	_ = godotenv.Load()

	cfg := logger.DefaultConfig()
	cfg.Format = logFormat
	if verbose {
		cfg.Level = "debug"
	}
	if level := os.Getenv("FINVOICE_LOG_LEVEL"); level != "" && !verbose {
		cfg.Level = level
	}
	if err := logger.Setup(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
