package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/finvoice-processor/internal/model"
	"github.com/rezonia/finvoice-processor/internal/processor"
)

var (
	outputFile string
	timeout    time.Duration
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Parse Finvoice files",
	Long: `Parse one or more Finvoice XML files into structured invoices.

The framing is detected automatically: bare Finvoice documents and
SOAP-framed transport envelopes are both accepted. Each document is
validated against the Finvoice XSD; violations are warnings unless
--strict is given.

Examples:
  finvoice-processor process invoice.xml
  finvoice-processor process *.xml -o results.json
  finvoice-processor process invoices/ -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	processCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Processing timeout per file")
}

func runProcess(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}

	printVerbose("Found %d files to process\n", len(files))

	pipeline := processor.NewPipeline(
		processor.WithStrictValidation(strictSchema),
		processor.WithAttachmentCheck(true),
	)

	results := make([]*ProcessResult, 0, len(files))
	for _, file := range files {
		printVerbose("Processing: %s\n", file)

		result := processFile(pipeline, file)
		results = append(results, result)

		if result.Error != "" {
			printVerbose("  Error: %s\n", result.Error)
		} else {
			printVerbose("  Adapter: %s, Rows: %d\n", result.Adapter, len(result.Invoice.Lines))
		}
	}

	return outputResults(results)
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}

			if info.IsDir() {
				err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !info.IsDir() && isSupportedFile(path) {
						files = append(files, path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			} else {
				files = append(files, arg)
			}
		} else {
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					continue
				}
				if !info.IsDir() && isSupportedFile(match) {
					files = append(files, match)
				}
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

func processFile(pipeline *processor.Pipeline, filePath string) *ProcessResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := &ProcessResult{
		File: filePath,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	if processor.DetectFormat(data) != processor.FormatXML {
		result.Error = "not an XML document"
		return result
	}

	pipelineResult := pipeline.ProcessXMLBytes(ctx, data)
	if pipelineResult.Error != nil {
		result.Error = pipelineResult.Error.Error()
		result.Warnings = pipelineResult.Warnings
		return result
	}

	result.Invoice = pipelineResult.Invoice
	result.Adapter = pipelineResult.Adapter
	result.SchemaValid = pipelineResult.Schema.Valid
	result.Warnings = pipelineResult.Warnings

	return result
}

func outputResults(results []*ProcessResult) error {
	var writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch outputFormat {
	case "json":
		return outputJSON(writer, results)
	case "table":
		return outputTable(writer, results)
	case "csv":
		return outputCSV(writer, results)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w *os.File, results []*ProcessResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func outputTable(w *os.File, results []*ProcessResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tNUMBER\tTYPE\tDATE\tTOTAL\tADAPTER\tSCHEMA")
	fmt.Fprintln(tw, "----\t------\t----\t----\t-----\t-------\t------")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\n", r.File, r.Error)
			continue
		}

		if r.Invoice != nil {
			date := ""
			if !r.Invoice.Date.IsZero() {
				date = r.Invoice.Date.Format("2006-01-02")
			}
			schemaState := "valid"
			if !r.SchemaValid {
				schemaState = "invalid"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.File,
				r.Invoice.Number,
				r.Invoice.TypeCode,
				date,
				r.Invoice.AmountTotal.String(),
				r.Adapter,
				schemaState,
			)
		}
	}

	return tw.Flush()
}

func outputCSV(w *os.File, results []*ProcessResult) error {
	fmt.Fprintln(w, "file,number,type_code,date,seller_name,seller_vat,buyer_name,buyer_vat,total_amount,currency,adapter,schema_valid,error")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s,,,,,,,,,,,,%s\n", r.File, escapeCSV(r.Error))
			continue
		}

		if r.Invoice != nil {
			date := ""
			if !r.Invoice.Date.IsZero() {
				date = r.Invoice.Date.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%t,\n",
				r.File,
				r.Invoice.Number,
				r.Invoice.TypeCode,
				date,
				escapeCSV(r.Invoice.Seller.Name),
				r.Invoice.Seller.VAT,
				escapeCSV(r.Invoice.Buyer.Name),
				r.Invoice.Buyer.VAT,
				r.Invoice.AmountTotal.String(),
				r.Invoice.Currency,
				r.Adapter,
				r.SchemaValid,
			)
		}
	}

	return nil
}

func escapeCSV(s string) string {
	if strings.Contains(s, ",") || strings.Contains(s, "\"") || strings.Contains(s, "\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

// ProcessResult holds the result of processing a single file
type ProcessResult struct {
	File        string         `json:"file"`
	Invoice     *model.Invoice `json:"invoice,omitempty"`
	Adapter     string         `json:"adapter,omitempty"`
	SchemaValid bool           `json:"schema_valid"`
	Warnings    []string       `json:"warnings,omitempty"`
	Error       string         `json:"error,omitempty"`
}
