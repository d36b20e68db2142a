package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rezonia/finvoice-processor/internal/importer"
	"github.com/rezonia/finvoice-processor/internal/processor"
)

var (
	importDirection   string
	zeroPriceSkip     int
	defaultAccount    string
	importOutputFile  string
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import Finvoice files against the in-memory stores",
	Long: `Parse Finvoice files and materialize them as importable records.

The command runs against empty in-memory stores, so every seller is
created as a new partner and rows resolve against a default account.
It mirrors what an integration backed by real stores would do and is
mainly useful to inspect how a document would import.

Examples:
  finvoice-processor import invoice.xml
  finvoice-processor import *.xml --direction sale
  finvoice-processor import invoice.xml --zero-price-skip 200`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importDirection, "direction", "purchase", "Document direction (purchase, sale)")
	importCmd.Flags().IntVar(&zeroPriceSkip, "zero-price-skip", 0, "Skip zero-price rows on invoices with more rows than this (0 disables)")
	importCmd.Flags().StringVar(&defaultAccount, "default-account", "", "Fallback ledger account for rows without a product")
	importCmd.Flags().StringVarP(&importOutputFile, "output", "o", "", "Output file (default: stdout)")
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	direction := importer.Direction(importDirection)
	if direction != importer.DirectionPurchase && direction != importer.DirectionSale {
		return fmt.Errorf("unknown direction: %s", importDirection)
	}

	pipeline := processor.NewPipeline(
		processor.WithStrictValidation(strictSchema),
	)
	imp := importer.New(importer.Stores{
		Parties:      importer.NewMemoryPartyStore(),
		Products:     importer.NewMemoryProductStore(),
		Accounts:     &importer.MemoryAccountResolver{},
		BankAccounts: importer.NewMemoryBankAccountStore(),
		Taxes:        defaultTaxTable(direction),
		Uoms:         importer.NewMemoryUomTable(importer.UomRecord{ID: 1, Code: "pcs"}),
	},
		importer.WithDirection(direction),
		importer.WithZeroPriceSkipThreshold(zeroPriceSkip),
		importer.WithDefaultAccount(defaultAccount),
	)

	results := make([]*ImportResult, 0, len(files))
	for _, file := range files {
		printVerbose("Importing: %s\n", file)
		results = append(results, importFile(pipeline, imp, file))
	}

	writer := os.Stdout
	if importOutputFile != "" {
		f, err := os.Create(importOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func importFile(pipeline *processor.Pipeline, imp *importer.Importer, filePath string) *ImportResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := &ImportResult{File: filePath}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	pipelineResult := pipeline.ProcessXMLBytes(ctx, data)
	if pipelineResult.Error != nil {
		result.Error = pipelineResult.Error.Error()
		result.Warnings = pipelineResult.Warnings
		return result
	}

	imported, err := imp.Import(ctx, pipelineResult.Invoice)
	if err != nil {
		result.Error = err.Error()
		result.Warnings = pipelineResult.Warnings
		return result
	}

	result.Imported = imported
	result.Adapter = pipelineResult.Adapter
	result.Warnings = pipelineResult.Warnings
	return result
}

// defaultTaxTable covers the Finnish VAT rates so a plain CLI import
// does not abort on the first taxed row
func defaultTaxTable(direction importer.Direction) *importer.MemoryTaxTable {
	rates := []string{"25.5", "24", "14", "10", "0"}
	records := make([]importer.TaxRecord, 0, len(rates))
	for i, rate := range rates {
		records = append(records, importer.TaxRecord{
			Name:        "VAT " + rate + "%",
			RatePercent: mustDecimal(rate),
			Direction:   direction,
			Sequence:    i,
		})
	}
	return importer.NewMemoryTaxTable(records...)
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ImportResult holds the result of importing a single file
type ImportResult struct {
	File     string                    `json:"file"`
	Imported *importer.ImportedInvoice `json:"imported,omitempty"`
	Adapter  string                    `json:"adapter,omitempty"`
	Warnings []string                  `json:"warnings,omitempty"`
	Error    string                    `json:"error,omitempty"`
}
