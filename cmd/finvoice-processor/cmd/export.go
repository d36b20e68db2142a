package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rezonia/finvoice-processor/internal/export"
	"github.com/rezonia/finvoice-processor/internal/finvoice/schema"
	"github.com/rezonia/finvoice-processor/internal/model"
)

var (
	exportOutputDir     string
	exportOverdueFine   bool
	exportAgreementID   bool
)

var exportCmd = &cobra.Command{
	Use:   "export [files...]",
	Short: "Render JSON invoices as Finvoice XML",
	Long: `Render one or more JSON invoice files as Finvoice 3.0 XML.

Each input file holds one invoice in the same JSON shape the process
command emits. The rendered file is named after the invoice number,
with slashes replaced by underscores.

Examples:
  finvoice-processor export invoice.json
  finvoice-processor export *.json -d out/
  finvoice-processor export invoice.json --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutputDir, "output-dir", "d", ".", "Directory for rendered XML files")
	exportCmd.Flags().BoolVar(&exportOverdueFine, "overdue-fine", true, "Render the overdue fine percent when set")
	exportCmd.Flags().BoolVar(&exportAgreementID, "agreement-id", true, "Render the agreement identifier when set")
}

func runExport(cmd *cobra.Command, args []string) error {
	renderer := export.NewRenderer(schema.NewValidator(),
		export.WithStrictValidation(strictSchema),
		export.WithCapabilities(export.Capabilities{
			OverdueFinePercent:  exportOverdueFine,
			AgreementIdentifier: exportAgreementID,
		}),
	)

	for _, file := range args {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		var inv model.Invoice
		if err := json.Unmarshal(data, &inv); err != nil {
			return fmt.Errorf("invalid invoice in %s: %w", file, err)
		}

		out, err := renderer.Render(&inv)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", file, err)
		}

		target := filepath.Join(exportOutputDir, renderer.Filename(&inv))
		if err := os.WriteFile(target, out, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		printVerbose("Rendered: %s -> %s\n", file, target)
	}

	return nil
}
