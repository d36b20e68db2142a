package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/finvoice-processor/internal/finvoice"
	"github.com/rezonia/finvoice-processor/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show file information",
	Long: `Show basic information about files without fully parsing them:
detected format, declared Finvoice version and size.

Examples:
  finvoice-processor info invoice.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	infos := make([]*FileInfo, 0, len(files))
	for _, file := range files {
		info := &FileInfo{File: file}

		data, err := os.ReadFile(file)
		if err != nil {
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}

		info.Format = processor.DetectFormat(data).String()
		info.Size = len(data)
		if doc, err := finvoice.Parse(data); err == nil {
			info.Version = doc.Version()
		}
		infos = append(infos, info)
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}

	for _, info := range infos {
		if info.Error != "" {
			fmt.Printf("%s: error: %s\n", info.File, info.Error)
			continue
		}
		version := info.Version
		if version == "" {
			version = "-"
		}
		fmt.Printf("%s: format=%s version=%s size=%d\n", info.File, info.Format, version, info.Size)
	}
	return nil
}

// FileInfo holds basic information about one file
type FileInfo struct {
	File    string `json:"file"`
	Format  string `json:"format,omitempty"`
	Version string `json:"version,omitempty"`
	Size    int    `json:"size"`
	Error   string `json:"error,omitempty"`
}
