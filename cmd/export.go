package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/changelog"
	"github.com/fakeyudi/aitrack/internal/report"
)

var (
	exportFilters filterFlags
	exportFormat  string
	exportOutput  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write recorded changes to a Markdown or JSON report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		now := time.Now()
		f, err := exportFilters.build(now)
		if err != nil {
			return err
		}

		// Select renderer based on --format flag or config export.format.
		format := exportFormat
		if format == "" {
			format = c.Export.Format
		}
		renderer, ext, err := report.RendererFor(format)
		if err != nil {
			return err
		}

		recs, err := changelog.Read(c.LogFile, f)
		if err != nil {
			return err
		}
		data, err := renderer.Render(report.Build(recs, c.LogFile, now))
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}

		if exportOutput == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		outputPath := exportOutput
		if outputPath == "" {
			outputDir := c.Export.OutputDir
			if outputDir == "" {
				outputDir = "."
			}
			outputPath = filepath.Join(outputDir, "aitrack-"+now.Format("20060102-150405")+ext)
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		cmd.Printf("Exported %d change(s) to %s\n", len(recs), outputPath)
		return nil
	},
}

func init() {
	exportFilters.bind(exportCmd, true)
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "output format: markdown or json (overrides config)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}
