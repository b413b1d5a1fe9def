package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/report"
	"github.com/fakeyudi/aitrack/internal/tui"
)

var viewPlain bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View an exported report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		r, err := report.ParserFor(path).Parse(data)
		if err != nil {
			return err
		}

		if viewPlain || !isTerminal(cmd) {
			printReport(cmd, r)
			return nil
		}
		return tui.Run(r, path)
	},
}

// printReport writes a plain-text summary of r to the command's output.
func printReport(cmd *cobra.Command, r *report.Report) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "## Summary")
	fmt.Fprintf(out, "  Log:        %s\n", r.LogFile)
	fmt.Fprintf(out, "  Generated:  %s\n", r.GeneratedAt.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "  Changes:    %d\n", len(r.Records))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "## Files")
	if len(r.Files) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, f := range r.Files {
		fmt.Fprintf(out, "  %s  (%d edit(s), %d write(s))\n", f.Path, f.Edits, f.Writes)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "## Sessions")
	if len(r.Sessions) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, s := range r.Sessions {
		fmt.Fprintf(out, "  %s  %d change(s)\n", s.ID, s.Changes)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "## Changes")
	if len(r.Records) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, rec := range r.Records {
		fmt.Fprintln(out, "  "+formatRecord(rec))
	}
	fmt.Fprintln(out)
}

func init() {
	viewCmd.Flags().BoolVar(&viewPlain, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
