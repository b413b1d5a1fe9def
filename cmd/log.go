package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/changelog"
	"github.com/fakeyudi/aitrack/internal/report"
	"github.com/fakeyudi/aitrack/internal/tui"
)

var (
	logFilters filterFlags
	logPlain   bool
	logJSON    bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Browse recorded changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		f, err := logFilters.build(now)
		if err != nil {
			return err
		}
		path := GetConfig().LogFile
		recs, err := changelog.Read(path, f)
		if err != nil {
			return err
		}

		switch {
		case logJSON:
			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := range recs {
				if err := enc.Encode(&recs[i]); err != nil {
					return err
				}
			}
			return nil
		case logPlain || !isTerminal(cmd):
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "no changes recorded")
				return nil
			}
			for _, rec := range recs {
				fmt.Fprintln(out, formatRecord(rec))
			}
			return nil
		}
		return tui.Run(report.Build(recs, path, now), path)
	},
}

// isTerminal reports whether the command writes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func init() {
	logFilters.bind(logCmd, true)
	logCmd.Flags().BoolVar(&logPlain, "plain", false, "plain text output instead of TUI")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "print matching records as JSON lines")
	rootCmd.AddCommand(logCmd)
}
