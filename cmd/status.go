package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/changelog"
	"github.com/fakeyudi/aitrack/internal/install"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where changes are logged and whether the hook is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		recs, err := changelog.Read(c.LogFile, changelog.Filter{})
		if err != nil {
			return err
		}

		cmd.Printf("Log file: %s\n", c.LogFile)
		cmd.Printf("Changes: %d\n", len(recs))
		if n := len(recs); n > 0 {
			last := recs[n-1]
			cmd.Printf("Last change: %s %s %s:%d\n",
				last.Timestamp.Local().Format(time.RFC3339), last.Tool, last.FilePath, last.LineNumber)
		}
		if c.DebugEnabled() {
			cmd.Printf("Debug log: %s\n", c.DebugLogFile)
		} else {
			cmd.Println("Debug log: disabled")
		}
		if c.Dedup.Persistent {
			cmd.Printf("Dedup: persistent (%s)\n", c.Dedup.DBPath)
		} else {
			cmd.Println("Dedup: per process")
		}

		settings, err := install.SettingsPath()
		if err != nil {
			return err
		}
		installed := "no"
		if (install.Installer{Path: settings}).IsInstalled() {
			installed = "yes"
		}
		cmd.Printf("Hook installed: %s (%s)\n", installed, settings)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
