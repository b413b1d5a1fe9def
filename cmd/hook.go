package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/changelog"
	"github.com/fakeyudi/aitrack/internal/config"
	"github.com/fakeyudi/aitrack/internal/dedup"
	"github.com/fakeyudi/aitrack/internal/diag"
	"github.com/fakeyudi/aitrack/internal/tracker"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Record one PostToolUse event read from stdin (run by the agent host)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runHook(cmd.Context(), cmd.InOrStdin())
		return nil
	},
}

// runHook never fails and never writes to stdout: the host must not see
// any output or non-zero exit from the hook.
func runHook(ctx context.Context, in io.Reader) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		return
	}

	c, cfgErr := config.Load()

	log := diag.Discard()
	if c.DebugEnabled() {
		_ = changelog.EnsureDir(c.DebugLogFile)
		log = diag.New(c.DebugLogFile, diag.DefaultTag)
	}
	if cfgErr != nil {
		log.Error("Failed to load config, using defaults", "error", cfgErr)
	}
	if err := changelog.EnsureDir(c.LogFile); err != nil {
		log.Error("Failed to create log directory", "error", err)
	}

	t := tracker.New(tracker.Options{
		Source: c.Source,
		Writer: changelog.NewWriter(c.LogFile),
		Window: openWindow(ctx, c, log),
		Logger: log,
	})
	defer t.Close()

	if d := time.Duration(c.Hook.ReadTimeout); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	t.Run(ctx, in)
}

// openWindow returns the dedup window, backed by SQLite when persistent
// dedup is configured. It falls back to memory if the database won't open.
func openWindow(ctx context.Context, c config.Config, log *slog.Logger) *dedup.Window {
	if !c.Dedup.Persistent {
		return dedup.NewWindow(nil)
	}
	store, err := dedup.OpenSQLite(ctx, c.Dedup.DBPath)
	if err != nil {
		log.Error("Failed to open dedup database, using memory", "error", err)
		return dedup.NewWindow(nil)
	}
	return dedup.NewWindow(store)
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
