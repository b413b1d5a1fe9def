package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/changelog"
	"github.com/fakeyudi/aitrack/internal/record"
)

var watchFilters filterFlags

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes as they are recorded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := watchFilters.build(time.Now())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		path := GetConfig().LogFile
		cmd.PrintErrf("watching %s (ctrl+c to stop)\n", path)
		return changelog.Follow(ctx, path, f, func(rec record.ChangeRecord) {
			fmt.Fprintln(cmd.OutOrStdout(), formatRecord(rec))
		})
	},
}

func init() {
	watchFilters.bind(watchCmd, false)
	rootCmd.AddCommand(watchCmd)
}
