package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/install"
)

var settingsPath string

// installer builds an Installer for the --settings flag or the default
// settings location, pointing at this executable.
func installer() (install.Installer, error) {
	path := settingsPath
	if path == "" {
		p, err := install.SettingsPath()
		if err != nil {
			return install.Installer{}, err
		}
		path = p
	}
	exe, err := os.Executable()
	if err != nil {
		return install.Installer{}, fmt.Errorf("locating aitrack executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return install.Installer{Path: path, Command: install.HookCommand(exe)}, nil
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the aitrack hook for Edit and Write tool calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := installer()
		if err != nil {
			return err
		}
		changed, err := inst.Install()
		if err != nil {
			return err
		}
		if !changed {
			cmd.Printf("Hook already installed in %s\n", inst.Path)
			return nil
		}
		cmd.Printf("✓ Hook installed in %s\n", inst.Path)
		cmd.Printf("  Changes will be logged to %s\n", GetConfig().LogFile)
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the aitrack hook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inst, err := installer()
		if err != nil {
			return err
		}
		removed, err := inst.Uninstall()
		if err != nil {
			return err
		}
		if !removed {
			cmd.Printf("No aitrack hook found in %s\n", inst.Path)
			return nil
		}
		cmd.Printf("✓ Hook removed from %s\n", inst.Path)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{installCmd, uninstallCmd} {
		c.Flags().StringVar(&settingsPath, "settings", "", "settings file to edit (default ~/.claude/settings.json)")
		rootCmd.AddCommand(c)
	}
}
