package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/aitrack/internal/changelog"
	"github.com/fakeyudi/aitrack/internal/record"
	"github.com/fakeyudi/aitrack/internal/tui"
)

// filterFlags are the record filters shared by log, watch and export.
type filterFlags struct {
	tool    string
	session string
	file    string
	since   string
	limit   int
}

func (f *filterFlags) bind(cmd *cobra.Command, withLimit bool) {
	cmd.Flags().StringVar(&f.tool, "tool", "", "only show edit or write changes")
	cmd.Flags().StringVar(&f.session, "session", "", "only show changes from this session ID")
	cmd.Flags().StringVar(&f.file, "file", "", "only show files whose path contains this text")
	cmd.Flags().StringVar(&f.since, "since", "", "only show changes newer than a duration (2h) or RFC3339 time")
	if withLimit {
		cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "show only the last N changes")
	}
}

func (f *filterFlags) build(now time.Time) (changelog.Filter, error) {
	out := changelog.Filter{SessionID: f.session, File: f.file, Limit: f.limit}
	switch strings.ToLower(f.tool) {
	case "":
	case string(record.ToolEdit), string(record.ToolWrite):
		out.Tool = record.Tool(strings.ToLower(f.tool))
	default:
		return out, fmt.Errorf("unknown tool %q (supported: edit, write)", f.tool)
	}
	if f.since != "" {
		since, err := parseSince(f.since, now)
		if err != nil {
			return out, err
		}
		out.Since = since
	}
	if f.limit < 0 {
		return out, fmt.Errorf("--limit must not be negative")
	}
	return out, nil
}

// parseSince accepts a duration relative to now or an absolute RFC3339 time.
func parseSince(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want a duration like 2h or an RFC3339 time", s)
}

var (
	lineTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	linePathStyle = lipgloss.NewStyle().Bold(true)
	lineDimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// formatRecord renders one record as a single styled line.
func formatRecord(rec record.ChangeRecord) string {
	ts := lineTimeStyle.Render(rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
	loc := linePathStyle.Render(fmt.Sprintf("%s:%d", rec.FilePath, rec.LineNumber))
	line := ts + "  " + tui.ToolBadge(rec.Tool) + "  " + loc
	if rec.Prompt != "" {
		line += "  " + lineDimStyle.Render(tui.FirstLine(rec.Prompt))
	}
	return line
}
