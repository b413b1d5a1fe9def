package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fakeyudi/aitrack/internal/record"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
}

// RendererFor returns the renderer and file extension for format
// ("markdown" or "json").
func RendererFor(format string) (Renderer, string, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return &MarkdownRenderer{}, ".md", nil
	case "json":
		return &JSONRenderer{}, ".json", nil
	default:
		return nil, "", fmt.Errorf("unknown format %q (supported: markdown, json)", format)
	}
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (j *JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// MarkdownRenderer renders a Report as human-readable Markdown with an
// embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (m *MarkdownRenderer) Render(r *Report) ([]byte, error) {
	jsonBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder

	// Sentinel and embedded payload.
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# AI Changes — %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	// ## Summary
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Log: %s\n", r.LogFile)
	fmt.Fprintf(&sb, "- Changes: %d\n", len(r.Records))
	fmt.Fprintf(&sb, "- Files: %d\n", len(r.Files))
	fmt.Fprintf(&sb, "- Sessions: %d\n", len(r.Sessions))
	sb.WriteString("\n")

	// ## Files
	sb.WriteString("## Files\n\n")
	if len(r.Files) == 0 {
		sb.WriteString("_No files changed._\n")
	} else {
		sb.WriteString("| Path | Edits | Writes | Lines | Last Change |\n")
		sb.WriteString("|------|-------|--------|-------|-------------|\n")
		for _, f := range r.Files {
			fmt.Fprintf(&sb, "| %s | %d | %d | %s | %s |\n",
				escapeCell(f.Path), f.Edits, f.Writes, joinInts(f.Lines),
				f.LastChange.Format("2006-01-02 15:04:05"),
			)
		}
	}
	sb.WriteString("\n")

	// ## Sessions
	sb.WriteString("## Sessions\n\n")
	if len(r.Sessions) == 0 {
		sb.WriteString("_No sessions recorded._\n")
	} else {
		for _, s := range r.Sessions {
			fmt.Fprintf(&sb, "### %s\n\n", s.ID)
			fmt.Fprintf(&sb, "- Source: %s\n", s.Source)
			fmt.Fprintf(&sb, "- Window: %s → %s\n",
				s.Start.Format("2006-01-02 15:04:05"), s.End.Format("15:04:05"))
			fmt.Fprintf(&sb, "- Changes: %d\n", s.Changes)
			for _, p := range s.Prompts {
				fmt.Fprintf(&sb, "> %s\n", firstLine(p))
			}
			sb.WriteString("\n")
		}
	}

	// ## Changes
	sb.WriteString("## Changes\n\n")
	if len(r.Records) == 0 {
		sb.WriteString("_No changes recorded._\n")
	} else {
		for _, rec := range r.Records {
			fmt.Fprintf(&sb, "- %s `%s` %s:%d",
				rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Tool, rec.FilePath, rec.LineNumber)
			if rec.Tool == record.ToolWrite && rec.IsNewFile != nil && *rec.IsNewFile {
				sb.WriteString(" (new file)")
			}
			if rec.ReplaceAll != nil && *rec.ReplaceAll {
				sb.WriteString(" (replace all)")
			}
			sb.WriteString("\n")
			if rec.NewString != nil {
				sb.WriteString("\n```\n")
				sb.WriteString(*rec.NewString)
				if !strings.HasSuffix(*rec.NewString, "\n") {
					sb.WriteString("\n")
				}
				sb.WriteString("```\n\n")
			}
		}
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
