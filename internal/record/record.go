// Package record defines the ChangeRecord persisted to the change log, one
// JSON object per line.
package record

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Tool names a supported editing tool.
type Tool string

const (
	ToolEdit  Tool = "edit"
	ToolWrite Tool = "write"
)

// Field limits, counted in UTF-16 code units so lengths agree with the
// editor plugin that consumes the log.
const (
	MaxStringLen = 200
	MaxPromptLen = 500

	fingerprintLen = 50
)

// TimeFormat is the timestamp layout written to the log: UTC with exactly
// three fractional digits.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// ChangeRecord is one tool invocation's effect on a file.
type ChangeRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Source     string    `json:"source"`
	Tool       Tool      `json:"tool"`
	FilePath   string    `json:"file_path"`
	LineNumber int       `json:"line_number"`

	// Edit only.
	OldString  *string `json:"old_string,omitempty"`
	NewString  *string `json:"new_string,omitempty"`
	ReplaceAll *bool   `json:"replace_all,omitempty"`

	// Write only.
	IsNewFile     *bool `json:"is_new_file,omitempty"`
	ContentLength *int  `json:"content_length,omitempty"`

	Prompt string `json:"prompt"`
}

// MarshalJSON writes Timestamp in TimeFormat. Decoding needs no counterpart:
// time.Time parses it as RFC 3339.
func (r ChangeRecord) MarshalJSON() ([]byte, error) {
	type plain ChangeRecord
	return json.Marshal(struct {
		Timestamp string `json:"timestamp"`
		plain
	}{r.Timestamp.UTC().Format(TimeFormat), plain(r)})
}

// NewEdit builds an edit record. oldString and newString may be nil when the
// tool input did not carry them.
func NewEdit(path string, line int, oldString, newString *string, replaceAll bool, prompt string) *ChangeRecord {
	return &ChangeRecord{
		Tool:       ToolEdit,
		FilePath:   path,
		LineNumber: line,
		OldString:  truncatePtr(oldString, MaxStringLen),
		NewString:  truncatePtr(newString, MaxStringLen),
		ReplaceAll: &replaceAll,
		Prompt:     Truncate(prompt, MaxPromptLen),
	}
}

// NewWrite builds a write record. Writes always report line 1.
func NewWrite(path string, isNewFile bool, contentLength int, prompt string) *ChangeRecord {
	return &ChangeRecord{
		Tool:          ToolWrite,
		FilePath:      path,
		LineNumber:    1,
		IsNewFile:     &isNewFile,
		ContentLength: &contentLength,
		Prompt:        Truncate(prompt, MaxPromptLen),
	}
}

// Fingerprint identifies a change for duplicate suppression:
// tool|file_path|line_number|old[:50]|new[:50]. Missing strings are rendered
// as "undefined", which is what existing log tooling keys on.
func (r *ChangeRecord) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString(string(r.Tool))
	sb.WriteByte('|')
	sb.WriteString(r.FilePath)
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(r.LineNumber))
	sb.WriteByte('|')
	sb.WriteString(fingerprintPart(r.OldString))
	sb.WriteByte('|')
	sb.WriteString(fingerprintPart(r.NewString))
	return sb.String()
}

func fingerprintPart(s *string) string {
	if s == nil {
		return "undefined"
	}
	return Truncate(*s, fingerprintLen)
}

func truncatePtr(s *string, n int) *string {
	if s == nil {
		return nil
	}
	t := Truncate(*s, n)
	return &t
}

// Truncate returns the longest prefix of s that is at most n UTF-16 code
// units long. A rune needing a surrogate pair is never split; it is dropped.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	units := 0
	for i, r := range s {
		w := runeUnits(r)
		if units+w > n {
			return s[:i]
		}
		units += w
	}
	return s
}

// Length returns the length of s in UTF-16 code units.
func Length(s string) int {
	units := 0
	for _, r := range s {
		units += runeUnits(r)
	}
	return units
}

func runeUnits(r rune) int {
	if r > 0xFFFF && r <= utf8.MaxRune {
		return 2
	}
	return 1
}
