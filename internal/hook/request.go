// Package hook parses the JSON an agent host writes to a PostToolUse hook's
// stdin and normalizes it into a single canonical shape.
package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fakeyudi/aitrack/internal/record"
)

var (
	// ErrEmptyInput is returned by Parse when stdin carried no data.
	ErrEmptyInput = errors.New("empty hook input")

	// ErrInvalidPath is returned by Normalize when the file path is missing,
	// relative, or contains a backslash.
	ErrInvalidPath = errors.New("invalid file path")

	// ErrUnsupportedTool is returned by Normalize for any tool other than
	// edit or write. It is not a failure; callers ignore the event.
	ErrUnsupportedTool = errors.New("unsupported tool")
)

// Request is the raw hook payload.
type Request struct {
	ToolName       string          `json:"tool_name"`
	ToolInput      ToolInput       `json:"tool_input"`
	ToolResponse   json.RawMessage `json:"tool_response,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Cwd            string          `json:"cwd,omitempty"`
	SessionID      string          `json:"session_id,omitempty"`
	HookEventName  string          `json:"hook_event_name,omitempty"`
}

// ToolInput carries every field spelling hosts have used. Normalize picks one.
type ToolInput struct {
	FilePath      string `json:"file_path"`
	FilePathCamel string `json:"filePath"`

	OldString      *string `json:"old_string"`
	OldStringCamel *string `json:"oldString"`

	NewString      *string `json:"new_string"`
	NewStringCamel *string `json:"newString"`

	ReplaceAll      *bool `json:"replace_all"`
	ReplaceAllCamel *bool `json:"replaceAll"`

	Content *string `json:"content"`
}

// UnmarshalJSON decodes the optional fields leniently: a string field of the
// wrong type counts as absent, and boolean fields follow JavaScript
// truthiness, so a stray "true" or 1 still reads as set. Hosts are not
// strict about these types and one odd field should not lose the event.
func (in *ToolInput) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = ToolInput{
		FilePath:        stringOf(raw["file_path"]),
		FilePathCamel:   stringOf(raw["filePath"]),
		OldString:       optionalString(raw["old_string"]),
		OldStringCamel:  optionalString(raw["oldString"]),
		NewString:       optionalString(raw["new_string"]),
		NewStringCamel:  optionalString(raw["newString"]),
		ReplaceAll:      truthy(raw["replace_all"]),
		ReplaceAllCamel: truthy(raw["replaceAll"]),
		Content:         optionalString(raw["content"]),
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || string(t) == "null"
}

func optionalString(raw json.RawMessage) *string {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func stringOf(raw json.RawMessage) string {
	if s := optionalString(raw); s != nil {
		return *s
	}
	return ""
}

func truthy(raw json.RawMessage) *bool {
	if isNull(raw) {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		b = x != ""
	case float64:
		b = x != 0
	default:
		b = true // objects and arrays
	}
	return &b
}

// Invocation is the canonical, validated form of a Request.
type Invocation struct {
	Tool           record.Tool
	FilePath       string
	OldString      *string
	NewString      *string
	ReplaceAll     bool
	Content        *string
	TranscriptPath string
	Cwd            string
}

// Parse reads r to EOF and decodes a Request.
func Parse(r io.Reader) (*Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading hook input: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding hook input: %w", err)
	}
	return &req, nil
}

// HasResponse reports whether the host included the tool's response.
func (r *Request) HasResponse() bool {
	s := string(bytes.TrimSpace(r.ToolResponse))
	return s != "" && s != "null"
}

// Normalize validates req and resolves field aliases. For each field the
// snake_case spelling wins over camelCase; empty strings count as absent.
// The path is validated before the tool name is considered.
func Normalize(req *Request) (Invocation, error) {
	in := req.ToolInput
	inv := Invocation{
		FilePath:       firstNonEmpty(in.FilePath, in.FilePathCamel),
		OldString:      firstPresent(in.OldString, in.OldStringCamel),
		NewString:      firstPresent(in.NewString, in.NewStringCamel),
		ReplaceAll:     isTrue(in.ReplaceAll) || isTrue(in.ReplaceAllCamel),
		Content:        in.Content,
		TranscriptPath: req.TranscriptPath,
		Cwd:            req.Cwd,
	}

	if !ValidFilePath(inv.FilePath) {
		return inv, fmt.Errorf("%w: %q", ErrInvalidPath, inv.FilePath)
	}

	switch tool := record.Tool(strings.ToLower(req.ToolName)); tool {
	case record.ToolEdit, record.ToolWrite:
		inv.Tool = tool
	default:
		return inv, fmt.Errorf("%w: %q", ErrUnsupportedTool, req.ToolName)
	}
	return inv, nil
}

// ValidFilePath reports whether p is a non-empty absolute POSIX path with no
// backslashes.
func ValidFilePath(p string) bool {
	return p != "" && strings.HasPrefix(p, "/") && !strings.Contains(p, `\`)
}

// SearchString returns the text to locate after an edit: the new content if
// present, else the old content, else "".
func (inv Invocation) SearchString() string {
	if inv.NewString != nil {
		return *inv.NewString
	}
	if inv.OldString != nil {
		return *inv.OldString
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPresent(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
