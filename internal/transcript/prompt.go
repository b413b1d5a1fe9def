// Package transcript reads agent conversation transcripts (one JSON record
// per line) to recover the user prompt behind a change.
package transcript

import (
	"encoding/json"
	"os"
	"strings"
)

// UnknownPrompt is returned when no user prompt can be recovered.
const UnknownPrompt = "Unknown prompt"

// entry is one transcript line. Hosts write the role either at the top level
// or nested under message.
type entry struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractPrompt returns the text of the most recent user-authored record in
// the transcript at path, or UnknownPrompt.
func ExtractPrompt(path string) string {
	if path == "" {
		return UnknownPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return UnknownPrompt
	}
	if text, ok := LastUserPrompt(string(data)); ok {
		return text
	}
	return UnknownPrompt
}

// LastUserPrompt scans transcript content from the last line backwards and
// returns the first user text it finds. Malformed lines are skipped.
func LastUserPrompt(content string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		var e entry
		if err := json.Unmarshal([]byte(lines[i]), &e); err != nil {
			continue
		}
		role, raw := e.Role, e.Content
		if role == "" && e.Message != nil {
			role, raw = e.Message.Role, e.Message.Content
		}
		if role != "user" {
			continue
		}
		if text, ok := textOf(raw); ok {
			return text, true
		}
	}
	return "", false
}

// textOf extracts text from a content field that is either a plain string or
// a list of typed parts.
func textOf(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", false
	}
	for _, p := range parts {
		if p.Type == "text" {
			return p.Text, p.Text != ""
		}
	}
	return "", false
}
