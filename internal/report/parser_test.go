package report

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestMarkdownParser_PlainMarkdownWithoutSentinel(t *testing.T) {
	p := &MarkdownParser{}

	_, err := p.Parse([]byte("# Notes\n\n- item 1\n- item 2\n"))
	if err == nil {
		t.Fatal("expected error for plain Markdown without sentinel, got nil")
	}
	if !strings.Contains(err.Error(), "not a valid aitrack report") {
		t.Errorf("unexpected error: %q", err.Error())
	}
}

func TestMarkdownParser_CorruptedPayloads(t *testing.T) {
	badJSON := base64.StdEncoding.EncodeToString([]byte("this is not json {{{"))
	cases := map[string]string{
		"missing payload":  versionSentinel + "\n\n# AI Changes\n",
		"corrupted base64": versionSentinel + "\n" + dataPrefix + "!!!not-base64!!!" + dataSuffix + "\n",
		"unterminated":     versionSentinel + "\n" + dataPrefix + "abcd\n",
		"invalid json":     versionSentinel + "\n" + dataPrefix + badJSON + dataSuffix + "\n",
	}
	p := &MarkdownParser{}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Parse([]byte(content))
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !strings.Contains(err.Error(), "not a valid aitrack report") {
				t.Errorf("unexpected error: %q", err.Error())
			}
		})
	}
}

func TestJSONParser_InvalidJSON(t *testing.T) {
	if _, err := (&JSONParser{}).Parse([]byte("{")); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
