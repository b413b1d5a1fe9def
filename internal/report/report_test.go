package report_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/aitrack/internal/record"
	"github.com/fakeyudi/aitrack/internal/report"
)

// generateTime produces a UTC time truncated to second precision so it
// survives the JSON round-trip unchanged.
func generateTime(t *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(1_600_000_000, 1_800_000_000).Draw(t, label+"_unix_sec")
	return time.Unix(sec, 0).UTC()
}

func generateRecord(t *rapid.T) record.ChangeRecord {
	path := rapid.SampledFrom([]string{"/p/a.go", "/p/b.go", "/p/dir/c.md"}).Draw(t, "path")
	prompt := rapid.StringN(0, 40, -1).Draw(t, "prompt")
	var rec *record.ChangeRecord
	if rapid.Bool().Draw(t, "is_edit") {
		old := rapid.StringN(0, 40, -1).Draw(t, "old")
		nu := rapid.StringN(0, 40, -1).Draw(t, "new")
		line := rapid.IntRange(1, 500).Draw(t, "line")
		rec = record.NewEdit(path, line, &old, &nu, rapid.Bool().Draw(t, "replace_all"), prompt)
	} else {
		rec = record.NewWrite(path, rapid.Bool().Draw(t, "is_new"), rapid.IntRange(0, 5000).Draw(t, "len"), prompt)
	}
	rec.Timestamp = generateTime(t, "ts")
	rec.SessionID = rapid.SampledFrom([]string{"claudecode-1-aaaaaaaaa", "claudecode-2-bbbbbbbbb"}).Draw(t, "session")
	rec.Source = "claudecode"
	return *rec
}

func generateReport(t *rapid.T) *report.Report {
	recs := rapid.SliceOfN(rapid.Custom(generateRecord), 0, 8).Draw(t, "records")
	return report.Build(recs, "/home/u/.local/share/nvim/ai-changes.jsonl", generateTime(t, "generated"))
}

// Feature: aitrack, Property 1: both renderers emit every report section
func TestReportSections(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := generateReport(t)

		md, err := (&report.MarkdownRenderer{}).Render(r)
		if err != nil {
			t.Fatalf("MarkdownRenderer.Render: %v", err)
		}
		for _, section := range []string{"## Summary", "## Files", "## Sessions", "## Changes"} {
			if !strings.Contains(string(md), section) {
				t.Errorf("Markdown output missing section %q", section)
			}
		}

		js, err := (&report.JSONRenderer{}).Render(r)
		if err != nil {
			t.Fatalf("JSONRenderer.Render: %v", err)
		}
		for _, key := range []string{`"generated_at"`, `"log_file"`, `"records"`, `"files"`, `"sessions"`} {
			if !strings.Contains(string(js), key) {
				t.Errorf("JSON output missing key %s", key)
			}
		}
	})
}

// Feature: aitrack, Property 2: JSON render then parse is lossless
func TestJSONReportRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := generateReport(t)

		data, err := (&report.JSONRenderer{}).Render(original)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		got, err := (&report.JSONParser{}).Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if !reflect.DeepEqual(original, got) {
			t.Fatalf("round-trip mismatch:\noriginal: %+v\ngot:      %+v", original, got)
		}
	})
}

// Feature: aitrack, Property 3: Markdown render then parse is lossless
func TestMarkdownReportRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := generateReport(t)

		data, err := (&report.MarkdownRenderer{}).Render(original)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		got, err := (&report.MarkdownParser{}).Parse(data)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if !reflect.DeepEqual(original, got) {
			t.Fatalf("round-trip mismatch:\noriginal: %+v\ngot:      %+v", original, got)
		}
	})
}

func TestBuildAggregates(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a, b := "x", "y"
	recs := []record.ChangeRecord{
		*record.NewEdit("/p/a.go", 12, &a, &b, false, "fix the bug"),
		*record.NewWrite("/p/b.go", true, 42, "add b"),
		*record.NewEdit("/p/a.go", 3, &a, &b, true, "fix the bug"),
	}
	for i := range recs {
		recs[i].Timestamp = t0.Add(time.Duration(i) * time.Minute)
		recs[i].SessionID = "s1"
		recs[i].Source = "claudecode"
	}
	recs[1].SessionID = "s2"

	r := report.Build(recs, "log.jsonl", t0)

	if len(r.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(r.Files))
	}
	// Most recently changed first.
	a0 := r.Files[0]
	if a0.Path != "/p/a.go" || a0.Edits != 2 || a0.Writes != 0 {
		t.Errorf("unexpected first file summary: %+v", a0)
	}
	if !reflect.DeepEqual(a0.Lines, []int{3, 12}) {
		t.Errorf("Lines: got %v, want [3 12]", a0.Lines)
	}
	if !a0.LastChange.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("LastChange: got %v", a0.LastChange)
	}
	if r.Files[1].Writes != 1 {
		t.Errorf("second file Writes: got %d, want 1", r.Files[1].Writes)
	}

	if len(r.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(r.Sessions))
	}
	s := r.Sessions[0]
	if s.ID != "s1" || s.Changes != 2 {
		t.Errorf("unexpected first session: %+v", s)
	}
	if !reflect.DeepEqual(s.Prompts, []string{"fix the bug"}) {
		t.Errorf("Prompts: got %q", s.Prompts)
	}
	if !s.Start.Equal(t0) || !s.End.Equal(t0.Add(2*time.Minute)) {
		t.Errorf("session window: got %v to %v", s.Start, s.End)
	}
}

func TestBuildEmpty(t *testing.T) {
	r := report.Build(nil, "log.jsonl", time.Now())
	if r.Records == nil {
		t.Error("Records should be an empty slice, not nil")
	}
	if len(r.Files) != 0 || len(r.Sessions) != 0 {
		t.Errorf("expected no files or sessions, got %d and %d", len(r.Files), len(r.Sessions))
	}

	md, err := (&report.MarkdownRenderer{}).Render(r)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(md), "_No changes recorded._") {
		t.Errorf("empty report missing placeholder:\n%s", md)
	}
}

func TestMarkdownNotesNewFilesAndReplaceAll(t *testing.T) {
	a, b := "old", "new"
	w := record.NewWrite("/p/n.go", true, 10, "")
	e := record.NewEdit("/p/e.go", 4, &a, &b, true, "")
	r := report.Build([]record.ChangeRecord{*w, *e}, "log.jsonl", time.Now())

	md, err := (&report.MarkdownRenderer{}).Render(r)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := string(md)
	for _, want := range []string{"/p/n.go:1 (new file)", "/p/e.go:4 (replace all)", "```\nnew\n```"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRendererFor(t *testing.T) {
	r, ext, err := report.RendererFor("json")
	if err != nil {
		t.Fatalf("RendererFor(json): %v", err)
	}
	if _, ok := r.(*report.JSONRenderer); !ok || ext != ".json" {
		t.Errorf("RendererFor(json): got %T %q", r, ext)
	}

	r, ext, err = report.RendererFor("")
	if err != nil {
		t.Fatalf("RendererFor(\"\"): %v", err)
	}
	if _, ok := r.(*report.MarkdownRenderer); !ok || ext != ".md" {
		t.Errorf("RendererFor(\"\"): got %T %q", r, ext)
	}

	if _, _, err = report.RendererFor("pdf"); err == nil {
		t.Error("RendererFor(pdf): expected an error")
	}
}

func TestParserFor(t *testing.T) {
	if _, ok := report.ParserFor("out.JSON").(*report.JSONParser); !ok {
		t.Error("ParserFor(out.JSON) should return a JSONParser")
	}
	if _, ok := report.ParserFor("out.md").(*report.MarkdownParser); !ok {
		t.Error("ParserFor(out.md) should return a MarkdownParser")
	}
}
