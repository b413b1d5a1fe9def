// Package tracker is the change event recorder: it turns one hook payload
// into at most one appended ChangeRecord.
//
// Process is the fallible pipeline and returns typed errors. Run wraps it for
// the hook binary and never fails: every error, and any panic, ends up in the
// diagnostic log only.
package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/aitrack/internal/changelog"
	"github.com/fakeyudi/aitrack/internal/config"
	"github.com/fakeyudi/aitrack/internal/dedup"
	"github.com/fakeyudi/aitrack/internal/diag"
	"github.com/fakeyudi/aitrack/internal/hook"
	"github.com/fakeyudi/aitrack/internal/lineno"
	"github.com/fakeyudi/aitrack/internal/record"
	"github.com/fakeyudi/aitrack/internal/transcript"
)

const previewLen = 100

// Options configures a Tracker. Writer is required; everything else has a
// default.
type Options struct {
	Source string
	Writer *changelog.Writer
	Window *dedup.Window
	Logger *slog.Logger
	Clock  func() time.Time
}

// Tracker holds the state of one hook process.
type Tracker struct {
	sessionID string
	source    string
	writer    *changelog.Writer
	window    *dedup.Window
	log       *slog.Logger
	now       func() time.Time
}

// New returns a Tracker with a freshly generated session ID.
func New(opts Options) *Tracker {
	t := &Tracker{
		source: opts.Source,
		writer: opts.Writer,
		window: opts.Window,
		log:    opts.Logger,
		now:    opts.Clock,
	}
	if t.source == "" {
		t.source = config.DefaultSource
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.window == nil {
		t.window = dedup.NewWindow(nil, dedup.WithClock(t.now))
	}
	if t.log == nil {
		t.log = diag.Discard()
	}
	t.sessionID = NewSessionID(t.source, t.now())
	return t
}

// NewSessionID returns "<source>-<unix ms>-<9 random lowercase alnum>".
func NewSessionID(source string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", source, now.UnixMilli(), suffix)
}

// SessionID returns the ID stamped on every record from this Tracker.
func (t *Tracker) SessionID() string { return t.sessionID }

// Close releases the dedup store.
func (t *Tracker) Close() error { return t.window.Close() }

// Run processes one payload from r and never fails.
func (t *Tracker) Run(ctx context.Context, r io.Reader) {
	defer func() {
		if p := recover(); p != nil {
			t.log.Error("Error processing hook data", "error", fmt.Sprint(p), "stack", string(debug.Stack()))
		}
	}()

	t.log.Info("Hook triggered!")
	_, err := t.Process(ctx, r)
	switch {
	case err == nil:
		t.log.Info("Hook completed successfully")
	case errors.Is(err, hook.ErrInvalidPath):
		t.log.Info("Invalid file path, skipping", "error", err)
	default:
		t.log.Error("Error processing hook data", "error", err)
	}
}

// Process reads one payload from r and records it. It returns the appended
// record, or nil when the event was ignored or suppressed as a duplicate.
// Unsupported tools are not an error.
func (t *Tracker) Process(ctx context.Context, r io.Reader) (*record.ChangeRecord, error) {
	data, err := readAll(ctx, r)
	if err != nil {
		return nil, err
	}
	req, err := hook.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	t.log.Info("Received hook data",
		"tool", req.ToolName,
		"cwd", req.Cwd,
		"hasInput", req.ToolInput != (hook.ToolInput{}),
		"hasResponse", req.HasResponse(),
	)

	prompt := t.extractPrompt(req.TranscriptPath)

	inv, err := hook.Normalize(req)
	if errors.Is(err, hook.ErrUnsupportedTool) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec := t.Classify(inv, prompt)
	written, err := t.Record(rec)
	if err != nil || !written {
		return nil, err
	}
	return rec, nil
}

func (t *Tracker) extractPrompt(path string) string {
	if path == "" {
		return transcript.UnknownPrompt
	}
	prompt := transcript.ExtractPrompt(path)
	if prompt == transcript.UnknownPrompt {
		t.log.Info("Could not read transcript", "path", path)
	} else {
		t.log.Info("Extracted prompt from transcript",
			"length", record.Length(prompt),
			"preview", record.Truncate(prompt, previewLen),
		)
	}
	return prompt
}

// Classify builds the record for a validated invocation.
func (t *Tracker) Classify(inv hook.Invocation, prompt string) *record.ChangeRecord {
	switch inv.Tool {
	case record.ToolWrite:
		contentLength := 0
		if inv.Content != nil {
			contentLength = record.Length(*inv.Content)
		}
		return record.NewWrite(inv.FilePath, !readable(inv.FilePath), contentLength, prompt)
	default:
		search := inv.SearchString()
		line := lineno.Find(inv.FilePath, search)
		t.log.Info("Resolved line number",
			"line", line,
			"content", record.Truncate(strings.SplitN(search, "\n", 2)[0], 50),
		)
		return record.NewEdit(inv.FilePath, line, inv.OldString, inv.NewString, inv.ReplaceAll, prompt)
	}
}

// Record suppresses rec if its fingerprint was seen within the dedup window,
// otherwise stamps it and appends it to the log. It reports whether rec was
// written.
func (t *Tracker) Record(rec *record.ChangeRecord) (bool, error) {
	fp := rec.Fingerprint()
	dup, err := t.window.Seen(fp)
	if err != nil {
		// A broken dedup store must not lose the change.
		t.log.Warn("Dedup check failed", "error", err)
	}
	if dup {
		since, _ := t.window.Since(fp)
		t.log.Info("Skipping duplicate change", "file", rec.FilePath, "timeSinceLastSeen", since)
		return false, nil
	}

	rec.Timestamp = t.now().UTC().Truncate(time.Millisecond)
	rec.SessionID = t.sessionID
	rec.Source = t.source

	if err := t.writer.Append(rec); err != nil {
		t.log.Error("Failed to log change", "error", err)
		return false, err
	}
	t.log.Info("Logged change to " + rec.FilePath)
	return true, nil
}

// readable reports whether path exists and its contents can be read.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	_, err = f.Read(make([]byte, 1))
	return err == nil || errors.Is(err, io.EOF)
}

// readAll reads r to EOF, giving up when ctx is done. With a background
// context it waits as long as the host keeps stdin open.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if ctx.Done() == nil {
		return io.ReadAll(r)
	}
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		ch <- result{data, err}
	}()
	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for hook input: %w", ctx.Err())
	}
}
