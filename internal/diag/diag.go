// Package diag writes the hook's diagnostic log: one plain-text line per
// event, "[<timestamp>] [<tag>] <message>: <json attrs>".
//
// Writes are best-effort. A missing directory or a failed write never
// reaches the caller.
package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultTag prefixes every line written by the hook.
const DefaultTag = "CLAUDE CODE"

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Handler is a slog.Handler producing the diagnostic line format.
type Handler struct {
	open   func() (io.WriteCloser, error)
	tag    string
	level  slog.Level
	attrs  []slog.Attr
	prefix string // group prefix for keys
	mu     *sync.Mutex
}

// New returns a logger appending to the file at path.
func New(path, tag string) *slog.Logger {
	return slog.New(NewHandler(func() (io.WriteCloser, error) {
		return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}, tag))
}

// NewWriter returns a logger writing to w, for tests and stderr output.
func NewWriter(w io.Writer, tag string) *slog.Logger {
	return slog.New(NewHandler(func() (io.WriteCloser, error) {
		return nopCloser{w}, nil
	}, tag))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// NewHandler returns a Handler that obtains a destination from open for each
// record.
func NewHandler(open func() (io.WriteCloser, error), tag string) *Handler {
	if tag == "" {
		tag = DefaultTag
	}
	return &Handler{open: open, tag: tag, level: slog.LevelDebug, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString("[")
	buf.WriteString(ts.UTC().Format(timeFormat))
	buf.WriteString("] [")
	buf.WriteString(h.tag)
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	var fields []slog.Attr
	fields = append(fields, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.qualify(a))
		return true
	})
	if len(fields) > 0 {
		buf.WriteString(": ")
		writeObject(&buf, fields)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.open()
	if err != nil {
		return nil
	}
	_, _ = w.Write(buf.Bytes())
	_ = w.Close()
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *Handler) qualify(a slog.Attr) slog.Attr {
	if h.prefix == "" {
		return a
	}
	return slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
}

// writeObject renders attrs as a JSON object, keeping their order.
func writeObject(buf *bytes.Buffer, attrs []slog.Attr) {
	buf.WriteByte('{')
	first := true
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(a.Key)
		buf.Write(key)
		buf.WriteByte(':')
		writeValue(buf, a.Value.Resolve())
	}
	buf.WriteByte('}')
}

func writeValue(buf *bytes.Buffer, v slog.Value) {
	var x any
	switch v.Kind() {
	case slog.KindGroup:
		writeObject(buf, v.Group())
		return
	case slog.KindDuration:
		x = v.Duration().Milliseconds()
	case slog.KindTime:
		x = v.Time().UTC().Format(timeFormat)
	default:
		x = v.Any()
		if err, ok := x.(error); ok {
			x = err.Error()
		}
	}
	data, err := json.Marshal(x)
	if err != nil {
		data, _ = json.Marshal(v.String())
	}
	buf.Write(data)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
