// Package changelog appends ChangeRecords to the JSONL change log and reads
// them back.
package changelog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fakeyudi/aitrack/internal/record"
)

// maxLineSize bounds a single log line when reading.
const maxLineSize = 1 << 20

// EnsureDir creates the parent directory of path, including intermediate
// segments.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Writer appends records to a log file.
type Writer struct {
	path string
}

// NewWriter returns a Writer for the log at path. The file is opened per
// append, so a Writer holds no descriptors.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the log file location.
func (w *Writer) Path() string { return w.path }

// Append writes rec as one JSON line. A single write call on an O_APPEND
// descriptor keeps lines from concurrent hook processes from interleaving.
func (w *Writer) Append(rec *record.ChangeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding change record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening change log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("appending change record: %w", err)
	}
	return f.Close()
}

// Filter narrows the records returned by Read. Zero values match everything.
type Filter struct {
	Tool      record.Tool
	SessionID string
	File      string // substring of file_path
	Since     time.Time
	Limit     int // keep only the last Limit matches
}

// Match reports whether rec passes f.
func (f Filter) Match(rec *record.ChangeRecord) bool {
	if f.Tool != "" && rec.Tool != f.Tool {
		return false
	}
	if f.SessionID != "" && rec.SessionID != f.SessionID {
		return false
	}
	if f.File != "" && !strings.Contains(rec.FilePath, f.File) {
		return false
	}
	if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Read returns the records in the log at path that match f, oldest first.
// A missing log yields no records and no error. Malformed lines are skipped.
func Read(path string, f Filter) ([]record.ChangeRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	recs, err := Decode(file, f)
	if err != nil {
		return recs, err
	}
	if f.Limit > 0 && len(recs) > f.Limit {
		recs = recs[len(recs)-f.Limit:]
	}
	return recs, nil
}

// Decode parses JSONL records from r, keeping those that match f.
func Decode(r io.Reader, f Filter) ([]record.ChangeRecord, error) {
	var recs []record.ChangeRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec record.ChangeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		if f.Match(&rec) {
			recs = append(recs, rec)
		}
	}
	return recs, scanner.Err()
}
