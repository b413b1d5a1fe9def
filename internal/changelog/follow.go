package changelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/aitrack/internal/record"
)

// Follow calls fn for every record appended to the log at path after Follow
// starts, until ctx is cancelled. The log does not need to exist yet. If the
// file shrinks it is treated as rotated and read from the start.
func Follow(ctx context.Context, path string, f Filter, fn func(record.ChangeRecord)) error {
	if err := EnsureDir(path); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory so creation and replacement of the log are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	t := &tail{path: path, filter: f, fn: fn}
	if info, err := os.Stat(path); err == nil {
		t.offset = info.Size()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				t.offset = 0
				t.partial = nil
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				_ = t.drain() // best-effort; the next event retries
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}

// tail tracks how far into the log Follow has read.
type tail struct {
	path    string
	filter  Filter
	fn      func(record.ChangeRecord)
	offset  int64
	partial []byte // bytes after the last newline, completed by a later write
}

func (t *tail) drain() error {
	file, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	last := bytes.LastIndexByte(buf, '\n')
	if last < 0 {
		t.partial = buf
		return nil
	}
	t.partial = append([]byte(nil), buf[last+1:]...)

	for _, line := range bytes.Split(buf[:last], []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec record.ChangeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if t.filter.Match(&rec) {
			t.fn(rec)
		}
	}
	return nil
}
