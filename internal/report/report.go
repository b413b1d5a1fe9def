// Package report summarizes change records into a shareable document.
package report

import (
	"sort"
	"time"

	"github.com/fakeyudi/aitrack/internal/record"
)

// Report is the complete, renderable summary of a slice of the change log.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	LogFile     string                `json:"log_file"`
	Records     []record.ChangeRecord `json:"records"`
	Files       []FileSummary         `json:"files"`
	Sessions    []SessionSummary      `json:"sessions"`
}

// FileSummary aggregates the changes made to one file.
type FileSummary struct {
	Path       string    `json:"path"`
	Edits      int       `json:"edits"`
	Writes     int       `json:"writes"`
	Lines      []int     `json:"lines"` // distinct line hints, ascending
	LastChange time.Time `json:"last_change"`
}

// SessionSummary aggregates the changes made by one hook session.
type SessionSummary struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Changes int       `json:"changes"`
	Prompts []string  `json:"prompts"` // distinct, in first-seen order
}

// Build aggregates recs, which are expected oldest first.
func Build(recs []record.ChangeRecord, logFile string, now time.Time) *Report {
	r := &Report{
		GeneratedAt: now,
		LogFile:     logFile,
		Records:     recs,
		Files:       []FileSummary{},
		Sessions:    []SessionSummary{},
	}
	if r.Records == nil {
		r.Records = []record.ChangeRecord{}
	}

	files := map[string]*FileSummary{}
	fileLines := map[string]map[int]bool{}
	sessions := map[string]*SessionSummary{}
	var fileOrder, sessionOrder []string

	for _, rec := range recs {
		fs, ok := files[rec.FilePath]
		if !ok {
			fs = &FileSummary{Path: rec.FilePath}
			files[rec.FilePath] = fs
			fileLines[rec.FilePath] = map[int]bool{}
			fileOrder = append(fileOrder, rec.FilePath)
		}
		switch rec.Tool {
		case record.ToolEdit:
			fs.Edits++
		case record.ToolWrite:
			fs.Writes++
		}
		fileLines[rec.FilePath][rec.LineNumber] = true
		if rec.Timestamp.After(fs.LastChange) {
			fs.LastChange = rec.Timestamp
		}

		ss, ok := sessions[rec.SessionID]
		if !ok {
			ss = &SessionSummary{ID: rec.SessionID, Source: rec.Source, Start: rec.Timestamp, End: rec.Timestamp, Prompts: []string{}}
			sessions[rec.SessionID] = ss
			sessionOrder = append(sessionOrder, rec.SessionID)
		}
		ss.Changes++
		if rec.Timestamp.Before(ss.Start) {
			ss.Start = rec.Timestamp
		}
		if rec.Timestamp.After(ss.End) {
			ss.End = rec.Timestamp
		}
		if rec.Prompt != "" && !contains(ss.Prompts, rec.Prompt) {
			ss.Prompts = append(ss.Prompts, rec.Prompt)
		}
	}

	for _, p := range fileOrder {
		fs := files[p]
		fs.Lines = make([]int, 0, len(fileLines[p]))
		for l := range fileLines[p] {
			fs.Lines = append(fs.Lines, l)
		}
		sort.Ints(fs.Lines)
		r.Files = append(r.Files, *fs)
	}
	sort.SliceStable(r.Files, func(i, j int) bool {
		return r.Files[i].LastChange.After(r.Files[j].LastChange)
	})
	for _, id := range sessionOrder {
		r.Sessions = append(r.Sessions, *sessions[id])
	}
	return r
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
