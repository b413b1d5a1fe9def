// Package lineno guesses where edited text now sits in a file.
//
// The result is a hint, not a source mapping: it finds where the content
// resides after the edit, not where the edit was applied, and files with
// repeated content can match an earlier occurrence.
package lineno

import (
	"os"
	"strings"
)

// Find returns the 1-based line in the file at path where search first
// occurs, or 1 if the file cannot be read or nothing matches.
func Find(path, search string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 1
	}
	n, _ := FindIn(string(data), search)
	return n
}

// FindIn is Find over in-memory content. The bool reports whether a match
// was found; the line is 1 when it was not.
//
// A file line matches when it equals the first line of search, or contains it
// when that line is non-empty. For multi-line searches the following file
// line must also contain the second search line; a candidate on the last
// file line has nothing to check and is accepted.
func FindIn(content, search string) (int, bool) {
	lines := strings.Split(content, "\n")
	needles := strings.Split(search, "\n")
	first := needles[0]

	for i, line := range lines {
		if line != first && (first == "" || !strings.Contains(line, first)) {
			continue
		}
		if len(needles) > 1 && i+1 < len(lines) {
			if strings.Contains(lines[i+1], needles[1]) {
				return i + 1, true
			}
			continue
		}
		return i + 1, true
	}
	return 1, false
}
