package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wardenfield/robot-pulse/tracker/fileutils"
)

// Cursor maps batch file names to the modification time (unix nanoseconds) observed at
// the last sensor evaluation. Each evaluation produces a full replacement, so deleted
// files drop out on their own.
type Cursor map[string]int64

// LoadCursor reads a persisted cursor. A missing file is an empty cursor, not an error.
func LoadCursor(path string) (Cursor, error) {
	if !fileutils.FileExists(path) {
		return Cursor{}, nil
	}
	var c Cursor
	if err := fileutils.ReadJSONFile(path, &c); err != nil {
		return nil, err
	}
	if c == nil {
		c = Cursor{}
	}
	return c, nil
}

// SaveCursor persists the cursor atomically.
func SaveCursor(path string, c Cursor) error {
	return fileutils.WriteJSONFileAtomic(path, c, true)
}

// WorkItem is one render request emitted by the sensor. RunKey is stable for a given
// file content version, so downstream dedup makes re-emission harmless.
type WorkItem struct {
	RunKey    string
	Filename  string
	Summaries []SummaryRecord
}

// summaryFilePattern matches partition batch files in the summaries directory.
const summaryFilePattern = "report_*.json"

// EvalSensor compares the summaries directory against the previous cursor and returns a
// work item for every batch file that is new or whose modification time changed, plus
// the replacement cursor. Items are ordered by file name so repeated evaluations are
// deterministic.
func EvalSensor(dir string, prev Cursor) ([]WorkItem, Cursor, error) {
	matches, err := filepath.Glob(filepath.Join(dir, summaryFilePattern))
	if err != nil {
		return nil, nil, fmt.Errorf("scan summaries dir: %w", err)
	}
	sort.Strings(matches)

	next := make(Cursor, len(matches))
	var items []WorkItem
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, nil, fmt.Errorf("stat %s: %w", path, err)
		}
		name := filepath.Base(path)
		mtime := info.ModTime().UnixNano()
		next[name] = mtime

		if prev[name] == mtime {
			continue
		}

		var summaries []SummaryRecord
		if err := fileutils.ReadJSONFile(path, &summaries); err != nil {
			return nil, nil, err
		}
		items = append(items, WorkItem{
			RunKey:    fmt.Sprintf("render_%s_%d", name, mtime),
			Filename:  name,
			Summaries: summaries,
		})
	}
	return items, next, nil
}

// PartitionKeyFromFileName recovers the partition key from a batch file name, or "" if
// the name is not a batch file.
func PartitionKeyFromFileName(name string) string {
	if !strings.HasPrefix(name, "report_") || !strings.HasSuffix(name, ".json") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, "report_"), ".json")
}
