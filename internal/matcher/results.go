package matcher

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ResultFile appends accepted assignments to a JSONL file, one per line.
type ResultFile struct {
	path string
	f    *os.File
	w    *bufio.Writer
	n    int
}

// ResultPath returns the result file path for a run label.
func ResultPath(dir, label string) string {
	return filepath.Join(dir, "matches-"+label+".jsonl")
}

// CreateResultFile creates (or truncates) the result file for label in dir.
func CreateResultFile(dir, label string) (*ResultFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create matches dir: %w", err)
	}
	path := ResultPath(dir, label)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create result file: %w", err)
	}
	return &ResultFile{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one assignment.
func (r *ResultFile) Append(a Assignment) error {
	line, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	r.n++
	return nil
}

// Path returns the file path.
func (r *ResultFile) Path() string { return r.path }

// Count returns the number of assignments written.
func (r *ResultFile) Count() int { return r.n }

// Close flushes and closes the file.
func (r *ResultFile) Close() error {
	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return fmt.Errorf("flush %s: %w", r.path, err)
	}
	return r.f.Close()
}

// ResultFiles lists the result files of dir, sorted.
func ResultFiles(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadResults loads the assignments of every file in paths, in order.
func ReadResults(paths []string) ([]Assignment, error) {
	var out []Assignment
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read result file: %w", err)
		}
		for i, line := range bytes.Split(data, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var a Assignment
			if err := json.Unmarshal(line, &a); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
			if a.Phone == "" {
				continue
			}
			out = append(out, a)
		}
	}
	return out, nil
}

// Dedup keeps, across runs, at most one assignment per phone and per record.
// Higher scores win; on equal scores the earlier assignment wins.
func Dedup(assignments []Assignment) []Assignment {
	sorted := append([]Assignment(nil), assignments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	ledger := NewLedger()
	out := make([]Assignment, 0, len(sorted))
	for _, a := range sorted {
		if ledger.Claim(a.Phone, a.RecordID) {
			out = append(out, a)
		}
	}
	return out
}
