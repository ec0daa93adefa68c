package listing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyInput is returned when the input holds no listing with a phone.
var ErrEmptyInput = errors.New("no listings with a phone in input")

const maxLineSize = 16 * 1024 * 1024

// Listing is one scraped business listing awaiting reconciliation.
type Listing struct {
	Name       string `json:"name" validate:"required"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	DeptCode   string `json:"deptCode" validate:"required"`

	Line int `json:"-"`
}

// HasPhone reports whether the listing carries a phone number.
func (l *Listing) HasPhone() bool {
	return strings.TrimSpace(l.Phone) != ""
}

// ReadStats counts what the reader saw.
type ReadStats struct {
	Lines        int
	Blank        int
	WithoutPhone int
	Kept         int
}

// ReadFile reads a JSONL listings file.
func ReadFile(path string) ([]Listing, *ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open listings file: %w", err)
	}
	defer f.Close()

	listings, stats, err := Read(f)
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	return listings, stats, nil
}

// Read decodes newline-delimited listings from r. Blank lines are ignored
// and listings without a phone are dropped. A malformed line aborts the read.
func Read(r io.Reader) ([]Listing, *ReadStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	stats := &ReadStats{}
	var listings []Listing
	for scanner.Scan() {
		stats.Lines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			stats.Blank++
			continue
		}

		var l Listing
		if err := json.Unmarshal(line, &l); err != nil {
			return nil, stats, fmt.Errorf("line %d: %w", stats.Lines, err)
		}
		if !l.HasPhone() {
			stats.WithoutPhone++
			continue
		}
		l.Phone = strings.TrimSpace(l.Phone)
		l.DeptCode = strings.ToUpper(strings.TrimSpace(l.DeptCode))
		l.PostalCode = strings.TrimSpace(l.PostalCode)
		l.Line = stats.Lines
		listings = append(listings, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("line %d: %w", stats.Lines+1, err)
	}

	stats.Kept = len(listings)
	if len(listings) == 0 {
		return nil, stats, ErrEmptyInput
	}
	return listings, stats, nil
}
