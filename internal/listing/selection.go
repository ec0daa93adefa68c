package listing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Group splits listings by home partition, keeping input order inside
// each group.
func Group(listings []Listing) map[string][]Listing {
	groups := make(map[string][]Listing)
	for _, l := range listings {
		groups[l.DeptCode] = append(groups[l.DeptCode], l)
	}
	return groups
}

// Codes returns the partition codes of groups, sorted.
func Codes(groups map[string][]Listing) []string {
	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Shard selects the Index-th (1-based) of Count contiguous slices of the
// sorted partition codes.
type Shard struct {
	Index int
	Count int
}

// ParseShard parses "N/M".
func ParseShard(s string) (*Shard, error) {
	n, m, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return nil, fmt.Errorf("invalid shard %q: want N/M", s)
	}
	index, err := strconv.Atoi(n)
	if err != nil {
		return nil, fmt.Errorf("invalid shard index %q: %w", n, err)
	}
	count, err := strconv.Atoi(m)
	if err != nil {
		return nil, fmt.Errorf("invalid shard count %q: %w", m, err)
	}
	if count < 1 || index < 1 || index > count {
		return nil, fmt.Errorf("invalid shard %d/%d: need 1 <= N <= M", index, count)
	}
	return &Shard{Index: index, Count: count}, nil
}

// Pick returns this shard's slice of the sorted codes.
func (s *Shard) Pick(codes []string) []string {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)

	size := (len(sorted) + s.Count - 1) / s.Count
	start := (s.Index - 1) * size
	if start >= len(sorted) {
		return nil
	}
	end := start + size
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end]
}

func (s *Shard) String() string {
	return fmt.Sprintf("%d-%d", s.Index, s.Count)
}

// Selection restricts a run to a subset of home partitions.
type Selection struct {
	Dept  string
	Shard *Shard
}

// Label names the run's match result file.
func (s Selection) Label() string {
	switch {
	case s.Dept != "":
		return s.Dept
	case s.Shard != nil:
		return s.Shard.String()
	default:
		return "full"
	}
}

// RecordOnly reports whether the run only records its matches. Shards run
// in parallel with separate ledgers, so their result files are merged by
// upload, where the best score per phone wins.
func (s Selection) RecordOnly() bool {
	return s.Shard != nil
}

// Apply drops the groups outside the selection.
func (s Selection) Apply(groups map[string][]Listing) map[string][]Listing {
	var keep []string
	switch {
	case s.Dept != "":
		keep = []string{strings.ToUpper(s.Dept)}
	case s.Shard != nil:
		keep = s.Shard.Pick(Codes(groups))
	default:
		return groups
	}

	out := make(map[string][]Listing, len(keep))
	for _, code := range keep {
		if ls, ok := groups[code]; ok {
			out[code] = ls
		}
	}
	return out
}
