package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/listing-reconcile/internal/matcher"
	"github.com/listing-reconcile/internal/writer"
)

// Summary gathers what a run did. Either part may be nil: a dry run has no
// write stats and an upload has no matching stats.
type Summary struct {
	Label    string
	Matching *matcher.Stats
	Writing  *writer.WriteStats
	Elapsed  time.Duration
}

// Render draws the summary as a table.
func Render(s Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Run " + s.Label)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	if m := s.Matching; m != nil {
		tw.AppendRows([]table.Row{
			{"Listings", m.Listings},
			{"Partitions", m.Partitions},
			{"Processed", m.Processed},
			{"Skipped", m.Skipped},
			{"Matched (local)", m.MatchedLocal},
			{"Matched (neighbor)", m.MatchedNeighbor},
			{"Already satisfied", m.AlreadySatisfied},
			{"Unmatched", m.Unmatched},
			{"Failed", m.Failed},
			{"Partition load errors", m.LoadErrors},
			{"Cache evictions", m.Evictions},
		})
		if m.Processed > 0 {
			tw.AppendRow(table.Row{"Match rate", fmt.Sprintf("%.1f%%", float64(m.Matched)/float64(m.Processed)*100)})
		}
		tw.AppendSeparator()
	}

	if w := s.Writing; w != nil {
		tw.AppendRows([]table.Row{
			{"Uploaded", w.Written},
			{"Skipped by guard", w.Skipped},
			{"Upload errors", w.Failed},
			{"Fallback chunks", w.FallbackChunks},
		})
		tw.AppendSeparator()
	}

	tw.AppendRow(table.Row{"Elapsed", s.Elapsed.Round(time.Second).String()})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// Write renders s to w followed by a newline.
func Write(w io.Writer, s Summary) error {
	_, err := io.WriteString(w, Render(s)+"\n")
	return err
}

// Failures lists failed listings, at most limit rows.
func Failures(stats *matcher.Stats, limit int) string {
	if stats == nil || len(stats.Failures) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Partition", "Line", "Listing", "Error"})
	for i, f := range stats.Failures {
		if limit > 0 && i >= limit {
			tw.AppendFooter(table.Row{"", "", "+" + strconv.Itoa(len(stats.Failures)-limit) + " more", ""})
			break
		}
		tw.AppendRow(table.Row{f.Partition, f.Line, f.Listing, f.Err})
	}
	return tw.Render()
}
