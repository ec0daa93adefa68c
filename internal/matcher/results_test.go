package matcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listing-reconcile/internal/listing"
	"github.com/listing-reconcile/internal/partition"
)

func TestResultFileRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "matches")
	rf, err := CreateResultFile(dir, "2-4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "matches-2-4.jsonl"), rf.Path())

	a := Assignment{
		RecordID:    uuid.New(),
		Phone:       "0102030405",
		Score:       0.82,
		Partition:   "75",
		Strategy:    StrategyNeighbor,
		ListingName: "SARL Dupont",
		RecordName:  "Dupont",
	}
	require.NoError(t, rf.Append(a))
	require.NoError(t, rf.Close())
	assert.Equal(t, 1, rf.Count())

	data, err := os.ReadFile(rf.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"recordId":"`+a.RecordID.String()+`"`)
	assert.Contains(t, string(data), `"strategy":"neighbor"`)
	assert.Contains(t, string(data), `"listingName":"SARL Dupont"`)

	paths, err := ResultFiles(dir)
	require.NoError(t, err)
	got, err := ReadResults(paths)
	require.NoError(t, err)
	assert.Equal(t, []Assignment{a}, got)
}

func TestReadResultsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches-full.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"phone\":\"1\",\"recordId\":\""+uuid.NewString()+"\"}\n\nnot json\n"), 0o644))

	_, err := ReadResults([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestDedup(t *testing.T) {
	r1, r2, r3 := uuid.New(), uuid.New(), uuid.New()
	in := []Assignment{
		{RecordID: r1, Phone: "A", Score: 0.5},
		{RecordID: r1, Phone: "B", Score: 0.9}, // better score for r1
		{RecordID: r2, Phone: "B", Score: 0.6}, // phone B already taken
		{RecordID: r2, Phone: "C", Score: 0.6},
		{RecordID: r3, Phone: "C", Score: 0.6}, // tie: earlier wins
	}

	got := Dedup(in)
	require.Len(t, got, 2)
	assert.Equal(t, Assignment{RecordID: r1, Phone: "B", Score: 0.9}, got[0])
	assert.Equal(t, Assignment{RecordID: r2, Phone: "C", Score: 0.6}, got[1])
}

func TestShardRunsMergedOnUpload(t *testing.T) {
	bakery, plumber := rec("Boulangerie Lefevre", ""), rec("Dupont Plomberie", "")
	loader := &fakeLoader{records: map[string][]partition.Record{
		"01": {bakery},
		"75": {plumber},
	}}
	groups := listing.Group([]listing.Listing{
		{Name: "Boulangerie Lefevre", Phone: "0102030405", DeptCode: "01"},
		{Name: "Dupont Plomberie", Phone: "0102030405", DeptCode: "75"},
	})
	dir := t.TempDir()

	// each shard runs with its own ledger, as separate processes do
	var recorded []Assignment
	for _, shard := range []*listing.Shard{{Index: 1, Count: 2}, {Index: 2, Count: 2}} {
		sel := listing.Selection{Shard: shard}
		require.True(t, sel.RecordOnly())

		rf, err := CreateResultFile(dir, sel.Label())
		require.NoError(t, err)
		bp, _ := newTestBatch(t, loader, rf)
		_, assignments, err := bp.Run(context.Background(), sel.Apply(groups))
		require.NoError(t, err)
		require.NoError(t, rf.Close())
		require.Len(t, assignments, 1)
		recorded = append(recorded, assignments...)
	}
	assert.Equal(t, recorded[0].Phone, recorded[1].Phone)
	assert.NotEqual(t, recorded[0].RecordID, recorded[1].RecordID)

	paths, err := ResultFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	all, err := ReadResults(paths)
	require.NoError(t, err)
	require.Len(t, all, 2)

	merged := Dedup(all)
	require.Len(t, merged, 1)
	assert.Equal(t, "0102030405", merged[0].Phone)
	assert.Equal(t, bakery.ID, merged[0].RecordID)
}
