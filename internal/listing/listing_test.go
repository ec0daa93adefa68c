package listing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"name":"SARL DUPONT Plomberie (Paris)","phone":"0102030405","city":"Paris","postalCode":"75011","deptCode":"75"}

{"name":"Sans Telephone","phone":"","deptCode":"75"}
{"name":"Martin Elec","phone":" 0607080910 ","deptCode":"2a"}
{"name":"Garage Central","deptCode":"13"}
`

func TestRead(t *testing.T) {
	listings, stats, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, "SARL DUPONT Plomberie (Paris)", listings[0].Name)
	assert.Equal(t, "75011", listings[0].PostalCode)
	assert.Equal(t, 1, listings[0].Line)

	assert.Equal(t, "0607080910", listings[1].Phone)
	assert.Equal(t, "2A", listings[1].DeptCode)
	assert.Equal(t, 4, listings[1].Line)

	assert.Equal(t, &ReadStats{Lines: 5, Blank: 1, WithoutPhone: 2, Kept: 2}, stats)
}

func TestReadMalformedLine(t *testing.T) {
	_, _, err := Read(strings.NewReader("{\"name\":\"ok\",\"phone\":\"1\",\"deptCode\":\"01\"}\n{broken\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadEmpty(t *testing.T) {
	_, _, err := Read(strings.NewReader("\n{\"name\":\"x\",\"deptCode\":\"01\"}\n"))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	listings, _, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, listings, 2)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestGroup(t *testing.T) {
	listings := []Listing{
		{Name: "a", DeptCode: "75"},
		{Name: "b", DeptCode: "13"},
		{Name: "c", DeptCode: "75"},
	}
	groups := Group(listings)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "c"}, []string{groups["75"][0].Name, groups["75"][1].Name})
	assert.Equal(t, []string{"13", "75"}, Codes(groups))
}

func TestParseShard(t *testing.T) {
	tests := []struct {
		in      string
		want    *Shard
		wantErr bool
	}{
		{"1/4", &Shard{Index: 1, Count: 4}, false},
		{" 3/3 ", &Shard{Index: 3, Count: 3}, false},
		{"0/4", nil, true},
		{"5/4", nil, true},
		{"2", nil, true},
		{"a/b", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShard(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShardPick(t *testing.T) {
	codes := []string{"05", "01", "04", "02", "03"}
	assert.Equal(t, []string{"01", "02"}, (&Shard{Index: 1, Count: 3}).Pick(codes))
	assert.Equal(t, []string{"03", "04"}, (&Shard{Index: 2, Count: 3}).Pick(codes))
	assert.Equal(t, []string{"05"}, (&Shard{Index: 3, Count: 3}).Pick(codes))
	assert.Nil(t, (&Shard{Index: 4, Count: 4}).Pick([]string{"01", "02", "03"}))

	var all []string
	for i := 1; i <= 4; i++ {
		all = append(all, (&Shard{Index: i, Count: 4}).Pick(codes)...)
	}
	assert.Equal(t, []string{"01", "02", "03", "04", "05"}, all)
}

func TestSelection(t *testing.T) {
	groups := map[string][]Listing{
		"01": {{Name: "a"}},
		"02": {{Name: "b"}},
		"2A": {{Name: "c"}},
	}

	sel := Selection{Dept: "2a"}
	assert.Equal(t, "2a", sel.Label())
	assert.False(t, sel.RecordOnly())
	assert.Equal(t, []string{"2A"}, Codes(sel.Apply(groups)))

	sel = Selection{Shard: &Shard{Index: 2, Count: 2}}
	assert.Equal(t, "2-2", sel.Label())
	assert.True(t, sel.RecordOnly())
	assert.Equal(t, []string{"2A"}, Codes(sel.Apply(groups)))

	sel = Selection{}
	assert.Equal(t, "full", sel.Label())
	assert.False(t, sel.RecordOnly())
	assert.Len(t, sel.Apply(groups), 3)

	assert.Empty(t, Selection{Dept: "99"}.Apply(groups))
}
