package interval

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		region  string
		chrName string
		start0  int
		end     int
	}{
		{"chr1:1-1000", "chr1", 0, 1000},
		{"chr1:1000", "chr1", 999, 1000},
		{"chr1", "chr1", 0, math.MaxInt32 - 1},
		{"HLA_DRB1_6355:1-2000", "HLA_DRB1_6355", 0, 2000},
	}
	for _, tt := range tests {
		result, err := ParseRegion(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, tt.chrName, result.ChrName)
		expect.EQ(t, tt.start0, result.Start0)
		expect.EQ(t, tt.end, result.End)
	}
	for _, bad := range []string{"", ":1-2", "chr1:0-5", "chr1:9-3", "chr1:a-b"} {
		_, err := ParseRegion(bad)
		expect.NotNil(t, err)
	}
}

func TestEntryString(t *testing.T) {
	e := Entry{ChrName: "HLA_A", Start0: 1000, End: 1500}
	expect.EQ(t, "HLA_A:1001-1500", e.String())
	back, err := ParseRegion(e.String())
	assert.NoError(t, err)
	expect.EQ(t, e, back)
	expect.EQ(t, 500, e.Len())
	expect.True(t, e.Contains(1000))
	expect.False(t, e.Contains(1500))
}

func TestBEDUnionFromEntries(t *testing.T) {
	u := NewBEDUnionFromEntries([]Entry{
		{"HLA_DRB1", 4000, 4400},
		{"HLA_DRB1", 3897, 4100},
		{"HLA_A", 10, 10},
		{"HLA_A", 20, 30},
	})
	expect.EQ(t, []Entry{
		{"HLA_A", 20, 30},
		{"HLA_DRB1", 3897, 4400},
	}, u.Entries())

	tests := []struct {
		chr  string
		pos  int
		want bool
	}{
		{"HLA_DRB1", 3896, false},
		{"HLA_DRB1", 3897, true},
		{"HLA_DRB1", 4399, true},
		{"HLA_DRB1", 4400, false},
		{"HLA_A", 10, false},
		{"HLA_B", 25, false},
	}
	for _, tt := range tests {
		expect.EQ(t, tt.want, u.ContainsByName(tt.chr, tt.pos))
	}
	expect.True(t, u.Intersects("HLA_A", 0, 21))
	expect.False(t, u.Intersects("HLA_A", 30, 40))
	expect.False(t, u.Intersects("HLA_A", 25, 25))
}

func TestBEDUnionFromPath(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "bands.bed")
	bed := strings.Join([]string{
		"# excluded bands",
		"HLA_DRB1\t3898\t4400",
		"HLA_DQB1\t100\t200",
		"",
	}, "\n")
	assert.NoError(t, os.WriteFile(path, []byte(bed), 0644))

	ctx := vcontext.Background()
	u, err := NewBEDUnionFromPath(ctx, path, NewBEDOpts{OneBasedInput: true})
	assert.NoError(t, err)
	expect.True(t, u.ContainsByName("HLA_DRB1", 3897))
	expect.True(t, u.ContainsByName("HLA_DQB1", 199))
	expect.False(t, u.ContainsByName("HLA_DQB1", 200))

	merged := u.Union(NewBEDUnionFromEntries([]Entry{{"HLA_DQB1", 150, 300}}))
	expect.True(t, merged.ContainsByName("HLA_DQB1", 250))
}
