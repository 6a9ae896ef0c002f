package pileup_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/furlan-lab/SpecHLA/pileup"
	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestReadTSV(t *testing.T) {
	in := "HLA_A\t1\t5\nHLA_A\t2\t7\n# comment\nHLA_A_3150\t3\t40\n"
	track, err := pileup.ReadTSV(strings.NewReader(in))
	assert.NoError(t, err)
	expect.EQ(t, 5, track.At("HLA_A", 0))
	expect.EQ(t, 7, track.At("HLA_A", 1))
	expect.EQ(t, 0, track.At("HLA_A", 2))
	expect.EQ(t, 40, track.At("HLA_A_3150", 2))
	expect.EQ(t, 3, track.Len("HLA_A_3150"))
	expect.EQ(t, []string{"HLA_A", "HLA_A_3150"}, track.Contigs())
	expect.EQ(t, 6.0, track.Mean("HLA_A"))

	var buf bytes.Buffer
	assert.NoError(t, track.WriteTSV(&buf))
	back, err := pileup.ReadTSV(&buf)
	assert.NoError(t, err)
	expect.EQ(t, track, back)

	_, err = pileup.ReadTSV(strings.NewReader("HLA_A\t0\t5\n"))
	expect.NotNil(t, err)
}

func TestDepthFromReads(t *testing.T) {
	mk := func(name string, pos int, cigar, seq string) *readstore.Read {
		r, err := readstore.NewRead(name, "HLA_A", pos, 60, cigar, seq)
		assert.NoError(t, err)
		return r
	}
	store := readstore.NewMemStore([]*readstore.Read{
		mk("r1", 0, "4M", "ACGT"),
		mk("r2", 2, "1M2D1M1I1M", "ACGT"),
	})
	track, err := pileup.Depth(vcontext.Background(), store, map[string]int{"HLA_A": 8})
	assert.NoError(t, err)
	var got []int
	for p := 0; p < 8; p++ {
		got = append(got, track.At("HLA_A", p))
	}
	expect.EQ(t, []int{1, 1, 2, 1, 0, 1, 1, 0}, got)
}
