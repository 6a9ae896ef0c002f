package block_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/furlan-lab/SpecHLA/block"
	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, line string) *vcf.Record {
	rec, err := vcf.ParseRecord(strings.Replace(line, " ", "\t", -1))
	require.NoError(t, err)
	return rec
}

func het(pos int, ref, alt string, idx [2]int, index int) genotype.HetSite {
	return genotype.HetSite{
		Site:      genotype.Site{Contig: "HLA_A", Pos: pos, Ref: ref, Alleles: [2]string{ref, alt}},
		Index:     index,
		AlleleIdx: idx,
	}
}

func TestLocalPhase(t *testing.T) {
	hets := []genotype.HetSite{
		het(1100, "A", "G", [2]int{0, 1}, 1),
		het(1200, "C", "T", [2]int{1, 2}, 2),
		het(1300, "G", "A", [2]int{0, 1}, 3),
	}
	recs := []*vcf.Record{
		record(t, "HLA_A 1100 . A G 50 . DP=20 GT:PS 1|0:5"),
		record(t, "HLA_A 1200 . C T,G 50 . DP=20 GT:PS 2|1:5"),
	}
	local, err := block.LocalPhase(recs, hets)
	require.NoError(t, err)
	assert.Equal(t, []block.Local{
		{Slots: [2]int{1, 0}, Set: 5, Phased: true},
		{Slots: [2]int{1, 0}, Set: 5, Phased: true},
		{Slots: [2]int{0, 1}, Set: -1},
	}, local)

	recs = []*vcf.Record{record(t, "HLA_A 1100 . A G 50 . DP=20 GT 0|2")}
	_, err = block.LocalPhase(recs, hets[:1])
	assert.Error(t, err)
}

func TestLink(t *testing.T) {
	hets := []genotype.HetSite{
		het(1100, "A", "G", [2]int{0, 1}, 1),
		het(1200, "C", "T", [2]int{0, 1}, 2),
		het(1220, "C", "T", [2]int{0, 1}, 3),
		het(1300, "G", "A", [2]int{0, 1}, 4),
		het(1400, "G", "A", [2]int{0, 1}, 5),
	}
	local := []block.Local{
		{Slots: [2]int{0, 1}, Set: 1, Phased: true},
		{Slots: [2]int{1, 0}, Set: 1, Phased: true},
		{Slots: [2]int{0, 1}, Set: -1},
		{Slots: [2]int{0, 1}, Set: 1, Phased: true},
		{Slots: [2]int{1, 0}, Set: 1, Phased: true},
	}
	flips := []block.Flip{
		{Locus: "HLA_A", Start: 1150, End: 1250, Flip: true},
		{Locus: "HLA_A", Start: 1100, End: 1350, Flip: false},
		{Locus: "HLA_B", Start: 1350, End: 1450, Flip: true},
	}
	haps, err := block.Link(hets, local, flips)
	require.NoError(t, err)
	// Only the phased site inside the flipped block is swapped.
	assert.Equal(t, [][]int{{0, 0, 0, 0, 1}, {1, 1, 1, 1, 0}}, haps)

	haps, err = block.Link(hets, local, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 0, 0, 1}, {1, 0, 1, 1, 0}}, haps)

	_, err = block.Link(hets, local[:2], nil)
	assert.Error(t, err)
}

func TestReadFlips(t *testing.T) {
	flips, err := block.ReadFlips(strings.NewReader("#gene\tstart\tend\tflip\nHLA_A\t1150\t1250\t1\nHLA_A\t1300\t1400\t0\n"))
	require.NoError(t, err)
	assert.Equal(t, []block.Flip{
		{Locus: "HLA_A", Start: 1150, End: 1250, Flip: true},
		{Locus: "HLA_A", Start: 1300, End: 1400},
	}, flips)

	_, err = block.ReadFlips(strings.NewReader("HLA_A\t1250\t1150\t1\n"))
	assert.Error(t, err)

	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	_, err = block.ReadFlipsFile(vcontext.Background(), filepath.Join(tmp, "missing.txt"))
	assert.Error(t, err)
}

func TestRefine(t *testing.T) {
	recs := []*vcf.Record{
		record(t, "HLA_A 1100 . A G 50 . DP=20 GT:PS 0|1:1"),
		record(t, "HLA_A 1200 . C T 50 . DP=20 GT 0/1"),
		record(t, "HLA_A 1300 . G A 50 . DP=20 GT:PS 1|1:1"),
		record(t, "HLA_A 1400 . G A 50 . DP=20 GT:PS 0|1:1400"),
		record(t, "HLA_A 1500 . G A 50 . DP=20 GT:PS 1|0:1400"),
		record(t, "HLA_B 1600 . G A 50 . DP=20 GT 0/1"),
	}
	refined, breaks := block.Refine(recs, "HLA_A")
	require.Equal(t, 5, len(refined))
	assert.Equal(t, []block.Break{{Chrom: "HLA_A", Pos: 1100}, {Chrom: "HLA_A", Pos: 1200}}, breaks)

	gt, ok := refined[1].Field("GT")
	assert.True(t, ok)
	assert.Equal(t, "0|1", gt)
	assert.Equal(t, 1, refined[1].PhaseSet())
	// The input is untouched.
	gt, _ = recs[1].Field("GT")
	assert.Equal(t, "0/1", gt)

	var buf strings.Builder
	require.NoError(t, block.WriteReport(&buf, breaks))
	assert.Equal(t, block.ReportHeader+"\nHLA_A 1100 - - - - 20 1200\nHLA_A 1200 - - - - 20 1300\n", buf.String())

	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	require.NoError(t, block.WriteReportFile(vcontext.Background(), filepath.Join(tmp, "report.txt"), nil))
}

// A site Refine fills into a phase set is phased from then on, so a block
// flip covering it swaps it with the rest of the block.
func TestRefineThenFlip(t *testing.T) {
	recs := []*vcf.Record{
		record(t, "HLA_A 1100 . A G 50 . DP=20 GT:PS 0|1:1"),
		record(t, "HLA_A 1200 . C T 50 . DP=20 GT 0/1"),
	}
	hets := []genotype.HetSite{
		het(1100, "A", "G", [2]int{0, 1}, 1),
		het(1200, "C", "T", [2]int{0, 1}, 2),
	}
	refined, _ := block.Refine(recs, "HLA_A")
	local, err := block.LocalPhase(refined, hets)
	require.NoError(t, err)
	assert.Equal(t, []block.Local{
		{Slots: [2]int{0, 1}, Set: 1, Phased: true},
		{Slots: [2]int{0, 1}, Set: 1, Phased: true},
	}, local)

	flips := []block.Flip{{Locus: "HLA_A", Start: 1000, End: 1300, Flip: true}}
	haps, err := block.Link(hets, local, flips)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 1}, {0, 0}}, haps)

	// Without Refine the unphased site keeps its orientation.
	local, err = block.LocalPhase(recs, hets)
	require.NoError(t, err)
	haps, err = block.Link(hets, local, flips)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 0}, {0, 1}}, haps)
}

func TestRephase(t *testing.T) {
	hom := record(t, "HLA_A 1000 . A G 50 . DP=20 GT 1|1")
	h := het(1200, "T", "G", [2]int{1, 2}, 2)
	h.Record = record(t, "HLA_A 1200 . C T,G 50 . DP=20 GT 1|2")
	out := block.Rephase([]*vcf.Record{hom, h.Record}, []genotype.HetSite{h}, [][]int{{1}, {0}})
	require.Equal(t, 2, len(out))
	gt, _ := out[0].Field("GT")
	assert.Equal(t, "1|1", gt)
	gt, _ = out[1].Field("GT")
	assert.Equal(t, "2|1", gt)
	gt, _ = h.Record.Field("GT")
	assert.Equal(t, "1|2", gt)
}

func TestIndelFragments(t *testing.T) {
	hets := []genotype.HetSite{
		het(1100, "A", "G", [2]int{0, 1}, 1),
		het(1105, "A", "AT", [2]int{0, 1}, 2),
		het(1200, "C", "T", [2]int{0, 1}, 4),
		het(1300, "C", "T", [2]int{0, 1}, 5),
	}
	supports := [][2][]string{
		{{"r2", "r1"}, {"r3"}},
		{{"r1"}, {"r3", "r2"}},
		{{"r1"}, {"r3"}},
		{{"r1"}, {"r3"}},
	}
	var buf strings.Builder
	require.NoError(t, block.WriteIndelFragments(&buf, block.Standard, hets, supports))
	assert.Equal(t, `2 r1 1 0 2 0 II 60
2 r2 1 0 2 1 II 60
2 r3 1 1 2 1 II 60
2 r1 2 0 4 0 II 60
2 r3 2 1 4 1 II 60
`, buf.String())

	assert.Error(t, block.WriteIndelFragments(&buf, block.Standard, hets, supports[:1]))

	buf.Reset()
	require.NoError(t, block.WriteIndelFragments(&buf, block.Barcoded, hets[:2], supports[:2]))
	assert.Equal(t, `2 r1 1 -1 -1 1 0 2 0 II 60
2 r2 1 -1 -1 1 0 2 1 II 60
2 r3 1 -1 -1 1 1 2 1 II 60
`, buf.String())
	assert.Equal(t, 3, block.Standard.SortKey())
	assert.Equal(t, 6, block.Barcoded.SortKey())
}

func TestImbalanceFragments(t *testing.T) {
	a := het(1100, "A", "G", [2]int{0, 1}, 1)
	a.Beta = 0.2
	b := het(1200, "C", "T", [2]int{0, 1}, 2)
	b.Beta = 0.1
	var buf strings.Builder
	require.NoError(t, block.WriteImbalanceFragments(&buf, block.Standard, []genotype.HetSite{a, b}, 1))
	assert.Equal(t, "2 linkage:0:1:1 1 0 2 0 ?? 43\n2 linkage:0:1:2 1 0 2 1 ?? 10\n", buf.String())

	buf.Reset()
	require.NoError(t, block.WriteImbalanceFragments(&buf, block.Barcoded, []genotype.HetSite{a, b}, 1))
	assert.Equal(t, "2 linkage:0:1:1 1 -1 -1 1 0 2 0 ?? 43\n2 linkage:0:1:2 1 -1 -1 1 0 2 1 ?? 10\n", buf.String())

	buf.Reset()
	require.NoError(t, block.WriteImbalanceFragments(&buf, block.Standard, []genotype.HetSite{a, b}, 0.01))
	assert.Equal(t, "", buf.String())
}
