package vote_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/furlan-lab/SpecHLA/vote"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newRead(t *testing.T, name, contig string, pos int, seq string) *readstore.Read {
	r, err := readstore.NewRead(name, contig, pos, 60, fmt.Sprintf("%dM", len(seq)), seq)
	assert.NoError(t, err)
	return r
}

// twoSites has A/G at 1101 and C/T at 1104; haplotype 0 carries the first
// allele at both and haplotype 1 the second.
var twoSites = vote.Signature{
	Sites: []genotype.Site{
		{Contig: "HLA_A", Pos: 1101, Ref: "A", Alleles: [2]string{"A", "G"}},
		{Contig: "HLA_A", Pos: 1104, Ref: "C", Alleles: [2]string{"C", "T"}},
	},
	Haps: [][]int{{0, 0}, {1, 1}},
}

func TestClassify(t *testing.T) {
	v, err := vote.NewVoter(readstore.NewMemStore(nil), twoSites)
	assert.NoError(t, err)
	tests := []struct {
		seq  string
		pos  int
		want int
	}{
		// Offsets 5 and 8 hold the bases at 1101 and 1104.
		{"AAAAAGAATAA", 1095, 1},
		{"AAAAAAAACAA", 1095, 0},
		// One match each way: lowest index.
		{"AAAAAGAACAA", 1095, 0},
		// Only the first site matches anything.
		{"AAAAAAAAAAA", 1095, 0},
		{"AAAAATAAGAA", 1095, vote.Unassigned},
		// Covers no site.
		{"AAAA", 10, vote.Unassigned},
		// Covers only the second site.
		{"AATAA", 1101, 1},
	}
	for _, test := range tests {
		r := newRead(t, "r", "HLA_A", test.pos, test.seq)
		expect.EQ(t, v.Classify(r), test.want, "%s@%d", test.seq, test.pos)
	}
}

func TestClassifySkipsMultiBaseSites(t *testing.T) {
	sig := vote.Signature{
		Sites: []genotype.Site{{Contig: "HLA_A", Pos: 1101, Ref: "A", Alleles: [2]string{"A", "AGG"}}},
		Haps:  [][]int{{0}, {1}},
	}
	v, err := vote.NewVoter(readstore.NewMemStore(nil), sig)
	assert.NoError(t, err)
	expect.EQ(t, v.Classify(newRead(t, "r", "HLA_A", 1095, "AAAAAAAAAAA")), vote.Unassigned)
}

func TestNewVoterRejectsBadSignature(t *testing.T) {
	_, err := vote.NewVoter(readstore.NewMemStore(nil), vote.Signature{Sites: twoSites.Sites})
	expect.NotNil(t, err)
	_, err = vote.NewVoter(readstore.NewMemStore(nil), vote.Signature{Sites: twoSites.Sites, Haps: [][]int{{0, 2}, {1, 1}}})
	expect.NotNil(t, err)
	_, err = vote.NewVoter(readstore.NewMemStore(nil), vote.Signature{Sites: twoSites.Sites, Haps: [][]int{{0}, {1, 1}}})
	expect.NotNil(t, err)
}

// altPileup builds ten reads carrying G at 1101, four carrying A, and two
// carrying T.
func altPileup(t *testing.T) []*readstore.Read {
	var reads []*readstore.Read
	for i, n := range map[byte]int{'G': 10, 'A': 4, 'T': 2} {
		for j := 0; j < n; j++ {
			seq := []byte("CCCCCCCCCCC")
			seq[5] = i
			// The C at offset 8 would vote for haplotype 0 at 1104; use a
			// base matching neither.
			seq[8] = 'A'
			reads = append(reads, newRead(t, fmt.Sprintf("%c%02d", i, j), "HLA_A", 1095, string(seq)))
		}
	}
	return reads
}

func TestSupport(t *testing.T) {
	ctx := vcontext.Background()
	store := readstore.NewMemStore(altPileup(t))
	v, err := vote.NewVoter(store, twoSites)
	assert.NoError(t, err)

	regions := []interval.Entry{
		{ChrName: "HLA_A", Start0: 1000, End: 1100},
		{ChrName: "HLA_A", Start0: 1100, End: 1200},
	}
	s, err := v.Support(ctx, regions)
	assert.NoError(t, err)
	expect.EQ(t, s.Strains(), 2)
	expect.EQ(t, s.Len(1), 10)
	expect.EQ(t, s.Len(0), 4)
	expect.True(t, s.Has(1, "G00"))
	expect.False(t, s.Has(0, "G00"))
	expect.False(t, s.Has(0, "T00"))
	expect.False(t, s.Has(1, "T00"))

	// Repeated runs give the same assignment.
	again, err := v.Support(ctx, regions)
	assert.NoError(t, err)
	for h := 0; h < 2; h++ {
		expect.EQ(t, again.Names(h), s.Names(h))
	}

	one, err := v.Assign(ctx, interval.Entry{ChrName: "HLA_A", Start0: 1100, End: 1101})
	assert.NoError(t, err)
	expect.EQ(t, one.Names(1), s.Names(1))

	none, err := v.Assign(ctx, interval.Entry{ChrName: "HLA_B", Start0: 0, End: 5000})
	assert.NoError(t, err)
	expect.EQ(t, none.Len(0)+none.Len(1), 0)
}

func TestPresence(t *testing.T) {
	ctx := vcontext.Background()
	support := vote.NewSupport(2)
	for _, n := range []string{"a", "b", "c"} {
		support.Add(0, n)
	}
	for _, n := range []string{"d", "e"} {
		support.Add(1, n)
	}
	store := readstore.NewMemStore([]*readstore.Read{
		newRead(t, "a", "HLA_A", 100, "ACGTACGTAC"),
		newRead(t, "d", "HLA_A", 150, "ACGTACGTAC"),
		newRead(t, "e", "HLA_A", 152, "ACGTACGTAC"),
		newRead(t, "x", "HLA_A", 151, "ACGTACGTAC"),
		newRead(t, "a", "HLA_A_1181", 0, "ACGTACGTAC"),
		newRead(t, "b", "HLA_A_1181", 2, "ACGTACGTAC"),
		newRead(t, "d", "HLA_A_1181", 4, "ACGTACGTAC"),
	})

	hap, counts, err := vote.Presence(ctx, store, interval.Entry{ChrName: "HLA_A", Start0: 140, End: 200}, support)
	assert.NoError(t, err)
	expect.EQ(t, hap, 1)
	expect.EQ(t, counts, []int{0, 2})

	hap, counts, err = vote.Presence(ctx, store, interval.Entry{ChrName: "HLA_A_1181", Start0: 0, End: 14}, support)
	assert.NoError(t, err)
	expect.EQ(t, hap, 0)
	expect.EQ(t, counts, []int{2, 1})

	// Zero-length region counts reads covering the position.
	hap, counts, err = vote.Presence(ctx, store, interval.Entry{ChrName: "HLA_A", Start0: 105, End: 105}, support)
	assert.NoError(t, err)
	expect.EQ(t, hap, 0)
	expect.EQ(t, counts, []int{1, 0})

	// Tie and empty both go to haplotype 0.
	hap, counts, err = vote.Presence(ctx, store, interval.Entry{ChrName: "HLA_A", Start0: 0, End: 50}, support)
	assert.NoError(t, err)
	expect.EQ(t, hap, 0)
	expect.EQ(t, counts, []int{0, 0})
}

const catalogue = `DRB1*01:01 x x 0.98 12 ACGTACGT r1##1;r2##1;r3##1;r4##2;
DRB1*04:01 x x 0.95 9 TTTTGGGG r3##2;r5##1;r6##1;
DRB1*07:01 x x 0.90 7 CCCCAAAA r7##1;r8##1;r8##2;
`

func TestCatalogue(t *testing.T) {
	cat, err := vote.ReadCatalogue(strings.NewReader(catalogue))
	assert.NoError(t, err)
	assert.EQ(t, len(cat.Candidates), 3)
	expect.EQ(t, cat.Candidates[0].Reads, []string{"r1", "r2", "r3", "r4"})
	expect.EQ(t, cat.Candidates[0].Unique, []string{"r1", "r2", "r4"})
	expect.EQ(t, cat.Candidates[1].Unique, []string{"r5", "r6"})
	expect.EQ(t, cat.Candidates[2].Unique, []string{"r7", "r8"})

	support := vote.NewSupport(2)
	for _, n := range []string{"r1", "r3", "r5"} {
		support.Add(0, n)
	}
	for _, n := range []string{"r5", "r6", "r7", "r8"} {
		support.Add(1, n)
	}
	// Haplotype 0 ties 1:1 between the first two candidates; the later wins.
	// Haplotype 1 ties 2:2 between the last two.
	expect.EQ(t, cat.Assign(support), []string{"TTTTGGGG", "CCCCAAAA"})

	empty, err := vote.NewCatalogue(nil, nil)
	assert.NoError(t, err)
	expect.EQ(t, empty.Assign(support), []string{"", ""})

	_, err = vote.NewCatalogue([]string{"A"}, nil)
	expect.NotNil(t, err)
	_, err = vote.ReadCatalogue(strings.NewReader("a b c\n"))
	expect.NotNil(t, err)
}
