package assemble_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/furlan-lab/SpecHLA/assemble"
	"github.com/furlan-lab/SpecHLA/encoding/fasta"
	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/furlan-lab/SpecHLA/sv"
	"github.com/furlan-lab/SpecHLA/vote"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ref = "ACGTTGCAAC" + "GGATCCTTAA" + "CTGACTGACT" + "TTTTAAAACC" + "GCGCATATGC" +
	"AACCGGTTAA" + "CATGCATGCA" + "TGCATGCATG" + "ACACACACAC" + "GTGTGTGTGT"

var focus = interval.Entry{ChrName: "HLA_A", Start0: 0, End: 100}

func withCN(r sv.Region, cn int) sv.Region {
	r.CopyNumber = cn
	return r
}

// sequences gives haplotype 0 the reference and haplotype 1 the reference in
// lower case.
func sequences(entries []interval.Entry) assemble.Sequences {
	seqs := assemble.Sequences{}
	for _, e := range entries {
		seqs.Add(e, []string{ref[e.Start0:e.End], strings.ToLower(ref[e.Start0:e.End])})
	}
	return seqs
}

func TestAssembleNormalOnly(t *testing.T) {
	segs := sv.Partition(focus, nil, interval.Entry{})
	in := assemble.Input{Locus: "HLA_A", Strains: 2, Segments: segs, Seqs: sequences(assemble.Needed("HLA_A", segs, nil))}
	haps, err := assemble.Assemble(in)
	require.NoError(t, err)
	assert.Equal(t, []string{ref, strings.ToLower(ref)}, haps)
}

func TestAssembleStructural(t *testing.T) {
	regions := []sv.Region{
		withCN(sv.NewDeletion(20, 30), 1),
		withCN(sv.NewInsertion(50, "GGG"), 1),
		withCN(sv.NewInsertion(70, "TT"), 2),
		withCN(sv.NewDeletion(80, 90), 0),
	}
	segs := sv.Partition(focus, regions, interval.Entry{})
	needed := assemble.Needed("HLA_A", segs, regions)
	assert.Equal(t, []string{
		"HLA_A:1-20", "HLA_A:21-30", "HLA_A:31-50", "HLA_A:51-70",
		"HLA_A_71:1-2", "HLA_A:71-80", "HLA_A:81-90", "HLA_A:91-100",
	}, entryStrings(needed))

	seqs := sequences(nil)
	for _, e := range needed {
		if e.ChrName == "HLA_A" {
			seqs.Add(e, []string{ref[e.Start0:e.End], strings.ToLower(ref[e.Start0:e.End])})
		}
	}
	seqs.Add(regions[2].PlaceholderEntry("HLA_A"), []string{"TT", "tt"})

	in := assemble.Input{
		Locus:    "HLA_A",
		Strains:  2,
		Segments: segs,
		Regions:  regions,
		Seqs:     seqs,
		Presence: map[int]int{0: 1, 1: 0},
		Insertions: map[int]assemble.InsertionPhase{
			1: {Seqs: [2]string{"GGG", "GAG"}, Straight: 1, Crossed: 3},
		},
	}
	haps, err := assemble.Assemble(in)
	require.NoError(t, err)
	assert.Equal(t, ref[0:20]+ref[30:50]+"GAG"+ref[50:70]+"TT"+ref[70:80]+ref[90:100], haps[0])
	lower := strings.ToLower(ref)
	assert.Equal(t, lower[0:70]+"TT"+lower[70:80]+lower[90:100], haps[1])

	// Ties keep the straight phasing.
	in.Insertions[1] = assemble.InsertionPhase{Seqs: [2]string{"GGG", "GAG"}, Straight: 2, Crossed: 2}
	hap, err := in.Haplotype(0)
	require.NoError(t, err)
	assert.Contains(t, hap, ref[30:50]+"GGG"+ref[50:70])

	// A single-copy insertion without phasing is inconsistent.
	delete(in.Insertions, 1)
	_, err = in.Haplotype(0)
	require.Error(t, err)
	_, ok := err.(*assemble.MissingError)
	assert.True(t, ok)
	// Haplotype 1 does not carry it.
	_, err = in.Haplotype(1)
	assert.NoError(t, err)
}

func TestAssembleMissingConsensus(t *testing.T) {
	regions := []sv.Region{withCN(sv.NewDeletion(20, 30), 1)}
	segs := sv.Partition(focus, regions, interval.Entry{})
	seqs := sequences(assemble.Needed("HLA_A", segs, regions))
	delete(seqs, "HLA_A:31-100")
	_, err := assemble.Assemble(assemble.Input{Locus: "HLA_A", Strains: 2, Segments: segs, Regions: regions, Seqs: seqs})
	require.Error(t, err)
	missing, ok := err.(*assemble.MissingError)
	require.True(t, ok)
	assert.Equal(t, "HLA_A:31-100", missing.Key)
	assert.Contains(t, err.Error(), "normal")
}

func TestAssembleDuplication(t *testing.T) {
	band := interval.Entry{ChrName: "HLA_A", Start0: 40, End: 45}
	segs := sv.Partition(focus, nil, band)
	require.Equal(t, 1, len(segs))
	require.Equal(t, sv.Duplication, segs[0].Kind)
	in := assemble.Input{
		Locus:    "HLA_A",
		Strains:  2,
		Segments: segs,
		Seqs:     sequences(assemble.Needed("HLA_A", segs, nil)),
		Dup:      []string{"DUPZERO", "DUPONE"},
	}
	haps, err := assemble.Assemble(in)
	require.NoError(t, err)
	assert.Equal(t, ref[:40]+"DUPZERO"+ref[45:], haps[0])
	assert.Equal(t, strings.ToLower(ref[:40])+"DUPONE"+strings.ToLower(ref[45:]), haps[1])

	in.Dup = nil
	_, err = assemble.Assemble(in)
	assert.Error(t, err)

	// An untyped band is not silently dropped.
	in.Dup = []string{"DUPZERO", ""}
	_, err = assemble.Assemble(in)
	require.Error(t, err)
	me, ok := err.(*assemble.MissingError)
	require.True(t, ok, "%T", err)
	assert.Equal(t, band.String(), me.Key)
}

func entryStrings(entries []interval.Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}

func TestLinkInsertion(t *testing.T) {
	ctx := vcontext.Background()
	var recs []*vcf.Record
	for _, line := range []string{
		"HLA_A_51\t2\t.\tG\tA\t50\t.\tDP=10\tGT\t0|1",
		"HLA_A_51\t3\t.\tG\tC\t50\t.\tDP=10\tGT\t1|1",
		"HLA_A_81\t2\t.\tG\tT\t50\t.\tDP=10\tGT\t1|0",
	} {
		rec, err := vcf.ParseRecord(line)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	var reads []*readstore.Read
	for _, r := range []struct{ name, seq string }{{"r1", "GGG"}, {"r2", "GAG"}, {"r3", "GAG"}, {"r4", "GTG"}} {
		read, err := readstore.NewRead(r.name, "HLA_A_51", 0, 60, "3M", r.seq)
		require.NoError(t, err)
		reads = append(reads, read)
	}
	support := vote.NewSupport(2)
	support.Add(0, "r1")
	support.Add(0, "r2")
	support.Add(1, "r3")
	support.Add(1, "r4")

	phase, err := assemble.LinkInsertion(ctx, readstore.NewMemStore(reads), "HLA_A_51", recs, support)
	require.NoError(t, err)
	assert.Equal(t, 2, phase.Straight)
	assert.Equal(t, 1, phase.Crossed)

	phase, err = assemble.LinkInsertion(ctx, readstore.NewMemStore(reads), "HLA_A_61", recs, support)
	require.NoError(t, err)
	assert.Equal(t, assemble.InsertionPhase{}, phase)
}

func TestWriteFiles(t *testing.T) {
	ctx := vcontext.Background()
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	paths, err := assemble.WriteFiles(ctx, tmp, "HLA_A", []string{ref, "ACGT"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tmp, "hla.allele.1.HLA_A.fasta"), filepath.Join(tmp, "hla.allele.2.HLA_A.fasta")}, paths)

	fa, err := fasta.ReadFile(ctx, paths[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"HLA_A_1"}, fa.SeqNames())
	n, err := fa.Len("HLA_A_1")
	require.NoError(t, err)
	seq, err := fa.Get("HLA_A_1", 0, n)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", seq)

	fa, err = fasta.ReadFile(ctx, paths[0])
	require.NoError(t, err)
	n, err = fa.Len("HLA_A_0")
	require.NoError(t, err)
	assert.Equal(t, len(ref), n)
}
