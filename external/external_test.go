package external_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/furlan-lab/SpecHLA/encoding/fasta"
	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/external"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ref = "ACGTACGTAC"

func records(t *testing.T) []*vcf.Record {
	var recs []*vcf.Record
	for _, line := range []string{
		"HLA_A\t2\t.\tC\tT\t50\t.\tDP=10\tGT\t0|1",
		"HLA_A\t5\t.\tA\tAGG\t50\t.\tDP=10\tGT\t1|1",
		"HLA_A\t7\t.\tGTA\tG\t50\t.\tDP=10\tGT\t1|0",
		"HLA_B\t1\t.\tA\tT\t50\t.\tDP=10\tGT\t1|1",
	} {
		rec, err := vcf.ParseRecord(line)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

func TestApply(t *testing.T) {
	fa := fasta.FromMap([]string{"HLA_A"}, map[string]string{"HLA_A": ref})
	regions := []interval.Entry{
		{ChrName: "HLA_A", Start0: 0, End: 10},
		{ChrName: "HLA_A", Start0: 2, End: 6},
		{ChrName: "HLA_A", Start0: 3, End: 3},
		{ChrName: "HLA_A", Start0: 6, End: 8},
	}
	seqs, err := external.Apply(fa, records(t), regions, 0)
	require.NoError(t, err)
	// The deletion at 7 does not fit in [6,8).
	assert.Equal(t, []string{"ACGTAGGCGC", "GTAGGC", "", "GT"}, seqs)

	seqs, err = external.Apply(fa, records(t), regions, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ATGTAGGCGTAC", "GTAGGC", "", "GT"}, seqs)

	_, err = external.Apply(fa, nil, []interval.Entry{{ChrName: "HLA_C", Start0: 0, End: 1}}, 0)
	assert.Error(t, err)
}

func TestRefConsensus(t *testing.T) {
	ctx := vcontext.Background()
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	refPath := filepath.Join(tmp, "ref.fa")
	vcfPath := filepath.Join(tmp, "calls.vcf.gz")
	require.NoError(t, fasta.WriteFile(ctx, refPath, fasta.FromMap([]string{"HLA_A"}, map[string]string{"HLA_A": ref})))
	require.NoError(t, vcf.WriteFile(ctx, vcfPath, vcf.NewHeader("HLA_A", "HLA_B"), records(t)))

	var c external.Consensus = external.RefConsensus{}
	seqs, err := c.Consensus(ctx, external.ConsensusRequest{
		Ref:     refPath,
		VCF:     vcfPath,
		Regions: []interval.Entry{{ChrName: "HLA_A", Start0: 0, End: 10}},
		Hap:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ATGTAGGCGTAC"}, seqs)

	_, err = c.Consensus(ctx, external.ConsensusRequest{Ref: filepath.Join(tmp, "missing.fa"), VCF: vcfPath})
	assert.Error(t, err)
}

func TestToolsFromEnv(t *testing.T) {
	const key = "SPECHLA_SAMTOOLS"
	old, had := os.LookupEnv(key)
	defer func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	}()
	require.NoError(t, os.Setenv(key, "/opt/bin/samtools"))
	tools, err := external.ToolsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/opt/bin/samtools", tools.Samtools)
	assert.Equal(t, "bcftools", tools.Bcftools)
	assert.Equal(t, "python3", tools.Python)
	assert.Equal(t, ".", tools.ScriptDir)

	_, err = tools.Resolve("Samtools")
	if _, statErr := os.Stat("/opt/bin/samtools"); statErr != nil {
		assert.Error(t, err)
	}
	_, err = tools.Resolve("NoSuchTool")
	assert.Error(t, err)
	_, err = external.Tools{}.Resolve("Bash")
	assert.Error(t, err)
}

func TestFuncAdapters(t *testing.T) {
	ctx := vcontext.Background()
	var got []string
	var (
		a external.Aligner = external.AlignerFunc(func(_ context.Context, req external.AlignRequest) error {
			got = append(got, "align:"+req.Out)
			return nil
		})
		p external.Phaser = external.PhaserFunc(func(_ context.Context, req external.PhaseRequest) error {
			got = append(got, "phase:"+req.Out)
			return nil
		})
	)
	require.NoError(t, a.Align(ctx, external.AlignRequest{Out: "x.bam"}))
	require.NoError(t, p.Phase(ctx, external.PhaseRequest{Out: "x.vcf"}))
	assert.Equal(t, []string{"align:x.bam", "phase:x.vcf"}, got)
}
