package freq_test

import (
	"io/ioutil"
	"strings"
	"testing"

	"github.com/furlan-lab/SpecHLA/freq"
	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func site(beta float64) genotype.HetSite { return genotype.HetSite{Beta: beta} }

func TestEstimate(t *testing.T) {
	f, err := freq.Estimate(nil, nil)
	assert.NoError(t, err)
	expect.EQ(t, f, []float64{1, 0})

	f, err = freq.Estimate([]genotype.HetSite{site(0.2)}, [][]int{{0}, {1}})
	assert.NoError(t, err)
	expect.EQ(t, f, []float64{0.8, 0.2})

	f, err = freq.Estimate([]genotype.HetSite{site(0.2)}, [][]int{{1}, {0}})
	assert.NoError(t, err)
	expect.EQ(t, f, []float64{0.2, 0.8})

	// (0.7 + 0.6 + 0.65) / 3
	f, err = freq.Estimate([]genotype.HetSite{site(0.3), site(0.6), site(0.35)}, [][]int{{0, 1, 0}, {1, 0, 1}})
	assert.NoError(t, err)
	expect.EQ(t, f, []float64{0.65, 0.35})

	// Rounded to three decimals.
	f, err = freq.Estimate([]genotype.HetSite{site(1.0 / 3)}, [][]int{{0}, {1}})
	assert.NoError(t, err)
	expect.EQ(t, f, []float64{0.667, 0.333})

	_, err = freq.Estimate([]genotype.HetSite{site(0.2)}, [][]int{{0, 1}, {1, 0}})
	expect.NotNil(t, err)
}

func TestTable(t *testing.T) {
	var buf strings.Builder
	assert.NoError(t, freq.WriteTable(&buf, []float64{0.8, 0.2}))
	expect.EQ(t, buf.String(), "# HLA\tFrequency\nstr-1 0.8\nstr-2 0.2\n")

	buf.Reset()
	assert.NoError(t, freq.WriteTable(&buf, freq.NoHet(2)))
	expect.EQ(t, buf.String(), "# HLA\tFrequency\nstr-1 1\nstr-2 0\n")
}

func TestWriteFile(t *testing.T) {
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path, err := freq.WriteFile(vcontext.Background(), tmp, "HLA_B", []float64{0.5, 0.5})
	assert.NoError(t, err)
	expect.True(t, strings.HasSuffix(path, "/HLA_B_freq.txt"))
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	expect.EQ(t, string(data), "# HLA\tFrequency\nstr-1 0.5\nstr-2 0.5\n")
}
