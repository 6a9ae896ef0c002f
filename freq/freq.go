// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package freq estimates the relative abundance of the haplotypes of a locus
// from the allele fractions at its phased heterozygous sites, and writes the
// frequency table.
package freq

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Estimate returns the frequency of each of the two haplotypes.  At each
// site, the ratio (1-beta, beta) is credited to the haplotypes in the order
// haplotype 0 carries the alleles: straight if haplotype 0 carries allele
// slot 0, swapped otherwise.  The sums are divided by the number of sites and
// rounded to three decimals.  Without sites the result is [1, 0].
func Estimate(hets []genotype.HetSite, haps [][]int) ([]float64, error) {
	if len(hets) == 0 {
		return []float64{1, 0}, nil
	}
	if len(haps) == 0 {
		return nil, fmt.Errorf("freq.Estimate: no haplotypes")
	}
	if len(haps[0]) != len(hets) {
		return nil, fmt.Errorf("freq.Estimate: %d sites, haplotype 0 has %d", len(hets), len(haps[0]))
	}
	var alpha [2]float64
	n := 0
	for k, h := range hets {
		r := h.Ratio()
		switch haps[0][k] {
		case 0:
			alpha[0] += r[0]
			alpha[1] += r[1]
		case 1:
			alpha[0] += r[1]
			alpha[1] += r[0]
		default:
			continue
		}
		n++
	}
	if n == 0 {
		return []float64{1, 0}, nil
	}
	return []float64{round3(alpha[0] / float64(n)), round3(alpha[1] / float64(n))}, nil
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }

// NoHet is the table of a locus without heterozygous sites: all of the
// abundance goes to the first haplotype.
func NoHet(strains int) []float64 {
	f := make([]float64, strains)
	if strains > 0 {
		f[0] = 1
	}
	return f
}

// FileName is the frequency table of locus.
func FileName(locus string) string { return locus + "_freq.txt" }

// WriteTable writes "# HLA\tFrequency" followed by one "str-<i> <f>" row
// per haplotype.
func WriteTable(w io.Writer, freqs []float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# HLA\tFrequency")
	for i, f := range freqs {
		fmt.Fprintf(bw, "str-%d %v\n", i+1, f)
	}
	return bw.Flush()
}

// WriteFile writes the table of locus into dir and returns its path.
func WriteFile(ctx context.Context, dir, locus string, freqs []float64) (path string, err error) {
	path = filepath.Join(dir, FileName(locus))
	out, err := file.Create(ctx, path)
	if err != nil {
		return "", errors.E(err, "freq.WriteFile", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	return path, WriteTable(out.Writer(ctx), freqs)
}
