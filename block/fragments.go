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

package block

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/furlan-lab/SpecHLA/readstore"
)

// FragmentQual is the base quality of an indel linkage fragment, and the
// full-weight quality of an allele-imbalance fragment.
const FragmentQual = 60

// Format is the row layout of a fragment file.
type Format int

const (
	// Standard rows are "n name idx allele ... quals mapq".
	Standard Format = iota
	// Barcoded rows carry three extra columns after the read name.  The
	// phaser wants them with Hi-C and linked reads.
	Barcoded
)

// SortKey is the 1-based column of the first site index.
func (f Format) SortKey() int {
	if f == Barcoded {
		return 6
	}
	return 3
}

func (f Format) prefix(name string) string {
	if f == Barcoded {
		return "2 " + name + " 1 -1 -1"
	}
	return "2 " + name
}

// SiteSupports computes, for each of hets, the names of the reads carrying
// each allele.
func SiteSupports(ctx context.Context, store readstore.Store, hets []genotype.HetSite, minMapQ int) ([][2][]string, error) {
	out := make([][2][]string, len(hets))
	for k, h := range hets {
		names, err := genotype.Support(ctx, store, h.Site, minMapQ)
		if err != nil {
			return nil, err
		}
		out[k] = names
	}
	return out, nil
}

func intersect(a, b []string) []string {
	in := make(map[string]bool, len(a))
	for _, n := range a {
		in[n] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, n := range b {
		if in[n] && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// WriteIndelFragments writes a two-site fragment for every read that links
// allele i at one heterozygous site to allele j at the next one, when either
// site is multi-base.  The read-based extractor tends to miss these.  Sites
// are numbered by HetSite.Index.
func WriteIndelFragments(w io.Writer, f Format, hets []genotype.HetSite, supports [][2][]string) error {
	if len(supports) != len(hets) {
		return fmt.Errorf("block.WriteIndelFragments: %d sites, %d supports", len(hets), len(supports))
	}
	bw := bufio.NewWriter(w)
	for k := 0; k+1 < len(hets); k++ {
		left, right := hets[k], hets[k+1]
		if left.SingleBase() && right.SingleBase() {
			continue
		}
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				for _, name := range intersect(supports[k][i], supports[k+1][j]) {
					fmt.Fprintf(bw, "%s %d %d %d %d II %d\n", f.prefix(name), left.Index, i, right.Index, j, FragmentQual)
				}
			}
		}
	}
	return bw.Flush()
}

// WriteImbalanceFragments writes, for each pair of consecutive heterozygous
// sites, two pseudo-fragments weighing the hypothesis that their major
// alleles lie on the same haplotype against the hypothesis that they lie on
// opposite ones.  The qualities are scaled by weight; nothing is written
// when FragmentQual*weight < 1.
func WriteImbalanceFragments(w io.Writer, f Format, hets []genotype.HetSite, weight float64) error {
	baseQ := FragmentQual * weight
	bw := bufio.NewWriter(w)
	if baseQ < 1 {
		return bw.Flush()
	}
	for i := 0; i+1 < len(hets); i++ {
		j := i + 1
		fi, fj := hets[i].Ratio(), hets[j].Ratio()
		same := math.Max(fi[0]*fj[0], fi[1]*fj[1])
		reverse := math.Max(fi[0]*fj[1], fi[1]*fj[0])
		name := fmt.Sprintf("linkage:%d:%d", i, j)
		fmt.Fprintf(bw, "%s %d 0 %d 0 ?? %d\n", f.prefix(name+":1"), hets[i].Index, hets[j].Index, int(baseQ*same))
		fmt.Fprintf(bw, "%s %d 0 %d 1 ?? %d\n", f.prefix(name+":2"), hets[i].Index, hets[j].Index, int(baseQ*reverse))
	}
	return bw.Flush()
}
