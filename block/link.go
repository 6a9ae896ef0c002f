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

// Package block turns the output of the external block phaser into a
// locus-wide phasing.  The phaser phases heterozygous sites relative to each
// other within phase sets; the block scorer then decides, per block, whether
// its orientation must be flipped to agree with its neighbours.  Link applies
// both to yield the allele each haplotype carries at every site.
//
// The package also writes the linkage evidence the phaser consumes
// (indel-spanning read fragments and allele-imbalance pseudo-fragments) and
// the unphased-site report the block scorer consumes.
package block

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Local is the phaser's call at one heterozygous site.
type Local struct {
	// Slots[h] is the index into the site's Alleles carried by haplotype h.
	Slots [2]int
	// Set is the phase set, or -1.
	Set    int
	Phased bool
}

// defaultLocal is used for sites the phaser did not report.
var defaultLocal = Local{Slots: [2]int{0, 1}, Set: -1}

// LocalPhase looks up each of hets in the phaser's records by position and
// returns its local phase.  Sites the phaser did not report are unphased with
// the default orientation.
func LocalPhase(recs []*vcf.Record, hets []genotype.HetSite) ([]Local, error) {
	byPos := make(map[int]*vcf.Record, len(recs))
	for _, r := range recs {
		byPos[r.Pos] = r
	}
	out := make([]Local, len(hets))
	for k, h := range hets {
		out[k] = defaultLocal
		rec, ok := byPos[h.Pos]
		if !ok || rec.Chrom != h.Contig {
			continue
		}
		alleles, phased, err := rec.Genotype()
		if err != nil {
			return nil, err
		}
		if len(alleles) != 2 {
			return nil, fmt.Errorf("block.LocalPhase: %s:%d: want a diploid call, got %v", rec.Chrom, rec.Pos, alleles)
		}
		var l Local
		for i, a := range alleles {
			switch a {
			case h.AlleleIdx[0]:
				l.Slots[i] = 0
			case h.AlleleIdx[1]:
				l.Slots[i] = 1
			default:
				return nil, fmt.Errorf("block.LocalPhase: %s:%d: allele %d is not one of %v", rec.Chrom, rec.Pos, a, h.AlleleIdx)
			}
		}
		l.Set = rec.PhaseSet()
		l.Phased = phased
		out[k] = l
	}
	return out, nil
}

// Flip is one row of the block scorer's output: the block spanning the
// 1-based inclusive [Start, End] on Locus, and whether its orientation is
// reversed.
type Flip struct {
	Locus      string
	Start, End int
	Flip       bool
}

func (f Flip) contains(locus string, pos int) bool {
	return f.Locus == locus && f.Start <= pos && pos <= f.End
}

// ReadFlips parses whitespace-separated "locus start end flip" rows; flip
// is 1 for a reversed block.  Blank lines and lines starting with '#' are
// skipped.
func ReadFlips(r io.Reader) ([]Flip, error) {
	var flips []Flip
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, fmt.Errorf("block.ReadFlips: line %d: got %d fields, want 4", line, len(fields))
		}
		var (
			f   = Flip{Locus: fields[0]}
			v   [3]int
			err error
		)
		for i := range v {
			if v[i], err = strconv.Atoi(fields[i+1]); err != nil {
				return nil, fmt.Errorf("block.ReadFlips: line %d: %v", line, err)
			}
		}
		f.Start, f.End, f.Flip = v[0], v[1], v[2] == 1
		if f.End < f.Start {
			return nil, fmt.Errorf("block.ReadFlips: %s: block end %d before start %d", f.Locus, f.End, f.Start)
		}
		flips = append(flips, f)
	}
	return flips, sc.Err()
}

// ReadFlipsFile reads the flips at path.
func ReadFlipsFile(ctx context.Context, path string) (flips []Flip, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "block.ReadFlipsFile", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if flips, err = ReadFlips(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, "block.ReadFlipsFile", path)
	}
	return flips, nil
}

// Link returns haps[h][k], the allele slot haplotype h carries at hets[k].
// A phased site inside a flipped block has its two slots swapped; the first
// block containing a site decides.  Unphased sites keep their local slots.
func Link(hets []genotype.HetSite, local []Local, flips []Flip) ([][]int, error) {
	if len(local) != len(hets) {
		return nil, fmt.Errorf("block.Link: %d sites, %d local phases", len(hets), len(local))
	}
	haps := [][]int{make([]int, len(hets)), make([]int, len(hets))}
	nflipped := 0
	for k, h := range hets {
		slots := local[k].Slots
		if local[k].Phased {
			for _, f := range flips {
				if f.contains(h.Contig, h.Pos) {
					if f.Flip {
						slots[0], slots[1] = slots[1], slots[0]
						nflipped++
					}
					break
				}
			}
		}
		haps[0][k], haps[1][k] = slots[0], slots[1]
	}
	log.Debug.Printf("block.Link: %d of %d sites flipped", nflipped, len(hets))
	return haps, nil
}

// Rephase returns copies of the resolver's records with each heterozygous
// record's genotype replaced by the VCF allele indices the two haplotypes
// carry.  Other records are copied unchanged.
func Rephase(recs []*vcf.Record, hets []genotype.HetSite, haps [][]int) []*vcf.Record {
	het := make(map[*vcf.Record]int, len(hets))
	for k, h := range hets {
		het[h.Record] = k
	}
	out := make([]*vcf.Record, len(recs))
	for i, r := range recs {
		c := r.Clone()
		if k, ok := het[r]; ok {
			alleles := make([]int, len(haps))
			for h := range haps {
				alleles[h] = hets[k].AlleleIdx[haps[h][k]]
			}
			c.SetGenotype(alleles, true)
		}
		out[i] = c
	}
	return out
}
