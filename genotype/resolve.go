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

package genotype

import (
	"context"
	"fmt"
	"strings"

	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/grailbio/base/log"
)

// Opts configures Resolve.
type Opts struct {
	// Contig is the locus contig; records elsewhere are dropped.
	Contig string
	// MinQual is the minimum QUAL.
	MinQual float64
	// MinDepth is the minimum sum of allele depths.
	MinDepth int
	// MaxIndelLen bounds the length of the ref and alt alleles.
	MaxIndelLen int
	// Bias is the allele-fraction margin: beta <= Bias or beta >= 1-Bias
	// collapses a site to homozygous.
	Bias float64
	// MinMapQ: only reads with mapping quality > MinMapQ are classified.
	MinMapQ int
	// Excluded holds bands inside which records are dropped.
	Excluded interval.BEDUnion
	// SVRegions holds deletion regions; sites inside them are resolved by
	// majority vote instead of the Bias margin.
	SVRegions interval.BEDUnion
}

// DefaultOpts holds the thresholds used by the pipeline.
var DefaultOpts = Opts{
	MinQual:     0.01,
	MinDepth:    5,
	MaxIndelLen: 150,
	Bias:        0.05,
	MinMapQ:     1,
}

// Skip reasons counted in Stats.Skipped.
const (
	SkipDepth    = "depth"
	SkipQuality  = "quality"
	SkipContig   = "contig"
	SkipExcluded = "excluded"
	SkipGenotype = "genotype"
	SkipIndelLen = "indel-length"
	SkipAlts     = "alts"
)

// HetSite is a heterozygous site retained after resolution.
type HetSite struct {
	Site
	// Index is the site's entry in Result.Index.
	Index int
	// AlleleIdx are the VCF allele indices of Site.Alleles.
	AlleleIdx [2]int
	// Beta is the fraction of classified reads carrying Alleles[1].
	Beta float64
	// Record is the resolved record, shared with Result.Records.
	Record *vcf.Record
}

// Ratio returns the depth-ratio pair (1-beta, beta).
func (h HetSite) Ratio() [2]float64 { return [2]float64{1 - h.Beta, h.Beta} }

// Stats summarizes a Resolve call.
type Stats struct {
	Input        int
	Skipped      map[string]int
	ZeroEvidence int
	Homozygous   int
	Het          int
}

// Result is the output of Resolve.
type Result struct {
	// Records are the retained records, in input order, each with a binary
	// phased genotype.
	Records []*vcf.Record
	// Hets are the heterozygous sites, in input order.
	Hets []HetSite
	// Index maps the 1-based position of every record that passed the
	// filters to its 1-based ordinal.
	Index map[int]int
	Stats Stats
}

// Validate checks the thresholds.
func (o Opts) Validate() error {
	if o.Contig == "" {
		return fmt.Errorf("genotype.Opts: empty contig")
	}
	if o.Bias < 0 || o.Bias >= 0.5 {
		return fmt.Errorf("genotype.Opts: bias %v outside [0, 0.5)", o.Bias)
	}
	if o.MaxIndelLen < 1 {
		return fmt.Errorf("genotype.Opts: indel length ceiling %d < 1", o.MaxIndelLen)
	}
	return nil
}

// Resolve filters recs and collapses their raw genotypes to binary phased
// calls, rescanning store to compute allele fractions where the call is
// ambiguous.  The input records are not modified.
func Resolve(ctx context.Context, recs []*vcf.Record, store readstore.Store, opts Opts) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	res := &Result{
		Index: make(map[int]int),
		Stats: Stats{Input: len(recs), Skipped: make(map[string]int)},
	}
	skip := func(rec *vcf.Record, reason string) {
		res.Stats.Skipped[reason]++
		log.Debug.Printf("genotype.Resolve: skip %s:%d (%s)", rec.Chrom, rec.Pos, reason)
	}
	snpIndex := 0
	for _, in := range recs {
		g, reason := filter(in, opts)
		if reason != "" {
			skip(in, reason)
			continue
		}
		snpIndex++
		res.Index[in.Pos] = snpIndex
		rec := in.Clone()

		// Only a homozygous-alt call is trusted as is.  A homozygous-ref call
		// is rescanned against the first alternate allele.
		if g.Kind == HomRef && len(rec.Alts) > 0 {
			g = Genotype{Kind: Het, Lo: 0, Hi: 1}
		}
		if g.Homozygous() {
			rec.SetGenotype(g.Alleles(), true)
			res.Records = append(res.Records, rec)
			res.Stats.Homozygous++
			continue
		}

		site := Site{Contig: rec.Chrom, Pos: rec.Pos, Ref: rec.Ref}
		for k, idx := range [2]int{g.Lo, g.Hi} {
			allele, err := rec.Allele(idx)
			if err != nil {
				return nil, err
			}
			site.Alleles[k] = strings.ToUpper(allele)
		}
		names, err := Support(ctx, store, site, opts.MinMapQ)
		if err != nil {
			return nil, fmt.Errorf("genotype.Resolve: %s:%d: %v", rec.Chrom, rec.Pos, err)
		}
		n0, n1 := len(names[0]), len(names[1])
		if n0+n1 == 0 {
			res.Stats.ZeroEvidence++
			log.Error.Printf("genotype.Resolve: warning: no classifiable reads at %s:%d %v, skipping",
				rec.Chrom, rec.Pos, site.Alleles)
			continue
		}
		beta := float64(n1) / float64(n0+n1)

		var call []int
		switch {
		case opts.SVRegions.ContainsByName(rec.Chrom, rec.Pos-1):
			if beta <= 1-beta {
				call = []int{g.Lo, g.Lo}
			} else {
				call = []int{g.Hi, g.Hi}
			}
		case beta <= opts.Bias:
			call = []int{g.Lo, g.Lo}
		case beta >= 1-opts.Bias:
			call = []int{g.Hi, g.Hi}
		}
		if call != nil {
			rec.SetGenotype(call, true)
			res.Records = append(res.Records, rec)
			res.Stats.Homozygous++
			continue
		}
		rec.SetGenotype([]int{g.Lo, g.Hi}, true)
		res.Records = append(res.Records, rec)
		res.Hets = append(res.Hets, HetSite{
			Site:      site,
			Index:     snpIndex,
			AlleleIdx: [2]int{g.Lo, g.Hi},
			Beta:      beta,
			Record:    rec,
		})
		res.Stats.Het++
	}
	log.Printf("genotype.Resolve: %s: %d records in, %d retained, %d heterozygous, %d without evidence",
		opts.Contig, res.Stats.Input, len(res.Records), res.Stats.Het, res.Stats.ZeroEvidence)
	return res, nil
}

// filter applies the input-quality checks, returning the normalized call or
// the reason the record is dropped.
func filter(rec *vcf.Record, opts Opts) (Genotype, string) {
	if dp, ok := rec.Depth(); !ok || dp < 1 {
		return Genotype{}, SkipDepth
	}
	if !rec.HasQual {
		log.Error.Printf("genotype.Resolve: warning: %s:%d has no quality value", rec.Chrom, rec.Pos)
		return Genotype{}, SkipQuality
	}
	if rec.Qual < opts.MinQual {
		return Genotype{}, SkipQuality
	}
	if rec.Chrom != opts.Contig {
		return Genotype{}, SkipContig
	}
	if opts.Excluded.ContainsByName(rec.Chrom, rec.Pos-1) {
		return Genotype{}, SkipExcluded
	}
	ad, err := rec.AlleleDepths()
	if err != nil {
		return Genotype{}, SkipDepth
	}
	total := 0
	for _, d := range ad {
		total += d
	}
	if total < opts.MinDepth {
		return Genotype{}, SkipDepth
	}
	raw, _, err := rec.Genotype()
	if err != nil {
		return Genotype{}, SkipGenotype
	}
	g, err := Normalize(raw)
	if err != nil {
		return Genotype{}, SkipGenotype
	}
	if len(rec.Ref) > opts.MaxIndelLen {
		return Genotype{}, SkipIndelLen
	}
	if len(rec.Alts) > 2 {
		return Genotype{}, SkipAlts
	}
	for _, alt := range rec.Alts {
		if len(alt) > opts.MaxIndelLen {
			return Genotype{}, SkipIndelLen
		}
	}
	if g.Hi > len(rec.Alts) {
		return Genotype{}, SkipGenotype
	}
	return g, ""
}
