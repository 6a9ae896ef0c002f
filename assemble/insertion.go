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

package assemble

import (
	"context"
	"math"

	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/furlan-lab/SpecHLA/vote"
	"github.com/grailbio/base/log"
)

type phasedBase struct {
	pos   int // 0-based
	bases [2]byte
}

// phasedSites extracts the single-base heterozygous calls on contig from the
// insertion phaser's records, as the base carried by each phase.
func phasedSites(recs []*vcf.Record, contig string) []phasedBase {
	var out []phasedBase
	for _, r := range recs {
		if r.Chrom != contig || len(r.Alts) == 0 {
			continue
		}
		alleles, _, err := r.Genotype()
		if err != nil || len(alleles) != 2 {
			continue
		}
		ref, alt := r.Ref, r.Alts[0]
		if len(ref) != 1 || len(alt) != 1 {
			continue
		}
		var ph phasedBase
		switch {
		case alleles[0] == 0 && alleles[1] == 1:
			ph.bases = [2]byte{ref[0], alt[0]}
		case alleles[0] == 1 && alleles[1] == 0:
			ph.bases = [2]byte{alt[0], ref[0]}
		default:
			continue
		}
		ph.pos = r.Pos - 1
		out = append(out, ph)
	}
	return out
}

// LinkInsertion counts how the reads on an insertion's placeholder contig
// tie the insertion's two phases to the haplotypes of the locus.  recs are
// the phased calls on the placeholder contigs; each read base matching a
// phase at a call counts one observation of that phase for the read's name.
// The returned phase carries no sequences.
func LinkInsertion(ctx context.Context, store readstore.Store, contig string, recs []*vcf.Record, support *vote.Support) (InsertionPhase, error) {
	var phase InsertionPhase
	sites := phasedSites(recs, contig)
	if len(sites) == 0 {
		return phase, nil
	}
	reads, err := store.Fetch(ctx, contig, 0, math.MaxInt32)
	if err != nil {
		return phase, err
	}
	var observed [2][]string
	for _, r := range reads {
		for _, s := range sites {
			b, ok := r.BaseAt(s.pos)
			if !ok {
				continue
			}
			switch b {
			case s.bases[0]:
				observed[0] = append(observed[0], r.Name)
			case s.bases[1]:
				observed[1] = append(observed[1], r.Name)
			}
		}
	}
	for k := 0; k < 2; k++ {
		for _, name := range observed[k] {
			if support.Has(k, name) {
				phase.Straight++
			}
			if support.Has(1-k, name) {
				phase.Crossed++
			}
		}
	}
	log.Printf("assemble.LinkInsertion: %s: %d sites, straight %d, crossed %d", contig, len(sites), phase.Straight, phase.Crossed)
	return phase, nil
}
