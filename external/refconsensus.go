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

package external

import (
	"context"
	"sort"

	"github.com/furlan-lab/SpecHLA/encoding/fasta"
	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/grailbio/base/log"
)

// RefConsensus implements Consensus in process: it applies the allele each
// record's genotype assigns to the haplotype onto the reference.  Records
// not fully inside a region, and records overlapping an earlier applied
// record, are ignored, as are missing genotypes.
type RefConsensus struct{}

var _ Consensus = RefConsensus{}

// Consensus implements Consensus.
func (RefConsensus) Consensus(ctx context.Context, req ConsensusRequest) ([]string, error) {
	ref, err := fasta.ReadFile(ctx, req.Ref)
	if err != nil {
		return nil, err
	}
	_, recs, err := vcf.ReadFile(ctx, req.VCF)
	if err != nil {
		return nil, err
	}
	return Apply(ref, recs, req.Regions, req.Hap)
}

// Apply returns the sequence of each region of ref on haplotype hap.
func Apply(ref fasta.Fasta, recs []*vcf.Record, regions []interval.Entry, hap int) ([]string, error) {
	byContig := make(map[string][]*vcf.Record)
	for _, r := range recs {
		byContig[r.Chrom] = append(byContig[r.Chrom], r)
	}
	for _, rs := range byContig {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Pos < rs[j].Pos })
	}
	out := make([]string, len(regions))
	for i, region := range regions {
		if region.Len() <= 0 {
			continue
		}
		seq, err := ref.Get(region.ChrName, region.Start0, region.End)
		if err != nil {
			return nil, err
		}
		var buf []byte
		cur := region.Start0
		applied := 0
		for _, r := range byContig[region.ChrName] {
			start := r.Pos - 1
			end := start + len(r.Ref)
			if start < cur || end > region.End {
				continue
			}
			alleles, _, err := r.Genotype()
			if err != nil || hap >= len(alleles) || alleles[hap] == 0 {
				continue
			}
			alt, err := r.Allele(alleles[hap])
			if err != nil {
				return nil, err
			}
			buf = append(buf, seq[cur-region.Start0:start-region.Start0]...)
			buf = append(buf, alt...)
			cur = end
			applied++
		}
		buf = append(buf, seq[cur-region.Start0:]...)
		log.Debug.Printf("external.Apply: %s haplotype %d: %d variants", region, hap, applied)
		out[i] = string(buf)
	}
	return out, nil
}
