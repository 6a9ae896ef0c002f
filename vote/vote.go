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

// Package vote assigns reads to haplotypes by the alleles they carry at
// phased heterozygous sites, and reuses those assignments to decide which
// haplotype carries a structural variant or a duplication type.
//
// Every argmax in this package breaks ties toward the lowest haplotype
// index, except Catalogue.Assign, where a later candidate wins a tie.
package vote

import (
	"context"
	"fmt"
	"sort"

	"github.com/biogo/store/llrb"
	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/grailbio/base/log"
)

// Unassigned is returned for reads that match no haplotype.
const Unassigned = -1

// Signature holds the phased heterozygous sites of a locus and, for each
// haplotype h and site k, the slot Haps[h][k] in {0,1} of the allele in
// Sites[k].Alleles that h carries.
type Signature struct {
	Sites []genotype.Site
	Haps  [][]int
}

// Strains is the number of haplotypes.
func (s Signature) Strains() int { return len(s.Haps) }

// Allele returns the allele haplotype h carries at site k.
func (s Signature) Allele(h, k int) string {
	return s.Sites[k].Alleles[s.Haps[h][k]]
}

func (s Signature) validate() error {
	if len(s.Haps) == 0 {
		return fmt.Errorf("vote: signature has no haplotypes")
	}
	for h, hap := range s.Haps {
		if len(hap) != len(s.Sites) {
			return fmt.Errorf("vote: haplotype %d has %d sites, want %d", h, len(hap), len(s.Sites))
		}
		for k, slot := range hap {
			if slot != 0 && slot != 1 {
				return fmt.Errorf("vote: haplotype %d site %d: bad allele slot %d", h, k, slot)
			}
		}
	}
	return nil
}

// Support maps each haplotype to the set of read names assigned to it.
type Support struct {
	sets []map[string]struct{}
}

// NewSupport returns an empty Support for strains haplotypes.
func NewSupport(strains int) *Support {
	s := &Support{sets: make([]map[string]struct{}, strains)}
	for i := range s.sets {
		s.sets[i] = make(map[string]struct{})
	}
	return s
}

// Strains is the number of haplotypes.
func (s *Support) Strains() int { return len(s.sets) }

// Add assigns name to haplotype hap.
func (s *Support) Add(hap int, name string) { s.sets[hap][name] = struct{}{} }

// Has reports whether name is assigned to hap.
func (s *Support) Has(hap int, name string) bool {
	_, ok := s.sets[hap][name]
	return ok
}

// Len is the number of names assigned to hap.
func (s *Support) Len(hap int) int { return len(s.sets[hap]) }

// Names returns the names assigned to hap, sorted.
func (s *Support) Names(hap int) []string {
	names := make([]string, 0, len(s.sets[hap]))
	for n := range s.sets[hap] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// siteKey orders single-base sites by 0-based position.
type siteKey struct {
	pos int
	k   int // index into Signature.Sites
}

func (s siteKey) Compare(c llrb.Comparable) int {
	o := c.(siteKey)
	if s.pos != o.pos {
		return s.pos - o.pos
	}
	return s.k - o.k
}

// Voter classifies the reads of a store against a Signature.
type Voter struct {
	store readstore.Store
	sig   Signature
	sites llrb.Tree
}

// NewVoter indexes the single-base sites of sig.  Multi-base sites are not
// used for voting.
func NewVoter(store readstore.Store, sig Signature) (*Voter, error) {
	if err := sig.validate(); err != nil {
		return nil, err
	}
	v := &Voter{store: store, sig: sig}
	for k, site := range sig.Sites {
		if site.SingleBase() {
			v.sites.Insert(siteKey{pos: site.Pos - 1, k: k})
		}
	}
	return v, nil
}

// Strains is the number of haplotypes.
func (v *Voter) Strains() int { return v.sig.Strains() }

// Classify returns the haplotype matching the most alleles of r at the
// single-base sites r aligns to, or Unassigned if it matches none.
func (v *Voter) Classify(r *readstore.Read) int {
	counts := make([]int, v.sig.Strains())
	if r.End > r.Pos {
		v.sites.DoRange(func(c llrb.Comparable) bool {
			key := c.(siteKey)
			base, ok := r.BaseAt(key.pos)
			if !ok {
				return false
			}
			for h := range counts {
				if v.sig.Allele(h, key.k)[0] == base {
					counts[h]++
				}
			}
			return false
		}, siteKey{pos: r.Pos, k: -1}, siteKey{pos: r.End, k: -1})
	}
	return argmax(counts)
}

// Assign classifies every read overlapping region and returns the
// assignments.
func (v *Voter) Assign(ctx context.Context, region interval.Entry) (*Support, error) {
	s := NewSupport(v.Strains())
	if err := v.assign(ctx, region, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Support builds the read-support set over the given regions, typically the
// normal segments of a locus.
func (v *Voter) Support(ctx context.Context, regions []interval.Entry) (*Support, error) {
	s := NewSupport(v.Strains())
	for _, region := range regions {
		if err := v.assign(ctx, region, s); err != nil {
			return nil, err
		}
	}
	for h := 0; h < s.Strains(); h++ {
		log.Debug.Printf("vote.Support: haplotype %d: %d reads", h, s.Len(h))
	}
	return s, nil
}

func (v *Voter) assign(ctx context.Context, region interval.Entry, s *Support) error {
	reads, err := v.store.Fetch(ctx, region.ChrName, region.Start0, region.End)
	if err != nil {
		return err
	}
	for _, r := range reads {
		if h := v.Classify(r); h != Unassigned {
			s.Add(h, r.Name)
		}
	}
	return nil
}

// argmax returns the index of the largest positive count, the lowest index
// on ties, or Unassigned if every count is zero.
func argmax(counts []int) int {
	best := Unassigned
	for h, c := range counts {
		if c > 0 && (best == Unassigned || c > counts[best]) {
			best = h
		}
	}
	return best
}
