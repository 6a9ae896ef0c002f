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

package sv

import (
	"fmt"

	"github.com/furlan-lab/SpecHLA/encoding/fasta"
	"github.com/furlan-lab/SpecHLA/pileup"
	"github.com/grailbio/base/log"
	"github.com/willf/bitset"
)

const (
	// LowDepth is the depth below which a deleted position counts as absent.
	LowDepth = 3
	// AbsentFraction is the fraction of low-depth positions above which a
	// deletion is homozygous (copy number 0).
	AbsentFraction = 0.2
	// DuplicatedRatio is the placeholder/normal depth ratio above which an
	// insertion is carried by both haplotypes.
	DuplicatedRatio = 0.5
)

// AnnotateCopyNumber returns a copy of regions with CopyNumber set from the
// depth track.  A deletion is 0 if more than AbsentFraction of its positions
// have depth < LowDepth, else 1.  An insertion is 2 if the mean depth of its
// placeholder contig exceeds DuplicatedRatio times the mean depth of the locus
// positions outside every deletion, else 1.  Positions missing from the track
// have depth 0.
func AnnotateCopyNumber(locus string, regions []Region, track *pileup.Track) []Region {
	n := track.Len(locus)
	deleted := bitset.New(uint(n))
	for _, r := range regions {
		for p := r.Start; p < r.End && p < n; p++ {
			if p >= 0 {
				deleted.Set(uint(p))
			}
		}
	}
	var normalSum, normalN int
	for p := 0; p < n; p++ {
		if !deleted.Test(uint(p)) {
			normalSum += track.At(locus, p)
			normalN++
		}
	}
	normalMean := 0.0
	if normalN > 0 {
		normalMean = float64(normalSum) / float64(normalN)
	}

	out := make([]Region, len(regions))
	for i, r := range regions {
		if r.Insertion() {
			r.CopyNumber = 1
			contig := r.PlaceholderContig(locus)
			if normalMean > 0 && track.Mean(contig)/normalMean > DuplicatedRatio {
				r.CopyNumber = 2
			}
			log.Printf("sv.AnnotateCopyNumber: %s: insertion %s mean depth %.2f (normal %.2f), copy number %d",
				locus, contig, track.Mean(contig), normalMean, r.CopyNumber)
		} else {
			low := 0
			for p := r.Start; p < r.End; p++ {
				if track.At(locus, p) < LowDepth {
					low++
				}
			}
			frac := float64(low) / float64(r.Len())
			r.CopyNumber = 1
			if frac > AbsentFraction {
				r.CopyNumber = 0
			}
			log.Printf("sv.AnnotateCopyNumber: %s: deletion [%d,%d) low-depth fraction %.3f, copy number %d",
				locus, r.Start, r.End, frac, r.CopyNumber)
		}
		out[i] = r
	}
	return out
}

// PlaceholderContigs returns ref extended with one "<locus>_<anchor>" contig
// per insertion in regions, carrying the inserted sequence.  Reads are
// realigned against it to measure insertion depth and linkage.
func PlaceholderContigs(ref fasta.Fasta, locus string, regions []Region) (fasta.Fasta, error) {
	names := append([]string(nil), ref.SeqNames()...)
	seqs := make(map[string]string, len(names))
	for _, name := range names {
		n, err := ref.Len(name)
		if err != nil {
			return nil, err
		}
		if seqs[name], err = ref.Get(name, 0, n); err != nil {
			return nil, err
		}
	}
	for _, r := range regions {
		if !r.Insertion() {
			continue
		}
		name := r.PlaceholderContig(locus)
		if _, ok := seqs[name]; ok {
			return nil, fmt.Errorf("sv.PlaceholderContigs: duplicate contig %s", name)
		}
		names = append(names, name)
		seqs[name] = r.Seq
	}
	return fasta.FromMap(names, seqs), nil
}
