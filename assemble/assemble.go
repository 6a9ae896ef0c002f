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

// Package assemble concatenates per-segment consensus sequences into one
// full-length sequence per haplotype.
//
// The consensus of every segment is computed up front, outside this package,
// and handed in as a Sequences map.  Structural segments are then included
// or dropped per haplotype according to their copy number and the haplotype
// the read-support voter assigned them to.
package assemble

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/furlan-lab/SpecHLA/encoding/fasta"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/sv"
	"github.com/grailbio/base/log"
)

// Sequences maps a region, keyed by interval.Entry.String(), to its
// consensus sequence on each haplotype.
type Sequences map[string][]string

// Add records the consensus of entry on every haplotype.
func (s Sequences) Add(entry interval.Entry, seqs []string) { s[entry.String()] = seqs }

// InsertionPhase holds the two phased sequences of a single-copy insertion,
// and the number of read observations linking them to the haplotypes of the
// locus: Straight counts phase k reads supporting haplotype k, Crossed
// counts phase k reads supporting haplotype 1-k.
type InsertionPhase struct {
	Seqs              [2]string
	Straight, Crossed int
}

// For returns the insertion sequence of haplotype hap.  The phases are
// swapped only when Crossed exceeds Straight.
func (p InsertionPhase) For(hap int) string {
	if p.Crossed > p.Straight {
		return p.Seqs[1-hap]
	}
	return p.Seqs[hap]
}

// Input is everything Assemble needs for one locus.
type Input struct {
	Locus    string
	Strains  int
	Segments []sv.Segment
	// Regions are the annotated structural regions that Segments index.
	Regions []sv.Region
	Seqs    Sequences
	// Presence[r] is the haplotype voted to carry region r.
	Presence map[int]int
	// Insertions[r] is the phasing of single-copy insertion r.
	Insertions map[int]InsertionPhase
	// Dup[h] is the duplication-band sequence assigned to haplotype h.
	Dup []string
}

// MissingError reports a segment whose consensus sequence was not supplied.
type MissingError struct {
	Segment sv.Segment
	Key     string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("assemble: no consensus for %s segment %s", e.Segment.Kind, e.Key)
}

// Needed lists the regions Assemble will look up in Input.Seqs, in order and
// without repeats.
func Needed(locus string, segs []sv.Segment, regions []sv.Region) []interval.Entry {
	var out []interval.Entry
	seen := make(map[string]bool)
	add := func(e interval.Entry) {
		if k := e.String(); !seen[k] {
			seen[k] = true
			out = append(out, e)
		}
	}
	for _, seg := range segs {
		switch seg.Kind {
		case sv.Normal, sv.Deletion:
			add(seg.Entry)
		case sv.Insertion:
			if r := regions[seg.Region]; r.CopyNumber == 2 {
				add(r.PlaceholderEntry(locus))
			}
		case sv.Duplication:
			add(seg.Front)
			add(seg.Back)
		}
	}
	return out
}

func (in Input) lookup(seg sv.Segment, e interval.Entry, hap int) (string, error) {
	seqs, ok := in.Seqs[e.String()]
	if !ok || hap >= len(seqs) {
		return "", &MissingError{Segment: seg, Key: e.String()}
	}
	return seqs[hap], nil
}

// Haplotype assembles the sequence of haplotype hap.
func (in Input) Haplotype(hap int) (string, error) {
	var buf []byte
	appendSeq := func(seg sv.Segment, e interval.Entry) error {
		s, err := in.lookup(seg, e, hap)
		buf = append(buf, s...)
		return err
	}
	for _, seg := range in.Segments {
		switch seg.Kind {
		case sv.Normal:
			if err := appendSeq(seg, seg.Entry); err != nil {
				return "", err
			}
		case sv.Deletion:
			r := in.Regions[seg.Region]
			if p, ok := in.Presence[seg.Region]; ok && p == hap && r.CopyNumber == 1 {
				if err := appendSeq(seg, seg.Entry); err != nil {
					return "", err
				}
			}
		case sv.Insertion:
			r := in.Regions[seg.Region]
			switch r.CopyNumber {
			case 2:
				s, err := in.lookup(seg, r.PlaceholderEntry(in.Locus), 0)
				if err != nil {
					return "", err
				}
				buf = append(buf, s...)
			case 1:
				if p, ok := in.Presence[seg.Region]; !ok || p != hap {
					continue
				}
				phase, ok := in.Insertions[seg.Region]
				if !ok {
					return "", &MissingError{Segment: seg, Key: r.PlaceholderContig(in.Locus)}
				}
				buf = append(buf, phase.For(hap)...)
			}
		case sv.Duplication:
			if hap >= len(in.Dup) || in.Dup[hap] == "" {
				return "", &MissingError{Segment: seg, Key: seg.Dup.String()}
			}
			if err := appendSeq(seg, seg.Front); err != nil {
				return "", err
			}
			buf = append(buf, in.Dup[hap]...)
			if err := appendSeq(seg, seg.Back); err != nil {
				return "", err
			}
		}
	}
	return string(buf), nil
}

// Assemble returns the sequence of every haplotype.
func Assemble(in Input) ([]string, error) {
	out := make([]string, in.Strains)
	for h := range out {
		seq, err := in.Haplotype(h)
		if err != nil {
			return nil, err
		}
		log.Printf("assemble: %s haplotype %d: %d bp over %d segments", in.Locus, h, len(seq), len(in.Segments))
		out[h] = seq
	}
	return out, nil
}

// FileName is the output file of haplotype hap of locus.
func FileName(locus string, hap int) string {
	return fmt.Sprintf("hla.allele.%d.%s.fasta", hap+1, locus)
}

// WriteFiles writes each haplotype sequence to its own FASTA file in dir,
// under the record name "<locus>_<hap>".  It returns the paths written.
func WriteFiles(ctx context.Context, dir, locus string, seqs []string) ([]string, error) {
	paths := make([]string, len(seqs))
	for h, seq := range seqs {
		name := fmt.Sprintf("%s_%d", locus, h)
		paths[h] = filepath.Join(dir, FileName(locus, h))
		fa := fasta.FromMap([]string{name}, map[string]string{name: seq})
		if err := fasta.WriteFile(ctx, paths[h], fa); err != nil {
			return nil, err
		}
	}
	return paths, nil
}
