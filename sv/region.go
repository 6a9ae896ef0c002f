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

// Package sv turns long-indel breakpoints into an ordered list of
// non-overlapping structural-variant regions, partitions a locus around them,
// and annotates each region with a copy number from read depth.
//
// All coordinates are 0-based and half-open unless noted.  Breakpoint files
// are 1-based: a deletion reported as (s, e) covers the 1-based positions
// s..e-1, and an insertion reported at s is placed directly before the
// 1-based position s.
package sv

import (
	"fmt"

	"github.com/furlan-lab/SpecHLA/interval"
)

// Region is a structural-variant region.  Start == End denotes an insertion
// of Seq, Start < End a deletion.
type Region struct {
	Start, End int
	Seq        string
	// CopyNumber is the number of haplotypes carrying the variant, set by
	// AnnotateCopyNumber.  It is -1 until then.
	CopyNumber int
}

// NewDeletion returns a deletion region over [start, end).
func NewDeletion(start, end int) Region {
	return Region{Start: start, End: end, CopyNumber: -1}
}

// NewInsertion returns an insertion of seq before the 0-based position pos.
func NewInsertion(pos int, seq string) Region {
	return Region{Start: pos, End: pos, Seq: seq, CopyNumber: -1}
}

// Insertion reports whether r is an insertion.
func (r Region) Insertion() bool { return r.Start == r.End }

// Len is the number of reference bases r covers.
func (r Region) Len() int { return r.End - r.Start }

// Anchor is the 1-based breakpoint coordinate of r as reported in the
// breakpoint file.
func (r Region) Anchor() int { return r.Start + 1 }

// PlaceholderContig names the contig that carries the inserted sequence of an
// insertion at locus.
func (r Region) PlaceholderContig(locus string) string {
	return fmt.Sprintf("%s_%d", locus, r.Anchor())
}

// PlaceholderEntry spans the whole placeholder contig of an insertion.
func (r Region) PlaceholderEntry(locus string) interval.Entry {
	return interval.Entry{ChrName: r.PlaceholderContig(locus), Start0: 0, End: len(r.Seq)}
}

// Entry returns r as an interval on contig.
func (r Region) Entry(contig string) interval.Entry {
	return interval.Entry{ChrName: contig, Start0: r.Start, End: r.End}
}

func (r Region) String() string {
	if r.Insertion() {
		return fmt.Sprintf("ins@%d(%dbp,cn=%d)", r.Start, len(r.Seq), r.CopyNumber)
	}
	return fmt.Sprintf("del[%d,%d)(cn=%d)", r.Start, r.End, r.CopyNumber)
}

// less orders regions by (Start, End, Seq).  Insertions sort before
// deletions starting at the same position.
func less(a, b Region) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.End != b.End {
		return a.End < b.End
	}
	return a.Seq < b.Seq
}

// Regions returns regions as a BEDUnion over contig, insertions omitted.
func Regions(contig string, regions []Region) interval.BEDUnion {
	var entries []interval.Entry
	for _, r := range regions {
		if !r.Insertion() {
			entries = append(entries, r.Entry(contig))
		}
	}
	return interval.NewBEDUnionFromEntries(entries)
}
