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

	"github.com/furlan-lab/SpecHLA/interval"
)

// Kind tags a Segment.
type Kind uint8

const (
	// Normal segments carry no structural variant.
	Normal Kind = iota
	// Deletion segments cover a deletion region.
	Deletion
	// Insertion segments are zero-length and carry an insertion region.
	Insertion
	// Duplication segments are normal segments that contain the duplication
	// band.
	Duplication
)

var kindNames = [...]string{"normal", "deletion", "insertion", "duplication"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Segment is one element of a locus partition.
type Segment struct {
	interval.Entry
	Kind Kind
	// Region is the index of the region for Deletion and Insertion segments,
	// -1 otherwise.
	Region int
	// Front, Dup and Back split a Duplication segment around the band.
	Front, Dup, Back interval.Entry
}

func (s Segment) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Entry)
}

// Partition walks focus and returns its ordered segments: a Normal segment for
// every gap between regions and one Deletion or Insertion segment per region,
// clipped to focus.  Regions must be the output of Resolve.  A Normal segment
// that contains the whole of dupBand becomes a Duplication segment; pass a
// zero-length dupBand for loci without one.
//
// The non-empty segments are pairwise disjoint and their union is focus.
func Partition(focus interval.Entry, regions []Region, dupBand interval.Entry) []Segment {
	contig := focus.ChrName
	entry := func(start, end int) interval.Entry {
		return interval.Entry{ChrName: contig, Start0: start, End: end}
	}
	var segs []Segment
	emitNormal := func(start, end int) {
		seg := Segment{Entry: entry(start, end), Kind: Normal, Region: -1}
		if dupBand.Len() > 0 && start <= dupBand.Start0 && dupBand.End <= end {
			seg.Kind = Duplication
			seg.Front = entry(start, dupBand.Start0)
			seg.Dup = entry(dupBand.Start0, dupBand.End)
			seg.Back = entry(dupBand.End, end)
		}
		segs = append(segs, seg)
	}

	cur := focus.Start0
	for i, r := range regions {
		if r.Insertion() {
			if r.Start < cur || r.Start > focus.End {
				continue
			}
			if r.Start > cur {
				emitNormal(cur, r.Start)
			}
			segs = append(segs, Segment{Entry: entry(r.Start, r.Start), Kind: Insertion, Region: i})
			cur = r.Start
			continue
		}
		start, end := r.Start, r.End
		if start < cur {
			start = cur
		}
		if end > focus.End {
			end = focus.End
		}
		if start >= end {
			continue
		}
		if start > cur {
			emitNormal(cur, start)
		}
		segs = append(segs, Segment{Entry: entry(start, end), Kind: Deletion, Region: i})
		cur = end
	}
	if cur < focus.End {
		emitNormal(cur, focus.End)
	}
	return segs
}

// NormalEntries returns the Normal and Duplication segments that are at
// least minLen long.
func NormalEntries(segs []Segment, minLen int) []interval.Entry {
	var entries []interval.Entry
	for _, s := range segs {
		if (s.Kind == Normal || s.Kind == Duplication) && s.Len() >= minLen {
			entries = append(entries, s.Entry)
		}
	}
	return entries
}
