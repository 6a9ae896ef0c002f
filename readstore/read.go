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

package readstore

import (
	"bytes"
	"fmt"

	"github.com/grailbio/hts/sam"
)

// Absent marks a query base with no reference position (inserted or
// soft-clipped).
const Absent = -1

// Read is an aligned read with its positional index precomputed.
type Read struct {
	Name   string
	Contig string
	// Pos is the 0-based reference position of the first aligned base; End is
	// one past the last reference position the alignment covers.
	Pos, End int
	MapQ     int
	// Seq holds upper-case ASCII bases, hard clips excluded.
	Seq  []byte
	Qual []byte
	// RefPos[i] is the reference position of Seq[i], or Absent.
	RefPos []int
	// queryAt[p-Pos] is the index in Seq aligned to reference position p, or
	// Absent for deleted/skipped positions.
	queryAt []int
}

// FromSAM converts a mapped sam.Record.
func FromSAM(rec *sam.Record) (*Read, error) {
	if rec.Ref == nil {
		return nil, fmt.Errorf("readstore.FromSAM: read %s is unmapped", rec.Name)
	}
	return build(rec.Name, rec.Ref.Name(), rec.Pos, int(rec.MapQ), rec.Cigar, rec.Seq.Expand(), rec.Qual)
}

// NewRead builds a read from a textual CIGAR ("10M2I5M").  Qualities are set
// to 30.
func NewRead(name, contig string, pos, mapq int, cigar, seq string) (*Read, error) {
	c, err := sam.ParseCigar([]byte(cigar))
	if err != nil {
		return nil, fmt.Errorf("readstore.NewRead: %s: %v", name, err)
	}
	qual := bytes.Repeat([]byte{30}, len(seq))
	return build(name, contig, pos, mapq, c, []byte(seq), qual)
}

// build walks the CIGAR once, one operation at a time, recording the
// reference position of every query base and the query index of every
// reference position.
func build(name, contig string, pos, mapq int, cigar sam.Cigar, seq, qual []byte) (*Read, error) {
	r := &Read{
		Name:   name,
		Contig: contig,
		Pos:    pos,
		MapQ:   mapq,
		Seq:    bytes.ToUpper(seq),
		Qual:   qual,
		RefPos: make([]int, len(seq)),
	}
	posInRef := pos
	posInRead := 0
	for _, co := range cigar {
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			if posInRead+cLen > len(seq) {
				return nil, fmt.Errorf("readstore: read %s: CIGAR %v is longer than its sequence", name, cigar)
			}
			for i := 0; i < cLen; i++ {
				r.RefPos[posInRead+i] = posInRef + i
				r.queryAt = append(r.queryAt, posInRead+i)
			}
			posInRef += cLen
			posInRead += cLen
		case sam.CigarInsertion, sam.CigarSoftClipped:
			if posInRead+cLen > len(seq) {
				return nil, fmt.Errorf("readstore: read %s: CIGAR %v is longer than its sequence", name, cigar)
			}
			for i := 0; i < cLen; i++ {
				r.RefPos[posInRead+i] = Absent
			}
			posInRead += cLen
		case sam.CigarDeletion, sam.CigarSkipped:
			for i := 0; i < cLen; i++ {
				r.queryAt = append(r.queryAt, Absent)
			}
			posInRef += cLen
		case sam.CigarHardClipped, sam.CigarPadded:
		default:
			return nil, fmt.Errorf("readstore: read %s: unsupported CIGAR op %v", name, co.Type())
		}
	}
	if posInRead != len(seq) {
		return nil, fmt.Errorf("readstore: read %s: CIGAR %v consumes %d bases, sequence has %d",
			name, cigar, posInRead, len(seq))
	}
	r.End = posInRef
	return r, nil
}

// IndexAt returns the query index aligned to reference position refPos, or
// Absent.
func (r *Read) IndexAt(refPos int) int {
	off := refPos - r.Pos
	if off < 0 || off >= len(r.queryAt) {
		return Absent
	}
	return r.queryAt[off]
}

// BaseAt returns the read base aligned to reference position refPos.
func (r *Read) BaseAt(refPos int) (byte, bool) {
	idx := r.IndexAt(refPos)
	if idx == Absent {
		return 0, false
	}
	return r.Seq[idx], true
}

// Overlaps checks whether the aligned span intersects [start, end).  A
// zero-length query overlaps reads covering its position.
func (r *Read) Overlaps(start, end int) bool {
	if end <= start {
		return r.Pos <= start && start < r.End
	}
	return r.Pos < end && start < r.End
}
