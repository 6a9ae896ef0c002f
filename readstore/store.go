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

// Package readstore provides coordinate-range access to the aligned reads of
// one locus.  Read sets are locus-local and small, so a store keeps every read
// in memory, sorted by start position, with each read's reference-position
// array computed once at load time.
package readstore

import (
	"context"
	"io"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// Store answers range queries over aligned reads.
type Store interface {
	// Fetch returns the reads on contig whose aligned span overlaps
	// [start, end), ordered by start position then name.  With start == end
	// it returns the reads covering start.
	Fetch(ctx context.Context, contig string, start, end int) ([]*Read, error)
}

type contigReads struct {
	reads []*Read
	// maxSpan bounds End-Pos over reads, so that a range query only has to
	// scan reads starting at or after start-maxSpan.
	maxSpan int
}

// MemStore is an in-memory Store.
type MemStore struct {
	contigs map[string]*contigReads
}

// NewMemStore indexes the given reads.
func NewMemStore(reads []*Read) *MemStore {
	s := &MemStore{contigs: make(map[string]*contigReads)}
	for _, r := range reads {
		c := s.contigs[r.Contig]
		if c == nil {
			c = &contigReads{}
			s.contigs[r.Contig] = c
		}
		c.reads = append(c.reads, r)
		if span := r.End - r.Pos; span > c.maxSpan {
			c.maxSpan = span
		}
	}
	for _, c := range s.contigs {
		sort.SliceStable(c.reads, func(i, j int) bool {
			if c.reads[i].Pos != c.reads[j].Pos {
				return c.reads[i].Pos < c.reads[j].Pos
			}
			return c.reads[i].Name < c.reads[j].Name
		})
	}
	return s
}

// Fetch implements Store.
func (s *MemStore) Fetch(ctx context.Context, contig string, start, end int) ([]*Read, error) {
	c := s.contigs[contig]
	if c == nil {
		return nil, nil
	}
	limit := end
	if limit <= start {
		limit = start + 1
	}
	lo := sort.Search(len(c.reads), func(i int) bool { return c.reads[i].Pos >= start-c.maxSpan })
	var out []*Read
	for i := lo; i < len(c.reads) && c.reads[i].Pos < limit; i++ {
		if c.reads[i].Overlaps(start, end) {
			out = append(out, c.reads[i])
		}
	}
	return out, nil
}

// Len returns the number of reads on contig.
func (s *MemStore) Len(contig string) int {
	if c := s.contigs[contig]; c != nil {
		return len(c.reads)
	}
	return 0
}

// LoadOpts controls which BAM records LoadBAM keeps.
type LoadOpts struct {
	// Contigs restricts loading to the named contigs; empty means all.
	Contigs []string
	// DropDuplicates skips records flagged as PCR/optical duplicates.
	DropDuplicates bool
}

// LoadBAM reads every mapped record of the BAM file at path into a MemStore.
func LoadBAM(ctx context.Context, path string, opts LoadOpts) (store *MemStore, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "readstore.LoadBAM", path)
	}
	closeErr := errors.Once{}
	defer func() {
		closeErr.Set(in.Close(ctx))
		if err == nil {
			err = closeErr.Err()
		}
	}()
	br, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, errors.E(err, "readstore.LoadBAM", path)
	}
	defer func() { closeErr.Set(br.Close()) }()
	keep := make(map[string]bool, len(opts.Contigs))
	for _, c := range opts.Contigs {
		keep[c] = true
	}
	var reads []*Read
	var nUnmapped, nFiltered int
	for {
		rec, rerr := br.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, errors.E(rerr, "readstore.LoadBAM", path)
		}
		if rec.Ref == nil || rec.Flags&sam.Unmapped != 0 || len(rec.Cigar) == 0 {
			nUnmapped++
			continue
		}
		if (len(keep) > 0 && !keep[rec.Ref.Name()]) || (opts.DropDuplicates && rec.Flags&sam.Duplicate != 0) {
			nFiltered++
			continue
		}
		r, cerr := FromSAM(rec)
		if cerr != nil {
			return nil, errors.E(cerr, path)
		}
		reads = append(reads, r)
	}
	vlog.VI(1).Infof("readstore: loaded %d reads from %s (%d unmapped, %d filtered)", len(reads), path, nUnmapped, nFiltered)
	return NewMemStore(reads), nil
}
