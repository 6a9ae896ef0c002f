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

// Package pileup holds per-position depth tracks for a locus and its
// insertion placeholder contigs.
package pileup

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// Track maps contig name to per-position depth, indexed by 0-based
// position.  Positions past the end of a contig's slice have depth 0.
type Track struct {
	depth map[string][]int
}

// NewTrack returns an empty Track.
func NewTrack() *Track {
	return &Track{depth: make(map[string][]int)}
}

// Set records the depth at the 0-based position pos.
func (t *Track) Set(contig string, pos, depth int) {
	d := t.depth[contig]
	for len(d) <= pos {
		d = append(d, 0)
	}
	d[pos] = depth
	t.depth[contig] = d
}

// At returns the depth at the 0-based position pos.
func (t *Track) At(contig string, pos int) int {
	d := t.depth[contig]
	if pos < 0 || pos >= len(d) {
		return 0
	}
	return d[pos]
}

// Len returns one past the last position with a recorded depth.
func (t *Track) Len(contig string) int {
	return len(t.depth[contig])
}

// Contigs returns the contig names, sorted.
func (t *Track) Contigs() []string {
	names := make([]string, 0, len(t.depth))
	for name := range t.depth {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mean returns the mean depth of contig over its recorded span.
func (t *Track) Mean(contig string) float64 {
	d := t.depth[contig]
	if len(d) == 0 {
		return 0
	}
	total := 0
	for _, v := range d {
		total += v
	}
	return float64(total) / float64(len(d))
}

// depthRow is one line of "samtools depth -a" output.
type depthRow struct {
	Contig string
	Pos    int // 1-based
	Depth  int
}

// ReadTSV parses samtools-depth-style "contig pos depth" rows.
func ReadTSV(r io.Reader) (*Track, error) {
	reader := tsv.NewReader(r)
	reader.Comment = '#'
	t := NewTrack()
	for {
		var row depthRow
		if err := reader.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if row.Pos < 1 {
			return nil, fmt.Errorf("pileup.ReadTSV: bad position %d on %s", row.Pos, row.Contig)
		}
		t.Set(row.Contig, row.Pos-1, row.Depth)
	}
	return t, nil
}

// ReadFile reads a depth TSV file.
func ReadFile(ctx context.Context, path string) (t *Track, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "pileup.ReadFile", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if t, err = ReadTSV(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, "pileup.ReadFile", path)
	}
	return t, nil
}

// WriteTSV writes t in the same format ReadTSV accepts, contigs sorted.
func (t *Track) WriteTSV(w io.Writer) error {
	tw := tsv.NewWriter(w)
	for _, contig := range t.Contigs() {
		for pos, d := range t.depth[contig] {
			tw.WriteString(contig)
			tw.WriteInt64(int64(pos + 1))
			tw.WriteInt64(int64(d))
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

// Depth computes a track from the reads, one entry per position of every
// contig in lengths, like "samtools depth -a".  Only aligned bases count;
// deletions and skips do not.
func Depth(ctx context.Context, store readstore.Store, lengths map[string]int) (*Track, error) {
	t := NewTrack()
	for contig, n := range lengths {
		d := make([]int, n)
		reads, err := store.Fetch(ctx, contig, 0, n)
		if err != nil {
			return nil, err
		}
		for _, r := range reads {
			for _, p := range r.RefPos {
				if p != readstore.Absent && p < n {
					d[p]++
				}
			}
		}
		t.depth[contig] = d
	}
	return t, nil
}
