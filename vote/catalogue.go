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

package vote

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Candidate is one typed sequence for a duplicated band, with the names of
// the reads that matched it.
type Candidate struct {
	Seq   string
	Reads []string
	// Unique holds the reads that match no other candidate.
	Unique []string
}

// Catalogue is the ranked candidate list for a duplicated band.
type Catalogue struct {
	Candidates []Candidate
}

// NewCatalogue builds a catalogue from parallel sequence and read-name
// slices and computes each candidate's unique reads.  Duplicate names within
// a candidate count once.
func NewCatalogue(seqs []string, reads [][]string) (*Catalogue, error) {
	if len(seqs) != len(reads) {
		return nil, fmt.Errorf("vote.NewCatalogue: %d sequences, %d read lists", len(seqs), len(reads))
	}
	owners := make(map[string]int)
	sets := make([]map[string]bool, len(seqs))
	for i, names := range reads {
		sets[i] = make(map[string]bool, len(names))
		for _, n := range names {
			if sets[i][n] {
				continue
			}
			sets[i][n] = true
			owners[n]++
		}
	}
	c := &Catalogue{Candidates: make([]Candidate, len(seqs))}
	for i := range seqs {
		cand := Candidate{Seq: seqs[i], Reads: reads[i]}
		seen := make(map[string]bool)
		for _, n := range reads[i] {
			if owners[n] == 1 && !seen[n] {
				seen[n] = true
				cand.Unique = append(cand.Unique, n)
			}
		}
		c.Candidates[i] = cand
	}
	return c, nil
}

// ReadCatalogue parses the ranked typing output of the duplication typer.
// Each row is whitespace separated; field 6 is the candidate sequence and
// field 7 a ';'-terminated list of read names, each carrying a three
// character mate suffix that is stripped.
func ReadCatalogue(r io.Reader) (*Catalogue, error) {
	var (
		seqs  []string
		reads [][]string
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<28)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 7 {
			return nil, fmt.Errorf("vote.ReadCatalogue: line %d: got %d fields, want at least 7", line, len(fields))
		}
		parts := strings.Split(fields[6], ";")
		names := make([]string, 0, len(parts))
		for _, p := range parts[:len(parts)-1] {
			if len(p) > 3 {
				names = append(names, p[:len(p)-3])
			}
		}
		seqs = append(seqs, fields[5])
		reads = append(reads, names)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewCatalogue(seqs, reads)
}

// ReadCatalogueFile reads a catalogue from path.
func ReadCatalogueFile(ctx context.Context, path string) (cat *Catalogue, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "vote.ReadCatalogueFile", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if cat, err = ReadCatalogue(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, "vote.ReadCatalogueFile", path)
	}
	return cat, nil
}

// Assign returns, per haplotype, the sequence of the candidate with the most
// unique reads in that haplotype's support.  A later candidate wins a tie.
// An empty catalogue yields empty sequences.
func (c *Catalogue) Assign(s *Support) []string {
	out := make([]string, s.Strains())
	if len(c.Candidates) == 0 {
		return out
	}
	for h := range out {
		best, max := 0, 0
		for i, cand := range c.Candidates {
			num := 0
			for _, n := range cand.Unique {
				if s.Has(h, n) {
					num++
				}
			}
			if num >= max {
				best, max = i, num
			}
		}
		log.Printf("vote.Catalogue.Assign: haplotype %d: candidate %d with %d unique reads", h, best, max)
		out[h] = c.Candidates[best].Seq
	}
	return out
}
