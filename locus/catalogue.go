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

package locus

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"sort"

	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/sv"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"gopkg.in/yaml.v2"
)

// Band is a 0-based half-open [Start, End) range on a locus contig.
type Band [2]int

// Len is End-Start.
func (b Band) Len() int { return b[1] - b[0] }

// Entry returns b on contig.
func (b Band) Entry(contig string) interval.Entry {
	return interval.Entry{ChrName: contig, Start0: b[0], End: b[1]}
}

// Spec describes the fixed geometry of one locus.
type Spec struct {
	// Focus is the part of the contig that is assembled.
	Focus Band `yaml:"focus"`
	// Excluded holds the bands whose variant calls are ignored.
	Excluded []Band `yaml:"excluded,omitempty"`
	// BreakpointExclusion drops breakpoints with a coordinate strictly
	// inside (lo, hi), in 1-based coordinates.  Zero disables it.
	BreakpointExclusion [2]int `yaml:"breakpoint_exclusion,omitempty"`
	// DupBand is the tandem-duplication band typed against the duplication
	// catalogue.  Zero-length for loci without one.
	DupBand Band `yaml:"dup_band,omitempty"`
}

// ExcludedUnion returns Excluded as a BEDUnion over contig.
func (s Spec) ExcludedUnion(contig string) interval.BEDUnion {
	entries := make([]interval.Entry, len(s.Excluded))
	for i, b := range s.Excluded {
		entries[i] = b.Entry(contig)
	}
	return interval.NewBEDUnionFromEntries(entries)
}

// ParseOpts returns the breakpoint parser options for contig.
func (s Spec) ParseOpts(contig string) sv.ParseOpts {
	return sv.ParseOpts{
		Locus:     contig,
		ExcludeLo: s.BreakpointExclusion[0],
		ExcludeHi: s.BreakpointExclusion[1],
	}
}

func (s Spec) validate(name string) error {
	if s.Focus[0] < 0 || s.Focus.Len() <= 0 {
		return fmt.Errorf("locus %s: bad focus %v", name, s.Focus)
	}
	focus := interval.NewBEDUnionFromEntries([]interval.Entry{s.Focus.Entry(name)})
	for _, b := range s.Excluded {
		if b.Len() < 0 {
			return fmt.Errorf("locus %s: bad excluded band %v", name, b)
		}
		if b.Len() > 0 && !focus.Intersects(name, b[0], b[1]) {
			return fmt.Errorf("locus %s: excluded band %v outside focus %v", name, b, s.Focus)
		}
	}
	if d := s.DupBand; d.Len() > 0 && (d[0] < s.Focus[0] || d[1] > s.Focus[1]) {
		return fmt.Errorf("locus %s: duplication band %v outside focus %v", name, d, s.Focus)
	}
	return nil
}

// Catalogue maps locus contig names to their geometry.
type Catalogue struct {
	Loci map[string]Spec `yaml:"loci"`
}

// DRB1 carries a tandem duplication over 1-based positions 3898..4400.
var drb1Dup = Band{3897, 4400}

// DefaultCatalogue describes the eight typed HLA genes.
var DefaultCatalogue = Catalogue{Loci: map[string]Spec{
	"HLA_A":    {Focus: Band{1000, 4503}},
	"HLA_B":    {Focus: Band{1000, 5081}},
	"HLA_C":    {Focus: Band{1000, 5304}},
	"HLA_DPA1": {Focus: Band{1000, 10775}},
	"HLA_DPB1": {Focus: Band{1000, 12468}},
	"HLA_DQA1": {Focus: Band{1000, 7492}},
	"HLA_DQB1": {Focus: Band{1000, 8480}},
	"HLA_DRB1": {
		Focus:               Band{1000, 12229},
		Excluded:            []Band{drb1Dup},
		BreakpointExclusion: [2]int{3800, 4500},
		DupBand:             drb1Dup,
	},
}}

// Lookup returns the geometry of locus.
func (c Catalogue) Lookup(locus string) (Spec, error) {
	s, ok := c.Loci[locus]
	if !ok {
		return Spec{}, errors.E(errors.NotExist, "locus.Catalogue", locus)
	}
	return s, nil
}

// Names lists the loci in c, sorted.
func (c Catalogue) Names() []string {
	names := make([]string, 0, len(c.Loci))
	for n := range c.Loci {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ReadCatalogue decodes a YAML catalogue.  Loci it names replace the
// defaults; the others keep their built-in geometry.
func ReadCatalogue(r io.Reader) (Catalogue, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return Catalogue{}, err
	}
	var in Catalogue
	if err := yaml.UnmarshalStrict(data, &in); err != nil {
		return Catalogue{}, errors.E(errors.Invalid, err, "locus.ReadCatalogue")
	}
	out := Catalogue{Loci: make(map[string]Spec, len(DefaultCatalogue.Loci)+len(in.Loci))}
	for n, s := range DefaultCatalogue.Loci {
		out.Loci[n] = s
	}
	for n, s := range in.Loci {
		if err := s.validate(n); err != nil {
			return Catalogue{}, errors.E(errors.Invalid, err)
		}
		out.Loci[n] = s
	}
	return out, nil
}

// ReadCatalogueFile reads a YAML catalogue from path.
func ReadCatalogueFile(ctx context.Context, path string) (cat Catalogue, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return Catalogue{}, errors.E(err, "locus.ReadCatalogueFile", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return ReadCatalogue(in.Reader(ctx))
}
