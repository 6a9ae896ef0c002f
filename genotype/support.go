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

package genotype

import (
	"bytes"
	"context"
	"strings"

	"github.com/furlan-lab/SpecHLA/readstore"
)

// Site identifies a biallelic site to classify reads at.
type Site struct {
	Contig string
	// Pos is the 1-based position of the first reference base.
	Pos int
	// Ref is the reference allele of the record; it fixes the reference span
	// compared for multi-base alleles.
	Ref string
	// Alleles are the two competing alleles, upper case.
	Alleles [2]string
}

// SingleBase reports whether both alleles are single bases.
func (s Site) SingleBase() bool { return len(s.Alleles[0]) == 1 && len(s.Alleles[1]) == 1 }

// Support returns the names of the reads carrying each allele of site, in
// the store's fetch order.  Reads with mapping quality <= minMapQ or without
// an aligned base at the site are ignored, as are reads matching neither
// allele.
//
// When the alleles differ at their first base only that base is compared.
// Otherwise the read bases aligned over the reference span are compared whole;
// if both alleles are longer than the reference, the inserted bases directly
// following the span are appended first.
func Support(ctx context.Context, store readstore.Store, site Site, minMapQ int) (names [2][]string, err error) {
	p0 := site.Pos - 1
	reads, err := store.Fetch(ctx, site.Contig, p0, p0+1)
	if err != nil {
		return names, err
	}
	a0 := strings.ToUpper(site.Alleles[0])
	a1 := strings.ToUpper(site.Alleles[1])
	if len(a0) == 0 || len(a1) == 0 {
		return names, nil
	}
	for _, r := range reads {
		if r.MapQ <= minMapQ {
			continue
		}
		idx := r.IndexAt(p0)
		if idx == readstore.Absent {
			continue
		}
		var allele []byte
		if a0[0] != a1[0] {
			allele = r.Seq[idx : idx+1]
		} else {
			allele = spanAllele(r, p0, len(site.Ref), len(a0), len(a1))
		}
		switch {
		case bytes.Equal(allele, []byte(a0)):
			names[0] = append(names[0], r.Name)
		case bytes.Equal(allele, []byte(a1)):
			names[1] = append(names[1], r.Name)
		}
	}
	return names, nil
}

// spanAllele returns the read bases from the first to the last aligned
// reference position in [p0, p0+refLen), extended through trailing inserted
// bases when both alleles are longer than the reference.
func spanAllele(r *readstore.Read, p0, refLen, len0, len1 int) []byte {
	first, last := readstore.Absent, readstore.Absent
	for p := p0; p < p0+refLen; p++ {
		if idx := r.IndexAt(p); idx != readstore.Absent {
			if first == readstore.Absent {
				first = idx
			}
			last = idx
		}
	}
	if first == readstore.Absent {
		return nil
	}
	end := last + 1
	if refLen < len0 && refLen < len1 {
		for end < len(r.Seq) && r.RefPos[end] == readstore.Absent {
			end++
		}
	}
	return r.Seq[first:end]
}
