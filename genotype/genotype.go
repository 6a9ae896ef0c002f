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
	"errors"
	"fmt"
)

// Kind classifies a normalized genotype.
type Kind uint8

const (
	// HomRef carries the reference allele on every copy.
	HomRef Kind = iota
	// HomAlt1 carries the first alternate allele on every copy.
	HomAlt1
	// HomAlt2 carries the second alternate allele on every copy.
	HomAlt2
	// Het carries two distinct alleles.
	Het
)

var kindNames = [...]string{"hom-ref", "hom-alt1", "hom-alt2", "het"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ErrTriallelic is returned by Normalize for calls that carry all three
// alleles, e.g. 0/1/2.
var ErrTriallelic = errors.New("genotype: triallelic call")

// Genotype is a normalized diploid call.  For Het, Lo < Hi are the two
// allele indices; for the homozygous kinds Lo == Hi.
type Genotype struct {
	Kind   Kind
	Lo, Hi int
}

// Normalize collapses a raw call of any ploidy (typically triploid, from a
// caller run with -p 3) into a Genotype.  Allele indices must be in {0,1,2}.
func Normalize(raw []int) (Genotype, error) {
	if len(raw) == 0 {
		return Genotype{}, errors.New("genotype: empty call")
	}
	var seen [3]bool
	for _, a := range raw {
		if a < 0 || a > 2 {
			return Genotype{}, fmt.Errorf("genotype: allele index %d out of range in %v", a, raw)
		}
		seen[a] = true
	}
	var distinct []int
	for a, ok := range seen {
		if ok {
			distinct = append(distinct, a)
		}
	}
	switch len(distinct) {
	case 1:
		a := distinct[0]
		return Genotype{Kind: Kind(a), Lo: a, Hi: a}, nil
	case 2:
		return Genotype{Kind: Het, Lo: distinct[0], Hi: distinct[1]}, nil
	}
	return Genotype{}, ErrTriallelic
}

// Homozygous reports whether every copy carries the same allele.
func (g Genotype) Homozygous() bool { return g.Kind != Het }

// Alleles returns the diploid allele indices: (Lo, Hi) for Het, (a, a)
// otherwise.
func (g Genotype) Alleles() []int { return []int{g.Lo, g.Hi} }

func (g Genotype) String() string {
	return fmt.Sprintf("%s(%d,%d)", g.Kind, g.Lo, g.Hi)
}
