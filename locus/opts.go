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
	"fmt"

	"github.com/furlan-lab/SpecHLA/external"
	"github.com/furlan-lab/SpecHLA/genotype"
)

// Opts configures Run for one locus.  Paths may be anything
// grailbio/base/file opens, except those handed to the external tools, which
// must be local.
type Opts struct {
	// Locus is the contig name of the gene, e.g. "HLA_A".
	Locus string
	// Ref is the FASTA reference of the locus.
	Ref string
	// BAM holds the reads aligned to Ref.
	BAM string
	// VCF holds the small-variant calls.
	VCF string
	// FQ1 and FQ2 are the paired reads, realigned against the insertion
	// placeholder reference when the locus carries insertions.
	FQ1, FQ2 string
	// Breakpoints is a breakpoint table, or an SV VCF when it ends in .vcf
	// or .vcf.gz.  Empty means no structural variants.
	Breakpoints string
	// Depth is a "samtools depth -a" table.  Empty means compute it from BAM.
	Depth string
	// ExcludeBED is a BED file of bands, added to the catalogue's, inside
	// which variant calls are dropped.
	ExcludeBED string
	// Linkage are optional long-range reads phased together with BAM.
	Linkage external.LinkageReads
	// OutDir receives the outputs; WorkDir the intermediates, defaulting to
	// OutDir.
	OutDir, WorkDir string

	// Strains is the number of haplotypes.  Only 2 is supported.
	Strains int
	// WeightImb scales the allele-imbalance linkage fragments; 0 disables
	// them.
	WeightImb float64
	// MinSegmentLen is the shortest normal segment used to build read
	// support.
	MinSegmentLen int
	// InsertionMinQual drops insertion-contig calls with QUAL at or below it
	// before phasing.
	InsertionMinQual float64
	// DropDuplicates skips duplicate-flagged reads when loading BAM.
	DropDuplicates bool

	// Genotype holds the resolver thresholds.  Contig, Excluded and
	// SVRegions are filled by Run.
	Genotype genotype.Opts
	// Catalogue supplies the locus geometry.
	Catalogue Catalogue
}

// DefaultOpts holds the pipeline defaults.
var DefaultOpts = Opts{
	Strains:          2,
	WeightImb:        0,
	MinSegmentLen:    10,
	InsertionMinQual: 5,
	Genotype:         genotype.DefaultOpts,
	Catalogue:        DefaultCatalogue,
}

// Validate checks that o names its inputs and supported settings.
func (o Opts) Validate() error {
	switch {
	case o.Locus == "":
		return fmt.Errorf("locus.Opts: empty locus")
	case o.Ref == "" || o.BAM == "" || o.VCF == "":
		return fmt.Errorf("locus.Opts: %s: reference, BAM and VCF are required", o.Locus)
	case o.OutDir == "":
		return fmt.Errorf("locus.Opts: %s: empty output directory", o.Locus)
	case o.Strains != 2:
		return fmt.Errorf("locus.Opts: %s: %d strains, only 2 are supported", o.Locus, o.Strains)
	case o.WeightImb < 0:
		return fmt.Errorf("locus.Opts: %s: negative imbalance weight %v", o.Locus, o.WeightImb)
	case (o.FQ1 == "") != (o.FQ2 == ""):
		return fmt.Errorf("locus.Opts: %s: FQ1 and FQ2 must be given together", o.Locus)
	}
	if err := o.Linkage.Validate(); err != nil {
		return fmt.Errorf("locus.Opts: %s: %v", o.Locus, err)
	}
	if _, err := o.Catalogue.Lookup(o.Locus); err != nil {
		return err
	}
	return nil
}

func (o Opts) workDir() string {
	if o.WorkDir != "" {
		return o.WorkDir
	}
	return o.OutDir
}
