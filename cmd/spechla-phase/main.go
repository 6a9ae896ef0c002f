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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/furlan-lab/SpecHLA/external"
	"github.com/furlan-lab/SpecHLA/locus"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
)

var (
	loci         = flag.String("loci", strings.Join(locus.DefaultCatalogue.Names(), ","), "Comma-separated loci to reconstruct")
	refPath      = flag.String("ref", "", "Reference FASTA holding the locus contigs")
	bamPath      = flag.String("bam", "", "Reads aligned to -ref")
	vcfPath      = flag.String("vcf", "", "Small-variant calls, plain or gzipped VCF")
	fq1          = flag.String("fq1", "", "First-mate reads, realigned when a locus carries insertions")
	fq2          = flag.String("fq2", "", "Second-mate reads")
	breakpoints  = flag.String("breakpoints", "", "Long-indel breakpoint table, or SV VCF if the name ends in .vcf or .vcf.gz")
	depthPath    = flag.String("depth", "", "\"samtools depth -a\" table; computed from -bam if empty")
	excludeBED   = flag.String("exclude-bed", "", "BED file of extra bands in which variant calls are ignored")
	pacbio       = flag.String("tgs", "", "PacBio long reads adding linkage to phasing")
	nanopore     = flag.String("nanopore", "", "Nanopore long reads adding linkage to phasing")
	hicFwd       = flag.String("hic-fwd", "", "Hi-C forward mates adding linkage to phasing")
	hicRev       = flag.String("hic-rev", "", "Hi-C reverse mates")
	tenxBAM      = flag.String("tenx-bam", "", "Barcoded 10x linked reads aligned to -ref, adding linkage to phasing")
	outDir       = flag.String("out", "", "Output directory")
	workDir      = flag.String("work", "", "Directory for intermediate files (default -out)")
	catalogue    = flag.String("catalogue", "", "YAML file overriding the built-in locus geometry")
	weightImb    = flag.Float64("weight-imb", locus.DefaultOpts.WeightImb, "Weight of the allele-imbalance linkage fragments; 0 disables them")
	minQual      = flag.Float64("min-qual", locus.DefaultOpts.Genotype.MinQual, "Minimum variant QUAL")
	minDepth     = flag.Int("min-depth", locus.DefaultOpts.Genotype.MinDepth, "Minimum sum of allele depths")
	maxIndelLen  = flag.Int("max-indel-len", locus.DefaultOpts.Genotype.MaxIndelLen, "Longest ref or alt allele kept")
	bias         = flag.Float64("bias", locus.DefaultOpts.Genotype.Bias, "Allele-fraction margin under which a site is called homozygous")
	minMapQ      = flag.Int("min-mapq", locus.DefaultOpts.Genotype.MinMapQ, "Reads with MAPQ at or below this value are not classified")
	dropDups     = flag.Bool("drop-duplicates", locus.DefaultOpts.DropDuplicates, "Skip duplicate-flagged reads")
	consensusImp = flag.String("consensus", "bcftools", "Consensus implementation: 'bcftools' or 'ref' (in process)")
	parallelism  = flag.Int("parallelism", 1, "Maximum number of loci processed at once")
)

func spechlaPhaseUsage() {
	fmt.Printf("Usage: %s [OPTIONS]\n", os.Args[0])
	flag.PrintDefaults()
}

// splitLoci parses the -loci value.
func splitLoci(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// resolveTools resolves the binaries every locus needs, and those needed
// only for insertions or the duplication band when they can be found.
func resolveTools(t external.Tools, consensus string, l external.LinkageReads) (external.Tools, error) {
	required := []string{"Bash", "Tabix", "Samtools", "ExtractHAIRs", "SpecHap", "Perl", "Python"}
	if consensus == "bcftools" {
		required = append(required, "Bcftools")
	}
	switch l.Kind {
	case external.PacBio, external.Nanopore:
		required = append(required, "Minimap2")
	case external.HiC:
		required = append(required, "BWA")
	case external.TenX:
		required = append(required, "BarcodeExtract", "Bgzip")
	}
	t, err := t.Resolve(required...)
	if err != nil {
		return t, err
	}
	for _, name := range []string{"BWA", "Freebayes", "Blastn"} {
		if r, err := t.Resolve(name); err != nil {
			log.Error.Printf("spechla-phase: %v; loci that need it will fail", err)
		} else {
			t = r
		}
	}
	return t, nil
}

// linkage returns the long-range reads named by the flags.  At most one
// technology may be given.
func linkage(pacbio, nanopore, hicFwd, hicRev, tenx string) (external.LinkageReads, error) {
	var given []external.LinkageReads
	if pacbio != "" {
		given = append(given, external.LinkageReads{Kind: external.PacBio, FQ1: pacbio})
	}
	if nanopore != "" {
		given = append(given, external.LinkageReads{Kind: external.Nanopore, FQ1: nanopore})
	}
	if hicFwd != "" || hicRev != "" {
		given = append(given, external.LinkageReads{Kind: external.HiC, FQ1: hicFwd, FQ2: hicRev})
	}
	if tenx != "" {
		given = append(given, external.LinkageReads{Kind: external.TenX, BAM: tenx})
	}
	switch len(given) {
	case 0:
		return external.LinkageReads{}, nil
	case 1:
		return given[0], given[0].Validate()
	}
	return external.LinkageReads{}, fmt.Errorf("linkage reads of %d technologies given, at most one is supported", len(given))
}

func newToolkit(t external.Tools, consensus string) (locus.Toolkit, error) {
	tk := locus.NewToolkit(t)
	switch consensus {
	case "bcftools":
	case "ref":
		tk.Consensus = external.RefConsensus{}
	default:
		return tk, fmt.Errorf("unknown consensus implementation %q", consensus)
	}
	return tk, nil
}

func baseOpts(ctx context.Context) (locus.Opts, error) {
	opts := locus.DefaultOpts
	opts.Ref, opts.BAM, opts.VCF = *refPath, *bamPath, *vcfPath
	opts.FQ1, opts.FQ2 = *fq1, *fq2
	opts.Breakpoints, opts.Depth = *breakpoints, *depthPath
	opts.ExcludeBED = *excludeBED
	opts.OutDir = *outDir
	opts.WeightImb = *weightImb
	opts.DropDuplicates = *dropDups
	opts.Genotype.MinQual = *minQual
	opts.Genotype.MinDepth = *minDepth
	opts.Genotype.MaxIndelLen = *maxIndelLen
	opts.Genotype.Bias = *bias
	opts.Genotype.MinMapQ = *minMapQ
	var err error
	if opts.Linkage, err = linkage(*pacbio, *nanopore, *hicFwd, *hicRev, *tenxBAM); err != nil {
		return opts, err
	}
	if *catalogue != "" {
		cat, err := locus.ReadCatalogueFile(ctx, *catalogue)
		if err != nil {
			return opts, err
		}
		opts.Catalogue = cat
	}
	return opts, nil
}

func main() {
	flag.Usage = spechlaPhaseUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 0 {
		log.Fatalf("Unexpected positional arguments: '%s'", strings.Join(flag.Args(), " "))
	}
	ctx := vcontext.Background()
	opts, err := baseOpts(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	tools, err := external.ToolsFromEnv()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if tools, err = resolveTools(tools, *consensusImp, opts.Linkage); err != nil {
		log.Fatalf("%v", err)
	}
	tk, err := newToolkit(tools, *consensusImp)
	if err != nil {
		log.Fatalf("%v", err)
	}

	names := splitLoci(*loci)
	if len(names) == 0 {
		log.Fatalf("No loci requested")
	}
	work := *workDir
	if work == "" {
		work = *outDir
	}
	jobs := *parallelism
	if jobs < 1 || jobs > len(names) {
		jobs = len(names)
	}
	err = traverse.Each(jobs, func(jobIdx int) error {
		start := (jobIdx * len(names)) / jobs
		end := ((jobIdx + 1) * len(names)) / jobs
		for _, name := range names[start:end] {
			o := opts
			o.Locus = name
			o.WorkDir = filepath.Join(work, name)
			res, err := locus.Run(ctx, o, tk)
			if err != nil {
				return err
			}
			log.Printf("spechla-phase: %s: %d heterozygous sites, frequencies %v, wrote %s",
				name, res.Hets, res.Freqs, strings.Join(res.Files, ", "))
		}
		return nil
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
