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

// Package locus runs the haplotype reconstruction of one HLA locus: genotype
// resolution, phasing and block linking, structural-variant segmentation,
// read-support voting and per-haplotype assembly.
package locus

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/furlan-lab/SpecHLA/assemble"
	"github.com/furlan-lab/SpecHLA/block"
	"github.com/furlan-lab/SpecHLA/encoding/fasta"
	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/external"
	"github.com/furlan-lab/SpecHLA/freq"
	"github.com/furlan-lab/SpecHLA/genotype"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/pileup"
	"github.com/furlan-lab/SpecHLA/readstore"
	"github.com/furlan-lab/SpecHLA/sv"
	"github.com/furlan-lab/SpecHLA/vote"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"
)

// Toolkit holds the external capabilities Run uses.
type Toolkit struct {
	Aligner   external.Aligner
	Caller    external.Caller
	Consensus external.Consensus
	Phaser    external.Phaser
	Scorer    external.BlockScorer
	DupTyper  external.DupTyper
}

// NewToolkit returns a Toolkit backed by subprocesses of t.
func NewToolkit(t external.Tools) Toolkit {
	s := external.NewSubprocess(t)
	return Toolkit{Aligner: s, Caller: s, Consensus: s, Phaser: s, Scorer: s, DupTyper: s}
}

// Result summarizes a locus run.
type Result struct {
	Locus string
	// Hets is the number of heterozygous sites after resolution.
	Hets int
	// Freqs are the haplotype mixing proportions.
	Freqs []float64
	// Regions are the annotated structural-variant regions.
	Regions  []sv.Region
	Segments []sv.Segment
	// Haplotypes are the assembled sequences; Files the FASTA files holding
	// them.
	Haplotypes []string
	Files      []string
}

// pipeline carries the state of one Run.
type pipeline struct {
	opts Opts
	spec Spec
	tk   Toolkit
	work string

	ref    fasta.Fasta
	refLen int
	store  *readstore.MemStore
	hdr    *vcf.Header
	calls  []*vcf.Record

	// excluded joins the catalogue's bands and those of Opts.ExcludeBED.
	excluded interval.BEDUnion

	// Set when the locus carries insertions.
	insRef   string
	insBAM   string
	insStore *readstore.MemStore
}

// Run reconstructs the haplotypes of opts.Locus and writes them, together
// with the phased calls, the unphased-site report and the frequency table,
// to opts.OutDir.  Stage failures are returned as *StageError.
func Run(ctx context.Context, opts Opts, tk Toolkit) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	spec, _ := opts.Catalogue.Lookup(opts.Locus)
	p := &pipeline{opts: opts, spec: spec, tk: tk, work: opts.workDir()}
	return p.run(ctx)
}

func (p *pipeline) fail(stage, coord string, err error) error {
	return &StageError{Locus: p.opts.Locus, Stage: stage, Coord: coord, Err: err}
}

func (p *pipeline) out(name string) string  { return filepath.Join(p.opts.OutDir, name) }
func (p *pipeline) temp(name string) string { return filepath.Join(p.work, name) }

func (p *pipeline) run(ctx context.Context) (*Result, error) {
	locus := p.opts.Locus
	for _, dir := range []string{p.opts.OutDir, p.work} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, p.fail(StageInput, dir, err)
		}
	}
	if err := p.load(ctx); err != nil {
		return nil, err
	}

	regions, err := p.regions(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("locus.Run: %s: %d structural-variant regions", locus, len(regions))

	gopts := p.opts.Genotype
	gopts.Contig = locus
	gopts.Excluded = p.excluded
	gopts.SVRegions = sv.Regions(locus, regions)
	res, err := genotype.Resolve(ctx, p.calls, p.store, gopts)
	if err != nil {
		return nil, p.fail(StageResolve, p.opts.VCF, err)
	}
	geneVCF := p.out(locus + ".vcf.gz")
	if err := vcf.WriteFile(ctx, geneVCF, p.hdr, res.Records); err != nil {
		return nil, p.fail(StageResolve, geneVCF, err)
	}

	haps, rephased, err := p.phase(ctx, res, geneVCF, gopts.MinMapQ)
	if err != nil {
		return nil, err
	}
	rephaseVCF := p.out(locus + ".rephase.vcf.gz")
	if err := vcf.WriteFile(ctx, rephaseVCF, p.hdr, rephased); err != nil {
		return nil, p.fail(StageLink, rephaseVCF, err)
	}

	freqs := freq.NoHet(p.opts.Strains)
	if len(res.Hets) > 0 {
		if freqs, err = freq.Estimate(res.Hets, haps); err != nil {
			return nil, p.fail(StageFrequency, "", err)
		}
	}
	if _, err := freq.WriteFile(ctx, p.opts.OutDir, locus, freqs); err != nil {
		return nil, p.fail(StageFrequency, p.out(freq.FileName(locus)), err)
	}
	log.Printf("locus.Run: %s: frequencies %v", locus, freqs)

	if regions, err = p.copyNumber(ctx, regions); err != nil {
		return nil, err
	}
	segs := sv.Partition(p.spec.Focus.Entry(locus), regions, p.spec.DupBand.Entry(locus))

	sig := vote.Signature{Haps: haps}
	for _, h := range res.Hets {
		sig.Sites = append(sig.Sites, h.Site)
	}
	voter, err := vote.NewVoter(p.store, sig)
	if err != nil {
		return nil, p.fail(StageVote, "", err)
	}
	support, err := voter.Support(ctx, sv.NormalEntries(segs, p.opts.MinSegmentLen))
	if err != nil {
		return nil, p.fail(StageVote, "", err)
	}

	presence, err := p.presence(ctx, segs, regions, support)
	if err != nil {
		return nil, err
	}
	seqs := make(assemble.Sequences)
	insertions, err := p.insertions(ctx, segs, regions, support, seqs)
	if err != nil {
		return nil, err
	}
	dup, err := p.dupTypes(ctx, segs, support)
	if err != nil {
		return nil, err
	}

	var entries []interval.Entry
	for _, e := range assemble.Needed(locus, segs, regions) {
		if e.ChrName == locus {
			entries = append(entries, e)
		}
	}
	if err := p.consensus(ctx, p.opts.Ref, rephaseVCF, entries, seqs); err != nil {
		return nil, err
	}

	in := assemble.Input{
		Locus:      locus,
		Strains:    p.opts.Strains,
		Segments:   segs,
		Regions:    regions,
		Seqs:       seqs,
		Presence:   presence,
		Insertions: insertions,
		Dup:        dup,
	}
	hapSeqs, err := assemble.Assemble(in)
	if err != nil {
		coord := ""
		if me, ok := err.(*assemble.MissingError); ok {
			coord = me.Key
		}
		return nil, p.fail(StageAssemble, coord, err)
	}
	files, err := assemble.WriteFiles(ctx, p.opts.OutDir, locus, hapSeqs)
	if err != nil {
		return nil, p.fail(StageAssemble, p.opts.OutDir, err)
	}
	return &Result{
		Locus:      locus,
		Hets:       len(res.Hets),
		Freqs:      freqs,
		Regions:    regions,
		Segments:   segs,
		Haplotypes: hapSeqs,
		Files:      files,
	}, nil
}

// load reads the reference, the reads and the variant calls.
func (p *pipeline) load(ctx context.Context) error {
	var err error
	if p.ref, err = fasta.ReadFile(ctx, p.opts.Ref); err != nil {
		return p.fail(StageInput, p.opts.Ref, err)
	}
	if p.refLen, err = p.ref.Len(p.opts.Locus); err != nil {
		return p.fail(StageInput, p.opts.Ref, err)
	}
	if f := p.spec.Focus; f[1] > p.refLen {
		return p.fail(StageInput, p.opts.Ref, fmt.Errorf("focus %v extends past contig length %d", f, p.refLen))
	}
	p.store, err = readstore.LoadBAM(ctx, p.opts.BAM, readstore.LoadOpts{
		Contigs:        []string{p.opts.Locus},
		DropDuplicates: p.opts.DropDuplicates,
	})
	if err != nil {
		return p.fail(StageInput, p.opts.BAM, err)
	}
	if p.hdr, p.calls, err = vcf.ReadFile(ctx, p.opts.VCF); err != nil {
		return p.fail(StageInput, p.opts.VCF, err)
	}
	p.excluded = p.spec.ExcludedUnion(p.opts.Locus)
	if path := p.opts.ExcludeBED; path != "" {
		bed, err := interval.NewBEDUnionFromPath(ctx, path, interval.NewBEDOpts{})
		if err != nil {
			return p.fail(StageInput, path, err)
		}
		p.excluded = p.excluded.Union(bed)
	}
	log.Printf("locus.Run: %s: %d reads, %d variant records", p.opts.Locus, p.store.Len(p.opts.Locus), len(p.calls))
	return nil
}

func isVCF(path string) bool {
	return strings.HasSuffix(path, ".vcf") || strings.HasSuffix(path, ".vcf.gz")
}

// regions reads the breakpoints of the locus and resolves them into
// disjoint regions.
func (p *pipeline) regions(ctx context.Context) ([]sv.Region, error) {
	path := p.opts.Breakpoints
	if path == "" {
		return nil, nil
	}
	locus := p.opts.Locus
	var bps []sv.Breakpoint
	if isVCF(path) {
		_, recs, err := vcf.ReadFile(ctx, path)
		if err != nil {
			return nil, p.fail(StageStructure, path, err)
		}
		lo, hi := p.spec.BreakpointExclusion[0], p.spec.BreakpointExclusion[1]
		inside := func(pos int) bool { return hi > 0 && pos > lo && pos < hi }
		for _, bp := range sv.BreakpointsFromVCF(recs, p.spec.Focus[0]+1) {
			if bp.Chrom == locus && !inside(bp.Start) && !inside(bp.End) {
				bps = append(bps, bp)
			}
		}
	} else {
		var err error
		if bps, err = sv.ReadBreakpointsFile(ctx, path, p.spec.ParseOpts(locus)); err != nil {
			return nil, p.fail(StageStructure, path, err)
		}
	}
	// The kept rows are written back as a table, also when read from a VCF.
	kept := p.temp(locus + "_breakpoints.txt")
	if err := writeFile(ctx, kept, func(w io.Writer) error { return sv.WriteBreakpoints(w, bps) }); err != nil {
		return nil, p.fail(StageStructure, kept, err)
	}
	return sv.FromBreakpoints(bps), nil
}

func writeFile(ctx context.Context, path string, fn func(w io.Writer) error) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "locus", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	return fn(out.Writer(ctx))
}

// phase phases the heterozygous sites and returns, per haplotype, the
// allele slot each site carries, along with the rephased records.  A locus
// without heterozygous sites is returned unchanged with empty haplotypes.
func (p *pipeline) phase(ctx context.Context, res *genotype.Result, geneVCF string, minMapQ int) ([][]int, []*vcf.Record, error) {
	locus := p.opts.Locus
	hets := res.Hets
	if len(hets) == 0 {
		log.Printf("locus.Run: %s: no heterozygous sites, skipping phasing", locus)
		haps := make([][]int, p.opts.Strains)
		for h := range haps {
			haps[h] = []int{}
		}
		return haps, block.Rephase(res.Records, nil, haps), nil
	}

	supports, err := block.SiteSupports(ctx, p.store, hets, minMapQ)
	if err != nil {
		return nil, nil, p.fail(StagePhase, "", err)
	}
	format := block.Standard
	if p.opts.Linkage.NewFormat() {
		format = block.Barcoded
	}
	addPath, imbPath := p.temp("fragment.add.file"), p.temp("fragment.imbalance.file")
	if err := writeFile(ctx, addPath, func(w io.Writer) error {
		return block.WriteIndelFragments(w, format, hets, supports)
	}); err != nil {
		return nil, nil, p.fail(StagePhase, addPath, err)
	}
	if err := writeFile(ctx, imbPath, func(w io.Writer) error {
		return block.WriteImbalanceFragments(w, format, hets, p.opts.WeightImb)
	}); err != nil {
		return nil, nil, p.fail(StagePhase, imbPath, err)
	}

	phasedPath := p.temp(locus + ".specHap.phased.vcf")
	if err := p.tk.Phaser.Phase(ctx, external.PhaseRequest{
		Ref:       p.opts.Ref,
		BAM:       p.opts.BAM,
		VCF:       geneVCF,
		Fragments: []string{addPath, imbPath},
		Linkage:   p.opts.Linkage,
		WorkDir:   p.work,
		Out:       phasedPath,
	}); err != nil {
		return nil, nil, p.fail(StagePhase, geneVCF, err)
	}
	_, phased, err := readToolVCF(ctx, phasedPath, true)
	if err != nil {
		return nil, nil, p.fail(StagePhase, phasedPath, err)
	}

	refined, breaks := block.Refine(phased, locus)
	report := p.out(locus + "_break_points_spechap.txt")
	if err := block.WriteReportFile(ctx, report, breaks); err != nil {
		return nil, nil, p.fail(StagePhase, report, err)
	}
	var flips []block.Flip
	if len(breaks) > 0 {
		flipPath := p.temp(locus + "_break_points_phased.txt")
		if err := p.tk.Scorer.Score(ctx, external.ScoreRequest{
			Report:  report,
			Strains: p.opts.Strains,
			WorkDir: p.work,
			Out:     flipPath,
		}); err != nil {
			return nil, nil, p.fail(StageScore, report, err)
		}
		if flips, err = readFlips(ctx, flipPath); err != nil {
			return nil, nil, p.fail(StageScore, flipPath, err)
		}
	}
	log.Printf("locus.Run: %s: %d heterozygous sites, %d block breaks, %d block flips", locus, len(hets), len(breaks), len(flips))

	local, err := block.LocalPhase(refined, hets)
	if err != nil {
		return nil, nil, p.fail(StageLink, phasedPath, err)
	}
	haps, err := block.Link(hets, local, flips)
	if err != nil {
		return nil, nil, p.fail(StageLink, "", err)
	}
	return haps, block.Rephase(res.Records, hets, haps), nil
}

func hasInsertion(regions []sv.Region) bool {
	for _, r := range regions {
		if r.Insertion() {
			return true
		}
	}
	return false
}

// copyNumber attaches copy numbers to regions.  With insertions, the reads
// are first realigned against the reference extended with one placeholder
// contig per insertion and the depth is taken from that alignment.
func (p *pipeline) copyNumber(ctx context.Context, regions []sv.Region) ([]sv.Region, error) {
	if len(regions) == 0 {
		return nil, nil
	}
	locus := p.opts.Locus
	var (
		track *pileup.Track
		err   error
	)
	switch {
	case hasInsertion(regions):
		if p.opts.FQ1 == "" {
			return nil, p.fail(StageRealign, "", fmt.Errorf("insertions need paired reads to realign"))
		}
		insRef, err := sv.PlaceholderContigs(p.ref, locus, regions)
		if err != nil {
			return nil, p.fail(StageRealign, "", err)
		}
		p.insRef, p.insBAM = p.temp("newref_insertion.fa"), p.temp("newref_insertion.bam")
		if err := fasta.WriteFile(ctx, p.insRef, insRef); err != nil {
			return nil, p.fail(StageRealign, p.insRef, err)
		}
		if err := p.tk.Aligner.Align(ctx, external.AlignRequest{
			Ref: p.insRef, FQ1: p.opts.FQ1, FQ2: p.opts.FQ2, Out: p.insBAM,
		}); err != nil {
			return nil, p.fail(StageRealign, p.insRef, err)
		}
		if p.insStore, err = readstore.LoadBAM(ctx, p.insBAM, readstore.LoadOpts{DropDuplicates: p.opts.DropDuplicates}); err != nil {
			return nil, p.fail(StageRealign, p.insBAM, err)
		}
		lengths := make(map[string]int)
		for _, name := range insRef.SeqNames() {
			if lengths[name], err = insRef.Len(name); err != nil {
				return nil, p.fail(StageRealign, p.insRef, err)
			}
		}
		if track, err = pileup.Depth(ctx, p.insStore, lengths); err != nil {
			return nil, p.fail(StageRealign, p.insBAM, err)
		}
	case p.opts.Depth != "":
		if track, err = pileup.ReadFile(ctx, p.opts.Depth); err != nil {
			return nil, p.fail(StageStructure, p.opts.Depth, err)
		}
	default:
		if track, err = pileup.Depth(ctx, p.store, map[string]int{locus: p.refLen}); err != nil {
			return nil, p.fail(StageStructure, p.opts.BAM, err)
		}
	}
	out := sv.AnnotateCopyNumber(locus, regions, track)
	for _, r := range out {
		log.Printf("locus.Run: %s: region %s copy number %d", locus, r, r.CopyNumber)
	}
	return out, nil
}

// presence picks the haplotype carrying each single-copy deletion and
// insertion.
func (p *pipeline) presence(ctx context.Context, segs []sv.Segment, regions []sv.Region, support *vote.Support) (map[int]int, error) {
	presence := make(map[int]int)
	for _, seg := range segs {
		if seg.Kind != sv.Deletion && seg.Kind != sv.Insertion {
			continue
		}
		r := regions[seg.Region]
		if r.CopyNumber != 1 {
			continue
		}
		store, region := readstore.Store(p.store), seg.Entry
		if seg.Kind == sv.Insertion {
			store, region = p.insStore, r.PlaceholderEntry(p.opts.Locus)
		}
		h, counts, err := vote.Presence(ctx, store, region, support)
		if err != nil {
			return nil, p.fail(StageVote, region.String(), err)
		}
		log.Printf("locus.Run: %s: %s segment %s on haplotype %d (supporting reads %v)", p.opts.Locus, seg.Kind, seg.Entry, h, counts)
		presence[seg.Region] = h
	}
	return presence, nil
}

// insertions calls and phases the variants of the placeholder contigs, adds
// the consensus of every present insertion to seqs and links each
// single-copy insertion's phases to the haplotypes.
func (p *pipeline) insertions(ctx context.Context, segs []sv.Segment, regions []sv.Region, support *vote.Support, seqs assemble.Sequences) (map[int]assemble.InsertionPhase, error) {
	locus := p.opts.Locus
	var idx []int
	for _, seg := range segs {
		if seg.Kind == sv.Insertion && regions[seg.Region].CopyNumber > 0 {
			idx = append(idx, seg.Region)
		}
	}
	if len(idx) == 0 {
		return nil, nil
	}

	callPath := p.temp("newref_insertion.freebayes.vcf")
	if err := p.tk.Caller.Call(ctx, external.CallRequest{Ref: p.insRef, BAM: p.insBAM, Out: callPath}); err != nil {
		return nil, p.fail(StageInsertion, p.insBAM, err)
	}
	hdr, calls, err := readToolVCF(ctx, callPath, false)
	if err != nil {
		return nil, p.fail(StageInsertion, callPath, err)
	}
	var kept []*vcf.Record
	het := false
	for _, r := range calls {
		if !r.HasQual || r.Qual <= p.opts.InsertionMinQual {
			continue
		}
		kept = append(kept, r)
		if alleles, _, err := r.Genotype(); err == nil && len(alleles) == 2 && alleles[0] != alleles[1] {
			het = true
		}
	}
	filtered := p.temp("filter_newref_insertion.freebayes.vcf.gz")
	if err := vcf.WriteFile(ctx, filtered, hdr, kept); err != nil {
		return nil, p.fail(StageInsertion, filtered, err)
	}
	phased := kept
	if het {
		dir := p.temp("insertion")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, p.fail(StageInsertion, dir, err)
		}
		out := filepath.Join(dir, locus+".insertion.phased.raw.vcf")
		if err := p.tk.Phaser.Phase(ctx, external.PhaseRequest{
			Ref: p.insRef, BAM: p.insBAM, VCF: filtered, WorkDir: dir, Out: out,
		}); err != nil {
			return nil, p.fail(StageInsertion, filtered, err)
		}
		if _, phased, err = readToolVCF(ctx, out, true); err != nil {
			return nil, p.fail(StageInsertion, out, err)
		}
	}
	// Homozygous calls are written phased so that consensus applies them to
	// both haplotypes.
	for _, r := range phased {
		if alleles, ok, err := r.Genotype(); err == nil && !ok && len(alleles) == 2 && alleles[0] == alleles[1] {
			r.SetGenotype(alleles, true)
		}
	}
	insVCF := p.temp(locus + ".insertion.phased.vcf.gz")
	if err := vcf.WriteFile(ctx, insVCF, hdr, phased); err != nil {
		return nil, p.fail(StageInsertion, insVCF, err)
	}

	entries := make([]interval.Entry, len(idx))
	for i, k := range idx {
		entries[i] = regions[k].PlaceholderEntry(locus)
	}
	insSeqs := make(assemble.Sequences)
	if err := p.consensus(ctx, p.insRef, insVCF, entries, insSeqs); err != nil {
		return nil, err
	}
	out := make(map[int]assemble.InsertionPhase)
	for i, k := range idx {
		e := entries[i]
		hapSeqs := insSeqs[e.String()]
		if regions[k].CopyNumber == 2 {
			seqs.Add(e, hapSeqs)
			continue
		}
		phase, err := assemble.LinkInsertion(ctx, p.insStore, e.ChrName, phased, support)
		if err != nil {
			return nil, p.fail(StageInsertion, e.ChrName, err)
		}
		copy(phase.Seqs[:], hapSeqs)
		out[k] = phase
	}
	return out, nil
}

// dupTypes types the duplication band, if the partition has one, and
// returns the candidate sequence of each haplotype.
func (p *pipeline) dupTypes(ctx context.Context, segs []sv.Segment, support *vote.Support) ([]string, error) {
	found := false
	for _, seg := range segs {
		found = found || seg.Kind == sv.Duplication
	}
	if !found {
		return nil, nil
	}
	band := p.spec.DupBand.Entry(p.opts.Locus)
	out := p.temp(p.opts.Locus + ".dup.catalogue.txt")
	if err := p.tk.DupTyper.TypeDup(ctx, external.DupRequest{
		BAM:     p.opts.BAM,
		Band:    band,
		Strains: p.opts.Strains,
		WorkDir: p.work,
		Out:     out,
	}); err != nil {
		return nil, p.fail(StageDup, band.String(), err)
	}
	cat, err := readDupCatalogue(ctx, out)
	if err != nil {
		return nil, p.fail(StageDup, out, err)
	}
	dup := cat.Assign(support)
	for h, seq := range dup {
		log.Printf("locus.Run: %s: duplication band %s haplotype %d: %d bp", p.opts.Locus, band, h, len(seq))
	}
	return dup, nil
}

// consensus extracts entries on every haplotype concurrently and adds them
// to seqs.
func (p *pipeline) consensus(ctx context.Context, ref, vcfPath string, entries []interval.Entry, seqs assemble.Sequences) error {
	if len(entries) == 0 {
		return nil
	}
	perHap := make([][]string, p.opts.Strains)
	g, gctx := errgroup.WithContext(ctx)
	for h := range perHap {
		h := h
		g.Go(func() error {
			out, err := p.tk.Consensus.Consensus(gctx, external.ConsensusRequest{
				Ref: ref, VCF: vcfPath, Regions: entries, Hap: h,
			})
			if err != nil {
				return err
			}
			if len(out) != len(entries) {
				return fmt.Errorf("consensus returned %d sequences for %d regions", len(out), len(entries))
			}
			perHap[h] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return p.fail(StageConsensus, vcfPath, err)
	}
	for i, e := range entries {
		hs := make([]string, len(perHap))
		for h := range perHap {
			hs[h] = perHap[h][i]
		}
		seqs.Add(e, hs)
	}
	return nil
}
