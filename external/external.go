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

// Package external defines the capabilities the pipeline obtains from
// external bioinformatics tools, and implementations backed by subprocesses.
//
// Every capability is an interface with a single method taking a request
// struct of file paths.  The XxxFunc adapters let tests substitute plain
// functions.  RefConsensus implements Consensus in process.
package external

import (
	"context"
	"fmt"

	"github.com/furlan-lab/SpecHLA/interval"
)

// AlignRequest asks for paired reads to be realigned against Ref.
type AlignRequest struct {
	Ref      string
	FQ1, FQ2 string
	// Out is the coordinate-sorted, indexed BAM to write.
	Out string
}

// Aligner realigns reads, typically against a reference extended with
// insertion placeholder contigs.
type Aligner interface {
	Align(ctx context.Context, req AlignRequest) error
}

// AlignerFunc adapts a function to Aligner.
type AlignerFunc func(ctx context.Context, req AlignRequest) error

// Align implements Aligner.
func (f AlignerFunc) Align(ctx context.Context, req AlignRequest) error { return f(ctx, req) }

// CallRequest asks for diploid small-variant calls.
type CallRequest struct {
	Ref, BAM string
	Out      string
}

// Caller calls small variants.
type Caller interface {
	Call(ctx context.Context, req CallRequest) error
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, req CallRequest) error

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, req CallRequest) error { return f(ctx, req) }

// ConsensusRequest asks for the sequence of Regions of Ref on haplotype Hap
// (0-based) after applying the phased calls in VCF.
type ConsensusRequest struct {
	Ref, VCF string
	Regions  []interval.Entry
	Hap      int
}

// Consensus produces haplotype consensus sequences.  The result has one
// sequence per region, in order; zero-length regions yield "".
type Consensus interface {
	Consensus(ctx context.Context, req ConsensusRequest) ([]string, error)
}

// ConsensusFunc adapts a function to Consensus.
type ConsensusFunc func(ctx context.Context, req ConsensusRequest) ([]string, error)

// Consensus implements Consensus.
func (f ConsensusFunc) Consensus(ctx context.Context, req ConsensusRequest) ([]string, error) {
	return f(ctx, req)
}

// Linkage names the technology of reads that add long-range linkage to
// phasing.
type Linkage int

const (
	// ShortReads phases from the short reads of the request alone.
	ShortReads Linkage = iota
	PacBio
	Nanopore
	HiC
	// TenX is barcoded linked reads.
	TenX
)

var linkageNames = [...]string{"short", "pacbio", "nanopore", "hic", "10x"}

func (l Linkage) String() string {
	if l < 0 || int(l) >= len(linkageNames) {
		return fmt.Sprintf("Linkage(%d)", int(l))
	}
	return linkageNames[l]
}

// LinkageReads are reads of one technology whose fragments are added to
// those of the short reads.  PacBio and Nanopore take long reads in FQ1.
// HiC takes the forward and reverse mates in FQ1 and FQ2.  TenX takes a
// barcode-tagged BAM already aligned to the locus reference.
type LinkageReads struct {
	Kind     Linkage
	FQ1, FQ2 string
	BAM      string
}

// NewFormat reports whether the phaser reads fragments in the barcoded
// layout, which Hi-C and linked reads need.
func (r LinkageReads) NewFormat() bool { return r.Kind == HiC || r.Kind == TenX }

// Validate checks that the inputs Kind needs are set.
func (r LinkageReads) Validate() error {
	switch r.Kind {
	case ShortReads:
		return nil
	case PacBio, Nanopore:
		if r.FQ1 == "" {
			return fmt.Errorf("%s linkage needs a read file", r.Kind)
		}
	case HiC:
		if r.FQ1 == "" || r.FQ2 == "" {
			return fmt.Errorf("hic linkage needs forward and reverse reads")
		}
	case TenX:
		if r.BAM == "" {
			return fmt.Errorf("10x linkage needs an aligned BAM")
		}
	default:
		return fmt.Errorf("unknown linkage %v", r.Kind)
	}
	return nil
}

// PhaseRequest asks for the heterozygous calls in VCF to be phased from the
// reads in BAM.  Fragments are additional linkage files appended to the
// fragments extracted from BAM; they must be in the layout Linkage selects.
type PhaseRequest struct {
	Ref, BAM, VCF string
	Fragments     []string
	Linkage       LinkageReads
	// WorkDir holds intermediate fragment files.
	WorkDir string
	Out     string
}

// Phaser phases heterozygous sites into blocks.
type Phaser interface {
	Phase(ctx context.Context, req PhaseRequest) error
}

// PhaserFunc adapts a function to Phaser.
type PhaserFunc func(ctx context.Context, req PhaseRequest) error

// Phase implements Phaser.
func (f PhaserFunc) Phase(ctx context.Context, req PhaseRequest) error { return f(ctx, req) }

// ScoreRequest asks for the orientation of the phase blocks delimited by the
// unphased-site Report.  Out receives "locus start end flip" rows.
type ScoreRequest struct {
	Report  string
	Strains int
	WorkDir string
	Out     string
}

// BlockScorer decides block orientations.
type BlockScorer interface {
	Score(ctx context.Context, req ScoreRequest) error
}

// BlockScorerFunc adapts a function to BlockScorer.
type BlockScorerFunc func(ctx context.Context, req ScoreRequest) error

// Score implements BlockScorer.
func (f BlockScorerFunc) Score(ctx context.Context, req ScoreRequest) error { return f(ctx, req) }

// DupRequest asks for the reads of BAM inside Band to be typed against the
// candidate sequences of the duplicated band.  Out receives the ranked
// catalogue of at most Strains candidates.
type DupRequest struct {
	BAM     string
	Band    interval.Entry
	Strains int
	WorkDir string
	Out     string
}

// DupTyper types a duplicated band.
type DupTyper interface {
	TypeDup(ctx context.Context, req DupRequest) error
}

// DupTyperFunc adapts a function to DupTyper.
type DupTyperFunc func(ctx context.Context, req DupRequest) error

// TypeDup implements DupTyper.
func (f DupTyperFunc) TypeDup(ctx context.Context, req DupRequest) error { return f(ctx, req) }
