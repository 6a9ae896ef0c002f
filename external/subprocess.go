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

package external

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/furlan-lab/SpecHLA/encoding/fasta"
	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/grailbio/base/errors"
	"v.io/x/lib/gosh"
	"v.io/x/lib/vlog"
)

// Subprocess implements every capability by running the tools named in
// Tools through bash.
type Subprocess struct {
	Tools Tools

	// mu serializes tabix indexing of the consensus VCFs.
	mu sync.Mutex
}

var (
	_ Aligner     = (*Subprocess)(nil)
	_ Caller      = (*Subprocess)(nil)
	_ Consensus   = (*Subprocess)(nil)
	_ Phaser      = (*Subprocess)(nil)
	_ BlockScorer = (*Subprocess)(nil)
	_ DupTyper    = (*Subprocess)(nil)
)

// NewSubprocess returns a Subprocess over t.
func NewSubprocess(t Tools) *Subprocess { return &Subprocess{Tools: t} }

// quote single-quotes s for bash.
func quote(s string) string {
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}

func quoteAll(args ...string) string {
	q := make([]string, len(args))
	for i, a := range args {
		q[i] = quote(a)
	}
	return strings.Join(q, " ")
}

// run executes script under "bash -e -o pipefail" and returns its standard
// output.
func (s *Subprocess) run(ctx context.Context, stage, script string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sh := gosh.NewShell(nil)
	sh.ContinueOnError = true
	defer sh.Cleanup()
	vlog.VI(1).Infof("external: %s:\n%s", stage, script)
	cmd := sh.Cmd(s.Tools.Bash, "-e", "-o", "pipefail", "-c", script)
	out := cmd.Stdout()
	if cmd.Err != nil {
		return "", errors.E(cmd.Err, "external", stage)
	}
	return out, nil
}

// Align implements Aligner with bwa mem and samtools.
func (s *Subprocess) Align(ctx context.Context, req AlignRequest) error {
	t := s.Tools
	script := fmt.Sprintf(`%[1]s faidx %[3]s
%[2]s index %[3]s 2>/dev/null
%[2]s mem -B 1 -O 1,1 -L 1,1 -U 1 -R '@RG\tID:sample\tSM:sample' -Y %[3]s %[4]s %[5]s 2>/dev/null | %[1]s view -q 1 -F 4 -Sb - | %[1]s sort -o %[6]s -
%[1]s index %[6]s
`, quote(t.Samtools), quote(t.BWA), quote(req.Ref), quote(req.FQ1), quote(req.FQ2), quote(req.Out))
	_, err := s.run(ctx, "align", script)
	return err
}

// Call implements Caller with freebayes in diploid mode.
func (s *Subprocess) Call(ctx context.Context, req CallRequest) error {
	script := fmt.Sprintf("%s -f %s -p 2 %s > %s\n",
		quote(s.Tools.Freebayes), quote(req.Ref), quote(req.BAM), quote(req.Out))
	_, err := s.run(ctx, "call", script)
	return err
}

// Consensus implements Consensus with samtools faidx and bcftools consensus.
// VCF must be bgzf-compressed.
func (s *Subprocess) Consensus(ctx context.Context, req ConsensusRequest) ([]string, error) {
	out := make([]string, len(req.Regions))
	var names []string
	for _, r := range req.Regions {
		if r.Len() > 0 {
			names = append(names, r.String())
		}
	}
	if len(names) == 0 {
		return out, nil
	}
	if err := s.index(ctx, req.VCF); err != nil {
		return nil, err
	}
	t := s.Tools
	script := fmt.Sprintf("%s faidx %s %s | %s consensus -H %d %s 2>/dev/null\n",
		quote(t.Samtools), quote(req.Ref), quoteAll(names...),
		quote(t.Bcftools), req.Hap+1, quote(req.VCF))
	stdout, err := s.run(ctx, "consensus", script)
	if err != nil {
		return nil, err
	}
	return splitConsensus(stdout, req.Regions)
}

// splitConsensus returns the sequence of each of regions from the FASTA
// text, whose records are named by the region they were extracted from.
// Zero-length regions yield "".
func splitConsensus(text string, regions []interval.Entry) ([]string, error) {
	fa, err := fasta.New(strings.NewReader(text))
	if err != nil {
		return nil, errors.E(err, "external.Consensus")
	}
	got := make(map[interval.Entry]string)
	for _, name := range fa.SeqNames() {
		e, err := interval.ParseRegion(name)
		if err != nil {
			return nil, errors.E(err, "external.Consensus")
		}
		n, err := fa.Len(name)
		if err != nil {
			return nil, err
		}
		if got[e], err = fa.Get(name, 0, n); err != nil {
			return nil, err
		}
	}
	out := make([]string, len(regions))
	for i, r := range regions {
		if r.Len() == 0 {
			continue
		}
		seq, ok := got[r]
		if !ok {
			return nil, errors.E(errors.NotExist, "external.Consensus", "no sequence for region", r.String())
		}
		out[i] = seq
	}
	return out, nil
}

// index builds the tabix index of vcf unless one newer than vcf exists.
// Consensus calls for different haplotypes may share a VCF.
func (s *Subprocess) index(ctx context.Context, vcf string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, err := os.Stat(vcf)
	if err != nil {
		return errors.E(err, "external.Consensus", vcf)
	}
	if idx, err := os.Stat(vcf + ".tbi"); err == nil && !idx.ModTime().Before(src.ModTime()) {
		return nil
	}
	_, err = s.run(ctx, "index", fmt.Sprintf("%s -f -p vcf %s\n", quote(s.Tools.Tabix), quote(vcf)))
	return err
}

// Phase implements Phaser with ExtractHAIRs and SpecHap.
func (s *Subprocess) Phase(ctx context.Context, req PhaseRequest) error {
	if err := req.Linkage.Validate(); err != nil {
		return errors.E(errors.Invalid, "external.Phase", err)
	}
	_, err := s.run(ctx, "phase", phaseScript(s.Tools, req))
	return err
}

// phaseScript extracts the fragments of the short reads and of the
// linkage reads of req, sorts them by first site and phases req.VCF.
func phaseScript(t Tools, req PhaseRequest) string {
	var (
		b        strings.Builder
		l        = req.Linkage
		ref, vcf = quote(req.Ref), quote(req.VCF)
		frag     = filepath.Join(req.WorkDir, "fragment.file")
		linkFrag = filepath.Join(req.WorkDir, "fragment.linkage.file")
		sorted   = filepath.Join(req.WorkDir, "fragment.sorted.file")
		frags    = append([]string{frag}, req.Fragments...)
		format   = ""
		key      = 3
		mode     = ""
	)
	if l.NewFormat() {
		format, key = "--new_format 1 ", 6
	}
	extract := func(flags, bam, out string) {
		fmt.Fprintf(&b, "%s %s--triallelic 1 %s--indels 1 --ref %s --bam %s --VCF %s --out %s >/dev/null 2>&1\n",
			quote(t.ExtractHAIRs), format, flags, ref, quote(bam), vcf, quote(out))
	}
	// align writes the reads produced by the command line cmd, primary and
	// mapped only, to a sorted BAM and returns its path.
	align := func(cmd string) string {
		sam := filepath.Join(req.WorkDir, "linkage.sam")
		bam := filepath.Join(req.WorkDir, "linkage.sort.bam")
		fmt.Fprintf(&b, "%s > %s\n", cmd, quote(sam))
		fmt.Fprintf(&b, "%[1]s view -F 2308 -b -T %[2]s %[3]s | %[1]s sort -o %[4]s -\n", quote(t.Samtools), ref, quote(sam), quote(bam))
		return bam
	}

	fmt.Fprintf(&b, "%s -f -p vcf %s\n", quote(t.Tabix), vcf)
	extract("", req.BAM, frag)
	switch l.Kind {
	case PacBio:
		extract("--pacbio 1 ", align(fmt.Sprintf("%s -a %s %s 2>/dev/null", quote(t.Minimap2), ref, quote(l.FQ1))), linkFrag)
		mode = "-P "
	case Nanopore:
		extract("--ONT 1 ", align(fmt.Sprintf("%s -a %s %s 2>/dev/null", quote(t.Minimap2), ref, quote(l.FQ1))), linkFrag)
		mode = "-N "
	case HiC:
		// Reads with alternative or supplementary alignments are dropped.
		extract("--hic 1 ", align(fmt.Sprintf("%s mem -5SP -Y -U 10000 -L 10000,10000 -O 7,7 -E 2,2 %s %s %s 2>/dev/null | { grep -v -e 'XA:' -e 'SA:' || true; }",
			quote(t.BWA), ref, quote(l.FQ1), quote(l.FQ2))), linkFrag)
		mode = "-H --new_format "
	case TenX:
		bed := filepath.Join(req.WorkDir, "barcode_spanning.bed")
		extract("--10X 1 ", l.BAM, linkFrag)
		fmt.Fprintf(&b, "%s %s %s\n", quote(t.BarcodeExtract), quote(l.BAM), quote(bed))
		fmt.Fprintf(&b, "%s -f -c %s > %s\n", quote(t.Bgzip), quote(bed), quote(bed+".gz"))
		fmt.Fprintf(&b, "%s -f -p bed %s\n", quote(t.Tabix), quote(bed+".gz"))
		mode = fmt.Sprintf("-T --frag_stat %s --new_format ", quote(bed+".gz"))
	}
	if l.Kind != ShortReads {
		frags = append(frags, linkFrag)
	}
	fmt.Fprintf(&b, "cat %s | sort -n -k%d > %s\n", quoteAll(frags...), key, quote(sorted))
	fmt.Fprintf(&b, "%s %s--window_size 15000 --vcf %s --frag %s --out %s >/dev/null 2>&1\n",
		quote(t.SpecHap), mode, vcf, quote(sorted), quote(req.Out))
	return b.String()
}

// Score implements BlockScorer with the read_unphased_block.pl and
// phase_unlinked_block.py helpers from Tools.ScriptDir.
func (s *Subprocess) Score(ctx context.Context, req ScoreRequest) error {
	t := s.Tools
	score := filepath.Join(req.WorkDir, "break_points_score.txt")
	script := fmt.Sprintf("%s %s %s %s %d %s\n%s %s %s %s\n",
		quote(t.Perl), quote(filepath.Join(t.ScriptDir, "read_unphased_block.pl")),
		quote(req.Report), quote(req.WorkDir), req.Strains, quote(score),
		quote(t.Python), quote(filepath.Join(t.ScriptDir, "phase_unlinked_block.py")),
		quote(score), quote(req.Out))
	_, err := s.run(ctx, "score", script)
	return err
}

// TypeDup implements DupTyper by blasting the first and second mates inside
// the band against Tools.DupDB and ranking candidates with count.read.pl.
func (s *Subprocess) TypeDup(ctx context.Context, req DupRequest) error {
	t := s.Tools
	if t.DupDB == "" {
		return errors.E(errors.Invalid, "external.TypeDup", "no duplication database configured")
	}
	extract := filepath.Join(req.WorkDir, "extract.fa")
	blast := filepath.Join(req.WorkDir, "extract.read.blast")
	count := filepath.Join(req.WorkDir, "DRB1.hla.count")
	script := fmt.Sprintf(`%[1]s view -f 64 %[2]s %[3]s | cut -f 1,6,10 | sort | uniq | awk '{OFS="\n"}{print ">"$1"##1 "$2,$3}' > %[4]s
%[1]s view -f 128 %[2]s %[3]s | cut -f 1,6,10 | sort | uniq | awk '{OFS="\n"}{print ">"$1"##2 "$2,$3}' >> %[4]s
%[5]s -query %[4]s -out %[6]s -db %[7]s -outfmt 6 -strand plus -penalty -1 -reward 1 -gapopen 4 -gapextend 1
%[8]s %[9]s %[10]s
sort -k3,3nr -k4,4nr %[11]s | awk 'NR<=%[12]d' | awk '$3>0.7' | awk '$4>5' > %[13]s
`, quote(t.Samtools), quote(req.BAM), quote(req.Band.String()), quote(extract),
		quote(t.Blastn), quote(blast), quote(t.DupDB),
		quote(t.Perl), quote(filepath.Join(t.ScriptDir, "count.read.pl")), quote(req.WorkDir),
		quote(count), req.Strains, quote(req.Out))
	_, err := s.run(ctx, "dup-type", script)
	return err
}
