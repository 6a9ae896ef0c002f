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

package block

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// ReportHeader is the first line of the unphased-site report.
const ReportHeader = "#gene   locus   00      01      10      11      points_num      next_locus"

// reportPoints and reportNext fill the fixed columns of a report row.
const (
	reportPoints = 20
	reportNext   = 100
)

// Break is a heterozygous site after which phasing is interrupted, either by
// an unphased site or a phase-set change.
type Break struct {
	Chrom string
	Pos   int
}

func isHet(r *vcf.Record) bool {
	alleles, _, err := r.Genotype()
	if err != nil || len(alleles) == 0 {
		return false
	}
	for _, a := range alleles[1:] {
		if a != alleles[0] {
			return true
		}
	}
	return false
}

// Refine walks the phaser's records on locus in order.  Every unphased record
// is given the current phase set and marked phased.  A break is reported for
// the previous heterozygous record whenever an unphased heterozygous record
// or a phase-set change is met; each position is reported once.  Records on
// other contigs are dropped.
//
// Since filled records count as phased, a later block flip covering one of
// them swaps it along with the block.
func Refine(recs []*vcf.Record, locus string) (refined []*vcf.Record, breaks []Break) {
	block := 1
	var prev *vcf.Record
	reported := make(map[int]bool)
	report := func() {
		if prev != nil && !reported[prev.Pos] {
			reported[prev.Pos] = true
			breaks = append(breaks, Break{Chrom: prev.Chrom, Pos: prev.Pos})
		}
	}
	for _, in := range recs {
		if in.Chrom != locus {
			continue
		}
		r := in.Clone()
		het := isHet(r)
		if alleles, phased, err := r.Genotype(); err == nil && !phased {
			r.SetField("PS", fmt.Sprint(block))
			if het {
				report()
			}
			r.SetGenotype(alleles, true)
		}
		if ps := r.PhaseSet(); ps != block {
			report()
			block = ps
		}
		if het {
			prev = r
		}
		refined = append(refined, r)
	}
	return refined, breaks
}

// WriteReport writes the unphased-site report.
func WriteReport(w io.Writer, breaks []Break) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, ReportHeader)
	for _, b := range breaks {
		fmt.Fprintf(bw, "%s %d - - - - %d %d\n", b.Chrom, b.Pos, reportPoints, b.Pos+reportNext)
	}
	return bw.Flush()
}

// WriteReportFile writes the report to path.
func WriteReportFile(ctx context.Context, path string, breaks []Break) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "block.WriteReportFile", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	return WriteReport(out.Writer(ctx), breaks)
}
