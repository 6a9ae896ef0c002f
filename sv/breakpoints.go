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

package sv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Breakpoint is one row of a breakpoint file:
//
//   chrom start + chrom end + seq [copy]
//
// Coordinates are 1-based.  Start == End is an insertion of Seq.
type Breakpoint struct {
	Chrom      string
	Start, End int
	Seq        string
	// Copy is the caller's copy-number hint, 0 if absent.
	Copy int
}

// Insertion reports whether b is an insertion.
func (b Breakpoint) Insertion() bool { return b.Start == b.End }

// ParseOpts controls ReadBreakpoints.
type ParseOpts struct {
	// Locus selects the rows to keep.
	Locus string
	// Rows with either coordinate strictly between ExcludeLo and ExcludeHi are
	// dropped.  Ignored when ExcludeHi is 0.
	ExcludeLo, ExcludeHi int
}

func (o ParseOpts) excluded(pos int) bool {
	return o.ExcludeHi > 0 && pos > o.ExcludeLo && pos < o.ExcludeHi
}

// ReadBreakpoints parses whitespace-separated breakpoint rows.  Comment lines,
// rows for other loci and rows whose two contigs differ are skipped.
func ReadBreakpoints(r io.Reader, opts ParseOpts) ([]Breakpoint, error) {
	var bps []Breakpoint
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		f := strings.Fields(line)
		if len(f) < 7 {
			return nil, fmt.Errorf("sv.ReadBreakpoints: line %d: expected at least 7 columns, got %d", lineno, len(f))
		}
		if f[0] != f[3] {
			log.Debug.Printf("sv.ReadBreakpoints: line %d: skipping inter-contig row %s/%s", lineno, f[0], f[3])
			continue
		}
		if f[0] != opts.Locus {
			continue
		}
		start, err := parseCoord(f[1])
		if err != nil {
			return nil, fmt.Errorf("sv.ReadBreakpoints: line %d: %v", lineno, err)
		}
		end, err := parseCoord(f[4])
		if err != nil {
			return nil, fmt.Errorf("sv.ReadBreakpoints: line %d: %v", lineno, err)
		}
		if opts.excluded(start) || opts.excluded(end) {
			log.Debug.Printf("sv.ReadBreakpoints: %s:%d-%d inside the excluded band", f[0], start, end)
			continue
		}
		if end < start {
			return nil, fmt.Errorf("sv.ReadBreakpoints: line %d: end %d before start %d", lineno, end, start)
		}
		bp := Breakpoint{Chrom: f[0], Start: start, End: end, Seq: f[6]}
		if len(f) > 7 {
			if bp.Copy, err = strconv.Atoi(f[7]); err != nil {
				return nil, fmt.Errorf("sv.ReadBreakpoints: line %d: bad copy number %q", lineno, f[7])
			}
		}
		bps = append(bps, bp)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return bps, nil
}

// parseCoord accepts integral coordinates written as floats ("3150.0").
func parseCoord(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad coordinate %q", s)
	}
	return int(v), nil
}

// ReadBreakpointsFile reads a breakpoint file.  A missing file yields no
// breakpoints.
func ReadBreakpointsFile(ctx context.Context, path string, opts ParseOpts) (bps []Breakpoint, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		if errors.Is(errors.NotExist, err) {
			log.Printf("sv.ReadBreakpointsFile: %s does not exist, assuming no long indels", path)
			return nil, nil
		}
		return nil, errors.E(err, "sv.ReadBreakpointsFile", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if bps, err = ReadBreakpoints(in.Reader(ctx), opts); err != nil {
		return nil, errors.E(err, "sv.ReadBreakpointsFile", path)
	}
	return bps, nil
}

// WriteBreakpoints writes bps in the format ReadBreakpoints accepts.
func WriteBreakpoints(w io.Writer, bps []Breakpoint) error {
	bw := bufio.NewWriter(w)
	for _, bp := range bps {
		seq := bp.Seq
		if seq == "" {
			seq = vcf.Missing
		}
		if _, err := fmt.Fprintf(bw, "%s %d + %s %d + %s %d\n", bp.Chrom, bp.Start, bp.Chrom, bp.End, seq, bp.Copy); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// MinSVLen is the shortest SV converted by BreakpointsFromVCF.
const MinSVLen = 100

// BreakpointsFromVCF converts the DEL and INS records of a structural-variant
// VCF into breakpoints.  Starts are clamped to minStart.  Records shorter than
// MinSVLen or without a 0/1 or 1/1 genotype are dropped.
func BreakpointsFromVCF(recs []*vcf.Record, minStart int) []Breakpoint {
	var bps []Breakpoint
	for _, rec := range recs {
		kind := svType(rec)
		if kind == "" {
			continue
		}
		lenStr, ok := rec.InfoField("SVLEN")
		if !ok {
			continue
		}
		svLen, err := strconv.Atoi(strings.SplitN(lenStr, ",", 2)[0])
		if err != nil {
			log.Error.Printf("sv.BreakpointsFromVCF: %s:%d: bad SVLEN %q", rec.Chrom, rec.Pos, lenStr)
			continue
		}
		if svLen < 0 {
			svLen = -svLen
		}
		if svLen < MinSVLen {
			continue
		}
		gt, _, err := rec.Genotype()
		if err != nil || len(gt) != 2 {
			continue
		}
		var copies int
		switch {
		case gt[0] == 1 && gt[1] == 1:
			copies = 2
		case gt[0]+gt[1] == 1:
			copies = 1
		default:
			continue
		}
		bp := Breakpoint{Chrom: rec.Chrom, Start: rec.Pos + 1, Copy: copies}
		if bp.Start < minStart {
			bp.Start = minStart
		}
		bp.End = bp.Start
		if kind == "DEL" {
			bp.End = bp.Start + len(rec.Ref)
			bp.Seq = vcf.Missing
		} else {
			if len(rec.Alts) == 0 || len(rec.Alts[0]) < 2 {
				continue
			}
			bp.Seq = rec.Alts[0][1:]
		}
		bps = append(bps, bp)
	}
	return bps
}

// svType returns "DEL", "INS" or "".  The ID column takes precedence over
// INFO/SVTYPE, matching callers that encode the type in the ID.
func svType(rec *vcf.Record) string {
	for _, kind := range []string{"DEL", "INS"} {
		if strings.Contains(rec.ID, kind) {
			return kind
		}
	}
	if t, ok := rec.InfoField("SVTYPE"); ok && (t == "DEL" || t == "INS") {
		return t
	}
	return ""
}

// InsertionDedupDistance is the distance within which a later insertion is
// taken to duplicate an earlier one.
const InsertionDedupDistance = 50

// implied deletion pieces no longer than this are discarded.
const minImpliedLen = 4

// FromBreakpoints converts the breakpoints of one locus into resolved
// regions: insertions within InsertionDedupDistance of an earlier kept
// insertion are dropped, each reported deletion is cut at every deletion and
// insertion boundary, pieces of at most 4bp are discarded, and the result is
// passed through Resolve.
func FromBreakpoints(bps []Breakpoint) []Region {
	var (
		dels, ins []Region
		points    []int
	)
	for _, bp := range bps {
		if !bp.Insertion() {
			d := NewDeletion(bp.Start-1, bp.End-1)
			dels = append(dels, d)
			points = append(points, d.Start, d.End)
			continue
		}
		dup := false
		for _, kept := range ins {
			if abs(kept.Anchor()-bp.Start) < InsertionDedupDistance {
				dup = true
				break
			}
		}
		if dup {
			log.Debug.Printf("sv.FromBreakpoints: dropping insertion at %d close to a kept one", bp.Start)
			continue
		}
		r := NewInsertion(bp.Start-1, bp.Seq)
		ins = append(ins, r)
		points = append(points, r.Start)
	}

	regions := append([]Region(nil), ins...)
	sort.Ints(points)
	for k := 0; k+1 < len(points); k++ {
		p, q := points[k], points[k+1]
		if p == q || q-p <= minImpliedLen {
			continue
		}
		for _, d := range dels {
			if d.Start <= p && q <= d.End {
				regions = append(regions, NewDeletion(p, q))
				break
			}
		}
	}
	return Resolve(regions)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
