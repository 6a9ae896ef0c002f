// Package vcf reads and writes the single-sample VCF files exchanged with the
// variant caller and the block phaser.  Only the fields the phaser inspects
// are parsed; everything else is carried verbatim so that records survive a
// read/modify/write round trip.
package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Missing is the VCF placeholder for an absent value.
const Missing = "."

// Header holds the meta-information lines ("##...") and the column header
// line ("#CHROM...") of a VCF file, without trailing newlines.
type Header struct {
	Meta    []string
	Columns string
	// Headerless is set by NewReader when the stream has no column line
	// and Columns was defaulted.
	Headerless bool
}

// DefaultColumns is the column line used when a header has none.
const DefaultColumns = "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tSAMPLE"

// NewHeader returns a minimal VCFv4.2 header with the given contigs.
func NewHeader(contigs ...string) *Header {
	h := &Header{
		Meta:    []string{"##fileformat=VCFv4.2"},
		Columns: DefaultColumns,
	}
	h.Meta = append(h.Meta, `##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`)
	for _, c := range contigs {
		h.Meta = append(h.Meta, fmt.Sprintf("##contig=<ID=%s>", c))
	}
	return h
}

// Record is one data line of a VCF file.  Only the first sample column is
// kept.
type Record struct {
	Chrom string
	// Pos is 1-based.
	Pos int
	ID  string
	Ref string
	// Alts is empty when the ALT column is ".".
	Alts []string
	// Qual is valid only if HasQual is set.
	Qual    float64
	HasQual bool
	Filter  string
	// Info is the raw INFO column.
	Info   string
	Format []string
	Sample []string
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Alts = append([]string(nil), r.Alts...)
	c.Format = append([]string(nil), r.Format...)
	c.Sample = append([]string(nil), r.Sample...)
	return &c
}

// Allele returns the allele string for the allele index idx: 0 is the
// reference, k>0 the k'th alternate.
func (r *Record) Allele(idx int) (string, error) {
	if idx == 0 {
		return r.Ref, nil
	}
	if idx < 0 || idx > len(r.Alts) {
		return "", fmt.Errorf("vcf.Allele: %s:%d has no allele %d", r.Chrom, r.Pos, idx)
	}
	return r.Alts[idx-1], nil
}

// InfoField returns the value of the INFO key.  Flags yield "".
func (r *Record) InfoField(key string) (string, bool) {
	if r.Info == "" || r.Info == Missing {
		return "", false
	}
	for _, kv := range strings.Split(r.Info, ";") {
		if kv == key {
			return "", true
		}
		if strings.HasPrefix(kv, key) && len(kv) > len(key) && kv[len(key)] == '=' {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// Depth returns INFO/DP.
func (r *Record) Depth() (int, bool) {
	v, ok := r.InfoField("DP")
	if !ok || v == Missing {
		return 0, false
	}
	dp, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return dp, true
}

// Field returns the sample value of the FORMAT key.
func (r *Record) Field(key string) (string, bool) {
	for i, k := range r.Format {
		if k == key {
			if i >= len(r.Sample) {
				return Missing, true
			}
			return r.Sample[i], true
		}
	}
	return "", false
}

// SetField sets the sample value of the FORMAT key, appending the key if it
// is absent.  GT is kept in the first position, as the format requires.
func (r *Record) SetField(key, val string) {
	for len(r.Sample) < len(r.Format) {
		r.Sample = append(r.Sample, Missing)
	}
	for i, k := range r.Format {
		if k == key {
			r.Sample[i] = val
			return
		}
	}
	if key == "GT" {
		r.Format = append([]string{key}, r.Format...)
		r.Sample = append([]string{val}, r.Sample...)
		return
	}
	r.Format = append(r.Format, key)
	r.Sample = append(r.Sample, val)
}

// Genotype parses the GT field into allele indices.  Any length is accepted,
// so triploid calls such as "0/1/1" come back with three values.
func (r *Record) Genotype() (alleles []int, phased bool, err error) {
	gt, ok := r.Field("GT")
	if !ok || gt == "" || gt == Missing {
		return nil, false, fmt.Errorf("vcf.Genotype: %s:%d has no genotype", r.Chrom, r.Pos)
	}
	phased = strings.IndexByte(gt, '|') >= 0 && strings.IndexByte(gt, '/') < 0
	parts := strings.FieldsFunc(gt, func(c rune) bool { return c == '|' || c == '/' })
	alleles = make([]int, len(parts))
	for i, p := range parts {
		if p == Missing {
			return nil, false, fmt.Errorf("vcf.Genotype: %s:%d has a missing allele in %q", r.Chrom, r.Pos, gt)
		}
		if alleles[i], err = strconv.Atoi(p); err != nil {
			return nil, false, fmt.Errorf("vcf.Genotype: %s:%d: bad genotype %q", r.Chrom, r.Pos, gt)
		}
	}
	// A haploid call carries no separator; treat it as phased.
	if len(parts) == 1 {
		phased = true
	}
	return alleles, phased, nil
}

// SetGenotype replaces the GT field.
func (r *Record) SetGenotype(alleles []int, phased bool) {
	sep := "/"
	if phased {
		sep = "|"
	}
	parts := make([]string, len(alleles))
	for i, a := range alleles {
		parts[i] = strconv.Itoa(a)
	}
	r.SetField("GT", strings.Join(parts, sep))
}

// AlleleDepths parses the AD field.  Missing entries count as zero.
func (r *Record) AlleleDepths() ([]int, error) {
	ad, ok := r.Field("AD")
	if !ok || ad == Missing {
		return nil, fmt.Errorf("vcf.AlleleDepths: %s:%d has no AD field", r.Chrom, r.Pos)
	}
	parts := strings.Split(ad, ",")
	depths := make([]int, len(parts))
	for i, p := range parts {
		if p == Missing {
			continue
		}
		d, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("vcf.AlleleDepths: %s:%d: bad AD %q", r.Chrom, r.Pos, ad)
		}
		depths[i] = d
	}
	return depths, nil
}

// PhaseSet returns the PS field, or -1 if it is absent.
func (r *Record) PhaseSet() int {
	ps, ok := r.Field("PS")
	if !ok || ps == Missing {
		return -1
	}
	v, err := strconv.Atoi(ps)
	if err != nil {
		return -1
	}
	return v
}
