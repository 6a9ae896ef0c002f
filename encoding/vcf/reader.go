package vcf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

const maxLineLen = 64 << 20

// Reader parses VCF records from a stream.
type Reader struct {
	Header  *Header
	scanner *bufio.Scanner
	lineIdx int
	pending string
	err     error
}

// NewReader consumes the header of the VCF stream r.
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLen)
	vr := &Reader{Header: &Header{}, scanner: scanner}
	for scanner.Scan() {
		vr.lineIdx++
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "##"):
			vr.Header.Meta = append(vr.Header.Meta, line)
		case strings.HasPrefix(line, "#"):
			vr.Header.Columns = line
			return vr, nil
		case line == "":
		default:
			// Headerless input; keep the first record for Read.
			vr.Header.Columns, vr.Header.Headerless = DefaultColumns, true
			vr.pending = line
			return vr, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if vr.Header.Columns == "" {
		vr.Header.Columns, vr.Header.Headerless = DefaultColumns, true
	}
	return vr, nil
}

// Read returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Read() (*Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	for {
		var line string
		if r.pending != "" {
			line, r.pending = r.pending, ""
		} else {
			if !r.scanner.Scan() {
				if r.err = r.scanner.Err(); r.err == nil {
					r.err = io.EOF
				}
				return nil, r.err
			}
			r.lineIdx++
			line = r.scanner.Text()
		}
		if line == "" || line[0] == '#' {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			r.err = fmt.Errorf("vcf.Read: line %d: %v", r.lineIdx, err)
			return nil, r.err
		}
		return rec, nil
	}
}

// ParseRecord parses one tab-separated data line.
func ParseRecord(line string) (*Record, error) {
	cols := strings.Split(line, "\t")
	if len(cols) < 8 {
		return nil, fmt.Errorf("expected at least 8 columns, got %d", len(cols))
	}
	pos, err := strconv.Atoi(cols[1])
	if err != nil || pos < 1 {
		return nil, fmt.Errorf("bad position %q", cols[1])
	}
	rec := &Record{
		Chrom:  cols[0],
		Pos:    pos,
		ID:     cols[2],
		Ref:    cols[3],
		Filter: cols[6],
		Info:   cols[7],
	}
	if cols[4] != Missing && cols[4] != "" {
		rec.Alts = strings.Split(cols[4], ",")
	}
	if cols[5] != Missing && cols[5] != "" {
		if rec.Qual, err = strconv.ParseFloat(cols[5], 64); err != nil {
			return nil, fmt.Errorf("bad quality %q", cols[5])
		}
		rec.HasQual = true
	}
	if len(cols) > 9 {
		rec.Format = strings.Split(cols[8], ":")
		rec.Sample = strings.Split(cols[9], ":")
	}
	return rec, nil
}

// ReadFile reads all records of a plain or gzip/bgzip-compressed VCF file.
func ReadFile(ctx context.Context, path string) (hdr *Header, recs []*Record, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "vcf.ReadFile", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, gerr := gzip.NewReader(reader)
		if gerr != nil {
			return nil, nil, errors.E(gerr, "vcf.ReadFile", path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	vr, err := NewReader(reader)
	if err != nil {
		return nil, nil, errors.E(err, "vcf.ReadFile", path)
	}
	for {
		rec, rerr := vr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, nil, errors.E(rerr, path)
		}
		recs = append(recs, rec)
	}
	return vr.Header, recs, nil
}
