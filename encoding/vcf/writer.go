package vcf

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// Writer emits VCF lines.
type Writer struct {
	w *tsv.Writer
}

// NewWriter writes the header to w and returns a Writer for the records.
func NewWriter(w io.Writer, hdr *Header) (*Writer, error) {
	vw := &Writer{w: tsv.NewWriter(w)}
	for _, line := range hdr.Meta {
		vw.w.WriteString(line)
		if err := vw.w.EndLine(); err != nil {
			return nil, err
		}
	}
	columns := hdr.Columns
	if columns == "" {
		columns = DefaultColumns
	}
	vw.w.WriteString(columns)
	if err := vw.w.EndLine(); err != nil {
		return nil, err
	}
	return vw, nil
}

// Write appends one record.
func (w *Writer) Write(r *Record) error {
	w.w.WriteString(r.Chrom)
	w.w.WriteString(strconv.Itoa(r.Pos))
	w.w.WriteString(orMissing(r.ID))
	w.w.WriteString(r.Ref)
	if len(r.Alts) == 0 {
		w.w.WriteString(Missing)
	} else {
		w.w.WriteString(strings.Join(r.Alts, ","))
	}
	if r.HasQual {
		w.w.WriteString(strconv.FormatFloat(r.Qual, 'g', -1, 64))
	} else {
		w.w.WriteString(Missing)
	}
	w.w.WriteString(orMissing(r.Filter))
	w.w.WriteString(orMissing(r.Info))
	if len(r.Format) > 0 {
		w.w.WriteString(strings.Join(r.Format, ":"))
		w.w.WriteString(strings.Join(r.Sample, ":"))
	}
	return w.w.EndLine()
}

// Flush flushes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func orMissing(s string) string {
	if s == "" {
		return Missing
	}
	return s
}

// WriteFile writes hdr and recs to path.  Paths ending in .gz are written
// bgzf-compressed so that the external tools can index them.
func WriteFile(ctx context.Context, path string, hdr *Header, recs []*Record) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "vcf.WriteFile", path)
	}
	defer file.CloseAndReport(ctx, out, &err)

	dst := io.Writer(out.Writer(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		bgzfWriter := bgzf.NewWriter(dst, 1)
		defer func() {
			if e := bgzfWriter.Close(); e != nil && err == nil {
				err = e
			}
		}()
		dst = bgzfWriter
	}
	w, err := NewWriter(dst, hdr)
	if err != nil {
		return errors.E(err, "vcf.WriteFile", path)
	}
	for _, r := range recs {
		if err = w.Write(r); err != nil {
			return errors.E(err, "vcf.WriteFile", path)
		}
	}
	return w.Flush()
}
