package fasta

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// Writer writes FASTA records, wrapping sequences at LineWidth bases.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(name, seq string) error {
	if _, err := w.w.WriteString(">" + name + "\n"); err != nil {
		return err
	}
	for start := 0; start < len(seq); start += LineWidth {
		end := start + LineWidth
		if end > len(seq) {
			end = len(seq)
		}
		if _, err := w.w.WriteString(seq[start:end]); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered data.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// WriteFile writes the named sequences of fa to path, in fa.SeqNames() order.
func WriteFile(ctx context.Context, path string, fa Fasta) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := NewWriter(out.Writer(ctx))
	for _, name := range fa.SeqNames() {
		n, err := fa.Len(name)
		if err != nil {
			return err
		}
		seq, err := fa.Get(name, 0, n)
		if err != nil {
			return err
		}
		if err := w.Write(name, seq); err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
	}
	return w.Flush()
}
