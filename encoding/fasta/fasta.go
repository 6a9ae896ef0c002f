// Package fasta contains code for parsing and writing FASTA files.
// See http://www.htslib.org/doc/faidx.html.  Briefly, FASTA files consist of a
// number of named sequences that may be interrupted by newlines.  For example:
//
// >HLA_A
// ACGTAC
// GAGGAC
// >HLA_A_3150
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space are ignored.
// Region names emitted by samtools faidx ("HLA_A:1001-1500") are kept whole.
package fasta

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 300 // 300 MB

	// LineWidth is the number of bases per line written by Writer.
	LineWidth = 60
)

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Get returns a substring of the given sequence name at the given
	// coordinates, which are treated as a 0-based half-open interval
	// [start, end).  An empty interval yields "".
	Get(seqName string, start, end int) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (int, error)

	// SeqNames returns the names of all sequences, in the order of appearance in
	// the FASTA file.
	SeqNames() []string
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New creates a new Fasta that holds all the FASTA data from the given reader
// in memory.  Repeated names keep the last sequence.
func New(r io.Reader) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	var (
		seqName string
		inSeq   bool
		seq     strings.Builder
	)
	flush := func() {
		if !inSeq {
			return
		}
		if _, ok := f.seqs[seqName]; !ok {
			f.seqNames = append(f.seqNames, seqName)
		}
		f.seqs[seqName] = seq.String()
		seq.Reset()
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			flush()
			seqName = strings.Split(line[1:], " ")[0]
			if seqName == "" {
				return nil, errors.Errorf("malformed FASTA file: empty sequence name")
			}
			inSeq = true
			continue
		}
		if !inSeq {
			return nil, errors.Errorf("malformed FASTA file: sequence data before the first header")
		}
		seq.WriteString(line)
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	flush()
	return f, nil
}

// FromMap builds an in-memory Fasta; names are ordered as given.
func FromMap(names []string, seqs map[string]string) Fasta {
	f := &fasta{seqs: make(map[string]string, len(names))}
	for _, n := range names {
		f.seqNames = append(f.seqNames, n)
		f.seqs[n] = seqs[n]
	}
	return f
}

// Get implements Fasta.Get().
func (f *fasta) Get(seqName string, start, end int) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end < start {
		return "", errors.Errorf("start must not be greater than end")
	}
	if start < 0 || end > len(s) {
		return "", errors.Errorf("invalid query range %d - %d for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *fasta) Len(seq string) (int, error) {
	s, ok := f.seqs[seq]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seq)
	}
	return len(s), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *fasta) SeqNames() []string {
	return f.seqNames
}

// ReadFile loads the FASTA file at path into memory.  Compressed input is
// detected from its contents.
func ReadFile(ctx context.Context, path string) (fa Fasta, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if fa, err = New(reader); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return fa, nil
}
