package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

const posMax = math.MaxInt32

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  int
	End     int
}

// Len returns the number of bases in the entry.
func (e Entry) Len() int { return e.End - e.Start0 }

// Contains checks whether the 0-based position pos lies in [Start0, End).
func (e Entry) Contains(pos int) bool { return pos >= e.Start0 && pos < e.End }

// String renders the entry as a samtools-style region, "chr:first-last" with
// 1-based inclusive coordinates.  This is also the key consensus extraction
// tools report for the region.
func (e Entry) String() string {
	return fmt.Sprintf("%s:%d-%d", e.ChrName, e.Start0+1, e.End)
}

// ParseRegion parses a samtools-style region, "chr", "chr:pos" or
// "chr:first-last" with 1-based inclusive positions, back into an Entry.  A
// bare contig name spans [0, posMax-1).
func ParseRegion(s string) (Entry, error) {
	colon := strings.LastIndexByte(s, ':')
	if colon < 0 {
		if s == "" {
			return Entry{}, fmt.Errorf("interval.ParseRegion: empty region")
		}
		return Entry{ChrName: s, End: posMax - 1}, nil
	}
	e := Entry{ChrName: s[:colon]}
	if e.ChrName == "" {
		return Entry{}, fmt.Errorf("interval.ParseRegion: %q: empty contig", s)
	}
	first, last := s[colon+1:], s[colon+1:]
	if dash := strings.IndexByte(first, '-'); dash >= 0 {
		first, last = first[:dash], first[dash+1:]
	}
	start, err := strconv.Atoi(first)
	if err != nil || start < 1 {
		return Entry{}, fmt.Errorf("interval.ParseRegion: %q: bad first position", s)
	}
	end, err := strconv.Atoi(last)
	if err != nil || end < start || end >= posMax {
		return Entry{}, fmt.Errorf("interval.ParseRegion: %q: bad last position", s)
	}
	e.Start0, e.End = start-1, end
	return e, nil
}

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// BEDUnion is a collection of length-2N sequences, one per contig, where N is
// the number of intervals on the contig.  The (0-based) start position of
// interval #k is in element [2k] and the end position is in element [2k+1],
// and the intervals are stored in increasing order.
type BEDUnion struct {
	nameMap map[string][]int
}

// NewBEDUnionFromEntries initializes a BEDUnion from entries in any order.
// Touching and overlapping entries are merged and empty ones dropped.
func NewBEDUnionFromEntries(entries []Entry) BEDUnion {
	sorted := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.End > e.Start0 {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ChrName != sorted[j].ChrName {
			return sorted[i].ChrName < sorted[j].ChrName
		}
		return sorted[i].Start0 < sorted[j].Start0
	})
	u := BEDUnion{nameMap: make(map[string][]int)}
	for _, e := range sorted {
		ivs := u.nameMap[e.ChrName]
		if n := len(ivs); n > 0 && e.Start0 <= ivs[n-1] {
			if e.End > ivs[n-1] {
				ivs[n-1] = e.End
			}
			continue
		}
		u.nameMap[e.ChrName] = append(ivs, e.Start0, e.End)
	}
	return u
}

// NewBEDUnion loads the intervals of a BED stream.  Only the first three
// columns are used; comment, "track" and "browser" lines are skipped.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (BEDUnion, error) {
	var entries []Entry
	scanner := bufio.NewScanner(reader)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnion: line %d has fewer than three columns", lineIdx)
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return BEDUnion{}, fmt.Errorf("interval.NewBEDUnion: line %d: %v", lineIdx, err)
		}
		if opts.OneBasedInput {
			start--
		}
		entries = append(entries, Entry{ChrName: fields[0], Start0: start, End: end})
	}
	if err := scanner.Err(); err != nil {
		return BEDUnion{}, err
	}
	return NewBEDUnionFromEntries(entries), nil
}

// NewBEDUnionFromPath loads the BED file at path, gzip-compressed if its
// name says so.
func NewBEDUnionFromPath(ctx context.Context, path string, opts NewBEDOpts) (u BEDUnion, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return BEDUnion{}, errors.E(err, "interval.NewBEDUnionFromPath", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return BEDUnion{}, errors.E(err, "interval.NewBEDUnionFromPath", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	if u, err = NewBEDUnion(r, opts); err != nil {
		return BEDUnion{}, errors.E(err, path)
	}
	return u, nil
}

// Union returns a BEDUnion covering the intervals of both u and o.
func (u BEDUnion) Union(o BEDUnion) BEDUnion {
	entries := u.Entries()
	entries = append(entries, o.Entries()...)
	return NewBEDUnionFromEntries(entries)
}

// Entries returns the merged intervals, ordered by contig name and position.
func (u BEDUnion) Entries() []Entry {
	names := make([]string, 0, len(u.nameMap))
	for name := range u.nameMap {
		names = append(names, name)
	}
	sort.Strings(names)
	var entries []Entry
	for _, name := range names {
		ivs := u.nameMap[name]
		for k := 0; k < len(ivs); k += 2 {
			entries = append(entries, Entry{ChrName: name, Start0: ivs[k], End: ivs[k+1]})
		}
	}
	return entries
}

// ContainsByName checks whether the (0-based) interval [pos, pos+1) is
// contained within the BEDUnion, where chromosome is specified by name.
func (u BEDUnion) ContainsByName(chrName string, pos int) bool {
	ivs := u.nameMap[chrName]
	// Index of the first endpoint > pos.  Odd means pos is inside an interval.
	idx := sort.Search(len(ivs), func(i int) bool { return ivs[i] > pos })
	return idx&1 == 1
}

// Intersects checks whether [start, end) on the named chromosome intersects
// the interval set.
func (u BEDUnion) Intersects(chrName string, start, end int) bool {
	if end <= start {
		return false
	}
	ivs := u.nameMap[chrName]
	idx := sort.Search(len(ivs), func(i int) bool { return ivs[i] > start })
	if idx&1 == 1 {
		return true
	}
	return idx < len(ivs) && ivs[idx] < end
}
