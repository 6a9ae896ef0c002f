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

import "sort"

// Resolve returns an ordered, pairwise non-overlapping list of regions
// covering the same reference positions as regions.  The input is not
// modified and its order does not matter.
//
// Resolve repeatedly sorts the list and rewrites the first adjacent pair that
// conflicts:
//
//  - regions with identical coordinates collapse into one;
//  - an insertion strictly inside a deletion splits the deletion at the
//    insertion point;
//  - overlapping deletions are split at the later start, and any part of the
//    earlier deletion past the end of the later one becomes a new region.
//
// Every rewrite strictly decreases the total pairwise overlap (counting a
// contained insertion or a duplicate as one unit), so the loop terminates.
func Resolve(regions []Region) []Region {
	rs := append([]Region(nil), regions...)
	for {
		sort.SliceStable(rs, func(i, j int) bool { return less(rs[i], rs[j]) })
		changed := false
		for i := 0; i+1 < len(rs); i++ {
			if repl, ok := rewrite(rs[i], rs[i+1]); ok {
				rest := rs[i+2:]
				rs = append(append(append([]Region(nil), rs[:i]...), repl...), rest...)
				changed = true
				break
			}
		}
		if !changed {
			return rs
		}
	}
}

// rewrite resolves a conflict between a and b, where !less(b, a).  It
// returns false if the two do not conflict.
func rewrite(a, b Region) ([]Region, bool) {
	if a.Start == b.Start && a.End == b.End {
		return []Region{a}, true
	}
	if a.Insertion() {
		// b starts at or after a, so it cannot contain it.
		return nil, false
	}
	if b.Insertion() {
		if a.Start < b.Start && b.Start < a.End {
			return []Region{withCN(a, a.Start, b.Start), b, withCN(a, b.Start, a.End)}, true
		}
		return nil, false
	}
	if b.Start >= a.End {
		return nil, false
	}
	if a.Start == b.Start {
		// a.End < b.End by the sort order.
		return []Region{a, withCN(b, a.End, b.End)}, true
	}
	repl := []Region{withCN(a, a.Start, b.Start), b}
	if a.End > b.End {
		repl = append(repl, withCN(a, b.End, a.End))
	}
	return repl, true
}

// withCN returns a deletion over [start, end) carrying r's copy number.
func withCN(r Region, start, end int) Region {
	d := NewDeletion(start, end)
	d.CopyNumber = r.CopyNumber
	return d
}
