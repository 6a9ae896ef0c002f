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

package vote

import (
	"context"

	"github.com/furlan-lab/SpecHLA/interval"
	"github.com/furlan-lab/SpecHLA/readstore"
)

// Presence counts, per haplotype, the reads overlapping region whose names
// are in that haplotype's support, and returns the haplotype with the
// largest count along with the counts.  Ties and an all-zero count go to the
// lowest index.  A zero-length region counts the reads covering its
// position; pass a region spanning the whole contig to count a placeholder
// contig.
func Presence(ctx context.Context, store readstore.Store, region interval.Entry, support *Support) (int, []int, error) {
	reads, err := store.Fetch(ctx, region.ChrName, region.Start0, region.End)
	if err != nil {
		return 0, nil, err
	}
	counts := make([]int, support.Strains())
	for _, r := range reads {
		for h := range counts {
			if support.Has(h, r.Name) {
				counts[h]++
			}
		}
	}
	best := 0
	for h, c := range counts {
		if c > counts[best] {
			best = h
		}
	}
	return best, counts, nil
}
