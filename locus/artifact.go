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

package locus

import (
	"context"

	"github.com/furlan-lab/SpecHLA/block"
	"github.com/furlan-lab/SpecHLA/encoding/vcf"
	"github.com/furlan-lab/SpecHLA/vote"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// checkOutput fails unless the tool output at path exists and is not empty.
// Tools that exit zero without writing anything are caught here.
func checkOutput(ctx context.Context, path string) error {
	info, err := file.Stat(ctx, path)
	if err != nil {
		return errors.E(err, "tool output missing", path)
	}
	if info.Size() == 0 {
		return errors.E(errors.Invalid, "tool output is empty", path)
	}
	return nil
}

// readToolVCF reads a VCF written by a tool.  The file must carry a column
// header, and at least one record when wantRecords is set.
func readToolVCF(ctx context.Context, path string, wantRecords bool) (*vcf.Header, []*vcf.Record, error) {
	if err := checkOutput(ctx, path); err != nil {
		return nil, nil, err
	}
	hdr, recs, err := vcf.ReadFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if hdr.Headerless {
		return nil, nil, errors.E(errors.Invalid, "no VCF column header", path)
	}
	if wantRecords && len(recs) == 0 {
		return nil, nil, errors.E(errors.Invalid, "no VCF records", path)
	}
	return hdr, recs, nil
}

// readFlips reads the block scorer's output, which must hold at least one
// block.
func readFlips(ctx context.Context, path string) ([]block.Flip, error) {
	if err := checkOutput(ctx, path); err != nil {
		return nil, err
	}
	flips, err := block.ReadFlipsFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(flips) == 0 {
		return nil, errors.E(errors.Invalid, "no blocks in scorer output", path)
	}
	return flips, nil
}

// readDupCatalogue reads the duplication typer's output, which must rank at
// least one candidate.
func readDupCatalogue(ctx context.Context, path string) (*vote.Catalogue, error) {
	if err := checkOutput(ctx, path); err != nil {
		return nil, err
	}
	cat, err := vote.ReadCatalogueFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(cat.Candidates) == 0 {
		return nil, errors.E(errors.Invalid, "no candidates in duplication catalogue", path)
	}
	return cat, nil
}
