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

package main

import (
	"testing"

	"github.com/furlan-lab/SpecHLA/external"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestSplitLoci(t *testing.T) {
	expect.EQ(t, splitLoci("HLA_A, HLA_B,,HLA_A"), []string{"HLA_A", "HLA_B"})
	expect.EQ(t, len(splitLoci(" , ")), 0)
}

func TestNewToolkit(t *testing.T) {
	tk, err := newToolkit(external.Tools{}, "ref")
	assert.NoError(t, err)
	_, ok := tk.Consensus.(external.RefConsensus)
	expect.True(t, ok)

	tk, err = newToolkit(external.Tools{}, "bcftools")
	assert.NoError(t, err)
	_, ok = tk.Consensus.(*external.Subprocess)
	expect.True(t, ok)

	_, err = newToolkit(external.Tools{}, "mpileup")
	expect.NotNil(t, err)
}

func TestLinkage(t *testing.T) {
	l, err := linkage("", "", "", "", "")
	assert.NoError(t, err)
	expect.EQ(t, l.Kind, external.ShortReads)

	l, err = linkage("", "ont.fq", "", "", "")
	assert.NoError(t, err)
	expect.EQ(t, l, external.LinkageReads{Kind: external.Nanopore, FQ1: "ont.fq"})

	l, err = linkage("", "", "fwd.fq", "rev.fq", "")
	assert.NoError(t, err)
	expect.EQ(t, l, external.LinkageReads{Kind: external.HiC, FQ1: "fwd.fq", FQ2: "rev.fq"})

	_, err = linkage("", "", "fwd.fq", "", "")
	expect.NotNil(t, err)
	_, err = linkage("long.fq", "", "", "", "linked.bam")
	expect.NotNil(t, err)
}
