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

/*
spechla-phase reconstructs the two haplotype sequences of each requested HLA
locus from the variant calls, read alignments and long-indel breakpoints of a
sample.

For every locus it writes, in -out:

    hla.allele.1.<locus>.fasta, hla.allele.2.<locus>.fasta
    <locus>_freq.txt
    <locus>.vcf.gz, <locus>.rephase.vcf.gz
    <locus>_break_points_spechap.txt

Intermediate files go to <work>/<locus>.  External tools are taken from PATH
unless overridden by SPECHLA_* environment variables, e.g. SPECHLA_SAMTOOLS or
SPECHLA_SCRIPT_DIR; see external.Tools.

Phasing uses the short reads of -bam.  Reads of one long-range technology may
be added: -tgs (PacBio) or -nanopore long reads, -hic-fwd and -hic-rev Hi-C
mates, or -tenx-bam linked reads.

Sample usage:
spechla-phase \
    -ref hla.ref.fa \
    -bam sample.realign.sort.bam \
    -vcf sample.realign.filter.vcf \
    -fq1 sample_1.fq.gz -fq2 sample_2.fq.gz \
    -breakpoints sample.breakpoint.txt \
    -out out/sample \
    -loci HLA_A,HLA_DRB1
*/
package main
