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

import "fmt"

// Stages reported in StageError.
const (
	StageInput     = "input"
	StageResolve   = "resolve"
	StagePhase     = "phase"
	StageScore     = "score"
	StageLink      = "link"
	StageFrequency = "frequency"
	StageStructure = "structure"
	StageRealign   = "realign"
	StageVote      = "vote"
	StageInsertion = "insertion"
	StageDup       = "dup-type"
	StageConsensus = "consensus"
	StageAssemble  = "assemble"
)

// StageError reports the failure of one pipeline stage.  Coord names the
// region or file the stage was working on, and may be empty.
type StageError struct {
	Locus string
	Stage string
	Coord string
	Err   error
}

func (e *StageError) Error() string {
	if e.Coord == "" {
		return fmt.Sprintf("locus %s: stage %s: %v", e.Locus, e.Stage, e.Err)
	}
	return fmt.Sprintf("locus %s: stage %s at %s: %v", e.Locus, e.Stage, e.Coord, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error { return e.Err }
