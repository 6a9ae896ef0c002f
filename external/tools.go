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

package external

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/kelseyhightower/envconfig"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// EnvPrefix prefixes the environment variables read by ToolsFromEnv, as in
// SPECHLA_SAMTOOLS.
const EnvPrefix = "spechla"

// Tools names the external binaries.  Names without a path separator are
// looked up in PATH.
type Tools struct {
	Bash         string `envconfig:"BASH" default:"bash"`
	Samtools     string `envconfig:"SAMTOOLS" default:"samtools"`
	Bcftools     string `envconfig:"BCFTOOLS" default:"bcftools"`
	Tabix        string `envconfig:"TABIX" default:"tabix"`
	BWA          string `envconfig:"BWA" default:"bwa"`
	Freebayes    string `envconfig:"FREEBAYES" default:"freebayes"`
	ExtractHAIRs string `envconfig:"EXTRACTHAIRS" default:"ExtractHAIRs"`
	SpecHap      string `envconfig:"SPECHAP" default:"SpecHap"`
	Blastn       string `envconfig:"BLASTN" default:"blastn"`
	Perl         string `envconfig:"PERL" default:"perl"`
	Python       string `envconfig:"PYTHON" default:"python3"`

	// Minimap2, BarcodeExtract and Bgzip are only needed for long-read and
	// linked-read phasing.
	Minimap2       string `envconfig:"MINIMAP2" default:"minimap2"`
	BarcodeExtract string `envconfig:"BARCODE_EXTRACT" default:"BarcodeExtract"`
	Bgzip          string `envconfig:"BGZIP" default:"bgzip"`

	// ScriptDir holds the block-scoring and read-counting helper scripts.
	ScriptDir string `envconfig:"SCRIPT_DIR" default:"."`
	// DupDB is the blast database of duplication-band candidates.
	DupDB string `envconfig:"DUP_DB"`
}

// ToolsFromEnv fills Tools from SPECHLA_* environment variables, using the
// defaults for those unset.
func ToolsFromEnv() (Tools, error) {
	var t Tools
	if err := envconfig.Process(EnvPrefix, &t); err != nil {
		return Tools{}, err
	}
	return t, nil
}

// Resolve returns a copy of t in which the binaries named by fields are
// replaced by absolute paths.  An empty fields list resolves every binary
// except ScriptDir and DupDB.
func (t Tools) Resolve(fields ...string) (Tools, error) {
	if len(fields) == 0 {
		fields = []string{"Bash", "Samtools", "Bcftools", "Tabix", "BWA", "Freebayes",
			"ExtractHAIRs", "SpecHap", "Blastn", "Perl", "Python",
			"Minimap2", "BarcodeExtract", "Bgzip"}
	}
	env := envvar.SliceToMap(os.Environ())
	v := reflect.ValueOf(&t).Elem()
	for _, name := range fields {
		f := v.FieldByName(name)
		if !f.IsValid() || f.Kind() != reflect.String {
			return Tools{}, fmt.Errorf("external.Tools: no tool %q", name)
		}
		bin := f.String()
		if bin == "" {
			return Tools{}, fmt.Errorf("external.Tools: %s is not set", name)
		}
		if filepath.Base(bin) != bin {
			if _, err := os.Stat(bin); err != nil {
				return Tools{}, fmt.Errorf("external.Tools: %s: %v", name, err)
			}
			continue
		}
		path, err := lookpath.Look(env, bin)
		if err != nil {
			return Tools{}, fmt.Errorf("external.Tools: %s: %v", name, err)
		}
		f.SetString(path)
	}
	return t, nil
}
