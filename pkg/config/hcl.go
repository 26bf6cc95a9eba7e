// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 📝 HCLParser parses HCL defaults files. Values may reference process
// environment variables through the env object, e.g. checksum = env.UCP_SUM.
type HCLParser struct{}

// hclDefaults is the HCL shape of the defaults file
type hclDefaults struct {
	Verbose  *bool    `hcl:"verbose,optional"`
	Progress *bool    `hcl:"progress,optional"`
	UseRAM   *bool    `hcl:"use_ram,optional"`
	SSHOpts  []string `hcl:"ssh_opts,optional"`
	Checksum *string  `hcl:"checksum,optional"`
	Include  []string `hcl:"include,optional"`
	Exclude  []string `hcl:"exclude,optional"`
	MinSize  *int64   `hcl:"min_size,optional"`
	MaxSize  *int64   `hcl:"max_size,optional"`
}

// Parse implements Parser
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Defaults, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, "defaults.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing hcl: %w", diags)
	}

	var raw hclDefaults
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &raw); diags.HasErrors() {
		return nil, errors.Errorf("decoding hcl: %w", diags)
	}

	cfg := &Defaults{
		SSHOpts: raw.SSHOpts,
		Include: raw.Include,
		Exclude: raw.Exclude,
		MinSize: raw.MinSize,
		MaxSize: raw.MaxSize,
	}
	if raw.Verbose != nil {
		cfg.Verbose = *raw.Verbose
	}
	if raw.Progress != nil {
		cfg.Progress = *raw.Progress
	}
	if raw.UseRAM != nil {
		cfg.UseRAM = *raw.UseRAM
	}
	if raw.Checksum != nil {
		cfg.Checksum = *raw.Checksum
	}
	return cfg, nil
}

// CanParse implements Parser
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// evalContext exposes the process environment as the env object
func evalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}
