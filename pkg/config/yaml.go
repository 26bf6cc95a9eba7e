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
	"bytes"
	"context"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

func init() {
	Register(&YAMLParser{})
}

// 📝 YAMLParser parses YAML defaults files
type YAMLParser struct{}

// yamlDefaults is the YAML shape of the defaults file
type yamlDefaults struct {
	Verbose  bool     `yaml:"verbose"`
	Progress bool     `yaml:"progress"`
	UseRAM   bool     `yaml:"use_ram"`
	SSHOpts  []string `yaml:"ssh_opts"`
	Checksum string   `yaml:"checksum"`
	Include  []string `yaml:"include"`
	Exclude  []string `yaml:"exclude"`
	MinSize  *int64   `yaml:"min_size"`
	MaxSize  *int64   `yaml:"max_size"`
}

// Parse implements Parser
func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Defaults, error) {
	var raw yamlDefaults
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && err != io.EOF {
		return nil, errors.Errorf("decoding yaml: %w", err)
	}

	return &Defaults{
		Verbose:  raw.Verbose,
		Progress: raw.Progress,
		UseRAM:   raw.UseRAM,
		SSHOpts:  raw.SSHOpts,
		Checksum: raw.Checksum,
		Include:  raw.Include,
		Exclude:  raw.Exclude,
		MinSize:  raw.MinSize,
		MaxSize:  raw.MaxSize,
	}, nil
}

// CanParse implements Parser
func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}
