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

// Package config loads the optional ucp defaults file (.ucprc.yaml or
// .ucprc.hcl): ssh options, filter patterns, checksum algorithm. Flags
// always win over file values; file values win over the built-in zeroes.
package config

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
	"github.com/walteh/ucp/pkg/filter"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for defaults-file parsers
type Parser interface {
	// 📝 Parse parses the defaults from bytes
	Parse(ctx context.Context, data []byte) (*Defaults, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var parsers []Parser

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📚 Defaults is everything a ucp defaults file can set
type Defaults struct {
	Verbose  bool
	Progress bool
	UseRAM   bool
	SSHOpts  []string
	Checksum string
	Include  []string
	Exclude  []string
	MinSize  *int64
	MaxSize  *int64
}

// ✅ Validate checks the defaults for construction-time errors: the
// checksum algorithm name and every glob pattern
func (d *Defaults) Validate() error {
	if d.Checksum != "" {
		if _, err := backend.ParseChecksumAlgorithm(d.Checksum); err != nil {
			return err
		}
	}
	if _, err := filter.NewPatternFilter(d.Include, d.Exclude); err != nil {
		return err
	}
	if d.MinSize != nil && *d.MinSize < 0 {
		return errors.New("min_size must not be negative")
	}
	if d.MaxSize != nil && *d.MaxSize < 0 {
		return errors.New("max_size must not be negative")
	}
	return nil
}

// ⛓️ FilterChain builds the filter chain the defaults describe, or nil
// when no filtering is configured
func (d *Defaults) FilterChain() (*filter.Chain, error) {
	chain := filter.NewChain()
	if len(d.Include) > 0 || len(d.Exclude) > 0 {
		pf, err := filter.NewPatternFilter(d.Include, d.Exclude)
		if err != nil {
			return nil, err
		}
		chain.Add(pf)
	}
	if d.MinSize != nil || d.MaxSize != nil {
		chain.Add(filter.NewSizeFilter(d.MinSize, d.MaxSize))
	}
	if chain.Len() == 0 {
		return nil, nil
	}
	return chain, nil
}

// 🎯 Load loads the defaults from a file
func Load(ctx context.Context, path string) (*Defaults, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading defaults")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading defaults file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating defaults: %w", err)
	}
	return cfg, nil
}

// 🎯 LoadIfPresent loads the defaults file when it exists, and returns
// empty defaults when it does not
func LoadIfPresent(ctx context.Context, path string) (*Defaults, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Defaults{}, nil
	}
	return Load(ctx, path)
}
