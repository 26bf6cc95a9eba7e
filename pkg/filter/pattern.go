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

package filter

import (
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
)

// 🔎 PatternFilter holds compiled include and exclude glob sets. Exclusion
// wins: if any exclude pattern matches, the entry is rejected regardless of
// includes. An empty include set accepts unconditionally (no positive filter
// applied); a non-empty one requires at least one match.
type PatternFilter struct {
	include []string
	exclude []string
}

// 🏭 NewPatternFilter compiles the pattern sets. Invalid glob syntax is a
// construction-time error, never a per-entry one.
func NewPatternFilter(include, exclude []string) (*PatternFilter, error) {
	for _, p := range include {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid include pattern %q", p)
		}
	}
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &PatternFilter{include: include, exclude: exclude}, nil
}

// Matches implements Filter
func (f *PatternFilter) Matches(entry backend.FileEntry) bool {
	for _, p := range f.exclude {
		if matchPath(p, entry.Path) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if matchPath(p, entry.Path) {
			return true
		}
	}
	return false
}

// matchPath tries the pattern against the full path and, for bare patterns
// like *.txt, against the basename
func matchPath(pattern, target string) bool {
	if ok, err := doublestar.Match(pattern, target); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match(pattern, path.Base(target))
	return err == nil && ok
}
