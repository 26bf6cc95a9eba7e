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

import "github.com/walteh/ucp/pkg/backend"

// 🔎 SizeFilter bounds regular files by size. Directories always pass.
// Unset bounds (nil) impose no constraint.
type SizeFilter struct {
	min *int64
	max *int64
}

// 🏭 NewSizeFilter builds a size filter; nil means unbounded on that side
func NewSizeFilter(min, max *int64) *SizeFilter {
	return &SizeFilter{min: min, max: max}
}

// Matches implements Filter
func (f *SizeFilter) Matches(entry backend.FileEntry) bool {
	if entry.IsDir {
		return true
	}
	if f.min != nil && entry.Size < *f.min {
		return false
	}
	if f.max != nil && entry.Size > *f.max {
		return false
	}
	return true
}
