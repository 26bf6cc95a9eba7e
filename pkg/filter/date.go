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

// 🔎 DateFilter bounds entries by modification time (epoch seconds). An
// entry with no modification time cannot be filtered and always passes.
type DateFilter struct {
	min *int64
	max *int64
}

// 🏭 NewDateFilter builds a date filter; nil means unbounded on that side
func NewDateFilter(min, max *int64) *DateFilter {
	return &DateFilter{min: min, max: max}
}

// Matches implements Filter
func (f *DateFilter) Matches(entry backend.FileEntry) bool {
	if entry.Modified == 0 {
		return true
	}
	if f.min != nil && entry.Modified < *f.min {
		return false
	}
	if f.max != nil && entry.Modified > *f.max {
		return false
	}
	return true
}
