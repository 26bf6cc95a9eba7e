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

// Package filter gates file entries before a transfer: glob include/exclude
// patterns, size bounds and modification-time bounds, composed into an
// ordered chain.
package filter

import "github.com/walteh/ucp/pkg/backend"

// 🔎 Filter is one predicate over a file entry
type Filter interface {
	Matches(entry backend.FileEntry) bool
}

// ⛓️ Chain is an ordered list of filters. An entry passes the chain iff
// every filter accepts it; evaluation order is stable.
type Chain struct {
	filters []Filter
}

// 🏭 NewChain builds a chain from the given filters, in order
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Add appends a filter to the chain
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Len returns the number of filters in the chain
func (c *Chain) Len() int {
	return len(c.filters)
}

// Matches implements Filter (and backend.FileFilter)
func (c *Chain) Matches(entry backend.FileEntry) bool {
	for _, f := range c.filters {
		if !f.Matches(entry) {
			return false
		}
	}
	return true
}
