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

package engine

import (
	"context"

	"github.com/walteh/ucp/pkg/backend"
)

// 📋 ListRecursive walks a backend listing depth-first and returns every
// entry under path, directories included. The listing is a live snapshot;
// nothing is cached between calls.
func ListRecursive(ctx context.Context, b backend.Backend, path string) ([]backend.FileEntry, error) {
	var all []backend.FileEntry
	pending := []string{path}

	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := b.List(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir {
				pending = append(pending, entry.Path)
			}
			all = append(all, entry)
		}
	}
	return all, nil
}
