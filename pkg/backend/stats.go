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

package backend

import (
	"sync"
	"time"
)

// 📊 CopyStats accumulates the outcome of one top-level copy operation.
// It is created once per operation, mutated by every worker that completes
// a file copy, and read once at the end to print a summary.
//
// In minimal mode (no start time) the counters are not updated at all, for
// operations that will never print a summary; this keeps parallel copies
// free of lock traffic when nobody is watching.
//
// Parallel workers accumulate into private partials and merge them back
// under a single mutex boundary per directory level, never sharing a live
// accumulator across workers. Merges are associative sums only, so
// completion order does not matter.
type CopyStats struct {
	mu          sync.Mutex
	tracking    bool
	startTime   time.Time
	filesCopied int64
	filesSkipped int64
	bytesCopied int64
}

// 🏭 NewCopyStats creates a tracking accumulator stamped with a start time
func NewCopyStats() *CopyStats {
	return &CopyStats{tracking: true, startTime: time.Now()}
}

// 🏭 NewMinimalCopyStats creates a non-tracking accumulator: counters stay
// zero no matter what is recorded
func NewMinimalCopyStats() *CopyStats {
	return &CopyStats{}
}

// Tracking reports whether this accumulator counts anything
func (s *CopyStats) Tracking() bool {
	return s.tracking
}

// RecordFile counts one completed file copy
func (s *CopyStats) RecordFile(bytes int64) {
	if !s.tracking {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesCopied++
	s.bytesCopied += bytes
}

// RecordSkip counts one file rejected by a filter or already up to date
func (s *CopyStats) RecordSkip() {
	if !s.tracking {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesSkipped++
}

// Merge folds a partial accumulator into this one under the mutex
func (s *CopyStats) Merge(partial *CopyStats) {
	if !s.tracking || partial == nil {
		return
	}
	copied, skipped, bytes := partial.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesCopied += copied
	s.filesSkipped += skipped
	s.bytesCopied += bytes
}

// Snapshot returns the current counters
func (s *CopyStats) Snapshot() (filesCopied, filesSkipped, bytesCopied int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filesCopied, s.filesSkipped, s.bytesCopied
}

// FilesCopied returns the number of files copied so far
func (s *CopyStats) FilesCopied() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filesCopied
}

// FilesSkipped returns the number of files skipped so far
func (s *CopyStats) FilesSkipped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filesSkipped
}

// BytesCopied returns the number of bytes copied so far
func (s *CopyStats) BytesCopied() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesCopied
}

// Elapsed returns the wall time since the operation started; ok is false
// for minimal accumulators, which carry no start time
func (s *CopyStats) Elapsed() (elapsed time.Duration, ok bool) {
	if !s.tracking {
		return 0, false
	}
	return time.Since(s.startTime), true
}

// 📊 SyncStats accumulates the outcome of one sync run. Produced only by
// the sync engine, which applies its plan sequentially, so no mutex.
type SyncStats struct {
	FilesCopied  int64
	BytesCopied  int64
	FilesDeleted int64
}
