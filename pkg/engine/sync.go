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

	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
)

// 🔄 SyncMode selects the synchronization behavior
type SyncMode string

const (
	// SyncOneWay makes the destination mirror the source: changed and new
	// files are copied, destination files with no source counterpart are
	// deleted
	SyncOneWay SyncMode = "one-way"
	// SyncCopyOnly copies every source file unconditionally and never
	// deletes anything
	SyncCopyOnly SyncMode = "copy-only"
	// SyncTwoWay is declared but intentionally not implemented
	SyncTwoWay SyncMode = "two-way"
)

// 🔄 SyncEngine computes the one-way diff between two listings and applies
// it: a single Listing → Diff → Apply pass, no persisted state. Every run
// recomputes the diff from live listings.
type SyncEngine struct {
	src  backend.Backend
	dst  backend.Backend
	xfer backend.Backend
	mode SyncMode
	opts *backend.CopyOptions
}

// 🏭 NewSyncEngine creates a sync engine over a source and a destination
// backend. Copies go through the source backend unless a transfer backend
// is set.
func NewSyncEngine(src, dst backend.Backend, mode SyncMode, opts *backend.CopyOptions) *SyncEngine {
	if opts == nil {
		opts = &backend.CopyOptions{}
	}
	return &SyncEngine{src: src, dst: dst, xfer: src, mode: mode, opts: opts}
}

// WithTransferBackend routes copies through a specific backend. A sync from
// a local source to a remote destination lists through both backends but
// must transfer through the remote one.
func (e *SyncEngine) WithTransferBackend(b backend.Backend) *SyncEngine {
	e.xfer = b
	return e
}

type plannedCopy struct {
	src string
	dst string
}

// 🔄 Sync runs one synchronization pass from srcRoot to dstRoot
func (e *SyncEngine) Sync(ctx context.Context, srcRoot, dstRoot string) (*backend.SyncStats, error) {
	switch e.mode {
	case SyncOneWay:
		return e.syncOneWay(ctx, srcRoot, dstRoot)
	case SyncCopyOnly:
		return e.syncCopyOnly(ctx, srcRoot, dstRoot)
	case SyncTwoWay:
		return nil, &backend.UnsupportedOperationError{Op: "sync", Reason: "two-way sync not implemented"}
	default:
		return nil, &backend.UnsupportedOperationError{Op: "sync", Reason: "unknown mode " + string(e.mode)}
	}
}

func (e *SyncEngine) syncOneWay(ctx context.Context, srcRoot, dstRoot string) (*backend.SyncStats, error) {
	logger := zerolog.Ctx(ctx)

	srcEntries, err := ListRecursive(ctx, e.src, srcRoot)
	if err != nil {
		return nil, err
	}

	// A missing destination is not an error, it is an empty listing: the
	// first copy creates it
	dstEntries, err := ListRecursive(ctx, e.dst, dstRoot)
	if err != nil {
		logger.Debug().Str("dst", dstRoot).Err(err).Msg("destination listing unavailable, treating as empty")
		dstEntries = nil
	}

	dstByRel := make(map[string]backend.FileEntry, len(dstEntries))
	for _, entry := range dstEntries {
		dstByRel[entry.RelativeTo(dstRoot)] = entry
	}
	srcRels := make(map[string]struct{}, len(srcEntries))

	var copies []plannedCopy
	for _, src := range srcEntries {
		rel := src.RelativeTo(srcRoot)
		srcRels[rel] = struct{}{}

		// Directories are never copied directly; copying their files
		// creates them implicitly
		if src.IsDir {
			continue
		}
		if !e.opts.Accepts(src) {
			continue
		}

		dst, ok := dstByRel[rel]
		if ok && dst.Size == src.Size && dst.Modified == src.Modified && dst.IsDir == src.IsDir {
			continue
		}
		copies = append(copies, plannedCopy{src: src.Path, dst: JoinEndpointPath(dstRoot, rel)})
	}

	// Destination files with no source counterpart are pruned; directories
	// are left alone
	var deletes []string
	for _, dst := range dstEntries {
		if dst.IsDir {
			continue
		}
		if _, ok := srcRels[dst.RelativeTo(dstRoot)]; !ok {
			deletes = append(deletes, dst.Path)
		}
	}

	logger.Debug().
		Int("copies", len(copies)).
		Int("deletes", len(deletes)).
		Str("src", srcRoot).
		Str("dst", dstRoot).
		Msg("sync plan computed")

	return e.apply(ctx, copies, deletes)
}

func (e *SyncEngine) syncCopyOnly(ctx context.Context, srcRoot, dstRoot string) (*backend.SyncStats, error) {
	srcEntries, err := ListRecursive(ctx, e.src, srcRoot)
	if err != nil {
		return nil, err
	}

	var copies []plannedCopy
	for _, src := range srcEntries {
		if src.IsDir || !e.opts.Accepts(src) {
			continue
		}
		rel := src.RelativeTo(srcRoot)
		copies = append(copies, plannedCopy{src: src.Path, dst: JoinEndpointPath(dstRoot, rel)})
	}
	return e.apply(ctx, copies, nil)
}

// apply performs all queued copies first, then all queued deletions. Either
// phase aborts on its first failure and propagates it; there is no partial
// success continuation and no retry.
func (e *SyncEngine) apply(ctx context.Context, copies []plannedCopy, deletes []string) (*backend.SyncStats, error) {
	stats := &backend.SyncStats{}

	for _, c := range copies {
		e.opts.Echof("copying: %s -> %s", c.src, c.dst)
		if e.opts.DryRun {
			stats.FilesCopied++
			continue
		}
		n, err := e.xfer.CopyFile(ctx, c.src, c.dst, e.opts)
		if err != nil {
			return stats, err
		}
		stats.FilesCopied++
		stats.BytesCopied += n
	}

	for _, path := range deletes {
		e.opts.Echof("deleting: %s", path)
		if e.opts.DryRun {
			stats.FilesDeleted++
			continue
		}
		if err := e.dst.Delete(ctx, path); err != nil {
			return stats, err
		}
		stats.FilesDeleted++
	}
	return stats, nil
}
