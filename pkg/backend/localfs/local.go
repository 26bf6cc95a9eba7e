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

// Package localfs implements the local filesystem backend. File bytes move
// through an ordered transfer-strategy registry (RAM, zero-copy kernel
// transfer, buffered-adaptive fallback); directory trees recurse depth-first
// with files inside one level copied in parallel.
package localfs

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

func init() {
	backend.Register(backend.SchemeLocal, func(ctx context.Context, ep *backend.Endpoint) (backend.Backend, error) {
		return New(), nil
	})
}

// 💾 Backend implements backend.Backend against the local filesystem. It
// holds no mutable state between calls, so one instance may be invoked
// concurrently from multiple workers.
type Backend struct {
	strategies *StrategySet
	workers    int
}

// 🏭 New creates a local backend with the platform default strategies and
// parallelism bounded by the available CPU cores
func New() *Backend {
	return &Backend{
		strategies: DefaultStrategies(),
		workers:    runtime.NumCPU(),
	}
}

// 🏭 NewWithStrategies creates a local backend with an injected strategy
// registry, for tests that exercise selection and fallback
func NewWithStrategies(ss *StrategySet) *Backend {
	return &Backend{strategies: ss, workers: runtime.NumCPU()}
}

// Name implements backend.Backend
func (b *Backend) Name() string {
	return "local"
}

// CopyFile implements backend.Backend
func (b *Backend) CopyFile(ctx context.Context, src, dst string, opts *backend.CopyOptions) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &backend.NotFoundError{Path: src}
		}
		return 0, errors.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return 0, &backend.InvalidPathError{Path: src, Reason: "source is not a regular file"}
	}

	// Copying into an existing directory keeps the source basename
	if dstInfo, err := os.Stat(dst); err == nil && dstInfo.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}

	if opts != nil && opts.DryRun {
		opts.Echof("[dry run] would copy %s -> %s", src, dst)
		return 0, nil
	}

	n, strategy, err := b.strategies.Transfer(ctx, src, dst, opts)
	if err != nil {
		return 0, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("src", src).
		Str("dst", dst).
		Str("strategy", strategy).
		Int64("bytes", n).
		Msg("copied file")
	if opts != nil && opts.Verbose {
		opts.Echof("copied %d bytes: %s -> %s", n, src, dst)
	}
	return n, nil
}

// CopyDir implements backend.Backend. The walk is depth-first: a directory's
// own destination folder is always created before any of its children are
// written; files within one level run in parallel, bounded by CPU cores,
// with per-worker partial stats merged once per level.
func (b *Backend) CopyDir(ctx context.Context, src, dst string, opts *backend.CopyOptions) (*backend.CopyStats, error) {
	if opts == nil || !opts.Recursive {
		return nil, &backend.UnsupportedOperationError{Op: "copy directory", Reason: "recursive option not set"}
	}

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &backend.NotFoundError{Path: src}
		}
		return nil, errors.Errorf("stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return nil, &backend.InvalidPathError{Path: src, Reason: "source is not a directory"}
	}

	// Counters stay off when nobody will print a summary
	var stats *backend.CopyStats
	if opts.Verbose || opts.Progress {
		stats = backend.NewCopyStats()
	} else {
		stats = backend.NewMinimalCopyStats()
	}

	if opts.DryRun {
		opts.Echof("[dry run] would copy directory %s -> %s", src, dst)
		return stats, nil
	}

	if err := b.copyDirLevel(ctx, src, dst, opts, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (b *Backend) copyDirLevel(ctx context.Context, src, dst string, opts *backend.CopyOptions, stats *backend.CopyStats) error {
	// Parent exists before any child is written; this ordering is required
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return errors.Errorf("creating directory %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Errorf("reading directory %s: %w", src, err)
	}

	var files []os.DirEntry
	for _, entry := range entries {
		srcEntry := filepath.Join(src, entry.Name())
		dstEntry := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := b.copyDirLevel(ctx, srcEntry, dstEntry, opts, stats); err != nil {
				return err
			}
			continue
		}
		files = append(files, entry)
	}

	if len(files) == 0 {
		return nil
	}

	// Siblings copy in parallel; completion order is unspecified, so the
	// per-level tallies below are associative sums only.
	bytesByFile := make([]int64, len(files))
	copied := make([]bool, len(files))
	skipped := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, entry := range files {
		i, entry := i, entry
		g.Go(func() error {
			srcEntry := filepath.Join(src, entry.Name())
			dstEntry := filepath.Join(dst, entry.Name())

			fi, err := entry.Info()
			if err != nil {
				return errors.Errorf("stat %s: %w", srcEntry, err)
			}
			if !opts.Accepts(backend.FileEntry{
				Path:     srcEntry,
				Size:     fi.Size(),
				Modified: fi.ModTime().Unix(),
			}) {
				skipped[i] = true
				return nil
			}

			n, strategy, err := b.strategies.Transfer(gctx, srcEntry, dstEntry, opts)
			if err != nil {
				return errors.Errorf("copying %s: %w", srcEntry, err)
			}
			if opts.Verbose {
				opts.Echof("copied %d bytes (%s): %s -> %s", n, strategy, srcEntry, dstEntry)
			}
			bytesByFile[i] = n
			copied[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// One merge per directory level
	if stats.Tracking() {
		partial := backend.NewCopyStats()
		for i := range files {
			switch {
			case copied[i]:
				partial.RecordFile(bytesByFile[i])
			case skipped[i]:
				partial.RecordSkip()
			}
		}
		stats.Merge(partial)
	}
	return nil
}

// List implements backend.Backend. Directories report size 0; children are
// immediate only, with absolute paths.
func (b *Backend) List(ctx context.Context, path string) ([]backend.FileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &backend.NotFoundError{Path: path}
		}
		return nil, errors.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return []backend.FileEntry{{
			Path:     path,
			Size:     info.Size(),
			Modified: info.ModTime().Unix(),
		}}, nil
	}

	children, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Errorf("reading directory %s: %w", path, err)
	}

	entries := make([]backend.FileEntry, 0, len(children))
	for _, child := range children {
		fi, err := child.Info()
		if err != nil {
			return nil, errors.Errorf("stat %s: %w", filepath.Join(path, child.Name()), err)
		}
		entry := backend.FileEntry{
			Path:     filepath.Join(path, child.Name()),
			IsDir:    child.IsDir(),
			Modified: fi.ModTime().Unix(),
		}
		if !child.IsDir() {
			entry.Size = fi.Size()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete implements backend.Backend
func (b *Backend) Delete(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &backend.NotFoundError{Path: path}
		}
		return errors.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			return errors.Errorf("removing directory %s: %w", path, err)
		}
		return nil
	}
	if err := os.Remove(path); err != nil {
		return errors.Errorf("removing file %s: %w", path, err)
	}
	return nil
}

// Checksum implements backend.Backend with a streaming digest, so large
// files never load fully into memory
func (b *Backend) Checksum(ctx context.Context, path string, algo backend.ChecksumAlgorithm) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &backend.NotFoundError{Path: path}
		}
		return "", errors.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", &backend.InvalidPathError{Path: path, Reason: "checksum target is not a regular file"}
	}

	hasher, err := algo.Hasher()
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
