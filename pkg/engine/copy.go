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

// Package engine orchestrates single-file, directory and sync operations on
// top of the backend interface, applying the filter chain before transfers
// and checksum verification after them.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
)

// 🎯 CopyEngine drives plain copies through one backend, gating entries on
// the configured filter chain and optionally verifying digests afterwards
type CopyEngine struct {
	backend  backend.Backend
	opts     *backend.CopyOptions
	checksum backend.ChecksumAlgorithm // empty means no verification
}

// 🏭 NewCopyEngine creates a copy engine
func NewCopyEngine(b backend.Backend, opts *backend.CopyOptions) *CopyEngine {
	if opts == nil {
		opts = &backend.CopyOptions{}
	}
	return &CopyEngine{backend: b, opts: opts}
}

// WithChecksum enables post-copy digest verification
func (e *CopyEngine) WithChecksum(algo backend.ChecksumAlgorithm) *CopyEngine {
	e.checksum = algo
	return e
}

// 📄 CopyFile copies one regular file and returns the bytes written. With
// dry run set, nothing is written and zero is returned. A file rejected by
// the filter chain is not an error; it copies nothing.
func (e *CopyEngine) CopyFile(ctx context.Context, src, dst string) (int64, error) {
	if e.opts.Filters != nil {
		entries, err := e.backend.List(ctx, src)
		if err != nil {
			return 0, err
		}
		if len(entries) == 1 && !e.opts.Accepts(entries[0]) {
			e.opts.Echof("skipped (filtered): %s", src)
			return 0, nil
		}
	}

	if e.opts.DryRun {
		e.opts.Echof("[dry run] would copy %s -> %s", src, dst)
		return 0, nil
	}

	n, err := e.backend.CopyFile(ctx, src, dst, e.opts)
	if err != nil {
		return 0, err
	}

	if e.checksum != "" {
		if err := e.verifyFile(ctx, src, dst); err != nil {
			return n, err
		}
	}
	return n, nil
}

// 📁 CopyDir recursively copies a directory tree, forcing the recursive
// option, then verifies every copied file when a checksum is requested
func (e *CopyEngine) CopyDir(ctx context.Context, src, dst string) (*backend.CopyStats, error) {
	if e.opts.DryRun {
		e.opts.Echof("[dry run] would copy directory %s -> %s", src, dst)
		return backend.NewMinimalCopyStats(), nil
	}

	opts := *e.opts
	opts.Recursive = true

	stats, err := e.backend.CopyDir(ctx, src, dst, &opts)
	if err != nil {
		return nil, err
	}

	if e.checksum != "" {
		e.opts.Echof("verifying %s checksums for %s", e.checksum, dst)
		if err := e.verifyDir(ctx, src, dst); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (e *CopyEngine) verifyFile(ctx context.Context, src, dst string) error {
	srcSum, err := e.backend.Checksum(ctx, src, e.checksum)
	if err != nil {
		return errors.Errorf("source checksum: %w", err)
	}
	dstSum, err := e.backend.Checksum(ctx, dst, e.checksum)
	if err != nil {
		return errors.Errorf("destination checksum: %w", err)
	}
	if srcSum != dstSum {
		return &backend.ChecksumMismatchError{Path: dst, Expected: srcSum, Actual: dstSum}
	}
	e.opts.Echof("checksum verified: %s", srcSum)
	return nil
}

// verifyDir checks every non-directory source entry against its
// destination-relative counterpart. All mismatches are collected before
// failing; a checksum read error still aborts immediately.
func (e *CopyEngine) verifyDir(ctx context.Context, src, dst string) error {
	entries, err := ListRecursive(ctx, e.backend, src)
	if err != nil {
		return errors.Errorf("listing %s: %w", src, err)
	}

	var mismatches []*backend.ChecksumMismatchError
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		rel := entry.RelativeTo(src)
		dstPath := JoinEndpointPath(dst, rel)

		srcSum, err := e.backend.Checksum(ctx, entry.Path, e.checksum)
		if err != nil {
			return errors.Errorf("source checksum %s: %w", entry.Path, err)
		}
		dstSum, err := e.backend.Checksum(ctx, dstPath, e.checksum)
		if err != nil {
			return errors.Errorf("destination checksum %s: %w", dstPath, err)
		}

		if srcSum != dstSum {
			mismatches = append(mismatches, &backend.ChecksumMismatchError{
				Path:     rel,
				Expected: srcSum,
				Actual:   dstSum,
			})
			continue
		}
		e.opts.Echof("verified %s: %s", rel, srcSum)
	}

	if len(mismatches) > 0 {
		zerolog.Ctx(ctx).Error().
			Int("mismatches", len(mismatches)).
			Str("src", src).
			Str("dst", dst).
			Msg("directory checksum verification failed")
		return &VerifyError{Mismatches: mismatches}
	}
	return nil
}

// ❌ VerifyError reports every checksum mismatch found during a directory
// verification pass
type VerifyError struct {
	Mismatches []*backend.ChecksumMismatchError
}

func (e *VerifyError) Error() string {
	lines := make([]string, 0, len(e.Mismatches)+1)
	lines = append(lines, fmt.Sprintf("checksum verification failed for %d files:", len(e.Mismatches)))
	for _, m := range e.Mismatches {
		lines = append(lines, fmt.Sprintf("  %s: expected %s, got %s", m.Path, m.Expected, m.Actual))
	}
	return strings.Join(lines, "\n")
}

// JoinEndpointPath joins an endpoint root and a relative path with forward
// slashes, without doubling separators. Endpoint paths are slash-separated
// on every backend.
func JoinEndpointPath(root, rel string) string {
	if rel == "" {
		return root
	}
	if strings.HasSuffix(root, "/") {
		return root + rel
	}
	return root + "/" + rel
}
