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

// Package backend defines the capability interface every location kind
// (local disk, sftp, s3, http) implements, plus the shared data model:
// file entries, copy options, stats accumulators and the error taxonomy.
package backend

import (
	"context"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🎯 Backend is the primary interface for interacting with one location kind.
// Every method is safe to call independently; there is no required call
// ordering. CopyFile/CopyDir are not transactional: a failure partway through
// a directory copy leaves whatever was already copied in place.
type Backend interface {
	// Name returns the backend kind (e.g. "local", "sftp", "s3", "http")
	Name() string
	// CopyFile copies exactly one regular file and returns the bytes written.
	// Missing destination parent directories are created.
	CopyFile(ctx context.Context, src, dst string, opts *CopyOptions) (int64, error)
	// CopyDir recursively copies a directory tree. Fails with an
	// UnsupportedOperationError unless opts.Recursive is set.
	CopyDir(ctx context.Context, src, dst string, opts *CopyOptions) (*CopyStats, error)
	// List returns a single entry for a file, or the immediate (non-recursive)
	// children for a directory. Fails with a NotFoundError if the path is absent.
	List(ctx context.Context, path string) ([]FileEntry, error)
	// Delete removes a file or recursively removes a directory
	Delete(ctx context.Context, path string) error
	// Checksum returns the lowercase hex content digest of a regular file
	Checksum(ctx context.Context, path string, algo ChecksumAlgorithm) (string, error)
}

// 🔍 Exists reports whether a path exists on a backend, derived from List:
// success means true, NotFound means false, any other error propagates.
func Exists(ctx context.Context, b Backend, path string) (bool, error) {
	_, err := b.List(ctx, path)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// 🏭 Factory constructs a backend for a resolved endpoint
type Factory func(ctx context.Context, ep *Endpoint) (Backend, error)

var registry = map[Scheme]Factory{}

// 📝 Register registers a backend factory for a scheme. Backend packages call
// this from init; the CLI imports them for side effects.
func Register(scheme Scheme, factory Factory) {
	registry[scheme] = factory
}

// 🎯 New resolves a backend instance for an endpoint
func New(ctx context.Context, ep *Endpoint) (Backend, error) {
	factory, ok := registry[ep.Scheme]
	if !ok {
		options := make([]string, 0, len(registry))
		for k := range registry {
			options = append(options, string(k))
		}
		sort.Strings(options)
		return nil, errors.Errorf("no backend for scheme %q, options: %s", ep.Scheme, strings.Join(options, ", "))
	}
	return factory(ctx, ep)
}
