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
	"encoding/hex"
	"sort"
	"strings"

	"github.com/walteh/ucp/pkg/backend"
)

// fakeFile is one entry in the in-memory tree
type fakeFile struct {
	data  []byte
	mtime int64
}

// fakeBackend is an in-memory backend.Backend for engine tests. Paths are
// slash-separated; directories exist implicitly through their children.
type fakeBackend struct {
	files map[string]*fakeFile

	copyCalls   []string
	deleteCalls []string

	// checksumOverride, when set, wins over the real digest for that path
	checksumOverride map[string]string
	copyErr          error
	deleteErr        error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		files:            map[string]*fakeFile{},
		checksumOverride: map[string]string{},
	}
}

func (f *fakeBackend) put(path string, data string, mtime int64) {
	f.files[path] = &fakeFile{data: []byte(data), mtime: mtime}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) CopyFile(ctx context.Context, src, dst string, opts *backend.CopyOptions) (int64, error) {
	f.copyCalls = append(f.copyCalls, src+" -> "+dst)
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	file, ok := f.files[src]
	if !ok {
		return 0, &backend.NotFoundError{Path: src}
	}
	f.files[dst] = &fakeFile{data: append([]byte(nil), file.data...), mtime: file.mtime}
	return int64(len(file.data)), nil
}

func (f *fakeBackend) CopyDir(ctx context.Context, src, dst string, opts *backend.CopyOptions) (*backend.CopyStats, error) {
	if opts == nil || !opts.Recursive {
		return nil, &backend.UnsupportedOperationError{Op: "copy directory", Reason: "recursive option not set"}
	}
	stats := backend.NewCopyStats()
	for path, file := range f.files {
		if !strings.HasPrefix(path, src+"/") {
			continue
		}
		rel := strings.TrimPrefix(path, src+"/")
		entry := backend.FileEntry{Path: path, Size: int64(len(file.data)), Modified: file.mtime}
		if !opts.Accepts(entry) {
			stats.RecordSkip()
			continue
		}
		if _, err := f.CopyFile(ctx, path, JoinEndpointPath(dst, rel), opts); err != nil {
			return nil, err
		}
		stats.RecordFile(int64(len(file.data)))
	}
	return stats, nil
}

// List mirrors the real backends: a file lists as itself, a directory lists
// its immediate children with implicit directories included
func (f *fakeBackend) List(ctx context.Context, path string) ([]backend.FileEntry, error) {
	if file, ok := f.files[path]; ok {
		return []backend.FileEntry{{Path: path, Size: int64(len(file.data)), Modified: file.mtime}}, nil
	}

	prefix := path + "/"
	seen := map[string]backend.FileEntry{}
	for p, file := range f.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dir := path + "/" + rest[:idx]
			seen[dir] = backend.FileEntry{Path: dir, IsDir: true}
		} else {
			seen[p] = backend.FileEntry{Path: p, Size: int64(len(file.data)), Modified: file.mtime}
		}
	}
	if len(seen) == 0 {
		return nil, &backend.NotFoundError{Path: path}
	}

	entries := make([]backend.FileEntry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (f *fakeBackend) Delete(ctx context.Context, path string) error {
	f.deleteCalls = append(f.deleteCalls, path)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.files[path]; !ok {
		return &backend.NotFoundError{Path: path}
	}
	delete(f.files, path)
	return nil
}

func (f *fakeBackend) Checksum(ctx context.Context, path string, algo backend.ChecksumAlgorithm) (string, error) {
	if sum, ok := f.checksumOverride[path]; ok {
		return sum, nil
	}
	file, ok := f.files[path]
	if !ok {
		return "", &backend.NotFoundError{Path: path}
	}
	hasher, err := algo.Hasher()
	if err != nil {
		return "", err
	}
	hasher.Write(file.data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
