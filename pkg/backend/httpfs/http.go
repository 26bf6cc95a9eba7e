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

// Package httpfs implements the read-only http/https backend: downloads,
// single-entry listings via HEAD, and checksums over the streamed body.
// Writing, deleting and directory semantics do not exist over plain HTTP.
package httpfs

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
)

func init() {
	factory := func(ctx context.Context, ep *backend.Endpoint) (backend.Backend, error) {
		return New(ep), nil
	}
	backend.Register(backend.SchemeHTTP, factory)
	backend.Register(backend.SchemeHTTPS, factory)
}

// 🌐 Backend implements the read-only subset of backend.Backend over HTTP
type Backend struct {
	ep  *backend.Endpoint
	cli *http.Client
}

// 🏭 New creates an http backend for an endpoint
func New(ep *backend.Endpoint) *Backend {
	return &Backend{ep: ep, cli: http.DefaultClient}
}

// 🏭 NewWithClient injects an http client, for tests
func NewWithClient(ep *backend.Endpoint, cli *http.Client) *Backend {
	return &Backend{ep: ep, cli: cli}
}

// Name implements backend.Backend
func (b *Backend) Name() string {
	return string(b.ep.Scheme)
}

// url builds the request URL for an endpoint path
func (b *Backend) url(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return fmt.Sprintf("%s://%s%s", b.ep.Scheme, b.ep.HostPort(), p)
}

func (b *Backend) get(ctx context.Context, p string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url(p), nil)
	if err != nil {
		return nil, errors.Errorf("building request for %s: %w", b.url(p), err)
	}
	resp, err := b.cli.Do(req)
	if err != nil {
		return nil, &backend.ConnectionError{Host: b.ep.Host, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, &backend.NotFoundError{Path: p}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("GET %s: unexpected status %s", b.url(p), resp.Status)
	}
	return resp, nil
}

// CopyFile implements backend.Backend: it downloads the source path into a
// local destination file
func (b *Backend) CopyFile(ctx context.Context, src, dst string, opts *backend.CopyOptions) (int64, error) {
	if opts != nil && opts.DryRun {
		opts.Echof("[dry run] would download %s -> %s", b.url(src), dst)
		return 0, nil
	}

	resp, err := b.get(ctx, src)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, errors.Errorf("creating directory %s: %w", filepath.Dir(dst), err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, errors.Errorf("creating %s: %w", dst, err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return n, errors.Errorf("downloading %s: %w", b.url(src), err)
	}
	return n, nil
}

// CopyDir implements backend.Backend; HTTP has no directory listing to walk
func (b *Backend) CopyDir(ctx context.Context, src, dst string, opts *backend.CopyOptions) (*backend.CopyStats, error) {
	return nil, &backend.UnsupportedOperationError{Op: "copy directory", Reason: "http endpoints have no directory semantics"}
}

// List implements backend.Backend with a HEAD request yielding one entry
func (b *Backend) List(ctx context.Context, p string) ([]backend.FileEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.url(p), nil)
	if err != nil {
		return nil, errors.Errorf("building request for %s: %w", b.url(p), err)
	}
	resp, err := b.cli.Do(req)
	if err != nil {
		return nil, &backend.ConnectionError{Host: b.ep.Host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &backend.NotFoundError{Path: p}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HEAD %s: unexpected status %s", b.url(p), resp.Status)
	}

	entry := backend.FileEntry{Path: p}
	if resp.ContentLength > 0 {
		entry.Size = resp.ContentLength
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := time.Parse(http.TimeFormat, lm); err == nil {
			entry.Modified = t.Unix()
		}
	}
	return []backend.FileEntry{entry}, nil
}

// Delete implements backend.Backend; not available over plain HTTP
func (b *Backend) Delete(ctx context.Context, p string) error {
	return &backend.UnsupportedOperationError{Op: "delete", Reason: "http endpoints are read-only"}
}

// Checksum implements backend.Backend by streaming the response body
// through a local digest
func (b *Backend) Checksum(ctx context.Context, p string, algo backend.ChecksumAlgorithm) (string, error) {
	hasher, err := algo.Hasher()
	if err != nil {
		return "", err
	}

	resp, err := b.get(ctx, p)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(hasher, resp.Body); err != nil {
		return "", errors.Errorf("hashing %s: %w", b.url(p), err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
