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

package httpfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/ucp/pkg/backend"
)

var artifact = []byte("released artifact bytes")

func newTestServer(t *testing.T) (*httptest.Server, *backend.Endpoint) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/artifact.bin":
			w.Header().Set("Last-Modified", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
			w.Write(artifact)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	ep, err := backend.ParseEndpoint(srv.URL + "/artifact.bin")
	require.NoError(t, err, "test server url should parse")
	return srv, ep
}

func TestCopyFileDownloads(t *testing.T) {
	ctx := context.Background()
	_, ep := newTestServer(t)

	dst := filepath.Join(t.TempDir(), "out", "artifact.bin")
	b := New(ep)

	n, err := b.CopyFile(ctx, ep.Path, dst, nil)
	require.NoError(t, err, "download should succeed")
	assert.Equal(t, int64(len(artifact)), n, "byte count should match")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, artifact, got, "content should match")
}

func TestCopyFileNotFound(t *testing.T) {
	ctx := context.Background()
	_, ep := newTestServer(t)
	b := New(ep)

	_, err := b.CopyFile(ctx, "/missing.bin", filepath.Join(t.TempDir(), "dst"), nil)
	assert.True(t, backend.IsNotFound(err), "404 should map to not found")
}

func TestCopyFileDryRun(t *testing.T) {
	ctx := context.Background()
	_, ep := newTestServer(t)
	b := New(ep)

	dst := filepath.Join(t.TempDir(), "dst")
	n, err := b.CopyFile(ctx, ep.Path, dst, &backend.CopyOptions{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, n, "dry run reports zero bytes")
	assert.NoFileExists(t, dst, "dry run must not write")
}

func TestListViaHead(t *testing.T) {
	ctx := context.Background()
	_, ep := newTestServer(t)
	b := New(ep)

	entries, err := b.List(ctx, ep.Path)
	require.NoError(t, err)
	require.Len(t, entries, 1, "http listings are single entries")
	assert.Equal(t, ep.Path, entries[0].Path)
	assert.Equal(t, int64(len(artifact)), entries[0].Size, "Content-Length should map to size")
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Unix(), entries[0].Modified, "Last-Modified should map to mtime")

	_, err = b.List(ctx, "/missing.bin")
	assert.True(t, backend.IsNotFound(err), "404 should map to not found")
}

func TestWriteOperationsAreUnsupported(t *testing.T) {
	ctx := context.Background()
	_, ep := newTestServer(t)
	b := New(ep)

	_, err := b.CopyDir(ctx, "/a", "/b", &backend.CopyOptions{Recursive: true})
	assert.True(t, backend.IsUnsupported(err), "directory copy is unsupported over http")

	err = b.Delete(ctx, ep.Path)
	assert.True(t, backend.IsUnsupported(err), "delete is unsupported over http")
}

func TestChecksumStreamsBody(t *testing.T) {
	ctx := context.Background()
	_, ep := newTestServer(t)
	b := New(ep)

	want := sha256.Sum256(artifact)
	got, err := b.Checksum(ctx, ep.Path, backend.ChecksumSHA256)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(want[:]), got, "digest should match")
}

func TestConnectionErrorMapping(t *testing.T) {
	ctx := context.Background()
	srv, ep := newTestServer(t)
	srv.Close()

	b := New(ep)
	_, err := b.CopyFile(ctx, ep.Path, filepath.Join(t.TempDir(), "dst"), nil)
	require.Error(t, err, "a closed server should fail")
	var ce *backend.ConnectionError
	assert.ErrorAs(t, err, &ce, "transport failures map to connection errors")
}
