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

package userlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/ucp/pkg/backend"
)

func newTestLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, zerolog.Disabled), &buf
}

func TestEchofIndentsLines(t *testing.T) {
	l, buf := newTestLogger()
	l.Echof("copied %d bytes", 42)
	assert.Equal(t, "  copied 42 bytes\n", buf.String(), "echo lines are indented")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Echof("nothing")
	l.Success("nothing")
	l.Warning("nothing")
	l.Error("nothing")
	l.Header("nothing")
	l.CopySummary(backend.NewCopyStats())
	l.SyncSummary(&backend.SyncStats{})
	l.Listing(backend.FileEntry{})
}

func TestContextRoundTrip(t *testing.T) {
	l, _ := newTestLogger()
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx), "logger should round-trip through context")

	assert.Nil(t, FromContext(context.Background()), "absent logger yields nil")
}

func TestCopySummary(t *testing.T) {
	l, buf := newTestLogger()

	stats := backend.NewCopyStats()
	stats.RecordFile(1 << 20)
	stats.RecordFile(1 << 20)
	stats.RecordSkip()

	l.CopySummary(stats)
	out := buf.String()
	assert.Contains(t, out, "=== Copy Summary ===", "summary header should print")
	assert.Contains(t, out, "Files copied:  2", "copied count should print")
	assert.Contains(t, out, "Files skipped: 1", "skipped count should print")
	assert.Contains(t, out, "(2.00 MB)", "megabytes should be derived from the byte count")
	assert.Contains(t, out, "Elapsed:", "tracked stats include elapsed time")
}

func TestCopySummarySkipsMinimalStats(t *testing.T) {
	l, buf := newTestLogger()
	l.CopySummary(backend.NewMinimalCopyStats())
	assert.Empty(t, buf.String(), "minimal stats print no summary")

	l.CopySummary(nil)
	assert.Empty(t, buf.String(), "nil stats print no summary")
}

func TestSyncSummary(t *testing.T) {
	l, buf := newTestLogger()
	l.SyncSummary(&backend.SyncStats{FilesCopied: 3, BytesCopied: 512, FilesDeleted: 1})

	out := buf.String()
	assert.Contains(t, out, "=== Sync Summary ===", "summary header should print")
	assert.Contains(t, out, "Files copied:  3")
	assert.Contains(t, out, "Files deleted: 1")
}

func TestListing(t *testing.T) {
	l, buf := newTestLogger()

	l.Listing(backend.FileEntry{Path: "/data/a.txt", Size: 42, Modified: 1700000000})
	l.Listing(backend.FileEntry{Path: "/data/sub", IsDir: true})

	out := buf.String()
	require.Contains(t, out, "/data/a.txt", "file path should print")
	assert.Contains(t, out, "42", "size should print")
	assert.Contains(t, out, "2023-11-14", "modification date should render")
	assert.Contains(t, out, "/data/sub", "directory path should print")
}
