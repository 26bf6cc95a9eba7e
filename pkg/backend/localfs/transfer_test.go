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

package localfs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestBufferSize(t *testing.T) {
	assert.Equal(t, smallBufferSize, bufferSize(10), "small files use the small buffer")
	assert.Equal(t, smallBufferSize, bufferSize(largeFileThreshold), "the threshold itself is still small")
	assert.Equal(t, largeBufferSize, bufferSize(largeFileThreshold+1), "above the threshold uses the large buffer")
}

func TestCopyBufferedRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{name: "empty", size: 0},
		{name: "small", size: 1024},
		{name: "above_threshold", size: largeFileThreshold + 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			data := bytes.Repeat([]byte{0xAB}, tt.size)
			src := writeFile(t, dir, "src.bin", data)
			dst := filepath.Join(dir, "nested", "dst.bin")

			n, err := CopyBuffered(src, dst)
			require.NoError(t, err, "copy should succeed")
			assert.Equal(t, int64(tt.size), n, "byte count should match")

			got, err := os.ReadFile(dst)
			require.NoError(t, err, "destination should exist, parents included")
			assert.Equal(t, data, got, "content should match")
		})
	}
}

func TestCopyBufferedResume(t *testing.T) {
	dir := t.TempDir()
	data := []byte("hello resumable world")
	src := writeFile(t, dir, "src.txt", data)

	// A previous transfer left the first 6 bytes in place
	dst := writeFile(t, dir, "dst.txt", data[:6])

	n, err := CopyBufferedResume(src, dst, 6)
	require.NoError(t, err, "resume should succeed")
	assert.Equal(t, int64(len(data)), n, "total includes the resumed prefix")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got, "content should be whole after resume")
}

func TestCopyBufferedResumeMissingDestination(t *testing.T) {
	dir := t.TempDir()
	data := []byte("0123456789")
	src := writeFile(t, dir, "src.txt", data)
	dst := filepath.Join(dir, "dst.txt")

	// Resuming into a destination that vanished writes a sparse prefix and
	// the remainder; the byte count is still total file size
	n, err := CopyBufferedResume(src, dst, 4)
	require.NoError(t, err, "resume into missing destination should succeed")
	assert.Equal(t, int64(len(data)), n, "total includes the offset")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data[4:], got[4:], "bytes after the offset should match")
}

func TestCopyViaRAM(t *testing.T) {
	dir := t.TempDir()
	data := []byte("in-memory payload")
	src := writeFile(t, dir, "src.txt", data)
	dst := filepath.Join(dir, "sub", "dst.txt")

	n, err := CopyViaRAM(src, dst)
	require.NoError(t, err, "ram copy should succeed")
	assert.Equal(t, int64(len(data)), n, "byte count should match")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got, "content should match")
}

func TestStrategySetFallsThroughOnFailure(t *testing.T) {
	dir := t.TempDir()
	data := []byte("fallback payload")
	src := writeFile(t, dir, "src.txt", data)
	dst := filepath.Join(dir, "dst.txt")

	broken := 0
	ss := &StrategySet{}
	ss.Add(Strategy{
		Name:    "broken",
		Applies: func(size int64, opts *backend.CopyOptions) bool { return true },
		Transfer: func(src, dst string) (int64, error) {
			broken++
			return 0, errors.New("simulated strategy failure")
		},
	})

	n, strategy, err := ss.Transfer(context.Background(), src, dst, nil)
	require.NoError(t, err, "fallback should rescue the transfer")
	assert.Equal(t, 1, broken, "failing strategy should have been tried")
	assert.Equal(t, "buffered", strategy, "buffered fallback should do the work")
	assert.Equal(t, int64(len(data)), n, "byte count should match")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got, "content should match")
}

func TestStrategySetSkipsInapplicable(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", []byte("x"))
	dst := filepath.Join(dir, "dst.txt")

	ss := &StrategySet{}
	ss.Add(Strategy{
		Name:    "never",
		Applies: func(size int64, opts *backend.CopyOptions) bool { return false },
		Transfer: func(src, dst string) (int64, error) {
			t.Fatal("inapplicable strategy must not run")
			return 0, nil
		},
	})

	_, strategy, err := ss.Transfer(context.Background(), src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, "buffered", strategy, "only the fallback should run")
}

func TestStrategySetRAMSelection(t *testing.T) {
	dir := t.TempDir()
	data := []byte("ram selected payload")
	src := writeFile(t, dir, "src.txt", data)
	dst := filepath.Join(dir, "dst.txt")

	ss := DefaultStrategies()

	n, strategy, err := ss.Transfer(context.Background(), src, dst, &backend.CopyOptions{UseRAM: true})
	require.NoError(t, err)
	assert.Equal(t, "ram", strategy, "UseRAM should force the ram strategy")
	assert.Equal(t, int64(len(data)), n, "byte count should match")
}

func TestStrategySetErrors(t *testing.T) {
	dir := t.TempDir()
	ss := DefaultStrategies()

	_, _, err := ss.Transfer(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "dst"), nil)
	assert.True(t, backend.IsNotFound(err), "missing source should be a not-found error")

	_, _, err = ss.Transfer(context.Background(), dir, filepath.Join(dir, "dst"), nil)
	var ip *backend.InvalidPathError
	assert.ErrorAs(t, err, &ip, "directory source should be an invalid path error")
}

func TestStrategySetNames(t *testing.T) {
	ss := &StrategySet{}
	ss.Add(Strategy{Name: "a"})
	ss.Add(Strategy{Name: "b"})
	assert.Equal(t, []string{"a", "b", "buffered"}, ss.Names(), "order should be preserved with the fallback last")
}
