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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/ucp/pkg/backend"
	"github.com/walteh/ucp/pkg/filter"
	"gitlab.com/tozd/go/errors"
)

func TestSyncOneWayIntoEmptyDestination(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/a.txt", "aaa", 1)
	fake.put("/src/sub/b.txt", "bb", 2)

	eng := NewSyncEngine(fake, fake, SyncOneWay, nil)
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err, "sync into a missing destination should succeed")

	assert.Equal(t, int64(2), stats.FilesCopied, "both files should be copied")
	assert.Equal(t, int64(5), stats.BytesCopied, "byte tally should match")
	assert.Zero(t, stats.FilesDeleted, "nothing to delete on first sync")

	assert.Contains(t, fake.files, "/dst/a.txt", "top-level file should land")
	assert.Contains(t, fake.files, "/dst/sub/b.txt", "nested file should land")
}

func TestSyncOneWayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/a.txt", "aaa", 1)
	fake.put("/src/sub/b.txt", "bb", 2)

	eng := NewSyncEngine(fake, fake, SyncOneWay, nil)
	_, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)

	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err, "second pass should succeed")
	assert.Zero(t, stats.FilesCopied, "an in-sync tree copies nothing")
	assert.Zero(t, stats.FilesDeleted, "an in-sync tree deletes nothing")
}

func TestSyncOneWayDetectsChanges(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/same.txt", "aaa", 1)
	fake.put("/dst/same.txt", "aaa", 1)
	fake.put("/src/newer.txt", "bbb", 9)
	fake.put("/dst/newer.txt", "bbb", 2)
	fake.put("/src/grown.txt", "cccc", 3)
	fake.put("/dst/grown.txt", "cc", 3)

	eng := NewSyncEngine(fake, fake, SyncOneWay, nil)
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.FilesCopied, "changed mtime and changed size should both re-copy")
	assert.Equal(t, int64(9), fake.files["/dst/newer.txt"].mtime, "destination should carry the new mtime")
	assert.Equal(t, "cccc", string(fake.files["/dst/grown.txt"].data), "destination should carry the new content")
}

func TestSyncOneWayPrunesOrphans(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/keep.txt", "k", 1)
	fake.put("/dst/keep.txt", "k", 1)
	fake.put("/dst/orphan.txt", "o", 2)

	eng := NewSyncEngine(fake, fake, SyncOneWay, nil)
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.FilesDeleted, "the orphan should be deleted")
	assert.NotContains(t, fake.files, "/dst/orphan.txt", "orphan should be gone")
	assert.Contains(t, fake.files, "/dst/keep.txt", "matched file should survive")
}

func TestSyncCopyOnlyNeverDeletes(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/a.txt", "aaa", 1)
	fake.put("/dst/orphan.txt", "o", 2)

	eng := NewSyncEngine(fake, fake, SyncCopyOnly, nil)
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.FilesCopied, "source file should copy")
	assert.Zero(t, stats.FilesDeleted, "copy-only never deletes")
	assert.Contains(t, fake.files, "/dst/orphan.txt", "orphan must survive copy-only")
	assert.Empty(t, fake.deleteCalls, "no delete should even be attempted")
}

func TestSyncCopyOnlyRecopiesUnchanged(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/a.txt", "aaa", 1)
	fake.put("/dst/a.txt", "aaa", 1)

	eng := NewSyncEngine(fake, fake, SyncCopyOnly, nil)
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FilesCopied, "copy-only copies unconditionally")
}

func TestSyncTwoWayIsUnsupported(t *testing.T) {
	ctx := context.Background()
	eng := NewSyncEngine(newFakeBackend(), newFakeBackend(), SyncTwoWay, nil)
	_, err := eng.Sync(ctx, "/a", "/b")
	require.Error(t, err)
	assert.True(t, backend.IsUnsupported(err), "two-way sync is declared unsupported")
}

func TestSyncDryRunCountsWithoutExecuting(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/a.txt", "aaa", 1)
	fake.put("/dst/orphan.txt", "o", 2)

	eng := NewSyncEngine(fake, fake, SyncOneWay, &backend.CopyOptions{DryRun: true})
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.FilesCopied, "planned copies should be counted")
	assert.Equal(t, int64(1), stats.FilesDeleted, "planned deletes should be counted")
	assert.Empty(t, fake.copyCalls, "dry run must not copy")
	assert.Empty(t, fake.deleteCalls, "dry run must not delete")
	assert.NotContains(t, fake.files, "/dst/a.txt", "nothing should land")
}

func TestSyncRespectsFilters(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/keep.txt", "k", 1)
	fake.put("/src/drop.log", "d", 2)

	pattern, err := filter.NewPatternFilter(nil, []string{"*.log"})
	require.NoError(t, err)

	eng := NewSyncEngine(fake, fake, SyncOneWay, &backend.CopyOptions{Filters: filter.NewChain(pattern)})
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.FilesCopied, "only the unfiltered file should copy")
	assert.NotContains(t, fake.files, "/dst/drop.log", "filtered file must not land")
}

func TestSyncFailFastOnCopyError(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBackend()
	fake.put("/src/a.txt", "aaa", 1)
	fake.put("/dst/orphan.txt", "o", 2)
	fake.copyErr = errors.New("disk full")

	eng := NewSyncEngine(fake, fake, SyncOneWay, nil)
	_, err := eng.Sync(ctx, "/src", "/dst")
	require.Error(t, err, "copy failure should abort the run")
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, fake.deleteCalls, "the delete phase must not start after a copy failure")
}

func TestSyncMissingSourceIsAnError(t *testing.T) {
	ctx := context.Background()
	eng := NewSyncEngine(newFakeBackend(), newFakeBackend(), SyncOneWay, nil)
	_, err := eng.Sync(ctx, "/nope", "/dst")
	require.Error(t, err, "a missing source is an error, unlike a missing destination")
	assert.True(t, backend.IsNotFound(err), "failure should be not-found")
}

func TestSyncTransferBackendRouting(t *testing.T) {
	ctx := context.Background()
	src := newFakeBackend()
	src.put("/src/a.txt", "aaa", 1)
	xfer := newFakeBackend()
	xfer.put("/src/a.txt", "aaa", 1)
	dst := newFakeBackend()

	eng := NewSyncEngine(src, dst, SyncOneWay, nil).WithTransferBackend(xfer)
	stats, err := eng.Sync(ctx, "/src", "/dst")
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.FilesCopied)
	assert.Empty(t, src.copyCalls, "listing backend should not transfer")
	require.Len(t, xfer.copyCalls, 1, "transfer backend should carry the copy")
	assert.Equal(t, "/src/a.txt -> /dst/a.txt", xfer.copyCalls[0])
}
