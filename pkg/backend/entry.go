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

package backend

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📄 FileEntry is an immutable snapshot of one path as reported by a
// backend listing. It is re-fetched on every listing call; there is no
// caching and no identity beyond the path string.
type FileEntry struct {
	Path     string // Absolute or endpoint-relative path
	Size     int64  // Size in bytes; 0 for directories
	IsDir    bool   // Whether this is a directory
	Modified int64  // Modification time, epoch seconds; 0 when unknown
}

// RelativeTo strips a root prefix from the entry path. Two entries across
// source and destination are the same logical file iff their paths match
// after stripping each one's respective root.
func (e FileEntry) RelativeTo(root string) string {
	rel := strings.TrimPrefix(e.Path, root)
	return strings.TrimLeft(rel, "/")
}

// 🔎 FileFilter gates file entries before a transfer. Implemented by
// pkg/filter; declared here so CopyOptions can carry one without a cycle.
type FileFilter interface {
	Matches(entry FileEntry) bool
}

// 🔧 CopyOptions configures a single copy or sync invocation. It is passed
// by reference into every backend call and never mutated mid-operation.
type CopyOptions struct {
	Verbose   bool       // Echo each transfer
	Progress  bool       // Report per-file progress
	UseRAM    bool       // Force the whole-file-in-memory transfer strategy
	Recursive bool       // Allow directory copies
	DryRun    bool       // Compute everything, write nothing
	SSHOpts   []string   // Options forwarded verbatim to the ssh transport
	Filters   FileFilter // Optional filter chain; nil accepts everything
	Echo      EchoFunc   // Optional sink for verbose/progress echoes
}

// EchoFunc receives the verbose/progress echo lines emitted during a copy
// loop. Wired to the console logger by the CLI; nil discards them.
type EchoFunc func(format string, args ...any)

// Echof emits a verbose echo line if an echo sink is configured
func (o *CopyOptions) Echof(format string, args ...any) {
	if o != nil && o.Echo != nil {
		o.Echo(format, args...)
	}
}

// Accepts applies the configured filter chain to an entry
func (o *CopyOptions) Accepts(entry FileEntry) bool {
	if o == nil || o.Filters == nil {
		return true
	}
	return o.Filters.Matches(entry)
}

// 📊 ChecksumAlgorithm selects the digest used for integrity verification
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"    // low-value/compatibility check
	ChecksumSHA1   ChecksumAlgorithm = "sha1"   // stronger integrity
	ChecksumSHA256 ChecksumAlgorithm = "sha256" // strongest supported
)

// ParseChecksumAlgorithm parses a user-supplied algorithm name
func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	switch strings.ToLower(s) {
	case "md5":
		return ChecksumMD5, nil
	case "sha1":
		return ChecksumSHA1, nil
	case "sha256":
		return ChecksumSHA256, nil
	default:
		return "", errors.Errorf("invalid checksum algorithm %q, use md5, sha1, or sha256", s)
	}
}

// Hasher returns a fresh hash.Hash for the algorithm, for streaming digests
func (a ChecksumAlgorithm) Hasher() (hash.Hash, error) {
	switch a {
	case ChecksumMD5:
		return md5.New(), nil
	case ChecksumSHA1:
		return sha1.New(), nil
	case ChecksumSHA256:
		return sha256.New(), nil
	default:
		return nil, errors.Errorf("unknown checksum algorithm %q", string(a))
	}
}
