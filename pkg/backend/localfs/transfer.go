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
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
)

const (
	// Files above this size stream through the large buffer
	largeFileThreshold = 1 << 20 // 1 MiB
	// Files above this size are worth a zero-copy kernel transfer
	zeroCopyThreshold = 1 << 20 // 1 MiB
	// Loading more than this into RAM draws a warning
	ramWarnThreshold = 100 << 20 // 100 MiB

	largeBufferSize = 64 * 1024
	smallBufferSize = 8 * 1024
)

// 🚚 TransferFunc moves the bytes of one local regular file from src to dst
// and returns the exact byte count written. Implementations must create
// missing destination parent directories before writing.
type TransferFunc func(src, dst string) (int64, error)

// 🎯 Strategy pairs a transfer function with the predicate that decides
// whether it applies to a given file. Strategies are evaluated in order;
// the buffered-adaptive transfer is the implicit, universal fallback.
type Strategy struct {
	Name     string
	Applies  func(size int64, opts *backend.CopyOptions) bool
	Transfer TransferFunc
}

// 📋 StrategySet is the ordered strategy registry one local backend uses.
// Keeping it a runtime value (instead of compile-time branching) lets tests
// exercise the selection logic on any platform by injecting entries.
type StrategySet struct {
	strategies []Strategy
}

// 🏭 DefaultStrategies builds the platform registry: the RAM strategy first
// (forced by opts), then whatever zero-copy primitive this platform has.
func DefaultStrategies() *StrategySet {
	s := &StrategySet{}
	s.Add(Strategy{
		Name:     "ram",
		Applies:  func(size int64, opts *backend.CopyOptions) bool { return opts != nil && opts.UseRAM },
		Transfer: CopyViaRAM,
	})
	for _, ps := range platformStrategies() {
		s.Add(ps)
	}
	return s
}

// Add appends a strategy to the registry
func (s *StrategySet) Add(st Strategy) {
	s.strategies = append(s.strategies, st)
}

// Names lists the registered strategies in evaluation order, ending with
// the buffered fallback
func (s *StrategySet) Names() []string {
	names := make([]string, 0, len(s.strategies)+1)
	for _, st := range s.strategies {
		names = append(names, st.Name)
	}
	return append(names, "buffered")
}

// 🚚 Transfer copies one regular file using the first applicable strategy,
// falling back to the next entry (and finally to buffered-adaptive) when a
// strategy fails. Returns the bytes written and the name of the strategy
// that did the work.
func (s *StrategySet) Transfer(ctx context.Context, src, dst string, opts *backend.CopyOptions) (int64, string, error) {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, "", &backend.NotFoundError{Path: src}
		}
		return 0, "", errors.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return 0, "", &backend.InvalidPathError{Path: src, Reason: "source is not a regular file"}
	}

	if opts != nil && opts.UseRAM && info.Size() > ramWarnThreshold {
		logger.Warn().
			Str("src", src).
			Int64("size", info.Size()).
			Msg("loading a large file into RAM, memory use equals file size")
	}

	for _, st := range s.strategies {
		if st.Applies == nil || !st.Applies(info.Size(), opts) {
			continue
		}
		n, err := st.Transfer(src, dst)
		if err == nil {
			return n, st.Name, nil
		}
		logger.Debug().
			Str("strategy", st.Name).
			Str("src", src).
			Err(err).
			Msg("transfer strategy failed, falling through")
	}

	n, err := CopyBuffered(src, dst)
	if err != nil {
		return 0, "", errors.Errorf("buffered copy %s -> %s: %w", src, dst, err)
	}
	return n, "buffered", nil
}

// bufferSize picks the adaptive stream buffer for a source size
func bufferSize(fileSize int64) int {
	if fileSize > largeFileThreshold {
		return largeBufferSize
	}
	return smallBufferSize
}

func ensureParent(dst string) error {
	parent := filepath.Dir(dst)
	if parent == "" || parent == "." {
		return nil
	}
	return os.MkdirAll(parent, 0o755)
}

// 🚚 CopyBuffered streams src into dst with an adaptive buffer: 64 KiB for
// sources above 1 MiB, 8 KiB otherwise. This is the universal fallback.
func CopyBuffered(src, dst string) (int64, error) {
	return CopyBufferedResume(src, dst, 0)
}

// 🚚 CopyBufferedResume is CopyBuffered with a resume offset: both cursors
// seek to resumeFrom and the destination is opened for in-place writing
// rather than truncated. The returned count includes the resumed prefix.
func CopyBufferedResume(src, dst string, resumeFrom int64) (int64, error) {
	if err := ensureParent(dst); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	var out *os.File
	if resumeFrom > 0 {
		if _, err := os.Stat(dst); err == nil {
			out, err = os.OpenFile(dst, os.O_WRONLY, 0o644)
			if err != nil {
				return 0, err
			}
		} else {
			out, err = os.Create(dst)
			if err != nil {
				return 0, err
			}
		}
	} else {
		out, err = os.Create(dst)
		if err != nil {
			return 0, err
		}
	}
	defer out.Close()

	if resumeFrom > 0 {
		if _, err := in.Seek(resumeFrom, io.SeekStart); err != nil {
			return 0, err
		}
		if _, err := out.Seek(resumeFrom, io.SeekStart); err != nil {
			return 0, err
		}
	}

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	buf := make([]byte, bufferSize(info.Size()))
	total := resumeFrom
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return total, rerr
		}
	}

	if err := out.Sync(); err != nil {
		return total, err
	}
	return total, nil
}

// 🚚 CopyViaRAM reads the entire source into memory, then writes it out in
// one call. Memory use equals file size.
func CopyViaRAM(src, dst string) (int64, error) {
	if err := ensureParent(dst); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
