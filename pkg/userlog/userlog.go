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

// Package userlog renders the user-facing console output: transfer echoes,
// warnings, and end-of-run summaries. Structured logging goes to zerolog in
// parallel so the console stays clean.
package userlog

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
)

// 🎯 Logger handles console output with a zerolog mirror
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new console logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context; a nil logger discards output
func FromContext(ctx context.Context) *Logger {
	logger, _ := ctx.Value(contextKey{}).(*Logger)
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 Echof prints one transfer echo line; it is the sink wired into
// CopyOptions.Echo
func (l *Logger) Echof(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "  %s\n", fmt.Sprintf(format, args...))
	l.zlog.Debug().Msg(fmt.Sprintf(format, args...))
}

// 📝 Header prints the run header
func (l *Logger) Header(msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("ucp")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success prints a success message
func (l *Logger) Success(msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning prints a warning message
func (l *Logger) Warning(msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error prints an error message
func (l *Logger) Error(msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Successf prints a formatted success message
func (l *Logger) Successf(format string, args ...any) {
	l.Success(fmt.Sprintf(format, args...))
}

// 📝 Warningf prints a formatted warning message
func (l *Logger) Warningf(format string, args ...any) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf prints a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📊 CopySummary prints the end-of-run summary for a copy operation
func (l *Logger) CopySummary(stats *backend.CopyStats) {
	if l == nil || stats == nil || !stats.Tracking() {
		return
	}
	copied, skipped, bytes := stats.Snapshot()

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "\n%s\n", color.New(color.Bold).Sprint("=== Copy Summary ==="))
	fmt.Fprintf(l.console, "Files copied:  %d\n", copied)
	fmt.Fprintf(l.console, "Files skipped: %d\n", skipped)
	fmt.Fprintf(l.console, "Bytes copied:  %d (%.2f MB)\n", bytes, float64(bytes)/(1<<20))
	if elapsed, ok := stats.Elapsed(); ok && elapsed > 0 {
		rate := float64(bytes) / elapsed.Seconds() / (1 << 20)
		fmt.Fprintf(l.console, "Elapsed:       %s (%.2f MB/s)\n", elapsed.Round(time.Millisecond), rate)
	}

	l.zlog.Info().
		Int64("files_copied", copied).
		Int64("files_skipped", skipped).
		Int64("bytes_copied", bytes).
		Msg("copy complete")
}

// 📊 SyncSummary prints the end-of-run summary for a sync operation
func (l *Logger) SyncSummary(stats *backend.SyncStats) {
	if l == nil || stats == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "\n%s\n", color.New(color.Bold).Sprint("=== Sync Summary ==="))
	fmt.Fprintf(l.console, "Files copied:  %d\n", stats.FilesCopied)
	fmt.Fprintf(l.console, "Bytes copied:  %d (%.2f MB)\n", stats.BytesCopied, float64(stats.BytesCopied)/(1<<20))
	fmt.Fprintf(l.console, "Files deleted: %d\n", stats.FilesDeleted)

	l.zlog.Info().
		Int64("files_copied", stats.FilesCopied).
		Int64("bytes_copied", stats.BytesCopied).
		Int64("files_deleted", stats.FilesDeleted).
		Msg("sync complete")
}

// 📋 Listing prints one listing row
func (l *Logger) Listing(entry backend.FileEntry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	kind := color.New(color.FgBlue).Sprint("file")
	if entry.IsDir {
		kind = color.New(color.FgCyan).Sprint("dir ")
	}
	modified := ""
	if entry.Modified > 0 {
		modified = time.Unix(entry.Modified, 0).UTC().Format(time.DateTime)
	}
	fmt.Fprintf(l.console, "%s %12d  %-19s  %s\n", kind, entry.Size, modified, entry.Path)
}
