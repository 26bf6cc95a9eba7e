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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/ucp/pkg/backend"
	"github.com/walteh/ucp/pkg/backend/localfs"
	"github.com/walteh/ucp/pkg/backend/sftpfs"
	"github.com/walteh/ucp/pkg/config"
	"github.com/walteh/ucp/pkg/engine"
	"github.com/walteh/ucp/pkg/userlog"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile   string
	debug        bool
	verbose      bool
	recursive    bool
	progress     bool
	useRAM       bool
	moveFiles    bool
	dryRun       bool
	checksumAlgo string
	sshOpts      []string
	include      []string
	exclude      []string
	minSize      int64
	maxSize      int64
)

// newRootCmd builds the root command. The root itself is the copy command;
// sync, ls, rm and sum hang off it.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ucp SOURCE DEST",
		Short:         "Copy and synchronize files across local, ssh, s3 and http endpoints",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyEnvFallbacks()
			ctx := setupLogging(cmd.Context())
			level := zerolog.InfoLevel
			if debug {
				level = zerolog.DebugLevel
			}
			ctx = userlog.NewContext(ctx, userlog.New(os.Stdout, level))
			cmd.SetContext(ctx)
		},
		RunE: runCopy,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", ".ucprc.yaml", "defaults file path")
	pf.BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	pf.BoolVarP(&verbose, "verbose", "v", false, "echo each transfer")
	pf.BoolVarP(&progress, "progress", "p", false, "show transfer progress")
	pf.BoolVar(&dryRun, "dry-run", false, "compute everything, write nothing")
	pf.StringArrayVarP(&sshOpts, "ssh-opt", "s", nil, "ssh option, e.g. IdentityFile=~/.ssh/id_ed25519 (repeatable)")
	pf.StringArrayVar(&include, "include", nil, "glob pattern to include (repeatable)")
	pf.StringArrayVar(&exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	pf.Int64Var(&minSize, "min-size", -1, "minimum file size in bytes")
	pf.Int64Var(&maxSize, "max-size", -1, "maximum file size in bytes")

	fl := cmd.Flags()
	fl.BoolVarP(&recursive, "recursive", "r", false, "copy directories recursively")
	fl.BoolVar(&useRAM, "ram", false, "load whole files into memory for the transfer")
	fl.BoolVarP(&moveFiles, "move", "m", false, "remove the source after a successful copy")
	fl.StringVar(&checksumAlgo, "checksum", "", "verify transfers with md5, sha1 or sha256")

	cmd.AddCommand(newSyncCmd(), newLsCmd(), newRmCmd(), newSumCmd())
	return cmd
}

// setupLogging configures zerolog based on flags and returns a context
// carrying the logger
func setupLogging(ctx context.Context) context.Context {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger.WithContext(ctx)
}

// applyEnvFallbacks fills flags that were not set from UCP_* environment
// variables
func applyEnvFallbacks() {
	if !verbose {
		verbose = envBool("UCP_VERBOSE")
	}
	if !dryRun {
		dryRun = envBool("UCP_DRY_RUN")
	}
	if !progress {
		progress = envBool("UCP_PROGRESS")
	}
	if len(sshOpts) == 0 {
		if v := os.Getenv("UCP_SSH_OPTS"); v != "" {
			sshOpts = strings.Fields(v)
		}
	}
}

func envBool(name string) bool {
	v := os.Getenv(name)
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
}

// buildOptions merges the defaults file with the command-line flags (flags
// win) and produces the copy options plus the requested checksum algorithm
func buildOptions(ctx context.Context, cmd *cobra.Command) (*backend.CopyOptions, backend.ChecksumAlgorithm, error) {
	defaults, err := config.LoadIfPresent(ctx, configFile)
	if err != nil {
		return nil, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") || verbose {
		defaults.Verbose = verbose
	}
	if flags.Changed("progress") || progress {
		defaults.Progress = progress
	}
	if flags.Changed("ram") || useRAM {
		defaults.UseRAM = useRAM
	}
	if len(sshOpts) > 0 {
		defaults.SSHOpts = sshOpts
	}
	if checksumAlgo != "" {
		defaults.Checksum = checksumAlgo
	}
	if len(include) > 0 {
		defaults.Include = include
	}
	if len(exclude) > 0 {
		defaults.Exclude = exclude
	}
	if flags.Changed("min-size") && minSize >= 0 {
		defaults.MinSize = &minSize
	}
	if flags.Changed("max-size") && maxSize >= 0 {
		defaults.MaxSize = &maxSize
	}

	if err := defaults.Validate(); err != nil {
		return nil, "", err
	}

	chain, err := defaults.FilterChain()
	if err != nil {
		return nil, "", err
	}

	opts := &backend.CopyOptions{
		Verbose:   defaults.Verbose,
		Progress:  defaults.Progress,
		UseRAM:    defaults.UseRAM,
		Recursive: recursive,
		DryRun:    dryRun,
		SSHOpts:   defaults.SSHOpts,
		Echo:      userlog.FromContext(ctx).Echof,
	}
	if chain != nil {
		opts.Filters = chain
	}

	var algo backend.ChecksumAlgorithm
	if defaults.Checksum != "" {
		algo, err = backend.ParseChecksumAlgorithm(defaults.Checksum)
		if err != nil {
			return nil, "", err
		}
	}
	return opts, algo, nil
}

// openEndpointBackend constructs the backend for one endpoint. SSH options
// force a direct sftp dial; everything else goes through the registry.
func openEndpointBackend(ctx context.Context, ep *backend.Endpoint, opts []string) (backend.Backend, func(), error) {
	if (ep.Scheme == backend.SchemeSSH || ep.Scheme == backend.SchemeSFTP) && len(opts) > 0 {
		b, err := sftpfs.Dial(ctx, ep, opts...)
		if err != nil {
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	}

	b, err := backend.New(ctx, ep)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {}
	if c, ok := b.(io.Closer); ok {
		closer = func() { c.Close() }
	}
	return b, closer, nil
}

// openTransferBackend picks the backend that moves bytes between the two
// endpoints: the remote one when a side is remote, local otherwise
func openTransferBackend(ctx context.Context, src, dst *backend.Endpoint, opts []string) (backend.Backend, func(), error) {
	remote := src
	if remote.IsLocal() {
		remote = dst
	}
	return openEndpointBackend(ctx, remote, opts)
}

// isDirectory reports whether the source endpoint names a directory
func isDirectory(ctx context.Context, b backend.Backend, ep *backend.Endpoint) (bool, error) {
	if ep.IsLocal() {
		info, err := os.Stat(ep.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return false, &backend.NotFoundError{Path: ep.Path}
			}
			return false, errors.Errorf("stat %s: %w", ep.Path, err)
		}
		return info.IsDir(), nil
	}

	entries, err := b.List(ctx, ep.Path)
	if err != nil {
		return false, err
	}
	if len(entries) == 1 && entries[0].Path == ep.Path {
		return entries[0].IsDir, nil
	}
	return true, nil
}

func runCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ulog := userlog.FromContext(ctx)

	srcEp, err := backend.ParseEndpoint(args[0])
	if err != nil {
		return err
	}
	dstEp, err := backend.ParseEndpoint(args[1])
	if err != nil {
		return err
	}
	if !srcEp.IsLocal() && !dstEp.IsLocal() {
		return errors.New("transfers between two remote endpoints are not supported")
	}

	opts, algo, err := buildOptions(ctx, cmd)
	if err != nil {
		return err
	}

	b, closeBackend, err := openTransferBackend(ctx, srcEp, dstEp, opts.SSHOpts)
	if err != nil {
		return err
	}
	defer closeBackend()

	ulog.Header(fmt.Sprintf("%s -> %s", srcEp, dstEp))

	isDir, err := isDirectory(ctx, b, srcEp)
	if err != nil {
		return err
	}

	if isDir && !opts.Recursive {
		ok, _ := pterm.DefaultInteractiveConfirm.
			WithDefaultValue(false).
			Show(fmt.Sprintf("%s is a directory, copy recursively?", srcEp))
		if !ok {
			ulog.Warning("copy aborted")
			return nil
		}
		opts.Recursive = true
	}

	eng := engine.NewCopyEngine(b, opts)
	if algo != "" {
		eng.WithChecksum(algo)
	}

	var spinner *pterm.SpinnerPrinter
	if opts.Progress && !opts.DryRun {
		spinner, _ = pterm.DefaultSpinner.Start("copying " + srcEp.String())
	}
	stopSpinner := func(err error) {
		if spinner == nil {
			return
		}
		if err != nil {
			spinner.Fail("transfer failed")
			return
		}
		spinner.Success("transfer complete")
	}

	if isDir {
		stats, err := eng.CopyDir(ctx, srcEp.Path, dstEp.Path)
		stopSpinner(err)
		if err != nil {
			return err
		}
		ulog.CopySummary(stats)
	} else {
		n, err := eng.CopyFile(ctx, srcEp.Path, dstEp.Path)
		stopSpinner(err)
		if err != nil {
			return err
		}
		if !opts.DryRun {
			ulog.Successf("copied %s (%d bytes)", srcEp, n)
		}
	}

	if moveFiles && !opts.DryRun {
		if err := deleteSource(ctx, b, srcEp); err != nil {
			// The copy already succeeded; a stuck source is a warning
			ulog.Warningf("copy succeeded but removing source failed: %v", err)
			return nil
		}
		ulog.Successf("removed source %s", srcEp)
	}
	return nil
}

// deleteSource removes the source after a move. A local source is always
// deleted locally, whichever backend carried the transfer.
func deleteSource(ctx context.Context, b backend.Backend, ep *backend.Endpoint) error {
	if ep.IsLocal() {
		return localfs.New().Delete(ctx, ep.Path)
	}
	return b.Delete(ctx, ep.Path)
}
