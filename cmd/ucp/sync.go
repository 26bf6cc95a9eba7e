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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/ucp/pkg/backend"
	"github.com/walteh/ucp/pkg/engine"
	"github.com/walteh/ucp/pkg/userlog"
	"gitlab.com/tozd/go/errors"
)

// newSyncCmd creates the sync command
func newSyncCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "sync SOURCE DEST",
		Short: "Make DEST mirror SOURCE",
		Long: `Sync computes the difference between the source and destination listings
and applies it: changed and new files are copied, destination files with no
source counterpart are deleted. With --mode copy-only nothing is ever
deleted. Every run recomputes the plan from live listings.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				return errors.New("syncing between two remote endpoints is not supported")
			}

			opts, _, err := buildOptions(ctx, cmd)
			if err != nil {
				return err
			}

			srcB, closeSrc, err := openEndpointBackend(ctx, srcEp, opts.SSHOpts)
			if err != nil {
				return err
			}
			defer closeSrc()

			dstB, closeDst, err := openEndpointBackend(ctx, dstEp, opts.SSHOpts)
			if err != nil {
				return err
			}
			defer closeDst()

			eng := engine.NewSyncEngine(srcB, dstB, engine.SyncMode(mode), opts)
			if srcEp.IsLocal() && !dstEp.IsLocal() {
				eng.WithTransferBackend(dstB)
			}

			ulog.Header(fmt.Sprintf("sync %s -> %s", srcEp, dstEp))

			stats, err := eng.Sync(ctx, srcEp.Path, dstEp.Path)
			if err != nil {
				return err
			}
			ulog.SyncSummary(stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(engine.SyncOneWay), "sync mode: one-way or copy-only")
	return cmd
}
