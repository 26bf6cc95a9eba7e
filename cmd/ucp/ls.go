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
	"github.com/spf13/cobra"
	"github.com/walteh/ucp/pkg/backend"
	"github.com/walteh/ucp/pkg/engine"
	"github.com/walteh/ucp/pkg/userlog"
)

// newLsCmd creates the ls command
func newLsCmd() *cobra.Command {
	var recurse bool

	cmd := &cobra.Command{
		Use:   "ls PATH",
		Short: "List files at an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ulog := userlog.FromContext(ctx)

			ep, err := backend.ParseEndpoint(args[0])
			if err != nil {
				return err
			}

			opts, _, err := buildOptions(ctx, cmd)
			if err != nil {
				return err
			}

			b, closeBackend, err := openEndpointBackend(ctx, ep, opts.SSHOpts)
			if err != nil {
				return err
			}
			defer closeBackend()

			var entries []backend.FileEntry
			if recurse {
				entries, err = engine.ListRecursive(ctx, b, ep.Path)
			} else {
				entries, err = b.List(ctx, ep.Path)
			}
			if err != nil {
				return err
			}

			for _, entry := range entries {
				if !opts.Accepts(entry) {
					continue
				}
				ulog.Listing(entry)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recursive", "R", false, "descend into directories")
	return cmd
}
