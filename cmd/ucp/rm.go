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

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/ucp/pkg/backend"
	"github.com/walteh/ucp/pkg/userlog"
)

// newRmCmd creates the rm command
func newRmCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm PATH",
		Short: "Delete a file or directory at an endpoint",
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

			if !force {
				ok, _ := pterm.DefaultInteractiveConfirm.
					WithDefaultValue(false).
					Show(fmt.Sprintf("delete %s?", ep))
				if !ok {
					ulog.Warning("delete aborted")
					return nil
				}
			}

			if opts.DryRun {
				ulog.Warningf("[dry run] would delete %s", ep)
				return nil
			}

			if err := b.Delete(ctx, ep.Path); err != nil {
				return err
			}
			ulog.Successf("deleted %s", ep)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")
	return cmd
}
