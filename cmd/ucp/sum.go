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
)

// newSumCmd creates the sum command
func newSumCmd() *cobra.Command {
	var algoName string

	cmd := &cobra.Command{
		Use:   "sum PATH",
		Short: "Print the checksum of a file at an endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			algo, err := backend.ParseChecksumAlgorithm(algoName)
			if err != nil {
				return err
			}

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

			sum, err := b.Checksum(ctx, ep.Path, algo)
			if err != nil {
				return err
			}

			// md5sum-style output, path exactly as the user wrote it
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&algoName, "algo", "sha256", "checksum algorithm: md5, sha1 or sha256")
	return cmd
}
