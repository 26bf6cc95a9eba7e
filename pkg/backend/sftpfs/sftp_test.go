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

package sftpfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/ucp/pkg/backend"
)

func TestIdentityFileExtraction(t *testing.T) {
	tests := []struct {
		name string
		opts []string
		want string
	}{
		{
			name: "present",
			opts: []string{"Compression=yes", "IdentityFile=/home/alice/.ssh/id_ed25519"},
			want: "/home/alice/.ssh/id_ed25519",
		},
		{
			name: "absent",
			opts: []string{"Compression=yes"},
			want: "",
		},
		{
			name: "no_opts",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identityFile(tt.opts), "extracted identity file should match")
		})
	}
}

func TestDialRequiresCredentials(t *testing.T) {
	ctx := context.Background()
	ep := &backend.Endpoint{Scheme: backend.SchemeSSH, Host: "server", Path: "/data"}

	_, err := Dial(ctx, ep)
	require.Error(t, err, "no password and no identity file should fail before dialing")
	var ce *backend.ConnectionError
	require.ErrorAs(t, err, &ce, "credential absence maps to a connection error")
	assert.Equal(t, "server", ce.Host, "the host should be reported")
}

func TestDialRejectsUnreadableIdentityFile(t *testing.T) {
	ctx := context.Background()
	ep := &backend.Endpoint{Scheme: backend.SchemeSSH, Host: "server", Path: "/data"}

	_, err := Dial(ctx, ep, "IdentityFile="+filepath.Join(t.TempDir(), "missing_key"))
	require.Error(t, err, "a missing identity file should fail before dialing")
	assert.Contains(t, err.Error(), "reading identity file", "error should name the step")
}

func TestDialRejectsMalformedIdentityFile(t *testing.T) {
	ctx := context.Background()
	keyFile := filepath.Join(t.TempDir(), "garbage_key")
	require.NoError(t, os.WriteFile(keyFile, []byte("not a private key"), 0o600))

	ep := &backend.Endpoint{Scheme: backend.SchemeSSH, Host: "server", Path: "/data"}
	_, err := Dial(ctx, ep, "IdentityFile="+keyFile)
	require.Error(t, err, "a malformed identity file should fail before dialing")
	assert.Contains(t, err.Error(), "parsing identity file", "error should name the step")
}

func TestIsLocalHeuristic(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "here.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	assert.True(t, isLocal(existing), "an existing local path transfers as an upload source")
	assert.False(t, isLocal("/remote/home/alice/file.txt"), "a non-existent path is treated as remote")
}
