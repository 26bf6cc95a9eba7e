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
	"os"

	"github.com/walteh/ucp/pkg/backend"
	"golang.org/x/sys/unix"
)

// platformStrategies registers the linux zero-copy path: sendfile moves the
// file data inside the kernel without round-tripping through user space.
// Only worth it above the zero-copy threshold; the registry falls back to
// the buffered transfer when it fails (e.g. on filesystems that reject it).
func platformStrategies() []Strategy {
	return []Strategy{
		{
			Name: "sendfile",
			Applies: func(size int64, opts *backend.CopyOptions) bool {
				return size > zeroCopyThreshold
			},
			Transfer: copySendfile,
		},
	}
}

func copySendfile(src, dst string) (int64, error) {
	if err := ensureParent(dst); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	// sendfile caps a single call, so loop until the full size is moved
	var total int64
	for total < info.Size() {
		n, err := unix.Sendfile(int(out.Fd()), int(in.Fd()), nil, int(info.Size()-total))
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		total += int64(n)
	}
	return total, nil
}
