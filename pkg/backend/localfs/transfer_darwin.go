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
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

// platformStrategies registers the darwin whole-file kernel copy. Clonefile
// asks the kernel to copy (or CoW-clone on APFS) the file in one shot. The
// registry falls back to the buffered transfer when it fails, or when the
// resulting destination size does not match the source.
func platformStrategies() []Strategy {
	return []Strategy{
		{
			Name: "clonefile",
			Applies: func(size int64, opts *backend.CopyOptions) bool {
				return size > zeroCopyThreshold
			},
			Transfer: copyClonefile,
		},
	}
}

func copyClonefile(src, dst string) (int64, error) {
	if err := ensureParent(dst); err != nil {
		return 0, err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, err
	}

	// clonefile refuses to overwrite
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return 0, err
	}

	if err := unix.Clonefile(src, dst, 0); err != nil {
		return 0, err
	}

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return 0, err
	}
	if dstInfo.Size() != srcInfo.Size() {
		return 0, errors.Errorf("clonefile size mismatch: src %d, dst %d", srcInfo.Size(), dstInfo.Size())
	}
	return dstInfo.Size(), nil
}
