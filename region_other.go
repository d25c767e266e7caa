//go:build !(linux || darwin || freebsd || netbsd || openbsd)

// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"github.com/cockroachdb/errors"
)

// Region is a block of memory reserved for an allocator. On this platform it falls back
// to a Go heap allocation.
type Region struct {
	data []byte
}

// MapRegion reserves size bytes of zeroed, readable and writable memory.
func MapRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrZeroSize, "region of %d bytes", size)
	}
	return &Region{data: make([]byte, size)}, nil
}

// Bytes returns the region's memory. It must not be used after Unmap.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the size of the region in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Unmap drops the region. Calling it twice is a no-op.
func (r *Region) Unmap() error {
	r.data = nil
	return nil
}
