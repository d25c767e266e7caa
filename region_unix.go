//go:build linux || darwin || freebsd || netbsd || openbsd

// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Region is a block of memory reserved outside the Go heap with an anonymous private mapping.
// Its bytes can back a Linear or Stack allocator, and pools use one with WithMappedStorage.
type Region struct {
	data []byte
}

// MapRegion reserves size bytes of zeroed, readable and writable memory.
func MapRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrZeroSize, "region of %d bytes", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", size)
	}
	return &Region{data: data}, nil
}

// Bytes returns the mapped memory. It must not be used after Unmap.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the size of the region in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Unmap returns the region to the operating system. Calling it twice is a no-op.
func (r *Region) Unmap() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	if err := unix.Munmap(data); err != nil {
		return errors.Wrap(err, "munmap")
	}
	return nil
}
