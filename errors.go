// SPDX-License-Identifier: Apache-2.0

package arena

import "github.com/pkg/errors"

// Every error returned by this package wraps exactly one of these kinds. All of them
// describe a broken caller contract rather than a transient condition: retrying the same
// call against the same allocator state fails the same way.
var (
	// ErrOutOfMemory is returned when a request does not fit in the remaining arena space
	// or when a pool has no free slot left.
	ErrOutOfMemory = errors.New("arena: out of memory")

	// ErrOutOfOrder is returned when a stack allocation other than the most recent live one is freed.
	ErrOutOfOrder = errors.New("arena: deallocation out of LIFO order")

	// ErrNoAllocations is returned when freeing through an allocator that has nothing live.
	ErrNoAllocations = errors.New("arena: no live allocations")

	// ErrForeignPointer is returned for nil pointers and addresses outside the allocator's memory.
	ErrForeignPointer = errors.New("arena: pointer does not belong to this allocator")

	// ErrZeroLengthArray is returned when an array of length zero or less is requested.
	ErrZeroLengthArray = errors.New("arena: array length must be positive")

	// ErrZeroSize is returned for zero byte requests, zero sized types and empty arenas.
	ErrZeroSize = errors.New("arena: size must be positive")

	// ErrOutstandingAllocations is returned when an allocator is released while allocations are still live.
	ErrOutstandingAllocations = errors.New("arena: allocator released with live allocations")

	// ErrInvalidAlignment is returned when an alignment is zero or not a power of two.
	ErrInvalidAlignment = errors.New("arena: alignment must be a power of two")

	// ErrSlotTooSmall is returned when a pool element cannot hold a free list link.
	ErrSlotTooSmall = errors.New("arena: pool element smaller than a free list link")

	// ErrInvalidMarker is returned when rewinding a linear allocator to a marker it cannot honour.
	ErrInvalidMarker = errors.New("arena: invalid marker")

	// ErrReleased is returned by any operation on an allocator after Release.
	ErrReleased = errors.New("arena: use after Release()")

	// ErrUnsupported is returned when an operation is not available on the wrapped allocator.
	ErrUnsupported = errors.New("arena: operation not supported")
)
