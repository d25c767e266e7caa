// SPDX-License-Identifier: Apache-2.0

// Package arena provides allocators that carve values out of a pre-reserved memory region
// instead of the Go heap: Linear (bump pointer, bulk reset), Stack (bump pointer with LIFO
// frees) and Pool (fixed-size slots with an intrusive free list).
//
// Memory handed out by these allocators is not scanned by the garbage collector. Values
// stored in it must not hold the only reference to Go heap memory.
package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Arena is an interface that describes a memory allocation arena over a fixed region.
type Arena interface {
	// Alloc allocates size bytes aligned to alignment and returns a pointer to them.
	// The memory is not initialised. alignment must be a power of two.
	Alloc(size, alignment uintptr) (unsafe.Pointer, error)

	// Reset discards every allocation at once without tearing any value down.
	// After invoking this method any pointer previously returned by Alloc becomes immediately invalid.
	Reset()

	// Release gives up the arena's memory. It fails if allocations are still live.
	// After invoking this method, the arena should not be used for further allocations.
	Release() error

	// Contains reports whether the size bytes starting at addr lie inside the arena.
	Contains(addr, size uintptr) bool

	// Size returns the total capacity of the arena in bytes.
	Size() int

	// UsedMemory returns the bytes currently consumed, including alignment padding and headers.
	UsedMemory() int

	// NumAllocations returns the number of live allocations.
	NumAllocations() int

	// Peak returns the peak number of bytes that have been allocated in the arena.
	// This value is not reset when Reset is called, allowing tracking of maximum usage.
	Peak() int
}

// Deallocator is an Arena whose allocations can be freed individually.
type Deallocator interface {
	Arena

	// Free releases the allocation at ptr.
	Free(ptr unsafe.Pointer) error

	// Top returns the allocation Free accepts next, or nil when there is none.
	Top() unsafe.Pointer
}

// Destructor is implemented by values that need to run teardown code before their storage
// is handed back to an allocator. Remove, RemoveArray and Pool.Remove call it.
type Destructor interface {
	Destruct()
}

var (
	_ Arena       = (*Linear)(nil)
	_ Deallocator = (*Stack)(nil)
)

// Allocate reserves uninitialised storage for a value of type T in a.
// The caller initialises it, or uses Create.
func Allocate[T any](a Arena) (*T, error) {
	var x T
	ptr, err := a.Alloc(unsafe.Sizeof(x), unsafe.Alignof(x))
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// Create allocates storage for a value of type T in a and stores v in it.
func Create[T any](a Arena, v T) (*T, error) {
	ptr, err := Allocate[T](a)
	if err != nil {
		return nil, err
	}
	*ptr = v
	return ptr, nil
}

// Remove runs Destruct on obj when *T implements Destructor and then frees it. obj is left
// untouched when d would reject the free.
func Remove[T any](d Deallocator, obj *T) error {
	if obj == nil {
		return violation(errors.Wrap(ErrForeignPointer, "nil object"))
	}
	if d.Top() == unsafe.Pointer(obj) {
		destruct(obj)
	}
	return d.Free(unsafe.Pointer(obj))
}

// Discard frees obj without tearing it down.
func Discard[T any](d Deallocator, obj *T) error {
	if obj == nil {
		return violation(errors.Wrap(ErrForeignPointer, "nil object"))
	}
	return d.Free(unsafe.Pointer(obj))
}

func destruct[T any](obj *T) {
	if d, ok := any(obj).(Destructor); ok {
		d.Destruct()
	}
}
