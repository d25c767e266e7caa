// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
)

type concurrentArena struct {
	mtx sync.Mutex
	a   Arena
}

// NewConcurrentArena returns an arena that serialises every call to a behind a mutex, so it
// can be shared by multiple goroutines. The returned value also implements Deallocator;
// Free fails with ErrUnsupported unless a does.
func NewConcurrentArena(a Arena) Deallocator {
	return &concurrentArena{a: a}
}

// Alloc satisfies the Arena interface.
func (a *concurrentArena) Alloc(size, alignment uintptr) (unsafe.Pointer, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return nil, violation(errors.WithStack(ErrReleased))
	}
	return a.a.Alloc(size, alignment)
}

// Free satisfies the Deallocator interface.
func (a *concurrentArena) Free(ptr unsafe.Pointer) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return violation(errors.WithStack(ErrReleased))
	}
	d, ok := a.a.(Deallocator)
	if !ok {
		return violation(errors.Wrapf(ErrUnsupported, "%T cannot free individual allocations", a.a))
	}
	return d.Free(ptr)
}

// Top satisfies the Deallocator interface. It returns nil unless the wrapped arena is a Deallocator.
func (a *concurrentArena) Top() unsafe.Pointer {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if d, ok := a.a.(Deallocator); ok {
		return d.Top()
	}
	return nil
}

// Reset satisfies the Arena interface.
func (a *concurrentArena) Reset() {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return
	}
	a.a.Reset()
}

// Release satisfies the Arena interface.
func (a *concurrentArena) Release() error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return nil
	}
	if err := a.a.Release(); err != nil {
		return err
	}
	a.a = nil
	return nil
}

// Contains satisfies the Arena interface.
func (a *concurrentArena) Contains(addr, size uintptr) bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return false
	}
	return a.a.Contains(addr, size)
}

// Size returns the total capacity of the arena in bytes.
func (a *concurrentArena) Size() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return 0
	}
	return a.a.Size()
}

// UsedMemory returns the bytes currently consumed in the arena.
func (a *concurrentArena) UsedMemory() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return 0
	}
	return a.a.UsedMemory()
}

// NumAllocations returns the number of live allocations in the arena.
func (a *concurrentArena) NumAllocations() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return 0
	}
	return a.a.NumAllocations()
}

// Peak returns the peak number of bytes that have been allocated in the arena.
// This value is not reset when Reset is called, allowing tracking of maximum usage.
func (a *concurrentArena) Peak() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return 0
	}
	return a.a.Peak()
}
