// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

const (
	// freeListLinkSize is the number of bytes at the start of a free slot holding the
	// index of the next free slot.
	freeListLinkSize = 8
	freeListEnd      = math.MaxUint64
)

// Pool hands out fixed-size slots for values of type T from a buffer it owns. Free slots
// form a singly linked list threaded through their own storage, so Allocate and Free are O(1).
// A freed slot is the next one handed out.
//
// T must be at least 8 bytes large. A Pool is not safe for concurrent use.
type Pool[T any] struct {
	buf        []byte
	region     *Region
	adjustment uintptr // padding in front of slot 0
	stride     uintptr
	numTotal   int
	numFree    int
	peak       int // most slots handed out at once
	head       uint64
	name       string
	logger     *slog.Logger
}

// NewPool creates a pool with room for numObjects values of type T.
func NewPool[T any](numObjects int, opts ...Option) (*Pool[T], error) {
	cfg := newConfig("pool", opts)

	var zero T
	stride, alignment := unsafe.Sizeof(zero), unsafe.Alignof(zero)
	if stride < freeListLinkSize {
		return nil, reportViolation(cfg.logger, errors.Wrapf(ErrSlotTooSmall, "element size is %d bytes", stride))
	}
	if numObjects <= 0 {
		return nil, reportViolation(cfg.logger, errors.Wrapf(ErrZeroSize, "pool of %d objects", numObjects))
	}
	if uintptr(numObjects) > (math.MaxInt-alignment)/stride {
		return nil, reportViolation(cfg.logger, errors.Wrapf(ErrOutOfMemory, "%d objects of %d bytes", numObjects, stride))
	}

	p := &Pool[T]{
		stride:   stride,
		numTotal: numObjects,
		name:     cfg.name,
		logger:   cfg.logger,
	}

	size := numObjects*int(stride) + int(alignment) - 1
	if cfg.mapped {
		region, err := MapRegion(size)
		if err != nil {
			return nil, err
		}
		p.region = region
		p.buf = region.Bytes()
	} else {
		p.buf = make([]byte, size)
	}

	p.adjustment = AlignForwardAdjustment(uintptr(unsafe.Pointer(unsafe.SliceData(p.buf))), alignment)
	p.initFreeList()

	p.logger.Debug("Pool::New",
		slog.Int("NumObjects", numObjects),
		slog.Int("ObjectSize", int(stride)),
		slog.Bool("Mapped", cfg.mapped))
	return p, nil
}

func (p *Pool[T]) slotOffset(index uint64) uintptr {
	return p.adjustment + uintptr(index)*p.stride
}

func (p *Pool[T]) readLink(index uint64) uint64 {
	offset := p.slotOffset(index)
	return binary.NativeEndian.Uint64(p.buf[offset : offset+freeListLinkSize])
}

func (p *Pool[T]) writeLink(index, next uint64) {
	offset := p.slotOffset(index)
	binary.NativeEndian.PutUint64(p.buf[offset:offset+freeListLinkSize], next)
}

// initFreeList threads every slot into the free list in address order.
func (p *Pool[T]) initFreeList() {
	last := uint64(p.numTotal - 1)
	for i := uint64(0); i < last; i++ {
		p.writeLink(i, i+1)
	}
	p.writeLink(last, freeListEnd)
	p.head = 0
	p.numFree = p.numTotal
}

// Allocate pops a slot off the free list. The slot's contents are whatever was last stored
// there; the caller is responsible for initialising it.
func (p *Pool[T]) Allocate() (*T, error) {
	if p.buf == nil {
		return nil, reportViolation(p.logger, errors.WithStack(ErrReleased))
	}
	if p.numFree == 0 || p.head == freeListEnd {
		return nil, reportViolation(p.logger, errors.Wrapf(ErrOutOfMemory, "all %d slots are in use", p.numTotal))
	}

	index := p.head
	p.head = p.readLink(index)
	p.numFree--
	if used := p.numTotal - p.numFree; used > p.peak {
		p.peak = used
	}

	DebugValidate(p)
	return (*T)(unsafe.Pointer(&p.buf[p.slotOffset(index)])), nil
}

// Create allocates a slot and stores v in it.
func (p *Pool[T]) Create(v T) (*T, error) {
	obj, err := p.Allocate()
	if err != nil {
		return nil, err
	}
	*obj = v
	return obj, nil
}

// Free pushes obj's slot back onto the free list without tearing the value down.
//
// Freeing a slot that is already free is only reported when every slot is free. Otherwise
// it corrupts the free list; debug_arena builds catch it through Validate on every Free.
func (p *Pool[T]) Free(obj *T) error {
	if p.buf == nil {
		return reportViolation(p.logger, errors.WithStack(ErrReleased))
	}
	index, err := p.indexOf(obj)
	if err != nil {
		return reportViolation(p.logger, err)
	}
	if p.numFree >= p.numTotal {
		return reportViolation(p.logger, errors.Wrapf(ErrNoAllocations, "all %d slots are already free", p.numTotal))
	}

	p.writeLink(index, p.head)
	p.head = index
	p.numFree++

	DebugValidate(p)
	return nil
}

// Remove runs Destruct on obj when *T implements Destructor, then frees its slot.
func (p *Pool[T]) Remove(obj *T) error {
	if obj == nil {
		return reportViolation(p.logger, errors.Wrap(ErrForeignPointer, "nil object"))
	}
	destruct(obj)
	return p.Free(obj)
}

func (p *Pool[T]) indexOf(obj *T) (uint64, error) {
	if obj == nil {
		return 0, errors.Wrap(ErrForeignPointer, "nil object")
	}
	addr := uintptr(unsafe.Pointer(obj))
	first := uintptr(unsafe.Pointer(unsafe.SliceData(p.buf))) + p.adjustment
	if addr < first || addr >= first+uintptr(p.numTotal)*p.stride {
		return 0, errors.Wrapf(ErrForeignPointer, "address %#x", addr)
	}
	if (addr-first)%p.stride != 0 {
		return 0, errors.Wrapf(ErrForeignPointer, "address %#x is not on a slot boundary", addr)
	}
	return uint64((addr - first) / p.stride), nil
}

// Reset returns every slot to the free list without tearing anything down.
func (p *Pool[T]) Reset() {
	if p.buf == nil {
		return
	}
	p.logger.Debug("Pool::Reset", slog.Int("InUse", p.numTotal-p.numFree))
	p.initFreeList()
}

// Release drops the pool's buffer. Every slot must have been freed first.
func (p *Pool[T]) Release() error {
	if p.buf == nil {
		return nil
	}
	if p.numFree != p.numTotal {
		return reportViolation(p.logger, errors.Wrapf(ErrOutstandingAllocations,
			"%d of %d slots still in use", p.numTotal-p.numFree, p.numTotal))
	}

	p.logger.Debug("Pool::Release", slog.Int("Peak", p.peak))
	p.buf = nil
	if p.region != nil {
		region := p.region
		p.region = nil
		return region.Unmap()
	}
	return nil
}

// Contains reports whether the size bytes starting at addr lie inside the pool's slots.
func (p *Pool[T]) Contains(addr, size uintptr) bool {
	if p.buf == nil {
		return false
	}
	first := uintptr(unsafe.Pointer(unsafe.SliceData(p.buf))) + p.adjustment
	end := first + uintptr(p.numTotal)*p.stride
	return addr >= first && addr <= end && size <= end-addr
}

// NumTotalObjects returns the number of slots in the pool.
func (p *Pool[T]) NumTotalObjects() int { return p.numTotal }

// NumFreeObjects returns the number of slots currently on the free list.
func (p *Pool[T]) NumFreeObjects() int { return p.numFree }

// Name returns the name given through WithName, or "pool".
func (p *Pool[T]) Name() string { return p.name }

// AddStatistics sums this pool's usage into stats.
func (p *Pool[T]) AddStatistics(stats *Statistics) {
	inUse := p.numTotal - p.numFree
	stats.ArenaCount++
	stats.AllocationCount += inUse
	stats.UsedBytes += inUse * int(p.stride)
	stats.TotalBytes += p.numTotal * int(p.stride)
	stats.PeakBytes += p.peak * int(p.stride)
}

// Validate walks the free list and checks that it visits numFree distinct slots.
func (p *Pool[T]) Validate() error {
	if p.buf == nil {
		return nil
	}
	if p.numFree < 0 || p.numFree > p.numTotal {
		return errors.Errorf("free count %d is outside [0, %d]", p.numFree, p.numTotal)
	}

	seen := swiss.NewMap[uint64, struct{}](uint32(p.numFree) + 1)
	for index := p.head; index != freeListEnd; index = p.readLink(index) {
		if index >= uint64(p.numTotal) {
			return errors.Errorf("free list points at slot %d of %d", index, p.numTotal)
		}
		if seen.Has(index) {
			return errors.Errorf("slot %d appears twice in the free list", index)
		}
		seen.Put(index, struct{}{})
	}

	if seen.Count() != p.numFree {
		return errors.Errorf("the free count is %d, but the free list holds %d slots", p.numFree, seen.Count())
	}
	return nil
}
