// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// bumpBuffer is the bump-pointer bookkeeping shared by the linear and stack allocators.
// All positions are byte offsets into buf; alignment is computed on the real address.
type bumpBuffer struct {
	buf       []byte
	offset    uintptr // next free byte
	used      uintptr // bytes consumed, padding and headers included
	peak      uintptr // high-water mark of used, survives reset
	numAllocs int
	name      string
	logger    *slog.Logger
}

func newBumpBuffer(kind string, buf []byte, opts []Option) (bumpBuffer, error) {
	cfg := newConfig(kind, opts)
	if len(buf) == 0 {
		return bumpBuffer{}, reportViolation(cfg.logger, errors.Wrapf(ErrZeroSize, "%s allocator needs a non-empty buffer", kind))
	}
	b := bumpBuffer{
		buf:    buf,
		name:   cfg.name,
		logger: cfg.logger,
	}
	b.logger.Debug("allocator created", slog.Int("Size", len(buf)))
	return b, nil
}

// addr returns the address of the first byte of the arena.
func (b *bumpBuffer) addr() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.buf)))
}

func (b *bumpBuffer) availableBytes() uintptr {
	return uintptr(len(b.buf)) - b.offset
}

// checkRequest validates a raw allocation request before any state is touched.
func (b *bumpBuffer) checkRequest(size, alignment uintptr) error {
	if b.buf == nil {
		return reportViolation(b.logger, errors.WithStack(ErrReleased))
	}
	if size == 0 {
		return reportViolation(b.logger, errors.Wrap(ErrZeroSize, "zero byte allocation"))
	}
	if err := CheckAlignment(alignment); err != nil {
		return reportViolation(b.logger, err)
	}
	return nil
}

// fits reports whether adjustment+size bytes are still available without overflowing.
func (b *bumpBuffer) fits(adjustment, size uintptr) bool {
	remaining := b.availableBytes()
	return adjustment <= remaining && size <= remaining-adjustment
}

func (b *bumpBuffer) outOfMemory(size, alignment, adjustment uintptr) error {
	return reportViolation(b.logger, errors.Wrapf(ErrOutOfMemory,
		"%d bytes with alignment %d (padding %d) requested, %d of %d bytes used",
		size, alignment, adjustment, b.used, len(b.buf)))
}

// commit records an allocation of size bytes placed adjustment bytes past the current offset
// and returns the data offset.
func (b *bumpBuffer) commit(adjustment, size uintptr) uintptr {
	aligned := b.offset + adjustment
	b.offset = aligned + size
	b.used += size + adjustment
	b.numAllocs++
	if b.used > b.peak {
		b.peak = b.used
	}
	return aligned
}

// offsetOf translates an address into an offset inside the arena.
func (b *bumpBuffer) offsetOf(ptr unsafe.Pointer) (uintptr, bool) {
	if ptr == nil || b.buf == nil {
		return 0, false
	}
	p, base := uintptr(ptr), b.addr()
	if p < base || p >= base+uintptr(len(b.buf)) {
		return 0, false
	}
	return p - base, true
}

func (b *bumpBuffer) pointerAt(offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(&b.buf[offset])
}

func (b *bumpBuffer) reset() {
	b.offset = 0
	b.used = 0
	b.numAllocs = 0
}

func (b *bumpBuffer) release() error {
	if b.buf == nil {
		return nil
	}
	if b.numAllocs != 0 || b.used != 0 {
		return reportViolation(b.logger, errors.Wrapf(ErrOutstandingAllocations,
			"%d allocations holding %d bytes", b.numAllocs, b.used))
	}
	b.logger.Debug("allocator released", slog.Int("Peak", int(b.peak)))
	b.buf = nil
	b.offset = 0
	return nil
}

// Contains reports whether the size bytes starting at addr lie inside the arena.
func (b *bumpBuffer) Contains(addr, size uintptr) bool {
	if b.buf == nil {
		return false
	}
	base := b.addr()
	end := base + uintptr(len(b.buf))
	return addr >= base && addr <= end && size <= end-addr
}

// Size returns the capacity of the arena in bytes.
func (b *bumpBuffer) Size() int {
	return len(b.buf)
}

// UsedMemory returns the bytes currently consumed, including padding and headers.
func (b *bumpBuffer) UsedMemory() int {
	return int(b.used)
}

// NumAllocations returns the number of live allocations.
func (b *bumpBuffer) NumAllocations() int {
	return b.numAllocs
}

// Peak returns the highest value UsedMemory has reached. It is not cleared by Reset.
func (b *bumpBuffer) Peak() int {
	return int(b.peak)
}

// Name returns the name given through WithName, or the allocator kind.
func (b *bumpBuffer) Name() string {
	return b.name
}

// AddStatistics sums this allocator's usage into stats.
func (b *bumpBuffer) AddStatistics(stats *Statistics) {
	stats.ArenaCount++
	stats.AllocationCount += b.numAllocs
	stats.UsedBytes += int(b.used)
	stats.TotalBytes += len(b.buf)
	stats.PeakBytes += int(b.peak)
}
