// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Linear is a bump-pointer allocator over a caller-supplied buffer. Allocations are never
// freed individually: Reset (or Rewind to a Marker) is the only way to reclaim memory.
//
// A Linear allocator is not safe for concurrent use.
type Linear struct {
	bumpBuffer
	generation uint64 // bumped on Reset so stale markers are rejected
}

// Marker is a snapshot of a Linear allocator's bump pointer taken by Mark.
type Marker struct {
	owner          *Linear
	generation     uint64
	offset         uintptr
	used           uintptr
	numAllocations int
}

// NewLinear creates a linear allocator managing buf. The allocator borrows buf and
// never frees it; buf must stay untouched by anything else until Release.
func NewLinear(buf []byte, opts ...Option) (*Linear, error) {
	b, err := newBumpBuffer("linear", buf, opts)
	if err != nil {
		return nil, err
	}
	return &Linear{bumpBuffer: b}, nil
}

// Alloc satisfies the Arena interface.
func (l *Linear) Alloc(size, alignment uintptr) (unsafe.Pointer, error) {
	if err := l.checkRequest(size, alignment); err != nil {
		return nil, err
	}

	adjustment := AlignForwardAdjustment(l.addr()+l.offset, alignment)
	if !l.fits(adjustment, size) {
		return nil, l.outOfMemory(size, alignment, adjustment)
	}

	ptr := l.pointerAt(l.commit(adjustment, size))
	DebugValidate(l)
	return ptr, nil
}

// Reset satisfies the Arena interface. Nothing stored in the arena is torn down; callers
// must finish with any value that needs cleanup first.
func (l *Linear) Reset() {
	l.logger.Debug("Linear::Reset", slog.Int("UsedMemory", int(l.used)), slog.Int("NumAllocations", l.numAllocs))
	l.reset()
	l.generation++
}

// Release satisfies the Arena interface.
func (l *Linear) Release() error {
	return l.release()
}

// Mark captures the current bump pointer so that later allocations can be dropped in one
// step with Rewind.
func (l *Linear) Mark() Marker {
	return Marker{
		owner:          l,
		generation:     l.generation,
		offset:         l.offset,
		used:           l.used,
		numAllocations: l.numAllocs,
	}
}

// Rewind moves the bump pointer back to m, discarding every allocation made since m was taken.
// Like Reset it does not tear anything down.
func (l *Linear) Rewind(m Marker) error {
	if l.buf == nil {
		return reportViolation(l.logger, errors.WithStack(ErrReleased))
	}
	if m.owner != l {
		return reportViolation(l.logger, errors.Wrap(ErrInvalidMarker, "marker was taken from another allocator"))
	}
	if m.generation != l.generation {
		return reportViolation(l.logger, errors.Wrap(ErrInvalidMarker, "marker was taken before the last reset"))
	}
	if m.offset > l.offset {
		return reportViolation(l.logger, errors.Wrapf(ErrInvalidMarker,
			"marker offset %d is past the current offset %d", m.offset, l.offset))
	}

	l.logger.Debug("Linear::Rewind", slog.Int("From", int(l.offset)), slog.Int("To", int(m.offset)))
	l.offset = m.offset
	l.used = m.used
	l.numAllocs = m.numAllocations
	DebugValidate(l)
	return nil
}

// Validate checks the allocator's internal bookkeeping.
func (l *Linear) Validate() error {
	if l.buf == nil {
		return nil
	}
	if l.offset > uintptr(len(l.buf)) {
		return errors.Errorf("offset %d is past the end of the %d byte arena", l.offset, len(l.buf))
	}
	if l.used != l.offset {
		return errors.Errorf("used memory is %d but the bump pointer is at %d", l.used, l.offset)
	}
	if l.numAllocs < 0 || (l.numAllocs == 0 && l.used != 0) {
		return errors.Errorf("%d allocations cannot hold %d bytes", l.numAllocs, l.used)
	}
	if l.peak < l.used {
		return errors.Errorf("peak %d is below used memory %d", l.peak, l.used)
	}
	return nil
}
