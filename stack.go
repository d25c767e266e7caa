// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// stackHeaderSize is the size of the record written in front of every stack allocation:
//
//	[0:8]  data offset of the previous live allocation, 0 when there is none
//	[8:16] padding inserted in front of this allocation, header included
const stackHeaderSize = 16

type stackHeader struct {
	previous   uintptr
	adjustment uintptr
}

// Stack is a bump-pointer allocator whose allocations can be freed one by one, but only
// in the reverse order they were made. Each allocation is preceded by a header linking it
// to the previous live allocation.
//
// A Stack allocator is not safe for concurrent use.
type Stack struct {
	bumpBuffer
	previous uintptr // data offset of the most recent live allocation
}

// NewStack creates a stack allocator managing buf. The allocator borrows buf and never frees it.
func NewStack(buf []byte, opts ...Option) (*Stack, error) {
	b, err := newBumpBuffer("stack", buf, opts)
	if err != nil {
		return nil, err
	}
	return &Stack{bumpBuffer: b}, nil
}

// Alloc satisfies the Arena interface.
func (s *Stack) Alloc(size, alignment uintptr) (unsafe.Pointer, error) {
	if err := s.checkRequest(size, alignment); err != nil {
		return nil, err
	}

	adjustment := AlignForwardAdjustmentWithHeader(s.addr()+s.offset, alignment, stackHeaderSize)
	if !s.fits(adjustment, size) {
		return nil, s.outOfMemory(size, alignment, adjustment)
	}

	previous := s.previous
	aligned := s.commit(adjustment, size)
	s.writeHeader(aligned, stackHeader{previous: previous, adjustment: adjustment})
	s.previous = aligned

	DebugValidate(s)
	return s.pointerAt(aligned), nil
}

// Free releases the allocation at ptr, which must be the most recent live allocation.
func (s *Stack) Free(ptr unsafe.Pointer) error {
	if s.buf == nil {
		return reportViolation(s.logger, errors.WithStack(ErrReleased))
	}
	if s.numAllocs == 0 {
		return reportViolation(s.logger, errors.WithStack(ErrNoAllocations))
	}
	position, ok := s.offsetOf(ptr)
	if !ok {
		return reportViolation(s.logger, errors.Wrapf(ErrForeignPointer, "address %#x", uintptr(ptr)))
	}
	if position != s.previous {
		return reportViolation(s.logger, errors.Wrapf(ErrOutOfOrder,
			"freed offset %d but the most recent allocation is at offset %d", position, s.previous))
	}

	header := s.readHeader(position)
	s.used -= s.offset - position + header.adjustment
	s.offset = position - header.adjustment
	s.previous = header.previous
	s.numAllocs--

	DebugValidate(s)
	return nil
}

// Top returns the most recent live allocation, or nil when the stack is empty.
func (s *Stack) Top() unsafe.Pointer {
	if s.numAllocs == 0 || s.buf == nil {
		return nil
	}
	return s.pointerAt(s.previous)
}

// Reset satisfies the Arena interface. Like Linear.Reset it tears nothing down.
func (s *Stack) Reset() {
	s.logger.Debug("Stack::Reset", slog.Int("UsedMemory", int(s.used)), slog.Int("NumAllocations", s.numAllocs))
	s.reset()
	s.previous = 0
}

// Release satisfies the Arena interface.
func (s *Stack) Release() error {
	if err := s.release(); err != nil {
		return err
	}
	s.previous = 0
	return nil
}

func (s *Stack) writeHeader(position uintptr, h stackHeader) {
	record := s.buf[position-stackHeaderSize : position]
	binary.NativeEndian.PutUint64(record[0:8], uint64(h.previous))
	binary.NativeEndian.PutUint64(record[8:16], uint64(h.adjustment))
}

func (s *Stack) readHeader(position uintptr) stackHeader {
	record := s.buf[position-stackHeaderSize : position]
	return stackHeader{
		previous:   uintptr(binary.NativeEndian.Uint64(record[0:8])),
		adjustment: uintptr(binary.NativeEndian.Uint64(record[8:16])),
	}
}

// Validate walks the header chain from the most recent allocation back to the start of
// the arena and checks it against the allocator's counters.
func (s *Stack) Validate() error {
	if s.buf == nil {
		return nil
	}
	if s.offset > uintptr(len(s.buf)) {
		return errors.Errorf("offset %d is past the end of the %d byte arena", s.offset, len(s.buf))
	}

	count := 0
	var total uintptr
	end := s.offset
	for position := s.previous; position != 0; {
		if position < stackHeaderSize || position > end {
			return errors.Errorf("allocation at offset %d lies outside [%d, %d]", position, stackHeaderSize, end)
		}
		header := s.readHeader(position)
		if header.adjustment < stackHeaderSize || header.adjustment > position {
			return errors.Errorf("allocation at offset %d has an invalid adjustment of %d", position, header.adjustment)
		}
		if header.previous >= position {
			return errors.Errorf("allocation at offset %d links forward to offset %d", position, header.previous)
		}
		start := position - header.adjustment
		total += end - start
		count++
		end = start
		position = header.previous
	}

	if end != 0 {
		return errors.Errorf("the oldest allocation starts at offset %d instead of 0", end)
	}
	if count != s.numAllocs {
		return errors.Errorf("the allocation count is %d, but the header chain holds %d allocations", s.numAllocs, count)
	}
	if total != s.used {
		return errors.Errorf("used memory is %d, but the header chain covers %d bytes", s.used, total)
	}
	return nil
}
