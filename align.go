// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"github.com/cockroachdb/errors"
)

// AlignForwardAdjustment returns the number of bytes that must be added to address so that
// it becomes a multiple of alignment. An address that is already aligned needs no padding,
// so the result is always in [0, alignment).
//
// alignment must be a power of two; this is only asserted in debug_arena builds.
func AlignForwardAdjustment(address, alignment uintptr) uintptr {
	DebugCheckAlignment(alignment)

	mask := alignment - 1
	adjustment := alignment - (address & mask)
	if adjustment == alignment {
		return 0
	}
	return adjustment
}

// AlignForwardAdjustmentWithHeader is AlignForwardAdjustment for allocations that carry a
// headerSize byte header directly in front of the aligned address. When the plain padding
// is too small for the header it grows by whole multiples of alignment until the header fits.
func AlignForwardAdjustmentWithHeader(address, alignment, headerSize uintptr) uintptr {
	adjustment := AlignForwardAdjustment(address, alignment)
	neededSpace := headerSize

	if adjustment < neededSpace {
		neededSpace -= adjustment
		adjustment += alignment * (neededSpace / alignment)
		if neededSpace%alignment > 0 {
			adjustment += alignment
		}
	}

	return adjustment
}

// CheckAlignment returns ErrInvalidAlignment unless alignment is a power of two.
func CheckAlignment(alignment uintptr) error {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return errors.Wrapf(ErrInvalidAlignment, "alignment is %d", alignment)
	}
	return nil
}

// AlignUp rounds value up to the next multiple of alignment.
func AlignUp(value, alignment uintptr) uintptr {
	return (value + alignment - 1) &^ (alignment - 1)
}
