// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestLinearCreate(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(1024))
	require.NoError(t, err)
	require.Equal(t, 1024, linear.Size())
	require.Equal(t, 0, linear.UsedMemory())
	require.Equal(t, 0, linear.NumAllocations())

	p, err := Create(linear, pair{a: 1, b: 2})
	require.NoError(t, err)
	require.Equal(t, 16, linear.UsedMemory())
	require.Equal(t, 1, linear.NumAllocations())

	tr, err := Create(linear, triple{a: 10, b: 20, c: 30})
	require.NoError(t, err)
	require.Equal(t, 40, linear.UsedMemory())
	require.Equal(t, 2, linear.NumAllocations())

	require.Equal(t, pair{a: 1, b: 2}, *p)
	require.Equal(t, triple{a: 10, b: 20, c: 30}, *tr)

	linear.Reset()
	require.Equal(t, 0, linear.UsedMemory())
	require.Equal(t, 0, linear.NumAllocations())
	require.NoError(t, linear.Release())
}

func TestLinearAllocateNoConstruct(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(1024))
	require.NoError(t, err)

	v, err := Allocate[vec4](linear)
	require.NoError(t, err)
	v.x, v.y, v.z, v.w = 1.1, 1.2, 1.3, 1.4
	require.Equal(t, 16, linear.UsedMemory())

	tr, err := Allocate[triple](linear)
	require.NoError(t, err)
	tr.a, tr.b, tr.c = 10, 20, 30
	require.Equal(t, 40, linear.UsedMemory())

	require.Equal(t, vec4{1.1, 1.2, 1.3, 1.4}, *v)
	require.Equal(t, triple{a: 10, b: 20, c: 30}, *tr)

	linear.Reset()
	require.NoError(t, linear.Release())
}

func TestLinearAlignmentPadding(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(256))
	require.NoError(t, err)

	p1, err := linear.Alloc(1, 1)
	require.NoError(t, err)
	require.Equal(t, 1, linear.UsedMemory())

	p2, err := linear.Alloc(8, 8)
	require.NoError(t, err)
	require.Zero(t, uintptr(p2)%8)
	// 7 bytes of padding in front of the second allocation
	require.Equal(t, 16, linear.UsedMemory())
	require.Equal(t, uintptr(8), uintptr(p2)-uintptr(p1))

	p3, err := linear.Alloc(4, 64)
	require.NoError(t, err)
	require.Zero(t, uintptr(p3)%64)
	require.Equal(t, 68, linear.UsedMemory())
	require.Equal(t, 3, linear.NumAllocations())
}

func TestLinearUsedMemoryIsSumOfRequests(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(4096))
	require.NoError(t, err)

	sizes := []uintptr{3, 17, 1, 64, 5, 9, 33}
	alignments := []uintptr{1, 8, 2, 16, 4, 8, 32}
	expected := 0
	for i := range sizes {
		before := uintptr(unsafe.Pointer(&linear.buf[0])) + linear.offset
		ptr, err := linear.Alloc(sizes[i], alignments[i])
		require.NoError(t, err)
		require.Zero(t, uintptr(ptr)%alignments[i])
		expected += int(sizes[i] + AlignForwardAdjustment(before, alignments[i]))
		require.Equal(t, expected, linear.UsedMemory())
	}
	require.Equal(t, len(sizes), linear.NumAllocations())
	require.Equal(t, expected, linear.Peak())
	require.NoError(t, linear.Validate())
}

func TestLinearResetReusesArena(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(128))
	require.NoError(t, err)

	first, err := linear.Alloc(32, 8)
	require.NoError(t, err)
	_, err = linear.Alloc(32, 8)
	require.NoError(t, err)

	linear.Reset()
	require.Equal(t, 0, linear.UsedMemory())
	require.Equal(t, 0, linear.NumAllocations())
	require.Equal(t, 64, linear.Peak())

	again, err := linear.Alloc(16, 8)
	require.NoError(t, err)
	require.Equal(t, first, again)
}

func TestLinearOutOfMemory(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(64))
	require.NoError(t, err)

	_, err = linear.Alloc(60, 1)
	require.NoError(t, err)

	requireViolation(t, ErrOutOfMemory, func() error {
		_, err := linear.Alloc(8, 1)
		return err
	})
	// padding alone pushes the request over the edge
	requireViolation(t, ErrOutOfMemory, func() error {
		_, err := linear.Alloc(1, 64)
		return err
	})
	require.Equal(t, 60, linear.UsedMemory())
	require.Equal(t, 1, linear.NumAllocations())

	_, err = linear.Alloc(4, 4)
	require.NoError(t, err)
	require.Equal(t, 64, linear.UsedMemory())
}

func TestLinearInvalidRequests(t *testing.T) {
	requireViolation(t, ErrZeroSize, func() error {
		_, err := NewLinear(nil)
		return err
	})

	linear, err := NewLinear(alignedBuffer(64))
	require.NoError(t, err)

	requireViolation(t, ErrZeroSize, func() error {
		_, err := linear.Alloc(0, 8)
		return err
	})
	requireViolation(t, ErrInvalidAlignment, func() error {
		_, err := linear.Alloc(8, 3)
		return err
	})
	requireViolation(t, ErrInvalidAlignment, func() error {
		_, err := linear.Alloc(8, 0)
		return err
	})
	require.Equal(t, 0, linear.NumAllocations())
}

func TestLinearReleaseWithLiveAllocations(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(64))
	require.NoError(t, err)

	_, err = Create(linear, pair{})
	require.NoError(t, err)

	requireViolation(t, ErrOutstandingAllocations, linear.Release)

	linear.Reset()
	require.NoError(t, linear.Release())
	require.Equal(t, 0, linear.Size())

	requireViolation(t, ErrReleased, func() error {
		_, err := linear.Alloc(8, 8)
		return err
	})
}

func TestLinearMarkRewind(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(256))
	require.NoError(t, err)

	_, err = Create(linear, pair{a: 1})
	require.NoError(t, err)

	mark := linear.Mark()
	_, err = Create(linear, triple{})
	require.NoError(t, err)
	_, err = linear.Alloc(3, 1)
	require.NoError(t, err)
	require.Equal(t, 3, linear.NumAllocations())

	require.NoError(t, linear.Rewind(mark))
	require.Equal(t, 16, linear.UsedMemory())
	require.Equal(t, 1, linear.NumAllocations())

	// the rewound space is handed out again
	tr, err := Allocate[triple](linear)
	require.NoError(t, err)
	require.Equal(t, uintptr(16), uintptr(unsafe.Pointer(tr))-uintptr(unsafe.Pointer(&linear.buf[0])))
	require.NoError(t, linear.Validate())
}

func TestLinearRewindInvalidMarker(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(256))
	require.NoError(t, err)
	other, err := NewLinear(alignedBuffer(256))
	require.NoError(t, err)

	requireViolation(t, ErrInvalidMarker, func() error {
		return linear.Rewind(other.Mark())
	})

	_, err = linear.Alloc(32, 8)
	require.NoError(t, err)
	ahead := linear.Mark()
	linear.Reset()
	requireViolation(t, ErrInvalidMarker, func() error {
		return linear.Rewind(ahead)
	})

	start := linear.Mark()
	_, err = linear.Alloc(32, 8)
	require.NoError(t, err)
	later := linear.Mark()
	require.NoError(t, linear.Rewind(start))
	requireViolation(t, ErrInvalidMarker, func() error {
		return linear.Rewind(later)
	})
}

func TestLinearContains(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(64))
	require.NoError(t, err)

	base := uintptr(unsafe.Pointer(&linear.buf[0]))
	require.True(t, linear.Contains(base, 64))
	require.True(t, linear.Contains(base+60, 4))
	require.False(t, linear.Contains(base+60, 5))
	require.False(t, linear.Contains(base-1, 1))
	require.False(t, linear.Contains(base+65, 0))
}

func TestLinearValidateDetectsCorruption(t *testing.T) {
	linear, err := NewLinear(alignedBuffer(64))
	require.NoError(t, err)
	_, err = linear.Alloc(16, 8)
	require.NoError(t, err)
	require.NoError(t, linear.Validate())

	linear.used = 8
	require.Error(t, linear.Validate())
}

func BenchmarkLinearCreate(b *testing.B) {
	linear, err := NewLinear(make([]byte, 1<<20))
	require.NoError(b, err)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if linear.Size()-linear.UsedMemory() < 16 {
			linear.Reset()
		}
		_, _ = Create(linear, pair{a: int64(i)})
	}
}
