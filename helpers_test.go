// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// alignedBuffer returns a size byte slice whose first byte is 64 byte aligned, so that
// tests can assert exact padding.
func alignedBuffer(size int) []byte {
	buf := make([]byte, size+64)
	adjustment := int(AlignForwardAdjustment(uintptr(unsafe.Pointer(&buf[0])), 64))
	return buf[adjustment : adjustment+size]
}

// requireViolation asserts that fn reports a contract violation of kind target: a returned
// error in regular builds, a panic in debug_arena builds.
func requireViolation(t *testing.T, target error, fn func() error) {
	t.Helper()
	if !debugAssertions {
		require.ErrorIs(t, fn(), target)
		return
	}

	var recovered any
	func() {
		defer func() {
			recovered = recover()
		}()
		_ = fn()
	}()
	require.NotNil(t, recovered, "expected a contract violation panic")
	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v is not an error", recovered)
	require.ErrorIs(t, err, target)
}

type vec4 struct {
	x, y, z, w float32
}

type triple struct {
	a, b, c uint64
}

type pair struct {
	a, b int64
}

// destructed records the ids passed to trackedObject.Destruct, in call order.
var destructed []int64

type trackedObject struct {
	id  int64
	pad int64
}

func (o *trackedObject) Destruct() {
	destructed = append(destructed, o.id)
}
