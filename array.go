// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// arrayHeaderSize is the size of the element count stored right before an array's first element.
const arrayHeaderSize = 8

// arrayHeaderElems returns how many elements of elemSize bytes the length header occupies.
// Freeing an array recomputes this from the element type, so an array must be freed with
// the same element type it was created with.
func arrayHeaderElems(elemSize uintptr) uintptr {
	n := arrayHeaderSize / elemSize
	if arrayHeaderSize%elemSize > 0 {
		n++
	}
	return n
}

// AllocateArray reserves uninitialised storage for n values of type T in a, preceded by a
// length header. The returned slice has length and capacity n.
func AllocateArray[T any](a Arena, n int) ([]T, error) {
	if n <= 0 {
		return nil, violation(errors.Wrapf(ErrZeroLengthArray, "length %d", n))
	}
	var x T
	elemSize := unsafe.Sizeof(x)
	if elemSize == 0 {
		return nil, violation(errors.Wrap(ErrZeroSize, "zero sized element type"))
	}

	headerElems := arrayHeaderElems(elemSize)
	if uintptr(n) > uintptr(math.MaxInt)/elemSize-headerElems {
		return nil, violation(errors.Wrapf(ErrOutOfMemory, "%d elements of %d bytes", n, elemSize))
	}
	block, err := a.Alloc(elemSize*(uintptr(n)+headerElems), unsafe.Alignof(x))
	if err != nil {
		return nil, err
	}

	data := unsafe.Add(block, elemSize*headerElems)
	binary.NativeEndian.PutUint64(arrayHeader(data), uint64(n))
	return unsafe.Slice((*T)(data), n), nil
}

// CreateArray allocates n values of type T in a and sets each of them to v.
func CreateArray[T any](a Arena, n int, v T) ([]T, error) {
	arr, err := AllocateArray[T](a, n)
	if err != nil {
		return nil, err
	}
	for i := range arr {
		arr[i] = v
	}
	return arr, nil
}

// ArrayLen reads back the length recorded when arr was created in a. arr must start at the
// array's first element: the header sits right before it, so arr[1:] reads garbage.
func ArrayLen[T any](a Arena, arr []T) (int, error) {
	data, err := arrayData(a, arr)
	if err != nil {
		return 0, violation(err)
	}
	return int(binary.NativeEndian.Uint64(arrayHeader(data))), nil
}

// RemoveArray reads the array's recorded length, runs Destruct on every element when *T
// implements Destructor, and frees the array. Nothing is torn down when d would reject the free.
func RemoveArray[T any](d Deallocator, arr []T) error {
	n, err := ArrayLen(d, arr)
	if err != nil {
		return err
	}
	data := unsafe.SliceData(arr)
	block := arrayBlock[T](unsafe.Pointer(data))
	if d.Top() == block {
		full := unsafe.Slice(data, n)
		for i := range full {
			destruct(&full[i])
		}
	}
	return d.Free(block)
}

// DiscardArray frees an array created in d without tearing its elements down.
func DiscardArray[T any](d Deallocator, arr []T) error {
	data, err := arrayData(d, arr)
	if err != nil {
		return violation(err)
	}
	return d.Free(arrayBlock[T](data))
}

// arrayBlock returns the start of the allocation holding the array whose first element is at data.
func arrayBlock[T any](data unsafe.Pointer) unsafe.Pointer {
	var x T
	elemSize := unsafe.Sizeof(x)
	return unsafe.Add(data, -int(elemSize*arrayHeaderElems(elemSize)))
}

// arrayData returns the address of arr's first element after checking that its length
// header lies inside a.
func arrayData[T any](a Arena, arr []T) (unsafe.Pointer, error) {
	if len(arr) == 0 {
		return nil, errors.Wrap(ErrZeroLengthArray, "empty slice")
	}
	data := unsafe.Pointer(unsafe.SliceData(arr))
	var x T
	header := uintptr(data) - arrayHeaderSize
	if uintptr(data) < arrayHeaderSize || !a.Contains(header, arrayHeaderSize+uintptr(len(arr))*unsafe.Sizeof(x)) {
		return nil, errors.Wrapf(ErrForeignPointer, "array at %#x", uintptr(data))
	}
	return data, nil
}

func arrayHeader(data unsafe.Pointer) []byte {
	return unsafe.Slice((*byte)(unsafe.Add(data, -arrayHeaderSize)), arrayHeaderSize)
}
