package linarena

import (
	"math"
	"unsafe"
)

// Alloc returns a zeroed *T placed inside the arena, aligned for T.
//
// The garbage collector does not scan arena memory: T must not contain
// pointers, slices, strings, maps, channels or interfaces.
func Alloc[T any](a *Arena) (*T, error) {
	var zero T
	b, err := a.AllocateAligned(int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	clear(b)
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}

// MakeSlice returns a zeroed slice of n elements of T placed inside the
// arena. The same pointer-free restriction as Alloc applies.
func MakeSlice[T any](a *Arena, n int) ([]T, error) {
	if err := a.check("make slice"); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, a.usage("make slice: negative length %d", n)
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	if elemSize != 0 && n > math.MaxInt/elemSize {
		return nil, a.outOfSpace("make slice", math.MaxInt, 0)
	}
	b, err := a.AllocateAligned(elemSize*n, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

// Copy allocates len(src) bytes and copies src into them.
func Copy(a *Arena, src []byte) ([]byte, error) {
	b, err := a.Allocate(len(src))
	if err != nil {
		return nil, err
	}
	n := copy(b, src)
	return b[:n:n], nil
}
