package linarena

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	a int64
	b int32
	c int16
	d int8
}

func TestAlloc(t *testing.T) {
	a := newTestArena(t, 1024)

	ptr, err := Alloc[int](a)
	require.NoError(t, err)
	require.NotNil(t, ptr)
	assert.Zero(t, *ptr)

	s, err := Alloc[testStruct](a)
	require.NoError(t, err)
	assert.Equal(t, testStruct{}, *s)

	*ptr = 42
	s.a = 100
	assert.Equal(t, 42, *ptr)
	assert.Equal(t, int64(100), s.a)
}

func TestAllocIsZeroedAfterRewind(t *testing.T) {
	a := newTestArena(t, 64)
	m := a.Mark()

	b, err := a.Allocate(8)
	require.NoError(t, err)
	for i := range b {
		b[i] = 0xFF
	}
	require.NoError(t, a.Rewind(m))

	v, err := Alloc[uint64](a)
	require.NoError(t, err)
	assert.Zero(t, *v, "Alloc clears recycled memory")
}

func TestAllocAlignment(t *testing.T) {
	a := newTestArena(t, 1024)

	_, err := a.Allocate(1)
	require.NoError(t, err)

	i64, err := Alloc[int64](a)
	require.NoError(t, err)
	assert.Zero(t, uintptr(unsafe.Pointer(i64))%unsafe.Alignof(int64(0)))

	_, err = a.Allocate(3)
	require.NoError(t, err)

	s, err := Alloc[testStruct](a)
	require.NoError(t, err)
	assert.Zero(t, uintptr(unsafe.Pointer(s))%unsafe.Alignof(testStruct{}))
}

func TestAllocOutOfSpace(t *testing.T) {
	a := newTestArena(t, 4)
	_, err := Alloc[int64](a)
	require.ErrorIs(t, err, ErrOutOfSpace)
	assert.Equal(t, 0, a.Used())
}

func TestMakeSlice(t *testing.T) {
	a := newTestArena(t, 1024)

	s, err := MakeSlice[int32](a, 10)
	require.NoError(t, err)
	require.Len(t, s, 10)
	for i, v := range s {
		assert.Zero(t, v, "element %d", i)
	}
	for i := range s {
		s[i] = int32(i * 2)
	}
	assert.Equal(t, int32(18), s[9])
	assert.Equal(t, 40, a.Used())

	empty, err := MakeSlice[int64](a, 0)
	require.NoError(t, err)
	assert.Len(t, empty, 0)

	_, err = MakeSlice[int64](a, -1)
	require.ErrorIs(t, err, ErrUsage)

	_, err = MakeSlice[int64](a, 1<<62)
	require.ErrorIs(t, err, ErrOutOfSpace)

	_, err = MakeSlice[byte](nil, 1)
	require.ErrorIs(t, err, ErrUsage)
}

func TestCopy(t *testing.T) {
	a := newTestArena(t, 64)

	b, err := Copy(a, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
	assert.Equal(t, 5, a.Used())

	e, err := Copy(a, nil)
	require.NoError(t, err)
	assert.Empty(t, e)
	assert.Equal(t, 6, a.Used(), "empty copy still consumes one byte")

	_, err = Copy(a, make([]byte, 100))
	require.ErrorIs(t, err, ErrOutOfSpace)
}

func BenchmarkAlloc(b *testing.B) {
	a, err := New(1 << 20)
	require.NoError(b, err)
	defer a.Destroy()

	b.Run("int", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := Alloc[int](a); err != nil {
				_ = a.Reset()
			}
		}
	})

	b.Run("struct", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := Alloc[testStruct](a); err != nil {
				_ = a.Reset()
			}
		}
	})
}

func BenchmarkMakeSlice(b *testing.B) {
	a, err := New(1 << 20)
	require.NoError(b, err)
	defer a.Destroy()

	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("len-%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := MakeSlice[int64](a, n); err != nil {
					_ = a.Reset()
				}
			}
		})
	}
}
