package linarena

import (
	"github.com/pkg/errors"
)

var (
	// ErrAllocation is returned when the backing buffer of a root arena
	// cannot be reserved.
	ErrAllocation = errors.New("arena: cannot reserve backing buffer")

	// ErrOutOfSpace is returned when a request does not fit in the
	// remaining capacity. The arena never grows.
	ErrOutOfSpace = errors.New("arena: out of space")

	// ErrUsage reports a broken caller contract: destroying a sub-arena,
	// rewinding forward, a non power-of-two alignment, a nil or destroyed
	// handle.
	ErrUsage = errors.New("arena: invalid usage")
)

// IsOutOfSpace reports whether err is (or wraps) ErrOutOfSpace.
func IsOutOfSpace(err error) bool {
	return errors.Is(err, ErrOutOfSpace)
}

// IsUsage reports whether err is (or wraps) ErrUsage.
func IsUsage(err error) bool {
	return errors.Is(err, ErrUsage)
}
