package linarena

import (
	"math"
	"unsafe"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const (
	// MaxAlign is the strictest scalar alignment on supported platforms.
	// Root bases and sub-arena buffers are aligned to it.
	MaxAlign = 16

	// DefaultMaxCapacity is the largest root reservation New accepts
	// unless WithMaxCapacity says otherwise (1 GiB).
	DefaultMaxCapacity = 1 << 30

	defaultRootName = "unnamed_arena"
	defaultSubName  = "anonymous_subarena"
)

// headerSize and headerAlign describe the region a sub-arena reserves in
// its parent for its own header.
const (
	headerSize  = int(unsafe.Sizeof(Arena{}))
	headerAlign = int(unsafe.Alignof(Arena{}))
)

// Marker is a checkpoint of an arena's offset. See Mark and Rewind.
type Marker int

// Arena is a fixed capacity bump allocator. It is not goroutine-safe.
// Wrap it in a Locked if it has to be shared.
type Arena struct {
	buf  []byte  // len(buf) == cap(buf) == capacity
	base uintptr // address of buf[0]
	used int

	parent   *Arena // non-nil for sub-arenas; never owned
	released bool

	name   string
	logger log.Logger
}

// Option configures New and NewSub.
type Option func(*options)

type options struct {
	name        string
	logger      log.Logger
	maxCapacity int
}

// WithName sets the diagnostic name reported by Name, String and the
// metrics collector.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger used to report failed operations. Sub-arenas
// inherit their parent's logger unless given their own.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMaxCapacity overrides DefaultMaxCapacity. It has no effect on NewSub,
// whose limit is the parent's free space.
func WithMaxCapacity(n int) Option {
	return func(o *options) {
		o.maxCapacity = n
	}
}

// New reserves a root arena of exactly capacity bytes.
// The arena owns its buffer and must be released once with Destroy.
func New(capacity int, opts ...Option) (*Arena, error) {
	o := options{name: defaultRootName, maxCapacity: DefaultMaxCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNopLogger()
	}

	if capacity < 0 {
		return nil, errors.Wrapf(ErrUsage, "new arena %q: negative capacity %d", o.name, capacity)
	}
	if capacity > o.maxCapacity {
		return nil, errors.Wrapf(ErrAllocation, "new arena %q: capacity %d exceeds limit %d", o.name, capacity, o.maxCapacity)
	}

	buf, base, err := reserve(capacity)
	if err != nil {
		level.Error(o.logger).Log("msg", "failed to reserve arena", "arena", o.name, "capacity", capacity, "err", err)
		return nil, errors.Wrapf(err, "new arena %q", o.name)
	}

	return &Arena{
		buf:    buf,
		base:   base,
		name:   o.name,
		logger: o.logger,
	}, nil
}

// reserve allocates capacity bytes whose first byte is MaxAlign aligned.
func reserve(capacity int) (buf []byte, base uintptr, err error) {
	if capacity > math.MaxInt-MaxAlign {
		return nil, 0, errors.Wrapf(ErrAllocation, "capacity %d overflows", capacity)
	}

	defer func() {
		if r := recover(); r != nil {
			buf, base = nil, 0
			err = errors.Wrapf(ErrAllocation, "reserve %d bytes: %v", capacity, r)
		}
	}()

	raw := make([]byte, capacity+MaxAlign)
	rawAddr := addrOf(raw)
	start := int(alignUp(rawAddr, MaxAlign) - rawAddr)
	return raw[start : start+capacity : start+capacity], rawAddr + uintptr(start), nil
}

// Destroy releases the buffer of a root arena. Every later operation on
// the arena, or on any sub-arena carved from it, fails with ErrUsage.
// Sub-arenas cannot be destroyed: rewind or reset the parent instead.
func (a *Arena) Destroy() error {
	if a == nil {
		return errors.Wrap(ErrUsage, "destroy: nil arena")
	}
	if a.parent != nil {
		return a.usage("destroy: %q is a sub-arena, rewind or reset its parent instead", a.name)
	}
	if a.released {
		return a.usage("destroy: %q already destroyed", a.name)
	}

	a.released = true
	a.buf = nil
	a.base = 0
	a.used = 0
	return nil
}

// Allocate returns the next size bytes of the arena. A size of 0 is served
// as 1 byte so every allocation has a distinct address. The returned slice
// has len == cap == size and shares the arena's memory.
func (a *Arena) Allocate(size int) ([]byte, error) {
	if err := a.check("allocate"); err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, a.usage("allocate: negative size %d", size)
	}
	if size == 0 {
		size = 1
	}
	if size > len(a.buf)-a.used {
		return nil, a.outOfSpace("allocate", size, 0)
	}

	off := a.used
	a.used += size
	b := a.buf[off:a.used:a.used]
	poison(b, AllocPattern)
	return b, nil
}

// AllocateAligned returns size bytes whose address is a multiple of
// alignment, which must be a power of two. Padding skipped to reach the
// aligned address stays consumed until the arena is rewound.
func (a *Arena) AllocateAligned(size, alignment int) ([]byte, error) {
	if err := a.check("allocate aligned"); err != nil {
		return nil, err
	}
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return nil, a.usage("allocate aligned: alignment %d is not a power of two", alignment)
	}
	if size < 0 {
		return nil, a.usage("allocate aligned: negative size %d", size)
	}
	if size == 0 {
		size = 1
	}

	current := a.base + uintptr(a.used)
	padding := int(alignUp(current, uintptr(alignment)) - current)
	free := len(a.buf) - a.used
	if padding > free || size > free-padding {
		return nil, a.outOfSpace("allocate aligned", size, padding)
	}

	off := a.used + padding
	a.used = off + size
	b := a.buf[off:a.used:a.used]
	poison(b, AllocPattern)
	return b, nil
}

// Mark returns the current offset. Pass it to Rewind to drop everything
// allocated after this point.
func (a *Arena) Mark() Marker {
	if a == nil {
		return 0
	}
	return Marker(a.used)
}

// Rewind moves the offset back to m. Markers ahead of the current offset
// or beyond the capacity are rejected and leave the arena untouched.
//
// Rewind does not know about sub-arenas living in the discarded range;
// using them afterwards is undefined.
func (a *Arena) Rewind(m Marker) error {
	return a.rewind("rewind", m)
}

// Reset is Rewind(0).
func (a *Arena) Reset() error {
	return a.rewind("reset", 0)
}

func (a *Arena) rewind(op string, m Marker) error {
	if err := a.check(op); err != nil {
		return err
	}
	if m < 0 || int(m) > a.used || int(m) > len(a.buf) {
		return a.usage("%s: marker %d out of bounds (used %d, capacity %d)", op, m, a.used, len(a.buf))
	}

	poison(a.buf[m:a.used], ResetPattern)
	a.used = int(m)
	return nil
}

// NewSub carves a sub-arena of capacity bytes out of a. The parent first
// gives up a header-sized region, then a MaxAlign aligned buffer; both
// count against its capacity. A capacity of 0 is served as 1.
//
// The sub-arena borrows its memory: it is reclaimed by rewinding or
// resetting the parent, never by Destroy.
func (a *Arena) NewSub(capacity int, opts ...Option) (*Arena, error) {
	if err := a.check("new sub-arena"); err != nil {
		return nil, err
	}
	if capacity < 0 {
		return nil, a.usage("new sub-arena: negative capacity %d", capacity)
	}
	if capacity == 0 {
		capacity = 1
	}

	o := options{name: defaultSubName, logger: a.logger}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = a.logger
	}

	m := a.Mark()
	if _, err := a.AllocateAligned(headerSize, headerAlign); err != nil {
		return nil, errors.Wrapf(err, "new sub-arena %q: header", o.name)
	}
	buf, err := a.AllocateAligned(capacity, MaxAlign)
	if err != nil {
		// Give the header back; nothing may reference it.
		a.used = int(m)
		return nil, errors.Wrapf(err, "new sub-arena %q: buffer", o.name)
	}

	return &Arena{
		buf:    buf,
		base:   addrOf(buf),
		parent: a,
		name:   o.name,
		logger: o.logger,
	}, nil
}

// Used returns the number of bytes consumed, padding included.
func (a *Arena) Used() int {
	if a == nil {
		return 0
	}
	return a.used
}

// Available returns Capacity() - Used().
func (a *Arena) Available() int {
	if a == nil {
		return 0
	}
	return len(a.buf) - a.used
}

// Capacity returns the fixed size of the arena, or 0 once destroyed.
func (a *Arena) Capacity() int {
	if a == nil {
		return 0
	}
	return len(a.buf)
}

// Base returns the address of the first byte of the arena.
func (a *Arena) Base() uintptr {
	if a == nil {
		return 0
	}
	return a.base
}

// Top returns the address the next unaligned allocation would start at.
func (a *Arena) Top() uintptr {
	if a == nil {
		return 0
	}
	return a.base + uintptr(a.used)
}

// Name returns the diagnostic name of the arena.
func (a *Arena) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

// IsSub reports whether the arena was created with NewSub.
func (a *Arena) IsSub() bool {
	return a != nil && a.parent != nil
}

// check rejects nil handles and arenas whose root has been destroyed.
func (a *Arena) check(op string) error {
	if a == nil {
		return errors.Wrapf(ErrUsage, "%s: nil arena", op)
	}
	for p := a; p != nil; p = p.parent {
		if p.released {
			return a.usage("%s: arena %q used after Destroy", op, p.name)
		}
	}
	return nil
}

func (a *Arena) usage(format string, args ...any) error {
	err := errors.Wrapf(ErrUsage, format, args...)
	level.Warn(a.log()).Log("msg", "arena misuse", "arena", a.name, "err", err)
	return err
}

func (a *Arena) outOfSpace(op string, size, padding int) error {
	err := errors.Wrapf(ErrOutOfSpace, "%s %d bytes (padding %d) in %q: %d of %d bytes free",
		op, size, padding, a.name, len(a.buf)-a.used, len(a.buf))
	level.Debug(a.log()).Log("msg", "arena exhausted", "arena", a.name, "size", size, "used", a.used, "capacity", len(a.buf))
	return err
}

// log tolerates zero-value arenas, which carry no logger.
func (a *Arena) log() log.Logger {
	if a.logger == nil {
		return log.NewNopLogger()
	}
	return a.logger
}

// alignUp rounds p up to a multiple of align, a power of two.
func alignUp(p, align uintptr) uintptr {
	mask := align - 1
	return (p + mask) &^ mask
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
