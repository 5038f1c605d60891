// Package linarena implements a fixed capacity linear (bump) allocator with
// checkpoints and nested sub-arenas.
//
// # Overview
//
// An Arena reserves one buffer up front and hands out consecutive regions
// of it by advancing a single offset. Nothing is freed individually:
// memory comes back in bulk by rewinding the offset to a Marker or by
// resetting it to zero. This is useful for:
//
//   - Request or frame scoped scratch memory
//   - Parsers and builders that discard everything at once
//   - Deterministic O(1) allocation with a hard memory budget
//
// # Basic Usage
//
//	a, err := linarena.New(64<<10, linarena.WithName("request"))
//	if err != nil {
//		return err
//	}
//	defer a.Destroy()
//
//	buf, err := a.Allocate(1024)            // raw bytes
//	hdr, err := linarena.Alloc[header](a)   // typed, zeroed, aligned
//
//	m := a.Mark()
//	tmp, err := a.Allocate(4096)
//	_ = a.Rewind(m)                         // tmp's bytes are reusable
//
//	_ = a.Reset()                           // everything is reusable
//
// # Sub-arenas
//
// NewSub carves a smaller arena out of its parent. The sub-arena's memory
// belongs to the parent: it is given back by rewinding or resetting the
// parent, and Destroy refuses to release it. Rewinding the parent below a
// sub-arena's allocation point invalidates the sub-arena; this is not
// detected.
//
// # Errors
//
// Failures are returned, never logged and swallowed. ErrOutOfSpace means
// the arena is full; ErrUsage means the caller broke the contract (bad
// alignment, rewinding forward, destroying a sub-arena, using a destroyed
// arena); ErrAllocation means the backing buffer could not be reserved.
// Use errors.Is to tell them apart.
//
// # Debug Builds
//
// Building with -tags arenadebug fills fresh allocations with AllocPattern
// and discarded memory with ResetPattern, which makes reads of
// uninitialized or reclaimed bytes easy to spot.
//
// # Thread Safety
//
// Arena is not goroutine-safe. Partition arenas per goroutine, or wrap a
// shared one in a Locked.
package linarena
