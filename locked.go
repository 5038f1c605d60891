package linarena

import (
	"sync"
)

// Locked is a mutex-protected handle on an Arena, for callers that share
// one arena between goroutines. The Arena itself does no locking.
//
// Sub-arenas created through Do are plain Arenas; wrap them again if they
// are shared too.
type Locked struct {
	mu sync.Mutex
	a  *Arena
}

// NewLocked wraps a. Once wrapped, a must only be used through the Locked.
func NewLocked(a *Arena) *Locked {
	return &Locked{a: a}
}

// Allocate calls Arena.Allocate under the lock.
func (l *Locked) Allocate(size int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Allocate(size)
}

// AllocateAligned calls Arena.AllocateAligned under the lock.
func (l *Locked) AllocateAligned(size, alignment int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.AllocateAligned(size, alignment)
}

// Mark calls Arena.Mark under the lock.
func (l *Locked) Mark() Marker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Mark()
}

// Rewind calls Arena.Rewind under the lock.
func (l *Locked) Rewind(m Marker) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Rewind(m)
}

// Reset calls Arena.Reset under the lock.
func (l *Locked) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Reset()
}

// Destroy calls Arena.Destroy under the lock.
func (l *Locked) Destroy() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Destroy()
}

// Stats returns a consistent snapshot of the wrapped arena.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.a.Stats()
}

// Do runs fn with exclusive access to the wrapped arena.
func (l *Locked) Do(fn func(a *Arena) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.a)
}
