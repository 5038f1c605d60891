package linarena

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Stats is a snapshot of an arena's accounting.
type Stats struct {
	Name        string
	Sub         bool
	Used        int     // Bytes consumed, alignment padding included
	Capacity    int     // Fixed size of the arena
	Available   int     // Capacity - Used
	Utilization float64 // Used / Capacity, 0 for an empty arena
}

// Utilization returns the ratio of used bytes to capacity (0.0 to 1.0).
// Returns 0.0 if the arena has no capacity.
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.Used()) / float64(capacity)
}

// Stats returns a snapshot of the arena. It is safe on a nil arena.
func (a *Arena) Stats() Stats {
	return Stats{
		Name:        a.Name(),
		Sub:         a.IsSub(),
		Used:        a.Used(),
		Capacity:    a.Capacity(),
		Available:   a.Available(),
		Utilization: a.Utilization(),
	}
}

// String renders the one-line summary "[Arena: name] Used: u / c bytes".
func (a *Arena) String() string {
	name := a.Name()
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("[Arena: %s] Used: %d / %d bytes", name, a.Used(), a.Capacity())
}

// Dump writes a human readable report of the arena to w.
func (a *Arena) Dump(w io.Writer) error {
	s := a.Stats()
	kind := "root"
	if s.Sub {
		kind = "sub"
	}
	_, err := fmt.Fprintf(w, "%s\n  kind:      %s\n  used:      %s\n  available: %s\n  capacity:  %s\n  util:      %.2f%%\n",
		a, kind,
		humanize.IBytes(uint64(s.Used)),
		humanize.IBytes(uint64(s.Available)),
		humanize.IBytes(uint64(s.Capacity)),
		s.Utilization*100)
	return err
}

// LogStats writes the arena's stats to logger at debug level.
func (a *Arena) LogStats(logger log.Logger) {
	s := a.Stats()
	level.Debug(logger).Log(
		"msg", "arena stats",
		"arena", s.Name,
		"sub", s.Sub,
		"used", s.Used,
		"available", s.Available,
		"capacity", s.Capacity,
		"utilization", fmt.Sprintf("%.4f", s.Utilization),
	)
}
