package config

import (
	"github.com/pkg/errors"

	"github.com/pavanmanishd/linarena"
)

// Layout is a root arena plus the named sub-arenas carved from it.
type Layout struct {
	Root *linarena.Arena

	subs  map[string]*linarena.Arena
	order []string
}

// Build validates cfg and creates its arenas. opts are applied to the root
// (and inherited by sub-arenas where applicable); the root name and
// capacity limit always come from cfg. If any sub-arena cannot be created
// the root is destroyed and the error returned.
func Build(cfg Config, opts ...linarena.Option) (*Layout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid arena config")
	}

	rootOpts := append(append([]linarena.Option{}, opts...), linarena.WithName(cfg.Name))
	if cfg.MaxCapacity > 0 {
		rootOpts = append(rootOpts, linarena.WithMaxCapacity(int(min(uint64(cfg.MaxCapacity), uint64(maxInt)))))
	}
	root, err := linarena.New(int(cfg.Capacity), rootOpts...)
	if err != nil {
		return nil, err
	}

	l := &Layout{
		Root: root,
		subs: make(map[string]*linarena.Arena, len(cfg.SubArenas)),
	}
	for _, sc := range cfg.SubArenas {
		sub, err := root.NewSub(int(sc.Capacity), linarena.WithName(sc.Name))
		if err != nil {
			_ = root.Destroy()
			return nil, errors.Wrapf(err, "build sub-arena %q", sc.Name)
		}
		l.subs[sc.Name] = sub
		l.order = append(l.order, sc.Name)
	}
	return l, nil
}

// Sub returns the sub-arena called name, or nil.
func (l *Layout) Sub(name string) *linarena.Arena {
	return l.subs[name]
}

// Arenas returns the root followed by the sub-arenas in creation order.
func (l *Layout) Arenas() []*linarena.Arena {
	out := make([]*linarena.Arena, 0, len(l.order)+1)
	out = append(out, l.Root)
	for _, name := range l.order {
		out = append(out, l.subs[name])
	}
	return out
}

// Close destroys the root arena, invalidating every sub-arena.
func (l *Layout) Close() error {
	return l.Root.Destroy()
}
