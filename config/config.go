// Package config describes an arena layout (one root arena and its named
// sub-arenas) that can be loaded from YAML or command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pavanmanishd/linarena"
)

var (
	errInvalidCapacity = errors.New("invalid capacity")
	errDuplicateName   = errors.New("duplicate arena name")
	errEmptyName       = errors.New("arena name must not be empty")
)

// ByteSize is a byte count that reads and writes human friendly sizes
// such as "64KiB" or "1MB".
type ByteSize uint64

// String implements flag.Value.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Set implements flag.Value.
func (b *ByteSize) Set(s string) error {
	v, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return errors.Wrapf(err, "parse byte size %q", s)
	}
	*b = ByteSize(v)
	return nil
}

// UnmarshalYAML accepts both plain integers and humanized strings.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return b.Set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// SubArenaConfig describes one sub-arena carved out of the root.
type SubArenaConfig struct {
	Name     string   `yaml:"name"`
	Capacity ByteSize `yaml:"capacity"`
}

// Config describes a root arena and the sub-arenas created from it, in
// order.
type Config struct {
	Name        string           `yaml:"name"`
	Capacity    ByteSize         `yaml:"capacity"`
	MaxCapacity ByteSize         `yaml:"max_capacity"`
	SubArenas   []SubArenaConfig `yaml:"sub_arenas"`
}

func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix(f, "arena.")
}

func (cfg *Config) RegisterFlagsWithPrefix(f *flag.FlagSet, prefix string) {
	cfg.Capacity = 64 * 1024
	cfg.MaxCapacity = linarena.DefaultMaxCapacity

	f.StringVar(&cfg.Name, prefix+"name", "root", "Name of the root arena.")
	f.Var(&cfg.Capacity, prefix+"capacity", "Capacity of the root arena, e.g. 64KiB.")
	f.Var(&cfg.MaxCapacity, prefix+"max-capacity", "Largest capacity the root arena may reserve.")
}

func (cfg *Config) Validate() error {
	if cfg.Name == "" {
		return errEmptyName
	}
	if cfg.MaxCapacity > 0 && cfg.Capacity > cfg.MaxCapacity {
		return fmt.Errorf("%w: capacity %s exceeds max_capacity %s", errInvalidCapacity, cfg.Capacity, cfg.MaxCapacity)
	}
	if uint64(cfg.Capacity) > uint64(maxInt) {
		return fmt.Errorf("%w: capacity %d overflows int", errInvalidCapacity, uint64(cfg.Capacity))
	}

	seen := map[string]struct{}{cfg.Name: {}}
	var total uint64
	for i, sub := range cfg.SubArenas {
		if sub.Name == "" {
			return errors.Wrapf(errEmptyName, "sub_arenas[%d]", i)
		}
		if _, ok := seen[sub.Name]; ok {
			return fmt.Errorf("%w: %q", errDuplicateName, sub.Name)
		}
		seen[sub.Name] = struct{}{}

		total += uint64(sub.Capacity)
		if total > uint64(cfg.Capacity) {
			return fmt.Errorf("%w: sub-arenas need at least %s, root has %s", errInvalidCapacity, ByteSize(total), cfg.Capacity)
		}
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)

// Load reads a YAML config from path. Unknown fields are rejected.
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "open config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "decode config %s", path)
	}
	return cfg, nil
}
