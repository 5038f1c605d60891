package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pavanmanishd/linarena"
)

func TestByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{in: "1024", want: 1024},
		{in: "64KiB", want: 64 * 1024},
		{in: "1MB", want: 1000 * 1000},
		{in: " 2 MiB ", want: 2 << 20},
		{in: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var b ByteSize
			err := b.Set(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b)
		})
	}

	assert.Equal(t, "64 KiB", ByteSize(64*1024).String())
}

func TestByteSizeYAML(t *testing.T) {
	var sc SubArenaConfig
	require.NoError(t, yaml.Unmarshal([]byte("name: a\ncapacity: 4KiB\n"), &sc))
	assert.Equal(t, ByteSize(4096), sc.Capacity)

	require.NoError(t, yaml.Unmarshal([]byte("name: b\ncapacity: 512\n"), &sc))
	assert.Equal(t, ByteSize(512), sc.Capacity)

	out, err := yaml.Marshal(SubArenaConfig{Name: "c", Capacity: 2048})
	require.NoError(t, err)
	assert.Equal(t, "name: c\ncapacity: 2.0 KiB\n", string(out))

	require.Error(t, yaml.Unmarshal([]byte("capacity: [1, 2]\n"), &sc))
}

func TestRegisterFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	assert.Equal(t, ByteSize(64*1024), cfg.Capacity)
	assert.Equal(t, ByteSize(linarena.DefaultMaxCapacity), cfg.MaxCapacity)
	assert.Equal(t, "root", cfg.Name)

	require.NoError(t, fs.Parse([]string{"-arena.name=req", "-arena.capacity=1MiB", "-arena.max-capacity=2MiB"}))
	assert.Equal(t, "req", cfg.Name)
	assert.Equal(t, ByteSize(1<<20), cfg.Capacity)
	assert.Equal(t, ByteSize(2<<20), cfg.MaxCapacity)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		wantErr error
	}{
		"valid": {
			cfg: Config{Name: "root", Capacity: 4096, SubArenas: []SubArenaConfig{{Name: "a", Capacity: 1024}}},
		},
		"empty name": {
			cfg:     Config{Capacity: 1},
			wantErr: errEmptyName,
		},
		"empty sub name": {
			cfg:     Config{Name: "root", Capacity: 4096, SubArenas: []SubArenaConfig{{Capacity: 1}}},
			wantErr: errEmptyName,
		},
		"over max": {
			cfg:     Config{Name: "root", Capacity: 4096, MaxCapacity: 1024},
			wantErr: errInvalidCapacity,
		},
		"duplicate sub": {
			cfg: Config{Name: "root", Capacity: 4096, SubArenas: []SubArenaConfig{
				{Name: "a", Capacity: 1}, {Name: "a", Capacity: 1},
			}},
			wantErr: errDuplicateName,
		},
		"sub named like root": {
			cfg:     Config{Name: "root", Capacity: 4096, SubArenas: []SubArenaConfig{{Name: "root", Capacity: 1}}},
			wantErr: errDuplicateName,
		},
		"subs exceed root": {
			cfg: Config{Name: "root", Capacity: 1024, SubArenas: []SubArenaConfig{
				{Name: "a", Capacity: 512}, {Name: "b", Capacity: 600},
			}},
			wantErr: errInvalidCapacity,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: frame
capacity: 16KiB
max_capacity: 1MiB
sub_arenas:
  - name: parse
    capacity: 4KiB
  - name: render
    capacity: 2KiB
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Name:        "frame",
		Capacity:    16 << 10,
		MaxCapacity: 1 << 20,
		SubArenas: []SubArenaConfig{
			{Name: "parse", Capacity: 4 << 10},
			{Name: "render", Capacity: 2 << 10},
		},
	}, cfg)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("name: x\ngrowable: true\n"), 0o644))
	_, err = Load(unknown)
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuild(t *testing.T) {
	cfg := Config{
		Name:     "frame",
		Capacity: 16 << 10,
		SubArenas: []SubArenaConfig{
			{Name: "parse", Capacity: 4 << 10},
			{Name: "render", Capacity: 2 << 10},
		},
	}

	l, err := Build(cfg)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "frame", l.Root.Name())
	assert.Equal(t, 16<<10, l.Root.Capacity())

	parse := l.Sub("parse")
	require.NotNil(t, parse)
	assert.True(t, parse.IsSub())
	assert.Equal(t, 4<<10, parse.Capacity())
	assert.Nil(t, l.Sub("missing"))

	var names []string
	for _, a := range l.Arenas() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"frame", "parse", "render"}, names)

	_, err = l.Sub("render").Allocate(2 << 10)
	require.NoError(t, err)
}

func TestBuildFailures(t *testing.T) {
	t.Run("invalid", func(t *testing.T) {
		_, err := Build(Config{})
		require.ErrorIs(t, err, errEmptyName)
	})

	t.Run("sub does not fit with headers", func(t *testing.T) {
		// Validate only sums capacities; headers and padding push this over.
		_, err := Build(Config{Name: "root", Capacity: 1024, SubArenas: []SubArenaConfig{{Name: "all", Capacity: 1024}}})
		require.ErrorIs(t, err, linarena.ErrOutOfSpace)
	})

	t.Run("root over limit", func(t *testing.T) {
		_, err := Build(Config{Name: "root", Capacity: 2048}, linarena.WithMaxCapacity(1024))
		require.ErrorIs(t, err, linarena.ErrAllocation)
	})
}

func TestLayoutClose(t *testing.T) {
	l, err := Build(Config{Name: "root", Capacity: 1024, SubArenas: []SubArenaConfig{{Name: "a", Capacity: 128}}})
	require.NoError(t, err)

	require.NoError(t, l.Close())
	_, err = l.Sub("a").Allocate(1)
	assert.True(t, errors.Is(err, linarena.ErrUsage))
	require.ErrorIs(t, l.Close(), linarena.ErrUsage)
}
