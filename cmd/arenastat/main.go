// arenastat builds an arena layout, optionally runs a demonstration
// workload against it and reports the resulting accounting.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/pavanmanishd/linarena"
	"github.com/pavanmanishd/linarena/arenametrics"
	"github.com/pavanmanishd/linarena/config"
)

type options struct {
	configFile string
	name       string
	capacity   config.ByteSize
	subs       map[string]string
	scenario   bool
	metrics    bool
	logLevel   string
}

func main() {
	app := kingpin.New("arenastat", "Build a linear arena layout and report its usage.")
	opts := registerFlags(app)
	if _, err := app.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(os.Stderr, opts.logLevel)
	if err := run(opts, os.Stdout, logger); err != nil {
		level.Error(logger).Log("msg", "arenastat failed", "err", err)
		os.Exit(1)
	}
}

func registerFlags(app *kingpin.Application) *options {
	opts := &options{capacity: 64 * 1024, subs: map[string]string{}}
	app.Flag("config.file", "YAML arena layout. Overrides --name, --capacity and --sub.").StringVar(&opts.configFile)
	app.Flag("name", "Name of the root arena.").Default("root").StringVar(&opts.name)
	app.Flag("capacity", "Capacity of the root arena, e.g. 64KiB.").SetValue(&opts.capacity)
	app.Flag("sub", "Sub-arena as name=size; repeatable.").StringMapVar(&opts.subs)
	app.Flag("scenario", "Run the allocate/mark/rewind walkthrough on the root arena.").BoolVar(&opts.scenario)
	app.Flag("metrics", "Print arena gauges in Prometheus text format.").BoolVar(&opts.metrics)
	app.Flag("log.level", "Log level: debug, info, warn, error.").Default("info").EnumVar(&opts.logLevel, "debug", "info", "warn", "error")
	return opts
}

func newLogger(w io.Writer, lvl string) log.Logger {
	var filter level.Option
	switch lvl {
	case "debug":
		filter = level.AllowDebug()
	case "warn":
		filter = level.AllowWarn()
	case "error":
		filter = level.AllowError()
	default:
		filter = level.AllowInfo()
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, filter)
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

func buildConfig(opts *options) (config.Config, error) {
	if opts.configFile != "" {
		return config.Load(opts.configFile)
	}

	cfg := config.Config{
		Name:        opts.name,
		Capacity:    opts.capacity,
		MaxCapacity: linarena.DefaultMaxCapacity,
	}
	for _, name := range sortedKeys(opts.subs) {
		var size config.ByteSize
		if err := size.Set(opts.subs[name]); err != nil {
			return cfg, errors.Wrapf(err, "sub-arena %q", name)
		}
		cfg.SubArenas = append(cfg.SubArenas, config.SubArenaConfig{Name: name, Capacity: size})
	}
	return cfg, nil
}

func run(opts *options, out io.Writer, logger log.Logger) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	layout, err := config.Build(cfg, linarena.WithLogger(logger))
	if err != nil {
		return err
	}
	defer layout.Close()

	level.Info(logger).Log("msg", "built arena layout", "root", cfg.Name, "capacity", cfg.Capacity, "sub_arenas", len(cfg.SubArenas))

	if opts.scenario {
		if err := runScenario(layout.Root, out); err != nil {
			return errors.Wrap(err, "scenario")
		}
	}

	for _, a := range layout.Arenas() {
		if err := a.Dump(out); err != nil {
			return err
		}
		a.LogStats(logger)
	}

	if opts.metrics {
		return writeMetrics(layout, out)
	}
	return nil
}

// runScenario allocates 100 and 200 bytes, marks, allocates 50, rewinds to
// the mark and allocates 50 again, printing each offset.
func runScenario(a *linarena.Arena, out io.Writer) error {
	step := func(label string, size int) error {
		b, err := a.Allocate(size)
		if err != nil {
			return errors.Wrapf(err, "%s", label)
		}
		_, err = fmt.Fprintf(out, "%-8s %4d bytes at base+%d\n", label, len(b), offset(a, b))
		return err
	}

	if err := step("alloc", 100); err != nil {
		return err
	}
	if err := step("alloc", 200); err != nil {
		return err
	}
	m := a.Mark()
	fmt.Fprintf(out, "%-8s at %d\n", "mark", m)
	if err := step("alloc", 50); err != nil {
		return err
	}
	if err := a.Rewind(m); err != nil {
		return err
	}
	fmt.Fprintf(out, "%-8s to %d\n", "rewind", m)
	if err := step("alloc", 50); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "used     %d bytes\n", a.Used())
	return err
}

func offset(a *linarena.Arena, b []byte) uintptr {
	return a.Top() - uintptr(len(b)) - a.Base()
}

func writeMetrics(layout *config.Layout, out io.Writer) error {
	c := arenametrics.NewCollector("arenastat")
	for _, a := range layout.Arenas() {
		c.Track(a)
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	enc := expfmt.NewEncoder(out, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
