// Package config parses and validates the startup configuration described
// by the spec, in the style of the retrieved transport library's own
// main.go: plain stdlib flag parsing, no third-party CLI framework.
package config

import (
	"flag"
	"fmt"
	"time"
)

// Config is the validated startup configuration for one process.
type Config struct {
	Rank int
	Size int

	Producers int
	Consumers int

	InitialSlots     int
	InitialArtifacts int

	DwellMin time.Duration
	DwellMax time.Duration

	Transport      string // "local" or "grpc"
	ControllerAddr string // dial address for the grpc transport
	ListenAddr     string // listen address when this rank hosts the controller
}

// Parse reads flags from args (typically os.Args[1:]) into a Config. It
// does not validate; call Validate separately so callers can decide how to
// report a bad config before anything else is constructed.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("gnomeproc", flag.ContinueOnError)

	c := &Config{}
	fs.IntVar(&c.Rank, "rank", 0, "this process's rank")
	fs.IntVar(&c.Size, "size", 1, "total number of ranks in the process group")
	fs.IntVar(&c.Producers, "producers", 0, "maximum number of producer ranks")
	fs.IntVar(&c.Consumers, "consumers", 0, "maximum number of consumer ranks")
	fs.IntVar(&c.InitialSlots, "slots", 0, "initial assembly-slot capacity")
	fs.IntVar(&c.InitialArtifacts, "artifacts", 0, "initial artifact capacity")

	var dwellMinSec, dwellMaxSec float64
	fs.Float64Var(&dwellMinSec, "dwell-min", 1.0, "minimum per-state dwell, seconds")
	fs.Float64Var(&dwellMaxSec, "dwell-max", 1.0, "maximum per-state dwell, seconds")

	fs.StringVar(&c.Transport, "transport", "local", `transport kind: "local" or "grpc"`)
	fs.StringVar(&c.ControllerAddr, "controller-addr", "127.0.0.1:7070", "grpc controller dial address")
	fs.StringVar(&c.ListenAddr, "listen-addr", "", "if set, this process also hosts the grpc controller on this address")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c.DwellMin = time.Duration(dwellMinSec * float64(time.Second))
	c.DwellMax = time.Duration(dwellMaxSec * float64(time.Second))

	return c, nil
}

// Validate rejects configuration errors before any protocol object is
// constructed: negative capacities, an inverted dwell range, a non-positive
// group size, or an unknown transport kind.
func (c *Config) Validate() error {
	switch {
	case c.Size <= 0:
		return fmt.Errorf("config: size must be positive, got %d", c.Size)
	case c.Rank < 0 || c.Rank >= c.Size:
		return fmt.Errorf("config: rank %d out of range [0,%d)", c.Rank, c.Size)
	case c.Producers < 0:
		return fmt.Errorf("config: producers must be >= 0, got %d", c.Producers)
	case c.Consumers < 0:
		return fmt.Errorf("config: consumers must be >= 0, got %d", c.Consumers)
	case c.InitialSlots < 0:
		return fmt.Errorf("config: slots must be >= 0, got %d", c.InitialSlots)
	case c.InitialArtifacts < 0:
		return fmt.Errorf("config: artifacts must be >= 0, got %d", c.InitialArtifacts)
	case c.DwellMin < 0 || c.DwellMax < 0:
		return fmt.Errorf("config: dwell bounds must be >= 0")
	case c.DwellMin > c.DwellMax:
		return fmt.Errorf("config: dwell-min (%v) greater than dwell-max (%v)", c.DwellMin, c.DwellMax)
	case c.Transport != "local" && c.Transport != "grpc":
		return fmt.Errorf("config: unknown transport %q", c.Transport)
	}
	return nil
}
