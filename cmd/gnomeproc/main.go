// Command gnomeproc runs one rank of the assembly-slot/artifact mutual
// exclusion protocol. Process launch, rank assignment beyond the flags
// below, and the choice of transport wiring are deliberately thin: the
// protocol engine in internal/engine is where the actual behaviour lives.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/desecnd/gnomes-rat-killers/internal/config"
	"github.com/desecnd/gnomes-rat-killers/internal/engine"
	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
	"github.com/desecnd/gnomes-rat-killers/transport"
	"github.com/desecnd/gnomes-rat-killers/transport/grpcnet"
	"github.com/desecnd/gnomes-rat-killers/transport/localnet"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("gnomeproc: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("gnomeproc: %v", err)
	}

	roles := engine.Roles(cfg.Size, cfg.Producers, cfg.Consumers)
	role := roles[cfg.Rank]

	logger := netlog.New("")
	if role.Class == engine.ClassIdle {
		logger.Printf("[I%d] idle rank, nothing to run", cfg.Rank)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	tr, closeFn, err := buildTransport(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("gnomeproc: transport: %v", err)
	}
	defer closeFn()

	initial := cfg.InitialSlots
	if role.Class == engine.ClassConsumer {
		initial = cfg.InitialArtifacts
	}

	dwell := engine.DwellConfig{
		Sleeping:   engine.Dwell{Min: cfg.DwellMin, Max: cfg.DwellMax},
		Resting:    engine.Dwell{Min: cfg.DwellMin, Max: cfg.DwellMax},
		Requesting: engine.Dwell{Min: 0, Max: 0},
		Critical:   engine.Dwell{Min: cfg.DwellMin, Max: cfg.DwellMax},
	}

	proc := engine.NewProcess(role, initial, dwell, logger)
	driver := engine.NewDriver(proc, tr, logger)

	if err := driver.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("gnomeproc: rank %d: %v", cfg.Rank, err)
	}
}

func buildTransport(ctx context.Context, cfg *config.Config, logger netlog.Logger) (transport.Transport, func(), error) {
	switch cfg.Transport {
	case "grpc":
		if cfg.ListenAddr != "" {
			srv, lis, err := grpcnet.Listen(cfg.ListenAddr, logger)
			if err != nil {
				return nil, nil, err
			}
			go srv.Serve(lis)
		}

		client, err := grpcnet.Dial(ctx, cfg.ControllerAddr, cfg.Rank, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil

	default:
		// Single-binary demo: size ranks in one process sharing a Hub.
		// This path only makes sense when the caller has already wired
		// every rank against the same Hub (see the end-to-end tests);
		// a standalone "local" gnomeproc process with no peers is only
		// useful as a smoke test of startup/shutdown.
		hub := localnet.NewHub(cfg.Size, 256)
		conn, err := hub.Conn(cfg.Rank)
		if err != nil {
			return nil, nil, err
		}
		return conn, func() { hub.Close() }, nil
	}
}
