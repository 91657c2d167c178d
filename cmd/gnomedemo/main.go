// Command gnomedemo runs an entire process group as goroutines inside one
// binary over the in-process localnet transport, for local experimentation
// without standing up a controller and N separate gnomeproc processes.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/desecnd/gnomes-rat-killers/internal/engine"
	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
	"github.com/desecnd/gnomes-rat-killers/transport/localnet"
)

func main() {
	size := flag.Int("size", 3, "total process-group size")
	producers := flag.Int("producers", 2, "producer cap")
	consumers := flag.Int("consumers", 1, "consumer cap")
	slots := flag.Int("slots", 1, "initial SLOT capacity")
	artifacts := flag.Int("artifacts", 0, "initial ARTIFACT capacity")
	dwellSec := flag.Float64("dwell", 1.0, "fixed per-state dwell, seconds")
	flag.Parse()

	dwell := engine.Dwell{Min: time.Duration(*dwellSec * float64(time.Second)), Max: time.Duration(*dwellSec * float64(time.Second))}
	dwellCfg := engine.DwellConfig{Sleeping: dwell, Resting: dwell, Requesting: engine.Dwell{}, Critical: dwell}

	roles := engine.Roles(*size, *producers, *consumers)
	hub := localnet.NewHub(*size, 256)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	var wg sync.WaitGroup
	for _, role := range roles {
		if role.Class == engine.ClassIdle {
			continue
		}

		conn, err := hub.Conn(role.Rank)
		if err != nil {
			log.Fatalf("gnomedemo: %v", err)
		}

		initial := *slots
		if role.Class == engine.ClassConsumer {
			initial = *artifacts
		}

		logger := netlog.New("")
		proc := engine.NewProcess(role, initial, dwellCfg, logger)
		driver := engine.NewDriver(proc, conn, logger)

		wg.Add(1)
		go func(r engine.Role) {
			defer wg.Done()
			if err := driver.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("gnomedemo: rank %d stopped: %v", r.Rank, err)
				cancel()
			}
		}(role)
	}

	wg.Wait()
}
