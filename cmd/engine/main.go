// Command engine wires up the matching core, its file-backed snapshot
// store, and its fan-out hub, then blocks until terminated. It carries no
// network listener: framing a transport on top of internal/api is
// explicitly out of scope here, the same boundary the teacher drew
// between cmd/server (process wiring) and internal/net (wire protocol).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"matchcore/internal/engine"
	"matchcore/internal/fanout"
	"matchcore/internal/persistence"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	dataDir := os.Getenv("MATCHCORE_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	store, err := persistence.New(dataDir, log.With().Str("component", "persistence").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("engine: failed to open persistence store")
	}

	hub := fanout.New(log.With().Str("component", "fanout").Logger(), 10*time.Second)
	hub.Start(ctx)
	defer hub.Stop()

	eng := engine.New(engine.Config{
		Fees: engine.FeeSchedule{
			MakerRebateBps: -1,
			TakerFeeBps:    5,
		},
	}, store, hub, log.With().Str("component", "engine").Logger())

	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine: failed to start")
	}

	log.Info().Msg("engine: running, waiting for shutdown signal")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	eng.Stop(shutdownCtx)
}
