// Package engine is the matching engine core: per-symbol serialization,
// order-type policy, fee computation, the trigger store and activation
// loop, the recent-trade ring, and the background task scheduler.
//
// It generalizes the teacher's internal/engine/engine.go, which held one
// hard-coded AssetType's OrderBook and an empty Trade stub, into a
// multi-symbol engine with real fee/trigger/persistence/broadcast wiring.
// The background-task lifecycle (persistence saver, trigger rescanner)
// reuses the teacher's tomb.Tomb-supervised-goroutine idiom from
// internal/worker.go and internal/net/server.go.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/book"
	"matchcore/internal/common"
)

// Persister is the contract the engine consumes for crash-consistent
// checkpointing (spec.md §4.5). A nil Persister disables persistence.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// Broadcaster is the contract the engine consumes for market-data/trade
// fan-out (spec.md §4.6). A nil Broadcaster disables fan-out.
type Broadcaster interface {
	BroadcastMarketData(symbol string, bids, asks []common.Level)
	BroadcastTrades(symbol string, trades []common.Trade)
}

// FeeSchedule configures basis-point fee computation. MakerRebateBps may
// be negative to denote a rebate paid to the maker.
type FeeSchedule struct {
	MakerRebateBps int64
	TakerFeeBps    int64
}

// Config tunes the engine's background task cadence and bounded
// containers. Zero values fall back to the documented defaults.
type Config struct {
	Fees                FeeSchedule
	RecentTradesCap     int
	PersistInterval     time.Duration
	TriggerScanInterval time.Duration
	SnapshotDepth       int
}

const (
	defaultRecentTradesCap     = 1000
	defaultPersistInterval     = 5 * time.Second
	defaultTriggerScanInterval = 500 * time.Millisecond
	defaultSnapshotDepth       = 10
)

func (c Config) withDefaults() Config {
	if c.RecentTradesCap <= 0 {
		c.RecentTradesCap = defaultRecentTradesCap
	}
	if c.PersistInterval <= 0 {
		c.PersistInterval = defaultPersistInterval
	}
	if c.TriggerScanInterval <= 0 {
		c.TriggerScanInterval = defaultTriggerScanInterval
	}
	if c.SnapshotDepth <= 0 {
		c.SnapshotDepth = defaultSnapshotDepth
	}
	return c
}

// Engine owns one order book per symbol, a mutex per symbol created
// lazily on first use, the per-symbol triggers list, and the per-symbol
// recent-trade ring. Only one symbol's lock is ever held at a time; the
// metaMu mutex guarding the bookkeeping maps themselves is leaf-level and
// held only for the instant needed to look up or create a symbol's
// entries, never across a book mutation.
type Engine struct {
	cfg Config
	log zerolog.Logger

	metaMu sync.Mutex
	books  map[string]*book.Book
	locks  map[string]*sync.Mutex
	rings  map[string]*tradeRing

	indexMu          sync.Mutex
	orderSymbolIndex map[string]string // order_id -> symbol, resting or pending-trigger

	triggersMu sync.Mutex // always acquired only nested inside a symbol lock
	triggers   map[string][]*common.Order

	persist   Persister
	broadcast Broadcaster

	t *tomb.Tomb
}

// New constructs an engine with the given fee schedule and tuning. persist
// and broadcast may be nil to disable those subsystems (useful for tests).
func New(cfg Config, persist Persister, broadcast Broadcaster, logger zerolog.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:              cfg,
		log:              logger,
		books:            make(map[string]*book.Book),
		locks:            make(map[string]*sync.Mutex),
		rings:            make(map[string]*tradeRing),
		orderSymbolIndex: make(map[string]string),
		triggers:         make(map[string][]*common.Order),
		persist:          persist,
		broadcast:        broadcast,
	}
}

// lockFor returns the mutex for symbol, creating it (and the symbol's book
// and trade ring) on first use.
func (e *Engine) lockFor(symbol string) *sync.Mutex {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()

	l, ok := e.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		e.locks[symbol] = l
		e.books[symbol] = book.New(symbol)
		e.rings[symbol] = newTradeRing(e.cfg.RecentTradesCap)
	}
	return l
}

func (e *Engine) bookFor(symbol string) *book.Book {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	return e.books[symbol]
}

func (e *Engine) ringFor(symbol string) *tradeRing {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	return e.rings[symbol]
}

// symbols returns every symbol the engine has ever seen, used by the
// periodic trigger scan and by persistence snapshotting.
func (e *Engine) symbols() []string {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	out := make([]string, 0, len(e.locks))
	for s := range e.locks {
		out = append(out, s)
	}
	return out
}

// Start brings up the persistence saver and trigger rescanner background
// tasks. If persist is non-nil, it first loads the prior snapshot into the
// engine before the tasks start. Mirrors the teacher's Server.Run: one
// tomb.Tomb owns every supervised goroutine, cancelled together on Stop.
func (e *Engine) Start(ctx context.Context) error {
	if e.persist != nil {
		snapshot, err := e.persist.Load(ctx)
		if err != nil {
			e.log.Error().Err(err).Msg("engine: snapshot load failed, starting from empty state")
		} else {
			e.restore(snapshot)
		}
	}

	t, ctx := tomb.WithContext(ctx)
	e.t = t

	t.Go(func() error {
		return e.runPersistLoop(t)
	})
	t.Go(func() error {
		return e.runTriggerScanLoop(t)
	})

	e.log.Info().Msg("engine: started")
	return nil
}

// Stop cancels the background tasks and performs one final synchronous
// save, the same "final flush at teardown" contract as the teacher's
// Server.Shutdown.
func (e *Engine) Stop(ctx context.Context) {
	if e.t != nil {
		e.t.Kill(nil)
		_ = e.t.Wait()
	}
	if e.persist != nil {
		if err := e.persist.Save(ctx, e.Snapshot()); err != nil {
			e.log.Error().Err(err).Msg("engine: final save failed")
		}
	}
	e.log.Info().Msg("engine: stopped")
}
