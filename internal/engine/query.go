package engine

import (
	"matchcore/internal/common"
	"matchcore/internal/money"
)

// BookSnapshotResult is the response shape for a depth-bounded L2 query
// (spec.md §6 "Book snapshot").
type BookSnapshotResult struct {
	Symbol    string
	Bids      []common.Level
	Asks      []common.Level
	Timestamp string
}

// BookSnapshot returns up to depth aggregated levels per side for symbol.
func (e *Engine) BookSnapshot(symbol string, depth int) BookSnapshotResult {
	lock := e.lockFor(symbol)
	b := e.bookFor(symbol)

	lock.Lock()
	bids, asks := b.SnapshotL2(depth)
	lock.Unlock()

	return BookSnapshotResult{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: money.Now()}
}

// BBOResult is the response shape for spec.md §6 "BBO".
type BBOResult struct {
	Symbol    string
	Bid       *common.Level
	Ask       *common.Level
	Timestamp string
}

// BBO returns the current best bid/offer for symbol.
func (e *Engine) BBO(symbol string) BBOResult {
	lock := e.lockFor(symbol)
	b := e.bookFor(symbol)

	lock.Lock()
	bbo := b.BBO()
	lock.Unlock()

	return BBOResult{Symbol: symbol, Bid: bbo.Bid, Ask: bbo.Ask, Timestamp: money.Now()}
}

// RecentTradesResult is the response shape for spec.md §6 "Recent trades".
type RecentTradesResult struct {
	Symbol string
	Trades []common.Trade
}

// RecentTrades returns up to the ring's capacity of the most recent trades
// for symbol, oldest first.
func (e *Engine) RecentTrades(symbol string) RecentTradesResult {
	lock := e.lockFor(symbol)
	ring := e.ringFor(symbol)

	lock.Lock()
	trades := ring.Snapshot()
	lock.Unlock()

	return RecentTradesResult{Symbol: symbol, Trades: trades}
}

// PollResult is the response shape for spec.md §6 "Polled updates".
type PollResult struct {
	Book           BookSnapshotResult
	Trades         []common.Trade
	LatestTradeID  string
}

// PollUpdates returns a depth-bounded book snapshot plus every trade
// strictly after sinceTradeID (or the whole ring if sinceTradeID is empty
// or unknown), for symbol.
func (e *Engine) PollUpdates(symbol string, depth int, sinceTradeID string) PollResult {
	lock := e.lockFor(symbol)
	b := e.bookFor(symbol)
	ring := e.ringFor(symbol)

	lock.Lock()
	bids, asks := b.SnapshotL2(depth)
	trades := ring.Since(sinceTradeID)
	latest := ring.Latest()
	lock.Unlock()

	return PollResult{
		Book:          BookSnapshotResult{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: money.Now()},
		Trades:        trades,
		LatestTradeID: latest,
	}
}
