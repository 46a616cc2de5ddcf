package engine

import "matchcore/internal/common"

// Snapshot is the full persisted-state shape (spec.md §4.5, §6): every
// open order (resting limit orders and pending trigger orders alike) and
// the recent-trade ring, grouped by symbol.
type Snapshot struct {
	OpenOrders   map[string][]common.Order
	RecentTrades map[string][]common.Trade
}

// Snapshot captures the engine's full persistable state. Each symbol is
// captured under its own lock, never all symbols under one lock, so a
// slow save never blocks a fast-moving symbol's matching.
func (e *Engine) Snapshot() Snapshot {
	out := Snapshot{
		OpenOrders:   make(map[string][]common.Order),
		RecentTrades: make(map[string][]common.Trade),
	}

	for _, symbol := range e.symbols() {
		lock := e.lockFor(symbol)
		ring := e.ringFor(symbol)

		lock.Lock()
		open := e.openOrdersLocked(symbol)
		trades := ring.Snapshot()
		lock.Unlock()

		if len(open) > 0 {
			out.OpenOrders[symbol] = open
		}
		if len(trades) > 0 {
			out.RecentTrades[symbol] = trades
		}
	}
	return out
}

// openOrdersLocked gathers every resting book order plus every pending
// trigger order for symbol. Must be called with that symbol's lock held.
func (e *Engine) openOrdersLocked(symbol string) []common.Order {
	b := e.bookFor(symbol)
	var out []common.Order

	for _, o := range b.RestingOrders() {
		out = append(out, *o)
	}

	e.triggersMu.Lock()
	for _, o := range e.triggers[symbol] {
		out = append(out, *o)
	}
	e.triggersMu.Unlock()

	return out
}

// restore reconstitutes engine state from a loaded snapshot (spec.md
// §4.5 "Loader reconstitution"): only limit orders with remaining > 0
// and a non-nil price are re-seated on the book; stop, stop_limit and
// take_profit orders re-enter the triggers list for their symbol; any other
// order is dropped. Recent-trade rings are rehydrated up
// to their cap. Called once at Start, before background tasks launch, so
// no lock contention is possible yet.
func (e *Engine) restore(snapshot Snapshot) {
	for symbol, orders := range snapshot.OpenOrders {
		lock := e.lockFor(symbol)
		b := e.bookFor(symbol)
		lock.Lock()
		for i := range orders {
			o := orders[i]
			if o.Type == common.Limit && o.Price != nil && o.Remaining.IsPositive() {
				_ = b.AddLimit(&o)
				e.indexMu.Lock()
				e.orderSymbolIndex[o.OrderID] = symbol
				e.indexMu.Unlock()
			} else if o.Type.IsTrigger() {
				e.triggersMu.Lock()
				e.triggers[symbol] = append(e.triggers[symbol], &o)
				e.triggersMu.Unlock()
				e.indexMu.Lock()
				e.orderSymbolIndex[o.OrderID] = symbol
				e.indexMu.Unlock()
			}
		}
		lock.Unlock()
	}

	for symbol, trades := range snapshot.RecentTrades {
		e.lockFor(symbol) // ensures the ring exists
		ring := e.ringFor(symbol)
		ring.restore(trades)
	}
}
