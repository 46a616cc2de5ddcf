package engine

import "matchcore/internal/common"

// tradeRing is the bounded per-symbol recent-trade FIFO (spec.md §3,
// default cap 1000). All writes happen under the owning symbol's lock;
// Snapshot copies under the same lock so readers never observe a
// half-appended slice.
type tradeRing struct {
	cap   int
	items []common.Trade
}

func newTradeRing(cap int) *tradeRing {
	return &tradeRing{cap: cap, items: make([]common.Trade, 0, cap)}
}

// Push appends a trade, dropping the oldest entry on overflow.
func (r *tradeRing) Push(t common.Trade) {
	r.items = append(r.items, t)
	if len(r.items) > r.cap {
		r.items = r.items[len(r.items)-r.cap:]
	}
}

// Snapshot returns a copy of every trade currently retained, oldest first.
func (r *tradeRing) Snapshot() []common.Trade {
	out := make([]common.Trade, len(r.items))
	copy(out, r.items)
	return out
}

// Since returns trades strictly after tradeID, oldest first. If tradeID is
// empty or not present in the ring, the whole ring is returned (spec.md
// §6 "Polled updates").
func (r *tradeRing) Since(tradeID string) []common.Trade {
	if tradeID == "" {
		return r.Snapshot()
	}
	for i, t := range r.items {
		if t.TradeID == tradeID {
			return append([]common.Trade(nil), r.items[i+1:]...)
		}
	}
	return r.Snapshot()
}

// Latest returns the most recently pushed trade id, or "" if empty.
func (r *tradeRing) Latest() string {
	if len(r.items) == 0 {
		return ""
	}
	return r.items[len(r.items)-1].TradeID
}

// restore replaces the ring's contents wholesale (used only by snapshot
// reload at startup), truncating to cap if the persisted slice is larger.
func (r *tradeRing) restore(trades []common.Trade) {
	if len(trades) > r.cap {
		trades = trades[len(trades)-r.cap:]
	}
	r.items = append(r.items[:0], trades...)
}
