package engine

import (
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"
	"time"

	"matchcore/internal/common"
)

// conditionMet implements the activation table of spec.md §4.4. last/bid/ask
// may be nil (empty book / no prints yet), in which case that comparison is
// simply unavailable, matching the "||" structure where either clause can
// fire independently.
func conditionMet(od *common.Order, last, bid, ask *decimal.Decimal) bool {
	switch od.Type {
	case common.Stop, common.StopLimit:
		if od.Side == common.Buy {
			return gte(last, od.StopPrice) || gte(ask, od.StopPrice)
		}
		return lte(last, od.StopPrice) || lte(bid, od.StopPrice)
	case common.TakeProfit:
		if od.Side == common.Sell {
			return gte(last, od.TakeProfitPrice) || gte(ask, od.TakeProfitPrice)
		}
		return lte(last, od.TakeProfitPrice) || lte(bid, od.TakeProfitPrice)
	default:
		return false
	}
}

func gte(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return false
	}
	return a.GreaterThanOrEqual(*b)
}

func lte(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return false
	}
	return a.LessThanOrEqual(*b)
}

// transition mutates od.Type in place per spec.md §4.4's transition
// column. Activation always reuses the existing order_id and Timestamp —
// no new id is minted, no new timestamp stamped (spec.md §4.4, §9).
func transition(od *common.Order) {
	switch od.Type {
	case common.Stop:
		if od.Price == nil {
			od.Type = common.Market
		} else {
			od.Type = common.Limit
		}
	case common.StopLimit:
		od.Type = common.Limit
	case common.TakeProfit:
		od.Type = common.Market
	}
}

// activateOnce evaluates triggers[symbol] once: it freezes the eligible
// set at scan start (spec.md §4.4's tie-break rule), removes those orders
// from the pending list, then activates each in insertion order, feeding
// later activations the market state left by earlier ones within this
// same pass. It returns every trade printed by the activations.
func (e *Engine) activateOnce(symbol string) (activated int, trades []common.Trade) {
	lock := e.lockFor(symbol)
	b := e.bookFor(symbol)

	lock.Lock()
	defer lock.Unlock()

	e.triggersMu.Lock()
	pending := e.triggers[symbol]
	bid, ask := b.BestPrices()
	last := b.LastTradePrice()

	var eligible, remainder []*common.Order
	for _, od := range pending {
		if conditionMet(od, last, bid, ask) {
			eligible = append(eligible, od)
		} else {
			remainder = append(remainder, od)
		}
	}
	e.triggers[symbol] = remainder
	e.triggersMu.Unlock()

	if len(eligible) == 0 {
		return 0, nil
	}

	for _, od := range eligible {
		transition(od)
		// The order is no longer pending; acceptLocked re-indexes it only
		// if it ends up resting on the book.
		e.indexMu.Lock()
		delete(e.orderSymbolIndex, od.OrderID)
		e.indexMu.Unlock()
		// acceptLocked re-enters the submit path for the post-transition
		// type, already pushing any fills to the recent-trade ring.
		trades = append(trades, e.acceptLocked(od)...)
	}
	return len(eligible), trades
}

// runTriggerPass repeatedly calls activateOnce for symbol until a pass
// activates nothing, handling cascades where one activation's own prints
// satisfy another pending order's condition (spec.md §4.4: "evaluated
// whenever a trade prints on that symbol"). Each pass is its own
// lock/unlock cycle; the matching work inside never suspends.
func (e *Engine) runTriggerPass(symbol string) {
	var allBids, allAsks []common.Level
	var allTrades []common.Trade
	for {
		activated, trades := e.activateOnce(symbol)
		if activated == 0 {
			break
		}
		allTrades = append(allTrades, trades...)
	}
	if len(allTrades) == 0 {
		return
	}
	if e.broadcast != nil {
		b := e.bookFor(symbol)
		lock := e.lockFor(symbol)
		lock.Lock()
		allBids, allAsks = b.SnapshotL2(e.cfg.SnapshotDepth)
		lock.Unlock()
		e.broadcast.BroadcastMarketData(symbol, allBids, allAsks)
		e.broadcast.BroadcastTrades(symbol, allTrades)
	}
}

// runTriggerScanLoop is the periodic (<=0.5s default) rescan task: every
// tick, every symbol with pending triggers is evaluated, regardless of
// whether a trade happened to print. Mirrors the teacher's
// tomb-supervised worker loop in internal/worker.go.
func (e *Engine) runTriggerScanLoop(t *tomb.Tomb) error {
	ticker := time.NewTicker(e.cfg.TriggerScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			for _, symbol := range e.symbols() {
				e.runTriggerPass(symbol)
			}
		}
	}
}
