package engine

import "matchcore/internal/common"

// Cancel resolves order_id via the order_symbol_index (which covers both
// resting book orders and pending trigger orders, per spec.md §3's
// invariant 6), removes it from whichever container holds it, and
// schedules a market-data broadcast if it came off the book. A second
// cancel of the same id returns ErrOrderNotFound — cancellation is
// idempotent only in that sense (spec.md §4.3).
func (e *Engine) Cancel(orderID string) (*common.Order, error) {
	e.indexMu.Lock()
	symbol, ok := e.orderSymbolIndex[orderID]
	e.indexMu.Unlock()
	if !ok {
		return nil, ErrOrderNotFound
	}

	lock := e.lockFor(symbol)
	b := e.bookFor(symbol)

	lock.Lock()
	removed := b.RemoveOrder(orderID)
	var fromTriggers bool
	if removed == nil {
		removed, fromTriggers = e.removeTriggerLocked(symbol, orderID)
	}
	var bids, asks []common.Level
	if removed != nil && e.broadcast != nil && !fromTriggers {
		bids, asks = b.SnapshotL2(e.cfg.SnapshotDepth)
	}
	lock.Unlock()

	if removed == nil {
		return nil, ErrOrderNotFound
	}

	e.indexMu.Lock()
	delete(e.orderSymbolIndex, orderID)
	e.indexMu.Unlock()

	if !fromTriggers && e.broadcast != nil {
		go e.broadcast.BroadcastMarketData(symbol, bids, asks)
	}
	return removed, nil
}

// removeTriggerLocked removes the first trigger-list entry matching
// orderID for symbol. Must be called with that symbol's lock held.
func (e *Engine) removeTriggerLocked(symbol, orderID string) (*common.Order, bool) {
	e.triggersMu.Lock()
	defer e.triggersMu.Unlock()

	list := e.triggers[symbol]
	for i, o := range list {
		if o.OrderID == orderID {
			e.triggers[symbol] = append(list[:i], list[i+1:]...)
			return o, true
		}
	}
	return nil, false
}
