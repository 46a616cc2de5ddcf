package engine

import (
	"github.com/shopspring/decimal"

	"matchcore/internal/book"
	"matchcore/internal/common"
	"matchcore/internal/money"
)

// SubmitRequest is the caller-facing order request (spec.md §6 "Submit").
type SubmitRequest struct {
	Symbol          string
	Side            common.Side
	Type            common.OrderType
	Quantity        decimal.Decimal
	Price           *decimal.Decimal
	StopPrice       *decimal.Decimal
	TakeProfitPrice *decimal.Decimal
	ClientOrderID   string
	UserID          string
}

func (r SubmitRequest) validate() error {
	if !r.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	switch r.Type {
	case common.Limit, common.StopLimit:
		if r.Price == nil {
			return ErrMissingPrice
		}
	}
	switch r.Type {
	case common.Stop, common.StopLimit:
		if r.StopPrice == nil {
			return ErrMissingStopPrice
		}
	}
	if r.Type == common.TakeProfit && r.TakeProfitPrice == nil {
		return ErrMissingTakeProfitPrice
	}
	switch r.Type {
	case common.Market, common.Limit, common.IOC, common.FOK, common.Stop, common.StopLimit, common.TakeProfit:
	default:
		return ErrUnknownOrderType
	}
	return nil
}

// Submit validates req, mints an order, and runs it through the per-symbol
// critical section: match, rest-or-discard-or-reject per type, record
// trades, then (after releasing the lock) rescan triggers and schedule
// fan-out, per spec.md §4.2.
func (e *Engine) Submit(req SubmitRequest) (*common.Order, []common.Trade, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}

	order := &common.Order{
		OrderID:         money.NewOrderID(),
		Symbol:          req.Symbol,
		Side:            req.Side,
		Type:            req.Type,
		Quantity:        req.Quantity,
		Remaining:       req.Quantity,
		Price:           req.Price,
		StopPrice:       req.StopPrice,
		TakeProfitPrice: req.TakeProfitPrice,
		Timestamp:       money.Now(),
		ClientOrderID:   req.ClientOrderID,
		UserID:          req.UserID,
	}

	lock := e.lockFor(req.Symbol)
	b := e.bookFor(req.Symbol)

	lock.Lock()
	trades := e.acceptLocked(order)
	var bids, asks []common.Level
	if e.broadcast != nil {
		bids, asks = b.SnapshotL2(e.cfg.SnapshotDepth)
	}
	lock.Unlock()

	e.afterBatch(req.Symbol, bids, asks, trades)

	return order, trades, nil
}

// acceptLocked runs the order-type policy table of spec.md §4.2 under the
// caller-held symbol lock. It returns the trades produced, already pushed
// to the recent-trade ring.
func (e *Engine) acceptLocked(order *common.Order) []common.Trade {
	b := e.bookFor(order.Symbol)

	if order.Type.IsTrigger() {
		e.triggersMu.Lock()
		e.triggers[order.Symbol] = append(e.triggers[order.Symbol], order)
		e.triggersMu.Unlock()
		e.indexMu.Lock()
		e.orderSymbolIndex[order.OrderID] = order.Symbol
		e.indexMu.Unlock()
		return nil
	}

	if order.Type == common.FOK {
		if !b.WouldFillCompletely(order) {
			return nil
		}
	}

	fills := b.Match(order)
	trades := e.settleFills(order.Symbol, fills)

	switch order.Type {
	case common.Limit:
		if order.Remaining.IsPositive() {
			_ = b.AddLimit(order)
			e.indexMu.Lock()
			e.orderSymbolIndex[order.OrderID] = order.Symbol
			e.indexMu.Unlock()
		}
	case common.Market, common.IOC, common.FOK:
		// residual, if any, is discarded: never rests, never re-indexed.
	}

	return trades
}

// settleFills converts raw book fills into fee-stamped trade records,
// pushes them to the symbol's recent-trade ring, and drops fully-consumed
// makers from the order_symbol_index (their book-level removal already
// happened inside book.Match).
func (e *Engine) settleFills(symbol string, fills []book.Fill) []common.Trade {
	if len(fills) == 0 {
		return nil
	}
	ring := e.ringFor(symbol)
	trades := make([]common.Trade, 0, len(fills))

	for _, f := range fills {
		notional := money.Notional(f.Price, f.Quantity)
		trade := common.Trade{
			TradeID:       money.NewTradeID(),
			Symbol:        symbol,
			Price:         money.Quantize(f.Price),
			Quantity:      money.Quantize(f.Quantity),
			AggressorSide: f.Taker.Side,
			MakerOrderID:  f.Maker.OrderID,
			TakerOrderID:  f.Taker.OrderID,
			Timestamp:     money.Now(),
			MakerFee:      money.BpsOf(notional, e.cfg.Fees.MakerRebateBps),
			TakerFee:      money.BpsOf(notional, e.cfg.Fees.TakerFeeBps),
		}
		trades = append(trades, trade)
		ring.Push(trade)

		if f.Maker.Remaining.IsZero() {
			e.indexMu.Lock()
			delete(e.orderSymbolIndex, f.Maker.OrderID)
			e.indexMu.Unlock()
		}
	}
	return trades
}

// afterBatch runs the post-critical-section housekeeping spec.md §4.2
// requires: a market-data broadcast always, and (if trades printed) a
// trades broadcast plus a trigger rescan, each released onto its own
// background goroutine so Submit never blocks on I/O. bids/asks/trades
// were captured while the symbol lock was still held, so the goroutines
// only ever touch copies, never the live book.
func (e *Engine) afterBatch(symbol string, bids, asks []common.Level, trades []common.Trade) {
	if e.broadcast != nil {
		go e.broadcast.BroadcastMarketData(symbol, bids, asks)
		if len(trades) > 0 {
			go e.broadcast.BroadcastTrades(symbol, trades)
		}
	}
	if len(trades) > 0 {
		go e.runTriggerPass(symbol)
	}
}
