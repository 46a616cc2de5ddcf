// Package book implements a single-symbol limit order book: a bid and an
// ask side, each an ordered map of price to a FIFO of resting orders, plus
// an order_id -> (side, price) index for O(log N) cancel.
//
// It generalizes the teacher's internal/engine/orderbook.go: float64
// prices become decimal.Decimal, the single engine-wide book becomes one
// Book value per symbol, and the teacher's inverted-comparator trick for
// getting "best = Min()" on both sides is kept verbatim.
package book

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"matchcore/internal/common"
	"matchcore/internal/money"
)

var (
	// ErrOrderExists is returned by AddLimit when the order_id is already
	// resting on the book.
	ErrOrderExists = errors.New("book: order already resting")
)

// PriceLevel is a FIFO of orders resting at one price, all on the same
// side. Empty levels are removed eagerly by both RemoveOrder and Match,
// never left dangling in the tree.
type PriceLevel struct {
	Price  decimal.Decimal
	Side   common.Side
	Orders []*common.Order
}

// TotalQuantity sums the remaining quantity of every order at this level.
func (l *PriceLevel) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, o := range l.Orders {
		total = total.Add(o.Remaining)
	}
	return total
}

type levels = btree.BTreeG[*PriceLevel]

// locator is the order_index entry: a borrowing lookup, never an owner.
type locator struct {
	side  common.Side
	price decimal.Decimal
}

// Fill is one raw match produced by Match: a maker/taker pair, the
// execution price (always the maker's resting price), and the traded
// quantity.
type Fill struct {
	Maker    *common.Order
	Taker    *common.Order
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Book is the bid/ask state for one symbol.
type Book struct {
	Symbol string

	bids *levels
	asks *levels

	index map[string]locator

	lastTradePrice *decimal.Decimal
}

// New builds an empty book for symbol.
func New(symbol string) *Book {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price) // best bid = Min() of this order
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price) // best ask = Min() of this order
	})
	return &Book{
		Symbol: symbol,
		bids:   bids,
		asks:   asks,
		index:  make(map[string]locator),
	}
}

func (b *Book) sideTree(side common.Side) *levels {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeTree(side common.Side) *levels {
	if side == common.Buy {
		return b.asks
	}
	return b.bids
}

// AddLimit rests order on the book. order.Type must be Limit and
// order.Price must be set; callers (the engine) are responsible for that
// precondition. Undefined (returns ErrOrderExists) if order_id already
// rests on this book.
func (b *Book) AddLimit(order *common.Order) error {
	if _, exists := b.index[order.OrderID]; exists {
		return ErrOrderExists
	}

	tree := b.sideTree(order.Side)
	key := &PriceLevel{Price: *order.Price}
	if level, ok := tree.GetMut(key); ok {
		level.Orders = append(level.Orders, order)
	} else {
		tree.Set(&PriceLevel{
			Price:  *order.Price,
			Side:   order.Side,
			Orders: []*common.Order{order},
		})
	}
	b.index[order.OrderID] = locator{side: order.Side, price: *order.Price}
	return nil
}

// RemoveOrder locates order_id via the index, walks that level's FIFO, and
// removes it. Deletes the level if it becomes empty. Returns nil if the
// order is not resting on this book.
func (b *Book) RemoveOrder(orderID string) *common.Order {
	loc, ok := b.index[orderID]
	if !ok {
		return nil
	}
	tree := b.sideTree(loc.side)
	key := &PriceLevel{Price: loc.price}
	level, ok := tree.GetMut(key)
	if !ok {
		delete(b.index, orderID)
		return nil
	}

	var removed *common.Order
	for i, o := range level.Orders {
		if o.OrderID == orderID {
			removed = o
			level.Orders = append(level.Orders[:i], level.Orders[i+1:]...)
			break
		}
	}
	if len(level.Orders) == 0 {
		tree.Delete(key)
	}
	delete(b.index, orderID)
	return removed
}

// BestPrices returns the best resting bid and ask price, or nil if that
// side is empty.
func (b *Book) BestPrices() (bid, ask *decimal.Decimal) {
	if lvl, ok := b.bids.Min(); ok {
		p := lvl.Price
		bid = &p
	}
	if lvl, ok := b.asks.Min(); ok {
		p := lvl.Price
		ask = &p
	}
	return bid, ask
}

// LastTradePrice returns the price of the most recent fill on this book,
// or nil if none has occurred.
func (b *Book) LastTradePrice() *decimal.Decimal {
	return b.lastTradePrice
}

// BBO returns the best bid/offer with aggregate quantity at each.
func (b *Book) BBO() common.BBO {
	out := common.BBO{Symbol: b.Symbol}
	if lvl, ok := b.bids.Min(); ok {
		out.Bid = &common.Level{Price: lvl.Price, Quantity: money.Quantize(lvl.TotalQuantity())}
	}
	if lvl, ok := b.asks.Min(); ok {
		out.Ask = &common.Level{Price: lvl.Price, Quantity: money.Quantize(lvl.TotalQuantity())}
	}
	return out
}

// SnapshotL2 returns up to depth aggregated levels per side, best first:
// bids descending by price, asks ascending. Zero-quantity levels are
// skipped defensively; under the book's invariants none should exist.
func (b *Book) SnapshotL2(depth int) (bids, asks []common.Level) {
	bids = collectLevels(b.bids, depth)
	asks = collectLevels(b.asks, depth)
	return bids, asks
}

func collectLevels(tree *levels, depth int) []common.Level {
	out := make([]common.Level, 0, depth)
	tree.Scan(func(lvl *PriceLevel) bool {
		if len(out) >= depth {
			return false
		}
		qty := money.Quantize(lvl.TotalQuantity())
		if qty.IsZero() {
			return true
		}
		out = append(out, common.Level{Price: lvl.Price, Quantity: qty})
		return true
	})
	return out
}

// RestingOrders returns every order currently resting on either side of
// the book, in no particular cross-level order. Used by persistence
// snapshotting, not by the hot matching path.
func (b *Book) RestingOrders() []*common.Order {
	var out []*common.Order
	b.bids.Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl.Orders...)
		return true
	})
	b.asks.Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl.Orders...)
		return true
	})
	return out
}

// crossable reports whether incoming can trade against the current best
// opposite price under its own pricing policy. Market orders cross
// whenever the opposite side is non-empty; priced orders (limit/ioc/fok,
// and activated stop variants) cross only while the opposite best price
// satisfies their limit.
func crossable(incoming *common.Order, oppositeBest *decimal.Decimal) bool {
	if oppositeBest == nil {
		return false
	}
	if incoming.Type == common.Market {
		return true
	}
	if incoming.Price == nil {
		return false
	}
	if incoming.Side == common.Buy {
		return oppositeBest.LessThanOrEqual(*incoming.Price)
	}
	return oppositeBest.GreaterThanOrEqual(*incoming.Price)
}

// Match walks incoming against the opposite side in price-time priority
// until incoming is exhausted or no longer crossable. Every fill executes
// at the maker's resting price. Fully-consumed maker orders are popped off
// their level's FIFO and dropped from the index; empty levels are removed.
//
// Match mutates incoming.Remaining and every touched maker's Remaining in
// place; it does not decide what happens to incoming's residual (rest,
// discard, or reject) — that policy belongs to the engine.
func (b *Book) Match(incoming *common.Order) []Fill {
	var fills []Fill
	tree := b.oppositeTree(incoming.Side)

	for incoming.Remaining.IsPositive() {
		best, ok := tree.MinMut()
		if !ok {
			break
		}
		if !crossable(incoming, &best.Price) {
			break
		}

		for len(best.Orders) > 0 && incoming.Remaining.IsPositive() {
			maker := best.Orders[0]
			qty := decimal.Min(incoming.Remaining, maker.Remaining)

			incoming.Remaining = incoming.Remaining.Sub(qty)
			maker.Remaining = maker.Remaining.Sub(qty)

			price := best.Price
			fills = append(fills, Fill{Maker: maker, Taker: incoming, Price: price, Quantity: qty})
			b.lastTradePrice = &price

			if maker.Remaining.IsZero() {
				best.Orders = best.Orders[1:]
				delete(b.index, maker.OrderID)
			}
		}

		if len(best.Orders) == 0 {
			tree.Delete(best)
		}
	}
	return fills
}

// WouldFillCompletely simulates a walk of incoming (without mutating the
// book) and reports whether the full remaining quantity could be filled
// at-or-better than incoming's limit, for the FOK precheck. Must run
// inside the same critical section as the real Match (spec.md §9 Open
// Questions), which the engine guarantees via its per-symbol lock.
func (b *Book) WouldFillCompletely(incoming *common.Order) bool {
	tree := b.oppositeTree(incoming.Side)
	remaining := incoming.Remaining

	tree.Scan(func(lvl *PriceLevel) bool {
		if !crossable(incoming, &lvl.Price) {
			return false
		}
		for _, o := range lvl.Orders {
			if remaining.IsZero() {
				return false
			}
			take := decimal.Min(remaining, o.Remaining)
			remaining = remaining.Sub(take)
		}
		return true
	})
	return remaining.IsZero()
}
