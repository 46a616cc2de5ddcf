// Package common holds the tagged-variant order/trade types shared by the
// book, engine, persistence, and fan-out packages. It is the generalization
// of the teacher's internal/common package: float64 prices become
// decimal.Decimal, the single hard-coded asset type becomes a free-form
// symbol string, and the order-type enum grows from {market, limit} to the
// full {market, limit, ioc, fok, stop, stop_limit, take_profit} spec.md
// requires.
package common

import (
	"github.com/shopspring/decimal"
)

// Side is the resting/incoming direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// MarshalJSON renders Side as its lowercase literal name.
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// OrderType is the tagged variant spec.md §3 describes. A trigger order's
// Type mutates in place during activation (stop/stop_limit/take_profit ->
// market/limit); the engine's submit path dispatches on whatever Type
// currently holds.
type OrderType int

const (
	Market OrderType = iota
	Limit
	IOC
	FOK
	Stop
	StopLimit
	TakeProfit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case IOC:
		return "ioc"
	case FOK:
		return "fok"
	case Stop:
		return "stop"
	case StopLimit:
		return "stop_limit"
	case TakeProfit:
		return "take_profit"
	default:
		return "unknown"
	}
}

func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// IsTrigger reports whether an order of this type must be enqueued in the
// triggers list rather than matched/rested immediately.
func (t OrderType) IsTrigger() bool {
	return t == Stop || t == StopLimit || t == TakeProfit
}

// Order is the engine's internal representation. It is owned at any one
// moment by exactly one container: a book price level's FIFO, a symbol's
// triggers list, or transiently the in-flight matcher — never more than
// one, per spec.md's ownership invariant.
type Order struct {
	OrderID         string
	Symbol          string
	Side            Side
	Type            OrderType
	Quantity        decimal.Decimal
	Remaining       decimal.Decimal
	Price           *decimal.Decimal
	StopPrice       *decimal.Decimal
	TakeProfitPrice *decimal.Decimal
	Timestamp       string
	ClientOrderID   string
	UserID          string
}

// Filled returns Quantity - Remaining.
func (o *Order) Filled() decimal.Decimal {
	return o.Quantity.Sub(o.Remaining)
}

// Trade records one maker/taker fill. Price is always the maker's resting
// price at the instant of the fill.
type Trade struct {
	TradeID       string
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	AggressorSide Side
	MakerOrderID  string
	TakerOrderID  string
	Timestamp     string
	MakerFee      decimal.Decimal
	TakerFee      decimal.Decimal
}

// Level is an aggregated L2 price level: a price and the summed remaining
// quantity of every order resting at it.
type Level struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// BBO is the best bid and offer, with their aggregate resting quantity.
type BBO struct {
	Symbol string
	Bid    *Level
	Ask    *Level
}
