// Package api is the external-contract layer wrapping *engine.Engine:
// plain request/response structs with string-encoded decimals at the
// boundary, the same shape spec.md §6 describes for the engine's six
// operations. It holds no transport code (no HTTP, no wire framing) —
// spec.md §1 scopes that out — only the decimal<->string marshaling and
// order-type parsing a caller on the other side of some future transport
// would need.
package api

import (
	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/money"

	"github.com/shopspring/decimal"
)

// SubmitRequest is the wire-shaped counterpart of engine.SubmitRequest:
// every price is a decimal string, and side/type are their lowercase
// literal names (spec.md §3).
type SubmitRequest struct {
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	Type            string  `json:"type"`
	Quantity        string  `json:"quantity"`
	Price           *string `json:"price,omitempty"`
	StopPrice       *string `json:"stop_price,omitempty"`
	TakeProfitPrice *string `json:"take_profit_price,omitempty"`
	ClientOrderID   string  `json:"client_order_id,omitempty"`
	UserID          string  `json:"user_id,omitempty"`
}

func parseSide(s string) common.Side {
	if s == "sell" {
		return common.Sell
	}
	return common.Buy
}

func parseType(s string) common.OrderType {
	switch s {
	case "limit":
		return common.Limit
	case "ioc":
		return common.IOC
	case "fok":
		return common.FOK
	case "stop":
		return common.Stop
	case "stop_limit":
		return common.StopLimit
	case "take_profit":
		return common.TakeProfit
	default:
		return common.Market
	}
}

func parseDecPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// toEngineRequest converts the wire request into engine.SubmitRequest,
// surfacing any decimal parse failure as an error rather than silently
// defaulting to zero.
func toEngineRequest(req SubmitRequest) (engine.SubmitRequest, error) {
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return engine.SubmitRequest{}, err
	}
	price, err := parseDecPtr(req.Price)
	if err != nil {
		return engine.SubmitRequest{}, err
	}
	stopPrice, err := parseDecPtr(req.StopPrice)
	if err != nil {
		return engine.SubmitRequest{}, err
	}
	takeProfitPrice, err := parseDecPtr(req.TakeProfitPrice)
	if err != nil {
		return engine.SubmitRequest{}, err
	}

	return engine.SubmitRequest{
		Symbol:          req.Symbol,
		Side:            parseSide(req.Side),
		Type:            parseType(req.Type),
		Quantity:        qty,
		Price:           price,
		StopPrice:       stopPrice,
		TakeProfitPrice: takeProfitPrice,
		ClientOrderID:   req.ClientOrderID,
		UserID:          req.UserID,
	}, nil
}

// OrderResponse is the wire-shaped rendering of a common.Order.
type OrderResponse struct {
	OrderID         string  `json:"order_id"`
	Symbol          string  `json:"symbol"`
	Side            string  `json:"side"`
	Type            string  `json:"type"`
	Quantity        string  `json:"quantity"`
	Remaining       string  `json:"remaining"`
	Price           *string `json:"price,omitempty"`
	StopPrice       *string `json:"stop_price,omitempty"`
	TakeProfitPrice *string `json:"take_profit_price,omitempty"`
	Timestamp       string  `json:"timestamp"`
	ClientOrderID   string  `json:"client_order_id,omitempty"`
	UserID          string  `json:"user_id,omitempty"`
}

func decPtrStr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money.QuantizeString(*d)
	return &s
}

func toOrderResponse(o *common.Order) OrderResponse {
	return OrderResponse{
		OrderID:         o.OrderID,
		Symbol:          o.Symbol,
		Side:            o.Side.String(),
		Type:            o.Type.String(),
		Quantity:        money.QuantizeString(o.Quantity),
		Remaining:       money.QuantizeString(o.Remaining),
		Price:           decPtrStr(o.Price),
		StopPrice:       decPtrStr(o.StopPrice),
		TakeProfitPrice: decPtrStr(o.TakeProfitPrice),
		Timestamp:       o.Timestamp,
		ClientOrderID:   o.ClientOrderID,
		UserID:          o.UserID,
	}
}

// TradeResponse is the wire-shaped rendering of a common.Trade.
type TradeResponse struct {
	TradeID       string `json:"trade_id"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Timestamp     string `json:"timestamp"`
	MakerFee      string `json:"maker_fee"`
	TakerFee      string `json:"taker_fee"`
}

func toTradeResponse(t common.Trade) TradeResponse {
	return TradeResponse{
		TradeID:       t.TradeID,
		Symbol:        t.Symbol,
		Price:         money.QuantizeString(t.Price),
		Quantity:      money.QuantizeString(t.Quantity),
		AggressorSide: t.AggressorSide.String(),
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
		Timestamp:     t.Timestamp,
		MakerFee:      money.QuantizeString(t.MakerFee),
		TakerFee:      money.QuantizeString(t.TakerFee),
	}
}

func toTradeResponses(trades []common.Trade) []TradeResponse {
	out := make([]TradeResponse, len(trades))
	for i, t := range trades {
		out[i] = toTradeResponse(t)
	}
	return out
}

// SubmitResponse pairs the accepted order with whatever trades it
// printed immediately (empty if it rested or was discarded untouched).
// Status is always "accepted" on well-formed input (spec.md §6), including
// an FOK reject: the caller distinguishes that case by FilledQuantity
// being zero and Trades being empty, not by an error or a different status.
type SubmitResponse struct {
	Order             OrderResponse   `json:"order"`
	Status            string          `json:"status"`
	FilledQuantity    string          `json:"filled_quantity"`
	RemainingQuantity string          `json:"remaining_quantity"`
	Trades            []TradeResponse `json:"trades"`
}

// API wraps an *engine.Engine with the wire-shaped request/response
// contract. It adds no behavior of its own beyond marshaling: every
// decision (matching, fees, triggers, persistence) stays in engine.
type API struct {
	eng *engine.Engine
}

// New wraps eng.
func New(eng *engine.Engine) *API {
	return &API{eng: eng}
}

// Submit parses req, submits it to the engine, and renders the result.
func (a *API) Submit(req SubmitRequest) (SubmitResponse, error) {
	engReq, err := toEngineRequest(req)
	if err != nil {
		return SubmitResponse{}, err
	}
	order, trades, err := a.eng.Submit(engReq)
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{
		Order:             toOrderResponse(order),
		Status:            "accepted",
		FilledQuantity:    money.QuantizeString(order.Filled()),
		RemainingQuantity: money.QuantizeString(order.Remaining),
		Trades:            toTradeResponses(trades),
	}, nil
}

// CancelResponse renders the cancelled order. Status is always "cancelled";
// a not-found cancel surfaces engine.ErrOrderNotFound instead (spec.md §6).
type CancelResponse struct {
	Order  OrderResponse `json:"order"`
	Status string        `json:"status"`
}

// Cancel cancels orderID and renders the cancelled order.
func (a *API) Cancel(orderID string) (CancelResponse, error) {
	order, err := a.eng.Cancel(orderID)
	if err != nil {
		return CancelResponse{}, err
	}
	return CancelResponse{Order: toOrderResponse(order), Status: "cancelled"}, nil
}

// LevelResponse is one aggregated L2 price level.
type LevelResponse struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

func toLevelResponses(levels []common.Level) []LevelResponse {
	out := make([]LevelResponse, len(levels))
	for i, l := range levels {
		out[i] = LevelResponse{Price: money.QuantizeString(l.Price), Quantity: money.QuantizeString(l.Quantity)}
	}
	return out
}

// BookSnapshotResponse renders engine.BookSnapshotResult.
type BookSnapshotResponse struct {
	Symbol    string          `json:"symbol"`
	Bids      []LevelResponse `json:"bids"`
	Asks      []LevelResponse `json:"asks"`
	Timestamp string          `json:"timestamp"`
}

// BookSnapshot returns up to depth aggregated levels per side for symbol.
func (a *API) BookSnapshot(symbol string, depth int) BookSnapshotResponse {
	r := a.eng.BookSnapshot(symbol, depth)
	return BookSnapshotResponse{
		Symbol:    r.Symbol,
		Bids:      toLevelResponses(r.Bids),
		Asks:      toLevelResponses(r.Asks),
		Timestamp: r.Timestamp,
	}
}

// BBOResponse renders engine.BBOResult.
type BBOResponse struct {
	Symbol    string         `json:"symbol"`
	Bid       *LevelResponse `json:"bid,omitempty"`
	Ask       *LevelResponse `json:"ask,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// BBO returns the current best bid/offer for symbol.
func (a *API) BBO(symbol string) BBOResponse {
	r := a.eng.BBO(symbol)
	out := BBOResponse{Symbol: r.Symbol, Timestamp: r.Timestamp}
	if r.Bid != nil {
		lr := LevelResponse{Price: money.QuantizeString(r.Bid.Price), Quantity: money.QuantizeString(r.Bid.Quantity)}
		out.Bid = &lr
	}
	if r.Ask != nil {
		lr := LevelResponse{Price: money.QuantizeString(r.Ask.Price), Quantity: money.QuantizeString(r.Ask.Quantity)}
		out.Ask = &lr
	}
	return out
}

// RecentTradesResponse renders engine.RecentTradesResult.
type RecentTradesResponse struct {
	Symbol string          `json:"symbol"`
	Trades []TradeResponse `json:"trades"`
}

// RecentTrades returns the retained recent trades for symbol.
func (a *API) RecentTrades(symbol string) RecentTradesResponse {
	r := a.eng.RecentTrades(symbol)
	return RecentTradesResponse{Symbol: r.Symbol, Trades: toTradeResponses(r.Trades)}
}

// PollResponse renders engine.PollResult.
type PollResponse struct {
	Book          BookSnapshotResponse `json:"book"`
	Trades        []TradeResponse      `json:"trades"`
	LatestTradeID string               `json:"latest_trade_id,omitempty"`
}

// PollUpdates returns a depth-bounded book snapshot plus every trade
// strictly after sinceTradeID, for symbol.
func (a *API) PollUpdates(symbol string, depth int, sinceTradeID string) PollResponse {
	r := a.eng.PollUpdates(symbol, depth, sinceTradeID)
	return PollResponse{
		Book: BookSnapshotResponse{
			Symbol:    r.Book.Symbol,
			Bids:      toLevelResponses(r.Book.Bids),
			Asks:      toLevelResponses(r.Book.Asks),
			Timestamp: r.Book.Timestamp,
		},
		Trades:        toTradeResponses(r.Trades),
		LatestTradeID: r.LatestTradeID,
	}
}
