// Package persistence implements the crash-consistent whole-file snapshot
// contract of spec.md §4.5: write to state.json.tmp under the configured
// directory, then rename onto state.json. A crash mid-write always leaves
// either the previously committed file or an orphaned tmp sibling; the
// loader only ever opens the committed name.
//
// None of the example repos in the retrieval pack implement bespoke
// local-file snapshot persistence (their persistence is all SQL/ORM
// (gorm, sqlx) or managed document stores (firestore), a poor fit for "one
// small JSON file, atomically replaced") so this component is built on
// encoding/json and os — see DESIGN.md for the full justification.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/money"
)

const stateFileName = "state.json"

// Store is a directory-backed Persister (engine.Persister).
type Store struct {
	dir string
	log zerolog.Logger
}

// New returns a Store rooted at dir. dir is created if absent.
func New(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, log: logger}, nil
}

func (s *Store) statePath() string { return filepath.Join(s.dir, stateFileName) }
func (s *Store) tmpPath() string   { return filepath.Join(s.dir, stateFileName+".tmp") }

// wireOrder mirrors spec.md §6's persisted-state order record: every
// decimal is a string literal, never a float, to preserve precision.
type wireOrder struct {
	OrderID         string  `json:"order_id"`
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

type wireTrade struct {
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

type wireState struct {
	OpenOrders   map[string][]wireOrder `json:"open_orders"`
	RecentTrades map[string][]wireTrade `json:"recent_trades"`
}

func sideName(s common.Side) string {
	if s == common.Sell {
		return "sell"
	}
	return "buy"
}

func parseSide(s string) common.Side {
	if s == "sell" {
		return common.Sell
	}
	return common.Buy
}

func typeName(t common.OrderType) string { return t.String() }

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

func decStr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDec(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

func toWireOrder(o common.Order) wireOrder {
	return wireOrder{
		OrderID:         o.OrderID,
		Side:            sideName(o.Side),
		Type:            typeName(o.Type),
		Quantity:        o.Quantity.String(),
		Remaining:       o.Remaining.String(),
		Price:           decStr(o.Price),
		StopPrice:       decStr(o.StopPrice),
		TakeProfitPrice: decStr(o.TakeProfitPrice),
		Timestamp:       o.Timestamp,
		ClientOrderID:   o.ClientOrderID,
		UserID:          o.UserID,
	}
}

func fromWireOrder(symbol string, w wireOrder) common.Order {
	return common.Order{
		OrderID:         w.OrderID,
		Symbol:          symbol,
		Side:            parseSide(w.Side),
		Type:            parseType(w.Type),
		Quantity:        mustDec(w.Quantity),
		Remaining:       mustDec(w.Remaining),
		Price:           parseDec(w.Price),
		StopPrice:       parseDec(w.StopPrice),
		TakeProfitPrice: parseDec(w.TakeProfitPrice),
		Timestamp:       w.Timestamp,
		ClientOrderID:   w.ClientOrderID,
		UserID:          w.UserID,
	}
}

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toWireTrade(t common.Trade) wireTrade {
	return wireTrade{
		TradeID:       t.TradeID,
		Symbol:        t.Symbol,
		Price:         money.QuantizeString(t.Price),
		Quantity:      money.QuantizeString(t.Quantity),
		AggressorSide: sideName(t.AggressorSide),
		MakerOrderID:  t.MakerOrderID,
		TakerOrderID:  t.TakerOrderID,
		Timestamp:     t.Timestamp,
		MakerFee:      money.QuantizeString(t.MakerFee),
		TakerFee:      money.QuantizeString(t.TakerFee),
	}
}

func fromWireTrade(symbol string, w wireTrade) common.Trade {
	return common.Trade{
		TradeID:       w.TradeID,
		Symbol:        symbol,
		Price:         mustDec(w.Price),
		Quantity:      mustDec(w.Quantity),
		AggressorSide: parseSide(w.AggressorSide),
		MakerOrderID:  w.MakerOrderID,
		TakerOrderID:  w.TakerOrderID,
		Timestamp:     w.Timestamp,
		MakerFee:      mustDec(w.MakerFee),
		TakerFee:      mustDec(w.TakerFee),
	}
}

// Save atomically replaces state.json with snapshot: it writes the full
// encoded state to state.json.tmp, fsyncs it, then renames it onto
// state.json. The rename is the only step that can be observed
// half-done, and POSIX rename is atomic, so a crash mid-write never
// corrupts the committed file.
func (s *Store) Save(ctx context.Context, snapshot engine.Snapshot) error {
	wire := wireState{
		OpenOrders:   make(map[string][]wireOrder, len(snapshot.OpenOrders)),
		RecentTrades: make(map[string][]wireTrade, len(snapshot.RecentTrades)),
	}
	for symbol, orders := range snapshot.OpenOrders {
		out := make([]wireOrder, len(orders))
		for i, o := range orders {
			out[i] = toWireOrder(o)
		}
		wire.OpenOrders[symbol] = out
	}
	for symbol, trades := range snapshot.RecentTrades {
		out := make([]wireTrade, len(trades))
		for i, t := range trades {
			out[i] = toWireTrade(t)
		}
		wire.RecentTrades[symbol] = out
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return err
	}

	tmpName := s.tmpPath()
	f, err := os.OpenFile(tmpName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpName)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpName)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.statePath()); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Load reads the committed state.json. A missing file is a fresh
// install and returns an empty snapshot, not an error. Corrupt JSON is
// treated as empty initial state (spec.md §7's documented choice) rather
// than refusing startup, and is logged loudly so an operator notices.
func (s *Store) Load(ctx context.Context) (engine.Snapshot, error) {
	empty := engine.Snapshot{
		OpenOrders:   make(map[string][]common.Order),
		RecentTrades: make(map[string][]common.Trade),
	}

	data, err := os.ReadFile(s.statePath())
	if errors.Is(err, os.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, err
	}

	var wire wireState
	if err := json.Unmarshal(data, &wire); err != nil {
		s.log.Error().Err(err).Msg("persistence: state.json is corrupt, starting from empty state")
		return empty, nil
	}

	for symbol, orders := range wire.OpenOrders {
		out := make([]common.Order, len(orders))
		for i, w := range orders {
			out[i] = fromWireOrder(symbol, w)
		}
		empty.OpenOrders[symbol] = out
	}
	for symbol, trades := range wire.RecentTrades {
		out := make([]common.Trade, len(trades))
		for i, w := range trades {
			out[i] = fromWireTrade(symbol, w)
		}
		empty.RecentTrades[symbol] = out
	}
	return empty, nil
}
