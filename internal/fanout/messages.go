package fanout

import (
	"encoding/json"

	"matchcore/internal/common"
	"matchcore/internal/money"
)

type levelFrame struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

func toLevelFrames(levels []common.Level) []levelFrame {
	out := make([]levelFrame, len(levels))
	for i, l := range levels {
		out[i] = levelFrame{Price: money.QuantizeString(l.Price), Quantity: money.QuantizeString(l.Quantity)}
	}
	return out
}

type bookFrame struct {
	Type   string       `json:"type"`
	Symbol string       `json:"symbol"`
	Bids   []levelFrame `json:"bids"`
	Asks   []levelFrame `json:"asks"`
}

type tradeFrame struct {
	TradeID       string `json:"trade_id"`
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Timestamp     string `json:"timestamp"`
}

func sideName(s common.Side) string {
	if s == common.Sell {
		return "sell"
	}
	return "buy"
}

func toTradeFrames(trades []common.Trade) []tradeFrame {
	out := make([]tradeFrame, len(trades))
	for i, t := range trades {
		out[i] = tradeFrame{
			TradeID:       t.TradeID,
			Symbol:        t.Symbol,
			Price:         money.QuantizeString(t.Price),
			Quantity:      money.QuantizeString(t.Quantity),
			AggressorSide: sideName(t.AggressorSide),
			MakerOrderID:  t.MakerOrderID,
			TakerOrderID:  t.TakerOrderID,
			Timestamp:     t.Timestamp,
		}
	}
	return out
}

type tradesFrame struct {
	Type   string       `json:"type"`
	Symbol string       `json:"symbol"`
	Trades []tradeFrame `json:"trades"`
}

type heartbeatFrame struct {
	Type string `json:"type"`
	TS   string `json:"ts"`
}

func encodeMarketData(symbol string, bids, asks []common.Level) []byte {
	b, _ := json.Marshal(bookFrame{Type: "book", Symbol: symbol, Bids: toLevelFrames(bids), Asks: toLevelFrames(asks)})
	return b
}

func encodeTrades(symbol string, trades []common.Trade) []byte {
	b, _ := json.Marshal(tradesFrame{Type: "trades", Symbol: symbol, Trades: toTradeFrames(trades)})
	return b
}

func encodeHeartbeat(ts string) []byte {
	b, _ := json.Marshal(heartbeatFrame{Type: "heartbeat", TS: ts})
	return b
}
