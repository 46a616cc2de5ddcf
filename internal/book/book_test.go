package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/common"
	"matchcore/internal/money"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func limitOrder(id string, side common.Side, price, qty string) *common.Order {
	return &common.Order{
		OrderID:   id,
		Symbol:    "BTC-USD",
		Side:      side,
		Type:      common.Limit,
		Quantity:  dec(qty),
		Remaining: dec(qty),
		Price:     decPtr(price),
		Timestamp: "2026-07-31T00:00:00.000000000Z",
	}
}

func marketOrder(id string, side common.Side, qty string) *common.Order {
	return &common.Order{
		OrderID:   id,
		Symbol:    "BTC-USD",
		Side:      side,
		Type:      common.Market,
		Quantity:  dec(qty),
		Remaining: dec(qty),
		Timestamp: "2026-07-31T00:00:00.000000000Z",
	}
}

func TestAddLimit_RestsAtLevel(t *testing.T) {
	b := New("ETH-USD")

	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "2000", "5")))

	bids, asks := b.BestPrices()
	assert.Nil(t, bids)
	require.NotNil(t, asks)
	assert.True(t, asks.Equal(dec("2000")))
}

func TestAddLimit_DuplicateIDRejected(t *testing.T) {
	b := New("ETH-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "2000", "5")))
	err := b.AddLimit(limitOrder("a1", common.Sell, "2000", "5"))
	assert.ErrorIs(t, err, ErrOrderExists)
}

// Scenario 1 (spec.md §8): seed sell limit 5 @ 2000 on ETH-USD, submit buy
// market 2. One trade at price=2000 qty=2; residual ask level quantity=3.
func TestMatch_MarketBuyAgainstSingleLevel(t *testing.T) {
	b := New("ETH-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "2000", "5")))

	taker := marketOrder("t1", common.Buy, "2")
	fills := b.Match(taker)

	require.Len(t, fills, 1)
	assert.True(t, fills[0].Price.Equal(dec("2000")))
	assert.True(t, fills[0].Quantity.Equal(dec("2")))
	assert.True(t, taker.Remaining.IsZero())

	_, ask := b.BestPrices()
	require.NotNil(t, ask)
	assert.True(t, ask.Equal(dec("2000")))

	_, asks := b.SnapshotL2(10)
	require.Len(t, asks, 1)
	assert.Equal(t, "3.00000000", money.QuantizeString(asks[0].Quantity))
}

// Scenario 2 (spec.md §8): a1 sell 2 @ 100, a2 sell 3 @ 101. Buy market 2.5
// walks both levels: (100, 2) then (101, 0.5); level at 100 is fully
// drained and removed, level at 101 holds 2.5.
func TestMatch_SweepsMultipleLevels(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "100", "2")))
	require.NoError(t, b.AddLimit(limitOrder("a2", common.Sell, "101", "3")))

	taker := marketOrder("t1", common.Buy, "2.5")
	fills := b.Match(taker)

	require.Len(t, fills, 2)
	assert.True(t, fills[0].Price.Equal(dec("100")))
	assert.True(t, fills[0].Quantity.Equal(dec("2")))
	assert.True(t, fills[1].Price.Equal(dec("101")))
	assert.True(t, fills[1].Quantity.Equal(dec("0.5")))
	assert.True(t, taker.Remaining.IsZero())

	_, asks := b.SnapshotL2(10)
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Price.Equal(dec("101")))
	assert.Equal(t, "2.50000000", money.QuantizeString(asks[0].Quantity))
}

// Scenario 3: matched buy/sell limit orders at the same price fully
// consume each other and leave an empty book.
func TestMatch_LimitCrossFullyConsumesBoth(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("buy1", common.Buy, "30000", "1")))

	taker := limitOrder("sell1", common.Sell, "30000", "1")
	fills := b.Match(taker)

	require.Len(t, fills, 1)
	assert.True(t, fills[0].Price.Equal(dec("30000")))
	assert.True(t, fills[0].Quantity.Equal(dec("1")))
	assert.True(t, taker.Remaining.IsZero())

	bid, ask := b.BestPrices()
	assert.Nil(t, bid)
	assert.Nil(t, ask)
}

// Scenario 4: sell limit 1 @ 100 resting; an FOK buy for qty 2 @ 100
// cannot be filled completely and must be rejected pre-match, leaving the
// book untouched.
func TestWouldFillCompletely_RejectsWhenLiquidityInsufficient(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "100", "1")))

	fok := &common.Order{
		OrderID:   "t1",
		Symbol:    "BTC-USD",
		Side:      common.Buy,
		Type:      common.FOK,
		Quantity:  dec("2"),
		Remaining: dec("2"),
		Price:     decPtr("100"),
	}

	assert.False(t, b.WouldFillCompletely(fok))

	_, asks := b.SnapshotL2(10)
	require.Len(t, asks, 1)
	assert.Equal(t, "1.00000000", money.QuantizeString(asks[0].Quantity))
}

func TestWouldFillCompletely_AcceptsExactLiquidity(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "100", "1")))
	require.NoError(t, b.AddLimit(limitOrder("a2", common.Sell, "100", "1")))

	fok := &common.Order{
		OrderID:   "t1",
		Symbol:    "BTC-USD",
		Side:      common.Buy,
		Type:      common.FOK,
		Quantity:  dec("2"),
		Remaining: dec("2"),
		Price:     decPtr("100"),
	}

	assert.True(t, b.WouldFillCompletely(fok))
}

func TestMatch_EmptyBookDiscardsMarketOrder(t *testing.T) {
	b := New("BTC-USD")
	taker := marketOrder("t1", common.Buy, "5")
	fills := b.Match(taker)

	assert.Empty(t, fills)
	assert.True(t, taker.Remaining.Equal(dec("5")))
}

func TestRemoveOrder_DrainsLevelAndIndex(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "100", "1")))

	removed := b.RemoveOrder("a1")
	require.NotNil(t, removed)
	assert.Equal(t, "a1", removed.OrderID)

	_, ask := b.BestPrices()
	assert.Nil(t, ask)
	assert.Nil(t, b.RemoveOrder("a1")) // second remove: not found
}

func TestRemoveOrder_PreservesFIFOOrderOfSiblings(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "100", "1")))
	require.NoError(t, b.AddLimit(limitOrder("a2", common.Sell, "100", "2")))
	require.NoError(t, b.AddLimit(limitOrder("a3", common.Sell, "100", "3")))

	b.RemoveOrder("a2")

	taker := marketOrder("t1", common.Buy, "1")
	fills := b.Match(taker)
	require.Len(t, fills, 1)
	assert.Equal(t, "a1", fills[0].Maker.OrderID) // a1 still first in FIFO
}

func TestSnapshotL2_OrdersBestFirstPerSide(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("b1", common.Buy, "99", "1")))
	require.NoError(t, b.AddLimit(limitOrder("b2", common.Buy, "100", "1")))
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "102", "1")))
	require.NoError(t, b.AddLimit(limitOrder("a2", common.Sell, "101", "1")))

	bids, asks := b.SnapshotL2(10)
	require.Len(t, bids, 2)
	require.Len(t, asks, 2)
	assert.True(t, bids[0].Price.Equal(dec("100")), "bids best-first (descending)")
	assert.True(t, bids[1].Price.Equal(dec("99")))
	assert.True(t, asks[0].Price.Equal(dec("101")), "asks best-first (ascending)")
	assert.True(t, asks[1].Price.Equal(dec("102")))
}

func TestSnapshotL2_RespectsDepth(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("b1", common.Buy, "99", "1")))
	require.NoError(t, b.AddLimit(limitOrder("b2", common.Buy, "100", "1")))
	require.NoError(t, b.AddLimit(limitOrder("b3", common.Buy, "98", "1")))

	bids, _ := b.SnapshotL2(2)
	assert.Len(t, bids, 2)
}

func TestBBO_AggregatesQuantityAtBestLevel(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("b1", common.Buy, "100", "1")))
	require.NoError(t, b.AddLimit(limitOrder("b2", common.Buy, "100", "2")))

	bbo := b.BBO()
	require.NotNil(t, bbo.Bid)
	assert.Equal(t, "3.00000000", money.QuantizeString(bbo.Bid.Quantity))
	assert.Nil(t, bbo.Ask)
}

func TestMatch_NeverCrossesBookAfterCompletion(t *testing.T) {
	b := New("BTC-USD")
	require.NoError(t, b.AddLimit(limitOrder("a1", common.Sell, "100", "5")))
	require.NoError(t, b.AddLimit(limitOrder("b1", common.Buy, "99", "5")))

	taker := limitOrder("t1", common.Buy, "100", "3")
	b.Match(taker)
	if taker.Remaining.IsPositive() {
		require.NoError(t, b.AddLimit(taker))
	}

	bid, ask := b.BestPrices()
	if bid != nil && ask != nil {
		assert.True(t, bid.LessThan(*ask), "book must never be crossed")
	}
}
