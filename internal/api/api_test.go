package api

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/engine"
)

func strPtr(s string) *string { return &s }

func testAPI() *API {
	return New(engine.New(engine.Config{}, nil, nil, zerolog.Nop()))
}

func TestSubmit_ParsesDecimalStringsAndReturnsOrder(t *testing.T) {
	a := testAPI()

	resp, err := a.Submit(SubmitRequest{
		Symbol: "BTC-USD", Side: "sell", Type: "limit",
		Quantity: "2", Price: strPtr("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", resp.Order.Symbol)
	assert.Equal(t, "sell", resp.Order.Side)
	assert.Equal(t, "limit", resp.Order.Type)
	assert.Equal(t, "2.00000000", resp.Order.Quantity)
	require.NotNil(t, resp.Order.Price)
	assert.Equal(t, "100.00000000", *resp.Order.Price)
	assert.Empty(t, resp.Trades)
}

func TestSubmit_RejectsMalformedDecimal(t *testing.T) {
	a := testAPI()
	_, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "buy", Type: "market", Quantity: "not-a-number"})
	assert.Error(t, err)
}

func TestSubmit_ProducesTradeResponses(t *testing.T) {
	a := testAPI()
	_, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "sell", Type: "limit", Quantity: "1", Price: strPtr("100")})
	require.NoError(t, err)

	resp, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "buy", Type: "market", Quantity: "1"})
	require.NoError(t, err)
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "100.00000000", resp.Trades[0].Price)
	assert.Equal(t, "buy", resp.Trades[0].AggressorSide)
}

func TestCancel_NotFoundSurfacesError(t *testing.T) {
	a := testAPI()
	_, err := a.Cancel("missing")
	assert.ErrorIs(t, err, engine.ErrOrderNotFound)
}

func TestCancel_RendersCancelledOrder(t *testing.T) {
	a := testAPI()
	submitted, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "buy", Type: "limit", Quantity: "1", Price: strPtr("100")})
	require.NoError(t, err)

	resp, err := a.Cancel(submitted.Order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, submitted.Order.OrderID, resp.Order.OrderID)
}

func TestBookSnapshot_BidsDescendingAsksAscending(t *testing.T) {
	a := testAPI()
	_, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "buy", Type: "limit", Quantity: "1", Price: strPtr("99")})
	require.NoError(t, err)
	_, err = a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "buy", Type: "limit", Quantity: "1", Price: strPtr("100")})
	require.NoError(t, err)

	snap := a.BookSnapshot("BTC-USD", 10)
	require.Len(t, snap.Bids, 2)
	assert.Equal(t, "100.00000000", snap.Bids[0].Price)
	assert.Equal(t, "99.00000000", snap.Bids[1].Price)
}

func TestBBO_ReflectsRestingLevels(t *testing.T) {
	a := testAPI()
	_, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "sell", Type: "limit", Quantity: "1", Price: strPtr("101")})
	require.NoError(t, err)

	bbo := a.BBO("BTC-USD")
	require.NotNil(t, bbo.Ask)
	assert.Equal(t, "101.00000000", bbo.Ask.Price)
	assert.Nil(t, bbo.Bid)
}

func TestPollUpdates_ReturnsLatestTradeID(t *testing.T) {
	a := testAPI()
	_, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "sell", Type: "limit", Quantity: "1", Price: strPtr("100")})
	require.NoError(t, err)
	resp, err := a.Submit(SubmitRequest{Symbol: "BTC-USD", Side: "buy", Type: "market", Quantity: "1"})
	require.NoError(t, err)

	poll := a.PollUpdates("BTC-USD", 10, "")
	require.Len(t, poll.Trades, 1)
	assert.Equal(t, resp.Trades[0].TradeID, poll.LatestTradeID)
}
