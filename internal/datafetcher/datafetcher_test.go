package datafetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const positionsPayload = `{
	"data": {
		"bundle": {"ethPriceUSD": "3200"},
		"positions": [
			{
				"id": "812345",
				"transaction": {"timestamp": "1700000000"},
				"pool": {
					"id": "0xpool",
					"token0": {"symbol": "USDC", "derivedETH": "0.0003125"},
					"token1": {"symbol": "WETH", "derivedETH": "1"},
					"token0Price": "19.2"
				},
				"tickLower": {"tickIdx": "-887220", "price0": "18.5"},
				"tickUpper": {"tickIdx": "887220", "price0": "15.5"},
				"depositedToken0": "1000",
				"depositedToken1": "0.5",
				"uncollectedFeesToken0": "12.5",
				"uncollectedFeesToken1": "0.004"
			},
			{
				"id": "not-a-number",
				"transaction": {"timestamp": "1700000000"},
				"pool": {
					"id": "0xother",
					"token0": {"symbol": "A", "derivedETH": "0"},
					"token1": {"symbol": "B", "derivedETH": "0"},
					"token0Price": "1"
				},
				"tickLower": {"tickIdx": "0", "price0": "1"},
				"tickUpper": {"tickIdx": "10", "price0": "2"},
				"depositedToken0": "0",
				"depositedToken1": "0",
				"uncollectedFeesToken0": "0",
				"uncollectedFeesToken1": "0"
			}
		]
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *SubgraphClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewSubgraphClient(server.URL)
	require.NoError(t, err)
	return client
}

func TestGetPositions_MapsRecords(t *testing.T) {
	var gotOwner string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotOwner, _ = req.Variables["owner"].(string)
		w.Write([]byte(positionsPayload))
	})

	positions, err := client.GetPositions(context.Background(), "0xABCDEF")

	require.NoError(t, err)
	// Wallet address is lowercased for the subgraph.
	assert.Equal(t, "0xabcdef", gotOwner)

	// The malformed second record is skipped, not fatal.
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, int64(812345), pos.TokenID)
	assert.Equal(t, "0xpool", pos.PoolAddress)
	assert.Equal(t, "USDC", pos.Token0Symbol)
	assert.Equal(t, "WETH", pos.Token1Symbol)
	assert.Equal(t, int32(-887220), pos.TickLower)
	// Bounds are delivered as-is; normalization happens at ingestion.
	assert.Equal(t, 18.5, pos.PriceLower)
	assert.Equal(t, 15.5, pos.PriceUpper)
	assert.Equal(t, 19.2, pos.CurrentPrice)
	assert.InDelta(t, 1.0, pos.Token0PriceUSD, 1e-9)
	assert.InDelta(t, 3200.0, pos.Token1PriceUSD, 1e-9)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), pos.CreatedAt)
}

func TestGetPositions_EmptyResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"bundle": {"ethPriceUSD": "3200"}, "positions": []}}`))
	})

	positions, err := client.GetPositions(context.Background(), "0xabc")

	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestGetPositions_GraphQLErrorIsNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"errors": [{"message": "bad query"}]}`))
	})

	_, err := client.GetPositions(context.Background(), "0xabc")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubgraphQuery)
	assert.Contains(t, err.Error(), "bad query")
	assert.Equal(t, 1, calls)
}

func TestGetPositions_RetriesServerErrors(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": {"bundle": {"ethPriceUSD": "1"}, "positions": []}}`))
	})

	_, err := client.GetPositions(context.Background(), "0xabc")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGetHistoricalPrice_Found(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"poolHourDatas": [{"periodStartUnix": 1699999200, "token0Price": "17.25"}]}}`))
	})

	price, ok, err := client.GetHistoricalPrice(context.Background(), "0xpool", 1700000000)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 17.25, price)
}

func TestGetHistoricalPrice_AbsentIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"poolHourDatas": []}}`))
	})

	price, ok, err := client.GetHistoricalPrice(context.Background(), "0xpool", 1500000000)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, price)
}

func TestNewSubgraphClient_RequiresURL(t *testing.T) {
	_, err := NewSubgraphClient("")
	assert.Error(t, err)
}
