/*

This file resolves the historical reference price of a pool at a point in
time, used as the impermanent loss baseline. Absent data is a normal
outcome: young subgraph deployments have no hour data at the position's
creation block, and the caller degrades IL to zero.

*/

package datafetcher

import (
	"context"
	"fmt"
	"strconv"
)

const historicalPriceQuery = `
query($pool: String!, $ts: Int!) {
	poolHourDatas(
		first: 1,
		orderBy: periodStartUnix,
		orderDirection: desc,
		where: {pool: $pool, periodStartUnix_lte: $ts}
	) {
		periodStartUnix
		token0Price
	}
}`

type historicalPriceData struct {
	PoolHourDatas []struct {
		PeriodStartUnix int64  `json:"periodStartUnix"`
		Token0Price     string `json:"token0Price"`
	} `json:"poolHourDatas"`
}

// GetHistoricalPrice returns the pool's token0 price at the last hourly
// checkpoint at or before the given unix timestamp. Returns (0, false, nil)
// when the subgraph has no data point that far back.
func (c *SubgraphClient) GetHistoricalPrice(ctx context.Context, poolAddress string, timestamp int64) (float64, bool, error) {
	var data historicalPriceData
	err := c.execute(ctx, historicalPriceQuery, map[string]any{
		"pool": poolAddress,
		"ts":   timestamp,
	}, &data)
	if err != nil {
		return 0, false, err
	}

	if len(data.PoolHourDatas) == 0 {
		fetchLogger.Debug().
			Str("pool", poolAddress).
			Int64("timestamp", timestamp).
			Msg("No historical price data at requested time")
		return 0, false, nil
	}

	price, err := strconv.ParseFloat(data.PoolHourDatas[0].Token0Price, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid historical price %q: %w", data.PoolHourDatas[0].Token0Price, err)
	}

	return price, true, nil
}
