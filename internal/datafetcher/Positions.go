/*

This file fetches the open LP positions of a wallet from the subgraph and
maps the raw records into ExternalPosition values. Individual malformed
records are skipped with a warning; one bad position must not hide the rest
of the wallet.

*/

package datafetcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lpwatch/lpwatch/internal/types"
)

const positionsQuery = `
query($owner: String!) {
	bundle(id: "1") {
		ethPriceUSD
	}
	positions(where: {owner: $owner, liquidity_gt: 0}) {
		id
		transaction { timestamp }
		pool {
			id
			token0 { symbol derivedETH }
			token1 { symbol derivedETH }
			token0Price
		}
		tickLower { tickIdx price0 }
		tickUpper { tickIdx price0 }
		depositedToken0
		depositedToken1
		uncollectedFeesToken0
		uncollectedFeesToken1
	}
}`

// Subgraph numeric scalars arrive as strings.
type subgraphToken struct {
	Symbol     string `json:"symbol"`
	DerivedETH string `json:"derivedETH"`
}

type subgraphTick struct {
	TickIdx string `json:"tickIdx"`
	Price0  string `json:"price0"`
}

type subgraphPosition struct {
	ID          string `json:"id"`
	Transaction struct {
		Timestamp string `json:"timestamp"`
	} `json:"transaction"`
	Pool struct {
		ID          string        `json:"id"`
		Token0      subgraphToken `json:"token0"`
		Token1      subgraphToken `json:"token1"`
		Token0Price string        `json:"token0Price"`
	} `json:"pool"`
	TickLower             subgraphTick `json:"tickLower"`
	TickUpper             subgraphTick `json:"tickUpper"`
	DepositedToken0       string       `json:"depositedToken0"`
	DepositedToken1       string       `json:"depositedToken1"`
	UncollectedFeesToken0 string       `json:"uncollectedFeesToken0"`
	UncollectedFeesToken1 string       `json:"uncollectedFeesToken1"`
}

type positionsData struct {
	Bundle *struct {
		EthPriceUSD string `json:"ethPriceUSD"`
	} `json:"bundle"`
	Positions []subgraphPosition `json:"positions"`
}

// GetPositions returns the wallet's open LP positions as reported by the
// subgraph.
func (c *SubgraphClient) GetPositions(ctx context.Context, walletAddress string) ([]types.ExternalPosition, error) {
	var data positionsData
	err := c.execute(ctx, positionsQuery, map[string]any{"owner": strings.ToLower(walletAddress)}, &data)
	if err != nil {
		return nil, err
	}

	ethPriceUSD := 0.0
	if data.Bundle != nil {
		ethPriceUSD, _ = strconv.ParseFloat(data.Bundle.EthPriceUSD, 64)
	}

	positions := make([]types.ExternalPosition, 0, len(data.Positions))
	for _, raw := range data.Positions {
		pos, err := convertPosition(raw, ethPriceUSD)
		if err != nil {
			fetchLogger.Warn().Err(err).Str("positionId", raw.ID).Msg("Skipping malformed position record")
			continue
		}
		positions = append(positions, pos)
	}

	fetchLogger.Info().
		Str("wallet", walletAddress).
		Int("positions", len(positions)).
		Msg("Subgraph position query complete")

	return positions, nil
}

func convertPosition(raw subgraphPosition, ethPriceUSD float64) (types.ExternalPosition, error) {
	tokenID, err := strconv.ParseInt(raw.ID, 10, 64)
	if err != nil {
		return types.ExternalPosition{}, fmt.Errorf("invalid position id %q: %w", raw.ID, err)
	}

	tickLower, err := strconv.ParseInt(raw.TickLower.TickIdx, 10, 32)
	if err != nil {
		return types.ExternalPosition{}, fmt.Errorf("invalid tickLower %q: %w", raw.TickLower.TickIdx, err)
	}
	tickUpper, err := strconv.ParseInt(raw.TickUpper.TickIdx, 10, 32)
	if err != nil {
		return types.ExternalPosition{}, fmt.Errorf("invalid tickUpper %q: %w", raw.TickUpper.TickIdx, err)
	}

	priceLower, err := strconv.ParseFloat(raw.TickLower.Price0, 64)
	if err != nil {
		return types.ExternalPosition{}, fmt.Errorf("invalid lower bound price %q: %w", raw.TickLower.Price0, err)
	}
	priceUpper, err := strconv.ParseFloat(raw.TickUpper.Price0, 64)
	if err != nil {
		return types.ExternalPosition{}, fmt.Errorf("invalid upper bound price %q: %w", raw.TickUpper.Price0, err)
	}

	currentPrice, err := strconv.ParseFloat(raw.Pool.Token0Price, 64)
	if err != nil {
		return types.ExternalPosition{}, fmt.Errorf("invalid pool price %q: %w", raw.Pool.Token0Price, err)
	}

	createdUnix, err := strconv.ParseInt(raw.Transaction.Timestamp, 10, 64)
	if err != nil {
		return types.ExternalPosition{}, fmt.Errorf("invalid creation timestamp %q: %w", raw.Transaction.Timestamp, err)
	}

	// Amounts are best-effort: a missing deposit or fee field degrades the
	// derived metrics to zero instead of dropping the whole position.
	deposited0, _ := strconv.ParseFloat(raw.DepositedToken0, 64)
	deposited1, _ := strconv.ParseFloat(raw.DepositedToken1, 64)
	fees0, _ := strconv.ParseFloat(raw.UncollectedFeesToken0, 64)
	fees1, _ := strconv.ParseFloat(raw.UncollectedFeesToken1, 64)
	derived0, _ := strconv.ParseFloat(raw.Pool.Token0.DerivedETH, 64)
	derived1, _ := strconv.ParseFloat(raw.Pool.Token1.DerivedETH, 64)

	return types.ExternalPosition{
		TokenID:          tokenID,
		PoolAddress:      raw.Pool.ID,
		Token0Symbol:     raw.Pool.Token0.Symbol,
		Token1Symbol:     raw.Pool.Token1.Symbol,
		TickLower:        int32(tickLower),
		TickUpper:        int32(tickUpper),
		PriceLower:       priceLower,
		PriceUpper:       priceUpper,
		CurrentPrice:     currentPrice,
		DepositedToken0:  deposited0,
		DepositedToken1:  deposited1,
		UncollectedFees0: fees0,
		UncollectedFees1: fees1,
		Token0PriceUSD:   derived0 * ethPriceUSD,
		Token1PriceUSD:   derived1 * ethPriceUSD,
		CreatedAt:        time.Unix(createdUnix, 0).UTC(),
	}, nil
}
