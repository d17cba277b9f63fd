/*

This file contains the externally observed position record as delivered by
the market data source. It is the agent's input shape; nothing in here is
persisted directly.

*/

package types

import "time"

// ExternalPosition is one LP position as currently reported by the market
// data source for a wallet. Bound prices are not guaranteed to be ordered;
// the reconciler normalizes them before building a snapshot.
type ExternalPosition struct {
	TokenID          int64   `json:"token_id"`
	PoolAddress      string  `json:"pool_address"`
	Token0Symbol     string  `json:"token0_symbol"`
	Token1Symbol     string  `json:"token1_symbol"`
	TickLower        int32   `json:"tick_lower"`
	TickUpper        int32   `json:"tick_upper"`
	PriceLower       float64 `json:"price_lower"`
	PriceUpper       float64 `json:"price_upper"`
	CurrentPrice     float64 `json:"current_price"`
	DepositedToken0  float64 `json:"deposited_token0"`
	DepositedToken1  float64 `json:"deposited_token1"`
	UncollectedFees0 float64 `json:"uncollected_fees0"`
	UncollectedFees1 float64 `json:"uncollected_fees1"`
	Token0PriceUSD   float64 `json:"token0_price_usd"`
	Token1PriceUSD   float64 `json:"token1_price_usd"`

	// CreatedAt is the on-chain creation (mint) time of the position,
	// used to resolve the historical reference price and position age.
	CreatedAt time.Time `json:"created_at"`
}
