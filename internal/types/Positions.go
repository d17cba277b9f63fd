/*

This file contains the persisted entity types for wallets, LP positions and
their append-only metric/recommendation audit trail.

*/

package types

import "time"

// Wallet is an operator-registered address to scan. The agent only ever
// reads wallets; creation and activation are operator actions.
type Wallet struct {
	ID        int64     `json:"wallet_id"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Position is one liquidity-provider position, identified by its
// chain-unique token ID. Descriptive fields are written once when the
// position is first observed and are never mutated afterwards; only new
// PositionMetric snapshots are appended.
type Position struct {
	ID           int64     `json:"position_id"`
	TokenID      int64     `json:"token_id"`
	WalletID     int64     `json:"wallet_id"`
	PoolAddress  string    `json:"pool_address"`
	Token0Symbol string    `json:"token0_symbol"`
	Token1Symbol string    `json:"token1_symbol"`
	TickLower    int32     `json:"tick_lower"`
	TickUpper    int32     `json:"tick_upper"`
	CreatedAt    time.Time `json:"created_at"`
}

// PositionMetric is one immutable, timestamped snapshot of a position's
// financial health. Invariant: PriceLower <= PriceUpper (inverted bounds are
// swapped at ingestion before the snapshot is built).
type PositionMetric struct {
	ID                     int64     `json:"metric_id"`
	PositionID             int64     `json:"position_id"`
	PriceLower             float64   `json:"price_lower"`
	PriceUpper             float64   `json:"price_upper"`
	CurrentPrice           float64   `json:"current_price"`
	IsInRange              bool      `json:"is_in_range"`
	ImpermanentLossPercent float64   `json:"impermanent_loss_percent"`
	UnclaimedFeesUSD       float64   `json:"unclaimed_fees_usd"`
	RealAPRPercent         float64   `json:"real_apr_percent"`
	SnapshotAt             time.Time `json:"snapshot_at"`
}

// Recommendation is the model's decision for exactly one metric snapshot
// (metric_id is unique). RawModelOutput keeps the full model response
// verbatim for audit, including when parsing failed.
type Recommendation struct {
	ID             int64     `json:"recommendation_id"`
	MetricID       int64     `json:"metric_id"`
	Action         Action    `json:"action"`
	Justification  string    `json:"justification"`
	RawModelOutput string    `json:"raw_model_output"`
	GeneratedAt    time.Time `json:"generated_at"`
}
