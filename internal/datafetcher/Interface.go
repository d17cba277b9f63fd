package datafetcher

import (
	"context"

	"github.com/lpwatch/lpwatch/internal/types"
)

// MarketDataSource defines the interface for the external position feed.
// This interface abstracts away where position data comes from (subgraph,
// indexer API, direct RPC), allowing the agent to be tested against fakes.
type MarketDataSource interface {
	// GetPositions returns the current open LP positions for a wallet
	// address as observed by the source.
	GetPositions(ctx context.Context, walletAddress string) ([]types.ExternalPosition, error)

	// GetHistoricalPrice returns the pool's token0 price at (or immediately
	// before) the given unix timestamp. The boolean is false when the source
	// has no data for that point in time; that is not an error.
	GetHistoricalPrice(ctx context.Context, poolAddress string, timestamp int64) (float64, bool, error)
}
