package state

import (
	"context"

	"github.com/lpwatch/lpwatch/internal/types"
)

// Store defines the persistence interface the agent works against. The
// concrete implementation is PostgresStore; tests substitute in-memory
// fakes.
type Store interface {
	// GetActiveWallets returns all wallets flagged active, the scan
	// cycle's work list. Wallets are read-only to the agent.
	GetActiveWallets(ctx context.Context) ([]types.Wallet, error)

	// Begin opens the transactional unit for one wallet's reconciliation.
	// All-or-nothing per wallet, never global to the cycle.
	Begin(ctx context.Context) (WalletTx, error)
}

// WalletTx is the per-wallet transaction scope. Either Commit or Rollback
// must be called exactly once.
type WalletTx interface {
	// GetPositionByTokenID returns the persisted position for a chain
	// token ID, or nil when it has never been observed.
	GetPositionByTokenID(ctx context.Context, tokenID int64) (*types.Position, error)

	// CreatePosition inserts a new position row and fills in its ID.
	// Called exactly once per token ID, on first observation.
	CreatePosition(ctx context.Context, position *types.Position) error

	// AppendMetric inserts a new metric snapshot and fills in its ID.
	// Snapshots are never updated or deleted.
	AppendMetric(ctx context.Context, metric *types.PositionMetric) error

	// SaveRecommendation inserts the decision tied 1:1 to a metric.
	SaveRecommendation(ctx context.Context, recommendation *types.Recommendation) error

	Commit() error
	Rollback() error
}
