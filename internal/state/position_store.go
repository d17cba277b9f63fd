// ./internal/state/position_store.go
package state

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lpwatch/lpwatch/internal/types"

	"github.com/rs/zerolog/log"
)

// PostgresStore implements Store on top of the global connection pool.
type PostgresStore struct {
	db *sql.DB
}

// NewStore returns a Store backed by the initialized global pool.
func NewStore() (*PostgresStore, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return &PostgresStore{db: DB}, nil
}

// GetActiveWallets returns all wallets flagged active.
func (s *PostgresStore) GetActiveWallets(ctx context.Context) ([]types.Wallet, error) {
	query := `
		SELECT wallet_id, address, is_active, created_at
		FROM wallets
		WHERE is_active = TRUE
		ORDER BY wallet_id;
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active wallets: %w", err)
	}
	defer rows.Close()

	var wallets []types.Wallet
	for rows.Next() {
		var w types.Wallet
		if err := rows.Scan(&w.ID, &w.Address, &w.IsActive, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallet rows: %w", err)
	}

	return wallets, nil
}

// Begin opens the per-wallet transaction scope.
func (s *PostgresStore) Begin(ctx context.Context) (WalletTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresWalletTx{tx: tx}, nil
}

type postgresWalletTx struct {
	tx *sql.Tx
}

// GetPositionByTokenID returns the position for a chain token ID or nil when
// it has never been observed.
func (t *postgresWalletTx) GetPositionByTokenID(ctx context.Context, tokenID int64) (*types.Position, error) {
	query := `
		SELECT position_id, token_id, wallet_id, pool_address,
		       token0_symbol, token1_symbol, tick_lower, tick_upper, created_at
		FROM positions
		WHERE token_id = $1;
	`

	var p types.Position
	err := t.tx.QueryRowContext(ctx, query, tokenID).Scan(
		&p.ID, &p.TokenID, &p.WalletID, &p.PoolAddress,
		&p.Token0Symbol, &p.Token1Symbol, &p.TickLower, &p.TickUpper, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up position by token_id %d: %w", tokenID, err)
	}

	return &p, nil
}

// CreatePosition inserts a new position row. The token_id unique constraint
// is the backstop for the create-once invariant.
func (t *postgresWalletTx) CreatePosition(ctx context.Context, position *types.Position) error {
	query := `
		INSERT INTO positions (
			token_id, wallet_id, pool_address,
			token0_symbol, token1_symbol, tick_lower, tick_upper
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING position_id, created_at;
	`

	err := t.tx.QueryRowContext(ctx, query,
		position.TokenID, position.WalletID, position.PoolAddress,
		position.Token0Symbol, position.Token1Symbol, position.TickLower, position.TickUpper,
	).Scan(&position.ID, &position.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create position for token_id %d: %w", position.TokenID, err)
	}

	log.Info().
		Int64("tokenID", position.TokenID).
		Str("pool", position.Token0Symbol+"/"+position.Token1Symbol).
		Msg("New position created in database")

	return nil
}

// AppendMetric inserts one immutable metric snapshot.
func (t *postgresWalletTx) AppendMetric(ctx context.Context, metric *types.PositionMetric) error {
	query := `
		INSERT INTO position_metrics (
			position_id, price_lower, price_upper, current_price, is_in_range,
			impermanent_loss_percent, unclaimed_fees_usd, real_apr_percent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING metric_id, snapshot_at;
	`

	err := t.tx.QueryRowContext(ctx, query,
		metric.PositionID, metric.PriceLower, metric.PriceUpper, metric.CurrentPrice, metric.IsInRange,
		metric.ImpermanentLossPercent, metric.UnclaimedFeesUSD, metric.RealAPRPercent,
	).Scan(&metric.ID, &metric.SnapshotAt)
	if err != nil {
		return fmt.Errorf("failed to append metric for position %d: %w", metric.PositionID, err)
	}

	return nil
}

// SaveRecommendation inserts the decision for one metric snapshot.
func (t *postgresWalletTx) SaveRecommendation(ctx context.Context, recommendation *types.Recommendation) error {
	query := `
		INSERT INTO recommendations (metric_id, action, justification, raw_model_output)
		VALUES ($1, $2, $3, $4)
		RETURNING recommendation_id, generated_at;
	`

	err := t.tx.QueryRowContext(ctx, query,
		recommendation.MetricID, string(recommendation.Action),
		recommendation.Justification, recommendation.RawModelOutput,
	).Scan(&recommendation.ID, &recommendation.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to save recommendation for metric %d: %w", recommendation.MetricID, err)
	}

	return nil
}

func (t *postgresWalletTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresWalletTx) Rollback() error {
	return t.tx.Rollback()
}
