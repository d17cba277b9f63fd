/*

Read-only queries backing the audit surfaces (web dashboard and the audit
CLI). These run outside any wallet transaction and never mutate state.

*/

package state

import (
	"fmt"
	"time"

	"github.com/lpwatch/lpwatch/internal/types"
)

// AuditRecommendation is one recommendation joined with the position and
// metric snapshot it was generated from.
type AuditRecommendation struct {
	TokenID                int64     `json:"token_id"`
	Token0Symbol           string    `json:"token0_symbol"`
	Token1Symbol           string    `json:"token1_symbol"`
	WalletAddress          string    `json:"wallet_address"`
	Action                 string    `json:"action"`
	Justification          string    `json:"justification"`
	CurrentPrice           float64   `json:"current_price"`
	IsInRange              bool      `json:"is_in_range"`
	ImpermanentLossPercent float64   `json:"impermanent_loss_percent"`
	UnclaimedFeesUSD       float64   `json:"unclaimed_fees_usd"`
	RealAPRPercent         float64   `json:"real_apr_percent"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// GetWallets returns all registered wallets, active or not.
func GetWallets() ([]types.Wallet, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT wallet_id, address, is_active, created_at
		FROM wallets
		ORDER BY wallet_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
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
	return wallets, rows.Err()
}

// GetPositions returns all tracked positions.
func GetPositions() ([]types.Position, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT position_id, token_id, wallet_id, pool_address,
		       token0_symbol, token1_symbol, tick_lower, tick_upper, created_at
		FROM positions
		ORDER BY position_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []types.Position
	for rows.Next() {
		var p types.Position
		if err := rows.Scan(
			&p.ID, &p.TokenID, &p.WalletID, &p.PoolAddress,
			&p.Token0Symbol, &p.Token1Symbol, &p.TickLower, &p.TickUpper, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// GetMetricsForPosition returns the most recent metric snapshots for a
// position, newest first.
func GetMetricsForPosition(tokenID int64, limit int) ([]types.PositionMetric, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT m.metric_id, m.position_id, m.price_lower, m.price_upper,
		       m.current_price, m.is_in_range, m.impermanent_loss_percent,
		       m.unclaimed_fees_usd, m.real_apr_percent, m.snapshot_at
		FROM position_metrics m
		JOIN positions p ON p.position_id = m.position_id
		WHERE p.token_id = $1
		ORDER BY m.snapshot_at DESC
		LIMIT $2;
	`, tokenID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics for token_id %d: %w", tokenID, err)
	}
	defer rows.Close()

	var metrics []types.PositionMetric
	for rows.Next() {
		var m types.PositionMetric
		if err := rows.Scan(
			&m.ID, &m.PositionID, &m.PriceLower, &m.PriceUpper,
			&m.CurrentPrice, &m.IsInRange, &m.ImpermanentLossPercent,
			&m.UnclaimedFeesUSD, &m.RealAPRPercent, &m.SnapshotAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// GetRecentRecommendations returns the latest recommendations across all
// positions, joined with their metric snapshots.
func GetRecentRecommendations(limit int) ([]AuditRecommendation, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := DB.Query(`
		SELECT p.token_id, p.token0_symbol, p.token1_symbol, w.address,
		       r.action, r.justification,
		       m.current_price, m.is_in_range, m.impermanent_loss_percent,
		       m.unclaimed_fees_usd, m.real_apr_percent,
		       r.generated_at
		FROM recommendations r
		JOIN position_metrics m ON m.metric_id = r.metric_id
		JOIN positions p ON p.position_id = m.position_id
		JOIN wallets w ON w.wallet_id = p.wallet_id
		ORDER BY r.generated_at DESC
		LIMIT $1;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent recommendations: %w", err)
	}
	defer rows.Close()

	var recs []AuditRecommendation
	for rows.Next() {
		var r AuditRecommendation
		if err := rows.Scan(
			&r.TokenID, &r.Token0Symbol, &r.Token1Symbol, &r.WalletAddress,
			&r.Action, &r.Justification,
			&r.CurrentPrice, &r.IsInRange, &r.ImpermanentLossPercent,
			&r.UnclaimedFeesUSD, &r.RealAPRPercent,
			&r.GeneratedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
