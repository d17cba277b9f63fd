// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS wallets (
			wallet_id SERIAL PRIMARY KEY,
			address VARCHAR(64) NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_wallets_active ON wallets(is_active);

		CREATE TABLE IF NOT EXISTS positions (
			position_id SERIAL PRIMARY KEY,
			token_id BIGINT NOT NULL UNIQUE,
			wallet_id INTEGER NOT NULL REFERENCES wallets(wallet_id),
			pool_address VARCHAR(64) NOT NULL,
			token0_symbol VARCHAR(32) NOT NULL,
			token1_symbol VARCHAR(32) NOT NULL,
			tick_lower INTEGER NOT NULL,
			tick_upper INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_positions_wallet ON positions(wallet_id);

		-- Append-only time series: one row per position per scan cycle.
		CREATE TABLE IF NOT EXISTS position_metrics (
			metric_id SERIAL PRIMARY KEY,
			position_id INTEGER NOT NULL REFERENCES positions(position_id) ON DELETE CASCADE,
			price_lower DOUBLE PRECISION NOT NULL,
			price_upper DOUBLE PRECISION NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			is_in_range BOOLEAN NOT NULL,
			impermanent_loss_percent DOUBLE PRECISION NOT NULL,
			unclaimed_fees_usd DOUBLE PRECISION NOT NULL,
			real_apr_percent DOUBLE PRECISION NOT NULL,
			snapshot_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT chk_price_bounds_ordered CHECK (price_lower <= price_upper)
		);
		CREATE INDEX IF NOT EXISTS idx_position_metrics_position_timestamp ON position_metrics(position_id, snapshot_at DESC);

		-- Exactly one recommendation per metric snapshot; raw_model_output is
		-- the audit surface and is kept even for failed parses.
		CREATE TABLE IF NOT EXISTS recommendations (
			recommendation_id SERIAL PRIMARY KEY,
			metric_id INTEGER NOT NULL UNIQUE REFERENCES position_metrics(metric_id) ON DELETE CASCADE,
			action VARCHAR(32) NOT NULL,
			justification TEXT NOT NULL,
			raw_model_output TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_recommendations_action ON recommendations(action);
		CREATE INDEX IF NOT EXISTS idx_recommendations_generated ON recommendations(generated_at DESC);

		-- Scan counter table for persistent global cycle tracking
		CREATE TABLE IF NOT EXISTS scan_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_scan INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		-- Insert initial row if it doesn't exist
		INSERT INTO scan_counter (id, current_scan)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
