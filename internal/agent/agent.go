package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/lpwatch/lpwatch/internal/advisor"
	"github.com/lpwatch/lpwatch/internal/datafetcher"
	"github.com/lpwatch/lpwatch/internal/logger"
	"github.com/lpwatch/lpwatch/internal/notifier"
	"github.com/lpwatch/lpwatch/internal/state"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Agent is the position monitoring daemon with all its dependencies.
type Agent struct {
	logger   zerolog.Logger
	store    state.Store
	market   datafetcher.MarketDataSource
	advisor  *advisor.Advisor
	notifier notifier.Notifier

	// Runtime state
	cycleCount int
}

// Config holds the configuration for creating a new Agent instance
type Config struct {
	Store      state.Store
	MarketData datafetcher.MarketDataSource
	Advisor    *advisor.Advisor
	Notifier   notifier.Notifier
}

// NewAgent creates a new Agent instance with dependency injection
func NewAgent(cfg Config) (*Agent, error) {
	if err := validateAgentConfig(cfg); err != nil {
		return nil, fmt.Errorf("agent configuration validation failed: %w", err)
	}

	agent := &Agent{
		logger:   logger.GetForComponent("agent_core"),
		store:    cfg.Store,
		market:   cfg.MarketData,
		advisor:  cfg.Advisor,
		notifier: cfg.Notifier,
	}

	agent.logger.Info().Msg("Agent instance created successfully with dependency injection")
	return agent, nil
}

// validateAgentConfig validates the Agent configuration
func validateAgentConfig(cfg Config) error {
	if cfg.Store == nil {
		return fmt.Errorf("store cannot be nil")
	}
	if cfg.MarketData == nil {
		return fmt.Errorf("market data source cannot be nil")
	}
	if cfg.Advisor == nil {
		return fmt.Errorf("advisor cannot be nil")
	}
	if cfg.Notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}
	return nil
}

// RunLoop starts the main scan loop with the specified interval
func (a *Agent) RunLoop(ctx context.Context, interval time.Duration) {
	a.logger.Info().
		Dur("interval", interval).
		Msg("Starting agent main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	a.cycleCount++
	a.logger.Info().Int("cycle", a.cycleCount).Msg("Initiating scan cycle")
	a.RunCycle(ctx)
	a.logger.Info().Int("cycle", a.cycleCount).Msg("Scan cycle completed")

	// Continue with ticker
	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Agent loop stopped due to context cancellation")
			return
		case <-ticker.C:
			a.cycleCount++
			a.logger.Info().Int("cycle", a.cycleCount).Msg("Initiating scan cycle")
			a.RunCycle(ctx)
			a.logger.Info().Int("cycle", a.cycleCount).Msg("Scan cycle completed")
		}
	}
}

// RunCycle executes one complete scan over all active wallets. Failures in
// one wallet never block the remaining wallets.
func (a *Agent) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Unique cycle ID for tracing logs across the entire cycle
	cycleID := uuid.New().String()
	cycleLogger := a.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting Scan Cycle ---")

	scanNumber := a.getScanNumber()
	cycleLogger.Info().
		Int("scanNumber", scanNumber).
		Time("timestamp", cycleStartTime).
		Msg("Scan cycle initialized")

	wallets, err := a.store.GetActiveWallets(ctx)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: Failed to load active wallets.")
		return
	}
	if len(wallets) == 0 {
		cycleLogger.Info().Msg("No active wallets registered. Nothing to scan.")
		return
	}
	cycleLogger.Info().Int("wallets", len(wallets)).Msg("Loaded active wallets")

	scanned := 0
	failed := 0
	for _, wallet := range wallets {
		walletLogger := cycleLogger.With().Str("wallet", wallet.Address).Logger()
		if err := a.scanWallet(ctx, walletLogger, wallet); err != nil {
			failed++
			walletLogger.Error().Err(err).Msg("Wallet scan failed, continuing with remaining wallets")
			continue
		}
		scanned++
	}

	cycleLogger.Info().
		Int("scanNumber", scanNumber).
		Int("walletsScanned", scanned).
		Int("walletsFailed", failed).
		Str("cycleDuration", time.Since(cycleStartTime).String()).
		Msg("--- Scan Cycle Completed ---")
}

// getScanNumber increments and returns the persistent scan counter from database
func (a *Agent) getScanNumber() int {
	scanNumber, err := state.IncrementScanNumber()
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to increment scan number, using fallback")
		// Fallback to a timestamp-derived counter if database fails
		return int(time.Now().Unix() % 1000000)
	}
	return scanNumber
}
