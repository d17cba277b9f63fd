package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/lpwatch/lpwatch/internal/calculator"
	"github.com/lpwatch/lpwatch/internal/notifier"
	"github.com/lpwatch/lpwatch/internal/state"
	"github.com/lpwatch/lpwatch/internal/types"

	"github.com/rs/zerolog"
)

// scanWallet reconciles all of one wallet's live positions inside a single
// transaction. All-or-nothing: any persistence failure rolls back every
// snapshot written for this wallet in this cycle.
func (a *Agent) scanWallet(ctx context.Context, walletLogger zerolog.Logger, wallet types.Wallet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scanning wallet %s: %v", wallet.Address, r)
		}
	}()

	externals, err := a.market.GetPositions(ctx, wallet.Address)
	if err != nil {
		return fmt.Errorf("failed to fetch positions: %w", err)
	}
	if len(externals) == 0 {
		walletLogger.Debug().Msg("Wallet has no live positions, skipping")
		return nil
	}

	tx, err := a.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin wallet transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				walletLogger.Warn().Err(rbErr).Msg("Rollback failed")
			}
		}
	}()

	for _, ext := range externals {
		if err := a.reconcilePosition(ctx, walletLogger, tx, wallet, ext); err != nil {
			return fmt.Errorf("failed to reconcile position %d: %w", ext.TokenID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit wallet transaction: %w", err)
	}
	committed = true

	walletLogger.Info().Int("positions", len(externals)).Msg("Wallet reconciled and committed")
	return nil
}

// reconcilePosition syncs one live position: creates the descriptor on first
// observation, appends a metric snapshot, records the model's recommendation
// and dispatches an alert for anything other than MAINTAIN.
func (a *Agent) reconcilePosition(
	ctx context.Context,
	walletLogger zerolog.Logger,
	tx state.WalletTx,
	wallet types.Wallet,
	ext types.ExternalPosition,
) error {
	position, err := tx.GetPositionByTokenID(ctx, ext.TokenID)
	if err != nil {
		return err
	}
	if position == nil {
		position = &types.Position{
			TokenID:      ext.TokenID,
			WalletID:     wallet.ID,
			PoolAddress:  ext.PoolAddress,
			Token0Symbol: ext.Token0Symbol,
			Token1Symbol: ext.Token1Symbol,
			TickLower:    ext.TickLower,
			TickUpper:    ext.TickUpper,
		}
		if err := tx.CreatePosition(ctx, position); err != nil {
			return err
		}
	}

	// The subgraph does not guarantee bound ordering.
	priceLower, priceUpper := calculator.NormalizePriceBounds(ext.PriceLower, ext.PriceUpper)
	inRange := calculator.InRange(priceLower, priceUpper, ext.CurrentPrice)

	// Impermanent loss needs the pool price at position creation. When the
	// historical record is missing the snapshot is still taken, with IL 0.
	impermanentLoss := 0.0
	initialPrice, found, err := a.market.GetHistoricalPrice(ctx, ext.PoolAddress, ext.CreatedAt.Unix())
	if err != nil {
		walletLogger.Warn().Err(err).
			Int64("tokenID", ext.TokenID).
			Msg("Historical price lookup failed, recording snapshot without IL")
	} else if !found {
		walletLogger.Debug().
			Int64("tokenID", ext.TokenID).
			Msg("No historical price at position creation, recording snapshot without IL")
	} else {
		impermanentLoss = calculator.ImpermanentLoss(initialPrice, ext.CurrentPrice)
	}

	unclaimedFees := calculator.UnclaimedFeesUSD(
		ext.UncollectedFees0, ext.UncollectedFees1,
		ext.Token0PriceUSD, ext.Token1PriceUSD,
	)
	liquidityUSD := ext.DepositedToken0*ext.Token0PriceUSD + ext.DepositedToken1*ext.Token1PriceUSD
	realAPR := calculator.RealAPR(unclaimedFees, liquidityUSD, ext.CreatedAt, time.Now().UTC(), impermanentLoss)

	metric := &types.PositionMetric{
		PositionID:             position.ID,
		PriceLower:             priceLower,
		PriceUpper:             priceUpper,
		CurrentPrice:           ext.CurrentPrice,
		IsInRange:              inRange,
		ImpermanentLossPercent: impermanentLoss,
		UnclaimedFeesUSD:       unclaimedFees,
		RealAPRPercent:         realAPR,
	}
	if err := tx.AppendMetric(ctx, metric); err != nil {
		return err
	}

	decision := a.advisor.Recommend(ctx, *position, *metric)

	recommendation := &types.Recommendation{
		MetricID:       metric.ID,
		Action:         decision.Action,
		Justification:  decision.Justification,
		RawModelOutput: decision.RawOutput,
	}
	if err := tx.SaveRecommendation(ctx, recommendation); err != nil {
		return err
	}

	walletLogger.Info().
		Int64("tokenID", ext.TokenID).
		Str("pool", position.Token0Symbol+"/"+position.Token1Symbol).
		Bool("inRange", inRange).
		Float64("ilPercent", impermanentLoss).
		Float64("feesUSD", unclaimedFees).
		Float64("realAPR", realAPR).
		Str("action", string(decision.Action)).
		Msg("Position reconciled")

	if decision.Action.NeedsNotification() {
		message := notifier.FormatRecommendation(*position, *metric, decision)
		if sendErr := a.notifier.Send(ctx, message); sendErr != nil {
			// Notification failures never invalidate the audit trail.
			walletLogger.Error().Err(sendErr).
				Int64("tokenID", ext.TokenID).
				Msg("Failed to send notification")
		}
	}

	return nil
}
