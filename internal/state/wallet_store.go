// ./internal/state/wallet_store.go
package state

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// AddWallet registers a wallet for scanning, or re-activates it if the
// address is already known. Operator action; the agent itself never writes
// wallets.
func AddWallet(address string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return fmt.Errorf("wallet address cannot be empty")
	}

	query := `
		INSERT INTO wallets (address, is_active)
		VALUES ($1, TRUE)
		ON CONFLICT (address) DO UPDATE SET is_active = TRUE;
	`
	if _, err := DB.Exec(query, address); err != nil {
		return fmt.Errorf("failed to add wallet %s: %w", address, err)
	}

	log.Info().Str("address", address).Msg("Wallet registered for scanning")
	return nil
}

// DeactivateWallet stops a wallet from being scanned without deleting its
// position history.
func DeactivateWallet(address string) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	address = strings.ToLower(strings.TrimSpace(address))

	result, err := DB.Exec(`UPDATE wallets SET is_active = FALSE WHERE address = $1;`, address)
	if err != nil {
		return fmt.Errorf("failed to deactivate wallet %s: %w", address, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("wallet %s is not registered", address)
	}

	log.Info().Str("address", address).Msg("Wallet deactivated")
	return nil
}
