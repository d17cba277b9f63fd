/*

This file manages the persistent global scan counter. The counter is stored
in the database to ensure continuity across restarts.

*/

package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetCurrentScanNumber retrieves the current scan number from the database
func GetCurrentScanNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `SELECT current_scan FROM scan_counter WHERE id = 1;`

	var currentScan int
	row := DB.QueryRow(query)
	err := row.Scan(&currentScan)

	if err != nil {
		if err == sql.ErrNoRows {
			// Should not happen, the schema DDL seeds the row
			log.Warn().Msg("No scan counter row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current scan number: %w", err)
	}

	return currentScan, nil
}

// IncrementScanNumber increments the scan counter and returns the new value
func IncrementScanNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE scan_counter
		SET current_scan = current_scan + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_scan;`

	var newScan int
	row := DB.QueryRow(updateQuery)
	err := row.Scan(&newScan)

	if err != nil {
		return 0, fmt.Errorf("failed to increment scan number: %w", err)
	}

	log.Info().Int("newScan", newScan).Msg("Incremented scan counter")
	return newScan, nil
}

// ResetScanNumber resets the scan counter to a specific value (for testing/maintenance)
func ResetScanNumber(scanNumber int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if scanNumber < 0 {
		return fmt.Errorf("scan number cannot be negative: %d", scanNumber)
	}

	updateQuery := `
		UPDATE scan_counter
		SET current_scan = $1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1;`

	result, err := DB.Exec(updateQuery, scanNumber)
	if err != nil {
		return fmt.Errorf("failed to reset scan number to %d: %w", scanNumber, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting scan number")
	}

	log.Warn().Int("scanNumber", scanNumber).Msg("Reset scan counter")
	return nil
}
