// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// SaveStrategyParameters saves a new version of the strategy parameter set.
// The tier and lock tables go into JSONB columns; the scalar configs get
// their own columns so they are queryable.
func SaveStrategyParameters(params types.StrategyParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tiersJSON, err := json.Marshal(params.Tiers)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal tier configs: %w", err)
	}
	locksJSON, err := json.Marshal(params.LockPolicies)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal lock policies: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE strategy_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO strategy_parameters (
            version, config_name, is_active, activated_at, created_at,
            kink_bps, base_rate_bps, low_slope, high_slope,
            fee_bps, fee_recipient,
            tiers, lock_policies
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9,
            $10, $11,
            $12, $13
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.RateCurve.KinkBps, params.RateCurve.BaseRateBps, params.RateCurve.LowSlope, params.RateCurve.HighSlope,
		params.Fee.FeeBps, string(params.Fee.Recipient),
		tiersJSON, locksJSON,
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert strategy parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved strategy parameters")
	return paramsID, nil
}

// LoadActiveStrategyParameters loads the currently active strategy parameters.
func LoadActiveStrategyParameters(configName string) (*types.StrategyParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            kink_bps, base_rate_bps, low_slope, high_slope,
            fee_bps, fee_recipient,
            tiers, lock_policies
        FROM strategy_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.StrategyParameters{}
	var recipient string
	var tiersJSON, locksJSON []byte
	row := DB.QueryRow(query, configName)
	err := row.Scan(
		&p.RateCurve.KinkBps, &p.RateCurve.BaseRateBps, &p.RateCurve.LowSlope, &p.RateCurve.HighSlope,
		&p.Fee.FeeBps, &recipient,
		&tiersJSON, &locksJSON,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active strategy parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active strategy parameters for config '%s': %w", configName, err)
	}

	p.Fee.Recipient = types.UserID(recipient)
	if err := json.Unmarshal(tiersJSON, &p.Tiers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tier configs for config '%s': %w", configName, err)
	}
	if err := json.Unmarshal(locksJSON, &p.LockPolicies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock policies for config '%s': %w", configName, err)
	}

	log.Info().Str("config", configName).Msg("Loaded active strategy parameters")
	return p, nil
}

// GetLatestStrategyParametersVersion returns the highest stored version for a
// config name, or zero when none exists.
func GetLatestStrategyParametersVersion(configName string) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var version int
	err := DB.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM strategy_parameters WHERE config_name = $1;`,
		configName,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest parameters version for config '%s': %w", configName, err)
	}
	return version, nil
}

// GetActiveStrategyParametersID returns the params_id of the currently active
// strategy parameters, or nil when none is active.
func GetActiveStrategyParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id
        FROM strategy_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var paramsID int64
	row := DB.QueryRow(query, configName)
	err := row.Scan(&paramsID)

	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug().Str("config", configName).Msg("No active strategy parameters found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active strategy parameters ID for config '%s': %w", configName, err)
	}

	return &paramsID, nil
}
