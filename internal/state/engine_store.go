/*

Persistence of the engine's mutable state: user locks and high-water marks.
These rows mirror in-memory state so a restarted engine resumes with the same
commitments. The marks and amounts are decimal strings, never floats.

*/

package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// SaveUserLock upserts a user's lock record.
func SaveUserLock(user types.UserID, lock types.UserLock) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO user_locks (user_id, amount, unlock_time, period, bonus_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			unlock_time = EXCLUDED.unlock_time,
			period = EXCLUDED.period,
			bonus_rate = EXCLUDED.bonus_rate;`

	_, err := DB.Exec(stmt, string(user), lock.Amount.String(), lock.UnlockTime, int(lock.Period), lock.BonusRate)
	if err != nil {
		return fmt.Errorf("failed to save lock for %s: %w", user, err)
	}
	return nil
}

// DeleteUserLock removes a user's lock record.
func DeleteUserLock(user types.UserID) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`DELETE FROM user_locks WHERE user_id = $1;`, string(user))
	if err != nil {
		return fmt.Errorf("failed to delete lock for %s: %w", user, err)
	}
	return nil
}

// LoadUserLocks loads every persisted lock record.
func LoadUserLocks() (map[types.UserID]types.UserLock, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT user_id, amount, unlock_time, period, bonus_rate FROM user_locks;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user locks: %w", err)
	}
	defer rows.Close()

	locks := make(map[types.UserID]types.UserLock)
	for rows.Next() {
		var userID, rawAmount string
		var lock types.UserLock
		var period int
		if err := rows.Scan(&userID, &rawAmount, &lock.UnlockTime, &period, &lock.BonusRate); err != nil {
			return nil, fmt.Errorf("failed to scan user lock row: %w", err)
		}
		amount, ok := sdkmath.NewIntFromString(rawAmount)
		if !ok {
			return nil, fmt.Errorf("invalid lock amount %q for user %s", rawAmount, userID)
		}
		lock.Amount = amount
		lock.Period = types.LockPeriod(period)
		locks[types.UserID(userID)] = lock
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user locks: %w", err)
	}

	log.Info().Int("locks", len(locks)).Msg("Loaded persisted user locks")
	return locks, nil
}

// SaveUserHighWaterMark upserts a user's override mark.
func SaveUserHighWaterMark(user types.UserID, mark sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO user_high_water_marks (user_id, mark, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET mark = EXCLUDED.mark, updated_at = CURRENT_TIMESTAMP;`

	_, err := DB.Exec(stmt, string(user), mark.String())
	if err != nil {
		return fmt.Errorf("failed to save high-water mark for %s: %w", user, err)
	}
	return nil
}

// LoadUserHighWaterMarks loads every persisted per-user mark.
func LoadUserHighWaterMarks() (map[types.UserID]sdkmath.Int, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT user_id, mark FROM user_high_water_marks;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user high-water marks: %w", err)
	}
	defer rows.Close()

	marks := make(map[types.UserID]sdkmath.Int)
	for rows.Next() {
		var userID, rawMark string
		if err := rows.Scan(&userID, &rawMark); err != nil {
			return nil, fmt.Errorf("failed to scan high-water mark row: %w", err)
		}
		mark, ok := sdkmath.NewIntFromString(rawMark)
		if !ok {
			return nil, fmt.Errorf("invalid high-water mark %q for user %s", rawMark, userID)
		}
		marks[types.UserID(userID)] = mark
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate high-water marks: %w", err)
	}

	log.Info().Int("marks", len(marks)).Msg("Loaded persisted user high-water marks")
	return marks, nil
}

// SaveGlobalHighWaterMark overwrites the single global mark row.
func SaveGlobalHighWaterMark(mark sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO global_high_water_mark (id, mark, updated_at)
		VALUES (1, $1, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET mark = EXCLUDED.mark, updated_at = CURRENT_TIMESTAMP;`

	_, err := DB.Exec(stmt, mark.String())
	if err != nil {
		return fmt.Errorf("failed to save global high-water mark: %w", err)
	}
	return nil
}

// LoadGlobalHighWaterMark returns the persisted global mark, or found=false
// when the engine has never written one.
func LoadGlobalHighWaterMark() (sdkmath.Int, bool, error) {
	if DB == nil {
		return sdkmath.ZeroInt(), false, fmt.Errorf("database not initialized")
	}

	var rawMark string
	err := DB.QueryRow(`SELECT mark FROM global_high_water_mark WHERE id = 1;`).Scan(&rawMark)
	if err != nil {
		if err == sql.ErrNoRows {
			return sdkmath.ZeroInt(), false, nil
		}
		return sdkmath.ZeroInt(), false, fmt.Errorf("failed to load global high-water mark: %w", err)
	}

	mark, ok := sdkmath.NewIntFromString(rawMark)
	if !ok {
		return sdkmath.ZeroInt(), false, fmt.Errorf("invalid global high-water mark %q", rawMark)
	}
	return mark, true, nil
}

// EngineStore adapts the state package to the engine's Persistence interface,
// versioning parameter snapshots under a single config name.
type EngineStore struct {
	ConfigName string
}

func (s EngineStore) SaveLock(user types.UserID, lock types.UserLock) error {
	return SaveUserLock(user, lock)
}

func (s EngineStore) DeleteLock(user types.UserID) error {
	return DeleteUserLock(user)
}

func (s EngineStore) SaveUserMark(user types.UserID, mark sdkmath.Int) error {
	return SaveUserHighWaterMark(user, mark)
}

func (s EngineStore) SaveGlobalMark(mark sdkmath.Int) error {
	return SaveGlobalHighWaterMark(mark)
}

func (s EngineStore) SaveParameters(params types.StrategyParameters) error {
	version, err := GetLatestStrategyParametersVersion(s.ConfigName)
	if err != nil {
		return err
	}
	_, err = SaveStrategyParameters(params, s.ConfigName, version+1, true)
	return err
}
