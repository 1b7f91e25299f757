/*

Lock manager: at most one time-locked commitment per user.

	Unlocked --LockDeposit--> Locked --UnlockDeposit (now >= unlockTime)--> Unlocked

A lock record blocks relocking even after it expires; the user must unlock
explicitly first. The bonus rate is computed once at lock time from the
current utilization rate, the user's tier and the period's multiplier, and is
frozen for the life of the lock.

*/

package strategy

import (
	"fmt"
	"time"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// Lock multiplier bounds: 10000 is no boost, 20000 doubles the rate.
const (
	MinLockMultiplierBps int64 = 10000
	MaxLockMultiplierBps int64 = 20000
)

// ValidateLockPolicy rejects an out-of-range lock policy entry.
func ValidateLockPolicy(cfg types.LockPolicyConfig) error {
	if cfg.Duration < 0 {
		return ErrInvalidLockPolicy
	}
	if cfg.BonusMultiplierBps < MinLockMultiplierBps || cfg.BonusMultiplierBps > MaxLockMultiplierBps {
		return ErrInvalidLockMultiplier
	}
	return nil
}

// LockDeposit commits the user's entire current deposit balance for the
// period's duration, snapshotting a frozen bonus rate.
func (e *Engine) LockDeposit(user types.UserID, period types.LockPeriod) (types.UserLock, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !period.Valid() {
		return types.UserLock{}, ErrUnknownLockPeriod
	}
	if _, exists := e.locks[user]; exists {
		return types.UserLock{}, fmt.Errorf("%w: %s", ErrLockAlreadyExists, user)
	}

	deposit, err := e.vault.UserDeposit(user)
	if err != nil {
		return types.UserLock{}, fmt.Errorf("failed to read deposit for %s: %w", user, err)
	}
	if deposit.IsZero() {
		return types.UserLock{}, fmt.Errorf("%w: %s", ErrInsufficientBalance, user)
	}

	rate, err := e.rateLocked()
	if err != nil {
		return types.UserLock{}, err
	}
	tier := ClassifyTier(deposit, e.params.Tiers)
	policy := e.params.LockPolicies[int(period)]

	// Frozen at lock time; later utilization or tier changes do not apply.
	bonusRate := (rate + TierBonus(tier, e.params.Tiers)) * policy.BonusMultiplierBps / types.BpsDenominator

	lock := types.UserLock{
		Amount:     deposit,
		UnlockTime: e.now().Add(policy.Duration),
		Period:     period,
		BonusRate:  bonusRate,
	}
	e.locks[user] = lock
	if e.store != nil {
		if err := e.store.SaveLock(user, lock); err != nil {
			e.logger.Error().Err(err).Str("user", string(user)).Msg("Failed to persist lock")
		}
	}

	e.emit(types.StrategyEvent{
		Kind: types.EventLockCreated,
		User: user,
		Payload: map[string]any{
			"amount":      lock.Amount.String(),
			"period":      period.String(),
			"unlock_time": lock.UnlockTime,
			"bonus_rate":  lock.BonusRate,
		},
	})
	e.logger.Info().
		Str("user", string(user)).
		Str("amount", lock.Amount.String()).
		Str("period", period.String()).
		Time("unlockTime", lock.UnlockTime).
		Int64("bonusRate", lock.BonusRate).
		Msg("Deposit locked")
	return lock, nil
}

// UnlockDeposit releases an expired lock. Fails while now < unlockTime;
// succeeds at exactly unlockTime.
func (e *Engine) UnlockDeposit(user types.UserID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, exists := e.locks[user]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNoLockFound, user)
	}
	if e.now().Before(lock.UnlockTime) {
		return fmt.Errorf("%w: unlocks at %s", ErrStillLocked, lock.UnlockTime.Format(time.RFC3339))
	}

	delete(e.locks, user)
	if e.store != nil {
		if err := e.store.DeleteLock(user); err != nil {
			e.logger.Error().Err(err).Str("user", string(user)).Msg("Failed to delete persisted lock")
		}
	}

	e.emit(types.StrategyEvent{
		Kind: types.EventLockReleased,
		User: user,
		Payload: map[string]any{
			"amount":     lock.Amount.String(),
			"period":     lock.Period.String(),
			"bonus_rate": lock.BonusRate,
		},
	})
	e.logger.Info().
		Str("user", string(user)).
		Str("amount", lock.Amount.String()).
		Msg("Deposit unlocked")
	return nil
}

// LockOf returns the user's lock record, expired or not.
func (e *Engine) LockOf(user types.UserID) (types.UserLock, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[user]
	return lock, ok
}

// ActiveLockCount returns the number of non-expired locks.
func (e *Engine) ActiveLockCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	count := 0
	for _, lock := range e.locks {
		if lock.UnlockTime.After(now) {
			count++
		}
	}
	return count
}

// IsLocked reports whether the user holds a non-expired lock. At exactly
// unlockTime the lock counts as expired.
func (e *Engine) IsLocked(user types.UserID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[user]
	return ok && lock.UnlockTime.After(e.now())
}
