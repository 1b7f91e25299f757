package strategy

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

func TestLockDeposit_SnapshotsBonusRate(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	lock, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	require.NoError(t, err)

	// Floor rate 200 plus the Silver bonus of 25, boosted by the 1.1x
	// thirty-day multiplier, truncated: (225 * 11000) / 10000 = 247.
	assert.Equal(t, int64(247), lock.BonusRate)
	assert.Equal(t, ether(20), lock.Amount)
	assert.Equal(t, types.LockPeriodThirtyDays, lock.Period)
	assert.True(t, lock.UnlockTime.Equal(h.clock.now.Add(30*24*time.Hour)))

	assert.True(t, h.engine.IsLocked(alice))
	assert.Equal(t, 1, h.engine.ActiveLockCount())
	assert.Equal(t, []types.EventKind{types.EventLockCreated}, h.sink.kinds())
}

func TestLockDeposit_RejectsUnknownPeriod(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	_, err := h.engine.LockDeposit(alice, types.LockPeriod(42))
	assert.ErrorIs(t, err, ErrUnknownLockPeriod)
}

func TestLockDeposit_RejectsZeroDeposit(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)

	_, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.False(t, h.engine.IsLocked(alice))
}

func TestLockDeposit_RecordBlocksRelockEvenAfterExpiry(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	_, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	require.NoError(t, err)

	_, err = h.engine.LockDeposit(alice, types.LockPeriodNinetyDays)
	assert.ErrorIs(t, err, ErrLockAlreadyExists)

	// Expiry alone does not clear the record.
	h.clock.Advance(60 * 24 * time.Hour)
	assert.False(t, h.engine.IsLocked(alice))
	_, err = h.engine.LockDeposit(alice, types.LockPeriodNinetyDays)
	assert.ErrorIs(t, err, ErrLockAlreadyExists)

	require.NoError(t, h.engine.UnlockDeposit(alice))
	_, err = h.engine.LockDeposit(alice, types.LockPeriodNinetyDays)
	assert.NoError(t, err)
}

func TestUnlockDeposit_Lifecycle(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	assert.ErrorIs(t, h.engine.UnlockDeposit(alice), ErrNoLockFound)

	_, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	require.NoError(t, err)

	h.clock.Advance(30*24*time.Hour - time.Second)
	assert.ErrorIs(t, h.engine.UnlockDeposit(alice), ErrStillLocked)
	assert.True(t, h.engine.IsLocked(alice))

	// At exactly unlockTime the lock is expired and releasable.
	h.clock.Advance(time.Second)
	assert.False(t, h.engine.IsLocked(alice))
	require.NoError(t, h.engine.UnlockDeposit(alice))

	_, exists := h.engine.LockOf(alice)
	assert.False(t, exists)
	assert.Equal(t, []types.EventKind{types.EventLockCreated, types.EventLockReleased}, h.sink.kinds())
}

func TestLockDeposit_FrozenRateIgnoresLaterCurveChanges(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	lock, err := h.engine.LockDeposit(alice, types.LockPeriodThreeSixtyFiveDays)
	require.NoError(t, err)
	// (200 + 25) * 20000 / 10000 = 450.
	assert.Equal(t, int64(450), lock.BonusRate)

	steeper := types.RateCurveConfig{KinkBps: 8000, BaseRateBps: 1000, LowSlope: 5, HighSlope: 50}
	require.NoError(t, h.engine.SetUtilizationConfig(governance, steeper))

	stored, exists := h.engine.LockOf(alice)
	require.True(t, exists)
	assert.Equal(t, int64(450), stored.BonusRate)

	effective, err := h.engine.EffectiveRate(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(450), effective)
}

func TestActiveLockCount_ExcludesExpired(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))
	h.vault.SetDeposit(bob, ether(20))

	_, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	require.NoError(t, err)
	_, err = h.engine.LockDeposit(bob, types.LockPeriodNinetyDays)
	require.NoError(t, err)
	assert.Equal(t, 2, h.engine.ActiveLockCount())

	h.clock.Advance(30 * 24 * time.Hour)
	assert.Equal(t, 1, h.engine.ActiveLockCount())

	h.clock.Advance(60 * 24 * time.Hour)
	assert.Equal(t, 0, h.engine.ActiveLockCount())
}

func TestValidateLockPolicy(t *testing.T) {
	require.NoError(t, ValidateLockPolicy(types.LockPolicyConfig{Duration: 0, BonusMultiplierBps: MinLockMultiplierBps}))
	require.NoError(t, ValidateLockPolicy(types.LockPolicyConfig{Duration: 365 * 24 * time.Hour, BonusMultiplierBps: MaxLockMultiplierBps}))

	assert.ErrorIs(t, ValidateLockPolicy(types.LockPolicyConfig{Duration: -time.Hour, BonusMultiplierBps: 11000}), ErrInvalidLockPolicy)
	assert.ErrorIs(t, ValidateLockPolicy(types.LockPolicyConfig{BonusMultiplierBps: MinLockMultiplierBps - 1}), ErrInvalidLockMultiplier)
	assert.ErrorIs(t, ValidateLockPolicy(types.LockPolicyConfig{BonusMultiplierBps: MaxLockMultiplierBps + 1}), ErrInvalidLockMultiplier)
}
