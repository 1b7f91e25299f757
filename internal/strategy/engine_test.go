package strategy

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptonique0/basero-yield-engine/internal/config"
	"github.com/cryptonique0/basero-yield-engine/internal/ledger"
	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

const (
	governance types.UserID = "governance"
	alice      types.UserID = "alice"
	bob        types.UserID = "bob"
	treasury   types.UserID = "treasury"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type memorySink struct {
	events []types.StrategyEvent
}

func (s *memorySink) Record(event types.StrategyEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) kinds() []types.EventKind {
	out := make([]types.EventKind, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.Kind)
	}
	return out
}

type testHarness struct {
	engine *Engine
	vault  *ledger.MemoryVault
	token  *ledger.MemoryToken
	clock  *fakeClock
	sink   *memorySink
}

func newTestHarness(t *testing.T, capacity sdkmath.Int, mutate func(*types.StrategyParameters)) *testHarness {
	t.Helper()

	params := config.DefaultStrategyParameters
	if mutate != nil {
		mutate(&params)
	}

	vault := ledger.NewMemoryVault(capacity, treasury)
	vault.Authorize(governance, true)
	token := ledger.NewMemoryToken(sdkmath.ZeroInt(), sdkmath.ZeroInt())
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	sink := &memorySink{}

	engine, err := NewEngine(Config{
		Vault:  vault,
		Token:  token,
		Params: params,
		Sink:   sink,
		Now:    clock.Now,
	})
	require.NoError(t, err)

	return &testHarness{engine: engine, vault: vault, token: token, clock: clock, sink: sink}
}

func TestNewEngine_RequiresLedgers(t *testing.T) {
	_, err := NewEngine(Config{Token: ledger.NewMemoryToken(sdkmath.ZeroInt(), sdkmath.ZeroInt()), Params: config.DefaultStrategyParameters})
	assert.Error(t, err)

	_, err = NewEngine(Config{Vault: ledger.NewMemoryVault(sdkmath.ZeroInt(), treasury), Params: config.DefaultStrategyParameters})
	assert.Error(t, err)
}

func TestNewEngine_RejectsInvalidParameters(t *testing.T) {
	params := config.DefaultStrategyParameters
	params.Fee.Recipient = ""

	_, err := NewEngine(Config{
		Vault:  ledger.NewMemoryVault(sdkmath.ZeroInt(), treasury),
		Token:  ledger.NewMemoryToken(sdkmath.ZeroInt(), sdkmath.ZeroInt()),
		Params: params,
	})
	assert.ErrorIs(t, err, ErrNullRecipient)
}

func TestRate_EmptyVaultPaysFloor(t *testing.T) {
	h := newTestHarness(t, sdkmath.NewInt(1000), nil)

	rate, err := h.engine.Rate()
	require.NoError(t, err)
	assert.Equal(t, int64(200), rate)
}

func TestEffectiveRate_UnlockedIsRatePlusTierBonus(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(50))

	effective, err := h.engine.EffectiveRate(alice)
	require.NoError(t, err)
	// Floor rate 200 plus the Gold bonus of 50.
	assert.Equal(t, int64(250), effective)
}

func TestEffectiveRate_ActiveLockOverridesEverything(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	lock, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	require.NoError(t, err)

	// Later config changes must not move the locked rate.
	require.NoError(t, h.engine.SetTierConfig(governance, types.TierSilver, types.TierConfig{
		MinDeposit: ether(10),
		BonusBps:   500,
	}))

	effective, err := h.engine.EffectiveRate(alice)
	require.NoError(t, err)
	assert.Equal(t, lock.BonusRate, effective)

	// Once the lock expires the live rate applies again.
	h.clock.Advance(30 * 24 * time.Hour)
	effective, err = h.engine.EffectiveRate(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(200+500), effective)
}

func TestSetters_RejectUnauthorizedCaller(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)

	assert.ErrorIs(t, h.engine.SetUtilizationConfig(bob, testCurve), ErrUnauthorized)
	assert.ErrorIs(t, h.engine.SetTierConfig(bob, types.TierGold, types.TierConfig{MinDeposit: ether(50), BonusBps: 50}), ErrUnauthorized)
	assert.ErrorIs(t, h.engine.SetLockConfig(bob, types.LockPeriodThirtyDays, types.LockPolicyConfig{Duration: 30 * 24 * time.Hour, BonusMultiplierBps: 11000}), ErrUnauthorized)
	assert.ErrorIs(t, h.engine.SetPerformanceFeeConfig(bob, 1000, treasury), ErrUnauthorized)
	assert.ErrorIs(t, h.engine.UpdateGlobalHighWaterMark(bob), ErrUnauthorized)
	assert.Empty(t, h.sink.events)
}

func TestSetters_ValidateBeforeMutating(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	original := h.engine.Parameters()

	badCurve := testCurve
	badCurve.KinkBps = 10001
	assert.ErrorIs(t, h.engine.SetUtilizationConfig(governance, badCurve), ErrInvalidRateCurve)

	assert.ErrorIs(t, h.engine.SetTierConfig(governance, types.Tier(42), types.TierConfig{MinDeposit: ether(1), BonusBps: 10}), ErrUnknownTier)
	assert.ErrorIs(t, h.engine.SetTierConfig(governance, types.TierGold, types.TierConfig{MinDeposit: ether(1), BonusBps: 1001}), ErrInvalidTierBonus)

	assert.ErrorIs(t, h.engine.SetLockConfig(governance, types.LockPeriod(42), types.LockPolicyConfig{BonusMultiplierBps: 11000}), ErrUnknownLockPeriod)
	assert.ErrorIs(t, h.engine.SetLockConfig(governance, types.LockPeriodThirtyDays, types.LockPolicyConfig{BonusMultiplierBps: 9999}), ErrInvalidLockMultiplier)
	assert.ErrorIs(t, h.engine.SetLockConfig(governance, types.LockPeriodThirtyDays, types.LockPolicyConfig{BonusMultiplierBps: 20001}), ErrInvalidLockMultiplier)

	assert.ErrorIs(t, h.engine.SetPerformanceFeeConfig(governance, 5001, treasury), ErrInvalidFeeRate)
	assert.ErrorIs(t, h.engine.SetPerformanceFeeConfig(governance, -1, treasury), ErrInvalidFeeRate)
	assert.ErrorIs(t, h.engine.SetPerformanceFeeConfig(governance, 1000, ""), ErrNullRecipient)

	// Nothing changed and nothing was emitted.
	assert.Equal(t, original, h.engine.Parameters())
	assert.Empty(t, h.sink.events)
}

func TestSetters_RoundTripAndEmit(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)

	newCurve := types.RateCurveConfig{KinkBps: 9000, BaseRateBps: 100, LowSlope: 3, HighSlope: 80}
	require.NoError(t, h.engine.SetUtilizationConfig(governance, newCurve))

	newTier := types.TierConfig{MinDeposit: ether(25), BonusBps: 40}
	require.NoError(t, h.engine.SetTierConfig(governance, types.TierSilver, newTier))

	newPolicy := types.LockPolicyConfig{Duration: 60 * 24 * time.Hour, BonusMultiplierBps: 13000}
	require.NoError(t, h.engine.SetLockConfig(governance, types.LockPeriodNinetyDays, newPolicy))

	require.NoError(t, h.engine.SetPerformanceFeeConfig(governance, 2500, bob))

	params := h.engine.Parameters()
	assert.Equal(t, newCurve, params.RateCurve)
	assert.Equal(t, newTier, params.Tiers[types.TierSilver])
	assert.Equal(t, newPolicy, params.LockPolicies[types.LockPeriodNinetyDays])
	assert.Equal(t, types.FeeConfig{FeeBps: 2500, Recipient: bob}, params.Fee)

	assert.Equal(t, []types.EventKind{
		types.EventConfigChanged,
		types.EventConfigChanged,
		types.EventConfigChanged,
		types.EventConfigChanged,
	}, h.sink.kinds())
	for _, event := range h.sink.events {
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
	}
}

func TestStrategyInfo_AggregatesAllViews(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(50))

	info, err := h.engine.StrategyInfo(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(200), info.RateBps)
	assert.Equal(t, types.TierGold, info.Tier)
	assert.Equal(t, int64(50), info.TierBonusBps)
	assert.Equal(t, int64(250), info.EffectiveBps)
	assert.False(t, info.IsLocked)
	assert.Nil(t, info.UnlockTime)
	assert.True(t, info.PendingFee.IsZero())

	lock, err := h.engine.LockDeposit(alice, types.LockPeriodNinetyDays)
	require.NoError(t, err)

	info, err = h.engine.StrategyInfo(alice)
	require.NoError(t, err)
	assert.True(t, info.IsLocked)
	assert.Equal(t, types.LockPeriodNinetyDays, info.LockPeriod)
	require.NotNil(t, info.UnlockTime)
	assert.True(t, info.UnlockTime.Equal(lock.UnlockTime))
	assert.Equal(t, lock.BonusRate, info.EffectiveBps)
}

func TestPrepareWithdrawal_RejectsWhileLocked(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	_, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	require.NoError(t, err)

	_, err = h.engine.PrepareWithdrawal(alice)
	assert.ErrorIs(t, err, ErrStillLocked)
}

func TestPrepareWithdrawal_ChargesPendingFee(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), func(p *types.StrategyParameters) {
		p.Fee.FeeBps = 2000
	})
	h.token.SetSupply(sdkmath.NewInt(11000), sdkmath.NewInt(10000))
	h.token.SetBalance(alice, sdkmath.NewInt(5000))

	fee, err := h.engine.PrepareWithdrawal(alice)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), fee)

	balance, err := h.token.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(4900), balance)
}

func TestPrepareWithdrawal_ExpiredLockAllowsWithdrawal(t *testing.T) {
	h := newTestHarness(t, sdkmath.ZeroInt(), nil)
	h.vault.SetDeposit(alice, ether(20))

	_, err := h.engine.LockDeposit(alice, types.LockPeriodThirtyDays)
	require.NoError(t, err)

	h.clock.Advance(30 * 24 * time.Hour)
	fee, err := h.engine.PrepareWithdrawal(alice)
	require.NoError(t, err)
	assert.True(t, fee.IsZero())
}
