/*

This file contains the default strategy parameters for the yield engine.

These values are used to seed the database on first start, before governance
has called any of the configuration setters. They were chosen to give a
gentle rate curve below the kink, a meaningful scarcity premium above it, and
tier/lock bonuses that reward size and commitment without ever dominating the
base rate.

*/

package config

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// etherScale is the 1e18 base-unit scale of deposit amounts.
var etherScale = sdkmath.NewIntWithDecimal(1, 18)

func ether(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(etherScale)
}

// DefaultStrategyParameters provides the baseline parameter set for the engine.
// These values are used if no active parameters are found in the database
// during initialization.
var DefaultStrategyParameters = types.StrategyParameters{
	RateCurve: types.RateCurveConfig{
		KinkBps: 8000, // Slope change at 80% utilization.
		// Rationale: below 80% the vault has spare capacity and rates only need to
		// drift upward gently. Past 80% deposits become scarce relative to demand
		// and the curve must steepen to attract them.

		BaseRateBps: 200, // 2% floor rate at zero utilization.
		// Rationale: an empty vault still pays something, otherwise the first
		// depositor has no reason to show up.

		LowSlope:  5,  // +5 bps per percent of utilization below the kink.
		HighSlope: 50, // +50 bps per percent of excess utilization above the kink.
		// Rationale: a 10x slope jump at the kink makes the scarcity premium
		// unmistakable: the curve reaches 6% at the kink and 16% at full
		// utilization.
	},

	Tiers: [types.TierCount]types.TierConfig{
		types.TierBronze:   {MinDeposit: ether(0), BonusBps: 0},
		types.TierSilver:   {MinDeposit: ether(10), BonusBps: 25},
		types.TierGold:     {MinDeposit: ether(50), BonusBps: 50},
		types.TierPlatinum: {MinDeposit: ether(200), BonusBps: 100},
		types.TierDiamond:  {MinDeposit: ether(1000), BonusBps: 200},
	},
	// Rationale: thresholds grow roughly 4-5x per tier so each step is a real
	// commitment, while the top bonus (2%) stays comparable to the base rate
	// rather than overwhelming it.

	LockPolicies: [types.LockPeriodCount]types.LockPolicyConfig{
		types.LockPeriodNone:               {Duration: 0, BonusMultiplierBps: 10000},
		types.LockPeriodThirtyDays:         {Duration: 30 * 24 * time.Hour, BonusMultiplierBps: 11000},
		types.LockPeriodNinetyDays:         {Duration: 90 * 24 * time.Hour, BonusMultiplierBps: 12500},
		types.LockPeriodOneEightyDays:      {Duration: 180 * 24 * time.Hour, BonusMultiplierBps: 15000},
		types.LockPeriodThreeSixtyFiveDays: {Duration: 365 * 24 * time.Hour, BonusMultiplierBps: 20000},
	},
	// Rationale: the multiplier grows superlinearly with duration because the
	// user's opportunity cost does too. A full-year lock doubles the rate that
	// was current at lock time, which also caps the engine's exposure to
	// frozen legacy rates.

	Fee: types.FeeConfig{
		FeeBps:    1000, // 10% of gains above the high-water mark.
		Recipient: "treasury",
		// Rationale: a fee on excess returns only, never on principal. 10% is
		// low enough to stay competitive and the high-water mark guarantees the
		// same gain is never charged twice. The placeholder recipient is
		// replaced by the vault's fee recipient at startup.
	},
}
