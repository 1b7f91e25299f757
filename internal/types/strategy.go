/*

Core types for the yield strategy engine: the rate curve, deposit tiers,
lock policies and the performance fee configuration.

All monetary amounts are sdkmath.Int. All rates and ratios are int64 basis
points (1 bps = 1/10000). Division on amounts always truncates toward zero,
which callers rely on for deterministic results.

*/

package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

// BpsDenominator is the scale factor for basis-point arithmetic: 10000 bps = 100%.
const BpsDenominator int64 = 10000

// UserID identifies a vault participant. The zero value is the null identity.
type UserID string

// IsNull reports whether the identity is unset.
func (u UserID) IsNull() bool { return u == "" }

// RateCurveConfig describes the kinked piecewise-linear base rate curve.
// Rates below the kink grow by LowSlope bps per whole percent of utilization,
// rates above it by HighSlope bps per whole percent of excess utilization.
type RateCurveConfig struct {
	KinkBps     int64 `json:"kink_bps"`      // utilization threshold where the slope changes
	BaseRateBps int64 `json:"base_rate_bps"` // rate at zero utilization
	LowSlope    int64 `json:"low_slope"`     // bps of rate per percent of utilization below the kink
	HighSlope   int64 `json:"high_slope"`    // bps of rate per percent of utilization above the kink
}

// Tier is a discrete bucket of cumulative deposit size granting a fixed bonus rate.
type Tier int

const (
	TierBronze Tier = iota
	TierSilver
	TierGold
	TierPlatinum
	TierDiamond

	TierCount = int(TierDiamond) + 1
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	case TierDiamond:
		return "diamond"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether the tier is a known variant.
func (t Tier) Valid() bool { return t >= TierBronze && t <= TierDiamond }

// TierConfig is the per-tier entry of the deposit-size ladder.
type TierConfig struct {
	MinDeposit sdkmath.Int `json:"min_deposit"` // minimum cumulative deposit for the tier
	BonusBps   int64       `json:"bonus_bps"`   // bonus added on top of the base rate
}

// LockPeriod is the duration class of a time-locked deposit.
type LockPeriod int

const (
	LockPeriodNone LockPeriod = iota
	LockPeriodThirtyDays
	LockPeriodNinetyDays
	LockPeriodOneEightyDays
	LockPeriodThreeSixtyFiveDays

	LockPeriodCount = int(LockPeriodThreeSixtyFiveDays) + 1
)

// String returns the period name.
func (p LockPeriod) String() string {
	switch p {
	case LockPeriodNone:
		return "none"
	case LockPeriodThirtyDays:
		return "30d"
	case LockPeriodNinetyDays:
		return "90d"
	case LockPeriodOneEightyDays:
		return "180d"
	case LockPeriodThreeSixtyFiveDays:
		return "365d"
	default:
		return fmt.Sprintf("period(%d)", int(p))
	}
}

// Valid reports whether the period is a known variant.
func (p LockPeriod) Valid() bool { return p >= LockPeriodNone && p <= LockPeriodThreeSixtyFiveDays }

// LockPolicyConfig is the per-period entry of the lock policy table.
// The multiplier is applied to the (base + tier bonus) rate at lock time;
// 10000 means no boost, 20000 doubles the rate.
type LockPolicyConfig struct {
	Duration           time.Duration `json:"duration"`
	BonusMultiplierBps int64         `json:"bonus_multiplier_bps"`
}

// UserLock is a user's single active time-locked commitment. It is created by
// LockDeposit, never mutated, and destroyed by UnlockDeposit.
type UserLock struct {
	Amount     sdkmath.Int `json:"amount"`      // deposit balance snapshotted at lock time
	UnlockTime time.Time   `json:"unlock_time"` // first instant at which unlock succeeds
	Period     LockPeriod  `json:"period"`
	BonusRate  int64       `json:"bonus_rate"` // frozen effective rate in bps
}

// FeeConfig configures the high-water-mark performance fee.
type FeeConfig struct {
	FeeBps    int64  `json:"fee_bps"`   // share of excess returns taken as fee
	Recipient UserID `json:"recipient"` // destination of charged fees
}

// StrategyParameters bundles every governance-settable table of the engine.
// Tier and lock tables are indexed by ordinal and must carry exactly one entry
// per enum variant.
type StrategyParameters struct {
	RateCurve    RateCurveConfig                   `json:"rate_curve"`
	Tiers        [TierCount]TierConfig             `json:"tiers"`
	LockPolicies [LockPeriodCount]LockPolicyConfig `json:"lock_policies"`
	Fee          FeeConfig                         `json:"fee"`
}

// StrategyInfo is the aggregate per-user view returned by the engine.
type StrategyInfo struct {
	RateBps       int64       `json:"rate_bps"`
	Tier          Tier        `json:"tier"`
	TierBonusBps  int64       `json:"tier_bonus_bps"`
	IsLocked      bool        `json:"is_locked"`
	LockPeriod    LockPeriod  `json:"lock_period"`
	UnlockTime    *time.Time  `json:"unlock_time,omitempty"`
	EffectiveBps  int64       `json:"effective_bps"`
	PendingFee    sdkmath.Int `json:"pending_fee"`
}
