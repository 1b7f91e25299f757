/*

Tier classifier: maps a user's cumulative deposit to a discrete tier and its
bonus rate. Tiers are scanned from highest ordinal to lowest; the first tier
whose threshold the deposit meets wins, so a non-monotonic ladder still
classifies deterministically.

*/

package strategy

import (
	sdkmath "cosmossdk.io/math"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// MaxTierBonusBps bounds the bonus any single tier may grant.
const MaxTierBonusBps int64 = 1000

// ClassifyTier returns the highest tier whose minimum deposit the user meets,
// defaulting to the lowest tier.
func ClassifyTier(deposit sdkmath.Int, tiers [types.TierCount]types.TierConfig) types.Tier {
	for ordinal := types.TierCount - 1; ordinal > 0; ordinal-- {
		if deposit.GTE(tiers[ordinal].MinDeposit) {
			return types.Tier(ordinal)
		}
	}
	return types.TierBronze
}

// TierBonus returns the configured bonus for a tier.
func TierBonus(tier types.Tier, tiers [types.TierCount]types.TierConfig) int64 {
	if !tier.Valid() {
		return 0
	}
	return tiers[int(tier)].BonusBps
}

// ValidateTierConfig rejects an out-of-range tier entry.
func ValidateTierConfig(cfg types.TierConfig) error {
	if cfg.MinDeposit.IsNil() || cfg.MinDeposit.IsNegative() {
		return ErrInvalidTierConfig
	}
	if cfg.BonusBps < 0 || cfg.BonusBps > MaxTierBonusBps {
		return ErrInvalidTierBonus
	}
	return nil
}

// tierLadderMonotonic reports whether thresholds strictly increase with
// ordinal. Governance can legally break this; callers only warn on it.
func tierLadderMonotonic(tiers [types.TierCount]types.TierConfig) bool {
	for ordinal := 1; ordinal < types.TierCount; ordinal++ {
		if !tiers[ordinal].MinDeposit.GT(tiers[ordinal-1].MinDeposit) {
			return false
		}
	}
	return true
}
