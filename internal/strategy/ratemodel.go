/*

Utilization rate model: a kinked piecewise-linear curve from deposit
utilization to a base rate in bps. Below the kink the rate climbs by LowSlope
bps per whole percent of utilization, above it by HighSlope bps per whole
percent of excess. The percent conversion truncates (799 bps of utilization
is 7 whole percent), and tests rely on that exact truncation.

*/

package strategy

import (
	"math"

	sdkmath "cosmossdk.io/math"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

var bpsDenom = sdkmath.NewInt(types.BpsDenominator)

// CurveRate derives the base rate from deposited-capacity utilization.
// A capacity of zero prices the vault at the floor rate. The result is not
// capped: pathological slope configuration can exceed 10000 bps, and callers
// must not assume otherwise.
func CurveRate(capacity, deposited sdkmath.Int, curve types.RateCurveConfig) int64 {
	if capacity.IsZero() {
		return curve.BaseRateBps
	}

	utilizationBps := deposited.Mul(bpsDenom).Quo(capacity)

	if utilizationBps.LTE(sdkmath.NewInt(curve.KinkBps)) {
		percent := utilizationBps.QuoRaw(100)
		rate := percent.MulRaw(curve.LowSlope).AddRaw(curve.BaseRateBps)
		return clampToInt64(rate)
	}

	kinkRate := curve.BaseRateBps + (curve.KinkBps/100)*curve.LowSlope
	excessPercent := utilizationBps.SubRaw(curve.KinkBps).QuoRaw(100)
	rate := excessPercent.MulRaw(curve.HighSlope).AddRaw(kinkRate)
	return clampToInt64(rate)
}

// ValidateRateCurve rejects out-of-range curve parameters. Slopes are
// unbounded above but, like every bps quantity here, must not be negative.
func ValidateRateCurve(curve types.RateCurveConfig) error {
	if curve.KinkBps < 0 || curve.KinkBps > types.BpsDenominator {
		return ErrInvalidRateCurve
	}
	if curve.BaseRateBps < 0 || curve.BaseRateBps > types.BpsDenominator {
		return ErrInvalidRateCurve
	}
	if curve.LowSlope < 0 || curve.HighSlope < 0 {
		return ErrInvalidRateCurve
	}
	return nil
}

func clampToInt64(v sdkmath.Int) int64 {
	if !v.IsInt64() {
		return math.MaxInt64
	}
	return v.Int64()
}
