package strategy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

var testCurve = types.RateCurveConfig{
	KinkBps:     8000,
	BaseRateBps: 200,
	LowSlope:    5,
	HighSlope:   50,
}

func TestCurveRate_ZeroCapacityReturnsFloor(t *testing.T) {
	rate := CurveRate(sdkmath.ZeroInt(), sdkmath.NewInt(12345), testCurve)
	assert.Equal(t, int64(200), rate)
}

func TestCurveRate_ZeroUtilization(t *testing.T) {
	rate := CurveRate(sdkmath.NewInt(1000), sdkmath.ZeroInt(), testCurve)
	assert.Equal(t, int64(200), rate)
}

func TestCurveRate_TruncatesPercentConversion(t *testing.T) {
	// 799 bps of utilization is 7 whole percent, not 7.99.
	rate := CurveRate(sdkmath.NewInt(10000), sdkmath.NewInt(799), testCurve)
	assert.Equal(t, int64(200+7*5), rate)
}

func TestCurveRate_ContinuityAtKink(t *testing.T) {
	capacity := sdkmath.NewInt(10000)

	// Exactly at the kink the low branch applies: 200 + 80*5 = 600.
	atKink := CurveRate(capacity, sdkmath.NewInt(8000), testCurve)
	assert.Equal(t, int64(600), atKink)

	// One whole percent above the kink the high branch adds one step: 600 + 1*50.
	aboveKink := CurveRate(capacity, sdkmath.NewInt(8100), testCurve)
	assert.Equal(t, int64(650), aboveKink)
}

func TestCurveRate_FullUtilization(t *testing.T) {
	// 200 + 80*5 + 20*50 = 1600.
	rate := CurveRate(sdkmath.NewInt(10000), sdkmath.NewInt(10000), testCurve)
	assert.Equal(t, int64(1600), rate)
}

func TestCurveRate_UncappedAboveFullUtilization(t *testing.T) {
	// Deposits beyond capacity keep climbing the high branch; no cap applies.
	rate := CurveRate(sdkmath.NewInt(10000), sdkmath.NewInt(20000), testCurve)
	assert.Greater(t, rate, int64(10000))
}

func TestCurveRate_MonotonicInDeposits(t *testing.T) {
	capacity := sdkmath.NewInt(10000)
	prev := int64(-1)
	for deposited := int64(0); deposited <= 10000; deposited += 37 {
		rate := CurveRate(capacity, sdkmath.NewInt(deposited), testCurve)
		require.GreaterOrEqual(t, rate, prev, "rate decreased at deposited=%d", deposited)
		prev = rate
	}
}

func TestValidateRateCurve(t *testing.T) {
	require.NoError(t, ValidateRateCurve(testCurve))

	bad := testCurve
	bad.KinkBps = 10001
	assert.ErrorIs(t, ValidateRateCurve(bad), ErrInvalidRateCurve)

	bad = testCurve
	bad.BaseRateBps = 10001
	assert.ErrorIs(t, ValidateRateCurve(bad), ErrInvalidRateCurve)

	bad = testCurve
	bad.LowSlope = -1
	assert.ErrorIs(t, ValidateRateCurve(bad), ErrInvalidRateCurve)

	// Boundary values are accepted.
	edge := types.RateCurveConfig{KinkBps: 10000, BaseRateBps: 10000, LowSlope: 0, HighSlope: 0}
	assert.NoError(t, ValidateRateCurve(edge))
}
