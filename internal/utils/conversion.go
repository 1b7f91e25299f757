/*
This file contains common utility functions for converting between wire/storage
representations and SDK math types, with strict validation.
*/

package utils

import (
	"errors"
	"fmt"
	"strconv"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountEmpty    = errors.New("amount is empty")
	ErrAmountInvalid  = errors.New("amount is not a valid integer")
	ErrAmountNegative = errors.New("amount is negative")
	ErrBpsInvalid     = errors.New("basis points value is invalid")
)

// ParseAmount converts a decimal string into a non-negative SDK Int.
// Used for request payloads and ledger rows, where amounts travel as strings
// to avoid floating point.
func ParseAmount(raw string) (sdkmath.Int, error) {
	if raw == "" {
		return sdkmath.ZeroInt(), ErrAmountEmpty
	}
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrAmountInvalid, raw)
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAmountNegative, amount)
	}
	return amount, nil
}

// FormatAmount renders an SDK Int for wire/storage. Nil renders as zero so
// uninitialized fields never leak a panic into serialization.
func FormatAmount(amount sdkmath.Int) string {
	if amount.IsNil() {
		return "0"
	}
	return amount.String()
}

// ParseBps converts a decimal string into an int64 basis-points value.
func ParseBps(raw string) (int64, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBpsInvalid, raw)
	}
	return value, nil
}

// BpsToPercent renders a bps quantity as a human-readable percentage string,
// e.g. 1250 -> "12.50%". Display only; never used in calculations.
func BpsToPercent(bps int64) string {
	whole := bps / 100
	frac := bps % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d%%", whole, frac)
}
