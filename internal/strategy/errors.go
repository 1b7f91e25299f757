package strategy

import "errors"

// Configuration-validation errors. The offending call aborts with no state change.
var (
	ErrInvalidRateCurve      = errors.New("rate curve config is invalid")
	ErrInvalidTierBonus      = errors.New("tier bonus exceeds maximum")
	ErrInvalidTierConfig     = errors.New("tier config is invalid")
	ErrInvalidLockPolicy     = errors.New("lock policy config is invalid")
	ErrInvalidLockMultiplier = errors.New("lock bonus multiplier out of range")
	ErrInvalidFeeRate        = errors.New("performance fee rate exceeds maximum")
	ErrNullRecipient         = errors.New("fee recipient is the null identity")
	ErrUnknownTier           = errors.New("unknown tier")
	ErrUnknownLockPeriod     = errors.New("unknown lock period")
)

// State-precondition errors. The caller must correct the precondition and resubmit.
var (
	ErrLockAlreadyExists   = errors.New("user already has a lock")
	ErrNoLockFound         = errors.New("no lock found for user")
	ErrStillLocked         = errors.New("lock has not expired yet")
	ErrInsufficientBalance = errors.New("no deposit balance to lock")
)

// ErrUnauthorized is returned when the caller lacks the privilege required
// for a configuration operation.
var ErrUnauthorized = errors.New("caller is not authorized")
