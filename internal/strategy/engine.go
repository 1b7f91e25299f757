/*

The strategy engine composes the utilization rate model, the tier classifier,
the lock manager and the performance fee accountant over two collaborators:
the vault ledger (deposits, capacity, authorization) and the share-token
ledger (supply, shares, balances, value transfer).

Every public operation runs to completion under a single mutex, and validates
all of its preconditions before the first mutation, so a failing check aborts
with no observable state change.

*/

package strategy

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cryptonique0/basero-yield-engine/internal/ledger"
	"github.com/cryptonique0/basero-yield-engine/internal/logger"
	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// DefaultHighWaterMark is the initial global mark: 10000 units of value per
// 10000 shares, i.e. par.
const DefaultHighWaterMark int64 = 10000

// MaxFeeBps bounds the performance fee rate.
const MaxFeeBps int64 = 5000

// Persistence receives engine state changes so locks, marks and parameters
// survive restarts. A failed write is logged, never propagated: durability of
// the mirror must not abort an already-committed operation.
type Persistence interface {
	SaveLock(user types.UserID, lock types.UserLock) error
	DeleteLock(user types.UserID) error
	SaveUserMark(user types.UserID, mark sdkmath.Int) error
	SaveGlobalMark(mark sdkmath.Int) error
	SaveParameters(params types.StrategyParameters) error
}

// Config holds the dependencies for creating an Engine.
type Config struct {
	Vault  ledger.VaultLedger
	Token  ledger.TokenLedger
	Params types.StrategyParameters

	// Optional.
	Sink        types.EventSink
	Persistence Persistence
	Now         func() time.Time

	// Preloaded state, typically restored from the state store at startup.
	Locks      map[types.UserID]types.UserLock
	UserMarks  map[types.UserID]sdkmath.Int
	GlobalMark sdkmath.Int
}

// Engine is the yield strategy engine.
type Engine struct {
	mu     sync.Mutex
	logger zerolog.Logger

	vault ledger.VaultLedger
	token ledger.TokenLedger

	params     types.StrategyParameters
	locks      map[types.UserID]types.UserLock
	userMarks  map[types.UserID]sdkmath.Int
	globalMark sdkmath.Int

	sink  types.EventSink
	store Persistence
	now   func() time.Time
}

// NewEngine creates an engine after validating its dependencies and the full
// parameter set, including an exhaustiveness check over the tier and lock
// policy tables.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault ledger cannot be nil")
	}
	if cfg.Token == nil {
		return nil, fmt.Errorf("token ledger cannot be nil")
	}
	if err := ValidateParameters(cfg.Params); err != nil {
		return nil, fmt.Errorf("strategy parameters validation failed: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	globalMark := cfg.GlobalMark
	if globalMark.IsNil() {
		globalMark = sdkmath.NewInt(DefaultHighWaterMark)
	}
	locks := cfg.Locks
	if locks == nil {
		locks = make(map[types.UserID]types.UserLock)
	}
	userMarks := cfg.UserMarks
	if userMarks == nil {
		userMarks = make(map[types.UserID]sdkmath.Int)
	}

	e := &Engine{
		logger:     logger.GetForComponent("strategy_engine"),
		vault:      cfg.Vault,
		token:      cfg.Token,
		params:     cfg.Params,
		locks:      locks,
		userMarks:  userMarks,
		globalMark: globalMark,
		sink:       cfg.Sink,
		store:      cfg.Persistence,
		now:        now,
	}

	e.logger.Info().
		Int("activeLocks", len(locks)).
		Int("userMarks", len(userMarks)).
		Str("globalMark", globalMark.String()).
		Msg("Strategy engine created")
	return e, nil
}

// ValidateParameters checks every governance table for out-of-range entries.
func ValidateParameters(params types.StrategyParameters) error {
	if err := ValidateRateCurve(params.RateCurve); err != nil {
		return err
	}
	for ordinal := 0; ordinal < types.TierCount; ordinal++ {
		if err := ValidateTierConfig(params.Tiers[ordinal]); err != nil {
			return fmt.Errorf("tier %s: %w", types.Tier(ordinal), err)
		}
	}
	for ordinal := 0; ordinal < types.LockPeriodCount; ordinal++ {
		if err := ValidateLockPolicy(params.LockPolicies[ordinal]); err != nil {
			return fmt.Errorf("lock period %s: %w", types.LockPeriod(ordinal), err)
		}
	}
	if params.Fee.FeeBps < 0 || params.Fee.FeeBps > MaxFeeBps {
		return ErrInvalidFeeRate
	}
	if params.Fee.Recipient.IsNull() {
		return ErrNullRecipient
	}
	return nil
}

// Parameters returns a copy of the current parameter set.
func (e *Engine) Parameters() types.StrategyParameters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// Rate returns the current base rate from vault utilization.
func (e *Engine) Rate() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rateLocked()
}

func (e *Engine) rateLocked() (int64, error) {
	capacity, err := e.vault.MaxCapacity()
	if err != nil {
		return 0, fmt.Errorf("failed to read vault capacity: %w", err)
	}
	deposited, err := e.vault.TotalDeposited()
	if err != nil {
		return 0, fmt.Errorf("failed to read total deposited: %w", err)
	}
	return CurveRate(capacity, deposited, e.params.RateCurve), nil
}

// TierOf classifies the user by cumulative deposit.
func (e *Engine) TierOf(user types.UserID) (types.Tier, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tierOfLocked(user)
}

func (e *Engine) tierOfLocked(user types.UserID) (types.Tier, error) {
	deposit, err := e.vault.UserDeposit(user)
	if err != nil {
		return types.TierBronze, fmt.Errorf("failed to read deposit for %s: %w", user, err)
	}
	return ClassifyTier(deposit, e.params.Tiers), nil
}

// TierBonusOf returns the bonus bps of the user's current tier.
func (e *Engine) TierBonusOf(user types.UserID) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tier, err := e.tierOfLocked(user)
	if err != nil {
		return 0, err
	}
	return TierBonus(tier, e.params.Tiers), nil
}

// EffectiveRate returns the rate the user actually earns. An active
// (non-expired) lock fully overrides base plus tier while it lasts.
func (e *Engine) EffectiveRate(user types.UserID) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectiveRateLocked(user)
}

func (e *Engine) effectiveRateLocked(user types.UserID) (int64, error) {
	if lock, ok := e.locks[user]; ok && lock.UnlockTime.After(e.now()) {
		return lock.BonusRate, nil
	}
	rate, err := e.rateLocked()
	if err != nil {
		return 0, err
	}
	tier, err := e.tierOfLocked(user)
	if err != nil {
		return 0, err
	}
	return rate + TierBonus(tier, e.params.Tiers), nil
}

// StrategyInfo assembles the aggregate per-user view.
func (e *Engine) StrategyInfo(user types.UserID) (types.StrategyInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rate, err := e.rateLocked()
	if err != nil {
		return types.StrategyInfo{}, err
	}
	tier, err := e.tierOfLocked(user)
	if err != nil {
		return types.StrategyInfo{}, err
	}
	effective, err := e.effectiveRateLocked(user)
	if err != nil {
		return types.StrategyInfo{}, err
	}
	fee, _, err := e.pendingFeeLocked(user)
	if err != nil {
		return types.StrategyInfo{}, err
	}

	info := types.StrategyInfo{
		RateBps:      rate,
		Tier:         tier,
		TierBonusBps: TierBonus(tier, e.params.Tiers),
		EffectiveBps: effective,
		PendingFee:   fee,
	}
	if lock, ok := e.locks[user]; ok {
		info.IsLocked = lock.UnlockTime.After(e.now())
		info.LockPeriod = lock.Period
		unlockTime := lock.UnlockTime
		info.UnlockTime = &unlockTime
	}
	return info, nil
}

// PrepareWithdrawal gates the vault's release of funds: it rejects while the
// user is locked, then charges any pending performance fee against the
// pre-withdrawal balance. The vault proceeds only when this returns nil.
func (e *Engine) PrepareWithdrawal(user types.UserID) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lock, ok := e.locks[user]; ok && lock.UnlockTime.After(e.now()) {
		return sdkmath.ZeroInt(), fmt.Errorf("cannot withdraw: %w", ErrStillLocked)
	}
	return e.chargeFeeLocked(user)
}

// SetUtilizationConfig replaces the rate curve. Authorized.
func (e *Engine) SetUtilizationConfig(caller types.UserID, curve types.RateCurveConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorizeLocked(caller); err != nil {
		return err
	}
	if err := ValidateRateCurve(curve); err != nil {
		return err
	}

	before := e.params.RateCurve
	e.params.RateCurve = curve
	e.persistParameters()
	e.emit(types.StrategyEvent{
		Kind: types.EventConfigChanged,
		Payload: map[string]any{
			"section": "utilization",
			"before":  before,
			"after":   curve,
		},
	})
	e.logger.Info().
		Int64("kinkBps", curve.KinkBps).
		Int64("baseRateBps", curve.BaseRateBps).
		Int64("lowSlope", curve.LowSlope).
		Int64("highSlope", curve.HighSlope).
		Msg("Rate curve updated")
	return nil
}

// SetTierConfig overwrites one tier's entry. Authorized. No ordering check is
// made against neighboring tiers; a broken ladder only logs a warning.
func (e *Engine) SetTierConfig(caller types.UserID, tier types.Tier, cfg types.TierConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorizeLocked(caller); err != nil {
		return err
	}
	if !tier.Valid() {
		return ErrUnknownTier
	}
	if err := ValidateTierConfig(cfg); err != nil {
		return err
	}

	before := e.params.Tiers[int(tier)]
	e.params.Tiers[int(tier)] = cfg
	if !tierLadderMonotonic(e.params.Tiers) {
		e.logger.Warn().
			Str("tier", tier.String()).
			Str("minDeposit", cfg.MinDeposit.String()).
			Msg("Tier update produced a non-monotonic threshold ladder")
	}
	e.persistParameters()
	e.emit(types.StrategyEvent{
		Kind: types.EventConfigChanged,
		Payload: map[string]any{
			"section": "tier",
			"tier":    tier.String(),
			"before":  before,
			"after":   cfg,
		},
	})
	e.logger.Info().
		Str("tier", tier.String()).
		Str("minDeposit", cfg.MinDeposit.String()).
		Int64("bonusBps", cfg.BonusBps).
		Msg("Tier config updated")
	return nil
}

// SetLockConfig overwrites one lock period's policy. Authorized. Existing
// locks are unaffected: their bonus rate was frozen at lock time.
func (e *Engine) SetLockConfig(caller types.UserID, period types.LockPeriod, cfg types.LockPolicyConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorizeLocked(caller); err != nil {
		return err
	}
	if !period.Valid() {
		return ErrUnknownLockPeriod
	}
	if err := ValidateLockPolicy(cfg); err != nil {
		return err
	}

	before := e.params.LockPolicies[int(period)]
	e.params.LockPolicies[int(period)] = cfg
	e.persistParameters()
	e.emit(types.StrategyEvent{
		Kind: types.EventConfigChanged,
		Payload: map[string]any{
			"section": "lock",
			"period":  period.String(),
			"before":  before,
			"after":   cfg,
		},
	})
	e.logger.Info().
		Str("period", period.String()).
		Dur("duration", cfg.Duration).
		Int64("bonusMultiplierBps", cfg.BonusMultiplierBps).
		Msg("Lock policy updated")
	return nil
}

// SetPerformanceFeeConfig replaces the fee rate and recipient. Authorized.
func (e *Engine) SetPerformanceFeeConfig(caller types.UserID, feeBps int64, recipient types.UserID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorizeLocked(caller); err != nil {
		return err
	}
	if feeBps < 0 || feeBps > MaxFeeBps {
		return ErrInvalidFeeRate
	}
	if recipient.IsNull() {
		return ErrNullRecipient
	}

	before := e.params.Fee
	e.params.Fee = types.FeeConfig{FeeBps: feeBps, Recipient: recipient}
	e.persistParameters()
	e.emit(types.StrategyEvent{
		Kind: types.EventConfigChanged,
		Payload: map[string]any{
			"section": "fee",
			"before":  before,
			"after":   e.params.Fee,
		},
	})
	e.logger.Info().
		Int64("feeBps", feeBps).
		Str("recipient", string(recipient)).
		Msg("Performance fee config updated")
	return nil
}

func (e *Engine) authorizeLocked(caller types.UserID) error {
	authorized, err := e.vault.IsAuthorized(caller)
	if err != nil {
		return fmt.Errorf("authorization check failed for %s: %w", caller, err)
	}
	if !authorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

func (e *Engine) persistParameters() {
	if e.store == nil {
		return
	}
	if err := e.store.SaveParameters(e.params); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist strategy parameters")
	}
}

// emit records a notification with the event sink and logs it. Sink failures
// are logged and swallowed: observability must not abort committed operations.
func (e *Engine) emit(event types.StrategyEvent) {
	event.ID = uuid.New().String()
	event.Timestamp = e.now()

	e.logger.Debug().
		Str("event_id", event.ID).
		Str("kind", string(event.Kind)).
		Str("user", string(event.User)).
		Msg("Strategy event emitted")

	if e.sink == nil {
		return
	}
	if err := e.sink.Record(event); err != nil {
		e.logger.Error().Err(err).Str("kind", string(event.Kind)).Msg("Failed to record strategy event")
	}
}
