/*

Performance fee accountant: tracks a high-water mark of value per 10000
shares, globally and per user, and charges a fee on the portion of gains
above the user's reference mark.

Charging reads supply and shares exactly once: the mark written after a
successful charge is the same supplyPerShare the fee was computed from. The
mark is only advanced after the value transfer succeeds, so a failed transfer
leaves the accountant untouched.

*/

package strategy

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// PendingFee returns the performance fee currently owed by the user. Zero
// whenever supply per share is at or below the user's reference mark.
func (e *Engine) PendingFee(user types.UserID) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fee, _, err := e.pendingFeeLocked(user)
	return fee, err
}

// pendingFeeLocked computes the fee and the supply-per-share figure it was
// derived from, so ChargeFee can reuse the same reading as the new mark.
func (e *Engine) pendingFeeLocked(user types.UserID) (sdkmath.Int, sdkmath.Int, error) {
	supply, err := e.token.TotalSupply()
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("failed to read total supply: %w", err)
	}
	shares, err := e.token.TotalShares()
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("failed to read total shares: %w", err)
	}
	if shares.IsZero() {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), nil
	}

	supplyPerShare := supply.Mul(bpsDenom).Quo(shares)

	mark := e.globalMark
	if userMark, ok := e.userMarks[user]; ok {
		mark = userMark
	}
	if supplyPerShare.LTE(mark) {
		return sdkmath.ZeroInt(), supplyPerShare, nil
	}

	balance, err := e.token.BalanceOf(user)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), fmt.Errorf("failed to read balance for %s: %w", user, err)
	}

	excessReturn := supplyPerShare.Sub(mark).Mul(balance).Quo(bpsDenom)
	fee := excessReturn.MulRaw(e.params.Fee.FeeBps).Quo(bpsDenom)
	return fee, supplyPerShare, nil
}

// ChargeFee collects any pending fee from the user and advances their
// high-water mark. Invoked by the withdrawal flow before funds are released.
func (e *Engine) ChargeFee(user types.UserID) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chargeFeeLocked(user)
}

func (e *Engine) chargeFeeLocked(user types.UserID) (sdkmath.Int, error) {
	fee, supplyPerShare, err := e.pendingFeeLocked(user)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if fee.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	if err := e.token.TransferValue(user, e.params.Fee.Recipient, fee); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("fee transfer failed for %s: %w", user, err)
	}

	// Mark moves only after the transfer is confirmed.
	e.userMarks[user] = supplyPerShare
	if e.store != nil {
		if err := e.store.SaveUserMark(user, supplyPerShare); err != nil {
			e.logger.Error().Err(err).Str("user", string(user)).Msg("Failed to persist user high-water mark")
		}
	}

	e.emit(types.StrategyEvent{
		Kind: types.EventFeeCharged,
		User: user,
		Payload: map[string]any{
			"amount":    fee.String(),
			"new_mark":  supplyPerShare.String(),
			"recipient": string(e.params.Fee.Recipient),
		},
	})
	e.logger.Info().
		Str("user", string(user)).
		Str("fee", fee.String()).
		Str("newMark", supplyPerShare.String()).
		Msg("Performance fee charged")
	return fee, nil
}

// UpdateGlobalHighWaterMark overwrites the global mark from current supply
// and shares. Authorized. A no-op while no shares exist. Decreases are
// permitted as a governance reset tool, but logged loudly.
func (e *Engine) UpdateGlobalHighWaterMark(caller types.UserID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.authorizeLocked(caller); err != nil {
		return err
	}

	supply, err := e.token.TotalSupply()
	if err != nil {
		return fmt.Errorf("failed to read total supply: %w", err)
	}
	shares, err := e.token.TotalShares()
	if err != nil {
		return fmt.Errorf("failed to read total shares: %w", err)
	}
	if shares.IsZero() {
		e.logger.Debug().Msg("Global high-water mark update skipped: no shares outstanding")
		return nil
	}

	before := e.globalMark
	newMark := supply.Mul(bpsDenom).Quo(shares)
	if newMark.LT(before) {
		e.logger.Warn().
			Str("before", before.String()).
			Str("after", newMark.String()).
			Msg("Global high-water mark decreased")
	}
	e.globalMark = newMark
	if e.store != nil {
		if err := e.store.SaveGlobalMark(newMark); err != nil {
			e.logger.Error().Err(err).Msg("Failed to persist global high-water mark")
		}
	}

	e.emit(types.StrategyEvent{
		Kind: types.EventHighWaterMarkUpdated,
		Payload: map[string]any{
			"before": before.String(),
			"after":  newMark.String(),
		},
	})
	e.logger.Info().
		Str("before", before.String()).
		Str("after", newMark.String()).
		Msg("Global high-water mark updated")
	return nil
}

// GlobalHighWaterMark returns the current global mark.
func (e *Engine) GlobalHighWaterMark() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globalMark
}

// UserHighWaterMark returns the user's override mark, if one was set by a
// past fee charge.
func (e *Engine) UserHighWaterMark(user types.UserID) (sdkmath.Int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	mark, ok := e.userMarks[user]
	return mark, ok
}
