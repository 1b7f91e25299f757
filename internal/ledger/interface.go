package ledger

import (
	sdkmath "cosmossdk.io/math"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// VaultLedger exposes the deposit bookkeeping of the surrounding vault.
// Custody, minting and the base deposit/withdraw flow live with the vault;
// the engine only reads these figures.
type VaultLedger interface {
	// TotalDeposited returns the total value currently deposited in the vault.
	TotalDeposited() (sdkmath.Int, error)

	// MaxCapacity returns the vault's deposit capacity. A zero capacity is
	// valid and prices the vault at the floor rate.
	MaxCapacity() (sdkmath.Int, error)

	// UserDeposit returns the user's cumulative deposit figure.
	UserDeposit(user types.UserID) (sdkmath.Int, error)

	// FeeRecipient returns the vault's configured fee destination.
	FeeRecipient() (types.UserID, error)

	// IsAuthorized reports whether the caller may invoke privileged
	// configuration operations. This is the same predicate used across the
	// surrounding vault.
	IsAuthorized(caller types.UserID) (bool, error)
}

// TokenLedger exposes the vault share token system.
type TokenLedger interface {
	// TotalSupply returns the total underlying value backing all shares.
	TotalSupply() (sdkmath.Int, error)

	// TotalShares returns the number of shares outstanding.
	TotalShares() (sdkmath.Int, error)

	// BalanceOf returns the user's share balance.
	BalanceOf(user types.UserID) (sdkmath.Int, error)

	// TransferValue moves value between holders. It either completes fully
	// or returns an error with no effect.
	TransferValue(from, to types.UserID, amount sdkmath.Int) error
}
