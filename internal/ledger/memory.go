/*

In-memory implementations of the vault and token collaborators. Used by the
test suite and by simulation mode, where the engine runs against a synthetic
vault instead of the live bookkeeping tables.

*/

package ledger

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// ErrInsufficientValue is returned by TransferValue when the sender's balance
// does not cover the amount.
var ErrInsufficientValue = errors.New("insufficient value for transfer")

// MemoryVault is a VaultLedger backed by plain maps.
type MemoryVault struct {
	mu         sync.RWMutex
	deposited  sdkmath.Int
	capacity   sdkmath.Int
	deposits   map[types.UserID]sdkmath.Int
	recipient  types.UserID
	authorized map[types.UserID]bool
}

// NewMemoryVault creates an empty vault with the given capacity and fee recipient.
func NewMemoryVault(capacity sdkmath.Int, recipient types.UserID) *MemoryVault {
	return &MemoryVault{
		deposited:  sdkmath.ZeroInt(),
		capacity:   capacity,
		deposits:   make(map[types.UserID]sdkmath.Int),
		recipient:  recipient,
		authorized: make(map[types.UserID]bool),
	}
}

// SetDeposit records a user's cumulative deposit and adjusts the vault total.
func (v *MemoryVault) SetDeposit(user types.UserID, amount sdkmath.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if prev, ok := v.deposits[user]; ok {
		v.deposited = v.deposited.Sub(prev)
	}
	v.deposits[user] = amount
	v.deposited = v.deposited.Add(amount)
}

// Authorize grants or revokes a caller's configuration privilege.
func (v *MemoryVault) Authorize(caller types.UserID, allowed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.authorized[caller] = allowed
}

func (v *MemoryVault) TotalDeposited() (sdkmath.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.deposited, nil
}

func (v *MemoryVault) MaxCapacity() (sdkmath.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.capacity, nil
}

func (v *MemoryVault) UserDeposit(user types.UserID) (sdkmath.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if amount, ok := v.deposits[user]; ok {
		return amount, nil
	}
	return sdkmath.ZeroInt(), nil
}

func (v *MemoryVault) FeeRecipient() (types.UserID, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.recipient, nil
}

func (v *MemoryVault) IsAuthorized(caller types.UserID) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.authorized[caller], nil
}

// MemoryToken is a TokenLedger backed by plain maps.
type MemoryToken struct {
	mu       sync.RWMutex
	supply   sdkmath.Int
	shares   sdkmath.Int
	balances map[types.UserID]sdkmath.Int
}

// NewMemoryToken creates a token ledger with the given supply and shares.
func NewMemoryToken(supply, shares sdkmath.Int) *MemoryToken {
	return &MemoryToken{
		supply:   supply,
		shares:   shares,
		balances: make(map[types.UserID]sdkmath.Int),
	}
}

// SetSupply overwrites the total supply and shares figures.
func (t *MemoryToken) SetSupply(supply, shares sdkmath.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.supply = supply
	t.shares = shares
}

// SetBalance overwrites a user's balance.
func (t *MemoryToken) SetBalance(user types.UserID, amount sdkmath.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[user] = amount
}

func (t *MemoryToken) TotalSupply() (sdkmath.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supply, nil
}

func (t *MemoryToken) TotalShares() (sdkmath.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.shares, nil
}

func (t *MemoryToken) BalanceOf(user types.UserID) (sdkmath.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if amount, ok := t.balances[user]; ok {
		return amount, nil
	}
	return sdkmath.ZeroInt(), nil
}

func (t *MemoryToken) TransferValue(from, to types.UserID, amount sdkmath.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if amount.IsNegative() {
		return fmt.Errorf("transfer amount %s is negative", amount)
	}
	balance, ok := t.balances[from]
	if !ok {
		balance = sdkmath.ZeroInt()
	}
	if balance.LT(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientValue, from, balance, amount)
	}
	t.balances[from] = balance.Sub(amount)
	if dest, ok := t.balances[to]; ok {
		t.balances[to] = dest.Add(amount)
	} else {
		t.balances[to] = amount
	}
	return nil
}
