package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

func TestMemoryVault_DepositBookkeeping(t *testing.T) {
	vault := NewMemoryVault(sdkmath.NewInt(1000), "treasury")

	total, err := vault.TotalDeposited()
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	vault.SetDeposit("alice", sdkmath.NewInt(300))
	vault.SetDeposit("bob", sdkmath.NewInt(200))

	total, err = vault.TotalDeposited()
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(500), total)

	// Overwriting replaces the old figure instead of adding to it.
	vault.SetDeposit("alice", sdkmath.NewInt(100))
	total, err = vault.TotalDeposited()
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(300), total)

	deposit, err := vault.UserDeposit("alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), deposit)

	// Unknown users read as zero, not as an error.
	deposit, err = vault.UserDeposit("carol")
	require.NoError(t, err)
	assert.True(t, deposit.IsZero())
}

func TestMemoryVault_Authorization(t *testing.T) {
	vault := NewMemoryVault(sdkmath.NewInt(1000), "treasury")

	ok, err := vault.IsAuthorized("governance")
	require.NoError(t, err)
	assert.False(t, ok)

	vault.Authorize("governance", true)
	ok, err = vault.IsAuthorized("governance")
	require.NoError(t, err)
	assert.True(t, ok)

	vault.Authorize("governance", false)
	ok, err = vault.IsAuthorized("governance")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryToken_TransferValue(t *testing.T) {
	token := NewMemoryToken(sdkmath.NewInt(10000), sdkmath.NewInt(10000))
	token.SetBalance("alice", sdkmath.NewInt(500))

	require.NoError(t, token.TransferValue("alice", "treasury", sdkmath.NewInt(200)))

	balance, err := token.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(300), balance)
	balance, err = token.BalanceOf("treasury")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(200), balance)
}

func TestMemoryToken_TransferValueInsufficient(t *testing.T) {
	token := NewMemoryToken(sdkmath.NewInt(10000), sdkmath.NewInt(10000))
	token.SetBalance("alice", sdkmath.NewInt(100))

	err := token.TransferValue("alice", "treasury", sdkmath.NewInt(200))
	assert.ErrorIs(t, err, ErrInsufficientValue)

	// A sender with no balance entry at all reads as zero.
	err = token.TransferValue(types.UserID("ghost"), "treasury", sdkmath.NewInt(1))
	assert.ErrorIs(t, err, ErrInsufficientValue)

	err = token.TransferValue("alice", "treasury", sdkmath.NewInt(-1))
	assert.Error(t, err)

	// Failed transfers leave both sides untouched.
	balance, err := token.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(100), balance)
	balance, err = token.BalanceOf("treasury")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}
