/*

Live collaborator implementations reading the vault and share-token
bookkeeping tables maintained by the host deposit vault. The engine never
writes deposit or balance rows; the one mutation it performs is the fee
transfer, executed as a single transaction against the balance table.

*/

package ledger

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/cryptonique0/basero-yield-engine/internal/logger"
	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// PostgresVault is a VaultLedger over the vault bookkeeping tables.
type PostgresVault struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewPostgresVault wraps an initialized connection pool.
func NewPostgresVault(db *sql.DB) (*PostgresVault, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresVault{db: db, logger: logger.GetForComponent("vault_ledger")}, nil
}

func (v *PostgresVault) scanAmount(query string, args ...any) (sdkmath.Int, error) {
	var raw string
	if err := v.db.QueryRow(query, args...).Scan(&raw); err != nil {
		return sdkmath.ZeroInt(), err
	}
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("invalid amount %q in vault ledger", raw)
	}
	return amount, nil
}

func (v *PostgresVault) TotalDeposited() (sdkmath.Int, error) {
	amount, err := v.scanAmount(`SELECT total_deposited FROM vault_state WHERE id = 1;`)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read total deposited: %w", err)
	}
	return amount, nil
}

func (v *PostgresVault) MaxCapacity() (sdkmath.Int, error) {
	amount, err := v.scanAmount(`SELECT max_capacity FROM vault_state WHERE id = 1;`)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read max capacity: %w", err)
	}
	return amount, nil
}

func (v *PostgresVault) UserDeposit(user types.UserID) (sdkmath.Int, error) {
	amount, err := v.scanAmount(`SELECT cumulative_deposit FROM vault_deposits WHERE user_id = $1;`, string(user))
	if err == sql.ErrNoRows {
		return sdkmath.ZeroInt(), nil
	}
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read deposit for %s: %w", user, err)
	}
	return amount, nil
}

func (v *PostgresVault) FeeRecipient() (types.UserID, error) {
	var recipient string
	err := v.db.QueryRow(`SELECT fee_recipient FROM vault_state WHERE id = 1;`).Scan(&recipient)
	if err != nil {
		return "", fmt.Errorf("failed to read fee recipient: %w", err)
	}
	return types.UserID(recipient), nil
}

func (v *PostgresVault) IsAuthorized(caller types.UserID) (bool, error) {
	var authorized bool
	err := v.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM vault_operators WHERE user_id = $1);`, string(caller)).Scan(&authorized)
	if err != nil {
		return false, fmt.Errorf("failed to check authorization for %s: %w", caller, err)
	}
	return authorized, nil
}

// PostgresToken is a TokenLedger over the share-token bookkeeping tables.
type PostgresToken struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewPostgresToken wraps an initialized connection pool.
func NewPostgresToken(db *sql.DB) (*PostgresToken, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	return &PostgresToken{db: db, logger: logger.GetForComponent("token_ledger")}, nil
}

func (t *PostgresToken) scanAmount(query string, args ...any) (sdkmath.Int, error) {
	var raw string
	if err := t.db.QueryRow(query, args...).Scan(&raw); err != nil {
		return sdkmath.ZeroInt(), err
	}
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("invalid amount %q in token ledger", raw)
	}
	return amount, nil
}

func (t *PostgresToken) TotalSupply() (sdkmath.Int, error) {
	amount, err := t.scanAmount(`SELECT total_supply FROM token_state WHERE id = 1;`)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read total supply: %w", err)
	}
	return amount, nil
}

func (t *PostgresToken) TotalShares() (sdkmath.Int, error) {
	amount, err := t.scanAmount(`SELECT total_shares FROM token_state WHERE id = 1;`)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read total shares: %w", err)
	}
	return amount, nil
}

func (t *PostgresToken) BalanceOf(user types.UserID) (sdkmath.Int, error) {
	amount, err := t.scanAmount(`SELECT balance FROM token_balances WHERE user_id = $1;`, string(user))
	if err == sql.ErrNoRows {
		return sdkmath.ZeroInt(), nil
	}
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to read balance for %s: %w", user, err)
	}
	return amount, nil
}

// TransferValue debits the sender and credits the recipient inside a single
// database transaction. Either both rows change or neither does.
func (t *PostgresToken) TransferValue(from, to types.UserID, amount sdkmath.Int) error {
	if amount.IsNegative() {
		return fmt.Errorf("transfer amount %s is negative", amount)
	}

	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transfer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var raw string
	if err = tx.QueryRow(`SELECT balance FROM token_balances WHERE user_id = $1 FOR UPDATE;`, string(from)).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			err = fmt.Errorf("%w: %s has no balance", ErrInsufficientValue, from)
		}
		return err
	}
	balance, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		err = fmt.Errorf("invalid balance %q for %s", raw, from)
		return err
	}
	if balance.LT(amount) {
		err = fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientValue, from, balance, amount)
		return err
	}

	if _, err = tx.Exec(`UPDATE token_balances SET balance = $2 WHERE user_id = $1;`,
		string(from), balance.Sub(amount).String()); err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	if _, err = tx.Exec(`
		INSERT INTO token_balances (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = (token_balances.balance::NUMERIC + $2::NUMERIC)::TEXT;`,
		string(to), amount.String()); err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	t.logger.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Str("amount", amount.String()).
		Msg("Value transfer committed")
	return nil
}
