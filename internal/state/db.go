// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	// Amounts are stored as decimal strings (TEXT) because they are
	// arbitrary-precision integers on the Go side.
	schemaSQL := `
		CREATE TABLE IF NOT EXISTS strategy_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			kink_bps BIGINT NOT NULL, base_rate_bps BIGINT NOT NULL,
			low_slope BIGINT NOT NULL, high_slope BIGINT NOT NULL,
			fee_bps BIGINT NOT NULL, fee_recipient TEXT NOT NULL,
			tiers JSONB NOT NULL,
			lock_policies JSONB NOT NULL,
			CONSTRAINT uq_strategy_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_strategy_parameters_config_active ON strategy_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS user_locks (
			user_id TEXT PRIMARY KEY,
			amount TEXT NOT NULL,
			unlock_time TIMESTAMPTZ NOT NULL,
			period INTEGER NOT NULL,
			bonus_rate BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS user_high_water_marks (
			user_id TEXT PRIMARY KEY,
			mark TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Single-row table for the global high-water mark.
		CREATE TABLE IF NOT EXISTS global_high_water_mark (
			id INTEGER PRIMARY KEY DEFAULT 1,
			mark TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		CREATE TABLE IF NOT EXISTS strategy_events (
			event_id TEXT PRIMARY KEY,
			kind VARCHAR(64) NOT NULL,
			user_id TEXT,
			payload JSONB,
			event_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_strategy_events_timestamp ON strategy_events(event_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_strategy_events_kind ON strategy_events(kind);
		CREATE INDEX IF NOT EXISTS idx_strategy_events_user ON strategy_events(user_id);

		CREATE TABLE IF NOT EXISTS rate_samples (
			sample_id SERIAL PRIMARY KEY,
			cycle_id TEXT NOT NULL,
			utilization_bps BIGINT NOT NULL,
			rate_bps BIGINT NOT NULL,
			global_mark TEXT NOT NULL,
			total_deposited TEXT NOT NULL,
			max_capacity TEXT NOT NULL,
			active_locks INTEGER NOT NULL,
			sampled_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_rate_samples_sampled_at ON rate_samples(sampled_at DESC);

		-- Vault and token bookkeeping tables. In live mode these are
		-- populated by the host deposit vault; the engine only reads them,
		-- except for the fee transfer against token_balances.
		CREATE TABLE IF NOT EXISTS vault_state (
			id INTEGER PRIMARY KEY DEFAULT 1,
			total_deposited TEXT NOT NULL DEFAULT '0',
			max_capacity TEXT NOT NULL DEFAULT '0',
			fee_recipient TEXT NOT NULL DEFAULT '',
			CONSTRAINT vault_state_single_row CHECK (id = 1)
		);
		INSERT INTO vault_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING;

		CREATE TABLE IF NOT EXISTS vault_deposits (
			user_id TEXT PRIMARY KEY,
			cumulative_deposit TEXT NOT NULL DEFAULT '0'
		);

		CREATE TABLE IF NOT EXISTS vault_operators (
			user_id TEXT PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS token_state (
			id INTEGER PRIMARY KEY DEFAULT 1,
			total_supply TEXT NOT NULL DEFAULT '0',
			total_shares TEXT NOT NULL DEFAULT '0',
			CONSTRAINT token_state_single_row CHECK (id = 1)
		);
		INSERT INTO token_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING;

		CREATE TABLE IF NOT EXISTS token_balances (
			user_id TEXT PRIMARY KEY,
			balance TEXT NOT NULL DEFAULT '0'
		);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
