/*

The monitor runs a ticker-driven sampling loop over the engine: each cycle it
records utilization, the current base rate, the global high-water mark and the
active lock count into the rate_samples table. Each cycle carries a unique ID
so its log lines can be traced end to end.

*/

package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cryptonique0/basero-yield-engine/internal/ledger"
	"github.com/cryptonique0/basero-yield-engine/internal/logger"
	"github.com/cryptonique0/basero-yield-engine/internal/state"
	"github.com/cryptonique0/basero-yield-engine/internal/strategy"
	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// Monitor samples the engine on a fixed interval.
type Monitor struct {
	logger zerolog.Logger
	engine *strategy.Engine
	vault  ledger.VaultLedger

	cycleCount int
}

// Config holds the dependencies for creating a Monitor.
type Config struct {
	Engine *strategy.Engine
	Vault  ledger.VaultLedger
}

// New creates a monitor instance.
func New(cfg Config) (*Monitor, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault ledger cannot be nil")
	}
	return &Monitor{
		logger: logger.GetForComponent("monitor"),
		engine: cfg.Engine,
		vault:  cfg.Vault,
	}, nil
}

// RunLoop starts the sampling loop with the specified interval.
func (m *Monitor) RunLoop(ctx context.Context, interval time.Duration) {
	m.logger.Info().Dur("interval", interval).Msg("Starting monitor loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	m.runCycle()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Monitor loop stopped due to context cancellation")
			return
		case <-ticker.C:
			m.runCycle()
		}
	}
}

// runCycle performs one sampling pass.
func (m *Monitor) runCycle() {
	m.cycleCount++
	cycleID := uuid.New().String()
	cycleLogger := m.logger.With().Str("cycle_id", cycleID).Int("cycle", m.cycleCount).Logger()

	deposited, err := m.vault.TotalDeposited()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to read total deposited")
		return
	}
	capacity, err := m.vault.MaxCapacity()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to read max capacity")
		return
	}
	rate, err := m.engine.Rate()
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Cycle aborted: failed to compute rate")
		return
	}

	var utilizationBps int64
	if !capacity.IsZero() {
		utilization := deposited.MulRaw(types.BpsDenominator).Quo(capacity)
		if utilization.IsInt64() {
			utilizationBps = utilization.Int64()
		}
	}

	sample := state.RateSample{
		CycleID:        cycleID,
		UtilizationBps: utilizationBps,
		RateBps:        rate,
		GlobalMark:     m.engine.GlobalHighWaterMark().String(),
		TotalDeposited: deposited.String(),
		MaxCapacity:    capacity.String(),
		ActiveLocks:    m.engine.ActiveLockCount(),
		SampledAt:      time.Now(),
	}
	if err := state.SaveRateSample(sample); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save rate sample")
		return
	}

	cycleLogger.Info().
		Int64("utilizationBps", utilizationBps).
		Int64("rateBps", rate).
		Int("activeLocks", sample.ActiveLocks).
		Msg("Rate sample recorded")
}
