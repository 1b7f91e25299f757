/*

Persistence of strategy events and rate samples. Events are the engine's
structured notifications, kept for external indexing; rate samples come from
the monitor loop and feed the dashboard's rate history.

*/

package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cryptonique0/basero-yield-engine/internal/types"
)

// SaveStrategyEvent persists one notification row.
func SaveStrategyEvent(event types.StrategyEvent) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	stmt := `
		INSERT INTO strategy_events (event_id, kind, user_id, payload, event_timestamp)
		VALUES ($1, $2, $3, $4, $5);`

	_, err = DB.Exec(stmt, event.ID, string(event.Kind), string(event.User), payloadJSON, event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert strategy event: %w", err)
	}
	return nil
}

// GetRecentEvents returns the newest events, most recent first.
func GetRecentEvents(limit int) ([]types.StrategyEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT event_id, kind, user_id, payload, event_timestamp
		FROM strategy_events
		ORDER BY event_timestamp DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy events: %w", err)
	}
	defer rows.Close()

	events := make([]types.StrategyEvent, 0, limit)
	for rows.Next() {
		var event types.StrategyEvent
		var kind, userID string
		var payloadJSON []byte
		if err := rows.Scan(&event.ID, &kind, &userID, &payloadJSON, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan strategy event row: %w", err)
		}
		event.Kind = types.EventKind(kind)
		event.User = types.UserID(userID)
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload for event %s: %w", event.ID, err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate strategy events: %w", err)
	}
	return events, nil
}

// EventRecorder adapts the state package to the engine's EventSink interface.
type EventRecorder struct{}

func (EventRecorder) Record(event types.StrategyEvent) error {
	return SaveStrategyEvent(event)
}

// RateSample is one monitor-loop observation of the engine.
type RateSample struct {
	CycleID        string    `json:"cycle_id"`
	UtilizationBps int64     `json:"utilization_bps"`
	RateBps        int64     `json:"rate_bps"`
	GlobalMark     string    `json:"global_mark"`
	TotalDeposited string    `json:"total_deposited"`
	MaxCapacity    string    `json:"max_capacity"`
	ActiveLocks    int       `json:"active_locks"`
	SampledAt      time.Time `json:"sampled_at"`
}

// SaveRateSample persists one monitor observation.
func SaveRateSample(sample RateSample) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO rate_samples (cycle_id, utilization_bps, rate_bps, global_mark, total_deposited, max_capacity, active_locks, sampled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`

	_, err := DB.Exec(stmt,
		sample.CycleID, sample.UtilizationBps, sample.RateBps,
		sample.GlobalMark, sample.TotalDeposited, sample.MaxCapacity,
		sample.ActiveLocks, sample.SampledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rate sample: %w", err)
	}

	log.Debug().Str("cycle_id", sample.CycleID).Int64("rateBps", sample.RateBps).Msg("Saved rate sample")
	return nil
}

// GetRecentRateSamples returns the newest samples, most recent first.
func GetRecentRateSamples(limit int) ([]RateSample, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := DB.Query(`
		SELECT cycle_id, utilization_bps, rate_bps, global_mark, total_deposited, max_capacity, active_locks, sampled_at
		FROM rate_samples
		ORDER BY sampled_at DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rate samples: %w", err)
	}
	defer rows.Close()

	samples := make([]RateSample, 0, limit)
	for rows.Next() {
		var sample RateSample
		if err := rows.Scan(
			&sample.CycleID, &sample.UtilizationBps, &sample.RateBps,
			&sample.GlobalMark, &sample.TotalDeposited, &sample.MaxCapacity,
			&sample.ActiveLocks, &sample.SampledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rate sample row: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rate samples: %w", err)
	}
	return samples, nil
}
