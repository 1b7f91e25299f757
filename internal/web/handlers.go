package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cryptonique0/basero-yield-engine/internal/state"
	"github.com/cryptonique0/basero-yield-engine/internal/strategy"
	"github.com/cryptonique0/basero-yield-engine/internal/types"
	"github.com/cryptonique0/basero-yield-engine/internal/utils"
)

// statusForError maps the engine's error taxonomy onto HTTP status codes:
// authorization failures are 403, validation failures 400, unmet state
// preconditions 409, everything else 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, strategy.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, strategy.ErrInvalidRateCurve),
		errors.Is(err, strategy.ErrInvalidTierBonus),
		errors.Is(err, strategy.ErrInvalidTierConfig),
		errors.Is(err, strategy.ErrInvalidLockPolicy),
		errors.Is(err, strategy.ErrInvalidLockMultiplier),
		errors.Is(err, strategy.ErrInvalidFeeRate),
		errors.Is(err, strategy.ErrNullRecipient),
		errors.Is(err, strategy.ErrUnknownTier),
		errors.Is(err, strategy.ErrUnknownLockPeriod):
		return http.StatusBadRequest
	case errors.Is(err, strategy.ErrLockAlreadyExists),
		errors.Is(err, strategy.ErrNoLockFound),
		errors.Is(err, strategy.ErrStillLocked),
		errors.Is(err, strategy.ErrInsufficientBalance):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func callerFrom(r *http.Request) types.UserID {
	return types.UserID(r.Header.Get("X-Caller"))
}

func userFrom(r *http.Request) types.UserID {
	return types.UserID(mux.Vars(r)["user"])
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbHealthy := state.TestDBConnection() == nil

	status := http.StatusOK
	overall := "healthy"
	if !dbHealthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	ws.respondJSON(w, status, map[string]any{
		"status":       overall,
		"database":     dbHealthy,
		"active_locks": ws.engine.ActiveLockCount(),
		"timestamp":    time.Now(),
	})
}

func (ws *WebServer) handleGetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := ws.engine.Rate()
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]any{
		"rate_bps":     rate,
		"rate_percent": utils.BpsToPercent(rate),
	})
}

func (ws *WebServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	ws.respondJSON(w, http.StatusOK, ws.engine.Parameters())
}

func (ws *WebServer) handleSetUtilizationConfig(w http.ResponseWriter, r *http.Request) {
	var req types.RateCurveConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := ws.engine.SetUtilizationConfig(callerFrom(r), req); err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (ws *WebServer) handleSetTierConfig(w http.ResponseWriter, r *http.Request) {
	ordinal, err := strconv.Atoi(mux.Vars(r)["tier"])
	if err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "tier must be an ordinal"})
		return
	}

	var req struct {
		MinDeposit string `json:"min_deposit"`
		BonusBps   int64  `json:"bonus_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	minDeposit, err := utils.ParseAmount(req.MinDeposit)
	if err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cfg := types.TierConfig{MinDeposit: minDeposit, BonusBps: req.BonusBps}
	if err := ws.engine.SetTierConfig(callerFrom(r), types.Tier(ordinal), cfg); err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (ws *WebServer) handleSetLockConfig(w http.ResponseWriter, r *http.Request) {
	ordinal, err := strconv.Atoi(mux.Vars(r)["period"])
	if err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "period must be an ordinal"})
		return
	}

	var req struct {
		DurationSeconds    int64 `json:"duration_seconds"`
		BonusMultiplierBps int64 `json:"bonus_multiplier_bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cfg := types.LockPolicyConfig{
		Duration:           time.Duration(req.DurationSeconds) * time.Second,
		BonusMultiplierBps: req.BonusMultiplierBps,
	}
	if err := ws.engine.SetLockConfig(callerFrom(r), types.LockPeriod(ordinal), cfg); err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (ws *WebServer) handleSetFeeConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeeBps    int64  `json:"fee_bps"`
		Recipient string `json:"recipient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := ws.engine.SetPerformanceFeeConfig(callerFrom(r), req.FeeBps, types.UserID(req.Recipient)); err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (ws *WebServer) handleUpdateHighWaterMark(w http.ResponseWriter, r *http.Request) {
	if err := ws.engine.UpdateGlobalHighWaterMark(callerFrom(r)); err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]any{
		"status": "updated",
		"mark":   ws.engine.GlobalHighWaterMark().String(),
	})
}

func (ws *WebServer) handleGetUserTier(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	tier, err := ws.engine.TierOf(user)
	if err != nil {
		ws.respondError(w, err)
		return
	}
	bonus, err := ws.engine.TierBonusOf(user)
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]any{
		"tier":      tier.String(),
		"ordinal":   int(tier),
		"bonus_bps": bonus,
	})
}

func (ws *WebServer) handleGetEffectiveRate(w http.ResponseWriter, r *http.Request) {
	rate, err := ws.engine.EffectiveRate(userFrom(r))
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]any{
		"effective_bps":     rate,
		"effective_percent": utils.BpsToPercent(rate),
	})
}

func (ws *WebServer) handleGetPendingFee(w http.ResponseWriter, r *http.Request) {
	fee, err := ws.engine.PendingFee(userFrom(r))
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]string{"pending_fee": utils.FormatAmount(fee)})
}

func (ws *WebServer) handleGetStrategyInfo(w http.ResponseWriter, r *http.Request) {
	info, err := ws.engine.StrategyInfo(userFrom(r))
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, info)
}

func (ws *WebServer) handleGetLock(w http.ResponseWriter, r *http.Request) {
	lock, ok := ws.engine.LockOf(userFrom(r))
	if !ok {
		ws.respondJSON(w, http.StatusNotFound, map[string]string{"error": "no lock found"})
		return
	}
	ws.respondJSON(w, http.StatusOK, lock)
}

func (ws *WebServer) handleLockDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period int `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	lock, err := ws.engine.LockDeposit(userFrom(r), types.LockPeriod(req.Period))
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusCreated, lock)
}

func (ws *WebServer) handleUnlockDeposit(w http.ResponseWriter, r *http.Request) {
	if err := ws.engine.UnlockDeposit(userFrom(r)); err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

func (ws *WebServer) handlePrepareWithdrawal(w http.ResponseWriter, r *http.Request) {
	fee, err := ws.engine.PrepareWithdrawal(userFrom(r))
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, map[string]string{
		"status":      "cleared",
		"fee_charged": utils.FormatAmount(fee),
	})
}

func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := state.GetRecentEvents(limit)
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, events)
}

func (ws *WebServer) handleGetRateSamples(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	samples, err := state.GetRecentRateSamples(limit)
	if err != nil {
		ws.respondError(w, err)
		return
	}
	ws.respondJSON(w, http.StatusOK, samples)
}
