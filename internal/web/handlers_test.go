package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptonique0/basero-yield-engine/internal/config"
	"github.com/cryptonique0/basero-yield-engine/internal/ledger"
	"github.com/cryptonique0/basero-yield-engine/internal/strategy"
)

func newTestServer(t *testing.T) (*WebServer, *ledger.MemoryVault, *ledger.MemoryToken) {
	t.Helper()

	vault := ledger.NewMemoryVault(sdkmath.ZeroInt(), "treasury")
	vault.Authorize("governance", true)
	token := ledger.NewMemoryToken(sdkmath.ZeroInt(), sdkmath.ZeroInt())

	engine, err := strategy.NewEngine(strategy.Config{
		Vault:  vault,
		Token:  token,
		Params: config.DefaultStrategyParameters,
	})
	require.NoError(t, err)

	return NewWebServer("0", engine), vault, token
}

func doRequest(ws *WebServer, method, path, caller, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != "" {
		req.Header.Set("X-Caller", caller)
	}
	rec := httptest.NewRecorder()
	ws.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHandleGetRate(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rec := doRequest(ws, http.MethodGet, "/api/rate", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(200), body["rate_bps"])
	assert.Equal(t, "2.00%", body["rate_percent"])
}

func TestHandleGetUserTier(t *testing.T) {
	ws, vault, _ := newTestServer(t)
	vault.SetDeposit("alice", sdkmath.NewIntWithDecimal(50, 18))

	rec := doRequest(ws, http.MethodGet, "/api/users/alice/tier", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "gold", body["tier"])
	assert.Equal(t, float64(50), body["bonus_bps"])
}

func TestHandleLockLifecycle(t *testing.T) {
	ws, vault, _ := newTestServer(t)
	vault.SetDeposit("alice", sdkmath.NewIntWithDecimal(20, 18))

	rec := doRequest(ws, http.MethodGet, "/api/users/alice/lock", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(ws, http.MethodPost, "/api/users/alice/lock", "", `{"period": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// A second lock conflicts with the existing record.
	rec = doRequest(ws, http.MethodPost, "/api/users/alice/lock", "", `{"period": 2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(ws, http.MethodGet, "/api/users/alice/lock", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unlock before expiry conflicts too.
	rec = doRequest(ws, http.MethodDelete, "/api/users/alice/lock", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleLockDeposit_UnknownPeriodIsBadRequest(t *testing.T) {
	ws, vault, _ := newTestServer(t)
	vault.SetDeposit("alice", sdkmath.NewIntWithDecimal(20, 18))

	rec := doRequest(ws, http.MethodPost, "/api/users/alice/lock", "", `{"period": 42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePrepareWithdrawal_LockedUserRejected(t *testing.T) {
	ws, vault, _ := newTestServer(t)
	vault.SetDeposit("alice", sdkmath.NewIntWithDecimal(20, 18))

	rec := doRequest(ws, http.MethodPost, "/api/users/alice/lock", "", `{"period": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(ws, http.MethodPost, "/api/users/alice/withdrawal", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlePrepareWithdrawal_Cleared(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rec := doRequest(ws, http.MethodPost, "/api/users/bob/withdrawal", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "cleared", body["status"])
	assert.Equal(t, "0", body["fee_charged"])
}

func TestHandleSetUtilizationConfig_Authorization(t *testing.T) {
	ws, _, _ := newTestServer(t)
	payload := `{"kink_bps": 9000, "base_rate_bps": 100, "low_slope": 3, "high_slope": 80}`

	rec := doRequest(ws, http.MethodPost, "/api/config/utilization", "", payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(ws, http.MethodPost, "/api/config/utilization", "governance", payload)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleSetTierConfig(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rec := doRequest(ws, http.MethodPost, "/api/config/tiers/1", "governance",
		`{"min_deposit": "25000000000000000000", "bonus_bps": 40}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(ws, http.MethodPost, "/api/config/tiers/1", "governance",
		`{"min_deposit": "25000000000000000000", "bonus_bps": 1001}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(ws, http.MethodPost, "/api/config/tiers/nope", "governance",
		`{"min_deposit": "1", "bonus_bps": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSetFeeConfig_Validation(t *testing.T) {
	ws, _, _ := newTestServer(t)

	rec := doRequest(ws, http.MethodPost, "/api/config/fee", "governance",
		`{"fee_bps": 5001, "recipient": "treasury"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(ws, http.MethodPost, "/api/config/fee", "governance",
		`{"fee_bps": 2000, "recipient": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(ws, http.MethodPost, "/api/config/fee", "governance",
		`{"fee_bps": 2000, "recipient": "treasury"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusForError(strategy.ErrUnauthorized))
	assert.Equal(t, http.StatusBadRequest, statusForError(strategy.ErrInvalidRateCurve))
	assert.Equal(t, http.StatusConflict, statusForError(strategy.ErrStillLocked))
	assert.Equal(t, http.StatusInternalServerError, statusForError(assert.AnError))
}
