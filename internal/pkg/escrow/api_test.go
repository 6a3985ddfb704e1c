package escrow_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/dareme/internal/pkg/common"
	"github.com/vreid/dareme/internal/pkg/dare"
	"github.com/vreid/dareme/internal/pkg/escrow"
	"github.com/vreid/dareme/internal/pkg/identity"
)

type apiClient struct {
	t    *testing.T
	echo *common.EchoService
}

func newAPI(t *testing.T, s *escrow.EscrowService) *apiClient {
	t.Helper()

	e := common.NewEcho(0)
	e.Register(s.Routes)

	return &apiClient{t: t, echo: e}
}

func (a *apiClient) do(method, path string, caller identity.Key, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var payload string

	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)

		payload = string(raw)
	}

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	if !caller.IsZero() {
		req.Header.Set(common.CallerHeader, caller.String())
	}

	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

func darePath(challenger identity.Key, id uint64, action string) string {
	path := fmt.Sprintf("/api/dares/%s/%d", challenger, id)
	if action != "" {
		path += "/" + action
	}

	return path
}

func TestAPIDareLifecycle(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	api := newAPI(t, s)
	challenger := funded(t, s, 1_000)
	b := newKey(t)

	rec := api.do(http.MethodPost, "/api/dares", challenger, map[string]any{
		"dare_id":          7,
		"description":      "eat a lemon",
		"amount":           100,
		"deadline":         start + 3600,
		"dare_type":        "direct_dare",
		"winner_selection": "challenger_select",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[escrow.DareView](t, rec)
	assert.Equal(t, dare.HashOf([]byte("eat a lemon")), created.DescriptionHash)
	assert.Equal(t, dare.StatusCreated, created.Status)
	assert.Equal(t, uint64(100), created.VaultBalance)

	rec = api.do(http.MethodPost, darePath(challenger, 7, "accept"), b, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	proof := dare.HashOf([]byte("lemon.mp4"))

	rec = api.do(http.MethodPost, darePath(challenger, 7, "proof"), b, map[string]any{
		"proof_hash": proof.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, proof, decode[escrow.DareView](t, rec).ProofHash)

	rec = api.do(http.MethodPost, darePath(challenger, 7, "approve"), challenger, map[string]any{
		"daree": b.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	done := decode[escrow.DareView](t, rec)
	assert.Equal(t, dare.StatusCompleted, done.Status)
	assert.Equal(t, uint64(0), done.VaultBalance)

	rec = api.do(http.MethodGet, "/api/accounts/"+b.String()+"/balance", identity.Zero, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(100), decode[escrow.BalanceResponse](t, rec).Balance)

	rec = api.do(http.MethodGet, "/api/users/"+b.String()+"/stats", identity.Zero, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint32(1), decode[dare.UserStats](t, rec).DaresCompleted)

	rec = api.do(http.MethodGet, darePath(challenger, 7, ""), identity.Zero, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, b, decode[escrow.DareView](t, rec).Daree)
}

func TestAPIRejectionCodes(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	api := newAPI(t, s)
	challenger := funded(t, s, 1_000)
	target := newKey(t)
	stranger := newKey(t)

	p := params(1, 50, time.Hour)
	p.TargetDaree = target

	_, err := s.CreateDare(challenger, p)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		caller identity.Key
		body   any
		status int
		code   string
	}{
		{
			name:   "stranger accepts targeted dare",
			method: http.MethodPost,
			path:   darePath(challenger, 1, "accept"),
			caller: stranger,
			status: http.StatusForbidden,
			code:   "unauthorized_daree",
		},
		{
			name:   "challenger accepts own dare",
			method: http.MethodPost,
			path:   darePath(challenger, 1, "accept"),
			caller: challenger,
			status: http.StatusForbidden,
			code:   "cannot_accept_own_dare",
		},
		{
			name:   "expire before deadline",
			method: http.MethodPost,
			path:   darePath(challenger, 1, "expire"),
			caller: stranger,
			body:   map[string]any{"recipient": challenger.String()},
			status: http.StatusConflict,
			code:   "dare_not_expired",
		},
		{
			name:   "reject without proof",
			method: http.MethodPost,
			path:   darePath(challenger, 1, "reject"),
			caller: challenger,
			status: http.StatusConflict,
			code:   "invalid_dare_status",
		},
		{
			name:   "unknown dare",
			method: http.MethodGet,
			path:   darePath(challenger, 2, ""),
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "zero amount",
			method: http.MethodPost,
			path:   "/api/dares",
			caller: challenger,
			body: map[string]any{
				"dare_id":   3,
				"amount":    0,
				"deadline":  start + 60,
				"dare_type": "direct_dare",
			},
			status: http.StatusBadRequest,
			code:   "invalid_amount",
		},
		{
			name:   "bounty with target",
			method: http.MethodPost,
			path:   "/api/dares",
			caller: challenger,
			body: map[string]any{
				"dare_id":      4,
				"amount":       10,
				"deadline":     start + 60,
				"dare_type":    "public_bounty",
				"target_daree": target.String(),
			},
			status: http.StatusUnprocessableEntity,
			code:   "invalid_dare_type",
		},
		{
			name:   "not enough funds",
			method: http.MethodPost,
			path:   "/api/dares",
			caller: challenger,
			body: map[string]any{
				"dare_id":   5,
				"amount":    10_000,
				"deadline":  start + 60,
				"dare_type": "direct_dare",
			},
			status: http.StatusPaymentRequired,
			code:   "insufficient_funds",
		},
		{
			name:   "duplicate id",
			method: http.MethodPost,
			path:   "/api/dares",
			caller: challenger,
			body: map[string]any{
				"dare_id":   1,
				"amount":    10,
				"deadline":  start + 60,
				"dare_type": "direct_dare",
			},
			status: http.StatusConflict,
			code:   "dare_exists",
		},
	}

	for _, tt := range tests {
		rec := api.do(tt.method, tt.path, tt.caller, tt.body)
		require.Equal(t, tt.status, rec.Code, "%s: %s", tt.name, rec.Body.String())

		body := decode[escrow.ErrorBody](t, rec)
		assert.Equal(t, tt.code, body.Code, tt.name)
		assert.NotEmpty(t, body.Message, tt.name)
	}

	view, err := s.LoadDare(escrow.DareRef{Challenger: challenger, DareID: 1})
	require.NoError(t, err)
	assert.Equal(t, dare.StatusCreated, view.Status)
	assert.Equal(t, uint64(950), balance(t, s, challenger))
}

func TestAPIRequiresCaller(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	api := newAPI(t, s)
	challenger := funded(t, s, 100)

	rec := api.do(http.MethodPost, darePath(challenger, 1, "cancel"), identity.Zero, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/dares", identity.Zero, map[string]any{"dare_id": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	req := httptest.NewRequest(http.MethodPost, darePath(challenger, 1, "accept"), nil)
	req.Header.Set(common.CallerHeader, identity.Zero.String())

	rec = httptest.NewRecorder()
	api.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIDescriptionMismatch(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	api := newAPI(t, s)
	challenger := funded(t, s, 100)

	rec := api.do(http.MethodPost, "/api/dares", challenger, map[string]any{
		"dare_id":          1,
		"description":      "one thing",
		"description_hash": dare.HashOf([]byte("another")).String(),
		"amount":           10,
		"deadline":         start + 60,
		"dare_type":        "direct_dare",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uint64(100), balance(t, s, challenger))
}

func TestAPIFeed(t *testing.T) {
	t.Parallel()

	s, _ := newService(t)
	api := newAPI(t, s)
	challenger := funded(t, s, 1_000)

	for id := uint64(1); id <= 3; id++ {
		p := params(id, 10*id, time.Hour)
		if id == 3 {
			p.DareType = dare.PublicBounty
		}

		_, err := s.CreateDare(challenger, p)
		require.NoError(t, err)
	}

	rec := api.do(http.MethodGet, "/api/dares?type=public_bounty", identity.Zero, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	feed := decode[escrow.Feed](t, rec)
	require.Len(t, feed.Dares, 1)
	assert.Equal(t, dare.PublicBounty, feed.Dares[0].DareType)

	rec = api.do(http.MethodGet, "/api/dares?sort=amount&limit=2", identity.Zero, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	feed = decode[escrow.Feed](t, rec)
	assert.Equal(t, 3, feed.Total)
	assert.Equal(t, 2, feed.TotalPages)
	require.Len(t, feed.Dares, 2)
	assert.Equal(t, uint64(30), feed.Dares[0].Amount)

	rec = api.do(http.MethodGet, "/api/dares?status=bogus", identity.Zero, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/dares/trending?limit=1", identity.Zero, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	trending := decode[[]escrow.DareView](t, rec)
	require.Len(t, trending, 1)
	assert.Equal(t, uint64(30), trending[0].Amount)
}
