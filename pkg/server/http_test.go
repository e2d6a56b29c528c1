package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/richard-senior/podds/internal/config"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), target)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	return NewHTTPServer(config.Default().Server, testTools(t)).Handler()
}

func TestHTTPHealthAndTeams(t *testing.T) {
	h := newTestAPI(t)

	rec, body := get(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 4, body["teams"])
	assert.EqualValues(t, 24, body["matches"])

	rec, body = get(t, h, "/api/teams?filter=ea")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Chelsea"}, body["teams"])
}

func TestHTTPPredict(t *testing.T) {
	h := newTestAPI(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predict?home=Chelsea&away=Everton&simulations=1500&last_matches=4", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var prediction podds.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prediction))
	assert.Equal(t, "Chelsea", prediction.Home)
	assert.Equal(t, 4, prediction.LastMatches)
	assert.NotEmpty(t, prediction.Pick.Label)
}

func TestHTTPRejectsBadRequests(t *testing.T) {
	h := newTestAPI(t)

	for _, target := range []string{
		"/api/predict?home=Chelsea&away=chelsea",
		"/api/predict?home=Chelsey&away=Everton",
		"/api/predict?home=Chelsea",
		"/api/predict?home=Chelsea&away=Everton&simulations=lots",
		"/api/predict?home=Chelsea&away=Everton&simulations=100000000",
		"/api/valuebets?home=Chelsea&away=Everton&simulations=4611686018427387904",
		"/api/valuebets?home=Chelsea&away=Everton&min_edge=NaN",
		"/api/valuebets?home=Chelsea&away=Everton&home_odds=2.0",
	} {
		rec, body := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}

	_, body := get(t, h, "/api/predict?home=Chelsey&away=Everton")
	assert.Contains(t, body["error"], "did you mean Chelsea?")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPValueBets(t *testing.T) {
	h := newTestAPI(t)

	rec, body := get(t, h, "/api/valuebets?home=Arsenal&away=Fulham")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["fixture"])
	assert.Contains(t, body, "bets")

	rec, body = get(t, h, "/api/valuebets?home=Arsenal&away=Fulham&home_odds=5&draw_odds=4&away_odds=8&min_edge=0.01")
	require.Equal(t, http.StatusOK, rec.Code)
	odds := body["odds"].(map[string]any)
	assert.EqualValues(t, 5, odds["home"])
	assert.EqualValues(t, 0.01, body["minEdge"])
}

func TestHTTPCORS(t *testing.T) {
	cfg := config.Default().Server
	cfg.AllowedOrigins = []string{"https://example.com"}
	h := NewHTTPServer(cfg, testTools(t)).Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://elsewhere.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
