package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stci-io/stci/internal/config"
	"github.com/stci-io/stci/internal/domain"
	stcihttp "github.com/stci-io/stci/internal/http"
	"github.com/stci-io/stci/internal/http/middleware"
	"github.com/stci-io/stci/internal/indexer"
	"github.com/stci-io/stci/internal/storage"
)

func testMethodology() domain.Methodology {
	m := domain.Methodology{
		Version: "1.0.0",
		Baskets: map[string]domain.Basket{
			"STCI-FRONTIER": {Models: []string{"openai/gpt-4o", "anthropic/claude-sonnet-4"}},
		},
	}
	return m.ApplyDefaults()
}

func testObservation(date domain.Date, provider, modelID string, input, output float64) domain.Observation {
	return domain.Observation{
		ObservationID:      domain.NewObservationID(date, provider, modelID),
		Provider:           provider,
		ModelID:            modelID,
		InputRateUSDPer1M:  input,
		OutputRateUSDPer1M: output,
		EffectiveDate:      date,
		CollectedAt:        date.AddDays(1).Time(),
		SourceTier:         domain.TierT1,
		Currency:           domain.CurrencyUSD,
	}
}

// newTestAPI seeds a store with computed indices for the given dates and
// returns the full route stack, middleware included.
func newTestAPI(t *testing.T, dates ...domain.Date) http.Handler {
	t.Helper()
	ctx := context.Background()
	store := storage.NewStore(storage.NewLocal(t.TempDir()))
	methodology := testMethodology()

	pipeline := indexer.NewPipeline(store, methodology)
	for _, date := range dates {
		require.NoError(t, store.WriteObservations(ctx, date, []domain.Observation{
			testObservation(date, "openai", "openai/gpt-4o", 2.50, 10.00),
			testObservation(date, "anthropic", "anthropic/claude-sonnet-4", 3.00, 15.00),
		}))
		_, err := pipeline.Run(ctx, date)
		require.NoError(t, err)
	}

	handler := stcihttp.NewHandler(store, methodology, stcihttp.NewMemoryCache(), &config.RedisConfig{CacheTTLSecs: 60})
	corsCfg := &config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}
	server := stcihttp.NewServer(&config.ServerConfig{Port: 8080}, handler, middleware.BuildMiddlewareChain(corsCfg))
	return server.Routes()
}

func doGET(t *testing.T, routes http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	routes := newTestAPI(t, domain.NewDate(2026, time.March, 14))

	rec := doGET(t, routes, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "stci-api", body["service"])
	require.Equal(t, true, body["data_available"])
}

func TestHandleHealth_NoData(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["data_available"])
}

func TestHandleRoot(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "STCI API", body["name"])
	require.Contains(t, body["endpoints"], "GET /v1/index/latest")
}

func TestHandleIndexDate(t *testing.T) {
	date := domain.NewDate(2026, time.March, 14)
	routes := newTestAPI(t, date)

	rec := doGET(t, routes, "/v1/index/2026-03-14")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))

	var result domain.DailyIndexResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, date, result.Date)
	require.Contains(t, result.Indices, "STCI-FRONTIER")
	require.Contains(t, result.Indices, domain.AllIndexName)
	require.NotEmpty(t, result.VerificationHash)

	frontier := result.Indices["STCI-FRONTIER"]
	require.False(t, frontier.Insufficient)
	require.InDelta(t, 2.75, frontier.Value.InputRate, 1e-9)
	require.InDelta(t, 12.50, frontier.Value.OutputRate, 1e-9)
	require.InDelta(t, 10.06, frontier.Value.BlendedRate, 1e-9)
}

func TestHandleIndexDate_SecondRequestServedFromCache(t *testing.T) {
	routes := newTestAPI(t, domain.NewDate(2026, time.March, 14))

	first := doGET(t, routes, "/v1/index/2026-03-14")
	second := doGET(t, routes, "/v1/index/2026-03-14")

	require.Equal(t, http.StatusOK, second.Code)
	require.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestHandleIndexDate_Malformed(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/v1/index/not-a-date")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["error"], "Invalid date format")
}

func TestHandleIndexDate_Missing(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/v1/index/2026-03-14")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIndexLatest(t *testing.T) {
	older := domain.NewDate(2026, time.March, 13)
	newer := domain.NewDate(2026, time.March, 14)
	routes := newTestAPI(t, older, newer)

	rec := doGET(t, routes, "/v1/index/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.DailyIndexResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, newer, result.Date)
}

func TestHandleIndexLatest_NoData(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/v1/index/latest")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIndices(t *testing.T) {
	routes := newTestAPI(t,
		domain.NewDate(2026, time.March, 13),
		domain.NewDate(2026, time.March, 14))

	rec := doGET(t, routes, "/v1/indices")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Dates  []string `json:"dates"`
		Count  int      `json:"count"`
		Latest string   `json:"latest"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{"2026-03-14", "2026-03-13"}, body.Dates)
	require.Equal(t, 2, body.Count)
	require.Equal(t, "2026-03-14", body.Latest)
}

func TestHandleObservations(t *testing.T) {
	routes := newTestAPI(t, domain.NewDate(2026, time.March, 14))

	rec := doGET(t, routes, "/v1/observations/2026-03-14")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Date         string               `json:"date"`
		Count        int                  `json:"count"`
		Observations []domain.Observation `json:"observations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "2026-03-14", body.Date)
	require.Equal(t, 2, body.Count)
	require.Len(t, body.Observations, 2)
}

func TestHandleObservations_Missing(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/v1/observations/2026-03-14")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMethodology(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/v1/methodology")
	require.Equal(t, http.StatusOK, rec.Code)

	var m domain.Methodology
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Equal(t, "1.0.0", m.Version)
	require.Contains(t, m.Baskets, "STCI-FRONTIER")
}

func TestTraceHeadersPresent(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/health")
	require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestUnknownRouteIs404(t *testing.T) {
	routes := newTestAPI(t)

	rec := doGET(t, routes, "/v2/nothing")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
