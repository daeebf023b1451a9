package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/kskby/dpd/internal/config"
	"github.com/kskby/dpd/internal/store"
	"github.com/kskby/dpd/internal/telemetry"
	"github.com/kskby/dpd/pkg/dpd"
	"github.com/kskby/dpd/pkg/dpd/api"
	"github.com/kskby/dpd/pkg/dpd/calc"
	dpdsync "github.com/kskby/dpd/pkg/dpd/sync"
)

// Prometheus collectors register globally, so the metrics are shared
// across test servers.
var testMetrics = telemetry.NewMetrics()

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "dpd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	geo := api.NewMockClient()
	feed := api.NewFeed("", t.TempDir())
	normalizer := dpdsync.NewNormalizer()

	return &Server{
		cfg:          &config.Config{Version: "test", ClientCurrency: "RUB"},
		store:        st,
		orchestrator: dpdsync.NewOrchestrator(feed, geo, st, st, st, normalizer, dpdsync.Budget{}, testLogger()),
		calculator:   calc.NewCalculator(geo, nil, calc.Config{ClientCurrency: "RUB"}),
		normalizer:   normalizer,
		logger:       testLogger(),
		metrics:      testMetrics,
	}
}

func testLogger() *otelzap.Logger {
	return otelzap.New(zap.NewNop())
}

func seedLocations(t *testing.T, s *Server) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.store.UpsertLocation(ctx, &dpd.Location{
		CountryCode: "RU",
		CountryName: "Россия",
		RegionName:  "Московская область",
		CityID:      195455591,
		CityName:    "Москва",
		CityAbbr:    "г",
		OrigName:    "Россия, Московская область, г Москва",
		OrigNameLC:  "россия, московская область, г москва",
		IsCity:      true,
	}))
	require.NoError(t, s.store.UpsertLocation(ctx, &dpd.Location{
		CountryCode: "KZ",
		CountryName: "Казахстан",
		RegionName:  "Алматинская область",
		CityID:      49694102,
		CityName:    "Алматы",
		CityAbbr:    "г",
		OrigName:    "Казахстан, Алматинская область, г Алматы",
		OrigNameLC:  "казахстан, алматинская область, г алматы",
		IsCity:      true,
	}))
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.EqualValues(t, 0, body["terminals"])
}

func TestHandleLocationSearch(t *testing.T) {
	s := newTestServer(t)
	seedLocations(t, s)

	rec := doRequest(s, http.MethodGet, "/api/v1/locations/search?q=алматы", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	locations := body["locations"].([]any)
	require.Len(t, locations, 1)
	loc := locations[0].(map[string]any)
	assert.EqualValues(t, 49694102, loc["city_id"])
	assert.Equal(t, "Казахстан, Алматинская область, г Алматы", loc["display_name"])
}

func TestHandleLocationSearch_MissingQuery(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/v1/locations/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTerminals(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.UpsertTerminal(context.Background(), &dpd.Terminal{
		LocationID:         195455591,
		Code:               "M10",
		Name:               "Каширское шоссе ш, д. 19",
		ScheduleSelfPickup: "Пн-Пт: 09:00-19:00",
		NppAmount:          300000,
		NppAvailable:       true,
	}))

	rec := doRequest(s, http.MethodGet, "/api/v1/terminals?city_id=195455591", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	terminals := body["terminals"].([]any)
	require.Len(t, terminals, 1)
	term := terminals[0].(map[string]any)
	assert.Equal(t, "M10", term["code"])
	assert.Equal(t, []any{"Пн-Пт: 09:00-19:00"}, term["schedule_self_pickup"])

	rec = doRequest(s, http.MethodGet, "/api/v1/terminals?city_id=404", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["terminals"])

	rec = doRequest(s, http.MethodGet, "/api/v1/terminals", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuote(t *testing.T) {
	s := newTestServer(t)
	seedLocations(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/quote", map[string]any{
		"sender":   map[string]any{"city_id": 195455591},
		"receiver": map[string]any{"city_id": 49694102},
		"weight":   2.5,
		"price":    1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["quote_id"])

	tariffs := body["tariffs"].([]any)
	require.Len(t, tariffs, 1)
	tariff := tariffs[0].(map[string]any)
	assert.Equal(t, "ECN", tariff["service_code"])
	assert.InDelta(t, 289.50, tariff["cost"].(float64), 0.001)
	assert.Equal(t, "RUB", tariff["currency"])
}

func TestHandleQuote_ByAddress(t *testing.T) {
	s := newTestServer(t)
	seedLocations(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/quote", map[string]any{
		"sender":   map[string]any{"country": "россия", "city": "г. Москва"},
		"receiver": map[string]any{"country": "казахстан", "city": "г. Алматы"},
		"weight":   1.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleQuote_AllTariffs(t *testing.T) {
	s := newTestServer(t)
	seedLocations(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/quote", map[string]any{
		"sender":   map[string]any{"city_id": 195455591},
		"receiver": map[string]any{"city_id": 49694102},
		"weight":   2.5,
		"all":      true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["tariffs"].([]any), 3)
}

func TestHandleQuote_UnknownLocation(t *testing.T) {
	s := newTestServer(t)
	seedLocations(t, s)

	rec := doRequest(s, http.MethodPost, "/api/v1/quote", map[string]any{
		"sender":   map[string]any{"city_id": 195455591},
		"receiver": map[string]any{"city_id": 404},
		"weight":   2.5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleQuote_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncEndpoints(t *testing.T) {
	s := newTestServer(t)

	// A fresh database parks the pipeline at the cycle boundary.
	rec := doRequest(s, http.MethodGet, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "LOAD_FINISH", decodeBody(t, rec)["step"])

	// The first trigger arms a new cycle.
	rec = doRequest(s, http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "LOAD_LOCATION_ALL", decodeBody(t, rec)["step"])

	rec = doRequest(s, http.MethodPost, "/api/v1/sync/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "LOAD_FINISH", decodeBody(t, rec)["step"])
}
