package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/catastroguard/internal/adapter/http"
	"github.com/couchcryptid/catastroguard/internal/domain"
	"github.com/couchcryptid/catastroguard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(t *testing.T, readyErr error) *httpadapter.Server {
	t.Helper()

	snapshot := store.NewMemory()
	require.NoError(t, snapshot.LoadBatch(context.Background(), []domain.Refresh{
		{
			Feed: domain.FeedAlerts,
			Alerts: []domain.ClassifiedAlert{
				{
					ID:              "alert-1",
					NormalizedAlert: domain.NormalizedAlert{Title: "Flash Flood Warning", Area: "San Diego County", Event: "Flash Flood Warning", Severity: "Severe"},
					Risk:            domain.Classification{Label: domain.RiskSevere},
				},
				{
					ID:              "alert-2",
					NormalizedAlert: domain.NormalizedAlert{Title: "Heat Advisory", Area: "Coachella Valley", Event: "Heat Advisory", Severity: "Moderate"},
					Risk:            domain.Classification{Label: domain.RiskLow},
				},
			},
		},
		{
			Feed: domain.FeedNews,
			News: []domain.NewsRecord{
				{ID: "news-1", NormalizedNewsItem: domain.NormalizedNewsItem{Headline: "Flooding in San Diego"}},
				{ID: "news-2", NormalizedNewsItem: domain.NormalizedNewsItem{Headline: "Markets steady", Description: "Stocks flat"}},
			},
		},
	}))

	risker := domain.MustNewClassifier(domain.DefaultCorpus())
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, snapshot, risker, slog.Default())
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	srv.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Data  []map[string]any `json:"data"`
	Count int              `json:"count"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listBody {
	t.Helper()
	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(newTestServer(t, errors.New("not ready yet")), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAlertsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
		ids    []string
	}{
		{name: "no filter", target: "/api/v1/alerts", ids: []string{"alert-1", "alert-2"}},
		{name: "location", target: "/api/v1/alerts?location=san+diego", ids: []string{"alert-1"}},
		{name: "event", target: "/api/v1/alerts?event=heat", ids: []string{"alert-2"}},
		{name: "severity", target: "/api/v1/alerts?severity=moderate", ids: []string{"alert-2"}},
		{name: "min risk by name", target: "/api/v1/alerts?min_risk=severe", ids: []string{"alert-1"}},
		{name: "min risk by ordinal", target: "/api/v1/alerts?min_risk=1", ids: []string{"alert-1", "alert-2"}},
		{name: "no match", target: "/api/v1/alerts?location=fresno", ids: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decodeList(t, rec)
			assert.Equal(t, len(tt.ids), body.Count)
			ids := make([]string, 0, len(body.Data))
			for _, a := range body.Data {
				ids = append(ids, a["id"].(string))
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestAlertsEndpoint_RiskShape(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/v1/alerts?location=san+diego", "")
	body := decodeList(t, rec)
	require.Len(t, body.Data, 1)

	alert := body.Data[0]
	assert.Equal(t, "San Diego County", alert["area"])
	risk, ok := alert["risk"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Severe", risk["label"])
	assert.Equal(t, "critical", risk["notice"])
}

func TestAlertsEndpoint_InvalidMinRisk(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/v1/alerts?min_risk=extreme", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "min_risk")
}

func TestNewsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	body := decodeList(t, do(srv, http.MethodGet, "/api/v1/news", ""))
	assert.Equal(t, 2, body.Count)

	body = decodeList(t, do(srv, http.MethodGet, "/api/v1/news?keyword=STOCKS", ""))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "news-2", body.Data[0]["id"])
}

func TestClassifyEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/api/v1/classify", `{"description":"Flash flood alert with evacuation orders"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Label         string             `json:"label"`
		Notice        string             `json:"notice"`
		Probabilities map[string]float64 `json:"probabilities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Severe", body.Label)
	assert.Equal(t, "critical", body.Notice)
	require.Len(t, body.Probabilities, 3)

	var sum float64
	for _, p := range body.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestClassifyEndpoint_EmptyDescriptionUsesPriors(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodPost, "/api/v1/classify", `{"description":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Severe", body["label"])
}

func TestClassifyEndpoint_BadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	for name, payload := range map[string]string{
		"malformed":     `{"description":`,
		"missing field": `{}`,
		"unknown field": `{"text":"flood"}`,
		"wrong type":    `{"description":42}`,
		"not an object": `"flood"`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, "/api/v1/classify", payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestClassifyEndpoint_MethodNotAllowed(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/api/v1/classify", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerWithoutSnapshotServesOnlyOperationalRoutes(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, nil, nil, slog.Default())

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/api/v1/alerts", "").Code)
}
