package rest

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/ithailevi/expert/application/services"
	"github.com/ithailevi/expert/domain/core/aggregates"
	"github.com/ithailevi/expert/pkg/observability"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Type    string                 `json:"type"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	metrics := observability.NewCollector("expert")
	d := aggregates.NewDomain(aggregates.WithRand(rand.New(rand.NewSource(11))))
	svc := services.NewKnowledgeService(d, zaptest.NewLogger(t), metrics, noop.NewTracerProvider().Tracer("test"))
	return NewRouter(svc, metrics, zaptest.NewLogger(t), RouterConfig{
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
	}).Setup()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func seed(t *testing.T, h http.Handler) {
	t.Helper()
	for _, body := range []string{
		`{"id":"smallerThan","transitive":true}`,
		`{"id":"biggerThan","transitive":true,"inverseFor":"smallerThan"}`,
	} {
		rec, _ := do(t, h, http.MethodPost, "/api/v1/relations", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	for _, body := range []string{
		`{"subject":"dog","relation":"isa","object":"mammal"}`,
		`{"subject":"ant","relation":"smallerThan","object":"dog"}`,
		`{"subject":"dog","relation":"smallerThan","object":"elephant"}`,
	} {
		rec, _ := do(t, h, http.MethodPost, "/api/v1/facts", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	h := setupRouter(t)

	rec, env := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"healthy"`)
}

func TestRouter_Query(t *testing.T) {
	h := setupRouter(t)
	seed(t, h)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantData   string
		wantType   string
	}{
		{
			name:       "closure",
			target:     "/api/v1/relations/biggerThan/query?source=elephant",
			wantStatus: http.StatusOK,
			wantData:   `{"relation":"biggerThan","sources":["elephant"],"concepts":["dog","ant"]}`,
		},
		{
			name:       "holds",
			target:     "/api/v1/relations/smallerThan/query?source=ant&target=elephant",
			wantStatus: http.StatusOK,
			wantData:   `{"relation":"smallerThan","sources":["ant"],"target":"elephant","holds":true}`,
		},
		{
			name:       "missing source",
			target:     "/api/v1/relations/isa/query",
			wantStatus: http.StatusBadRequest,
			wantType:   "VALIDATION",
		},
		{
			name:       "unknown relation",
			target:     "/api/v1/relations/likes/query?source=dog",
			wantStatus: http.StatusNotFound,
			wantType:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantData != "" {
				assert.JSONEq(t, tt.wantData, string(env.Data))
				return
			}
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantType, env.Error.Type)
		})
	}
}

func TestRouter_DefineRelationErrors(t *testing.T) {
	h := setupRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed body", `{"id":`, http.StatusBadRequest},
		{"unknown field", `{"name":"x"}`, http.StatusBadRequest},
		{"unknown inverse", `{"id":"x","inverseFor":"ghost"}`, http.StatusNotFound},
		{"built-in collision", `{"id":"isa"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/v1/relations", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
		})
	}
}

func TestRouter_AssertReportsImpliedRelations(t *testing.T) {
	h := setupRouter(t)
	for _, body := range []string{`{"id":"a"}`, `{"id":"b","implies":"a"}`, `{"id":"c","implies":"b"}`} {
		rec, _ := do(t, h, http.MethodPost, "/api/v1/relations", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := do(t, h, http.MethodPost, "/api/v1/facts", `{"subject":"x","relation":"c","object":"y"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"subject":"x","object":"y","relations":["c","b","a"]}`, string(env.Data))
}

func TestRouter_Concepts(t *testing.T) {
	h := setupRouter(t)
	seed(t, h)

	rec, env := do(t, h, http.MethodGet, "/api/v1/concepts/dog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"dog","links":{"isa":["mammal"],"biggerThan":["ant"],"smallerThan":["elephant"]}}`, string(env.Data))

	rec, env = do(t, h, http.MethodGet, "/api/v1/concepts/mammal/any/example", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"concept":"mammal","relation":"example","found":true,"linked":"dog"}`, string(env.Data))

	rec, env = do(t, h, http.MethodGet, "/api/v1/concepts/ant/any/example", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"concept":"ant","relation":"example","found":false}`, string(env.Data))

	rec, _ = do(t, h, http.MethodGet, "/api/v1/concepts/unicorn", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Snapshot(t *testing.T) {
	h := setupRouter(t)
	seed(t, h)

	rec, env := do(t, h, http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot aggregates.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	assert.Len(t, snapshot.Concepts, 4)
	assert.Len(t, snapshot.Relations, 4)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/snapshot?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	var fromYAML aggregates.Snapshot
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &fromYAML))
	assert.Equal(t, snapshot, fromYAML)
}

func TestRouter_Metrics(t *testing.T) {
	h := setupRouter(t)
	do(t, h, http.MethodGet, "/health", "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `expert_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "expert_relations_created_total 2")
}

func TestRouter_AssertUnknownRelation(t *testing.T) {
	h := setupRouter(t)

	rec, env := do(t, h, http.MethodPost, "/api/v1/facts", `{"subject":"x","relation":"unknown","object":"y"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "relation unknown not found", env.Error.Message)

	rec, env = do(t, h, http.MethodPost, "/api/v1/facts", `{"subject":"x","relation":"isa"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION", env.Error.Type)
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	h := setupRouter(t)

	body := `{"subject":"` + strings.Repeat("a", 2<<20) + `","relation":"isa","object":"b"}`
	rec, env := do(t, h, http.MethodPost, "/api/v1/facts", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "request body too large", env.Error.Message)
}
