package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("expert")
	b := NewCollector("expert")

	a.ConceptsCreated.Inc()
	a.ConceptsCreated.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(a.ConceptsCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.ConceptsCreated))
}

func TestCollector_Observe(t *testing.T) {
	c := NewCollector("expert")

	c.ObserveFact(false)
	c.ObserveFact(true)
	c.ObserveFact(true)
	c.ObserveQuery("ask", OutcomeHit)
	c.ObserveQuery("ask", OutcomeError)
	c.ObserveReload(nil)
	c.ObserveReload(errors.New("broken"))
	c.ObserveHTTP(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.FactsEstablished.WithLabelValues("direct")))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.FactsEstablished.WithLabelValues("implied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Queries.WithLabelValues("ask", OutcomeHit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Queries.WithLabelValues("ask", OutcomeError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Reloads.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.HTTPRequests.WithLabelValues(http.MethodGet, "/health", "200")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("expert")
	c.RelationsCreated.Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "expert_relations_created_total 1"))
}

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), TracingConfig{ServiceName: "expert"})
	require.NoError(t, err)
	require.NotNil(t, tp.Tracer())

	ctx, span := StartSpan(context.Background(), tp.Tracer(), "test")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("ignored"))

	assert.NoError(t, tp.Shutdown(context.Background()))
}
