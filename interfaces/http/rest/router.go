package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ithailevi/expert/application/services"
	"github.com/ithailevi/expert/interfaces/http/rest/handlers"
	"github.com/ithailevi/expert/interfaces/http/rest/middleware"
	"github.com/ithailevi/expert/pkg/common"
	"github.com/ithailevi/expert/pkg/observability"
)

// RouterConfig holds the router's tunables
type RouterConfig struct {
	AllowedOrigins []string
	EnableMetrics  bool
}

// Router creates and configures the HTTP router
type Router struct {
	service *services.KnowledgeService
	metrics *observability.Collector
	logger  *zap.Logger
	config  RouterConfig
}

// NewRouter creates a new router instance
func NewRouter(
	service *services.KnowledgeService,
	metrics *observability.Collector,
	logger *zap.Logger,
	config RouterConfig,
) *Router {
	return &Router{
		service: service,
		metrics: metrics,
		logger:  logger,
		config:  config,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.config.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	if rt.config.EnableMetrics {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		h := handlers.NewKnowledgeHandler(rt.service, rt.logger)

		r.Get("/snapshot", h.GetSnapshot)

		r.Route("/relations", func(r chi.Router) {
			r.Get("/", h.ListRelations)
			r.Post("/", h.DefineRelation)
			r.Get("/{relationID}/query", h.Query)
		})

		r.Post("/facts", h.AssertFact)

		r.Route("/concepts/{conceptID}", func(r chi.Router) {
			r.Get("/", h.GetConcept)
			r.Get("/any/{relationID}", h.AnyLinked)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"domainID": rt.service.DomainID().String(),
	})
}
