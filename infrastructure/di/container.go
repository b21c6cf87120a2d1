package di

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ithailevi/expert/application/services"
	"github.com/ithailevi/expert/infrastructure/config"
	"github.com/ithailevi/expert/infrastructure/persistence/kbfile"
	"github.com/ithailevi/expert/pkg/observability"
)

// Container holds all application dependencies. The live domain is reached
// through Service, which swaps it on every reload.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Collector
	Tracing *observability.TracerProvider
	Service *services.KnowledgeService
	Watcher *kbfile.Watcher
	Handler http.Handler
}
