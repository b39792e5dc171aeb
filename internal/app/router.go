package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moodlog/moodlog/internal/activities"
	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/observability"
	"github.com/moodlog/moodlog/internal/shared"
	"github.com/moodlog/moodlog/internal/view"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Templates         *view.Engine
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	Access            auth.Middleware
	AuthHandler       *auth.Handler
	ActivitiesHandler *activities.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with the full middleware stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Access:         params.Access,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil && params.Config.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if static, err := staticHandler(); err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		r.Handle("/static/*", static)
	}

	params.AuthHandler.MountRoutes(r)
	params.ActivitiesHandler.MountRoutes(r)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		data := view.NewTemplateData(r, params.CSRFManager, "Not found", nil)
		if err := params.Templates.RenderStatus(w, http.StatusNotFound, "pages/not_found.html", data); err != nil {
			params.Logger.Error("render not found", slog.Any("error", err))
		}
	})

	return r
}
