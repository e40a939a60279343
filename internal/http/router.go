// Package http es el adapter HTTP del core: traduce requests decodificados a
// invocaciones del flow controller y resultados a JSON/status codes. El core
// no conoce nada de esta capa.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/tokengate/internal/backend"
	"github.com/dropDatabas3/tokengate/internal/flow"
	"github.com/dropDatabas3/tokengate/internal/observability/logger"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Controller *flow.Controller
	Store      backend.Store
}

// NewRouter arma el router chi con todas las rutas del servicio.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger)

	oc := &OAuthController{controller: d.Controller}
	r.Post("/oauth2/authorize", oc.Authorize)
	r.Post("/oauth2/token", oc.Token)
	r.Post("/oauth2/introspect", oc.Introspect)
	r.Post("/internal/jwt", oc.MintJWT)

	r.Get("/healthz", healthHandler(d.Store))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// requestLogger inyecta un logger scoped con request_id y loguea el acceso.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		l := logger.L().With(logger.RequestID(rid))
		ctx := logger.ToContext(r.Context(), l)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		l.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			logger.Duration(time.Since(start)),
		)
	})
}

func healthHandler(store backend.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
