package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-poster-orders/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(log *zap.Logger, sm *metrics.ServerMetrics) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	if sm != nil {
		r.Use(Instrument(sm))
	}
	r.Use(middleware.Timeout(15 * time.Second))
	return r
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Health answers 200 when every check passes and 503 with the failing names
// otherwise.
func Health(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		writeJSON(w, code, status)
	}
}
