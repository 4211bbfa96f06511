package http

import (
	"context"
	"net/http"
	"time"

	"github.com/mind-engage/formquiz/internal/apierr"
)

func Healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// Readyz reports 503 until every check passes.
func Readyz(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			apierr.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		apierr.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
