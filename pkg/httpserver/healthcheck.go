package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Abin-Raju-19/fiteness-pro/pkg/logger"
)

// HealthCheckHandler serves liveness and readiness probes.
//
// Without dependency checks the handler answers 200 "ALIVE". With one
// or more checks it runs each and answers 200 "READY" only when all
// succeed, otherwise 500 "NOT_READY".
func HealthCheckHandler(ctx context.Context, log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ALIVE"))
			return
		}

		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}
