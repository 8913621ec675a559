package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/logger"
)

// Check reports whether a dependency is available.
type Check func(ctx context.Context) error

// Readiness verifies all service dependencies are functioning.
// Answers "READY" if all checks pass, 503 Service Unavailable on the first failure.
//
//	r.Get("/health/ready", health.Readiness(log, pingDB, pingCache))
func Readiness(log *slog.Logger, checks ...Check) handler.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}

	return func(req *handler.Request, res *handler.Response) {
		for _, check := range checks {
			if err := check(req.Context()); err != nil {
				log.ErrorContext(req.Context(), "Readiness check failed",
					logger.Component("health"),
					logger.Error(err),
				)
				res.Status(http.StatusServiceUnavailable).Text(http.StatusText(http.StatusServiceUnavailable))
				return
			}
		}

		res.Text("READY")
	}
}
