package middleware

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/krustie/core/handler"
)

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(req *handler.Request) bool
	// Generator creates new request IDs (default: UUID v4)
	Generator func() string
	// HeaderName specifies the header name for the request ID (default: "X-Request-ID")
	HeaderName string
	// UseExisting determines whether to use an existing request ID from the incoming request
	UseExisting bool
}

// RequestID creates a request ID middleware with default configuration.
// It generates a new UUID for each request and includes it in both the response
// locals and the response headers.
func RequestID() handler.Middleware {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig creates a request ID middleware with custom configuration.
// The ID is stored under handler.LocalRequestID so that observers such as the
// access logger can pick it up after the pipeline has finished.
func RequestIDWithConfig(cfg RequestIDConfig) handler.Middleware {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Request-ID"
	}

	if cfg.Generator == nil {
		cfg.Generator = func() string {
			return uuid.New().String()
		}
	}

	return handler.MiddlewareFunc(func(req *handler.Request, res *handler.Response) handler.Result {
		if cfg.Skip != nil && cfg.Skip(req) {
			return handler.Next
		}

		var requestID string

		if cfg.UseExisting {
			requestID = req.Header(cfg.HeaderName)
		}

		if requestID == "" {
			requestID = cfg.Generator()
		}

		res.SetLocal(handler.LocalRequestID, requestID)
		res.SetHeader(cfg.HeaderName, requestID)

		return handler.Next
	})
}

// GetRequestID retrieves the request ID assigned to res.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(res *handler.Response) (string, bool) {
	id := res.LocalString(handler.LocalRequestID)
	return id, id != ""
}
