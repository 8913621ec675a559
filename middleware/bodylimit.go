package middleware

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Common size constants for convenience
const (
	// KB represents 1 kilobyte
	KB int64 = 1024
	// MB represents 1 megabyte
	MB = 1024 * KB
	// GB represents 1 gigabyte
	GB = 1024 * MB
)

// BodyLimitConfig configures the request body limit middleware.
//
// The dispatcher already caps bodies globally (see dispatch.WithMaxBodySize);
// this middleware applies tighter limits to particular routers or routes.
type BodyLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(req *handler.Request) bool

	// MaxSize is the maximum allowed size in bytes (default: 4MB)
	MaxSize int64

	// ContentTypeLimit allows setting different limits per content type
	// Example: {"application/json": 1MB, "text/plain": 64KB}
	ContentTypeLimit map[string]int64

	// ErrorHandler renders the rejection (default: 413 with a short message)
	ErrorHandler func(req *handler.Request, res *handler.Response, size, maxSize int64)
}

// BodyLimit creates a body limit middleware with default configuration (4MB limit).
func BodyLimit() handler.Middleware {
	return BodyLimitWithConfig(BodyLimitConfig{})
}

// BodyLimitWithSize creates a body limit middleware with a specified size limit.
func BodyLimitWithSize(maxSize int64) handler.Middleware {
	return BodyLimitWithConfig(BodyLimitConfig{
		MaxSize: maxSize,
	})
}

// BodyLimitWithConfig creates a body limit middleware with custom configuration.
// The size is the larger of the declared Content-Length and the received body.
// Requests over the limit get 413 and the pipeline ends.
//
//	r.Endpoint(handler.MethodPost, "/upload", upload, middleware.BodyLimitWithSize(64*middleware.KB))
func BodyLimitWithConfig(cfg BodyLimitConfig) handler.Middleware {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 4 * MB
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(req *handler.Request, res *handler.Response, size, maxSize int64) {
			res.Status(http.StatusRequestEntityTooLarge).Text(fmt.Sprintf(
				"Request body too large. Size: %s, Maximum allowed: %s",
				formatBytes(size), formatBytes(maxSize),
			))
		}
	}

	return handler.MiddlewareFunc(func(req *handler.Request, res *handler.Response) handler.Result {
		if cfg.Skip != nil && cfg.Skip(req) {
			return handler.Next
		}

		maxSize := cfg.MaxSize
		if cfg.ContentTypeLimit != nil {
			mediaType, _, err := mime.ParseMediaType(req.Header("Content-Type"))
			if err == nil {
				if limit, ok := cfg.ContentTypeLimit[mediaType]; ok {
					maxSize = limit
				}
			}
		}

		size := int64(len(req.Body().Bytes()))
		if declared, err := strconv.ParseInt(req.Header("Content-Length"), 10, 64); err == nil && declared > size {
			size = declared
		}

		if size > maxSize {
			cfg.ErrorHandler(req, res, size, maxSize)
			return handler.End
		}

		return handler.Next
	})
}

// formatBytes formats bytes into a human-readable string
func formatBytes(bytes int64) string {
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
