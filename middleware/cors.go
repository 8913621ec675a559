package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/krustie/core/handler"
)

// CORSConfig defines configuration options for CORS middleware.
type CORSConfig struct {
	// Skip allows bypassing CORS handling for specific requests
	Skip func(req *handler.Request) bool

	// AllowOrigins specifies allowed origins. Use "*" for all origins.
	// If empty, defaults to allowing all origins ("*")
	AllowOrigins []string

	// AllowMethods specifies allowed HTTP methods.
	// If empty, defaults to GET, HEAD, PUT, PATCH, POST, DELETE
	AllowMethods []string

	// AllowHeaders specifies allowed request headers.
	// If empty, defaults to common headers including Authorization and Content-Type
	AllowHeaders []string

	// ExposeHeaders specifies which headers are exposed to the client
	ExposeHeaders []string

	// AllowCredentials indicates whether credentials (cookies, authorization headers)
	// are allowed. Never sent together with a wildcard origin
	AllowCredentials bool

	// MaxAge specifies how long preflight requests can be cached (in seconds)
	MaxAge int

	// AllowOriginFunc provides custom origin validation logic.
	// Takes precedence over AllowOrigins when set.
	// Returns the allowed origin value and whether the origin is allowed
	AllowOriginFunc func(origin string) (string, bool)
}

// CORS returns a CORS middleware with default configuration.
// Default behavior allows all origins (*), common HTTP methods, and standard headers.
//
// Preflight requests are answered with 204 and end the pipeline. They only
// reach the middleware when routing resolves, so the path must accept OPTIONS,
// for example by registering the endpoint with Handle or adding an Options route:
//
//	r.Use(middleware.CORS())
//	r.Handle("/api/items", items)
//
// SECURITY NOTE: The default wildcard (*) origin should only be used in
// development. Production applications should specify exact allowed origins.
func CORS() handler.Middleware {
	return CORSWithConfig(CORSConfig{})
}

// CORSWithConfig returns a CORS middleware with custom configuration.
//
//	r.Use(middleware.CORSWithConfig(middleware.CORSConfig{
//		AllowOrigins:     []string{"https://myapp.com", "https://api.myapp.com"},
//		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
//		AllowHeaders:     []string{"Content-Type", "Authorization"},
//		AllowCredentials: true,
//		MaxAge:           86400,
//	}))
func CORSWithConfig(cfg CORSConfig) handler.Middleware {
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		}
	}

	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{
			"Accept",
			"Accept-Language",
			"Content-Language",
			"Content-Type",
			"Origin",
			"Authorization",
			"X-Request-ID",
		}
	}

	allowMethods := strings.Join(cfg.AllowMethods, ",")
	allowHeaders := strings.Join(cfg.AllowHeaders, ",")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ",")

	allowOriginsMap := make(map[string]bool, len(cfg.AllowOrigins))
	for _, origin := range cfg.AllowOrigins {
		allowOriginsMap[origin] = true
	}

	return handler.MiddlewareFunc(func(req *handler.Request, res *handler.Response) handler.Result {
		if cfg.Skip != nil && cfg.Skip(req) {
			return handler.Next
		}

		origin := req.Header("Origin")

		var allowedOrigin string
		allowed := false

		// Origin validation priority: custom function > wildcard/empty > explicit list
		switch {
		case cfg.AllowOriginFunc != nil:
			allowedOrigin, allowed = cfg.AllowOriginFunc(origin)
		case len(cfg.AllowOrigins) == 0 || allowOriginsMap["*"]:
			allowedOrigin = "*"
			allowed = true
		case allowOriginsMap[origin]:
			allowedOrigin = origin
			allowed = true
		}

		requestMethod, isPreflight := req.LookupHeader("Access-Control-Request-Method")
		isPreflight = isPreflight && req.Method() == handler.MethodOptions

		if isPreflight {
			if !allowed || !slices.Contains(cfg.AllowMethods, requestMethod) {
				res.Status(http.StatusForbidden)
				return handler.End
			}

			res.SetHeader("Access-Control-Allow-Origin", allowedOrigin)
			res.SetHeader("Access-Control-Allow-Methods", allowMethods)

			if req.Header("Access-Control-Request-Headers") != "" {
				res.SetHeader("Access-Control-Allow-Headers", allowHeaders)
			}

			if cfg.AllowCredentials && allowedOrigin != "*" {
				res.SetHeader("Access-Control-Allow-Credentials", "true")
			}

			if cfg.MaxAge > 0 {
				res.SetHeader("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}

			addVary(res, "Origin")
			addVary(res, "Access-Control-Request-Method")
			addVary(res, "Access-Control-Request-Headers")

			res.Status(http.StatusNoContent)
			return handler.End
		}

		if !allowed {
			return handler.Next
		}

		res.SetHeader("Access-Control-Allow-Origin", allowedOrigin)

		if cfg.AllowCredentials && allowedOrigin != "*" {
			res.SetHeader("Access-Control-Allow-Credentials", "true")
		}

		if exposeHeaders != "" {
			res.SetHeader("Access-Control-Expose-Headers", exposeHeaders)
		}

		addVary(res, "Origin")
		return handler.Next
	})
}

// AllowOriginWildcard returns an AllowOriginFunc that allows any origin except empty strings.
// It echoes the actual origin, so credentials can still be allowed.
func AllowOriginWildcard() func(origin string) (string, bool) {
	return func(origin string) (string, bool) {
		if origin == "" {
			return "", false
		}
		return origin, true
	}
}

// AllowOriginSubdomain returns an AllowOriginFunc that allows requests from the specified
// domain and all its subdomains, with or without a port.
// The domain parameter should be provided without protocol (e.g., "example.com").
func AllowOriginSubdomain(domain string) func(origin string) (string, bool) {
	domain = strings.TrimPrefix(domain, "*.")
	domain = strings.TrimPrefix(domain, ".")
	domain = strings.ToLower(domain)
	domainWithDot := "." + domain

	return func(origin string) (string, bool) {
		if origin == "" {
			return "", false
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return "", false
		}

		host := strings.ToLower(u.Hostname())
		if host == domain || strings.HasSuffix(host, domainWithDot) {
			return origin, true
		}

		return "", false
	}
}
