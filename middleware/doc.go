// Package middleware provides pipeline middleware for common cross-cutting
// concerns: request IDs, client IP extraction, rate limiting, CORS, body size
// limits, security headers, response compression and Prometheus metrics.
//
// Every middleware implements handler.Middleware and follows the same pattern:
//   - a Config struct for customization, with a Skip func where it makes sense
//   - a default constructor for the common case
//   - a WithConfig constructor for advanced configuration
//   - helpers for reading values stored in the response locals
//
// # Placement
//
// A router runs its attachments in insertion order and its own routes last, so
// middleware attached with Use runs before the handlers registered on the same
// router. Middleware that inspects the request belongs there:
//
//	app := router.New()
//	app.Use(middleware.RequestID(), middleware.ClientIP(), middleware.RateLimit(cfg))
//	app.Get("/hello", hello)
//
// Middleware that transforms the finished response, such as Compress and
// SecurityHeaders, has to run after the handler. Mount the application on a
// root router and attach them after the mount:
//
//	root := router.New()
//	root.Mount("/", app)
//	root.Use(middleware.SecurityHeaders(), middleware.Compress())
//
// Returning End stops the pipeline. RateLimit, BodyLimit, CORS preflight and a
// failed ClientIP validation all end the pipeline with their own response.
//
// Requests that do not resolve to a route are answered by the dispatcher
// without running any middleware.
//
// # Request ID
//
//	app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
//		UseExisting: true,
//	}))
//
//	func show(req *handler.Request, res *handler.Response) {
//		id, _ := middleware.GetRequestID(res)
//		res.Text(id)
//	}
//
// # Rate Limiting
//
// RateLimit keeps one token bucket per client IP (or per key returned by
// KeyExtractor) built on golang.org/x/time/rate. The configuration can be
// loaded from the environment:
//
//	var cfg middleware.RateLimitConfig // RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW
//	config.MustLoad(&cfg)
//	app.Use(middleware.RateLimit(cfg))
//
// # Metrics
//
// Metrics is both a middleware and a dispatcher observer:
//
//	m := middleware.NewMetrics(middleware.MetricsConfig{Namespace: "app", RuntimeCollectors: true})
//	app.Use(m)
//	app.Get("/metrics", m.Handler())
//	d := dispatch.New(root, dispatch.WithObserver(m))
package middleware
