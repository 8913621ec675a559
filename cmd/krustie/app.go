package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/dmitrymomot/krustie/core/handler"
	"github.com/dmitrymomot/krustie/core/health"
	"github.com/dmitrymomot/krustie/core/logger"
	"github.com/dmitrymomot/krustie/core/router"
	"github.com/dmitrymomot/krustie/core/server"
	"github.com/dmitrymomot/krustie/core/static"
	"github.com/dmitrymomot/krustie/middleware"
)

// Config is the demo application configuration. Nested configs keep the
// environment variables of their own packages.
type Config struct {
	StaticDir   string `env:"APP_STATIC_DIR" envDefault:"./public"`
	MaxBodySize int64  `env:"APP_MAX_BODY_SIZE" envDefault:"10485760"`

	Server    server.Config
	Log       logger.Config
	RateLimit middleware.RateLimitConfig
	Compress  middleware.CompressConfig
	Metrics   middleware.MetricsConfig
}

type app struct {
	root    *router.Router
	metrics *middleware.Metrics
}

// newApp builds the router tree:
//
//	root: security headers, compression (run after the app answered)
//	└── "/" app: request id, client ip, rate limit, metrics
//	    ├── GET  /health/live, /health/ready
//	    ├── GET  /hello
//	    ├── POST /echo
//	    ├── GET  /user/:id
//	    ├── GET  /assets/*   (only when the static dir exists)
//	    └── GET  /metrics
func newApp(cfg Config, log *slog.Logger) *app {
	metrics := middleware.NewMetrics(cfg.Metrics)

	a := router.New()
	a.Use(
		middleware.RequestID(),
		middleware.ClientIP(),
		middleware.RateLimit(cfg.RateLimit),
		metrics,
	)

	a.Get("/health/live", health.Liveness)
	a.Get("/health/ready", health.Readiness(log, staticDirCheck(cfg.StaticDir)))
	a.Get("/hello", hello)
	a.Post("/echo", echo)
	a.Get("/user/:id", user)
	a.Get("/metrics", metrics.Handler())

	if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
		a.Get("/assets/*", static.Dir(cfg.StaticDir, static.WithCacheControl("public, max-age=3600")).Handler())
	} else {
		log.Warn("static directory is not available, /assets disabled",
			logger.Component("static"),
			slog.String("dir", cfg.StaticDir),
		)
	}

	root := router.New()
	root.Mount("/", a)
	root.Use(
		middleware.SecurityHeaders(),
		middleware.CompressWithConfig(cfg.Compress),
	)

	return &app{root: root, metrics: metrics}
}

func hello(req *handler.Request, res *handler.Response) {
	name := req.QueryValue("name")
	if name == "" {
		name = "world"
	}
	res.Text("Hello, " + name + "!")
}

// echo answers with the request body, keeping its kind.
func echo(req *handler.Request, res *handler.Response) {
	body := req.Body()
	if v, ok := body.JSON(); ok {
		res.JSON(v)
		return
	}
	if s, ok := body.Text(); ok {
		res.Text(s)
		return
	}
	if body.IsEmpty() {
		res.Status(http.StatusNoContent)
		return
	}
	res.Body(body.Bytes(), "application/octet-stream")
}

func user(req *handler.Request, res *handler.Response) {
	res.JSON(map[string]string{
		"id":         req.Param("id"),
		"request_id": res.LocalString(handler.LocalRequestID),
	})
}

// staticDirCheck fails while the static directory is missing.
func staticDirCheck(dir string) health.Check {
	return func(context.Context) error {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("static directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("static directory: %s is not a directory", dir)
		}
		return nil
	}
}
