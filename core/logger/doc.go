// Package logger provides structured logging utilities built on Go's standard
// slog package: a configurable constructor, nil-safe attribute helpers and an
// access log observer for the dispatcher.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithDevelopment("krustie"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("server starting",
//		logger.Component("server"),
//		logger.Addr(":8080"),
//	)
//
// Environment driven configuration goes through Config:
//
//	var cfg logger.Config // LOG_LEVEL, LOG_FORMAT, LOG_SERVICE
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg)
//
// # Context Values
//
// Attributes can be pulled from the context passed to the *Context log methods:
//
//	log := logger.New(
//		logger.WithJSONFormatter(),
//		logger.WithContextValue("tenant", tenantKey{}),
//	)
//	log.InfoContext(ctx, "processing")
//
// # Attribute Helpers
//
// Helpers return an empty attribute for zero input, so they can be used
// without nil checks:
//
//	log.Error("dispatch failed",
//		logger.Error(err), // dropped when err is nil
//		logger.Method("POST"),
//		logger.Path("/api/users"),
//		logger.StatusCode(500),
//	)
//
// # Access Log
//
// AccessLog returns an observer writing one record per response:
//
//	d := dispatch.New(root, dispatch.WithObserver(logger.AccessLog(log)))
package logger
