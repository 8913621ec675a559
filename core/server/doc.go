// Package server wraps http.Server with graceful shutdown, production timeouts,
// optional TLS and a cap on concurrently accepted connections.
//
// # Basic Usage
//
//	d := dispatch.New(root)
//
//	srv := server.New(":8080",
//		server.WithLogger(log),
//		server.WithShutdownTimeout(10*time.Second),
//		server.WithMaxConnections(1024),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, d))
//	if err := g.Wait(); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// # Configuration
//
// Config is loaded from SERVER_* environment variables:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//
// Setting SERVER_TLS_CERT_FILE and SERVER_TLS_KEY_FILE enables HTTPS with
// DefaultTLSConfig. SERVER_MAX_CONNECTIONS limits accepted connections through
// golang.org/x/net/netutil; excess clients wait until a slot frees up.
//
// # Lifecycle
//
// Start blocks until the context is canceled or serving fails. Stop drains
// in-flight requests for at most the shutdown timeout. Run combines both for
// use with errgroup. Ready is closed once the listener is bound and Addr then
// reports the actual address, which is useful with ":0".
package server
