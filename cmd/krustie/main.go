package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/krustie/core/config"
	"github.com/dmitrymomot/krustie/core/dispatch"
	"github.com/dmitrymomot/krustie/core/logger"
	"github.com/dmitrymomot/krustie/core/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "krustie",
		Short:         "Demo server for the krustie routing toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address override (default from SERVER_ADDR)")

	routesCmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the registered routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a := newApp(cfg, logger.Nop())
			for _, route := range a.root.Routes() {
				fmt.Fprintln(cmd.OutOrStdout(), route.String())
			}
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, routesCmd)
	rootCmd.RunE = serveCmd.RunE
	return rootCmd
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg Config) error {
	log := logger.NewFromConfig(cfg.Log)

	a := newApp(cfg, log)
	d := dispatch.New(a.root,
		dispatch.WithLogger(log),
		dispatch.WithMaxBodySize(cfg.MaxBodySize),
		dispatch.WithObserver(logger.AccessLog(log.With(logger.Component("http.request"))), a.metrics),
	)

	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(srv.Run(ctx, d))

	if err := eg.Wait(); err != nil {
		log.Error("Failed to run server", logger.Component("server"), logger.Error(err))
		return err
	}

	log.Info("Application stopped")
	return nil
}
