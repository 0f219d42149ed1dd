package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/fnplot/pkg/api"
	grpcapi "github.com/lemonberrylabs/fnplot/pkg/api/grpc"
	"github.com/lemonberrylabs/fnplot/pkg/metrics"
	"github.com/lemonberrylabs/fnplot/pkg/plot"
	"github.com/lemonberrylabs/fnplot/pkg/render"
	"github.com/lemonberrylabs/fnplot/pkg/store"
	"github.com/lemonberrylabs/fnplot/web"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, web UI and gRPC service",
		Args:  cobra.NoArgs,
		RunE:  c.serve,
	}

	d := cmd.Flags()
	d.String("host", "localhost", "bind address (env FNPLOT_HOST)")
	d.Int("port", 8787, "HTTP server port (env FNPLOT_PORT)")
	d.Int("grpc-port", 8788, "gRPC server port, 0 disables gRPC (env FNPLOT_GRPC_PORT)")
	d.Int("cache-size", 256, "parsed expression cache size, 0 disables caching")
	d.String("history", "memory", "plot history backend (memory, sqlite)")
	d.String("history-path", "fnplot.db", "SQLite database for --history=sqlite")
	d.Int("history-limit", 50, "number of plots kept in the history")
	d.Float64("rate-limit", 0, "plot requests per second, 0 for unlimited")
	d.Int("rate-burst", 20, "burst size for --rate-limit")
	d.Bool("metrics", true, "expose Prometheus metrics on /metrics")
	for _, name := range []string{"host", "port", "grpc-port", "cache-size", "history", "history-path",
		"history-limit", "rate-limit", "rate-burst", "metrics"} {
		_ = c.v.BindPFlag(name, d.Lookup(name))
	}
	return cmd
}

func (c *cli) serve(cmd *cobra.Command, args []string) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		gatherer = reg
	}

	p, err := plot.New(plot.Config{Points: cfg.Points, CacheSize: cfg.CacheSize, Metrics: m})
	if err != nil {
		return err
	}

	history, err := store.Open(cfg.History, cfg.HistoryPath, cfg.HistoryLimit)
	if err != nil {
		return err
	}
	defer history.Close()

	r := render.New(render.Options{})
	server := api.New(p, r, history, api.Options{
		Metrics:   m,
		Gatherer:  gatherer,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
	web.New(p, r, history).Register(server.App())

	var grpcServer *grpcapi.Server
	if cfg.GRPCPort != 0 {
		grpcServer = grpcapi.New(p, history)
		go func() {
			log.Info().Str("addr", cfg.GRPCAddr()).Msg("gRPC server listening")
			if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
				log.Error().Err(err).Msg("gRPC server error")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := server.Shutdown(); err != nil {
			log.Error().Err(err).Msg("error during shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr()).
		Str("history", cfg.History).
		Int("points", p.Points()).
		Msg("fnplot listening")
	if err := server.Listen(cfg.HTTPAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

