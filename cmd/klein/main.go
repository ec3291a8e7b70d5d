package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"klein/internal/config"
	"klein/internal/health"
	"klein/internal/membership"
	"klein/internal/metrics"
	"klein/internal/proxy"
	"klein/internal/ring"
	"klein/internal/server"
	"klein/internal/state"
)

func main() {
	configPath := flag.String("config", "klein.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "klein: %v\n", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.LogLevel)
	defer logger.Sync()

	seed := cfg.Proxy.TokenSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := state.NewSource(seed)
	ports := state.NewPortAllocator(cfg.Provisioner.BasePort)

	pool := ring.NewPool()
	pool.Reset(cfg.Backends(src))
	logger.Info("ring built",
		zap.Int("backends", pool.Len()),
		zap.Int("virtual_nodes", len(pool.VirtualNodes())))

	var prov membership.Provisioner = membership.NoopProvisioner{}
	if cfg.Provisioner.Enabled {
		prov = &membership.DockerProvisioner{
			Image:   cfg.Provisioner.Image,
			Network: cfg.Provisioner.Network,
		}
	}
	manager := membership.NewManager(pool, prov, ports, src,
		cfg.Provisioner.Host, cfg.Provisioner.Strict, logger)

	monitor := health.NewMonitor(pool, cfg.Health.Path, cfg.HealthTimeout(), logger)

	registry := prometheus.NewRegistry()
	dispatcher := proxy.NewDispatcher(pool, src, cfg.ProxyTimeout(), metrics.New(registry), logger)

	srv := server.New(pool, manager, monitor, dispatcher, src, registry, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interval := cfg.HealthInterval(); interval > 0 {
		go monitor.Run(ctx, interval)
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func buildLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "klein: building logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
