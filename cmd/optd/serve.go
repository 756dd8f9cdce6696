package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/dataset"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/metrics"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/optd"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/oracle"
	"github.com/GoSim-25-26J-441/compression-optimizer/internal/runstore"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/config"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/logger"
)

func newServeCmd() *cobra.Command {
	var httpAddr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the optimiser over HTTP and gRPC",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if httpAddr != "" {
				cfg.Server.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("grpc-addr") {
				cfg.Server.GRPCAddr = grpcAddr
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides server.http_addr)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address, empty disables (overrides server.grpc_addr)")
	return cmd
}

// newService wires the oracle client, dataset resolver and run store from cfg
func newService(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*optd.Service, error) {
	if cfg.Oracle.URL == "" {
		return nil, fmt.Errorf("oracle url is required (set oracle.url or %s)", config.EnvOracleURL)
	}
	callTimeout, err := cfg.Oracle.GetTimeout()
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := cfg.Storage.GetFetchTimeout()
	if err != nil {
		return nil, err
	}

	client := oracle.NewClient(cfg.Oracle.URL, cfg.Oracle.APIKey,
		oracle.WithTimeout(callTimeout),
		oracle.WithMaxResponseBytes(cfg.Oracle.MaxResponseBytes),
		oracle.WithObserver(m))

	optimizer, err := optd.BuildOptimizer(cfg, client, m)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	resolver := dataset.NewResolver(dataset.NewFetcher(fetchTimeout).WithMaxBytes(cfg.Storage.MaxBytes))
	return optd.NewService(optimizer, resolver, store, m), nil
}

func newStore(ctx context.Context, cfg config.StoreConfig) (runstore.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := runstore.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		logger.Info("run history stored in postgres")
		return store, nil
	default:
		return runstore.NewMemoryStore(0), nil
	}
}

func serve(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	service, err := newService(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Store().Close(); err != nil {
			logger.Error("failed to close run store", "error", err)
		}
	}()

	logger.Info("parameter space ready", "candidates", service.Space().Size())

	var grpcServer *grpc.Server
	var healthServer *health.Server
	if cfg.Server.GRPCAddr != "" {
		// TODO: add TLS credentials once the service is exposed outside the cluster
		grpcServer, healthServer = optd.NewGRPCServer(service)

		grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on %s: %w", cfg.Server.GRPCAddr, err)
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				logger.Error("gRPC server error", "error", err)
				stop()
			}
		}()
	}

	httpHandler := optd.NewHTTPServer(service,
		optd.WithCORSOrigins(cfg.Server.CORSOrigins),
		optd.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	).Handler()

	// a full search makes one oracle call per candidate, so no write timeout
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	return nil
}
