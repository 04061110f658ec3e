package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/solatis/ordergate/internal/core/api"
	"github.com/solatis/ordergate/internal/core/server"
	"github.com/solatis/ordergate/internal/rules"
	"github.com/solatis/ordergate/internal/store"
	"github.com/solatis/ordergate/internal/telemetry"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC evaluation service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().String("metrics-addr", ":9090", "metrics listen address (empty disables)")
	serveCmd.Flags().String("schema", "", "schema YAML file (default: built-in schema)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	cfg := a.cfg

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("metrics-addr") {
		cfg.Server.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("schema") {
		cfg.Schema.File, _ = flags.GetString("schema")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := loadSchema(cfg.Schema.File)
	if err != nil {
		return err
	}

	conn, queries, err := openDatabase(ctx, a)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := requireMigrated(ctx, conn); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	engine, err := rules.NewEngine(registry,
		store.NewSQLRuleRepository(queries),
		store.NewSQLContextResolver(queries),
		rules.WithLogger(a.logger),
		rules.WithMetrics(metrics),
		rules.WithMaxConcurrency(cfg.Engine.MaxConcurrency),
	)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	service, err := api.NewEvaluationService(engine, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	a.logger.Info("starting ordergate",
		"version", Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"relations", registry.RelationNames())

	errChan := make(chan error, 2)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	var metricsServer *server.MetricsServer
	if cfg.Server.MetricsAddr != "" {
		metricsServer = server.NewMetricsServer(cfg.Server.MetricsAddr, reg, a.logger)
		go func() {
			errChan <- metricsServer.Start(ctx)
		}()
	}

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
