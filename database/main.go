package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solar-system/database/handler"
	"solar-system/database/store"
	"solar-system/pkg/config"
	"solar-system/pkg/discovery/consul"
	"solar-system/pkg/events"
	"solar-system/pkg/logging"
	"solar-system/pkg/registry"
	"solar-system/pkg/service"
	"solar-system/simulator/model"
)

const serviceName = "snapshot-db"

func main() {
	var (
		configPath string
		port       int
		dbPath     string
	)

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Records every simulation step in SQLite",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Database.Port = port
			}
			if cmd.Flags().Changed("db") {
				cfg.Database.Path = dbPath
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "solar.yaml", "path to the YAML config")
	cmd.Flags().IntVar(&port, "port", 8084, "Snapshot DB service port")
	cmd.Flags().StringVar(&dbPath, "db", "./database/snapshots.db", "SQLite database file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(serviceName, cfg.Log.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting snapshot DB service", zap.Int("port", cfg.Database.Port), zap.String("db", cfg.Database.Path))

	redisClient, err := service.ConnectRedis(ctx, cfg.Redis.Addr, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}
	snapshots, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	reg, err := consul.NewRegistry(cfg.Consul.Addr)
	if err != nil {
		return err
	}
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("get hostname: %w", err)
	}
	instanceID := registry.GenerateInstanceID(serviceName)
	if err := reg.Register(ctx, instanceID, serviceName, fmt.Sprintf("%s:%d", hostname, cfg.Database.Port)); err != nil {
		return fmt.Errorf("register in consul: %w", err)
	}
	defer reg.Deregister(context.Background(), instanceID, serviceName)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Database.Port),
		Handler: handler.New(snapshots, logger).Routes(),
	}

	record := func(ctx context.Context, snap model.Snapshot) error {
		return snapshots.Save(ctx, snap)
	}
	if err := events.CatchUp(ctx, redisClient, logger, record); err != nil {
		logger.Warn("Failed to record latest step", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		service.ReportHealth(ctx, reg, instanceID, serviceName, logger)
		return nil
	})
	g.Go(func() error {
		return service.IgnoreCanceled(events.Subscribe(ctx, redisClient, logger, record))
	})
	g.Go(func() error {
		return service.Serve(ctx, srv, logger)
	})
	return g.Wait()
}
