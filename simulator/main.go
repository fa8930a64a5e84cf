package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solar-system/pkg/config"
	"solar-system/pkg/discovery/consul"
	"solar-system/pkg/events"
	"solar-system/pkg/logging"
	"solar-system/pkg/registry"
	"solar-system/pkg/service"
	"solar-system/simulator/handler"
	"solar-system/simulator/simulation"
)

const serviceName = "simulator"

func main() {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Steps the solar system and serves planet positions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Simulator.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "solar.yaml", "path to the YAML config")
	cmd.Flags().IntVar(&port, "port", 8081, "API handler port")

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

	logger.Info("Starting simulator service", zap.Int("port", cfg.Simulator.Port))

	// 1. Redis carries step events; wait for it.
	redisClient, err := service.ConnectRedis(ctx, cfg.Redis.Addr, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// 2. Simulation state.
	system, err := cfg.BuildSystem()
	if err != nil {
		return fmt.Errorf("build solar system: %w", err)
	}
	engine := simulation.NewEngine(system,
		simulation.WithLogger(logger),
		simulation.WithPublisher(events.NewRedisPublisher(redisClient)),
		simulation.WithTimeStep(cfg.Simulator.TimeStep),
	)
	logger.Info("Solar system ready", zap.Int("planets", system.Len()))

	// 3. Register with Consul using the container hostname.
	reg, err := consul.NewRegistry(cfg.Consul.Addr)
	if err != nil {
		return err
	}
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("get hostname: %w", err)
	}
	instanceID := registry.GenerateInstanceID(serviceName)
	if err := reg.Register(ctx, instanceID, serviceName, fmt.Sprintf("%s:%d", hostname, cfg.Simulator.Port)); err != nil {
		return fmt.Errorf("register in consul: %w", err)
	}
	defer reg.Deregister(context.Background(), instanceID, serviceName)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Simulator.Port),
		Handler: handler.New(engine, logger).Routes(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		service.ReportHealth(ctx, reg, instanceID, serviceName, logger)
		return nil
	})
	g.Go(func() error {
		return service.IgnoreCanceled(engine.Run(ctx, cfg.Simulator.StepInterval))
	})
	g.Go(func() error {
		return service.Serve(ctx, srv, logger)
	})
	return g.Wait()
}
