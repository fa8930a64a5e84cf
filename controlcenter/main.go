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

	"solar-system/controlcenter/proxy"
	"solar-system/pkg/config"
	"solar-system/pkg/discovery"
	"solar-system/pkg/discovery/consul"
	"solar-system/pkg/logging"
	"solar-system/pkg/registry"
	"solar-system/pkg/service"
)

const (
	serviceName   = "controller"
	simulatorName = "simulator"
	databaseName  = "snapshot-db"
)

func main() {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Gateway in front of the simulator and snapshot DB services",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.ControlCenter.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "solar.yaml", "path to the YAML config")
	cmd.Flags().IntVar(&port, "port", 8080, "Controller port")

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

	logger.Info("Starting controller service", zap.Int("port", cfg.ControlCenter.Port))

	redisClient, err := service.ConnectRedis(ctx, cfg.Redis.Addr, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	reg, err := consul.NewRegistry(cfg.Consul.Addr)
	if err != nil {
		return err
	}
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("get hostname: %w", err)
	}
	instanceID := registry.GenerateInstanceID(serviceName)
	if err := reg.Register(ctx, instanceID, serviceName, fmt.Sprintf("%s:%d", hostname, cfg.ControlCenter.Port)); err != nil {
		return fmt.Errorf("register in consul: %w", err)
	}
	defer reg.Deregister(context.Background(), instanceID, serviceName)

	resolver := discovery.NewResolver(reg, discovery.NewRedisCache(redisClient), cfg.ControlCenter.CacheTTL, logger)
	p := proxy.New(resolver, &http.Client{}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /simulator-url", p.URLHandler(simulatorName))
	mux.HandleFunc("/positions", p.To(simulatorName))
	mux.HandleFunc("/snapshot", p.To(simulatorName))
	mux.HandleFunc("/step", p.To(simulatorName))
	mux.HandleFunc("/planets", p.To(simulatorName))
	mux.HandleFunc("/snapshots", p.To(databaseName))
	mux.HandleFunc("/snapshots/", p.To(databaseName))
	mux.HandleFunc("/planets/{name}/trajectory", p.To(databaseName))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.ControlCenter.Port), Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		service.ReportHealth(ctx, reg, instanceID, serviceName, logger)
		return nil
	})
	g.Go(func() error {
		return service.Serve(ctx, srv, logger)
	})
	return g.Wait()
}
