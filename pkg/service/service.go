// Package service holds the start-up and shutdown plumbing shared by the
// simulator, database and controlcenter binaries.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"solar-system/pkg/registry"
)

const (
	redisRetryInterval = 2 * time.Second
	healthInterval     = 2 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// ConnectRedis retries until Redis answers or ctx is done.
func ConnectRedis(ctx context.Context, addr string, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	for {
		err := client.Ping(ctx).Err()
		if err == nil {
			return client, nil
		}
		logger.Warn("Redis not ready, retrying", zap.String("addr", addr), zap.Duration("in", redisRetryInterval), zap.Error(err))
		select {
		case <-ctx.Done():
			client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", addr, ctx.Err())
		case <-time.After(redisRetryInterval):
		}
	}
}

// ReportHealth keeps the instance's TTL check passing until ctx is done.
func ReportHealth(ctx context.Context, reg registry.Registry, instanceID, serviceName string, logger *zap.Logger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		if err := reg.ReportHealthyState(instanceID, serviceName); err != nil {
			logger.Warn("Failed to report healthy state", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	<-errc
	return nil
}

// IgnoreCanceled maps context.Canceled to nil so a signal-driven shutdown
// does not surface as a failure.
func IgnoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
