package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type countingRegistry struct {
	mu      sync.Mutex
	reports int
}

func (c *countingRegistry) Register(context.Context, string, string, string) error { return nil }
func (c *countingRegistry) Deregister(context.Context, string, string) error       { return nil }
func (c *countingRegistry) ServiceAddresses(context.Context, string) ([]string, error) {
	return nil, nil
}

func (c *countingRegistry) ReportHealthyState(string, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports++
	return errors.New("agent unreachable")
}

func TestReportHealthReportsImmediatelyAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := &countingRegistry{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ReportHealth(ctx, reg, "sim-1", "simulator", zap.NewNop())
		close(done)
	}()

	require.Eventually(t, func() bool {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		return reg.reports == 1
	}, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, zap.NewNop()) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get(fmt.Sprintf("http://%s/health", addr))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestServeReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := &http.Server{Addr: ln.Addr().String()}
	err = Serve(context.Background(), srv, zap.NewNop())
	assert.Error(t, err)
}

func TestConnectRedisGivesUpOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ConnectRedis(ctx, "127.0.0.1:1", zap.NewNop())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, IgnoreCanceled(context.Canceled))
	assert.NoError(t, IgnoreCanceled(fmt.Errorf("run: %w", context.Canceled)))
	assert.NoError(t, IgnoreCanceled(nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, IgnoreCanceled(boom))
}
