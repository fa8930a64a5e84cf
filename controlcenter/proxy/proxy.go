package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"solar-system/pkg/discovery"
)

// Resolver maps a service name to its base URL.
type Resolver interface {
	URL(ctx context.Context, serviceName string) (string, error)
	Forget(ctx context.Context, serviceName string)
}

type Proxy struct {
	resolver Resolver
	client   *http.Client
	logger   *zap.Logger
}

func New(resolver Resolver, client *http.Client, logger *zap.Logger) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{resolver: resolver, client: client, logger: logger}
}

// To forwards the request, path and query unchanged, to serviceName.
func (p *Proxy) To(serviceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL, err := p.resolver.URL(r.Context(), serviceName)
		if err != nil {
			p.unavailable(w, serviceName, err)
			return
		}

		target := baseURL + r.URL.EscapedPath()
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
		if err != nil {
			http.Error(w, "Failed to build request", http.StatusInternalServerError)
			return
		}
		req.Header = r.Header.Clone()

		resp, err := p.client.Do(req)
		if err != nil {
			// The instance may have moved; resolve again next time.
			p.resolver.Forget(r.Context(), serviceName)
			p.logger.Warn("Failed to reach service", zap.String("service", serviceName), zap.Error(err))
			http.Error(w, "Failed to reach service", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		for k, v := range resp.Header {
			w.Header()[k] = v
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			p.logger.Warn("Failed to forward response", zap.String("service", serviceName), zap.Error(err))
		}
	}
}

// URLHandler reports the resolved base URL of serviceName.
func (p *Proxy) URLHandler(serviceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := p.resolver.URL(r.Context(), serviceName)
		if err != nil {
			p.unavailable(w, serviceName, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": url})
	}
}

func (p *Proxy) unavailable(w http.ResponseWriter, serviceName string, err error) {
	p.logger.Warn("Failed to locate service", zap.String("service", serviceName), zap.Error(err))
	status := http.StatusServiceUnavailable
	if !errors.Is(err, discovery.ErrServiceNotFound) {
		status = http.StatusBadGateway
	}
	http.Error(w, serviceName+" service not available", status)
}
