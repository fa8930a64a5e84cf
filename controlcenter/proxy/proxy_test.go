package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-system/pkg/discovery"
)

type staticResolver struct {
	urls      map[string]string
	err       error
	forgotten []string
}

func (s *staticResolver) URL(_ context.Context, name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	url, ok := s.urls[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, discovery.ErrServiceNotFound)
	}
	return url, nil
}

func (s *staticResolver) Forget(_ context.Context, name string) {
	s.forgotten = append(s.forgotten, name)
}

func TestProxyForwardsPathQueryAndBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Upstream", "simulator")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, "%s %s?%s %s", r.Method, r.URL.Path, r.URL.RawQuery, body)
	}))
	defer upstream.Close()

	p := New(&staticResolver{urls: map[string]string{"simulator": upstream.URL}}, nil, nil)
	gateway := httptest.NewServer(p.To("simulator"))
	defer gateway.Close()

	resp, err := http.Post(gateway.URL+"/step?dt=2", "text/plain", strings.NewReader("go"))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "simulator", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "POST /step?dt=2 go", string(body))
}

func TestProxyKeepsPathEscaping(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	mux := http.NewServeMux()
	p := New(&staticResolver{urls: map[string]string{"snapshot-db": upstream.URL}}, nil, nil)
	mux.HandleFunc("/planets/{name}/trajectory", p.To("snapshot-db"))
	gateway := httptest.NewServer(mux)
	defer gateway.Close()

	resp, err := http.Get(gateway.URL + "/planets/Planet%3FX%2325%25/trajectory?limit=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/planets/Planet%3FX%2325%25/trajectory", gotPath)
}

func TestProxyUnknownService(t *testing.T) {
	p := New(&staticResolver{urls: map[string]string{}}, nil, nil)
	gateway := httptest.NewServer(p.To("simulator"))
	defer gateway.Close()

	resp, err := http.Get(gateway.URL + "/positions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestProxyRegistryError(t *testing.T) {
	p := New(&staticResolver{err: errors.New("consul down")}, nil, nil)
	gateway := httptest.NewServer(p.To("simulator"))
	defer gateway.Close()

	resp, err := http.Get(gateway.URL + "/positions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestProxyUnreachableUpstreamForgetsURL(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	resolver := &staticResolver{urls: map[string]string{"snapshot-db": deadURL}}
	gateway := httptest.NewServer(New(resolver, nil, nil).To("snapshot-db"))
	defer gateway.Close()

	resp, err := http.Get(gateway.URL + "/snapshots/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, []string{"snapshot-db"}, resolver.forgotten)
}

func TestURLHandler(t *testing.T) {
	p := New(&staticResolver{urls: map[string]string{"simulator": "http://sim:8081"}}, nil, nil)
	gateway := httptest.NewServer(p.URLHandler("simulator"))
	defer gateway.Close()

	resp, err := http.Get(gateway.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, map[string]string{"url": "http://sim:8081"}, got)
}
