package consul

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	consul "github.com/hashicorp/consul/api"

	"solar-system/pkg/registry"
)

// checkTTL is how long an instance stays healthy without a ReportHealthyState.
const checkTTL = "5s"

var _ registry.Registry = (*Registry)(nil)

// Registry is a Consul-backed service registry.
type Registry struct {
	client *consul.Client
}

func NewRegistry(addr string) (*Registry, error) {
	config := consul.DefaultConfig()
	config.Address = addr
	client, err := consul.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	return &Registry{client: client}, nil
}

// Register adds the instance with a TTL check that ReportHealthyState keeps passing.
func (r *Registry) Register(_ context.Context, instanceID, serviceName, hostPort string) error {
	host, port, err := splitHostPort(hostPort)
	if err != nil {
		return err
	}
	return r.client.Agent().ServiceRegister(&consul.AgentServiceRegistration{
		ID:      instanceID,
		Name:    serviceName,
		Address: host,
		Port:    port,
		Check: &consul.AgentServiceCheck{
			CheckID:                        instanceID,
			TTL:                            checkTTL,
			DeregisterCriticalServiceAfter: "1m",
		},
	})
}

func (r *Registry) Deregister(_ context.Context, instanceID, _ string) error {
	return r.client.Agent().ServiceDeregister(instanceID)
}

func (r *Registry) ReportHealthyState(instanceID, _ string) error {
	return r.client.Agent().UpdateTTL(instanceID, "", consul.HealthPassing)
}

// ServiceAddresses returns host:port of every healthy instance of serviceName.
func (r *Registry) ServiceAddresses(ctx context.Context, serviceName string) ([]string, error) {
	entries, _, err := r.client.Health().Service(serviceName, "", true, (&consul.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("lookup %s in consul: %w", serviceName, err)
	}
	addrs := make([]string, 0, len(entries))
	for _, e := range entries {
		host := e.Service.Address
		if host == "" {
			host = e.Node.Address
		}
		addrs = append(addrs, net.JoinHostPort(host, strconv.Itoa(e.Service.Port)))
	}
	return addrs, nil
}

func splitHostPort(hostPort string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", 0, fmt.Errorf("parse address %q: %w", hostPort, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parse port %q: %w", portStr, err)
	}
	if port <= 0 || port > 65535 {
		return "", 0, errors.New("port out of range: " + portStr)
	}
	return host, port, nil
}
