package registry

import (
	"context"

	"github.com/google/uuid"
)

// Registry is a service registry the services announce themselves in.
type Registry interface {
	Register(ctx context.Context, instanceID, serviceName, hostPort string) error
	Deregister(ctx context.Context, instanceID, serviceName string) error
	ReportHealthyState(instanceID, serviceName string) error
	ServiceAddresses(ctx context.Context, serviceName string) ([]string, error)
}

// GenerateInstanceID returns a unique id of the form "<service>-<uuid>".
func GenerateInstanceID(serviceName string) string {
	return serviceName + "-" + uuid.NewString()
}
