package consul

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		in      string
		host    string
		port    int
		wantErr bool
	}{
		{in: "localhost:8081", host: "localhost", port: 8081},
		{in: "10.0.0.7:80", host: "10.0.0.7", port: 80},
		{in: "[::1]:9000", host: "::1", port: 9000},
		{in: "no-port", wantErr: true},
		{in: "host:http", wantErr: true},
		{in: "host:0", wantErr: true},
		{in: "host:70000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port, err := splitHostPort(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestNewRegistryDoesNotDial(t *testing.T) {
	r, err := NewRegistry("localhost:1")
	require.NoError(t, err)
	assert.NotNil(t, r.client)
}
