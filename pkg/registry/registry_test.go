package registry

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInstanceID(t *testing.T) {
	a := GenerateInstanceID("simulator")
	b := GenerateInstanceID("simulator")

	assert.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "simulator-"))
	_, err := uuid.Parse(strings.TrimPrefix(a, "simulator-"))
	assert.NoError(t, err)
}
