package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFallsBackToNoop(t *testing.T) {
	r := NewRegistry("", "")
	c := r.Get("llm_a")
	require.NotNil(t, c)
	assert.False(t, c.Available())
	_, err := c.Generate(context.Background(), GenerateRequest{})
	assert.Error(t, err)
	var unavail *ErrUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestRegistryGetUnknownPrefersAvailable(t *testing.T) {
	r := NewRegistry("", "")
	c := r.Get("nonexistent")
	assert.Equal(t, "none", c.Name())
}
