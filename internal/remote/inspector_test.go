package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeq.dev/mergeq/internal/retry"
)

func TestNewInspectorRequiresConfiguration(t *testing.T) {
	policy := retry.NewPolicy(1, time.Millisecond)
	ctx := context.Background()

	_, err := NewInspector(ctx, "", "acme", "widgets", policy)
	assert.Error(t, err)

	_, err = NewInspector(ctx, "token", "", "widgets", policy)
	assert.Error(t, err)

	_, err = NewInspector(ctx, "token", "acme", "", policy)
	assert.Error(t, err)
}

func TestNewInspector(t *testing.T) {
	inspector, err := NewInspector(context.Background(), "token", "acme", "widgets", retry.NewPolicy(1, time.Millisecond))
	require.NoError(t, err)
	assert.NotNil(t, inspector)
}
