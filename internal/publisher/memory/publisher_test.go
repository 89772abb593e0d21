package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	p := New()
	id, err := p.Publish(context.Background(), map[string]string{"supplier": "screwfix"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)
	require.Len(t, p.Messages(), 1)
}

func TestPublisherFail(t *testing.T) {
	t.Parallel()

	p := New()
	p.Fail(errors.New("broker down"))
	_, err := p.Publish(context.Background(), "payload")
	require.Error(t, err)
	require.Empty(t, p.Messages())
}
