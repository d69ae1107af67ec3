package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()

	id, err := p.Publish(context.Background(), "events", map[string]any{"app_id": 570})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	id, err = p.Publish(context.Background(), "events", "second")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "events", msgs[0].Topic)
	assert.Equal(t, "second", msgs[1].Payload)
}

func TestMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	p := New()
	_, err := p.Publish(context.Background(), "events", "one")
	require.NoError(t, err)

	msgs := p.Messages()
	msgs[0].Topic = "mutated"

	assert.Equal(t, "events", p.Messages()[0].Topic)
}
