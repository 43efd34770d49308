package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDeliversInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	at := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, q.Publish(ctx, Message{Type: TypeElectionChanged, ElectionID: "e1", At: at}))
	require.NoError(t, q.Publish(ctx, Message{Type: TypeReconcile, At: at}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e1", (<-msgs).ElectionID)
	assert.Equal(t, TypeReconcile, (<-msgs).Type)

	cancel()
	_, open := <-msgs
	assert.False(t, open, "consumer channel closes with the context")
}

func TestInMemoryPublishWhenFull(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, Message{Type: TypeReconcile}))
	assert.ErrorIs(t, q.Publish(ctx, Message{Type: TypeReconcile}), ErrFull)

	done, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, q.Publish(done, Message{Type: TypeReconcile}), context.Canceled)
}

func TestDecode(t *testing.T) {
	msg := Message{Type: TypeElectionChanged, ElectionID: "e9", At: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)}
	raw, err := Encode(msg)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, msg.ElectionID, got.ElectionID)
	assert.True(t, msg.At.Equal(got.At))

	_, err = Decode(`{"election_id":"e9"}`)
	assert.Error(t, err)
	_, err = Decode("not json")
	assert.Error(t, err)
}
