package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "wins_broadcast")
	defer sub.Close()
	_, err := sub.Receive(ctx) // confirmação da inscrição
	require.NoError(t, err)

	require.NoError(t, NewRedisBroadcaster(rdb).Publish(ctx, "wins_broadcast", []byte(`{"wager_id":1}`)))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, `{"wager_id":1}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
