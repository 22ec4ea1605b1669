package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/radieske/betting-game/pkg/contracts/events"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(hub)
	t.Cleanup(ts.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, accountID int64) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "subscribe", AccountID: accountID}))
	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))
	require.Equal(t, "subscribed", ack["type"])
}

func readWin(t *testing.T, conn *websocket.Conn) WinUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var u WinUpdate
	require.NoError(t, conn.ReadJSON(&u))
	return u
}

func allowAll(*http.Request) bool { return true }

func TestBroadcastReachesAccountAndAllSubscribers(t *testing.T) {
	hub := NewHub(allowAll)
	mine := dial(t, hub)
	all := dial(t, hub)
	subscribe(t, mine, 3)
	subscribe(t, all, 0)

	hub.Broadcast(events.WagerSettled{WagerID: 1, AccountID: 3, Won: true, Payout: "85.00"})

	assert.Equal(t, int64(1), readWin(t, mine).Payload.WagerID)
	u := readWin(t, all)
	assert.Equal(t, "win", u.Type)
	assert.Equal(t, "85.00", u.Payload.Payout)
}

func TestBroadcastSkipsOtherAccounts(t *testing.T) {
	hub := NewHub(allowAll)
	conn := dial(t, hub)
	subscribe(t, conn, 5)

	hub.Broadcast(events.WagerSettled{WagerID: 1, AccountID: 3, Won: true})
	hub.Broadcast(events.WagerSettled{WagerID: 2, AccountID: 5, Won: true})

	// a primeira mensagem recebida já é a da conta 5
	assert.Equal(t, int64(2), readWin(t, conn).Payload.WagerID)
}

func TestPingAndUnsubscribe(t *testing.T) {
	hub := NewHub(allowAll)
	conn := dial(t, hub)
	subscribe(t, conn, 9)
	assert.Equal(t, 1, hub.Subscribers(9))

	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "unsubscribe", AccountID: 9}))
	require.NoError(t, conn.WriteJSON(ClientMsg{Type: "ping"}))
	var pong map[string]string
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])
	assert.Zero(t, hub.Subscribers(9))
}

func TestDisconnectRemovesSubscriptions(t *testing.T) {
	hub := NewHub(allowAll)
	conn := dial(t, hub)
	subscribe(t, conn, 0)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Subscribers(0) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRedisSubscriberForwardsToHub(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := NewHub(allowAll)
	conn := dial(t, hub)
	subscribe(t, conn, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartRedisSubscriber(ctx, rdb, "wins_broadcast", hub, zaptest.NewLogger(t))

	// a inscrição no Redis é assíncrona; publica até alguém receber
	require.Eventually(t, func() bool {
		n, err := rdb.Publish(ctx, "wins_broadcast", `{"wager_id":42,"account_id":1,"won":true}`).Result()
		return err == nil && n > 0
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, int64(42), readWin(t, conn).Payload.WagerID)
}

func TestStalledClientDoesNotBlockFeed(t *testing.T) {
	hub := NewHub(allowAll)
	hub.writeWait = 200 * time.Millisecond

	stalled := dial(t, hub)
	subscribe(t, stalled, 0) // depois do ack nunca mais lê
	healthy := dial(t, hub)
	subscribe(t, healthy, 0)

	var received atomic.Int64
	go func() {
		for {
			if _, _, err := healthy.ReadMessage(); err != nil {
				return
			}
			received.Add(1)
		}
	}()

	// payload grande o bastante para encher os buffers TCP do cliente parado
	big := events.WagerSettled{EventID: strings.Repeat("x", 512<<10), AccountID: 1, Won: true}
	const n = 80
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			big.WagerID = int64(i + 1)
			hub.Broadcast(big)
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("broadcast blocked by stalled client")
	}
	assert.Eventually(t, func() bool { return received.Load() == n }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return hub.Subscribers(0) == 1 }, 2*time.Second, 10*time.Millisecond)
}
