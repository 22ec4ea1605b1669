package producer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	sharedkafka "github.com/radieske/betting-game/internal/shared/kafka"
	"github.com/radieske/betting-game/pkg/contracts/events"
)

func TestEncode(t *testing.T) {
	e := events.WagerSettled{
		EventID:   "5f1c3c1e-8a8e-4f55-9a51-0b5b1b0f8a11",
		WagerID:   12,
		AccountID: 4,
		Stake:     "100.00",
		Payout:    "85.00",
		Won:       true,
		Balance:   "1085.00",
		SettledAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	key, payload, err := encode(e)
	require.NoError(t, err)
	assert.Equal(t, "4", key)

	var back events.WagerSettled
	require.NoError(t, json.Unmarshal(payload, &back))
	assert.Equal(t, e, back)
	assert.Contains(t, string(payload), `"wager_id":12`)
}

func TestPublishWagerSettledReportsWriteFailure(t *testing.T) {
	w := sharedkafka.NewWriter("127.0.0.1:1", "wager_settled")
	p := NewKafkaPublisher(w, zaptest.NewLogger(t))
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.Error(t, p.PublishWagerSettled(ctx, events.WagerSettled{WagerID: 1, AccountID: 1}))
}
