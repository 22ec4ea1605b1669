package producer

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	sharedkafka "github.com/radieske/betting-game/internal/shared/kafka"
	"github.com/radieske/betting-game/pkg/contracts/events"
)

// KafkaPublisher publica eventos wager_settled
type KafkaPublisher struct {
	Writer *sharedkafka.Writer
	Log    *zap.Logger
}

func NewKafkaPublisher(w *sharedkafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Log: log}
}

// encode usa o accountId como chave para manter a ordem por conta na partição
func encode(e events.WagerSettled) (key string, payload []byte, err error) {
	payload, err = json.Marshal(e)
	if err != nil {
		return "", nil, err
	}
	return strconv.FormatInt(e.AccountID, 10), payload, nil
}

func (p *KafkaPublisher) PublishWagerSettled(ctx context.Context, e events.WagerSettled) error {
	key, payload, err := encode(e)
	if err != nil {
		return err
	}
	if err := sharedkafka.WriteJSON(ctx, p.Writer, key, payload); err != nil {
		return err
	}
	p.Log.Debug("published wager_settled", zap.Int64("wagerId", e.WagerID), zap.String("eventId", e.EventID))
	return nil
}

func (p *KafkaPublisher) Close() error { return p.Writer.Close() }
