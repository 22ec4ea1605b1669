package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers("a:9092, b:9092,"))
	assert.Nil(t, Brokers(""))
}

func TestNewWriterTopic(t *testing.T) {
	w := NewWriter("localhost:9092", "wager_settled")
	defer w.Close()
	assert.Equal(t, "wager_settled", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}
