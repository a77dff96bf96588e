package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &memWriter{}
	p := NewProducerWithWriter(w, "screener.events", "snappy")

	require.NoError(t, p.Publish(context.Background(), []byte("loaded"), map[string]int{"tickers": 3}))
	require.NoError(t, p.Publish(context.Background(), nil, "raw"))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, []byte("loaded"), w.msgs[0].Key)
	var body map[string]int
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, 3, body["tickers"])
	assert.Equal(t, []byte("raw"), w.msgs[1].Value)
	assert.False(t, w.msgs[0].Time.IsZero())
	assert.Equal(t, "screener.events", p.Topic())
}

func TestProducerPublishError(t *testing.T) {
	w := &memWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, "t", "gzip")
	err := p.Publish(context.Background(), nil, "x")
	assert.ErrorContains(t, err, "broker down")
}

func TestNewProducerValidation(t *testing.T) {
	_, err := NewProducer(WithTopic("t"))
	assert.Error(t, err)
	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}))
	assert.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithTopic("t"), WithCompression("lz4"))
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Snappy, parseCompression(""))
}
