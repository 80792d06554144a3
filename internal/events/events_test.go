package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherWritesKeyedJSON(t *testing.T) {
	writer := &recordingWriter{}
	p := &KafkaPublisher{writer: writer, logger: zap.NewNop()}

	err := p.Publish(context.Background(), OrderEvent{
		Type:        OrderStatusChanged,
		OrderID:     "order-1",
		OldStatus:   "pending",
		NewStatus:   "confirmed",
		OrderStatus: "confirmed",
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "order-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, OrderStatusChanged, string(msg.Headers[0].Value))

	var decoded OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "confirmed", decoded.NewStatus)
	assert.False(t, decoded.OccurredAt.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: writer, logger: zap.NewNop()}

	err := p.Publish(context.Background(), OrderEvent{Type: OrderCreated, OrderID: "x"})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewWithoutBrokersLogsOnly(t *testing.T) {
	p := New(nil, "orders", zap.NewNop())
	_, ok := p.(*LogPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.Publish(context.Background(), OrderEvent{Type: OrderCreated}))
	assert.NoError(t, p.Close())
}
