package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/backoffice/internal/domain/order"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &mockWriter{}
	p := NewPublisher(w)
	at := time.Date(2026, 7, 4, 20, 15, 0, 0, time.UTC)

	err := p.Publish(context.Background(), order.Event{
		Type:        order.EventStatusChanged,
		OrderID:     "o-42",
		OrderNumber: "ORD-111222333",
		TableNumber: 9,
		Status:      order.StatusReady,
		TotalAmount: decimal.RequireFromString("31.40"),
		At:          at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "o-42", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeHeader, msg.Headers[0].Key)
	assert.Equal(t, "order.status_changed", string(msg.Headers[0].Value))

	var got order.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "ORD-111222333", got.OrderNumber)
	assert.Equal(t, order.StatusReady, got.Status)
	assert.True(t, decimal.RequireFromString("31.40").Equal(got.TotalAmount))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	p := NewPublisher(&mockWriter{err: errors.New("leader not available")})

	err := p.Publish(context.Background(), order.Event{Type: order.EventCreated, OrderID: "o1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write order.created")
}

func TestNewWriter(t *testing.T) {
	w := NewWriter(Config{Brokers: []string{"kafka:9092"}, Topic: "orders"})
	defer w.Close()

	assert.Equal(t, "orders", w.Topic)
	assert.Equal(t, 2*time.Second, w.WriteTimeout)
	assert.Equal(t, "kafka:9092", w.Addr.String())
}
