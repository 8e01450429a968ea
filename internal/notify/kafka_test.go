package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/guttosm/escrowd/internal/domain/dto"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaSink_Validation(t *testing.T) {
	_, err := NewKafkaSink(nil, "trades")
	assert.Error(t, err)
	_, err = NewKafkaSink([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	s, err := NewKafkaSink([]string{"localhost:9092"}, "trades")
	require.NoError(t, err)
	assert.Equal(t, "kafka", s.Name())
}

func TestKafkaSink_Deliver(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSink{writer: w}

	require.NoError(t, s.Deliver(context.Background(), dto.NewTradeSettledEvent(settledTrade("t-7"))))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "t-7", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "event", Value: []byte(dto.EventTradeSettled)}}, msg.Headers)

	var ev dto.TradeSettledEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "t-7", ev.Trade.ID)

	w.err = errors.New("broker down")
	assert.ErrorIs(t, s.Deliver(context.Background(), ev), w.err)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}
