package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// MockIngester records ingest requests
type MockIngester struct {
	mu       sync.Mutex
	requests []models.IngestRequestEvent
	err      error
}

func (m *MockIngester) IngestRange(_ context.Context, symbol, start, end string) (*models.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, models.IngestRequestEvent{Symbol: symbol, Start: start, End: end})
	if m.err != nil {
		return nil, m.err
	}
	return &models.IngestResult{Symbol: symbol, Ingested: 2}, nil
}

func (m *MockIngester) calls() []models.IngestRequestEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.IngestRequestEvent(nil), m.requests...)
}

// MockReader serves queued messages, then blocks until ctx is done
type MockReader struct {
	msgs   chan kafka.Message
	closed bool
}

func newMockReader(msgs ...kafka.Message) *MockReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &MockReader{msgs: ch}
}

func (r *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *MockReader) Config() kafka.ReaderConfig { return kafka.ReaderConfig{Topic: "ingest-requests"} }

func (r *MockReader) Close() error {
	r.closed = true
	return nil
}

// MockWriter captures written messages
type MockWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *MockWriter) Close() error { return nil }

func ingestMessage(t *testing.T, key string, req models.IngestRequestEvent) kafka.Message {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(key), Value: data}
}

func TestProcessMessageIngestsRange(t *testing.T) {
	ingester := &MockIngester{}
	consumer := &Consumer{ingester: ingester}

	msg := ingestMessage(t, "AAPL", models.IngestRequestEvent{Symbol: "AAPL", Start: "2024-01-01", End: "2024-01-31"})
	require.NoError(t, consumer.processMessage(context.Background(), msg))

	assert.Equal(t, []models.IngestRequestEvent{{Symbol: "AAPL", Start: "2024-01-01", End: "2024-01-31"}}, ingester.calls())
}

func TestProcessMessageFallsBackToKey(t *testing.T) {
	ingester := &MockIngester{}
	consumer := &Consumer{ingester: ingester}

	msg := ingestMessage(t, "MSFT", models.IngestRequestEvent{Start: "2024-01-01", End: "2024-01-31"})
	require.NoError(t, consumer.processMessage(context.Background(), msg))

	calls := ingester.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "MSFT", calls[0].Symbol)
}

func TestProcessMessageRejectsBadPayload(t *testing.T) {
	ingester := &MockIngester{}
	consumer := &Consumer{ingester: ingester}

	err := consumer.processMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
	assert.Empty(t, ingester.calls())
}

func TestProcessMessagePropagatesIngestError(t *testing.T) {
	boom := errors.New("scraping failed")
	consumer := &Consumer{ingester: &MockIngester{err: boom}}

	msg := ingestMessage(t, "AAPL", models.IngestRequestEvent{Symbol: "AAPL", Start: "2024-01-01", End: "2024-01-31"})
	err := consumer.processMessage(context.Background(), msg)
	assert.ErrorIs(t, err, boom)
}

func TestStartContinuesPastFailuresUntilCancelled(t *testing.T) {
	ingester := &MockIngester{}
	reader := newMockReader(
		kafka.Message{Value: []byte("garbage")},
		ingestMessage(t, "AAPL", models.IngestRequestEvent{Symbol: "AAPL", Start: "2024-01-01", End: "2024-01-05"}),
		ingestMessage(t, "TSLA", models.IngestRequestEvent{Symbol: "TSLA", Start: "2024-01-01", End: "2024-01-05"}),
	)
	consumer := &Consumer{reader: reader, ingester: ingester}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool { return len(ingester.calls()) == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestProducerPublishKeysBySymbol(t *testing.T) {
	writer := &MockWriter{}
	producer := &Producer{writer: writer, topic: "portfolio-events"}

	shares := int64(12)
	ts := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	err := producer.Publish(context.Background(), models.PortfolioEvent{
		EventType: models.EventSharesAdjusted,
		Symbol:    "AAPL",
		Shares:    &shares,
		Timestamp: ts,
	})
	require.NoError(t, err)
	require.Len(t, writer.msgs, 1)
	assert.Equal(t, "AAPL", string(writer.msgs[0].Key))

	var got models.PortfolioEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &got))
	assert.Equal(t, models.EventSharesAdjusted, got.EventType)
	require.NotNil(t, got.Shares)
	assert.Equal(t, int64(12), *got.Shares)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestProducerPublishWrapsWriteError(t *testing.T) {
	producer := &Producer{writer: &MockWriter{err: errors.New("leader not available")}}

	err := producer.Publish(context.Background(), models.PortfolioEvent{EventType: models.EventPositionAdded, Symbol: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write message to kafka")
}
