package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduler-api/internal/model"
	"github.com/clinicore/scheduler-api/internal/repository/memory"
	"github.com/clinicore/scheduler-api/pkg/logger"
	"github.com/clinicore/scheduler-api/pkg/metrics"
)

// promauto registers against the default registry, so the package shares one
// metrics instance across tests.
var testMetrics = metrics.NewMetrics("outbox_test")

type fakeBroker struct {
	mu        sync.Mutex
	published map[string][]json.RawMessage
	fail      bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][]json.RawMessage)}
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker unavailable")
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.published[channel] = append(b.published[channel], data)
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func newProcessor(t *testing.T, broker *fakeBroker) (*OutboxProcessor, *memory.OutboxRepository) {
	t.Helper()

	repo := memory.NewOutboxRepository()
	p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Minute,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), testMetrics)
	return p, repo
}

func pendingEvent(t *testing.T, repo *memory.OutboxRepository) *model.OutboxEvent {
	t.Helper()

	event := &model.OutboxEvent{
		EventType: model.EventBookingCreated,
		Payload:   json.RawMessage(`{"appointment_id":"a1"}`),
	}
	require.NoError(t, repo.Create(context.Background(), event))
	return event
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	broker := newFakeBroker()
	p, repo := newProcessor(t, broker)
	event := pendingEvent(t, repo)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Len(t, broker.published[model.EventBookingCreated], 1)
	assert.JSONEq(t, string(event.Payload), string(broker.published[model.EventBookingCreated][0]))

	pending, err := repo.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessEventsMarksFailed(t *testing.T) {
	broker := newFakeBroker()
	broker.fail = true
	p, repo := newProcessor(t, broker)
	pendingEvent(t, repo)

	// A broker failure is absorbed; the batch keeps going.
	require.NoError(t, p.processEvents(context.Background()))

	pending, err := repo.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed events leave the pending queue")
}

func TestProcessEventsDrainsBatch(t *testing.T) {
	broker := newFakeBroker()
	p, repo := newProcessor(t, broker)

	pendingEvent(t, repo)
	pendingEvent(t, repo)

	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, broker.published[model.EventBookingCreated], 2)
}
