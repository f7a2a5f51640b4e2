package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, uuid.New(), "test"),
	}
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) received() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to subscribed handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zaptest.NewLogger(t))
		handler := &recordingHandler{types: []string{"invoice.generated"}}
		bus.Subscribe(handler)

		err := bus.Publish(ctx, newTestEvent("invoice.generated"))
		require.NoError(t, err)
		assert.Equal(t, 1, handler.received())
	})

	t.Run("skips handlers for other event types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zaptest.NewLogger(t))
		handler := &recordingHandler{types: []string{"invoice.generated"}}
		bus.Subscribe(handler)

		err := bus.Publish(ctx, newTestEvent("payment_schedule.synced"))
		require.NoError(t, err)
		assert.Equal(t, 0, handler.received())
	})

	t.Run("wildcard handler receives all events", func(t *testing.T) {
		bus := NewInMemoryEventBus(zaptest.NewLogger(t))
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		err := bus.Publish(ctx,
			newTestEvent("invoice.generated"),
			newTestEvent("payment_schedule.item_paid"),
		)
		require.NoError(t, err)
		assert.Equal(t, 2, handler.received())
	})

	t.Run("failing handler does not block the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zaptest.NewLogger(t))
		failing := &recordingHandler{types: []string{"invoice.generated"}, err: errors.New("boom")}
		healthy := &recordingHandler{types: []string{"invoice.generated"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(ctx, newTestEvent("invoice.generated"))
		require.NoError(t, err)
		assert.Equal(t, 1, healthy.received())
	})

	t.Run("panicking handler is recovered", func(t *testing.T) {
		bus := NewInMemoryEventBus(zaptest.NewLogger(t))
		panicking := &recordingHandler{types: []string{"invoice.generated"}, panics: true}
		healthy := &recordingHandler{types: []string{"invoice.generated"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		assert.NotPanics(t, func() {
			_ = bus.Publish(ctx, newTestEvent("invoice.generated"))
		})
		assert.Equal(t, 1, healthy.received())
	})

	t.Run("unsubscribed handler receives nothing", func(t *testing.T) {
		bus := NewInMemoryEventBus(zaptest.NewLogger(t))
		handler := &recordingHandler{types: []string{"invoice.generated"}}
		bus.Subscribe(handler)
		bus.Unsubscribe(handler)

		err := bus.Publish(ctx, newTestEvent("invoice.generated"))
		require.NoError(t, err)
		assert.Equal(t, 0, handler.received())
	})
}

func TestInMemoryEventBus_Lifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
}

type fakeStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool)}
}

func (s *fakeStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *fakeStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID], nil
}

func (s *fakeStore) Close() error { return nil }

func TestIdempotentHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("processes a new event once", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"invoice.generated"}}
		handler := NewIdempotentHandler(inner, newFakeStore(), zaptest.NewLogger(t))

		evt := newTestEvent("invoice.generated")
		require.NoError(t, handler.Handle(ctx, evt))
		require.NoError(t, handler.Handle(ctx, evt))

		assert.Equal(t, 1, inner.received())
		assert.Equal(t, int64(1), handler.GetMetrics().Stats().EventsProcessed)
		assert.Equal(t, int64(1), handler.GetMetrics().Stats().EventsDuplicate)
	})

	t.Run("processes anyway when the store fails", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"invoice.generated"}}
		store := newFakeStore()
		store.err = errors.New("store down")
		handler := NewIdempotentHandler(inner, store, zaptest.NewLogger(t))

		require.NoError(t, handler.Handle(ctx, newTestEvent("invoice.generated")))
		assert.Equal(t, 1, inner.received())
	})

	t.Run("propagates handler errors", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"invoice.generated"}, err: errors.New("boom")}
		handler := NewIdempotentHandler(inner, newFakeStore(), zaptest.NewLogger(t))

		err := handler.Handle(ctx, newTestEvent("invoice.generated"))
		assert.Error(t, err)
		assert.Equal(t, int64(1), handler.GetMetrics().Stats().EventsFailed)
	})

	t.Run("disabled config bypasses the store", func(t *testing.T) {
		inner := &recordingHandler{types: []string{"invoice.generated"}}
		handler := NewIdempotentHandler(inner, newFakeStore(), zaptest.NewLogger(t),
			WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}),
		)

		evt := newTestEvent("invoice.generated")
		require.NoError(t, handler.Handle(ctx, evt))
		require.NoError(t, handler.Handle(ctx, evt))
		assert.Equal(t, 2, inner.received())
	})
}
