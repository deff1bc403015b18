package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sentiment-alpha/internal/domain"

	"github.com/rs/zerolog"
)

const (
	MaxEvents     = 500
	DefaultLimit  = 50
	maxListLimit  = 200
	subscriberBuf = 64
)

// Sink receives events. Delivery is best effort; callers log errors and move on.
type Sink interface {
	Emit(ctx context.Context, kind, summary string, payload map[string]any) error
}

// Bus keeps the most recent events in memory and fans them out to live
// subscribers.
type Bus struct {
	mu     sync.Mutex
	events []domain.Event
	nextID int64
	subs   map[chan domain.Event]struct{}
	now    func() time.Time
}

func NewBus(now func() time.Time) *Bus {
	if now == nil {
		now = time.Now
	}
	return &Bus{
		events: make([]domain.Event, 0, MaxEvents),
		nextID: 1,
		subs:   make(map[chan domain.Event]struct{}),
		now:    now,
	}
}

func (b *Bus) Emit(_ context.Context, kind, summary string, payload map[string]any) error {
	b.Publish(kind, summary, payload)
	return nil
}

// Publish records the event and returns it with its assigned id.
func (b *Bus) Publish(kind, summary string, payload map[string]any) domain.Event {
	if payload == nil {
		payload = map[string]any{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	evt := domain.Event{
		ID:        b.nextID,
		Type:      kind,
		Timestamp: float64(now.Unix()) + float64(now.Nanosecond())/1e9,
		Summary:   summary,
		Payload:   payload,
	}
	b.nextID++

	if len(b.events) == MaxEvents {
		copy(b.events, b.events[1:])
		b.events = b.events[:MaxEvents-1]
	}
	b.events = append(b.events, evt)

	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// slow subscriber; it can catch up with ListSince
		}
	}
	return evt
}

// ListSince returns up to limit events. With no cursor it returns the newest
// events; with a cursor it returns the oldest events after it. limit is
// clamped to [1, 200].
func (b *Bus) ListSince(sinceID *int64, limit int) []domain.Event {
	limit = max(1, min(maxListLimit, limit))

	b.mu.Lock()
	defer b.mu.Unlock()

	if sinceID == nil {
		start := max(0, len(b.events)-limit)
		return append([]domain.Event(nil), b.events[start:]...)
	}

	out := make([]domain.Event, 0, limit)
	for _, e := range b.events {
		if e.ID <= *sinceID {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Subscribe returns a channel of new events and a func that detaches it.
func (b *Bus) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuf)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
		})
	}
}

// Fanout delivers every event to each sink. A failing sink does not stop
// the others; the joined error names each failure.
type Fanout struct {
	sinks  []namedSink
	logger zerolog.Logger
	onErr  func(name string)
}

type namedSink struct {
	name string
	sink Sink
}

func NewFanout(logger zerolog.Logger) *Fanout {
	return &Fanout{logger: logger.With().Str("component", "events").Logger()}
}

// Add registers a sink. Nil sinks are ignored so optional collaborators can
// be passed straight through.
func (f *Fanout) Add(name string, sink Sink) *Fanout {
	if sink == nil {
		return f
	}
	f.sinks = append(f.sinks, namedSink{name: name, sink: sink})
	return f
}

// OnError registers a callback invoked with the sink name on every failure.
func (f *Fanout) OnError(fn func(name string)) *Fanout {
	f.onErr = fn
	return f
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Emit(ctx context.Context, kind, summary string, payload map[string]any) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.sink.Emit(ctx, kind, summary, payload); err != nil {
			f.logger.Warn().Err(err).Str("sink", s.name).Str("type", kind).Msg("event delivery failed")
			if f.onErr != nil {
				f.onErr(s.name)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
