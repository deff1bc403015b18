package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Async.Emit when the delivery queue has no room.
var ErrQueueFull = errors.New("event queue full")

// ErrClosed is returned by Async.Emit after Close.
var ErrClosed = errors.New("event sink closed")

const (
	defaultQueueSize   = 128
	defaultSendTimeout = 5 * time.Second
)

type AsyncOptions struct {
	// QueueSize bounds pending events; new events are dropped when full.
	QueueSize int
	// Timeout caps a single delivery to the wrapped sink.
	Timeout time.Duration
	// OnError is called with the sink name for every failed delivery.
	OnError func(name string)
}

type queued struct {
	kind    string
	summary string
	payload map[string]any
}

// Async hands events to a network sink from its own goroutine. Emit never
// blocks the caller.
type Async struct {
	name    string
	sink    Sink
	timeout time.Duration
	onErr   func(name string)
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

func NewAsync(name string, sink Sink, opts AsyncOptions, logger zerolog.Logger) *Async {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSendTimeout
	}
	a := &Async{
		name:    name,
		sink:    sink,
		timeout: opts.Timeout,
		onErr:   opts.OnError,
		logger:  logger.With().Str("component", "events").Str("sink", name).Logger(),
		queue:   make(chan queued, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Emit enqueues the event. A full queue drops it and reports ErrQueueFull.
func (a *Async) Emit(_ context.Context, kind, summary string, payload map[string]any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- queued{kind: kind, summary: summary, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending reports how many events wait for delivery.
func (a *Async) Pending() int {
	return len(a.queue)
}

// Close stops accepting events and waits until the queue is drained.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for evt := range a.queue {
		a.deliver(evt)
	}
}

func (a *Async) deliver(evt queued) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.sink.Emit(ctx, evt.kind, evt.summary, evt.payload); err != nil {
		a.logger.Warn().Err(err).Str("type", evt.kind).Msg("event delivery failed")
		if a.onErr != nil {
			a.onErr(a.name)
		}
	}
}
