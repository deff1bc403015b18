package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentiment-alpha/internal/domain"
	"sentiment-alpha/internal/signal"

	"github.com/rs/zerolog"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	items   *stubItemRepo
	candles *stubCandleRepo
	signals *stubSignalRepo
	sink    *stubSink
	locker  *stubLocker
	clock   time.Time
	svc     *SignalService
}

func newFixture(lockKey int64) *fixture {
	f := &fixture{
		items: &stubItemRepo{
			now:    testNow,
			counts: map[time.Duration]int64{},
		},
		candles: &stubCandleRepo{},
		signals: &stubSignalRepo{},
		sink:    &stubSink{},
		locker:  &stubLocker{ok: true},
		clock:   testNow,
	}
	engine := signal.NewEngine(signal.DefaultOptions(), func() time.Time { return f.clock })
	f.svc = NewSignalService(testTracer, zerolog.Nop(), Settings{
		Asset:     "ETH-USD",
		Symbol:    "ETH/USDT",
		Timeframe: "1m",
		LockKey:   lockKey,
	}, engine, Deps{
		Items:   f.items,
		Candles: f.candles,
		Signals: f.signals,
		Sink:    f.sink,
		Locker:  f.locker,
	})
	return f
}

func uptrend(n int, end time.Time) []domain.Candle {
	out := make([]domain.Candle, 0, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		out = append(out, domain.Candle{
			Symbol:    "ETH/USDT",
			Timeframe: "1m",
			OpenTime:  end.Add(time.Duration(i-n) * time.Minute),
			Open:      domain.Float(c - 0.5),
			High:      domain.Float(c + 0.5),
			Low:       domain.Float(c - 0.5),
			Close:     domain.Float(c),
			Volume:    domain.Float(10),
		})
	}
	return out
}

func TestRunOnceAccumulatesAndEmits(t *testing.T) {
	f := newFixture(0)
	f.items.scores = []float64{0.6, 0.7, 0.8}
	f.items.counts[sentimentWindow] = 50
	f.items.counts[baselineWindow] = 80
	f.candles.candles = uptrend(60, testNow)

	result, err := f.svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Action != domain.ActionAccumulate {
		t.Fatalf("expected accumulate, got %s (alpha=%.3f)", result.Action, result.Alpha)
	}
	if result.Alpha != 1 {
		t.Fatalf("expected saturated alpha, got %.3f", result.Alpha)
	}
	if result.Mentions15m != 50 || result.Baseline7d != 80.0/672.0 {
		t.Fatalf("unexpected mentions %d / baseline %.4f", result.Mentions15m, result.Baseline7d)
	}
	if result.Price == nil || result.Price.Bias != domain.BiasUp {
		t.Fatalf("expected price snapshot with up bias, got %+v", result.Price)
	}
	if !result.Emitted || len(f.sink.events) != 1 || f.sink.events[0].kind != domain.EventSignal {
		t.Fatalf("expected one signal event, got %+v", f.sink.events)
	}
	if f.sink.events[0].summary != result.Summary {
		t.Fatalf("event summary mismatch: %q vs %q", f.sink.events[0].summary, result.Summary)
	}
	if f.sink.events[0].payload["action"] != "accumulate" {
		t.Fatalf("unexpected payload %+v", f.sink.events[0].payload)
	}

	if len(f.signals.inserted) != 1 {
		t.Fatalf("expected one inserted signal, got %d", len(f.signals.inserted))
	}
	row := f.signals.inserted[0]
	if row.Asset != "ETH-USD" || row.Mentions != 50 || row.Action != domain.ActionAccumulate {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.PriceClose == nil || *row.PriceClose != 159 || row.PriceBias == nil || *row.PriceBias != "up" {
		t.Fatalf("expected price fields on row, got %+v", row)
	}
	if result.Signal.ID != 1 {
		t.Fatalf("expected persisted id on result, got %d", result.Signal.ID)
	}

	if f.candles.lastSym != "ETH/USDT" || f.candles.lastTF != "1m" || !f.candles.lastSince.Equal(testNow.Add(-24*time.Hour)) {
		t.Fatalf("unexpected candle query %s %s %s", f.candles.lastSym, f.candles.lastTF, f.candles.lastSince)
	}

	state := f.svc.DecisionState()
	if state.LastAction == nil || *state.LastAction != domain.ActionAccumulate || !state.LastEmit.Equal(testNow) {
		t.Fatalf("unexpected decision state %+v", state)
	}
}

func TestRunOnceWithoutPriceOrItems(t *testing.T) {
	f := newFixture(0)

	result, err := f.svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EMA15 != 0 || result.Price != nil || result.Action != domain.ActionHold {
		t.Fatalf("unexpected empty-cycle result %+v", result)
	}
	if len(result.Reasons) != 3 {
		t.Fatalf("expected three reasons without price, got %v", result.Reasons)
	}
	if f.signals.inserted[0].PriceClose != nil || f.signals.inserted[0].PriceBias != nil {
		t.Fatalf("expected null price columns, got %+v", f.signals.inserted[0])
	}
}

func TestRunOnceSuppressesRepeatedWeakSignal(t *testing.T) {
	f := newFixture(0)
	f.items.scores = []float64{0.5}

	first, err := f.svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Action != domain.ActionHold || !first.Emitted {
		t.Fatalf("expected first hold to emit, got %+v", first)
	}

	f.clock = testNow.Add(time.Second)
	f.items.now = f.clock
	second, err := f.svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Emitted {
		t.Fatal("expected repeated weak hold to be suppressed")
	}
	if len(f.sink.events) != 1 || len(f.signals.inserted) != 2 {
		t.Fatalf("expected 1 event and 2 rows, got %d / %d", len(f.sink.events), len(f.signals.inserted))
	}
	if got := f.svc.DecisionState().LastEmit; !got.Equal(testNow) {
		t.Fatalf("expected last emit to stay at first cycle, got %s", got)
	}
}

func TestRunOnceKeepsStateWhenInsertFails(t *testing.T) {
	f := newFixture(0)
	f.items.counts[sentimentWindow] = 50
	f.signals.insertErr = errBoom

	if _, err := f.svc.RunOnce(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected insert error, got %v", err)
	}
	state := f.svc.DecisionState()
	if state.LastAction != nil || !state.LastEmit.IsZero() {
		t.Fatalf("expected untouched state, got %+v", state)
	}
	if len(f.sink.events) != 0 {
		t.Fatal("expected no event on failed cycle")
	}
}

func TestRunOnceAbortsOnRepositoryError(t *testing.T) {
	f := newFixture(0)
	f.items.scoresErr = errBoom

	if _, err := f.svc.RunOnce(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected repository error, got %v", err)
	}
	if len(f.signals.inserted) != 0 {
		t.Fatal("expected no insert after read failure")
	}
}

func TestRunOnceSwallowsSinkErrors(t *testing.T) {
	f := newFixture(0)
	f.sink.err = errBoom

	result, err := f.svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("sink failure must not fail the cycle: %v", err)
	}
	if !result.Emitted || len(f.sink.events) != 1 {
		t.Fatalf("expected attempted emission, got %+v", f.sink.events)
	}
}

func TestRunOnceAdvisoryLock(t *testing.T) {
	f := newFixture(42)
	if _, err := f.svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.locker.calls != 1 || f.locker.unlocked != 1 || f.locker.lastKey != 42 {
		t.Fatalf("expected lock/unlock with key 42, got %+v", f.locker)
	}

	f.locker.ok = false
	if _, err := f.svc.RunOnce(context.Background()); !errors.Is(err, ErrCycleSkipped) {
		t.Fatalf("expected skipped cycle, got %v", err)
	}
	if len(f.signals.inserted) != 1 {
		t.Fatalf("skipped cycle must not insert, got %d rows", len(f.signals.inserted))
	}

	f.locker.err = errBoom
	if _, err := f.svc.RunOnce(context.Background()); !errors.Is(err, errBoom) {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestRunOnceIgnoresLockerWithoutKey(t *testing.T) {
	f := newFixture(0)
	if _, err := f.svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.locker.calls != 0 {
		t.Fatal("expected locker to be unused with key 0")
	}
}

func TestRunOnceNotInitialized(t *testing.T) {
	svc := NewSignalService(testTracer, zerolog.Nop(), Settings{Asset: "ETH-USD"}, nil, Deps{})
	if _, err := svc.RunOnce(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestEmitStatePublishesSnapshot(t *testing.T) {
	f := newFixture(0)
	f.items.counts[sentimentWindow] = 3

	f.svc.EmitState(context.Background(), "backend ready")

	if len(f.sink.events) != 1 {
		t.Fatalf("expected one event, got %d", len(f.sink.events))
	}
	evt := f.sink.events[0]
	if evt.kind != domain.EventState || evt.summary != "backend ready" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.payload["mentions_15m"] != 3 || evt.payload["action"] != "hold" {
		t.Fatalf("unexpected payload %+v", evt.payload)
	}
}
