package service

import (
	"context"
	"errors"
	"time"

	"sentiment-alpha/internal/domain"

	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

type countCall struct {
	asset string
	since time.Time
}

type stubItemRepo struct {
	scores     []float64
	counts     map[time.Duration]int64
	countCalls []countCall
	countAll   int64
	avgScore   float64
	buckets    []domain.MentionPoint
	items      []domain.Item
	err        error
	scoresErr  error

	now         time.Time
	lastFilter  domain.ItemFilter
	impactSince time.Time
	impactLimit int
	impactSrc   string
}

func (s *stubItemRepo) ScoresSince(ctx context.Context, asset string, since time.Time) ([]float64, error) {
	if s.scoresErr != nil {
		return nil, s.scoresErr
	}
	return s.scores, s.err
}

// CountSince answers by window length relative to now.
func (s *stubItemRepo) CountSince(ctx context.Context, asset string, since time.Time) (int64, error) {
	s.countCalls = append(s.countCalls, countCall{asset: asset, since: since})
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[s.now.Sub(since)], nil
}

func (s *stubItemRepo) CountAll(ctx context.Context) (int64, error) {
	return s.countAll, s.err
}

func (s *stubItemRepo) AvgScoreSince(ctx context.Context, since time.Time) (float64, error) {
	return s.avgScore, s.err
}

func (s *stubItemRepo) MentionBuckets(ctx context.Context, asset string, since time.Time) ([]domain.MentionPoint, error) {
	return s.buckets, s.err
}

func (s *stubItemRepo) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	s.lastFilter = filter
	return s.items, s.err
}

func (s *stubItemRepo) TopImpact(ctx context.Context, since time.Time, source string, limit int) ([]domain.Item, error) {
	s.impactSince, s.impactSrc, s.impactLimit = since, source, limit
	return s.items, s.err
}

type stubCandleRepo struct {
	candles   []domain.Candle
	err       error
	lastSince time.Time
	lastSym   string
	lastTF    string
}

func (s *stubCandleRepo) GetCandlesSince(ctx context.Context, symbol, timeframe string, since time.Time) ([]domain.Candle, error) {
	s.lastSym, s.lastTF, s.lastSince = symbol, timeframe, since
	return s.candles, s.err
}

type stubSignalRepo struct {
	inserted   []domain.Signal
	insertErr  error
	listed     []domain.Signal
	listErr    error
	lastFilter domain.SignalFilter
	latest     *domain.Signal
	count      int64
}

func (s *stubSignalRepo) InsertSignal(ctx context.Context, sig domain.Signal) (domain.Signal, error) {
	if s.insertErr != nil {
		return domain.Signal{}, s.insertErr
	}
	sig.ID = int64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, sig)
	return sig, nil
}

func (s *stubSignalRepo) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error) {
	s.lastFilter = filter
	return s.listed, s.listErr
}

func (s *stubSignalRepo) LatestSignal(ctx context.Context, asset string) (*domain.Signal, error) {
	return s.latest, nil
}

func (s *stubSignalRepo) CountSignals(ctx context.Context) (int64, error) {
	return s.count, nil
}

type emitted struct {
	kind    string
	summary string
	payload map[string]any
}

type stubSink struct {
	events []emitted
	err    error
}

func (s *stubSink) Emit(ctx context.Context, kind, summary string, payload map[string]any) error {
	s.events = append(s.events, emitted{kind: kind, summary: summary, payload: payload})
	return s.err
}

type stubLocker struct {
	ok       bool
	err      error
	calls    int
	unlocked int
	lastKey  int64
}

func (s *stubLocker) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	s.calls++
	s.lastKey = key
	if s.err != nil {
		return nil, false, s.err
	}
	if !s.ok {
		return nil, false, nil
	}
	return func() { s.unlocked++ }, true, nil
}

var errBoom = errors.New("boom")
