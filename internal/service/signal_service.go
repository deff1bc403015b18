package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sentiment-alpha/internal/domain"
	"sentiment-alpha/internal/events"
	"sentiment-alpha/internal/metrics"
	"sentiment-alpha/internal/signal"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	sentimentWindow = 15 * time.Minute
	baselineWindow  = 7 * 24 * time.Hour
	priceLookback   = 24 * time.Hour
	ema15Period     = 15
)

var (
	ErrNotInitialized  = errors.New("signal service is not fully initialized")
	ErrCycleSkipped    = errors.New("signal cycle skipped: advisory lock held by another process")
	ErrInvalidArgument = errors.New("invalid argument")
)

type ItemRepository interface {
	ScoresSince(ctx context.Context, asset string, since time.Time) ([]float64, error)
	CountSince(ctx context.Context, asset string, since time.Time) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	AvgScoreSince(ctx context.Context, since time.Time) (float64, error)
	MentionBuckets(ctx context.Context, asset string, since time.Time) ([]domain.MentionPoint, error)
	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	TopImpact(ctx context.Context, since time.Time, source string, limit int) ([]domain.Item, error)
}

type CandleRepository interface {
	GetCandlesSince(ctx context.Context, symbol, timeframe string, since time.Time) ([]domain.Candle, error)
}

type SignalRepository interface {
	InsertSignal(ctx context.Context, s domain.Signal) (domain.Signal, error)
	ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error)
	LatestSignal(ctx context.Context, asset string) (*domain.Signal, error)
	CountSignals(ctx context.Context) (int64, error)
}

type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error)
}

type Settings struct {
	Asset     string
	Symbol    string
	Timeframe string
	// LockKey of 0 disables the cross-process advisory lock.
	LockKey int64
}

type Deps struct {
	Items   ItemRepository
	Candles CandleRepository
	Signals SignalRepository
	Sink    events.Sink
	Locker  AdvisoryLocker
}

type SignalService struct {
	tracer    trace.Tracer
	logger    zerolog.Logger
	settings  Settings
	tfMinutes int
	engine    *signal.Engine

	items   ItemRepository
	candles CandleRepository
	signals SignalRepository
	sink    events.Sink
	locker  AdvisoryLocker

	mu    sync.Mutex
	state domain.DecisionState
}

func NewSignalService(
	tracer trace.Tracer,
	logger zerolog.Logger,
	settings Settings,
	engine *signal.Engine,
	deps Deps,
) *SignalService {
	return &SignalService{
		tracer:    tracer,
		logger:    logger.With().Str("component", "signal").Logger(),
		settings:  settings,
		tfMinutes: signal.ParseTimeframeMinutes(settings.Timeframe),
		engine:    engine,
		items:     deps.Items,
		candles:   deps.Candles,
		signals:   deps.Signals,
		sink:      deps.Sink,
		locker:    deps.Locker,
	}
}

func (s *SignalService) Asset() string {
	return s.settings.Asset
}

// DecisionState returns a copy of the state carried into the next cycle.
func (s *SignalService) DecisionState() domain.DecisionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunOnce executes one signal cycle. Cycles are serialized in-process and,
// when a lock key is configured, across processes.
func (s *SignalService) RunOnce(ctx context.Context) (*domain.CycleResult, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.run-once")
	defer span.End()

	if s.items == nil || s.candles == nil || s.signals == nil || s.engine == nil {
		return nil, ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil && s.settings.LockKey != 0 {
		unlock, ok, err := s.locker.TryAdvisoryLock(ctx, s.settings.LockKey)
		if err != nil {
			metrics.CyclesTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, fmt.Errorf("acquire advisory lock: %w", err)
		}
		if !ok {
			metrics.CyclesTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			return nil, ErrCycleSkipped
		}
		defer unlock()
	}

	started := time.Now()
	result, err := s.runCycle(ctx)
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CyclesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	span.SetAttributes(
		attribute.String("signal.action", string(result.Action)),
		attribute.Float64("signal.alpha", result.Alpha),
		attribute.Bool("signal.emitted", result.Emitted),
	)
	metrics.CyclesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	return result, nil
}

// runCycle must be called with s.mu held.
func (s *SignalService) runCycle(ctx context.Context) (*domain.CycleResult, error) {
	now := s.engine.Now().UTC()
	asset := s.settings.Asset

	scores, err := s.items.ScoresSince(ctx, asset, now.Add(-sentimentWindow))
	if err != nil {
		return nil, fmt.Errorf("load sentiment scores: %w", err)
	}
	ema15, _ := signal.EMA(scores, ema15Period)

	mentions15m, err := s.items.CountSince(ctx, asset, now.Add(-sentimentWindow))
	if err != nil {
		return nil, fmt.Errorf("count mentions 15m: %w", err)
	}
	mentions7d, err := s.items.CountSince(ctx, asset, now.Add(-baselineWindow))
	if err != nil {
		return nil, fmt.Errorf("count mentions 7d: %w", err)
	}
	baseline := float64(mentions7d) / float64(domain.MentionsPerBaselineBucket)

	candles, err := s.candles.GetCandlesSince(ctx, s.settings.Symbol, s.settings.Timeframe, now.Add(-priceLookback))
	if err != nil {
		return nil, fmt.Errorf("load candles for %s %s: %w", s.settings.Symbol, s.settings.Timeframe, err)
	}
	var price *domain.PriceSnapshot
	if snap, ok := signal.BuildSnapshot(candles, s.tfMinutes); ok {
		price = &snap
	}

	decision, next := s.engine.Step(s.state, signal.AlphaInput{
		EMA15:       ema15,
		Mentions15m: int(mentions15m),
		Baseline7d:  baseline,
		Price:       price,
	}, now)

	saved, err := s.signals.InsertSignal(ctx, signalRow(asset, now, ema15, int(mentions15m), decision.Action, price))
	if err != nil {
		return nil, fmt.Errorf("persist signal: %w", err)
	}
	s.state = next

	result := &domain.CycleResult{
		Asset:        asset,
		Timestamp:    now,
		EMA15:        ema15,
		Mentions15m:  int(mentions15m),
		Baseline7d:   baseline,
		Action:       decision.Action,
		Alpha:        decision.Alpha,
		Contribution: decision.Contribution,
		Price:        price,
		Signal:       saved,
	}
	result.Reasons = signal.Reasons(*result)
	result.Summary = signal.Summary(*result)

	metrics.ActionsTotal.WithLabelValues(string(decision.Action)).Inc()
	metrics.LastAlpha.Set(decision.Alpha)
	s.logCycle(result)

	if decision.Emit {
		result.Emitted = true
		s.emit(ctx, domain.EventSignal, result.Summary, signal.Payload(*result))
	}
	return result, nil
}

func signalRow(asset string, now time.Time, ema15 float64, mentions int, action domain.Action, price *domain.PriceSnapshot) domain.Signal {
	row := domain.Signal{
		Asset:     asset,
		Timestamp: now,
		EMA15:     ema15,
		Mentions:  mentions,
		Action:    action,
	}
	if price == nil {
		return row
	}
	row.PriceClose = domain.Float(price.PriceClose)
	row.RSI14 = price.RSI14
	row.MACD = price.MACD
	row.MACDSignal = price.MACDSignal
	row.ATRPct = price.ATRPct
	if price.Bias != domain.BiasNone {
		bias := string(price.Bias)
		row.PriceBias = &bias
	}
	return row
}

func (s *SignalService) logCycle(r *domain.CycleResult) {
	evt := s.logger.Info().
		Str("asset", r.Asset).
		Float64("ema15", r.EMA15).
		Int("mentions_15m", r.Mentions15m).
		Float64("baseline_7d", r.Baseline7d).
		Str("action", string(r.Action)).
		Float64("alpha", r.Alpha)
	if p := r.Price; p != nil {
		evt = evt.Float64("price_close", p.PriceClose).Str("price_bias", string(p.Bias))
		if p.RSI14 != nil {
			evt = evt.Float64("rsi14", *p.RSI14)
		}
		if p.ATRPct != nil {
			evt = evt.Float64("atr_pct", *p.ATRPct)
		}
	}
	evt.Msg("signal computed")
}

// emit hands an event to the sink. Delivery failures are logged and dropped.
func (s *SignalService) emit(ctx context.Context, kind, summary string, payload map[string]any) {
	if s.sink == nil {
		return
	}
	metrics.EventsTotal.WithLabelValues(kind).Inc()
	if err := s.sink.Emit(ctx, kind, summary, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", kind).Msg("event delivery failed")
	}
}

// EmitState publishes a state event carrying the current snapshot.
func (s *SignalService) EmitState(ctx context.Context, summary string) {
	payload := map[string]any{"asset": s.settings.Asset}
	if st, err := s.State(ctx); err == nil {
		payload = map[string]any{
			"asset":        st.Asset,
			"ema15":        st.EMA15,
			"mentions_15m": st.Mentions15m,
			"baseline_7d":  st.Baseline7d,
			"action":       string(st.Action),
			"updated_at":   st.UpdatedAt,
		}
	} else {
		s.logger.Debug().Err(err).Msg("state unavailable for state event")
	}
	s.emit(ctx, domain.EventState, summary, payload)
}
