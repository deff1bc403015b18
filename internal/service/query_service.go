package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sentiment-alpha/internal/domain"
)

const (
	DefaultSignalLimit  = 200
	MaxSignalLimit      = 2000
	DefaultItemLimit    = 100
	MaxItemLimit        = 2000
	DefaultImpactLimit  = 20
	MaxImpactLimit      = 200
	DefaultImpactHours  = 6
	MaxImpactHours      = 168
	DefaultSeriesWindow = 240
	MaxSeriesWindow     = 7 * 24 * 60
)

// State reports the latest decision together with live mention counts.
func (s *SignalService) State(ctx context.Context) (domain.State, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.state")
	defer span.End()

	if s.items == nil || s.signals == nil {
		return domain.State{}, ErrNotInitialized
	}

	now := s.now()
	asset := s.settings.Asset
	mentions15m, err := s.items.CountSince(ctx, asset, now.Add(-sentimentWindow))
	if err != nil {
		return domain.State{}, fmt.Errorf("count mentions 15m: %w", err)
	}
	mentions7d, err := s.items.CountSince(ctx, asset, now.Add(-baselineWindow))
	if err != nil {
		return domain.State{}, fmt.Errorf("count mentions 7d: %w", err)
	}
	latest, err := s.signals.LatestSignal(ctx, asset)
	if err != nil {
		return domain.State{}, fmt.Errorf("latest signal: %w", err)
	}

	st := domain.State{
		Asset:       asset,
		Action:      domain.ActionHold,
		Mentions15m: int(mentions15m),
		Baseline7d:  float64(mentions7d) / float64(domain.MentionsPerBaselineBucket),
		UpdatedAt:   now,
	}
	if latest != nil {
		st.EMA15 = latest.EMA15
		st.UpdatedAt = latest.Timestamp
		if latest.Action.IsValid() {
			st.Action = latest.Action
		}
	}
	return st, nil
}

func (s *SignalService) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.list-signals")
	defer span.End()

	if s.signals == nil {
		return nil, ErrNotInitialized
	}
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, fmt.Errorf("%w: invalid action %q", ErrInvalidArgument, filter.Action)
	}
	if err := checkRange(filter.Since, filter.Until); err != nil {
		return nil, err
	}
	limit, err := normalizeLimit(filter.Limit, DefaultSignalLimit, MaxSignalLimit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit

	out, err := s.signals.ListSignals(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Signal{}
	}
	return out, nil
}

func (s *SignalService) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.list-items")
	defer span.End()

	if s.items == nil {
		return nil, ErrNotInitialized
	}
	if err := checkRange(filter.Since, filter.Until); err != nil {
		return nil, err
	}
	if filter.MinScore != nil && filter.MaxScore != nil && *filter.MinScore > *filter.MaxScore {
		return nil, fmt.Errorf("%w: min_score is greater than max_score", ErrInvalidArgument)
	}
	limit, err := normalizeLimit(filter.Limit, DefaultItemLimit, MaxItemLimit)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit

	out, err := s.items.ListItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Item{}
	}
	return out, nil
}

// TopImpact lists the highest-impact items of the last hours.
func (s *SignalService) TopImpact(ctx context.Context, hours int, source string, limit int) ([]domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.top-impact")
	defer span.End()

	if s.items == nil {
		return nil, ErrNotInitialized
	}
	limit, err := normalizeLimit(limit, DefaultImpactLimit, MaxImpactLimit)
	if err != nil {
		return nil, err
	}
	hours, err = normalizeLimit(hours, DefaultImpactHours, MaxImpactHours)
	if err != nil {
		return nil, fmt.Errorf("%w: hours must be between 1 and %d", ErrInvalidArgument, MaxImpactHours)
	}

	out, err := s.items.TopImpact(ctx, s.now().Add(-time.Duration(hours)*time.Hour), source, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Item{}
	}
	return out, nil
}

func (s *SignalService) Metrics(ctx context.Context) (domain.Metrics, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.metrics")
	defer span.End()

	if s.items == nil || s.signals == nil {
		return domain.Metrics{}, ErrNotInitialized
	}

	now := s.now()
	var (
		m   domain.Metrics
		err error
	)
	if m.ItemsTotal, err = s.items.CountAll(ctx); err != nil {
		return domain.Metrics{}, fmt.Errorf("count items: %w", err)
	}
	if m.SignalsTotal, err = s.signals.CountSignals(ctx); err != nil {
		return domain.Metrics{}, fmt.Errorf("count signals: %w", err)
	}
	if m.ItemsLast15m, err = s.items.CountSince(ctx, "", now.Add(-15*time.Minute)); err != nil {
		return domain.Metrics{}, fmt.Errorf("count recent items: %w", err)
	}
	if m.AvgScore1h, err = s.items.AvgScoreSince(ctx, now.Add(-time.Hour)); err != nil {
		return domain.Metrics{}, fmt.Errorf("average score: %w", err)
	}
	return m, nil
}

// SignalSeries returns the signals of the window in ascending time order.
// Very long windows keep the most recent MaxSignalLimit points.
func (s *SignalService) SignalSeries(ctx context.Context, asset string, minutes int) (domain.SignalSeries, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.signal-series")
	defer span.End()

	if s.signals == nil {
		return domain.SignalSeries{}, ErrNotInitialized
	}
	minutes, err := normalizeWindow(minutes)
	if err != nil {
		return domain.SignalSeries{}, err
	}
	asset = s.assetOr(asset)

	points, err := s.signalPoints(ctx, asset, s.now().Add(-time.Duration(minutes)*time.Minute))
	if err != nil {
		return domain.SignalSeries{}, err
	}
	return domain.SignalSeries{Asset: asset, Minutes: minutes, Signals: points}, nil
}

func (s *SignalService) PriceSeries(ctx context.Context, symbol, timeframe string, minutes int) (domain.PriceSeries, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.price-series")
	defer span.End()

	if s.candles == nil {
		return domain.PriceSeries{}, ErrNotInitialized
	}
	minutes, err := normalizeWindow(minutes)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	symbol, timeframe = s.symbolOr(symbol), s.timeframeOr(timeframe)

	bars, err := s.priceBars(ctx, symbol, timeframe, s.now().Add(-time.Duration(minutes)*time.Minute))
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return domain.PriceSeries{Symbol: symbol, Timeframe: timeframe, Minutes: minutes, Candles: bars}, nil
}

// MentionSeries returns per-minute mention counts with empty minutes as 0.
func (s *SignalService) MentionSeries(ctx context.Context, asset string, minutes int) (domain.MentionSeries, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.mention-series")
	defer span.End()

	if s.items == nil {
		return domain.MentionSeries{}, ErrNotInitialized
	}
	minutes, err := normalizeWindow(minutes)
	if err != nil {
		return domain.MentionSeries{}, err
	}
	asset = s.assetOr(asset)

	now := s.now()
	points, err := s.mentionPoints(ctx, asset, now.Add(-time.Duration(minutes)*time.Minute), now)
	if err != nil {
		return domain.MentionSeries{}, err
	}
	return domain.MentionSeries{Asset: asset, Minutes: minutes, Points: points}, nil
}

// Bootstrap combines mentions, prices and signals over one window.
func (s *SignalService) Bootstrap(ctx context.Context, asset, symbol, timeframe string, minutes int) (domain.Bootstrap, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.bootstrap")
	defer span.End()

	if s.items == nil || s.candles == nil || s.signals == nil {
		return domain.Bootstrap{}, ErrNotInitialized
	}
	minutes, err := normalizeWindow(minutes)
	if err != nil {
		return domain.Bootstrap{}, err
	}
	asset = s.assetOr(asset)
	symbol, timeframe = s.symbolOr(symbol), s.timeframeOr(timeframe)

	now := s.now()
	since := now.Add(-time.Duration(minutes) * time.Minute)

	mentions, err := s.mentionPoints(ctx, asset, since, now)
	if err != nil {
		return domain.Bootstrap{}, err
	}
	bars, err := s.priceBars(ctx, symbol, timeframe, since)
	if err != nil {
		return domain.Bootstrap{}, err
	}
	points, err := s.signalPoints(ctx, asset, since)
	if err != nil {
		return domain.Bootstrap{}, err
	}

	return domain.Bootstrap{
		Asset:    asset,
		Minutes:  minutes,
		Mentions: mentions,
		Prices:   domain.PriceSeries{Symbol: symbol, Timeframe: timeframe, Candles: bars},
		Signals:  points,
	}, nil
}

func (s *SignalService) signalPoints(ctx context.Context, asset string, since time.Time) ([]domain.SignalPoint, error) {
	list, err := s.signals.ListSignals(ctx, domain.SignalFilter{
		Asset: asset,
		Since: &since,
		Limit: MaxSignalLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.Before(list[j].Timestamp)
	})

	points := make([]domain.SignalPoint, 0, len(list))
	for _, sig := range list {
		points = append(points, domain.SignalPoint{
			Timestamp: sig.Timestamp,
			Action:    sig.Action,
			EMA15:     sig.EMA15,
			Mentions:  sig.Mentions,
		})
	}
	return points, nil
}

func (s *SignalService) priceBars(ctx context.Context, symbol, timeframe string, since time.Time) ([]domain.PriceBar, error) {
	candles, err := s.candles.GetCandlesSince(ctx, symbol, timeframe, since)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	bars := make([]domain.PriceBar, 0, len(candles))
	for _, c := range candles {
		bars = append(bars, domain.PriceBar{
			Timestamp: c.OpenTime,
			Open:      orZero(c.Open),
			High:      orZero(c.High),
			Low:       orZero(c.Low),
			Close:     orZero(c.Close),
			Volume:    orZero(c.Volume),
		})
	}
	return bars, nil
}

func (s *SignalService) mentionPoints(ctx context.Context, asset string, from, to time.Time) ([]domain.MentionPoint, error) {
	buckets, err := s.items.MentionBuckets(ctx, asset, from)
	if err != nil {
		return nil, fmt.Errorf("mention buckets: %w", err)
	}
	return fillMinutes(from, to, buckets), nil
}

// fillMinutes expands sparse per-minute counts to every minute in [from, to].
func fillMinutes(from, to time.Time, sparse []domain.MentionPoint) []domain.MentionPoint {
	counts := make(map[int64]int, len(sparse))
	for _, p := range sparse {
		counts[p.Timestamp.UTC().Truncate(time.Minute).Unix()] += p.Count
	}

	start := from.UTC().Truncate(time.Minute)
	end := to.UTC().Truncate(time.Minute)
	out := make([]domain.MentionPoint, 0, int(end.Sub(start)/time.Minute)+1)
	for cur := start; !cur.After(end); cur = cur.Add(time.Minute) {
		out = append(out, domain.MentionPoint{Timestamp: cur, Count: counts[cur.Unix()]})
	}
	return out
}

func (s *SignalService) now() time.Time {
	if s.engine != nil {
		return s.engine.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SignalService) assetOr(asset string) string {
	if asset == "" {
		return s.settings.Asset
	}
	return asset
}

func (s *SignalService) symbolOr(symbol string) string {
	if symbol == "" {
		return s.settings.Symbol
	}
	return symbol
}

func (s *SignalService) timeframeOr(timeframe string) string {
	if timeframe == "" {
		return s.settings.Timeframe
	}
	return timeframe
}

func normalizeLimit(limit, def, maxLimit int) (int, error) {
	if limit == 0 {
		return def, nil
	}
	if limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidArgument, maxLimit)
	}
	return limit, nil
}

func normalizeWindow(minutes int) (int, error) {
	if minutes == 0 {
		return DefaultSeriesWindow, nil
	}
	if minutes < 1 || minutes > MaxSeriesWindow {
		return 0, fmt.Errorf("%w: minutes must be between 1 and %d", ErrInvalidArgument, MaxSeriesWindow)
	}
	return minutes, nil
}

func checkRange(since, until *time.Time) error {
	if since != nil && until != nil && since.After(*until) {
		return fmt.Errorf("%w: since is after until", ErrInvalidArgument)
	}
	return nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
