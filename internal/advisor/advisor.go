package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"sentiment-alpha/internal/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	cacheKey       = "commentary"
	cacheRetention = 24 * time.Hour
	priceWindow    = 60 * time.Minute
	LLMUnavailable = "llm_unavailable"
	factsModel     = "facts"
)

type StateSource interface {
	State(ctx context.Context) (domain.State, error)
}

type CandleSource interface {
	GetCandlesSince(ctx context.Context, symbol, timeframe string, since time.Time) ([]domain.Candle, error)
}

type ItemSource interface {
	RecentRelevant(ctx context.Context, asset string, limit int) ([]domain.Item, error)
}

// Store persists the last good commentary. cache.JSONStore satisfies it.
type Store interface {
	Load(ctx context.Context, key string, dest any) (bool, error)
	Store(ctx context.Context, key string, v any, ttl time.Duration) error
}

type Commentary struct {
	Commentary  string `json:"commentary"`
	Facts       *Facts `json:"facts,omitempty"`
	Model       string `json:"model"`
	GeneratedAt string `json:"generated_at"`
	Stale       bool   `json:"stale"`
	Error       string `json:"error,omitempty"`
}

type cacheEntry struct {
	Result   Commentary `json:"result"`
	CachedAt time.Time  `json:"cached_at"`
}

type Options struct {
	Asset     string
	Symbol    string
	Timeframe string
	Model     string
	TTL       time.Duration
	MaxItems  int
}

type Advisor struct {
	opts    Options
	llm     LLM
	state   StateSource
	candles CandleSource
	items   ItemSource
	store   Store
	tracer  trace.Tracer
	logger  zerolog.Logger
	now     func() time.Time

	mu sync.Mutex
}

// New builds an advisor. A nil llm makes Commentary return the facts block;
// a nil store keeps the cache in memory.
func New(
	opts Options,
	llm LLM,
	state StateSource,
	candles CandleSource,
	items ItemSource,
	store Store,
	tracer trace.Tracer,
	logger zerolog.Logger,
) *Advisor {
	if store == nil {
		store = newMemoryStore()
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = 12
	}
	return &Advisor{
		opts:    opts,
		llm:     llm,
		state:   state,
		candles: candles,
		items:   items,
		store:   store,
		tracer:  tracer,
		logger:  logger.With().Str("component", "advisor").Logger(),
		now:     time.Now,
	}
}

// Commentary returns a market summary. Fresh results are reused for the TTL.
// When the model fails the last good result is returned marked stale.
func (a *Advisor) Commentary(ctx context.Context) (Commentary, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.commentary")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	cached, hit := a.load(ctx)
	if hit && now.Sub(cached.CachedAt) < a.opts.TTL {
		res := cached.Result
		res.Stale = false
		return res, nil
	}

	facts, err := a.loadFacts(ctx, now)
	if err != nil {
		if hit {
			a.logger.Warn().Err(err).Msg("facts unavailable, returning cached commentary")
			res := cached.Result
			res.Stale = true
			return res, nil
		}
		return Commentary{}, err
	}
	factsText := facts.Text()

	if a.llm == nil {
		return Commentary{
			Commentary:  factsText,
			Facts:       &facts,
			Model:       factsModel,
			GeneratedAt: facts.NowUTC,
		}, nil
	}

	text, err := a.llm.Complete(ctx, buildPrompt(a.opts.Asset, factsText))
	text = strings.TrimSpace(text)
	if err == nil && text != "" {
		res := Commentary{
			Commentary:  text,
			Facts:       &facts,
			Model:       a.opts.Model,
			GeneratedAt: facts.NowUTC,
		}
		if err := a.store.Store(ctx, cacheKey, cacheEntry{Result: res, CachedAt: now}, cacheRetention); err != nil {
			a.logger.Warn().Err(err).Msg("cache commentary")
		}
		return res, nil
	}
	if err == nil {
		err = errors.New("empty completion")
	}
	span.RecordError(err)

	if hit {
		a.logger.Warn().Err(err).Msg("llm failed, returning cached commentary")
		res := cached.Result
		res.Stale = true
		return res, nil
	}
	a.logger.Warn().Err(err).Msg("llm failed and no cached commentary")
	return Commentary{
		Facts:       &facts,
		Model:       a.opts.Model,
		GeneratedAt: facts.NowUTC,
		Stale:       true,
		Error:       LLMUnavailable,
	}, nil
}

// CommentaryText is the chat-friendly form of Commentary.
func (a *Advisor) CommentaryText(ctx context.Context) (string, error) {
	res, err := a.Commentary(ctx)
	if err != nil {
		return "", err
	}
	if res.Error != "" {
		return "", errors.New(res.Error)
	}
	return res.Commentary, nil
}

func (a *Advisor) load(ctx context.Context) (cacheEntry, bool) {
	var entry cacheEntry
	ok, err := a.store.Load(ctx, cacheKey, &entry)
	if err != nil {
		a.logger.Warn().Err(err).Msg("load cached commentary")
		return cacheEntry{}, false
	}
	return entry, ok
}

func (a *Advisor) loadFacts(ctx context.Context, now time.Time) (Facts, error) {
	st, err := a.state.State(ctx)
	if err != nil {
		return Facts{}, fmt.Errorf("load state: %w", err)
	}
	if st.Asset == "" {
		st.Asset = a.opts.Asset
	}
	candles, err := a.candles.GetCandlesSince(ctx, a.opts.Symbol, a.opts.Timeframe, now.Add(-priceWindow))
	if err != nil {
		return Facts{}, fmt.Errorf("load candles: %w", err)
	}
	items, err := a.items.RecentRelevant(ctx, a.opts.Asset, a.opts.MaxItems)
	if err != nil {
		return Facts{}, fmt.Errorf("load relevant items: %w", err)
	}
	return buildFacts(now, st, candles, items), nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Load(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryStore) Store(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}
