package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace/noop"

	"sentiment-alpha/internal/cache"
	"sentiment-alpha/internal/config"
	"sentiment-alpha/internal/db"
	"sentiment-alpha/internal/events"
	"sentiment-alpha/internal/repository"
	"sentiment-alpha/internal/service"
	"sentiment-alpha/internal/signal"
)

// OpenRuntime connects Postgres and, when configured, the Redis event log so
// cycles run from the CLI leave the same trail as the server's.
func OpenRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Runtime, error) {
	pool, err := db.InitPostgres(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, errors.New("database.url is required")
	}

	tracer := noop.NewTracerProvider().Tracer("signalctl")
	sinks := events.NewFanout(logger)

	redisClient, err := cache.InitRedis(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, events will not be logged")
	}
	var redisSink *events.Async
	if redisClient != nil {
		redisSink = events.NewAsync("redis", cache.NewEventLog(redisClient), events.AsyncOptions{}, logger)
		sinks.Add("redis", redisSink)
	}

	candles := repository.NewCandleRepository(pool, tracer)
	svc := service.NewSignalService(tracer, logger, service.Settings{
		Asset:     cfg.Asset,
		Symbol:    cfg.Price.Symbol,
		Timeframe: cfg.Price.Timeframe,
		LockKey:   cfg.Advisory.LockKey,
	}, signal.NewEngine(cfg.SignalOptions(), nil), service.Deps{
		Items:   repository.NewItemRepository(pool, tracer),
		Candles: candles,
		Signals: repository.NewSignalRepository(pool, tracer),
		Sink:    sinks,
		Locker:  repository.NewLocker(pool),
	})

	return &Runtime{
		Service: svc,
		Migrate: func(ctx context.Context) error {
			return repository.RunMigrations(ctx, pool)
		},
		UpsertCandles: candles.UpsertCandles,
		Close: func() {
			if redisSink != nil {
				redisSink.Close()
			}
			if redisClient != nil {
				_ = redisClient.Close()
			}
			pool.Close()
		},
	}, nil
}
