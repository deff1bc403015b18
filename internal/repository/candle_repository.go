package repository

import (
	"context"
	"fmt"
	"time"

	"sentiment-alpha/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type CandleRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewCandleRepository(pool PgxPool, tracer trace.Tracer) *CandleRepository {
	return &CandleRepository{pool: pool, tracer: tracer}
}

// UpsertCandles overwrites OHLCV for existing (symbol, timeframe, open_time) keys.
func (r *CandleRepository) UpsertCandles(ctx context.Context, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "candle-repo.upsert-candles")
	defer span.End()

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(
			`INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (symbol, timeframe, open_time) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			c.Symbol, c.Timeframe, c.OpenTime.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range candles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert candle: %w", err)
		}
	}
	return nil
}

// GetCandlesSince returns candles with open_time >= since in ascending order.
func (r *CandleRepository) GetCandlesSince(ctx context.Context, symbol, timeframe string, since time.Time) ([]domain.Candle, error) {
	ctx, span := r.tracer.Start(ctx, "candle-repo.get-candles-since")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, timeframe, open_time, open, high, low, close, volume
		 FROM candles
		 WHERE symbol = $1 AND timeframe = $2 AND open_time >= $3
		 ORDER BY open_time ASC`,
		symbol, timeframe, since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		c.OpenTime = c.OpenTime.UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}
