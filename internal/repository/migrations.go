package repository

import (
	"context"
	"fmt"
)

// Items and candles are written by the ingestion pipelines. The tables are
// created here so a fresh database can serve reads before ingestion starts.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id           TEXT PRIMARY KEY,
		source       TEXT NOT NULL,
		asset        TEXT NOT NULL,
		ts           TIMESTAMPTZ NOT NULL,
		text         TEXT NOT NULL DEFAULT '',
		score        DOUBLE PRECISION NOT NULL DEFAULT 0,
		label        TEXT,
		url          TEXT,
		llm_relevant BOOLEAN,
		impact       DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_asset_ts ON items (asset, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_items_ts ON items (ts)`,
	`CREATE TABLE IF NOT EXISTS candles (
		symbol    TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		open_time TIMESTAMPTZ NOT NULL,
		open      DOUBLE PRECISION,
		high      DOUBLE PRECISION,
		low       DOUBLE PRECISION,
		close     DOUBLE PRECISION,
		volume    DOUBLE PRECISION,
		PRIMARY KEY (symbol, timeframe, open_time)
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id          BIGSERIAL PRIMARY KEY,
		asset       TEXT NOT NULL,
		ts          TIMESTAMPTZ NOT NULL,
		ema15       DOUBLE PRECISION NOT NULL,
		mentions    INTEGER NOT NULL,
		action      TEXT NOT NULL CHECK (action IN ('accumulate', 'hold', 'wait')),
		price_close DOUBLE PRECISION,
		rsi14       DOUBLE PRECISION,
		macd        DOUBLE PRECISION,
		macd_signal DOUBLE PRECISION,
		atr_pct     DOUBLE PRECISION,
		price_bias  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_asset_ts ON signals (asset, ts DESC)`,
}

func RunMigrations(ctx context.Context, pool PgxPool) error {
	if pool == nil {
		return ErrNotConfigured
	}
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
