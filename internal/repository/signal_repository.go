package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sentiment-alpha/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSignalLimit = 200
	maxSignalLimit     = 2000
)

const signalColumns = `id, asset, ts, ema15, mentions, action, price_close, rsi14, macd, macd_signal, atr_pct, price_bias`

type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

// InsertSignal appends one row and returns it with the generated id.
func (r *SignalRepository) InsertSignal(ctx context.Context, s domain.Signal) (domain.Signal, error) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.insert-signal")
	defer span.End()

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO signals (asset, ts, ema15, mentions, action, price_close, rsi14, macd, macd_signal, atr_pct, price_bias)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		s.Asset,
		s.Timestamp.UTC(),
		s.EMA15,
		s.Mentions,
		string(s.Action),
		s.PriceClose,
		s.RSI14,
		s.MACD,
		s.MACDSignal,
		s.ATRPct,
		s.PriceBias,
	).Scan(&id)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("insert signal: %w", err)
	}
	s.ID = id
	return s, nil
}

func (r *SignalRepository) ListSignals(ctx context.Context, filter domain.SignalFilter) ([]domain.Signal, error) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.list-signals")
	defer span.End()

	args := make([]any, 0, 5)
	var sb strings.Builder
	sb.WriteString(`SELECT ` + signalColumns + ` FROM signals WHERE 1=1`)

	if filter.Asset != "" {
		args = append(args, filter.Asset)
		sb.WriteString(fmt.Sprintf(" AND asset = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		sb.WriteString(fmt.Sprintf(" AND action = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, filter.Since.UTC())
		sb.WriteString(fmt.Sprintf(" AND ts >= $%d", len(args)))
	}
	if filter.Until != nil {
		args = append(args, filter.Until.UTC())
		sb.WriteString(fmt.Sprintf(" AND ts <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSignalLimit
	}
	if limit > maxSignalLimit {
		limit = maxSignalLimit
	}
	order := "DESC"
	if filter.Asc {
		order = "ASC"
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY ts %s, id %s LIMIT $%d", order, order, len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signals := make([]domain.Signal, 0, min(limit, 64))
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// LatestSignal returns nil without error when the asset has no signals yet.
func (r *SignalRepository) LatestSignal(ctx context.Context, asset string) (*domain.Signal, error) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.latest-signal")
	defer span.End()

	row := r.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE asset = $1 ORDER BY ts DESC, id DESC LIMIT 1`,
		asset,
	)
	s, err := scanSignal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SignalRepository) CountSignals(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.count-signals")
	defer span.End()

	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM signals`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanSignal(row pgx.Row) (domain.Signal, error) {
	var s domain.Signal
	var action string
	if err := row.Scan(
		&s.ID,
		&s.Asset,
		&s.Timestamp,
		&s.EMA15,
		&s.Mentions,
		&action,
		&s.PriceClose,
		&s.RSI14,
		&s.MACD,
		&s.MACDSignal,
		&s.ATRPct,
		&s.PriceBias,
	); err != nil {
		return domain.Signal{}, err
	}
	s.Action = domain.Action(action)
	s.Timestamp = s.Timestamp.UTC()
	return s, nil
}
