package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentiment-alpha/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	defaultItemLimit = 100
	maxItemLimit     = 2000
)

const itemColumns = `id, source, asset, ts, text, score, label, url, llm_relevant, impact`

// ItemRepository reads the sentiment items written by the ingestion pipelines.
type ItemRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewItemRepository(pool PgxPool, tracer trace.Tracer) *ItemRepository {
	return &ItemRepository{pool: pool, tracer: tracer}
}

// ScoresSince returns sentiment scores of the asset with ts >= since, oldest first.
func (r *ItemRepository) ScoresSince(ctx context.Context, asset string, since time.Time) ([]float64, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.scores-since")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT score FROM items WHERE asset = $1 AND ts >= $2 ORDER BY ts ASC`,
		asset, since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// CountSince counts items with ts >= since. An empty asset counts every asset.
func (r *ItemRepository) CountSince(ctx context.Context, asset string, since time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.count-since")
	defer span.End()

	var n int64
	var err error
	if asset == "" {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE ts >= $1`, since.UTC()).Scan(&n)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE asset = $1 AND ts >= $2`, asset, since.UTC()).Scan(&n)
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ItemRepository) CountAll(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.count-all")
	defer span.End()

	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AvgScoreSince averages scores across all assets; zero when there are none.
func (r *ItemRepository) AvgScoreSince(ctx context.Context, since time.Time) (float64, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.avg-score-since")
	defer span.End()

	var avg float64
	if err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(score), 0) FROM items WHERE ts >= $1`,
		since.UTC(),
	).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// MentionBuckets returns per-minute item counts. Minutes without items are
// absent from the result.
func (r *ItemRepository) MentionBuckets(ctx context.Context, asset string, since time.Time) ([]domain.MentionPoint, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.mention-buckets")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT date_trunc('minute', ts) AS bucket, COUNT(*)
		 FROM items
		 WHERE asset = $1 AND ts >= $2
		 GROUP BY bucket
		 ORDER BY bucket ASC`,
		asset, since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.MentionPoint
	for rows.Next() {
		var p domain.MentionPoint
		var count int64
		if err := rows.Scan(&p.Timestamp, &count); err != nil {
			return nil, err
		}
		p.Timestamp = p.Timestamp.UTC()
		p.Count = int(count)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *ItemRepository) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.list-items")
	defer span.End()

	args := make([]any, 0, 9)
	var sb strings.Builder
	sb.WriteString(`SELECT ` + itemColumns + ` FROM items WHERE 1=1`)

	if filter.Source != "" {
		args = append(args, filter.Source)
		sb.WriteString(fmt.Sprintf(" AND source = $%d", len(args)))
	}
	if filter.Label != "" {
		args = append(args, filter.Label)
		sb.WriteString(fmt.Sprintf(" AND label = $%d", len(args)))
	}
	if filter.MinScore != nil {
		args = append(args, *filter.MinScore)
		sb.WriteString(fmt.Sprintf(" AND score >= $%d", len(args)))
	}
	if filter.MaxScore != nil {
		args = append(args, *filter.MaxScore)
		sb.WriteString(fmt.Sprintf(" AND score <= $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, filter.Since.UTC())
		sb.WriteString(fmt.Sprintf(" AND ts >= $%d", len(args)))
	}
	if filter.Until != nil {
		args = append(args, filter.Until.UTC())
		sb.WriteString(fmt.Sprintf(" AND ts <= $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		sb.WriteString(fmt.Sprintf(" AND text ILIKE $%d", len(args)))
	}
	if filter.Relevant != nil {
		if *filter.Relevant {
			sb.WriteString(" AND llm_relevant IS TRUE")
		} else {
			sb.WriteString(" AND llm_relevant IS NOT TRUE")
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultItemLimit
	}
	if limit > maxItemLimit {
		limit = maxItemLimit
	}
	order := "DESC"
	if filter.Asc {
		order = "ASC"
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY ts %s LIMIT $%d", order, len(args)))

	return r.queryItems(ctx, sb.String(), args...)
}

// TopImpact returns items with an impact score since the given time, highest first.
func (r *ItemRepository) TopImpact(ctx context.Context, since time.Time, source string, limit int) ([]domain.Item, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.top-impact")
	defer span.End()

	args := []any{since.UTC()}
	query := `SELECT ` + itemColumns + ` FROM items WHERE ts >= $1 AND impact IS NOT NULL`
	if source != "" {
		args = append(args, source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY impact DESC LIMIT $%d", len(args))

	return r.queryItems(ctx, query, args...)
}

// RecentRelevant returns the newest items of the asset that the classifier
// marked relevant.
func (r *ItemRepository) RecentRelevant(ctx context.Context, asset string, limit int) ([]domain.Item, error) {
	ctx, span := r.tracer.Start(ctx, "item-repo.recent-relevant")
	defer span.End()

	return r.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE asset = $1 AND llm_relevant IS TRUE
		 ORDER BY ts DESC
		 LIMIT $2`,
		asset, limit,
	)
}

func (r *ItemRepository) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		var label, url *string
		if err := rows.Scan(
			&it.ID,
			&it.Source,
			&it.Asset,
			&it.Timestamp,
			&it.Text,
			&it.Score,
			&label,
			&url,
			&it.LLMRelevant,
			&it.Impact,
		); err != nil {
			return nil, err
		}
		if label != nil {
			it.Label = *label
		}
		if url != nil {
			it.URL = *url
		}
		it.Timestamp = it.Timestamp.UTC()
		items = append(items, it)
	}
	return items, rows.Err()
}
