package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sentiment-alpha/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	EventsKey      = "sentiment-alpha:events"
	EventsChannel  = "sentiment-alpha:events"
	eventLogLength = 500
)

// EventLog mirrors events into a capped Redis list and publishes each one so
// other processes can follow the stream.
type EventLog struct {
	client *redis.Client
	now    func() time.Time
}

func NewEventLog(client *redis.Client) *EventLog {
	return &EventLog{client: client, now: time.Now}
}

func (l *EventLog) Emit(ctx context.Context, kind, summary string, payload map[string]any) error {
	if l == nil || l.client == nil {
		return nil
	}
	if payload == nil {
		payload = map[string]any{}
	}
	now := l.now()
	body, err := json.Marshal(domain.Event{
		Type:      kind,
		Timestamp: float64(now.Unix()) + float64(now.Nanosecond())/1e9,
		Summary:   summary,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, EventsKey, body)
	pipe.LTrim(ctx, EventsKey, 0, eventLogLength-1)
	pipe.Publish(ctx, EventsChannel, body)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write event log: %w", err)
	}
	return nil
}

// Recent returns up to n events, newest first.
func (l *EventLog) Recent(ctx context.Context, n int) ([]domain.Event, error) {
	if l == nil || l.client == nil {
		return nil, nil
	}
	if n <= 0 {
		n = 50
	}
	raw, err := l.client.LRange(ctx, EventsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	out := make([]domain.Event, 0, len(raw))
	for _, r := range raw {
		var evt domain.Event
		if err := json.Unmarshal([]byte(r), &evt); err != nil {
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}
