package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"sentiment-alpha/internal/domain"

	"github.com/rs/zerolog"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	alerts, err := StartTelegramBot(context.Background(), Options{}, nil, nil, nil, zerolog.Nop())
	if err != nil || alerts != nil {
		t.Fatalf("expected nil dispatcher without token, got %v / %v", alerts, err)
	}
}

func TestParseSignalArgs(t *testing.T) {
	filter, err := parseSignalArgs([]string{"WAIT", "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filter.Action != domain.ActionWait || filter.Limit != 3 {
		t.Fatalf("unexpected filter %+v", filter)
	}

	filter, err = parseSignalArgs(nil)
	if err != nil || filter.Limit != 5 || filter.Action != "" {
		t.Fatalf("expected default filter, got %+v / %v", filter, err)
	}
}

func TestParseSignalArgsRejectsInvalidInput(t *testing.T) {
	for _, args := range [][]string{
		{"sell"},
		{"hold", "wait"},
		{"50"},
		{"2", "3"},
	} {
		if _, err := parseSignalArgs(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestFormatSignal(t *testing.T) {
	got := formatSignal(domain.Signal{
		ID:         7,
		Action:     domain.ActionAccumulate,
		Timestamp:  time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
		EMA15:      0.42,
		Mentions:   18,
		PriceClose: domain.Float(2500.5),
	})
	for _, want := range []string{"#7", "ACCUMULATE", "ema15=0.42", "mentions=18", "px=2500.50"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "rsi=") {
		t.Fatalf("unexpected rsi in %q", got)
	}
}

func TestFormatStateAndTruncate(t *testing.T) {
	got := formatState(domain.State{Asset: "ETH-USD", Action: domain.ActionHold, Mentions15m: 4, UpdatedAt: time.Unix(0, 0)})
	if !strings.HasPrefix(got, "ETH-USD\nAction: HOLD") {
		t.Fatalf("unexpected state text %q", got)
	}

	if truncate("short", 10) != "short" {
		t.Fatal("expected short text unchanged")
	}
	if got := truncate(strings.Repeat("a", 20), 10); !strings.HasSuffix(got, "[truncated]") || !strings.HasPrefix(got, strings.Repeat("a", 10)+"\n") {
		t.Fatalf("unexpected truncation %q", got)
	}
}
