package signal

import (
	"strings"
	"testing"
	"time"

	"sentiment-alpha/internal/domain"
)

func TestEngineStepSuppressesRepeatedHold(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	e := NewEngine(DefaultOptions(), nil)
	in := AlphaInput{EMA15: 0.1, Mentions15m: 0, Baseline7d: 0}

	first, state := e.Step(domain.DecisionState{}, in, start)
	if first.Action != domain.ActionHold || !first.Emit {
		t.Fatalf("expected emitted hold, got %+v", first)
	}
	if !state.LastEmit.Equal(start) {
		t.Fatalf("expected last emit %v, got %v", start, state.LastEmit)
	}

	second, next := e.Step(state, in, start.Add(time.Second))
	if second.Action != domain.ActionHold {
		t.Fatalf("expected hold, got %s", second.Action)
	}
	if second.Emit {
		t.Fatal("expected second hold to be suppressed")
	}
	if !next.LastEmit.Equal(start) {
		t.Fatal("suppressed step must not move last emit")
	}
	if next.LastAction == nil || *next.LastAction != domain.ActionHold {
		t.Fatal("expected last action to be recorded even when suppressed")
	}
}

func TestEngineStepAppliesHysteresisFromState(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	e := NewEngine(DefaultOptions(), func() time.Time { return now })
	wait := domain.ActionWait

	d, _ := e.Step(domain.DecisionState{LastAction: &wait, LastEmit: now}, AlphaInput{EMA15: 1.0 / 3.0}, now)
	// alpha = 0.30 * 1/3 = 0.10
	if d.Action != domain.ActionHold {
		t.Fatalf("expected hold, got %s (alpha %v)", d.Action, d.Alpha)
	}
	if !d.Emit {
		t.Fatal("expected emit on action change")
	}
	if !e.Now().Equal(now) {
		t.Fatal("expected injected clock")
	}
}

func sampleResult() domain.CycleResult {
	r := domain.CycleResult{
		Asset:       "ETH",
		EMA15:       0.6,
		Mentions15m: 50,
		Baseline7d:  80.0 / domain.MentionsPerBaselineBucket,
		Price: &domain.PriceSnapshot{
			PriceClose:     2500,
			RSI14:          domain.Float(25),
			MACD:           domain.Float(1.5),
			MACDSignal:     domain.Float(1.2),
			ATRPct:         domain.Float(3),
			PctChange15m:   domain.Float(0.8),
			PctChange1h:    domain.Float(1.6),
			Bias:           domain.BiasUp,
			BreakoutHigh4h: true,
		},
	}
	r.Alpha, r.Contribution = ComputeAlpha(AlphaInput{
		EMA15:       r.EMA15,
		Mentions15m: r.Mentions15m,
		Baseline7d:  r.Baseline7d,
		Price:       r.Price,
	}, DefaultWeights())
	r.Action = Decide(r.Alpha, nil, DefaultThresholds())
	r.Reasons = Reasons(r)
	return r
}

func TestReasonsOrder(t *testing.T) {
	reasons := sampleResult().Reasons
	prefixes := []string{"alpha=", "mentions z=", "sentiment ema15=", "mom:", "RSI14=", "breakout ↑ 4h", "bias=up", "ATR%="}
	if len(reasons) != len(prefixes) {
		t.Fatalf("expected %d reasons, got %v", len(prefixes), reasons)
	}
	for i, p := range prefixes {
		if !strings.HasPrefix(reasons[i], p) {
			t.Fatalf("reason %d: expected prefix %q, got %q", i, p, reasons[i])
		}
	}
	if !strings.Contains(reasons[4], "(OS)") {
		t.Fatalf("expected oversold regime, got %q", reasons[4])
	}
	if !strings.Contains(reasons[7], "risk_mult=0.85") {
		t.Fatalf("expected risk multiplier, got %q", reasons[7])
	}
}

func TestReasonsWithoutPrice(t *testing.T) {
	r := sampleResult()
	r.Price = nil
	if got := Reasons(r); len(got) != 3 {
		t.Fatalf("expected three reasons without price, got %v", got)
	}
}

func TestSummary(t *testing.T) {
	got := Summary(sampleResult())
	for _, want := range []string{"ema15=0.60", "mentions=50", "action=ACCUMULATE", "alpha=1.00", "RSI=25.0", "MACD=1.50/1.20", "ATR%=3.00", "BO↑4h"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in summary %q", want, got)
		}
	}
	if strings.Contains(got, "BO↓4h") {
		t.Fatalf("unexpected breakdown marker in %q", got)
	}
}

func TestPayload(t *testing.T) {
	r := sampleResult()
	p := Payload(r)
	for _, key := range []string{"asset", "ema15", "mentions_15m", "baseline_7d", "action", "alpha", "contrib", "reason", "price"} {
		if _, ok := p[key]; !ok {
			t.Fatalf("missing payload key %q", key)
		}
	}
	if p["action"] != "accumulate" {
		t.Fatalf("expected lower-case action, got %v", p["action"])
	}

	r.Price = nil
	empty, ok := Payload(r)["price"].(map[string]any)
	if !ok || len(empty) != 0 {
		t.Fatalf("expected empty price object, got %#v", Payload(r)["price"])
	}
}
