package signal

import (
	"fmt"
	"strings"

	"sentiment-alpha/internal/domain"
)

// Reasons lists, in order, the component signals behind a decision.
func Reasons(r domain.CycleResult) []string {
	c := r.Contribution
	out := []string{
		fmt.Sprintf("alpha=%.2f (raw=%.2f)", r.Alpha, c.Raw),
		fmt.Sprintf("mentions z=%.2f vs baseline~%.2f (15m=%d)", c.ZMentions, r.Baseline7d, r.Mentions15m),
		fmt.Sprintf("sentiment ema15=%.2f", r.EMA15),
	}

	p := r.Price
	if p == nil {
		return out
	}
	out = append(out, fmt.Sprintf("mom: Δ15m=%.2f%%, Δ1h=%.2f%%", valueOr(p.PctChange15m), valueOr(p.PctChange1h)))
	if p.RSI14 != nil {
		out = append(out, fmt.Sprintf("RSI14=%.1f (%s)", *p.RSI14, rsiRegime(*p.RSI14)))
	}
	if p.BreakoutHigh4h {
		out = append(out, "breakout ↑ 4h")
	}
	if p.BreakoutLow4h {
		out = append(out, "breakout ↓ 4h")
	}
	if p.Bias != domain.BiasNone {
		out = append(out, fmt.Sprintf("bias=%s mult=%.2f", p.Bias, c.BiasMult))
	}
	if p.ATRPct != nil {
		out = append(out, fmt.Sprintf("ATR%%=%.2f risk_mult=%.2f", *p.ATRPct, c.RiskMult))
	}
	return out
}

// Summary is the one-line notification text.
func Summary(r domain.CycleResult) string {
	parts := []string{
		fmt.Sprintf("ema15=%.2f", r.EMA15),
		fmt.Sprintf("mentions=%d", r.Mentions15m),
		fmt.Sprintf("baseline=%.2f", r.Baseline7d),
		fmt.Sprintf("action=%s", strings.ToUpper(string(r.Action))),
		fmt.Sprintf("alpha=%.2f", r.Alpha),
	}

	if p := r.Price; p != nil {
		if p.PctChange15m != nil {
			parts = append(parts, fmt.Sprintf("Δ15m=%.2f%%", *p.PctChange15m))
		}
		if p.PctChange1h != nil {
			parts = append(parts, fmt.Sprintf("Δ1h=%.2f%%", *p.PctChange1h))
		}
		if p.RSI14 != nil {
			parts = append(parts, fmt.Sprintf("RSI=%.1f", *p.RSI14))
		}
		if p.MACD != nil && p.MACDSignal != nil {
			parts = append(parts, fmt.Sprintf("MACD=%.2f/%.2f", *p.MACD, *p.MACDSignal))
		}
		if p.ATRPct != nil {
			parts = append(parts, fmt.Sprintf("ATR%%=%.2f", *p.ATRPct))
		}
		if p.BreakoutHigh4h {
			parts = append(parts, "BO↑4h")
		}
		if p.BreakoutLow4h {
			parts = append(parts, "BO↓4h")
		}
	}
	return strings.Join(parts, " ")
}

// Payload is the structured body of a signal event.
func Payload(r domain.CycleResult) map[string]any {
	payload := map[string]any{
		"asset":        r.Asset,
		"ema15":        r.EMA15,
		"mentions_15m": r.Mentions15m,
		"baseline_7d":  r.Baseline7d,
		"action":       string(r.Action),
		"alpha":        r.Alpha,
		"contrib":      r.Contribution,
		"reason":       r.Reasons,
		"price":        map[string]any{},
	}
	if r.Price != nil {
		payload["price"] = *r.Price
	}
	return payload
}

func rsiRegime(rsi float64) string {
	switch {
	case rsi < rsiOversold:
		return "OS"
	case rsi > rsiOverbought:
		return "OB"
	}
	return "neutral"
}
