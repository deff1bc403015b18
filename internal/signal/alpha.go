package signal

import (
	"math"

	"sentiment-alpha/internal/domain"
)

// Weights of the alpha components. Zero value is not useful; start from
// DefaultWeights.
type Weights struct {
	Mentions float64
	Sent     float64
	Mom      float64
	RSI      float64
	Breakout float64
}

func DefaultWeights() Weights {
	return Weights{
		Mentions: 0.35,
		Sent:     0.30,
		Mom:      0.25,
		RSI:      0.05,
		Breakout: 0.05,
	}
}

// AlphaInput is what the model needs from one cycle. Price is nil when the
// snapshot could not be built.
type AlphaInput struct {
	EMA15       float64
	Mentions15m int
	Baseline7d  float64
	Price       *domain.PriceSnapshot
}

const (
	mentionsClip = 4.0
	momClip      = 4.0
	mom15Scale   = 0.5
	mom1hScale   = 1.0
	mom15Weight  = 0.6
	mom1hWeight  = 0.4
	breakoutTerm = 0.5

	rsiOversold   = 30.0
	rsiOverbought = 70.0

	biasUpMult   = 1.15
	biasDownMult = 0.85

	atrElevated     = 2.0
	atrExtreme      = 4.0
	riskElevatedMul = 0.85
	riskExtremeMul  = 0.70
)

// ComputeAlpha blends mentions, sentiment, momentum, RSI extremity and
// breakout into a score clipped to [-1, 1].
func ComputeAlpha(in AlphaInput, w Weights) (float64, domain.Contribution) {
	c := domain.Contribution{
		WMentions: w.Mentions,
		WSent:     w.Sent,
		WMom:      w.Mom,
		WRSI:      w.RSI,
		WBreakout: w.Breakout,
		BiasMult:  1,
		RiskMult:  1,
	}

	c.ZMentions = zScore(float64(in.Mentions15m), in.Baseline7d, math.Max(1, in.Baseline7d*0.5), mentionsClip)
	c.ZSent = clip(in.EMA15, 1)

	if p := in.Price; p != nil {
		c.ZMom15 = zScore(valueOr(p.PctChange15m), 0, mom15Scale, momClip)
		c.ZMom1h = zScore(valueOr(p.PctChange1h), 0, mom1hScale, momClip)
		c.ZRSI = rsiExtremity(p.RSI14)

		switch {
		case p.BreakoutHigh4h:
			c.Breakout = breakoutTerm
		case p.BreakoutLow4h:
			c.Breakout = -breakoutTerm
		}

		c.BiasMult = biasMultiplier(p.Bias)
		c.RiskMult = riskMultiplier(p.ATRPct)
	}
	c.ZMom = mom15Weight*c.ZMom15 + mom1hWeight*c.ZMom1h

	c.Raw = w.Mentions*c.ZMentions +
		w.Sent*c.ZSent +
		w.Mom*c.ZMom +
		w.RSI*c.ZRSI +
		w.Breakout*c.Breakout

	c.Alpha = clip(c.Raw*c.BiasMult*c.RiskMult, 1)
	return c.Alpha, c
}

func zScore(x, mu, sigma, limit float64) float64 {
	if sigma <= 1e-9 {
		return 0
	}
	return clip((x-mu)/sigma, limit)
}

func rsiExtremity(rsi *float64) float64 {
	if rsi == nil {
		return 0
	}
	switch {
	case *rsi < rsiOversold:
		return (rsiOversold - *rsi) / 30
	case *rsi > rsiOverbought:
		return -(*rsi - rsiOverbought) / 30
	}
	return 0
}

func biasMultiplier(bias domain.PriceBias) float64 {
	switch bias {
	case domain.BiasUp:
		return biasUpMult
	case domain.BiasDown:
		return biasDownMult
	}
	return 1
}

// riskMultiplier applies only the strictest matching ATR threshold; the
// multipliers never compound.
func riskMultiplier(atrPct *float64) float64 {
	if atrPct == nil {
		return 1
	}
	mult := 1.0
	if *atrPct > atrElevated {
		mult = riskElevatedMul
	}
	if *atrPct > atrExtreme {
		mult = riskExtremeMul
	}
	return mult
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
