package signal

import (
	"math"
	"math/rand"
	"testing"

	"sentiment-alpha/internal/domain"
)

func TestComputeAlphaStaysBoundedAndRawMatchesWeightedTerms(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	w := DefaultWeights()
	biases := []domain.PriceBias{domain.BiasUp, domain.BiasDown, domain.BiasFlat, domain.BiasNone}

	for i := 0; i < 500; i++ {
		in := AlphaInput{
			EMA15:       rng.Float64()*4 - 2,
			Mentions15m: rng.Intn(500),
			Baseline7d:  rng.Float64() * 50,
		}
		if i%5 != 0 {
			in.Price = &domain.PriceSnapshot{
				RSI14:          domain.Float(rng.Float64() * 100),
				ATRPct:         domain.Float(rng.Float64() * 8),
				PctChange15m:   domain.Float(rng.NormFloat64() * 3),
				PctChange1h:    domain.Float(rng.NormFloat64() * 5),
				Bias:           biases[rng.Intn(len(biases))],
				BreakoutHigh4h: rng.Intn(4) == 0,
				BreakoutLow4h:  rng.Intn(4) == 0,
			}
		}

		alpha, c := ComputeAlpha(in, w)
		if alpha < -1 || alpha > 1 {
			t.Fatalf("alpha out of range: %v", alpha)
		}
		sum := w.Mentions*c.ZMentions + w.Sent*c.ZSent + w.Mom*c.ZMom + w.RSI*c.ZRSI + w.Breakout*c.Breakout
		if math.Abs(sum-c.Raw) > 1e-9 {
			t.Fatalf("raw %v does not match weighted terms %v", c.Raw, sum)
		}
		if math.Abs(c.ZMom-(0.6*c.ZMom15+0.4*c.ZMom1h)) > 1e-12 {
			t.Fatalf("unexpected momentum blend: %+v", c)
		}
		if c.Alpha != alpha {
			t.Fatalf("contribution alpha %v differs from result %v", c.Alpha, alpha)
		}
	}
}

func TestComputeAlphaWithoutPriceUsesSentimentAndMentionsOnly(t *testing.T) {
	alpha, c := ComputeAlpha(AlphaInput{EMA15: 0.5, Mentions15m: 3, Baseline7d: 1}, DefaultWeights())

	if c.ZMom15 != 0 || c.ZMom1h != 0 || c.ZRSI != 0 || c.Breakout != 0 {
		t.Fatalf("expected zero price terms, got %+v", c)
	}
	if c.BiasMult != 1 || c.RiskMult != 1 {
		t.Fatalf("expected neutral multipliers, got %+v", c)
	}
	// z_mentions = (3-1)/max(1, 0.5) = 2
	want := 0.35*2 + 0.30*0.5
	if math.Abs(alpha-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, alpha)
	}
}

func TestComputeAlphaStrongMentionsWithUpBiasAccumulates(t *testing.T) {
	baseline := 80.0 / domain.MentionsPerBaselineBucket
	in := AlphaInput{
		EMA15:       0.6,
		Mentions15m: 50,
		Baseline7d:  baseline,
		Price:       &domain.PriceSnapshot{Bias: domain.BiasUp},
	}

	alpha, c := ComputeAlpha(in, DefaultWeights())
	if c.ZMentions != 4 {
		t.Fatalf("expected mentions z clipped to 4, got %v", c.ZMentions)
	}
	if c.BiasMult != 1.15 {
		t.Fatalf("expected up bias multiplier, got %v", c.BiasMult)
	}
	if alpha != 1 {
		t.Fatalf("expected alpha clipped to 1, got %v", alpha)
	}
	if got := Decide(alpha, nil, DefaultThresholds()); got != domain.ActionAccumulate {
		t.Fatalf("expected accumulate, got %s", got)
	}
}

func TestComputeAlphaClipsSentiment(t *testing.T) {
	_, c := ComputeAlpha(AlphaInput{EMA15: -3}, DefaultWeights())
	if c.ZSent != -1 {
		t.Fatalf("expected sentiment clipped to -1, got %v", c.ZSent)
	}
}

func TestRiskMultiplierLastThresholdWins(t *testing.T) {
	cases := []struct {
		atr  *float64
		want float64
	}{
		{nil, 1},
		{domain.Float(1.5), 1},
		{domain.Float(2.0), 1},
		{domain.Float(3.0), 0.85},
		{domain.Float(4.0), 0.85},
		{domain.Float(4.5), 0.70},
	}
	for _, tc := range cases {
		if got := riskMultiplier(tc.atr); got != tc.want {
			t.Fatalf("atr %v: expected %v, got %v", tc.atr, tc.want, got)
		}
	}
}

func TestRSIExtremity(t *testing.T) {
	if got := rsiExtremity(domain.Float(15)); got != 0.5 {
		t.Fatalf("expected 0.5 for oversold, got %v", got)
	}
	if got := rsiExtremity(domain.Float(85)); got != -0.5 {
		t.Fatalf("expected -0.5 for overbought, got %v", got)
	}
	if got := rsiExtremity(domain.Float(50)); got != 0 {
		t.Fatalf("expected neutral 0, got %v", got)
	}
	if got := rsiExtremity(nil); got != 0 {
		t.Fatalf("expected 0 without rsi, got %v", got)
	}
}

func TestBreakoutHighTakesPrecedence(t *testing.T) {
	_, c := ComputeAlpha(AlphaInput{Price: &domain.PriceSnapshot{BreakoutHigh4h: true, BreakoutLow4h: true}}, DefaultWeights())
	if c.Breakout != 0.5 {
		t.Fatalf("expected +0.5, got %v", c.Breakout)
	}
	_, c = ComputeAlpha(AlphaInput{Price: &domain.PriceSnapshot{BreakoutLow4h: true}}, DefaultWeights())
	if c.Breakout != -0.5 {
		t.Fatalf("expected -0.5, got %v", c.Breakout)
	}
}

func TestComputeAlphaUsesConfiguredWeights(t *testing.T) {
	w := Weights{Sent: 1}
	alpha, c := ComputeAlpha(AlphaInput{EMA15: 0.4, Mentions15m: 100}, w)
	if alpha != 0.4 {
		t.Fatalf("expected sentiment-only alpha 0.4, got %v", alpha)
	}
	if c.WMentions != 0 || c.WSent != 1 {
		t.Fatalf("expected weights echoed in contribution, got %+v", c)
	}
}
