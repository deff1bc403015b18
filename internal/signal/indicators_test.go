package signal

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"sentiment-alpha/internal/domain"
)

func TestEMASingleValueReturnsValue(t *testing.T) {
	for _, period := range []int{1, 5, 15, 200} {
		got, ok := EMA([]float64{42.5}, period)
		if !ok || got != 42.5 {
			t.Fatalf("period %d: expected 42.5, got %v ok=%v", period, got, ok)
		}
	}
}

func TestEMARejectsEmptyInputAndBadPeriod(t *testing.T) {
	if _, ok := EMA(nil, 10); ok {
		t.Fatal("expected no ema for empty input")
	}
	if _, ok := EMA([]float64{1, 2}, 0); ok {
		t.Fatal("expected no ema for period 0")
	}
	if _, ok := EMA([]float64{math.NaN()}, 3); ok {
		t.Fatal("expected NaN-only input to be treated as empty")
	}
}

func TestEMASeededWithFirstValue(t *testing.T) {
	got, ok := EMA([]float64{1, 2}, 3)
	if !ok || math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("expected 1.5, got %v", got)
	}
}

func TestRSIWilderSmoothing(t *testing.T) {
	got, ok := RSI([]float64{1, 2, 1, 2}, 2)
	if !ok {
		t.Fatal("expected rsi")
	}
	if math.Abs(got-75) > 1e-9 {
		t.Fatalf("expected 75, got %v", got)
	}
}

func TestRSIRequiresMoreThanPeriodValues(t *testing.T) {
	values := make([]float64, 14)
	for i := range values {
		values[i] = float64(i)
	}
	if _, ok := RSI(values, 14); ok {
		t.Fatal("expected no rsi with exactly period values")
	}
}

func TestRSIAllGainsIs100(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	got, ok := RSI(values, 14)
	if !ok || got != 100 {
		t.Fatalf("expected 100, got %v ok=%v", got, ok)
	}
}

func TestRSIStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 15; n < 120; n++ {
		values := make([]float64, n)
		price := 100.0
		for i := range values {
			price += rng.NormFloat64() * 2
			values[i] = price
		}
		got, ok := RSI(values, 14)
		if !ok {
			t.Fatalf("n=%d: expected rsi", n)
		}
		if got < 0 || got > 100 {
			t.Fatalf("n=%d: rsi out of range: %v", n, got)
		}
	}
}

func TestMACDRequiresSlowPlusSignalValues(t *testing.T) {
	values := make([]float64, 34)
	for i := range values {
		values[i] = 50
	}
	if m, s := MACD(values, 12, 26, 9); m != nil || s != nil {
		t.Fatalf("expected nil macd for 34 values, got %v %v", m, s)
	}

	values = append(values, 50)
	m, s := MACD(values, 12, 26, 9)
	if m == nil || s == nil {
		t.Fatal("expected macd and signal for 35 values")
	}
	if *m != 0 || *s != 0 {
		t.Fatalf("expected flat series to give zero macd, got %v/%v", *m, *s)
	}
}

func TestMACDPositiveOnUptrend(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	m, s := MACD(values, 12, 26, 9)
	if m == nil || s == nil || *m <= 0 {
		t.Fatalf("expected positive macd on uptrend, got %v %v", m, s)
	}
}

func TestATRPercent(t *testing.T) {
	candles := flatCandles(15, 101, 99, 100)
	got, ok := ATRPercent(candles, 14)
	if !ok {
		t.Fatal("expected atr")
	}
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("expected 2%%, got %v", got)
	}

	if _, ok := ATRPercent(candles[:14], 14); ok {
		t.Fatal("expected no atr with period candles")
	}
}

func TestATRPercentSkipsPartialCandles(t *testing.T) {
	candles := flatCandles(16, 101, 99, 100)
	candles[5].High = nil
	if _, ok := ATRPercent(candles, 14); !ok {
		t.Fatal("expected atr with one partial candle among 16")
	}
	candles[6].Low = nil
	if _, ok := ATRPercent(candles, 14); ok {
		t.Fatal("expected no atr with only 14 usable true ranges")
	}
}

func TestPctChange(t *testing.T) {
	got, ok := PctChange([]float64{100, 101, 102}, 2, 1)
	if !ok || math.Abs(got-2) > 1e-9 {
		t.Fatalf("expected 2%%, got %v ok=%v", got, ok)
	}
	if _, ok := PctChange([]float64{100, 101}, 2, 1); ok {
		t.Fatal("expected insufficient history")
	}
	if _, ok := PctChange([]float64{0, 1, 2}, 2, 1); ok {
		t.Fatal("expected zero reference to give no value")
	}

	// 15 minutes on 5m bars is three steps back.
	got, ok = PctChange([]float64{50, 100, 101, 102, 110}, 15, 5)
	if !ok || math.Abs(got-10) > 1e-9 {
		t.Fatalf("expected 10%%, got %v", got)
	}
}

func TestVWAP(t *testing.T) {
	candles := []domain.Candle{
		candle(0, 10, 10, 10, 1),
		candle(1, 20, 20, 20, 3),
	}
	got, ok := VWAP(candles, 15, 1)
	if !ok || math.Abs(got-17.5) > 1e-9 {
		t.Fatalf("expected 17.5, got %v ok=%v", got, ok)
	}

	got, ok = VWAP(candles, 1, 1)
	if !ok || got != 20 {
		t.Fatalf("expected trailing window of one candle, got %v", got)
	}

	zero := []domain.Candle{candle(0, 10, 10, 10, 0)}
	if _, ok := VWAP(zero, 15, 1); ok {
		t.Fatal("expected no vwap without volume")
	}
}

func TestRollingHighLow(t *testing.T) {
	candles := []domain.Candle{
		candle(0, 5, 1, 3, 1),
		candle(1, 9, 3, 4, 1),
		candle(2, 7, 2, 5, 1),
	}
	high, low, ok := RollingHighLow(candles, 2)
	if !ok || high != 9 || low != 2 {
		t.Fatalf("expected 9/2, got %v/%v", high, low)
	}

	high, low, _ = RollingHighLow(candles, 10)
	if high != 9 || low != 1 {
		t.Fatalf("expected whole series when window exceeds it, got %v/%v", high, low)
	}

	if _, _, ok := RollingHighLow(nil, 3); ok {
		t.Fatal("expected no result for empty input")
	}
}

func TestBreakoutTolerance(t *testing.T) {
	if !BreakoutHigh(100.06, 100) {
		t.Fatal("expected breakout above 100.05")
	}
	if BreakoutHigh(100.04, 100) {
		t.Fatal("expected no breakout at 100.04")
	}
	if !BreakoutLow(99.94, 100) {
		t.Fatal("expected breakdown below 99.95")
	}
	if BreakoutLow(99.96, 100) {
		t.Fatal("expected no breakdown at 99.96")
	}
}

func TestBias(t *testing.T) {
	up := make([]float64, 40)
	down := make([]float64, 40)
	flat := make([]float64, 40)
	for i := range up {
		up[i] = 100 + float64(i)
		down[i] = 200 - float64(i)
		flat[i] = 100
	}
	if got := Bias(up); got != domain.BiasUp {
		t.Fatalf("expected up, got %q", got)
	}
	if got := Bias(down); got != domain.BiasDown {
		t.Fatalf("expected down, got %q", got)
	}
	if got := Bias(flat); got != domain.BiasFlat {
		t.Fatalf("expected flat, got %q", got)
	}
	if got := Bias([]float64{1}); got != domain.BiasNone {
		t.Fatalf("expected no bias for single close, got %q", got)
	}
}

func TestParseTimeframeMinutes(t *testing.T) {
	cases := map[string]int{"1m": 1, "5m": 5, " 15M ": 15, "1h": 1, "": 1, "xm": 1, "0m": 1}
	for in, want := range cases {
		if got := ParseTimeframeMinutes(in); got != want {
			t.Fatalf("%q: expected %d, got %d", in, want, got)
		}
	}
}

func candle(i int, high, low, closeVal, volume float64) domain.Candle {
	return domain.Candle{
		Symbol:    "ETH/USDT",
		Timeframe: "1m",
		OpenTime:  time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Minute),
		Open:      domain.Float(closeVal),
		High:      domain.Float(high),
		Low:       domain.Float(low),
		Close:     domain.Float(closeVal),
		Volume:    domain.Float(volume),
	}
}

func flatCandles(n int, high, low, closeVal float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = candle(i, high, low, closeVal, 10)
	}
	return out
}
