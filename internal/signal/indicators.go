package signal

import (
	"math"
	"strconv"
	"strings"

	"sentiment-alpha/internal/domain"
)

const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	atrPeriod        = 14
	biasEMAPeriod    = 20
	minSnapshotBars  = 30

	breakoutTolerance = 0.0005
	biasTolerance     = 0.001
)

// EMA returns the exponential moving average of values, seeded with the first
// value. NaN and Inf entries are skipped.
func EMA(values []float64, period int) (float64, bool) {
	vals := finite(values)
	if period <= 0 || len(vals) == 0 {
		return 0, false
	}
	series := emaSeries(vals, period)
	return series[len(series)-1], true
}

// RSI is Wilder's relative strength index over the whole series.
func RSI(values []float64, period int) (float64, bool) {
	vals := finite(values)
	if period <= 0 || len(vals) <= period {
		return 0, false
	}

	var gainSum float64
	var lossSum float64
	for i := 1; i <= period; i++ {
		delta := vals[i] - vals[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(vals); i++ {
		delta := vals[i] - vals[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	return rsiFromAvg(avgGain, avgLoss), true
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACD returns the latest MACD line and signal line values. The signal is nil
// when the line is too short to smooth.
func MACD(values []float64, fast, slow, signal int) (*float64, *float64) {
	vals := finite(values)
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, nil
	}
	if len(vals) < max(fast, slow)+signal {
		return nil, nil
	}

	macdLine, signalLine := macdSeries(vals, fast, slow, signal)
	last := macdLine[len(macdLine)-1]
	if len(macdLine) < signal || len(signalLine) == 0 {
		return &last, nil
	}
	sig := signalLine[len(signalLine)-1]
	return &last, &sig
}

func macdSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signal)
	return macdLine, signalLine
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// ATRPercent is the average true range of the last period bars expressed as
// a percentage of the latest close.
func ATRPercent(candles []domain.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) <= period {
		return 0, false
	}

	trs := make([]float64, 0, len(candles))
	var prevClose *float64
	for _, c := range candles {
		if c.High == nil || c.Low == nil || c.Close == nil {
			if c.Close != nil {
				prevClose = c.Close
			}
			continue
		}
		high, low := *c.High, *c.Low
		tr := high - low
		if prevClose != nil {
			tr = math.Max(tr, math.Max(math.Abs(high-*prevClose), math.Abs(low-*prevClose)))
		}
		trs = append(trs, tr)
		prevClose = c.Close
	}
	if len(trs) <= period {
		return 0, false
	}

	var sum float64
	for _, tr := range trs[len(trs)-period:] {
		sum += tr
	}
	atr := sum / float64(period)

	last := candles[len(candles)-1].Close
	if last == nil || *last == 0 {
		return 0, false
	}
	return atr / *last * 100, true
}

// PctChange is the percent move between the close minutes ago and the latest close.
func PctChange(closes []float64, minutes, timeframeMinutes int) (float64, bool) {
	steps := barsFor(minutes, timeframeMinutes)
	if len(closes) <= steps {
		return 0, false
	}
	ref := closes[len(closes)-steps-1]
	last := closes[len(closes)-1]
	if ref == 0 {
		return 0, false
	}
	return (last - ref) / ref * 100, true
}

// VWAP weights the typical price of the trailing window by volume.
func VWAP(candles []domain.Candle, minutes, timeframeMinutes int) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	steps := barsFor(minutes, timeframeMinutes)
	window := candles
	if len(candles) >= steps {
		window = candles[len(candles)-steps:]
	}

	var num, den float64
	for _, c := range window {
		if c.Volume == nil || c.Close == nil || c.High == nil || c.Low == nil {
			continue
		}
		typical := (*c.High + *c.Low + *c.Close) / 3
		num += typical * *c.Volume
		den += *c.Volume
	}
	if den <= 0 {
		return 0, false
	}
	return num / den, true
}

// RollingHighLow returns the highest high and lowest low of the trailing window.
func RollingHighLow(candles []domain.Candle, window int) (high, low float64, ok bool) {
	highs := make([]float64, 0, len(candles))
	lows := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.High != nil {
			highs = append(highs, *c.High)
		}
		if c.Low != nil {
			lows = append(lows, *c.Low)
		}
	}
	if len(highs) == 0 || len(lows) == 0 {
		return 0, 0, false
	}
	if window > 0 && len(highs) >= window {
		highs = highs[len(highs)-window:]
	}
	if window > 0 && len(lows) >= window {
		lows = lows[len(lows)-window:]
	}

	high, low = highs[0], lows[0]
	for _, h := range highs[1:] {
		high = math.Max(high, h)
	}
	for _, l := range lows[1:] {
		low = math.Min(low, l)
	}
	return high, low, true
}

// BreakoutHigh reports a close more than 0.05% above the rolling high.
func BreakoutHigh(last, rollingHigh float64) bool {
	return last > rollingHigh*(1+breakoutTolerance)
}

// BreakoutLow reports a close more than 0.05% below the rolling low.
func BreakoutLow(last, rollingLow float64) bool {
	return last < rollingLow*(1-breakoutTolerance)
}

// Bias compares EMA(20) with and without the latest close.
func Bias(closes []float64) domain.PriceBias {
	if len(closes) < 2 {
		return domain.BiasNone
	}
	prev, ok := EMA(closes[:len(closes)-1], biasEMAPeriod)
	if !ok {
		return domain.BiasNone
	}
	now, _ := EMA(closes, biasEMAPeriod)
	switch {
	case now > prev*(1+biasTolerance):
		return domain.BiasUp
	case now < prev*(1-biasTolerance):
		return domain.BiasDown
	default:
		return domain.BiasFlat
	}
}

// ParseTimeframeMinutes understands minute timeframes such as "1m" or "15m";
// anything else maps to one minute.
func ParseTimeframeMinutes(timeframe string) int {
	tf := strings.TrimSpace(strings.ToLower(timeframe))
	if !strings.HasSuffix(tf, "m") {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSuffix(tf, "m"))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func barsFor(minutes, timeframeMinutes int) int {
	if timeframeMinutes <= 0 {
		timeframeMinutes = 1
	}
	return max(1, minutes/timeframeMinutes)
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func closesOf(candles []domain.Candle) []float64 {
	out := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.Close == nil || math.IsNaN(*c.Close) {
			continue
		}
		out = append(out, *c.Close)
	}
	return out
}

func clip(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
