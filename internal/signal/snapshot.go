package signal

import (
	"sort"

	"sentiment-alpha/internal/domain"
)

// BuildSnapshot derives the price context of one cycle from ascending
// candles. It reports false when fewer than 30 usable closes are available.
func BuildSnapshot(candles []domain.Candle, timeframeMinutes int) (domain.PriceSnapshot, bool) {
	candles = normalizeCandles(candles)
	closes := closesOf(candles)
	if len(closes) < minSnapshotBars {
		return domain.PriceSnapshot{}, false
	}
	if timeframeMinutes <= 0 {
		timeframeMinutes = 1
	}

	last := closes[len(closes)-1]
	snap := domain.PriceSnapshot{
		PriceClose: last,
		Bias:       Bias(closes),
	}

	snap.RSI14 = optional(RSI(closes, rsiPeriod))
	snap.MACD, snap.MACDSignal = MACD(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	snap.ATRPct = optional(ATRPercent(candles, atrPeriod))
	snap.PctChange15m = optional(PctChange(closes, 15, timeframeMinutes))
	snap.PctChange1h = optional(PctChange(closes, 60, timeframeMinutes))
	snap.VWAP15m = optional(VWAP(candles, 15, timeframeMinutes))
	snap.VWAP1h = optional(VWAP(candles, 60, timeframeMinutes))

	if high, low, ok := RollingHighLow(candles, barsFor(240, timeframeMinutes)); ok {
		snap.High4h, snap.Low4h = &high, &low
		snap.BreakoutHigh4h = BreakoutHigh(last, high)
		snap.BreakoutLow4h = BreakoutLow(last, low)
	}
	if high, low, ok := RollingHighLow(candles, barsFor(1440, timeframeMinutes)); ok {
		snap.High24h, snap.Low24h = &high, &low
		if high != 0 && low != 0 && last != 0 {
			snap.Range24hPct = domain.Float((high - low) / last * 100)
		}
	}

	return snap, true
}

func normalizeCandles(in []domain.Candle) []domain.Candle {
	out := make([]domain.Candle, 0, len(in))
	for _, c := range in {
		if c.Close == nil {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	return out
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
