package advisor

import (
	"fmt"
	"strings"
	"time"

	"sentiment-alpha/internal/domain"
)

const (
	factsTimeLayout = "2006-01-02 15:04:05Z"
	maxItemText     = 220
	maxCloses       = 10
)

type Facts struct {
	NowUTC      string      `json:"now_utc"`
	Asset       string      `json:"asset"`
	Signal      SignalFacts `json:"signal"`
	Price       PriceFacts  `json:"price"`
	ItemsSample []ItemFact  `json:"items_sample"`
	Counts      CountFacts  `json:"counts"`
}

type SignalFacts struct {
	EMA15       float64 `json:"ema15"`
	Mentions15m int     `json:"mentions_15m"`
	Baseline7d  float64 `json:"baseline_7d"`
	Action      string  `json:"action"`
	Timestamp   string  `json:"ts"`
}

type ClosePoint struct {
	Timestamp string  `json:"ts"`
	Close     float64 `json:"c"`
}

type PriceFacts struct {
	PctChange60m *float64     `json:"pct_change_60m"`
	SeriesClose  []ClosePoint `json:"series_close"`
}

type ItemFact struct {
	Timestamp string  `json:"ts"`
	Source    string  `json:"src"`
	Score     float64 `json:"score"`
	Text      string  `json:"text"`
}

type CountFacts struct {
	RelevantLast15m int `json:"items_llm_relevant_15m"`
	SampleCount     int `json:"items_sample_count"`
}

func buildFacts(now time.Time, st domain.State, candles []domain.Candle, items []domain.Item) Facts {
	f := Facts{
		NowUTC: now.UTC().Format(factsTimeLayout),
		Asset:  st.Asset,
		Signal: SignalFacts{
			EMA15:       st.EMA15,
			Mentions15m: st.Mentions15m,
			Baseline7d:  st.Baseline7d,
			Action:      string(st.Action),
			Timestamp:   st.UpdatedAt.UTC().Format(factsTimeLayout),
		},
		ItemsSample: make([]ItemFact, 0, len(items)),
	}

	closes := make([]ClosePoint, 0, len(candles))
	for _, c := range candles {
		if c.Close == nil {
			continue
		}
		closes = append(closes, ClosePoint{Timestamp: c.OpenTime.UTC().Format(factsTimeLayout), Close: *c.Close})
	}
	if len(closes) >= 2 && closes[0].Close != 0 {
		f.Price.PctChange60m = domain.Float((closes[len(closes)-1].Close/closes[0].Close - 1) * 100)
	}
	if len(closes) > maxCloses {
		closes = closes[len(closes)-maxCloses:]
	}
	f.Price.SeriesClose = closes

	cutoff := now.Add(-15 * time.Minute)
	for _, it := range items {
		f.ItemsSample = append(f.ItemsSample, ItemFact{
			Timestamp: it.Timestamp.UTC().Format(factsTimeLayout),
			Source:    it.Source,
			Score:     it.Score,
			Text:      truncateRunes(it.Text, maxItemText),
		})
		if !it.Timestamp.Before(cutoff) {
			f.Counts.RelevantLast15m++
		}
	}
	f.Counts.SampleCount = len(f.ItemsSample)
	return f
}

// Text renders facts as the plain context block handed to the model.
func (f Facts) Text() string {
	lines := []string{
		"now_utc: " + f.NowUTC,
		"asset: " + f.Asset,
		fmt.Sprintf("signal: action=%s ema15=%.2f mentions_15m=%d baseline_7d=%.2f",
			f.Signal.Action, f.Signal.EMA15, f.Signal.Mentions15m, f.Signal.Baseline7d),
	}
	if pct := f.Price.PctChange60m; pct != nil {
		lines = append(lines, fmt.Sprintf("price: pct_change_60m=%.2f%%", *pct))
	}
	if n := len(f.Price.SeriesClose); n > 0 {
		last := f.Price.SeriesClose[n-1]
		lines = append(lines, fmt.Sprintf("price_last: %.2f @ %s", last.Close, last.Timestamp))
	}
	lines = append(lines, fmt.Sprintf("items: sample_count=%d recent_relevant_15m=%d",
		f.Counts.SampleCount, f.Counts.RelevantLast15m))
	for _, it := range f.ItemsSample {
		lines = append(lines, fmt.Sprintf("- [%s %s] score=%.2f text=%s", it.Timestamp, it.Source, it.Score, it.Text))
	}
	return strings.Join(lines, "\n")
}

func buildPrompt(asset, factsText string) string {
	return fmt.Sprintf(
		"Summarize the current state of %s in at most 5 bullet points, combining sentiment, "+
			"momentum and news flow. Be specific and concise. Finish with one line stating the "+
			"current bias (bullish/neutral/bearish). Answer in Markdown.\n\n"+
			"Context:\n%s\n\nMarkdown output only, no preamble.",
		asset, factsText,
	)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
