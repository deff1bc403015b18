package domain

import (
	"encoding/json"
	"time"
)

type Action string

const (
	ActionAccumulate Action = "accumulate"
	ActionHold       Action = "hold"
	ActionWait       Action = "wait"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionAccumulate, ActionHold, ActionWait:
		return true
	}
	return false
}

type PriceBias string

const (
	BiasUp   PriceBias = "up"
	BiasDown PriceBias = "down"
	BiasFlat PriceBias = "flat"
	BiasNone PriceBias = ""
)

// MarshalJSON encodes BiasNone as null.
func (b PriceBias) MarshalJSON() ([]byte, error) {
	if b == BiasNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(b))
}

// Candle is one OHLCV bar. Fields are nullable because exchanges occasionally
// return partial bars; indicator code filters missing values.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OpenTime  time.Time `json:"ts"`
	Open      *float64  `json:"o"`
	High      *float64  `json:"h"`
	Low       *float64  `json:"l"`
	Close     *float64  `json:"c"`
	Volume    *float64  `json:"v"`
}

type SentimentSample struct {
	Timestamp time.Time `json:"ts"`
	Score     float64   `json:"score"`
}

// Item is a classified news or social post written by the ingestion pipelines.
type Item struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Asset       string    `json:"asset"`
	Timestamp   time.Time `json:"ts"`
	Text        string    `json:"text"`
	Score       float64   `json:"score"`
	Label       string    `json:"label,omitempty"`
	URL         string    `json:"url,omitempty"`
	LLMRelevant *bool     `json:"llm_relevant,omitempty"`
	Impact      *float64  `json:"impact,omitempty"`
}

// PriceSnapshot holds the price-derived indicators of one cycle. It is never
// persisted on its own; a few fields are copied into the Signal row.
type PriceSnapshot struct {
	PriceClose     float64   `json:"price_close"`
	RSI14          *float64  `json:"rsi14"`
	MACD           *float64  `json:"macd"`
	MACDSignal     *float64  `json:"macd_signal"`
	ATRPct         *float64  `json:"atr_pct"`
	Bias           PriceBias `json:"price_bias"`
	PctChange15m   *float64  `json:"pct_change_15m"`
	PctChange1h    *float64  `json:"pct_change_1h"`
	VWAP15m        *float64  `json:"vwap_15m"`
	VWAP1h         *float64  `json:"vwap_1h"`
	High4h         *float64  `json:"high_4h"`
	Low4h          *float64  `json:"low_4h"`
	High24h        *float64  `json:"high_24h"`
	Low24h         *float64  `json:"low_24h"`
	Range24hPct    *float64  `json:"range_24h_pct"`
	BreakoutHigh4h bool      `json:"breakout_high_4h"`
	BreakoutLow4h  bool      `json:"breakout_low_4h"`
}

type Signal struct {
	ID         int64     `json:"id"`
	Asset      string    `json:"asset"`
	Timestamp  time.Time `json:"ts"`
	EMA15      float64   `json:"ema15"`
	Mentions   int       `json:"mentions"`
	Action     Action    `json:"action"`
	PriceClose *float64  `json:"price_close"`
	RSI14      *float64  `json:"rsi14"`
	MACD       *float64  `json:"macd"`
	MACDSignal *float64  `json:"macd_signal"`
	ATRPct     *float64  `json:"atr_pct"`
	PriceBias  *string   `json:"price_bias"`
}

// Contribution is the audit trail of one alpha computation.
type Contribution struct {
	ZMentions float64 `json:"z_mentions"`
	ZSent     float64 `json:"z_sent"`
	ZMom15    float64 `json:"z_mom_15"`
	ZMom1h    float64 `json:"z_mom_1h"`
	ZMom      float64 `json:"z_mom"`
	ZRSI      float64 `json:"z_rsi"`
	Breakout  float64 `json:"bo"`
	WMentions float64 `json:"w_mentions"`
	WSent     float64 `json:"w_sent"`
	WMom      float64 `json:"w_mom"`
	WRSI      float64 `json:"w_rsi"`
	WBreakout float64 `json:"w_breakout"`
	BiasMult  float64 `json:"bias_mult"`
	RiskMult  float64 `json:"risk_mult"`
	Raw       float64 `json:"raw"`
	Alpha     float64 `json:"alpha"`
}

// DecisionState is carried between cycles. LastAction is nil before the
// first decision.
type DecisionState struct {
	LastAction *Action
	LastEmit   time.Time
}

// CycleResult is everything one orchestrator run produced.
type CycleResult struct {
	Asset        string         `json:"asset"`
	Timestamp    time.Time      `json:"ts"`
	EMA15        float64        `json:"ema15"`
	Mentions15m  int            `json:"mentions_15m"`
	Baseline7d   float64        `json:"baseline_7d"`
	Action       Action         `json:"action"`
	Alpha        float64        `json:"alpha"`
	Contribution Contribution   `json:"contrib"`
	Price        *PriceSnapshot `json:"price,omitempty"`
	Reasons      []string       `json:"reason"`
	Summary      string         `json:"summary"`
	Emitted      bool           `json:"emitted"`
	Signal       Signal         `json:"signal"`
}

type Event struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Timestamp float64        `json:"timestamp"`
	Summary   string         `json:"summary"`
	Payload   map[string]any `json:"payload"`
}

const (
	EventSignal = "signal"
	EventState  = "state"
)

type SignalFilter struct {
	Asset  string
	Action Action
	Since  *time.Time
	Until  *time.Time
	Asc    bool
	Limit  int
}

type ItemFilter struct {
	Source   string
	Label    string
	Query    string
	MinScore *float64
	MaxScore *float64
	Since    *time.Time
	Until    *time.Time
	Relevant *bool
	Asc      bool
	Limit    int
}

type State struct {
	Asset       string    `json:"asset"`
	EMA15       float64   `json:"ema15"`
	Mentions15m int       `json:"mentions_15m"`
	Baseline7d  float64   `json:"baseline_7d"`
	Action      Action    `json:"action"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Metrics struct {
	ItemsTotal   int64   `json:"items_total"`
	SignalsTotal int64   `json:"signals_total"`
	ItemsLast15m int64   `json:"items_last_15m"`
	AvgScore1h   float64 `json:"avg_score_1h"`
}

type MentionPoint struct {
	Timestamp time.Time `json:"ts"`
	Count     int       `json:"count"`
}

// MentionsPerBaselineBucket is the number of 15-minute buckets in seven days.
const MentionsPerBaselineBucket = 7 * 24 * 4

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// PriceBar is a candle flattened for charting; missing values become 0.
type PriceBar struct {
	Timestamp time.Time `json:"ts"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    float64   `json:"v"`
}

type PriceSeries struct {
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"timeframe"`
	Minutes   int        `json:"minutes,omitempty"`
	Candles   []PriceBar `json:"candles"`
}

type MentionSeries struct {
	Asset   string         `json:"asset"`
	Minutes int            `json:"minutes"`
	Points  []MentionPoint `json:"points"`
}

type SignalPoint struct {
	Timestamp time.Time `json:"ts"`
	Action    Action    `json:"action"`
	EMA15     float64   `json:"ema15"`
	Mentions  int       `json:"mentions"`
}

type SignalSeries struct {
	Asset   string        `json:"asset"`
	Minutes int           `json:"minutes"`
	Signals []SignalPoint `json:"signals"`
}

// Bootstrap hydrates a chart in one request.
type Bootstrap struct {
	Asset    string         `json:"asset"`
	Minutes  int            `json:"minutes"`
	Mentions []MentionPoint `json:"mentions"`
	Prices   PriceSeries    `json:"prices"`
	Signals  []SignalPoint  `json:"signals"`
}
