package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"sentiment-alpha/internal/logging"
	"sentiment-alpha/internal/signal"
)

// Config is loaded once at startup and treated as read-only afterwards.
type Config struct {
	Asset       string `mapstructure:"asset"`
	PollSeconds int    `mapstructure:"poll_seconds"`

	Price    PriceConfig    `mapstructure:"price"`
	Alpha    AlphaConfig    `mapstructure:"alpha"`
	Signal   SignalConfig   `mapstructure:"signal"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Advisory AdvisoryConfig `mapstructure:"advisory"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Log      logging.Config `mapstructure:"log"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Summary  SummaryConfig  `mapstructure:"summary"`
	OTel     OTelConfig     `mapstructure:"otel"`
}

type PriceConfig struct {
	Symbol    string `mapstructure:"symbol"`
	Timeframe string `mapstructure:"timeframe"`
}

type AlphaConfig struct {
	WMentions     float64 `mapstructure:"w_mentions"`
	WSent         float64 `mapstructure:"w_sent"`
	WMom          float64 `mapstructure:"w_mom"`
	WRSI          float64 `mapstructure:"w_rsi"`
	WBreakout     float64 `mapstructure:"w_breakout"`
	ThresholdUp   float64 `mapstructure:"threshold_up"`
	ThresholdDown float64 `mapstructure:"threshold_down"`
}

type SignalConfig struct {
	EmitMinSeconds int `mapstructure:"emit_min_seconds"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// AdvisoryConfig.LockKey of zero disables the cross-process cycle lock.
type AdvisoryConfig struct {
	LockKey int64 `mapstructure:"lock_key"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type SummaryConfig struct {
	MinSeconds int `mapstructure:"min_seconds"`
	MaxItems   int `mapstructure:"max_items"`
}

type OTelConfig struct {
	ExporterOTLPEndpoint string `mapstructure:"exporter_otlp_endpoint"`
}

// Load builds configuration from an optional file, environment and defaults.
// Nested keys map to upper-case environment variables, so alpha.w_sent is
// read from ALPHA_W_SENT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("asset", "ETH-USD")
	v.SetDefault("poll_seconds", 60)

	v.SetDefault("price.symbol", "ETH/USDT")
	v.SetDefault("price.timeframe", "1m")

	w := signal.DefaultWeights()
	th := signal.DefaultThresholds()
	v.SetDefault("alpha.w_mentions", w.Mentions)
	v.SetDefault("alpha.w_sent", w.Sent)
	v.SetDefault("alpha.w_mom", w.Mom)
	v.SetDefault("alpha.w_rsi", w.RSI)
	v.SetDefault("alpha.w_breakout", w.Breakout)
	v.SetDefault("alpha.threshold_up", th.Up)
	v.SetDefault("alpha.threshold_down", th.Down)

	v.SetDefault("signal.emit_min_seconds", 5)

	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("advisory.lock_key", int64(0))

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("cors.origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.caller", false)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", int64(0))

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("summary.min_seconds", 60)
	v.SetDefault("summary.max_items", 12)

	v.SetDefault("otel.exporter_otlp_endpoint", "")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func (c *Config) normalize() {
	c.Asset = strings.TrimSpace(c.Asset)
	c.Price.Symbol = strings.TrimSpace(c.Price.Symbol)
	c.Price.Timeframe = strings.ToLower(strings.TrimSpace(c.Price.Timeframe))

	origins := make([]string, 0, len(c.CORS.Origins))
	for _, o := range c.CORS.Origins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORS.Origins = origins
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	var errs []error
	if c.Asset == "" {
		errs = append(errs, errors.New("asset must not be empty"))
	}
	if c.Price.Symbol == "" {
		errs = append(errs, errors.New("price.symbol must not be empty"))
	}
	if c.PollSeconds <= 0 {
		errs = append(errs, errors.New("poll_seconds must be greater than zero"))
	}
	if c.Alpha.ThresholdDown >= c.Alpha.ThresholdUp {
		errs = append(errs, fmt.Errorf("alpha.threshold_down (%v) must be below alpha.threshold_up (%v)", c.Alpha.ThresholdDown, c.Alpha.ThresholdUp))
	}
	for name, w := range map[string]float64{
		"w_mentions": c.Alpha.WMentions,
		"w_sent":     c.Alpha.WSent,
		"w_mom":      c.Alpha.WMom,
		"w_rsi":      c.Alpha.WRSI,
		"w_breakout": c.Alpha.WBreakout,
	} {
		if w < 0 {
			errs = append(errs, fmt.Errorf("alpha.%s cannot be negative", name))
		}
	}
	if c.Signal.EmitMinSeconds < 0 {
		errs = append(errs, errors.New("signal.emit_min_seconds cannot be negative"))
	}
	if c.Summary.MaxItems <= 0 {
		errs = append(errs, errors.New("summary.max_items must be greater than zero"))
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required when telegram.bot_token is set"))
	}
	return errors.Join(errs...)
}

// SignalOptions maps configuration onto the engine options.
func (c *Config) SignalOptions() signal.Options {
	opts := signal.DefaultOptions()
	opts.Weights = signal.Weights{
		Mentions: c.Alpha.WMentions,
		Sent:     c.Alpha.WSent,
		Mom:      c.Alpha.WMom,
		RSI:      c.Alpha.WRSI,
		Breakout: c.Alpha.WBreakout,
	}
	opts.Thresholds.Up = c.Alpha.ThresholdUp
	opts.Thresholds.Down = c.Alpha.ThresholdDown
	opts.Emit.MinInterval = time.Duration(c.Signal.EmitMinSeconds) * time.Second
	return opts
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) SummaryTTL() time.Duration {
	return time.Duration(c.Summary.MinSeconds) * time.Second
}

func (c *Config) TimeframeMinutes() int {
	return signal.ParseTimeframeMinutes(c.Price.Timeframe)
}
