package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"sentiment-alpha/internal/advisor"
	"sentiment-alpha/internal/bot"
	"sentiment-alpha/internal/cache"
	"sentiment-alpha/internal/config"
	"sentiment-alpha/internal/db"
	"sentiment-alpha/internal/events"
	"sentiment-alpha/internal/handler"
	"sentiment-alpha/internal/job"
	"sentiment-alpha/internal/logging"
	"sentiment-alpha/internal/metrics"
	"sentiment-alpha/internal/repository"
	"sentiment-alpha/internal/service"
	signalengine "sentiment-alpha/internal/signal"
	"sentiment-alpha/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "sentiment-alpha/docs"
)

var (
	loadEnvFunc           = godotenv.Load
	loadConfigFunc        = config.Load
	newLoggerFunc         = logging.New
	initPostgresFunc      = db.InitPostgres
	initRedisFunc         = cache.InitRedis
	initTracerFunc        = tracing.InitTracer
	runMigrationsFunc     = repository.RunMigrations
	newSignalEngineFunc   = signalengine.NewEngine
	newSignalServiceFunc  = service.NewSignalService
	newSignalPollerFunc   = job.NewSignalPoller
	startSignalPollerFunc = func(p *job.SignalPoller, ctx context.Context) { go p.Start(ctx) }
	startTelegramBotFunc  = bot.StartTelegramBot
	newOpenAIClientFunc   = func(apiKey, model, baseURL string) advisor.LLM {
		return advisor.NewOpenAIClient(apiKey, model, baseURL)
	}
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Sentiment Alpha API
// @version         1.0
// @description     Sentiment and price driven trading signals with live event streams.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg, err := loadConfigFunc(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLoggerFunc(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx, cfg.OTel.ExporterOTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	// Init Postgres and Redis
	pool, err := initPostgresFunc(ctx, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if pool != nil {
		defer pool.Close()
		if err := runMigrationsFunc(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("failed to run migrations")
		}
	}
	redisClient, err := initRedisFunc(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, continuing without it")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Event plumbing
	countSinkError := func(name string) {
		metrics.SinkErrorsTotal.WithLabelValues(name).Inc()
	}
	bus := events.NewBus(nil)
	sinks := events.NewFanout(logger).Add("bus", bus).OnError(countSinkError)
	if redisClient != nil {
		redisSink := events.NewAsync("redis", cache.NewEventLog(redisClient), events.AsyncOptions{OnError: countSinkError}, logger)
		defer redisSink.Close()
		sinks.Add("redis", redisSink)
	}

	// Repositories and services
	settings := service.Settings{
		Asset:     cfg.Asset,
		Symbol:    cfg.Price.Symbol,
		Timeframe: cfg.Price.Timeframe,
		LockKey:   cfg.Advisory.LockKey,
	}
	deps := service.Deps{Sink: sinks}
	var (
		itemRepo   *repository.ItemRepository
		candleRepo *repository.CandleRepository
	)
	if pool != nil {
		itemRepo = repository.NewItemRepository(pool, tracer)
		candleRepo = repository.NewCandleRepository(pool, tracer)
		deps.Items = itemRepo
		deps.Candles = candleRepo
		deps.Signals = repository.NewSignalRepository(pool, tracer)
		deps.Locker = repository.NewLocker(pool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, signal cycles are disabled")
	}

	engine := newSignalEngineFunc(cfg.SignalOptions(), nil)
	signalService := newSignalServiceFunc(tracer, logger, settings, engine, deps)

	var (
		commentary    handler.Commentator
		botCommentary bot.Commentator
	)
	if pool != nil {
		var llm advisor.LLM
		if cfg.OpenAI.APIKey != "" {
			llm = newOpenAIClientFunc(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		}
		var store advisor.Store
		if redisClient != nil {
			store = cache.NewJSONStore(redisClient, tracing.ServiceName+":")
		}
		adv := advisor.New(advisor.Options{
			Asset:     cfg.Asset,
			Symbol:    cfg.Price.Symbol,
			Timeframe: cfg.Price.Timeframe,
			Model:     cfg.OpenAI.Model,
			TTL:       cfg.SummaryTTL(),
			MaxItems:  cfg.Summary.MaxItems,
		}, llm, signalService, candleRepo, itemRepo, store, tracer, logger)
		commentary, botCommentary = adv, adv
	}

	// Start Telegram bot
	alerts, err := startTelegramBotFunc(ctx, bot.Options{
		Token:  cfg.Telegram.BotToken,
		ChatID: cfg.Telegram.ChatID,
	}, signalService, signalService, botCommentary, logger)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot disabled")
	}
	if alerts != nil {
		telegramSink := events.NewAsync("telegram", alerts, events.AsyncOptions{OnError: countSinkError}, logger)
		defer telegramSink.Close()
		sinks.Add("telegram", telegramSink)
	}

	// Start background poller (stopped by ctx cancel)
	if pool != nil {
		signalPoller := newSignalPollerFunc(tracer, logger, signalService, cfg.PollInterval())
		startSignalPollerFunc(signalPoller, ctx)
	}
	signalService.EmitState(ctx, "backend ready")

	// Create handlers and routes
	h := newHandlerFunc(tracer, logger, signalService, bus, commentary, handler.Options{
		Origins:      cfg.CORS.Origins,
		SummaryModel: cfg.OpenAI.Model,
	})

	r := newRouterFunc()
	r.Use(h.CORS())
	r.Use(otelgin.Middleware(tracing.ServiceName))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    httpAddr(cfg.HTTP.Addr),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info().Msg("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exiting")
}

// httpAddr lets PORT override the configured listen address.
func httpAddr(configured string) string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		if configured == "" {
			return ":8080"
		}
		return configured
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
