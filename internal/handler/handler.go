package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sentiment-alpha/internal/advisor"
	"sentiment-alpha/internal/events"
	"sentiment-alpha/internal/metrics"
	"sentiment-alpha/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/trace"
)

const defaultKeepAlive = 15 * time.Second

var DefaultOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

type Commentator interface {
	Commentary(ctx context.Context) (advisor.Commentary, error)
}

type Options struct {
	Origins      []string
	KeepAlive    time.Duration
	SummaryModel string
}

type Handler struct {
	tracer   trace.Tracer
	logger   zerolog.Logger
	signals  *service.SignalService
	bus      *events.Bus
	advisor  Commentator
	opts     Options
	upgrader websocket.Upgrader
}

func New(
	tracer trace.Tracer,
	logger zerolog.Logger,
	signals *service.SignalService,
	bus *events.Bus,
	commentator Commentator,
	opts Options,
) *Handler {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}
	if len(opts.Origins) == 0 {
		opts.Origins = DefaultOrigins
	}
	h := &Handler{
		tracer:  tracer,
		logger:  logger.With().Str("component", "http").Logger(),
		signals: signals,
		bus:     bus,
		advisor: commentator,
		opts:    opts,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.allowOrigin,
	}
	return h
}

// CORS allows the configured dashboard origins.
func (h *Handler) CORS() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = h.opts.Origins
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/events", h.StreamEvents)
	r.GET("/ws", h.StreamWebSocket)

	api := r.Group("/api")
	api.GET("/state", h.GetState)
	api.GET("/signals", h.GetSignals)
	api.GET("/items", h.GetItems)
	api.GET("/impact/top", h.GetTopImpact)
	api.GET("/metrics", h.GetMetrics)
	api.GET("/events", h.GetEvents)
	api.GET("/summary", h.GetSummary)
	api.GET("/series/prices", h.GetPriceSeries)
	api.GET("/series/mentions", h.GetMentionSeries)
	api.GET("/series/signals", h.GetSignalSeries)
	api.GET("/history/bootstrap", h.GetBootstrap)
	api.GET("/loglevel", h.GetLogLevel)
	api.POST("/loglevel", h.SetLogLevel)
}

// Health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.opts.Origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (h *Handler) serviceReady(c *gin.Context) bool {
	if h.signals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return false
	}
	return true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotInitialized):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// queryInt parses an optional integer parameter. A missing value yields 0 so
// the service applies its default.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	if n == 0 {
		return 0, errors.New(name + " must be positive")
	}
	return n, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &f, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// queryTime accepts RFC 3339 or a naive ISO timestamp, read as UTC.
func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.New(name + " must be an ISO 8601 timestamp")
}

func queryOrder(c *gin.Context) (asc bool, err error) {
	switch strings.ToLower(strings.TrimSpace(c.DefaultQuery("order", "desc"))) {
	case "desc":
		return false, nil
	case "asc":
		return true, nil
	}
	return false, errors.New("order must be asc or desc")
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
