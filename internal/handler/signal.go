package handler

import (
	"net/http"
	"strings"

	"sentiment-alpha/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetState godoc
// @Summary      Current signal state
// @Description  Latest action and sentiment EMA with live mention counts
// @Tags         signals
// @Produce      json
// @Success      200  {object}  domain.State
// @Failure      500  {object}  map[string]string
// @Router       /api/state [get]
func (h *Handler) GetState(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-state")
	defer span.End()

	st, err := h.signals.State(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GetSignals godoc
// @Summary      List stored signals
// @Tags         signals
// @Produce      json
// @Param        action  query  string  false  "accumulate, hold or wait"
// @Param        since   query  string  false  "ISO 8601 lower bound"
// @Param        until   query  string  false  "ISO 8601 upper bound"
// @Param        order   query  string  false  "asc or desc"  default(desc)
// @Param        limit   query  int     false  "1-2000"  default(200)
// @Success      200  {array}   domain.Signal
// @Failure      400  {object}  map[string]string
// @Router       /api/signals [get]
func (h *Handler) GetSignals(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()

	filter := domain.SignalFilter{
		Action: domain.Action(strings.ToLower(strings.TrimSpace(c.Query("action")))),
	}
	if filter.Action != "" {
		span.SetAttributes(attribute.String("action", string(filter.Action)))
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.Since, err = queryTime(c, "since"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.Until, err = queryTime(c, "until"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.Asc, err = queryOrder(c); err != nil {
		badRequest(c, err)
		return
	}

	signals, err := h.signals.ListSignals(ctx, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, signals)
}

// GetMetrics godoc
// @Summary      Dashboard counters
// @Tags         signals
// @Produce      json
// @Success      200  {object}  domain.Metrics
// @Router       /api/metrics [get]
func (h *Handler) GetMetrics(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-metrics")
	defer span.End()

	m, err := h.signals.Metrics(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetSignalSeries godoc
// @Summary      Signals for chart markers
// @Tags         series
// @Produce      json
// @Param        minutes  query  int     false  "1-10080"  default(240)
// @Param        asset    query  string  false  "Asset, defaults to the configured one"
// @Success      200  {object}  domain.SignalSeries
// @Router       /api/series/signals [get]
func (h *Handler) GetSignalSeries(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal-series")
	defer span.End()

	minutes, err := queryInt(c, "minutes")
	if err != nil {
		badRequest(c, err)
		return
	}
	series, err := h.signals.SignalSeries(ctx, c.Query("asset"), minutes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetBootstrap godoc
// @Summary      Chart hydration payload
// @Description  Mentions per minute, price candles and signals over one window
// @Tags         series
// @Produce      json
// @Param        minutes    query  int     false  "1-10080"  default(240)
// @Param        symbol     query  string  false  "Price symbol"
// @Param        timeframe  query  string  false  "Candle timeframe"
// @Param        asset      query  string  false  "Asset"
// @Success      200  {object}  domain.Bootstrap
// @Router       /api/history/bootstrap [get]
func (h *Handler) GetBootstrap(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-bootstrap")
	defer span.End()

	minutes, err := queryInt(c, "minutes")
	if err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.signals.Bootstrap(ctx, c.Query("asset"), c.Query("symbol"), c.Query("timeframe"), minutes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
