package handler

import (
	"errors"
	"net/http"
	"strings"

	"sentiment-alpha/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetItems godoc
// @Summary      List sentiment items
// @Tags         items
// @Produce      json
// @Param        limit      query  int     false  "1-2000"  default(100)
// @Param        source     query  string  false  "Source filter"
// @Param        label      query  string  false  "Label filter"
// @Param        q          query  string  false  "Case-insensitive text search"
// @Param        min_score  query  number  false  "Minimum score"
// @Param        max_score  query  number  false  "Maximum score"
// @Param        since      query  string  false  "ISO 8601 lower bound"
// @Param        until      query  string  false  "ISO 8601 upper bound"
// @Param        order      query  string  false  "asc or desc"  default(desc)
// @Param        relevant   query  int     false  "1 relevant only, 0 not relevant"
// @Success      200  {array}   domain.Item
// @Failure      400  {object}  map[string]string
// @Router       /api/items [get]
func (h *Handler) GetItems(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-items")
	defer span.End()

	filter := domain.ItemFilter{
		Source: strings.TrimSpace(c.Query("source")),
		Label:  strings.TrimSpace(c.Query("label")),
		Query:  strings.TrimSpace(c.Query("q")),
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.MinScore, err = queryFloat(c, "min_score"); err != nil {
		badRequest(c, err)
		return
	}
	if filter.MaxScore, err = queryFloat(c, "max_score"); err != nil {
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
	switch strings.TrimSpace(c.Query("relevant")) {
	case "":
	case "1":
		filter.Relevant = boolPtr(true)
	case "0":
		filter.Relevant = boolPtr(false)
	default:
		badRequest(c, errors.New("relevant must be 0 or 1"))
		return
	}

	items, err := h.signals.ListItems(ctx, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetTopImpact godoc
// @Summary      Highest-impact items
// @Tags         items
// @Produce      json
// @Param        limit   query  int     false  "1-200"  default(20)
// @Param        hours   query  int     false  "1-168"  default(6)
// @Param        source  query  string  false  "Source filter"
// @Success      200  {array}   domain.Item
// @Failure      400  {object}  map[string]string
// @Router       /api/impact/top [get]
func (h *Handler) GetTopImpact(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-top-impact")
	defer span.End()

	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}
	hours, err := queryInt(c, "hours")
	if err != nil {
		badRequest(c, err)
		return
	}

	items, err := h.signals.TopImpact(ctx, hours, strings.TrimSpace(c.Query("source")), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetMentionSeries godoc
// @Summary      Mentions per minute
// @Tags         series
// @Produce      json
// @Param        minutes  query  int     false  "1-10080"  default(240)
// @Param        asset    query  string  false  "Asset"
// @Success      200  {object}  domain.MentionSeries
// @Router       /api/series/mentions [get]
func (h *Handler) GetMentionSeries(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-mention-series")
	defer span.End()

	minutes, err := queryInt(c, "minutes")
	if err != nil {
		badRequest(c, err)
		return
	}
	series, err := h.signals.MentionSeries(ctx, c.Query("asset"), minutes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetPriceSeries godoc
// @Summary      OHLCV candles
// @Tags         series
// @Produce      json
// @Param        symbol     query  string  false  "Price symbol"
// @Param        timeframe  query  string  false  "Candle timeframe"
// @Param        minutes    query  int     false  "1-10080"  default(240)
// @Success      200  {object}  domain.PriceSeries
// @Router       /api/series/prices [get]
func (h *Handler) GetPriceSeries(c *gin.Context) {
	if !h.serviceReady(c) {
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price-series")
	defer span.End()

	minutes, err := queryInt(c, "minutes")
	if err != nil {
		badRequest(c, err)
		return
	}
	series, err := h.signals.PriceSeries(ctx, c.Query("symbol"), c.Query("timeframe"), minutes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func boolPtr(v bool) *bool {
	return &v
}
