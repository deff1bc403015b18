package handler

import (
	"net/http"
	"strings"
	"time"

	"sentiment-alpha/internal/advisor"
	"sentiment-alpha/internal/logging"

	"github.com/gin-gonic/gin"
)

// GetSummary godoc
// @Summary      Market commentary
// @Description  Short LLM commentary over the latest signal, prices and relevant items. Cached; stale on model failure.
// @Tags         summary
// @Produce      json
// @Success      200  {object}  advisor.Commentary
// @Router       /api/summary [get]
func (h *Handler) GetSummary(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-summary")
	defer span.End()

	fallback := advisor.Commentary{
		Model:       h.opts.SummaryModel,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stale:       true,
		Error:       "summary_unavailable",
	}
	if h.advisor == nil {
		c.JSON(http.StatusOK, fallback)
		return
	}

	res, err := h.advisor.Commentary(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.Error().Err(err).Msg("summary error")
		c.JSON(http.StatusOK, fallback)
		return
	}
	c.JSON(http.StatusOK, res)
}

type logLevelRequest struct {
	Level string `json:"level" form:"level"`
}

// GetLogLevel godoc
// @Summary      Current log level
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/loglevel [get]
func (h *Handler) GetLogLevel(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"level": strings.ToUpper(logging.Level().String())})
}

// SetLogLevel godoc
// @Summary      Change the log level at runtime
// @Tags         admin
// @Produce      json
// @Param        level  query  string  true  "debug, info, warn, error"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Router       /api/loglevel [post]
func (h *Handler) SetLogLevel(c *gin.Context) {
	var req logLevelRequest
	req.Level = c.Query("level")
	if req.Level == "" && c.Request.ContentLength > 0 {
		_ = c.ShouldBindJSON(&req)
	}

	level, err := logging.SetLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid level"})
		return
	}
	name := strings.ToUpper(level.String())
	h.logger.Info().Str("level", name).Msg("log level changed")
	c.JSON(http.StatusOK, gin.H{"ok": true, "level": name})
}
