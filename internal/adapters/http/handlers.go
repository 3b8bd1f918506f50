package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fleetuptime/internal/adapters/csvexport"
	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"
	"fleetuptime/internal/core/ports"
	"fleetuptime/internal/observability"
	"fleetuptime/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	uptimeSvc ports.UptimeService
	cache     ports.ResultCache
	loc       *time.Location
	metrics   *observability.Metrics
	logger    *zap.Logger
	health    HealthCheck
}

// NewHandler constructs a handler that depends on the UptimeService and
// ResultCache interfaces. Dates without a zone are read in loc.
func NewHandler(svc ports.UptimeService, cache ports.ResultCache, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{uptimeSvc: svc, cache: cache, loc: loc, metrics: metrics, logger: logger}
}

// GetUptime godoc
// @Summary Compute device uptime
// @Description Compute the uptime of every reporting device over an explicit range or a preset week, and remember it for export.
// @Tags uptime
// @Produce json
// @Param preset query string false "range, trailing-week or last-monday-week" default(trailing-week)
// @Param start query string false "Range start (YYYY-MM-DD or RFC3339), required for preset=range"
// @Param stop query string false "Range stop, exclusive (YYYY-MM-DD or RFC3339), required for preset=range"
// @Success 200 {object} UptimeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /uptime [get]
func (h *Handler) GetUptime(c *gin.Context) {
	preset, err := domain.ParsePreset(c.Query("preset"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: err.Error()})
		return
	}

	var start, stop time.Time
	if preset == domain.PresetRange {
		if c.Query("start") == "" || c.Query("stop") == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "start and stop are required for preset=range"})
			return
		}
		if start, err = utils.ParseDateOrTime(c.Query("start"), h.loc); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid start: " + err.Error()})
			return
		}
		if stop, err = utils.ParseDateOrTime(c.Query("stop"), h.loc); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid stop: " + err.Error()})
			return
		}
	}

	res, err := h.uptimeSvc.Resolve(c.Request.Context(), preset, start, stop)
	if err != nil {
		switch {
		case errors.Is(err, coreerrors.ErrInvalidRange), errors.Is(err, coreerrors.ErrUnknownPreset):
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: err.Error()})
		case errors.Is(err, coreerrors.ErrQuery):
			c.JSON(http.StatusBadGateway, ErrorResponse{Msg: "telemetry store unavailable"})
		default:
			h.logger.Error("uptime computation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Msg: "internal error"})
		}
		return
	}

	if id := sessionID(c); id != "" {
		if err := h.cache.Save(id, res); err != nil {
			h.logger.Warn("failed to cache uptime result", zap.String("session", id), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, newUptimeResponse(res))
}

// GetChart godoc
// @Summary Uptime bar-chart series
// @Description Return the last computed result of this session as a bar-chart series.
// @Tags uptime
// @Produce json
// @Param include_total query bool false "Include the total_average bar"
// @Success 200 {array} ChartPoint
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /uptime/chart [get]
func (h *Handler) GetChart(c *gin.Context) {
	includeTotal := false
	if raw := c.Query("include_total"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "include_total must be a boolean"})
			return
		}
		includeTotal = v
	}

	res, ok := h.cachedResult(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newChartSeries(res, includeTotal))
}

// GetExport godoc
// @Summary Export uptime as CSV
// @Description Download the last computed result of this session. Never recomputes.
// @Tags uptime
// @Produce text/csv
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /uptime/export [get]
func (h *Handler) GetExport(c *gin.Context) {
	res, ok := h.cachedResult(c)
	if !ok {
		h.metrics.Exported("nothing_cached")
		return
	}

	var buf bytes.Buffer
	if err := csvexport.Write(&buf, res); err != nil {
		h.metrics.Exported("error")
		h.logger.Error("csv export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Msg: "internal error"})
		return
	}

	h.metrics.Exported("ok")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvexport.FileName(res.Range)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GetHealth godoc
// @Summary Liveness and store reachability
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) GetHealth(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Msg: err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) cachedResult(c *gin.Context) (*domain.UptimeResult, bool) {
	id := sessionID(c)
	if id == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Msg: "nothing to export"})
		return nil, false
	}
	res, err := h.cache.Get(id)
	if err != nil {
		if errors.Is(err, coreerrors.ErrNoCachedResult) {
			c.JSON(http.StatusNotFound, ErrorResponse{Msg: "nothing to export"})
			return nil, false
		}
		h.logger.Error("failed to read cached result", zap.String("session", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Msg: "internal error"})
		return nil, false
	}
	return res, true
}
