package dlq

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/avoqado/possync/internal/redis"
)

// Mirror is the slice of the dead-letter mirror the route needs.
type Mirror interface {
	List(ctx context.Context, count int64) ([]redis.DLQEntry, error)
	Count(ctx context.Context) (int64, error)
}

type handler struct {
	mirror Mirror
	logger ectologger.Logger
}

// Register registers dead-letter inspection routes
func Register(g *echo.Group, mirror Mirror, logger ectologger.Logger) {
	h := &handler{mirror: mirror, logger: logger}
	g.GET("/deadletters", h.list)
}

// list returns the most recent dead-lettered events
func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	count := int64(100)
	if raw := c.QueryParam("count"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "count must be a positive integer",
			})
		}
		count = parsed
	}

	entries, err := h.mirror.List(ctx, count)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list dead letters")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list dead letters",
		})
	}

	total, err := h.mirror.Count(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to count dead letters")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to count dead letters",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
		"total":   total,
	})
}
