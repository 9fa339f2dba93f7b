package connections

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/avoqado/possync/pkg/models"
)

// VenueLister is the slice of the venue repository the route needs.
type VenueLister interface {
	ListConnectionStatuses(ctx context.Context) ([]models.VenueConnectionListing, error)
}

type handler struct {
	venues VenueLister
	logger ectologger.Logger
}

// Register registers connection status routes
func Register(g *echo.Group, venues VenueLister, logger ectologger.Logger) {
	h := &handler{venues: venues, logger: logger}
	g.GET("/connections", h.list)
}

// list returns per-venue connection health for the dashboard
func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	listings, err := h.venues.ListConnectionStatuses(ctx)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to list connection statuses")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list connection statuses",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"connections": listings,
		"count":       len(listings),
	})
}
