package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/service"
	"github.com/iliyamo/table-booking/internal/utils"
)

// OccupancyReporter is implemented by *service.Ledger.
type OccupancyReporter interface {
	Occupancy(ctx context.Context, date time.Time, source model.Source) ([]service.Occupancy, error)
}

// OccupancyHandler serves the dashboard's per-service load view.
type OccupancyHandler struct {
	ledger OccupancyReporter
	clock  utils.Clock
	log    *slog.Logger
}

// NewOccupancyHandler returns a handler; clock decides "today".
func NewOccupancyHandler(l OccupancyReporter, clock utils.Clock, log *slog.Logger) *OccupancyHandler {
	if log == nil {
		log = slog.Default()
	}
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &OccupancyHandler{ledger: l, clock: clock, log: log}
}

type occupancyView struct {
	Date     string              `json:"date"`
	Source   model.Source        `json:"source"`
	Services []service.Occupancy `json:"services"`
}

// Get handles GET /api/occupancy?date=&source=.  Date defaults to today in
// the restaurant's zone and source to website.
func (h *OccupancyHandler) Get(c echo.Context) error {
	date := utils.CalendarDay(h.clock.Now())
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := utils.ParseCalendarDate(raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		date = d
	}
	source := model.SourceWebsite
	if raw := strings.TrimSpace(c.QueryParam("source")); raw != "" {
		s, valid := model.ParseSource(raw)
		if !valid {
			return fail(c, http.StatusBadRequest, "unknown source")
		}
		source = s
	}
	occ, err := h.ledger.Occupancy(c.Request().Context(), date, source)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, http.StatusOK, occupancyView{
		Date:     date.Format("2006-01-02"),
		Source:   source,
		Services: occ,
	}, "")
}
