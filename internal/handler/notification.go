package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Reminder handles POST /api/notifications/reminder/:id.  The reminder is
// queued; delivery happens in the background.
func (h *ReservationHandler) Reminder(c echo.Context) error {
	r, err := h.lifecycle.Remind(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, http.StatusAccepted, r, "Reminder queued")
}
