// Package handler exposes the booking API over HTTP.  Every JSON response
// uses the {success, data, message} envelope the booking form, the admin
// dashboard and the desktop app already understand.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-booking/internal/repository"
	"github.com/iliyamo/table-booking/internal/service"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}

// errorRule maps a sentinel to a status.  When message is empty the error's
// own text is shown to the client.
type errorRule struct {
	target  error
	status  int
	message string
}

// errorRules is matched in order; the first errors.Is hit wins.
var errorRules = []errorRule{
	{service.ErrValidation, http.StatusBadRequest, ""},
	{service.ErrSlotRejected, http.StatusBadRequest, ""},
	{service.ErrCapacityExceeded, http.StatusBadRequest, ""},
	{service.ErrNotFound, http.StatusNotFound, "reservation not found"},
	{service.ErrInvalidTransition, http.StatusConflict, ""},
	{repository.ErrConflict, http.StatusConflict, "settings were changed by someone else; reload and try again"},
	{service.ErrAdmissionLockTaken, http.StatusServiceUnavailable, "the booking system is busy, please try again"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "the request timed out, please try again"},
	{service.ErrPersistence, http.StatusInternalServerError, "could not save reservation"},
}

// writeError renders err with the first matching rule.  Unmatched errors
// are 500s with a generic message; their detail goes to the log only.
func writeError(c echo.Context, log *slog.Logger, err error) error {
	for _, rule := range errorRules {
		if !errors.Is(err, rule.target) {
			continue
		}
		if rule.status >= http.StatusInternalServerError {
			log.Error("request failed",
				slog.String("path", c.Path()),
				slog.Int("status", rule.status),
				slog.Any("err", err))
		}
		msg := rule.message
		if msg == "" {
			msg = err.Error()
		}
		return fail(c, rule.status, msg)
	}
	log.Error("unhandled error", slog.String("path", c.Path()), slog.Any("err", err))
	return fail(c, http.StatusInternalServerError, "internal server error")
}
