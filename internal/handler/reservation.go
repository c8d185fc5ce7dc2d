package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/repository"
	"github.com/iliyamo/table-booking/internal/service"
	"github.com/iliyamo/table-booking/internal/utils"
)

// Admitter creates reservations under capacity control.
type Admitter interface {
	Create(ctx context.Context, req service.CreateRequest) (*model.Reservation, error)
}

// Lifecycle changes existing reservations.
type Lifecycle interface {
	Update(ctx context.Context, id string, patch service.ReservationPatch) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) (*model.Reservation, error)
	Remind(ctx context.Context, id string) (*model.Reservation, error)
}

// ReservationReader serves listings and lookups.
type ReservationReader interface {
	Find(ctx context.Context, f repository.ReservationFilter) ([]*model.Reservation, error)
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
}

// ReservationHandler serves /api/reservations.
type ReservationHandler struct {
	admission Admitter
	lifecycle Lifecycle
	reader    ReservationReader
	log       *slog.Logger
}

// NewReservationHandler panics if a dependency is missing.
func NewReservationHandler(a Admitter, l Lifecycle, r ReservationReader, log *slog.Logger) *ReservationHandler {
	if a == nil || l == nil || r == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReservationHandler{admission: a, lifecycle: l, reader: r, log: log}
}

// Create handles POST /api/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req service.CreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	r, err := h.admission.Create(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, http.StatusCreated, r, "Reservation created successfully")
}

// List handles GET /api/reservations?date=&status=, sorted by date then time.
func (h *ReservationHandler) List(c echo.Context) error {
	var f repository.ReservationFilter
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := utils.ParseCalendarDate(raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, err.Error())
		}
		f.Date = &d
	}
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		st, valid := model.ParseStatus(raw)
		if !valid {
			return fail(c, http.StatusBadRequest, "status must be one of pending, confirmed, cancelled, completed")
		}
		f.Status = st
	}
	list, err := h.reader.Find(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.log, &service.PersistenceError{Op: "list reservations", Err: err})
	}
	return ok(c, http.StatusOK, list, "")
}

// Get handles GET /api/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id := c.Param("id")
	r, err := h.reader.FindByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return writeError(c, h.log, &service.NotFoundError{ID: id})
		}
		return writeError(c, h.log, &service.PersistenceError{Op: "get reservation", Err: err})
	}
	return ok(c, http.StatusOK, r, "")
}

// Update handles PUT /api/reservations/:id.  Capacity is not rechecked.
func (h *ReservationHandler) Update(c echo.Context) error {
	var patch service.ReservationPatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	r, err := h.lifecycle.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, http.StatusOK, r, "Reservation updated")
}

// Cancel handles DELETE /api/reservations/:id.  The record is kept with
// status cancelled.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	r, err := h.lifecycle.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, http.StatusOK, r, "Reservation cancelled")
}
