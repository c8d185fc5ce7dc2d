package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-booking/internal/model"
	"github.com/iliyamo/table-booking/internal/service"
)

// SettingsHandler serves the restaurant configuration.
type SettingsHandler struct {
	store service.SettingsStore
	log   *slog.Logger
}

// NewSettingsHandler returns a handler over store.
func NewSettingsHandler(store service.SettingsStore, log *slog.Logger) *SettingsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsHandler{store: store, log: log}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(c echo.Context) error {
	s, err := h.store.Get(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, &service.PersistenceError{Op: "load settings", Err: err})
	}
	return ok(c, http.StatusOK, s, "")
}

// Put handles PUT /api/settings.  The body must carry the version it was
// read at; a stale version is a 409.
func (h *SettingsHandler) Put(c echo.Context) error {
	var next model.Settings
	if err := c.Bind(&next); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if next.Version < 1 {
		return fail(c, http.StatusBadRequest, "version is required")
	}
	if err := next.Validate(); err != nil {
		return writeError(c, h.log, &service.ValidationError{Problems: []string{err.Error()}})
	}
	stored, err := h.store.Put(c.Request().Context(), next)
	if err != nil {
		return writeError(c, h.log, err)
	}
	h.log.Info("settings updated", slog.Int("version", stored.Version))
	return ok(c, http.StatusOK, stored, "Settings saved")
}
