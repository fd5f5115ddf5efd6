package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"libcirc/internal/service"
)

// AdminHandler handles operation log access and manual sweep triggers.
type AdminHandler struct {
	audit     service.AuditService
	scheduler service.SchedulerService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(audit service.AuditService, scheduler service.SchedulerService) *AdminHandler {
	return &AdminHandler{audit: audit, scheduler: scheduler}
}

// OperationLogs godoc
// @Summary List recent operation log entries (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries to return (default 100)"
// @Success 200 {array} model.OperationLog
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/operation-logs [get]
func (h *AdminHandler) OperationLogs(c echo.Context) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	logs, err := h.audit.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, logs)
}

// RunReminderSweep godoc
// @Summary Run the due date reminder sweep now (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/sweeps/reminders [post]
func (h *AdminHandler) RunReminderSweep(c echo.Context) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	delivered, err := h.scheduler.RunDueDateReminderSweep(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"delivered": delivered})
}

// RunExpirySweep godoc
// @Summary Run the reservation expiry sweep now (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/sweeps/expirations [post]
func (h *AdminHandler) RunExpirySweep(c echo.Context) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	expired, err := h.scheduler.RunReservationExpirySweep(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"expired": expired})
}
