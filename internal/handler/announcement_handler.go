package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"libcirc/internal/model"
	"libcirc/internal/service"
)

// AnnouncementHandler handles announcement endpoints.
type AnnouncementHandler struct {
	announcementService service.AnnouncementService
	audit               service.AuditService
}

// NewAnnouncementHandler creates a new announcement handler.
func NewAnnouncementHandler(announcementService service.AnnouncementService, audit service.AuditService) *AnnouncementHandler {
	return &AnnouncementHandler{announcementService: announcementService, audit: audit}
}

// AnnouncementRequest represents a create/update announcement request.
type AnnouncementRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high"`
}

// List godoc
// @Summary List announcements, highest priority first
// @Tags announcements
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Announcement
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c echo.Context) error {
	announcements, err := h.announcementService.List(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, announcements)
}

// Create godoc
// @Summary Post an announcement (admin)
// @Tags announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AnnouncementRequest true "Announcement data"
// @Success 201 {object} model.Announcement
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req AnnouncementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	announcement, err := h.announcementService.Create(c.Request().Context(), service.AnnouncementInput{
		Title:    req.Title,
		Body:     req.Body,
		Priority: model.AnnouncementPriority(req.Priority),
	}, claims.UserID)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "announcement_create", "announcement",
		fmt.Sprintf("id=%d", announcement.ID), c.RealIP())
	return c.JSON(http.StatusCreated, announcement)
}

// Update godoc
// @Summary Update an announcement (admin)
// @Tags announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Announcement ID"
// @Param request body AnnouncementRequest true "Announcement data"
// @Success 200 {object} model.Announcement
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req AnnouncementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	announcement, err := h.announcementService.Update(c.Request().Context(), id, service.AnnouncementInput{
		Title:    req.Title,
		Body:     req.Body,
		Priority: model.AnnouncementPriority(req.Priority),
	})
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "announcement_update", "announcement",
		fmt.Sprintf("id=%d", id), c.RealIP())
	return c.JSON(http.StatusOK, announcement)
}

// Delete godoc
// @Summary Delete an announcement (admin)
// @Tags announcements
// @Produce json
// @Security BearerAuth
// @Param id path int true "Announcement ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.announcementService.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "announcement_delete", "announcement",
		fmt.Sprintf("id=%d", id), c.RealIP())
	return c.JSON(http.StatusOK, map[string]string{"message": "announcement deleted"})
}
