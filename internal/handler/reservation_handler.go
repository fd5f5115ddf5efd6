package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"libcirc/internal/service"
)

// ReservationHandler handles reservation queue endpoints.
type ReservationHandler struct {
	reservationService service.ReservationService
	audit              service.AuditService
}

// NewReservationHandler creates a new reservation handler.
func NewReservationHandler(reservationService service.ReservationService, audit service.AuditService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService, audit: audit}
}

// ReservationResponse is a reservation plus its queue position when pending.
type ReservationResponse struct {
	Reservation   interface{} `json:"reservation"`
	QueuePosition *int        `json:"queue_position,omitempty"`
}

// Reserve godoc
// @Summary Reserve a book
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 201 {object} ReservationResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /books/{id}/reserve [post]
func (h *ReservationHandler) Reserve(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	bookID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	reservation, err := h.reservationService.Reserve(c.Request().Context(), claims.UserID, bookID)
	if err != nil {
		return respondError(err)
	}
	position, err := h.reservationService.QueuePosition(c.Request().Context(), reservation.ID)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "reserve", "reservation",
		fmt.Sprintf("reservation=%d book=%d", reservation.ID, bookID), c.RealIP())
	return c.JSON(http.StatusCreated, ReservationResponse{
		Reservation:   reservation,
		QueuePosition: position,
	})
}

// Cancel godoc
// @Summary Cancel a reservation
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} model.Reservation
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	reservationID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	reservation, err := h.reservationService.Cancel(c.Request().Context(), reservationID, claims.UserID, claims.IsAdmin)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "reservation_cancel", "reservation",
		fmt.Sprintf("reservation=%d", reservationID), c.RealIP())
	return c.JSON(http.StatusOK, reservation)
}

// Position godoc
// @Summary Get a reservation's queue position
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /reservations/{id}/position [get]
func (h *ReservationHandler) Position(c echo.Context) error {
	if _, err := currentClaims(c); err != nil {
		return err
	}
	reservationID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	position, err := h.reservationService.QueuePosition(c.Request().Context(), reservationID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"queue_position": position})
}

// MyReservations godoc
// @Summary List the authenticated user's reservations
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Reservation
// @Router /reservations/mine [get]
func (h *ReservationHandler) MyReservations(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	reservations, err := h.reservationService.ListUserReservations(c.Request().Context(), claims.UserID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, reservations)
}

// BookQueue godoc
// @Summary List the pending reservation queue for a book
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {array} model.Reservation
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id}/queue [get]
func (h *ReservationHandler) BookQueue(c echo.Context) error {
	if _, err := currentClaims(c); err != nil {
		return err
	}
	bookID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	queue, err := h.reservationService.ListBookQueue(c.Request().Context(), bookID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, queue)
}
