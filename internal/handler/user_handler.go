package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"libcirc/internal/service"
)

// UserHandler handles user administration endpoints.
type UserHandler struct {
	userService service.UserService
	audit       service.AuditService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService, audit service.AuditService) *UserHandler {
	return &UserHandler{userService: userService, audit: audit}
}

// CreateUserRequest represents a user registration request.
type CreateUserRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=50"`
	Password     string `json:"password" validate:"required,min=8"`
	Name         string `json:"name" validate:"required,max=100"`
	Email        string `json:"email" validate:"required,email"`
	IsAdmin      bool   `json:"is_admin"`
	MaxLoanLimit int    `json:"max_loan_limit" validate:"omitempty,min=1"`
}

// UpdateUserRequest represents a user update request; omitted fields are left
// unchanged.
type UpdateUserRequest struct {
	Password     *string `json:"password,omitempty" validate:"omitempty,min=8"`
	Name         *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	IsAdmin      *bool   `json:"is_admin,omitempty"`
	MaxLoanLimit *int    `json:"max_loan_limit,omitempty" validate:"omitempty,min=1"`
}

// List godoc
// @Summary List all users (admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	users, err := h.userService.List(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// Get godoc
// @Summary Get a user by id (admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Create godoc
// @Summary Register a user (admin)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User data"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userService.Create(c.Request().Context(), service.CreateUserInput{
		Username:     req.Username,
		Password:     req.Password,
		Name:         req.Name,
		Email:        req.Email,
		IsAdmin:      req.IsAdmin,
		MaxLoanLimit: req.MaxLoanLimit,
	})
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "user_create", "user",
		fmt.Sprintf("id=%d username=%s", user.ID, user.Username), c.RealIP())
	return c.JSON(http.StatusCreated, user)
}

// Update godoc
// @Summary Update a user (admin)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to update"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userService.Update(c.Request().Context(), id, service.UpdateUserInput{
		Password:     req.Password,
		Name:         req.Name,
		Email:        req.Email,
		IsAdmin:      req.IsAdmin,
		MaxLoanLimit: req.MaxLoanLimit,
	})
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "user_update", "user",
		fmt.Sprintf("id=%d", id), c.RealIP())
	return c.JSON(http.StatusOK, user)
}

// Delete godoc
// @Summary Delete a user (admin)
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.userService.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "user_delete", "user",
		fmt.Sprintf("id=%d", id), c.RealIP())
	return c.JSON(http.StatusOK, map[string]string{"message": "user deleted"})
}
