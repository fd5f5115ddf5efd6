package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	liberr "libcirc/internal/errors"
	"libcirc/internal/service"
)

// LoanHandler handles the borrow / return / extend endpoints.
type LoanHandler struct {
	loanService service.LoanService
	audit       service.AuditService
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(loanService service.LoanService, audit service.AuditService) *LoanHandler {
	return &LoanHandler{loanService: loanService, audit: audit}
}

// BorrowRequest represents a borrow request. DueDate is optional; when unset
// the server applies the default loan period.
type BorrowRequest struct {
	DueDate *time.Time `json:"due_date,omitempty"`
}

// ExtendRequest represents a loan extension request.
type ExtendRequest struct {
	Weeks int `json:"weeks" validate:"required,min=1,max=2"`
}

// Borrow godoc
// @Summary Borrow a book
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param request body BorrowRequest false "Optional due date"
// @Success 201 {object} model.LoanHistory
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /books/{id}/borrow [post]
func (h *LoanHandler) Borrow(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	bookID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req BorrowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	loan, err := h.loanService.Borrow(c.Request().Context(), claims.UserID, bookID, req.DueDate)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "borrow", "loan",
		fmt.Sprintf("loan=%d book=%d", loan.ID, bookID), c.RealIP())
	return c.JSON(http.StatusCreated, loan)
}

// Return godoc
// @Summary Return a borrowed book
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} model.LoanHistory
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id}/return [post]
func (h *LoanHandler) Return(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	loanID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.authorizeLoanActor(c, loanID, claims.UserID, claims.IsAdmin); err != nil {
		return err
	}

	loan, err := h.loanService.Return(c.Request().Context(), loanID)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "return", "loan",
		fmt.Sprintf("loan=%d book=%d", loan.ID, loan.BookID), c.RealIP())
	return c.JSON(http.StatusOK, loan)
}

// Extend godoc
// @Summary Extend a loan by 1 or 2 weeks
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param request body ExtendRequest true "Extension length"
// @Success 200 {object} model.LoanHistory
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /loans/{id}/extend [post]
func (h *LoanHandler) Extend(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	loanID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ExtendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.authorizeLoanActor(c, loanID, claims.UserID, claims.IsAdmin); err != nil {
		return err
	}

	loan, err := h.loanService.Extend(c.Request().Context(), loanID, req.Weeks)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "extend", "loan",
		fmt.Sprintf("loan=%d weeks=%d", loan.ID, req.Weeks), c.RealIP())
	return c.JSON(http.StatusOK, loan)
}

// MyLoans godoc
// @Summary List the authenticated user's loans
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param open query bool false "Only open loans"
// @Success 200 {array} model.LoanHistory
// @Router /loans/mine [get]
func (h *LoanHandler) MyLoans(c echo.Context) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}
	loans, err := h.loanService.ListUserLoans(c.Request().Context(), claims.UserID, c.QueryParam("open") == "true")
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// Overdue godoc
// @Summary List all overdue loans (admin)
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.LoanHistory
// @Failure 403 {object} errors.ErrorResponse
// @Router /loans/overdue [get]
func (h *LoanHandler) Overdue(c echo.Context) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}
	loans, err := h.loanService.ListOverdueLoans(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

// authorizeLoanActor allows the borrower themselves or an admin.
func (h *LoanHandler) authorizeLoanActor(c echo.Context, loanID, actorID uint, actorIsAdmin bool) error {
	if actorIsAdmin {
		return nil
	}
	loan, err := h.loanService.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return respondError(err)
	}
	if loan.BorrowerID == nil || *loan.BorrowerID != actorID {
		return respondError(liberr.ErrForbidden)
	}
	return nil
}
