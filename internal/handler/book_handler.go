package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"libcirc/internal/model"
	"libcirc/internal/repository"
	"libcirc/internal/service"
)

// BookHandler handles catalog endpoints.
type BookHandler struct {
	bookService service.BookService
	audit       service.AuditService
}

// NewBookHandler creates a new book handler.
func NewBookHandler(bookService service.BookService, audit service.AuditService) *BookHandler {
	return &BookHandler{bookService: bookService, audit: audit}
}

// BookRequest represents a create/update book request.
type BookRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Author    string `json:"author" validate:"max=100"`
	Category1 string `json:"category1" validate:"max=50"`
	Category2 string `json:"category2" validate:"max=50"`
	Keywords  string `json:"keywords" validate:"max=200"`
	Location  string `json:"location" validate:"max=100"`
}

func (r *BookRequest) toInput() service.BookInput {
	return service.BookInput{
		Title:     r.Title,
		Author:    r.Author,
		Category1: r.Category1,
		Category2: r.Category2,
		Keywords:  r.Keywords,
		Location:  r.Location,
	}
}

// List godoc
// @Summary Search the catalog
// @Tags books
// @Produce json
// @Security BearerAuth
// @Param q query string false "Free text over title, author, categories and keywords"
// @Param category query string false "Primary category filter"
// @Param status query string false "Status filter" Enums(available, on_loan, reserved, unavailable)
// @Success 200 {array} model.Book
// @Router /books [get]
func (h *BookHandler) List(c echo.Context) error {
	filter := repository.BookSearchFilter{
		Query:     c.QueryParam("q"),
		Category1: c.QueryParam("category"),
		Status:    model.BookStatus(c.QueryParam("status")),
	}
	books, err := h.bookService.Search(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, books)
}

// Get godoc
// @Summary Get a book by id
// @Tags books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} model.Book
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [get]
func (h *BookHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	book, err := h.bookService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, book)
}

// Create godoc
// @Summary Add a book to the catalog (admin)
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BookRequest true "Book data"
// @Success 201 {object} model.Book
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /books [post]
func (h *BookHandler) Create(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.bookService.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "book_create", "book",
		fmt.Sprintf("id=%d title=%s", book.ID, book.Title), c.RealIP())
	return c.JSON(http.StatusCreated, book)
}

// Update godoc
// @Summary Update a book (admin)
// @Tags books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param request body BookRequest true "Book data"
// @Success 200 {object} model.Book
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /books/{id} [put]
func (h *BookHandler) Update(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	book, err := h.bookService.Update(c.Request().Context(), id, req.toInput())
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "book_update", "book",
		fmt.Sprintf("id=%d", id), c.RealIP())
	return c.JSON(http.StatusOK, book)
}

// Delete godoc
// @Summary Delete a book (admin)
// @Tags books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.bookService.Delete(c.Request().Context(), id); err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "book_delete", "book",
		fmt.Sprintf("id=%d", id), c.RealIP())
	return c.JSON(http.StatusOK, map[string]string{"message": "book deleted"})
}

// Withdraw godoc
// @Summary Take a book out of circulation (admin)
// @Tags books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} model.Book
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /books/{id}/withdraw [post]
func (h *BookHandler) Withdraw(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	book, err := h.bookService.Withdraw(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "book_withdraw", "book",
		fmt.Sprintf("id=%d", id), c.RealIP())
	return c.JSON(http.StatusOK, book)
}

// AssignNumbers godoc
// @Summary Backfill book numbers for unnumbered books (admin)
// @Tags books
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Failure 403 {object} errors.ErrorResponse
// @Router /books/assign-numbers [post]
func (h *BookHandler) AssignNumbers(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}
	assigned, err := h.bookService.AssignMissingNumbers(c.Request().Context())
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "book_assign_numbers", "book",
		fmt.Sprintf("assigned=%d", assigned), c.RealIP())
	return c.JSON(http.StatusOK, map[string]int{"assigned": assigned})
}

// ImportCSV godoc
// @Summary Import books from a CSV file (admin)
// @Tags books
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file with title, author, category1, category2, keywords, location columns"
// @Success 200 {object} service.CSVImportResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /books/import [post]
func (h *BookHandler) ImportCSV(c echo.Context) error {
	claims, err := requireAdmin(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing csv file")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable csv file")
	}
	defer file.Close()

	result, err := h.bookService.ImportCSV(c.Request().Context(), file)
	if err != nil {
		return respondError(err)
	}

	h.audit.Record(c.Request().Context(), &claims.UserID, "book_import", "book",
		fmt.Sprintf("created=%d skipped=%d", result.Created, result.Skipped), c.RealIP())
	return c.JSON(http.StatusOK, result)
}

// ExportCSV godoc
// @Summary Export the catalog as CSV (admin)
// @Tags books
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} errors.ErrorResponse
// @Router /books/export [get]
func (h *BookHandler) ExportCSV(c echo.Context) error {
	if _, err := requireAdmin(c); err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="books.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return h.bookService.ExportCSV(c.Request().Context(), c.Response())
}
