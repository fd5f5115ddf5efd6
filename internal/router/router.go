package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"libcirc/internal/auth"
	"libcirc/internal/config"
	"libcirc/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	loanHandler *handler.LoanHandler,
	reservationHandler *handler.ReservationHandler,
	announcementHandler *handler.AnnouncementHandler,
	adminHandler *handler.AdminHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	}))

	secured.GET("/me", authHandler.Me)

	// Catalog
	secured.GET("/books", bookHandler.List)
	secured.GET("/books/:id", bookHandler.Get)
	secured.POST("/books", bookHandler.Create)
	secured.PUT("/books/:id", bookHandler.Update)
	secured.DELETE("/books/:id", bookHandler.Delete)
	secured.POST("/books/:id/withdraw", bookHandler.Withdraw)
	secured.POST("/books/assign-numbers", bookHandler.AssignNumbers)
	secured.POST("/books/import", bookHandler.ImportCSV)
	secured.GET("/books/export", bookHandler.ExportCSV)

	// Circulation
	secured.POST("/books/:id/borrow", loanHandler.Borrow)
	secured.POST("/loans/:id/return", loanHandler.Return)
	secured.POST("/loans/:id/extend", loanHandler.Extend)
	secured.GET("/loans/mine", loanHandler.MyLoans)
	secured.GET("/loans/overdue", loanHandler.Overdue)

	// Reservations
	secured.POST("/books/:id/reserve", reservationHandler.Reserve)
	secured.GET("/books/:id/queue", reservationHandler.BookQueue)
	secured.DELETE("/reservations/:id", reservationHandler.Cancel)
	secured.GET("/reservations/:id/position", reservationHandler.Position)
	secured.GET("/reservations/mine", reservationHandler.MyReservations)

	// Announcements
	secured.GET("/announcements", announcementHandler.List)
	secured.POST("/announcements", announcementHandler.Create)
	secured.PUT("/announcements/:id", announcementHandler.Update)
	secured.DELETE("/announcements/:id", announcementHandler.Delete)

	// User administration
	secured.GET("/users", userHandler.List)
	secured.GET("/users/:id", userHandler.Get)
	secured.POST("/users", userHandler.Create)
	secured.PUT("/users/:id", userHandler.Update)
	secured.DELETE("/users/:id", userHandler.Delete)

	// Operation logs and manual sweeps
	secured.GET("/admin/operation-logs", adminHandler.OperationLogs)
	secured.POST("/admin/sweeps/reminders", adminHandler.RunReminderSweep)
	secured.POST("/admin/sweeps/expirations", adminHandler.RunExpirySweep)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
