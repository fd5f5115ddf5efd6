package main

import (
	"log"
	"net/http"

	_ "libcirc/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"libcirc/internal/auth"
	"libcirc/internal/cache"
	"libcirc/internal/clock"
	"libcirc/internal/config"
	"libcirc/internal/db"
	"libcirc/internal/handler"
	"libcirc/internal/logging"
	"libcirc/internal/model"
	"libcirc/internal/notify"
	"libcirc/internal/repository"
	"libcirc/internal/router"
	"libcirc/internal/service"
)

// @title Library Circulation API
// @version 1.0
// @description Library management API with loans, FIFO reservations, due date reminders and JWT authentication.
// @host localhost:5000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Book{},
		&model.LoanHistory{},
		&model.Reservation{},
		&model.OperationLog{},
		&model.Announcement{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	store := repository.NewStore(gormDB)
	clk := clock.System{}

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	notifier := buildNotifier(cfg, store)

	eligibility := service.NewEligibilityService(store, clk)
	loanService := service.NewLoanService(store, eligibility, notifier, clk, cfg.DefaultLoanDays)
	reservationService := service.NewReservationService(store, eligibility, notifier, clk, cfg.ReservationGraceDays)
	schedulerService := service.NewSchedulerService(store, reservationService, notifier, clk, cfg.DueSoonDays)
	authService := service.NewAuthService(store, jwtService, tokenStore)
	userService := service.NewUserService(store)
	bookService := service.NewBookService(store, cacheClient, clk)
	announcementService := service.NewAnnouncementService(store)
	auditService := service.NewAuditService(store, clk)

	authHandler := handler.NewAuthHandler(authService, userService, auditService)
	userHandler := handler.NewUserHandler(userService, auditService)
	bookHandler := handler.NewBookHandler(bookService, auditService)
	loanHandler := handler.NewLoanHandler(loanService, auditService)
	reservationHandler := handler.NewReservationHandler(reservationService, auditService)
	announcementHandler := handler.NewAnnouncementHandler(announcementService, auditService)
	adminHandler := handler.NewAdminHandler(auditService, schedulerService)

	router.Register(
		e,
		cfg,
		authHandler,
		userHandler,
		bookHandler,
		loanHandler,
		reservationHandler,
		announcementHandler,
		adminHandler,
	)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}

// buildNotifier assembles the configured delivery channels. With nothing
// configured it degrades to a no-op so the lifecycle still works in dev.
func buildNotifier(cfg *config.Config, store repository.Store) notify.Notifier {
	var sinks []notify.Notifier
	if cfg.SlackEnabled {
		if slack := notify.NewSlackNotifier(cfg.SlackBotToken, store.Users()); slack != nil {
			sinks = append(sinks, slack)
		}
	}
	if webhook := notify.NewWebhookNotifier(cfg.MailWebhookURL); webhook != nil {
		sinks = append(sinks, webhook)
	}
	if len(sinks) == 0 {
		return notify.Noop{}
	}
	return notify.Multi(sinks)
}
