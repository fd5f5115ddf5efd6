package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libcirc/internal/clock"
	"libcirc/internal/config"
	"libcirc/internal/db"
	"libcirc/internal/logging"
	"libcirc/internal/notify"
	"libcirc/internal/repository"
	"libcirc/internal/service"
)

// tasks runs the housekeeping sweeps: due date reminders and reservation
// expiry. Without -interval it runs both once and exits, which suits cron.
func main() {
	interval := flag.Duration("interval", 0, "run sweeps repeatedly at this interval (e.g. 1h); run once when unset")
	flag.Parse()

	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	store := repository.NewStore(gormDB)
	clk := clock.System{}
	notifier := buildNotifier(cfg, store)

	eligibility := service.NewEligibilityService(store, clk)
	reservationService := service.NewReservationService(store, eligibility, notifier, clk, cfg.ReservationGraceDays)
	schedulerService := service.NewSchedulerService(store, reservationService, notifier, clk, cfg.DueSoonDays)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runSweeps(ctx, schedulerService)
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("tasks shutting down")
			return
		case <-ticker.C:
			runSweeps(ctx, schedulerService)
		}
	}
}

func runSweeps(ctx context.Context, scheduler service.SchedulerService) {
	if delivered, err := scheduler.RunDueDateReminderSweep(ctx); err != nil {
		slog.Error("due date reminder sweep failed", "error", err)
	} else {
		slog.Info("due date reminder sweep done", "delivered", delivered)
	}

	if expired, err := scheduler.RunReservationExpirySweep(ctx); err != nil {
		slog.Error("reservation expiry sweep failed", "error", err)
	} else {
		slog.Info("reservation expiry sweep done", "expired", expired)
	}
}

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
