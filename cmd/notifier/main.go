package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	notifhandler "calremind/internal/api/handlers/notification"
	remhandler "calremind/internal/api/handlers/reminder"
	"calremind/internal/api/router"
	"calremind/internal/api/server"
	"calremind/internal/config"
	"calremind/internal/hub"
	eventrepo "calremind/internal/repository/event"
	notifrepo "calremind/internal/repository/notification"
	remrepo "calremind/internal/repository/reminder"
	userrepo "calremind/internal/repository/user"
	"calremind/internal/service/dispatcher"
	notifsvc "calremind/internal/service/notification"
	remsvc "calremind/internal/service/reminder"
	"calremind/internal/service/scheduler"
	"calremind/internal/worker"
	"calremind/pkg/email"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	emailClient := email.NewClient(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.From,
	)
	if !emailClient.Configured() {
		zlog.Logger.Warn().Msg("email transport not configured, email deliveries will be skipped")
	}

	ws := hub.New()

	notifications := notifrepo.NewRepository(db)
	reminders := remrepo.NewRepository(db)
	events := eventrepo.NewRepository(db)
	users := userrepo.NewRepository(db)

	schedulerSvc := scheduler.NewService(notifications, events)
	reminderSvc := remsvc.NewService(reminders, events, schedulerSvc, cfg.Reminders.DefaultMinutesBefore)
	querySvc := notifsvc.NewService(notifications, rdb)

	dispatcherSvc := dispatcher.NewService(notifications, events, users, ws, emailClient, rdb, dispatcher.Options{
		Workers:     cfg.Dispatch.Workers,
		ItemTimeout: cfg.Dispatch.ItemTimeout,
		MaxAttempts: cfg.Dispatch.MaxAttempts,
		Retry:       cfg.Retry,
	})

	poller := worker.NewPoller(dispatcherSvc, cfg.Dispatch.Interval)

	go func() {
		if err := poller.Run(ctx); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to run dispatch loop")
		}
	}()

	nh := notifhandler.NewHandler(querySvc, cfg)
	rh := remhandler.NewHandler(reminderSvc, val)

	r := router.New(nh, rh, ws)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}

	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Error().Err(err).Int("slave", i).Msg("failed to close slave DB")
		}
	}
}
