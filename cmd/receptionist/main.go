package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/receptionist/internal/api"
	"github.com/Freeeeeet/receptionist/internal/app"
	"github.com/Freeeeeet/receptionist/internal/calendar"
	"github.com/Freeeeeet/receptionist/internal/config"
	"github.com/Freeeeeet/receptionist/internal/controller"
	"github.com/Freeeeeet/receptionist/internal/lock"
	"github.com/Freeeeeet/receptionist/internal/notify"
	"github.com/Freeeeeet/receptionist/internal/reminder"
	"github.com/Freeeeeet/receptionist/internal/repository"
	"github.com/Freeeeeet/receptionist/internal/service"
	"github.com/Freeeeeet/receptionist/migrations"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	// receptionist admin-token -subject operator -ttl 720h
	// receptionist hash-password <password>
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "admin-token":
			if err := issueToken(cfg, os.Args[2:]); err != nil {
				logger.Fatal("Failed to issue admin token", zap.Error(err))
			}
			return
		case "hash-password":
			if len(os.Args) < 3 {
				logger.Fatal("Usage: receptionist hash-password <password>")
			}
			hash, err := api.HashPassword(os.Args[2])
			if err != nil {
				logger.Fatal("Failed to hash password", zap.Error(err))
			}
			fmt.Println(hash)
			return
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Receptionist stopped with error", zap.Error(err))
	}
	logger.Info("Receptionist stopped")
}

func issueToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("admin-token", flag.ContinueOnError)
	subject := fs.String("subject", "operator", "token subject")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := api.IssueAdminToken(cfg.AdminJWTSecret, *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loc := cfg.Location()

	logger.Info("Starting receptionist",
		zap.String("environment", cfg.Environment),
		zap.String("school", cfg.SchoolName),
		zap.String("timezone", loc.String()),
		zap.String("calendar_backend", cfg.CalendarBackend))

	// База данных
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("✅ Connected to database")

	migrator, err := app.NewMigrator(pool, migrations.FS, cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		return err
	}
	migrator.Close()

	// Календарь
	var provider calendar.Provider
	switch cfg.CalendarBackend {
	case "memory":
		logger.Warn("Using in-memory calendar, events are lost on restart")
		provider = calendar.NewMemoryProvider(true)
	default:
		google, err := calendar.NewGoogleProvider(ctx, cfg.GoogleCredentialsFile, loc, logger)
		if err != nil {
			return err
		}
		provider = google
	}
	provider = calendar.NewRateLimited(provider, cfg.CalendarRPS, cfg.CalendarBurst)

	// Репозитории
	appointmentRepo := repository.NewAppointmentRepository(pool)
	callRepo := repository.NewCallRepository(pool)
	teacherRepo := repository.NewTeacherRepository(pool)

	// Сервисы
	search := service.SearchOptions{DaysToCheck: cfg.SearchDays, MaxResults: cfg.SearchMaxResults}
	checker := service.NewAvailabilityChecker(provider, logger)
	slotSearch := service.NewSlotSearch(checker, service.DefaultSlotTemplate(), loc, logger)
	schedulingService := service.NewSchedulingService(checker, slotSearch, provider, appointmentRepo, teacherRepo, service.SchedulingConfig{
		SharedCalendarID: cfg.SharedCalendarID,
		DefaultDuration:  cfg.AppointmentDuration(),
		Location:         loc,
		Search:           search,
	}, logger)
	callService := service.NewCallService(callRepo, logger)
	weekOverview := service.NewWeekOverview(schedulingService, appointmentRepo)

	// Каналы уведомлений; ненастроенный канал остаётся nil-интерфейсом
	var (
		emailChannel notify.EmailChannel
		smsChannel   notify.SMSChannel
		alertChannel notify.AlertChannel
		reporter     service.OrphanReporter
		telegram     *bot.Bot
	)
	if cfg.SendGridAPIKey != "" {
		emailChannel = notify.NewEmailSender(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName, logger)
	}
	if cfg.TwilioAccountSID != "" {
		smsChannel = notify.NewSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	}
	if cfg.TelegramToken != "" {
		telegram, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		alerter := notify.NewOperatorAlerter(telegram, cfg.TelegramOperatorChatID, logger)
		alertChannel = alerter
		reporter = alerter
	}

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		SchoolName:     cfg.SchoolName,
		OrganizerName:  cfg.SendGridFromName,
		OrganizerEmail: cfg.SendGridFromEmail,
	}, emailChannel, smsChannel, alertChannel, logger)

	reconcileService := service.NewReconcileService(provider, appointmentRepo, teacherRepo, reporter,
		cfg.SharedCalendarID, cfg.ReconcileHorizon(), logger)

	// Блокировка учителя и очередь напоминаний
	var locker lock.Locker = lock.NopLocker{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis is not reachable, teacher locks will be skipped until it recovers", zap.Error(err))
		}
		locker = lock.NewRedisLocker(client, cfg.LockTTL, logger)

		if smsChannel != nil {
			redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
			queue := asynq.NewClient(redisOpt)
			defer queue.Close()
			dispatcher.WithReminders(reminder.NewScheduler(queue, cfg.ReminderLead, logger))

			worker := reminder.NewWorker(redisOpt, reminder.NewHandler(appointmentRepo, smsChannel, loc, logger), logger)
			if err := worker.Start(); err != nil {
				return err
			}
			defer worker.Shutdown()
		}
	} else {
		logger.Warn("REDIS_ADDR is not set, concurrent calls for one teacher are not serialized")
	}

	// Фоновая сверка
	scheduler := app.NewScheduler(reconcileService, cfg.ReconcileCron, logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	// Бот оператора
	if telegram != nil {
		botController := controller.NewBotController(telegram, controller.OperatorDeps{
			ChatID:       cfg.TelegramOperatorChatID,
			Appointments: appointmentRepo,
			Reconciler:   reconcileService,
			Weeks:        weekOverview,
			Location:     loc,
		}, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Failed to register bot commands", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	// HTTP
	adminLogin := api.AdminLogin{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.AdminJWTSecret,
		TokenTTL:     cfg.AdminTokenTTL,
	}
	handler := api.NewHandler(api.Deps{
		Scheduling:   schedulingService,
		Calls:        callService,
		Teachers:     teacherRepo,
		Appointments: appointmentRepo,
		Reconciler:   reconcileService,
		Notifier:     dispatcher,
		Weeks:        weekOverview,
		Locker:       locker,
		Admin:        adminLogin,
		SchoolName:   cfg.SchoolName,
		Location:     loc,
		Search:       search,
	}, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, cfg.AdminJWTSecret, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
