package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotel_ops_bot/internal/app"
	"hotel_ops_bot/internal/domain/clock"
	"hotel_ops_bot/internal/domain/notification"
	"hotel_ops_bot/internal/domain/shift"
	"hotel_ops_bot/internal/infra/cache"
	"hotel_ops_bot/internal/infra/config"
	idb "hotel_ops_bot/internal/infra/database"
	"hotel_ops_bot/internal/infra/logger"
	"hotel_ops_bot/internal/infra/scheduler"
	"hotel_ops_bot/internal/infra/telegram"
	"hotel_ops_bot/internal/infra/webhook"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Hotel Ops Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
		"timezone":    cfg.Location.String(),
		"shift_depts": cfg.ShiftDepartments,
	}).Info("Configuration loaded.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if err := idb.RunMigrations(db, logger.Component("migrations")); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database migrations")
	}

	// Initialize Repositories
	employeeRepo := idb.NewPostgresEmployeeRepository(db)
	workItemStore := idb.NewPostgresWorkItemStore(db)
	shiftRepo := idb.NewPostgresShiftRepository(db)
	eventStore := idb.NewPostgresEventStore(db)
	mainLogger.Info("Repositories initialized.")

	schedule, err := config.LoadSchedule(cfg.ShiftScheduleFile)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load shift schedule")
	}

	var shiftCache shift.ActiveCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		defer rdb.Close()
		shiftCache = cache.NewRedisShiftCache(rdb)
		mainLogger.WithField("addr", cfg.RedisAddr).Info("Shift cache enabled.")
	}

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	var webhookChannel notification.Channel
	if cfg.WebhookURL != "" {
		webhookChannel = webhook.NewChannel(cfg.WebhookURL, cfg.WebhookToken)
		mainLogger.Info("Webhook notification channel enabled.")
	}
	gateway := app.NewRouter(logger.Log.WithField("service", "notifications"), telegram.NewTelebotAdapter(bot), webhookChannel)

	// Initialize Services
	clk := clock.System{Location: cfg.Location}
	shiftResolver := app.NewShiftResolver(
		schedule,
		shiftRepo,
		cfg.HandoverDepartments,
		clk,
		shiftCache,
		cfg.ShiftCacheTTL,
		logger.Log.WithField("service", "shifts"),
	)
	shiftFilter := app.NewShiftFilter(shiftResolver, cfg.ShiftDepartments)

	// escalations also reach the ops dashboard when the webhook is configured
	escalationMirror := notification.ChannelDefault
	if webhookChannel != nil {
		escalationMirror = notification.ChannelWebhook
	}

	workItemService := app.NewWorkItemServiceImpl(workItemStore, clk, logger.Log.WithField("service", "workitems"))
	escalationService := app.NewEscalationServiceImpl(
		workItemStore,
		employeeRepo,
		gateway,
		shiftFilter,
		clk,
		cfg.EscalationThreshold,
		cfg.ManagerTelegramID,
		escalationMirror,
		logger.Log.WithField("service", "escalations"),
	)
	alarmDispatcher := app.NewAlarmDispatcherImpl(
		eventStore,
		gateway,
		shiftFilter,
		clk,
		cfg.AlarmResendInterval,
		cfg.AlarmHorizonDays,
		logger.Log.WithField("service", "alarms"),
	)
	historyService := app.NewHistoryService(workItemStore)
	mainLogger.Info("Services initialized.")

	if res, err := shiftResolver.Resolve(ctx); err != nil {
		mainLogger.WithError(err).Warn("Could not resolve the active shift at startup")
	} else {
		mainLogger.WithFields(logrus.Fields{
			"active_shift":      res.Active.Code,
			"time_indicated":    res.TimeIndicated.Code,
			"handover_complete": res.HandoverComplete,
			"pending_reports":   len(res.PendingEmployees),
		}).Info("Active shift resolved.")
	}

	// Register Handlers
	responseHandler := telegram.NewResponseHandler(workItemService, alarmDispatcher, historyService, logger.Component("telegram"))
	telegram.RegisterResponseHandlers(ctx, bot, responseHandler)
	mainLogger.Info("Callback handlers registered.")

	sweepScheduler := scheduler.NewSweepScheduler(
		escalationService,
		alarmDispatcher,
		logger.Log.WithField("service", "scheduler"),
		cfg.Location,
		scheduler.Specs{
			OverdueSweep:    cfg.CronSpecOverdueSweep,
			EscalationSweep: cfg.CronSpecEscalationSweep,
			EventAlarms:     cfg.CronSpecEventAlarms,
		},
	)
	if err := sweepScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start sweep scheduler")
	}

	mainLogger.Info("Application setup complete. Bot and Scheduler are starting...")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	sweepScheduler.Stop()
	bot.Stop()
	cancel()
	mainLogger.Info("Application shut down gracefully.")
}
