package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken     string
	DatabaseURL       string
	AdminTelegramID   int64
	ManagerTelegramID int64
	LogLevel          string
	Environment       string
	LogFile           string // empty means stdout only
	Location          *time.Location

	RedisAddr     string // empty disables the shift cache
	RedisPassword string
	RedisDB       int
	ShiftCacheTTL time.Duration

	WebhookURL   string // empty disables the webhook channel
	WebhookToken string

	ShiftScheduleFile   string
	HandoverDepartments []string
	ShiftDepartments    []string // only on-shift staff of these hear alarms and escalations

	EscalationThreshold time.Duration
	AlarmResendInterval time.Duration
	AlarmHorizonDays    int

	CronSpecOverdueSweep    string
	CronSpecEscalationSweep string
	CronSpecEventAlarms     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	managerIDStr := os.Getenv("MANAGER_TELEGRAM_ID")
	if managerIDStr == "" {
		return nil, fmt.Errorf("MANAGER_TELEGRAM_ID is not set")
	}
	cfg.ManagerTelegramID, err = strconv.ParseInt(managerIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MANAGER_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.LogFile = os.Getenv("LOG_FILE")

	cfg.Location = time.Local
	if tz := os.Getenv("HOTEL_TIMEZONE"); tz != "" {
		cfg.Location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid HOTEL_TIMEZONE: %w", err)
		}
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ShiftCacheTTL, err = durationEnv("SHIFT_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}

	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
	cfg.WebhookToken = os.Getenv("WEBHOOK_TOKEN")

	cfg.ShiftScheduleFile = os.Getenv("SHIFT_SCHEDULE_FILE")
	cfg.HandoverDepartments = listEnv("HANDOVER_DEPARTMENTS", []string{"Reception", "Restaurant"})
	cfg.ShiftDepartments = listEnv("SHIFT_DEPARTMENTS", []string{"Reception", "Restaurant", "Kitchen"})

	if cfg.EscalationThreshold, err = durationEnv("ESCALATION_THRESHOLD", 4*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AlarmResendInterval, err = durationEnv("ALARM_RESEND_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.AlarmHorizonDays, err = intEnv("ALARM_HORIZON_DAYS", 2); err != nil {
		return nil, err
	}
	if cfg.AlarmHorizonDays < 0 {
		return nil, fmt.Errorf("invalid ALARM_HORIZON_DAYS: must not be negative")
	}

	cfg.CronSpecOverdueSweep = os.Getenv("CRON_SPEC_OVERDUE_SWEEP")
	if cfg.CronSpecOverdueSweep == "" {
		cfg.CronSpecOverdueSweep = "5 * * * *" // Default: hourly at :05
	}
	cfg.CronSpecEscalationSweep = os.Getenv("CRON_SPEC_ESCALATION_SWEEP")
	if cfg.CronSpecEscalationSweep == "" {
		cfg.CronSpecEscalationSweep = "10 * * * *" // Default: hourly at :10
	}
	cfg.CronSpecEventAlarms = os.Getenv("CRON_SPEC_EVENT_ALARMS")
	if cfg.CronSpecEventAlarms == "" {
		cfg.CronSpecEventAlarms = "0 * * * *" // Default: top of every hour
	}

	return cfg, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func listEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
