package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`
	SchoolName  string `mapstructure:"SCHOOL_NAME"`

	DBDSN         string `mapstructure:"DB_DSN"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`

	SchoolTimezone             string  `mapstructure:"SCHOOL_TIMEZONE"`
	SharedCalendarID           string  `mapstructure:"SHARED_CALENDAR_ID"`
	CalendarBackend            string  `mapstructure:"CALENDAR_BACKEND"`
	GoogleCredentialsFile      string  `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	CalendarRPS                float64 `mapstructure:"CALENDAR_RPS"`
	CalendarBurst              int     `mapstructure:"CALENDAR_BURST"`
	AppointmentDurationMinutes int     `mapstructure:"APPOINTMENT_DURATION_MINUTES"`
	SearchDays                 int     `mapstructure:"SEARCH_DAYS"`
	SearchMaxResults           int     `mapstructure:"SEARCH_MAX_RESULTS"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL"`
	ReminderLead  time.Duration `mapstructure:"REMINDER_LEAD"`

	SendGridAPIKey    string `mapstructure:"SENDGRID_API_KEY"`
	SendGridFromEmail string `mapstructure:"SENDGRID_FROM_EMAIL"`
	SendGridFromName  string `mapstructure:"SENDGRID_FROM_NAME"`

	TwilioAccountSID string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `mapstructure:"TWILIO_FROM_NUMBER"`

	TelegramToken          string `mapstructure:"TELEGRAM_TOKEN"`
	TelegramOperatorChatID int64  `mapstructure:"TELEGRAM_OPERATOR_CHAT_ID"`

	AdminJWTSecret    string        `mapstructure:"ADMIN_JWT_SECRET"`
	AdminUsername     string        `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`
	AdminTokenTTL     time.Duration `mapstructure:"ADMIN_TOKEN_TTL"`

	ReconcileCron        string `mapstructure:"RECONCILE_CRON"`
	ReconcileHorizonDays int    `mapstructure:"RECONCILE_HORIZON_DAYS"`
}

var defaults = map[string]any{
	"ENV":                          "development",
	"LOG_LEVEL":                    "",
	"HTTP_ADDR":                    ":8080",
	"SCHOOL_NAME":                  "Delhi Public School",
	"DB_DSN":                       "",
	"MIGRATIONS_DIR":               ".",
	"SCHOOL_TIMEZONE":              "Asia/Kolkata",
	"SHARED_CALENDAR_ID":           "primary",
	"CALENDAR_BACKEND":             "google",
	"GOOGLE_CREDENTIALS_FILE":      "credentials.json",
	"CALENDAR_RPS":                 5.0,
	"CALENDAR_BURST":               10,
	"APPOINTMENT_DURATION_MINUTES": 30,
	"SEARCH_DAYS":                  7,
	"SEARCH_MAX_RESULTS":           3,
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"LOCK_TTL":                     "30s",
	"REMINDER_LEAD":                "24h",
	"SENDGRID_API_KEY":             "",
	"SENDGRID_FROM_EMAIL":          "",
	"SENDGRID_FROM_NAME":           "School Reception",
	"TWILIO_ACCOUNT_SID":           "",
	"TWILIO_AUTH_TOKEN":            "",
	"TWILIO_FROM_NUMBER":           "",
	"TELEGRAM_TOKEN":               "",
	"TELEGRAM_OPERATOR_CHAT_ID":    0,
	"ADMIN_JWT_SECRET":             "",
	"ADMIN_USERNAME":               "operator",
	"ADMIN_PASSWORD_HASH":          "",
	"ADMIN_TOKEN_TTL":              "12h",
	"RECONCILE_CRON":               "*/15 * * * *",
	"RECONCILE_HORIZON_DAYS":       14,
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	// AutomaticEnv не видит ключи без значения по умолчанию при Unmarshal
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Printf("Config loaded\n")

	return &cfg, nil
}

// Validate проверяет обязательные поля и согласованность значений
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}
	if _, err := time.LoadLocation(c.SchoolTimezone); err != nil {
		return fmt.Errorf("invalid SCHOOL_TIMEZONE %q: %w", c.SchoolTimezone, err)
	}
	switch c.CalendarBackend {
	case "google", "memory":
	default:
		return fmt.Errorf("CALENDAR_BACKEND must be google or memory, got %q", c.CalendarBackend)
	}
	if c.AppointmentDurationMinutes <= 0 {
		return fmt.Errorf("APPOINTMENT_DURATION_MINUTES must be positive")
	}
	if c.CalendarRPS <= 0 {
		return fmt.Errorf("CALENDAR_RPS must be positive")
	}
	return nil
}

// Location часовой пояс школы, в нём сравниваются все времена
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SchoolTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) AppointmentDuration() time.Duration {
	return time.Duration(c.AppointmentDurationMinutes) * time.Minute
}

func (c *Config) ReconcileHorizon() time.Duration {
	return time.Duration(c.ReconcileHorizonDays) * 24 * time.Hour
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
