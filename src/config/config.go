package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

const DATE_FORMAT = "2006-01-02"

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone)
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Mode         string
	Currency     string
	BrandName    string
	ReturnURL    string
	CancelURL    string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

func (c PayPalConfig) IsLive() bool {
	return c.Mode == "live"
}

// CallBudget is the longest one provider operation can run with every retry
// spent: each attempt's timeout plus the doubling waits between them.
func (c PayPalConfig) CallBudget() time.Duration {
	attempts := max(c.MaxAttempts, 1)
	total := time.Duration(attempts) * c.Timeout
	wait := c.RetryBackoff
	for i := 1; i < attempts; i++ {
		total += wait
		wait *= 2
	}
	return total
}

type BookingConfig struct {
	HoldTTL               time.Duration
	HoldSweepInterval     time.Duration
	ReminderSweepInterval time.Duration
	ReminderWindow        time.Duration
}

type NotifyConfig struct {
	Transport     string
	Queue         string
	AMQPURL       string
	MailTransport string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type AWSConfig struct {
	Region       string
	IAMRoleARN   string
	AssetsBucket string
}

// Config is loaded once at startup and passed by value afterwards.
type Config struct {
	Env             string
	Port            string
	AppHost         string
	MaintenanceMode bool
	LogDir          string
	LogLevel        string
	RedisURL        string
	AdminEmails     []string

	Database DatabaseConfig
	JWT      JWTConfig
	PayPal   PayPalConfig
	Booking  BookingConfig
	Notify   NotifyConfig
	SMTP     SMTPConfig
	AWS      AWSConfig
}

func (c Config) IsLocal() bool {
	return c.Env == "local"
}

func (c Config) IsProd() bool {
	return c.Env == "production"
}

func (c Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_ENV", "local")
	v.SetDefault("PORT", "9090")
	v.SetDefault("APP_HOST", "http://localhost:3000")
	v.SetDefault("MAINTENANCE_MODE", false)
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_NAME", "eventhub")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_TIMEZONE", "UTC")

	v.SetDefault("JWT_TTL", "168h")

	v.SetDefault("PAYPAL_MODE", "sandbox")
	v.SetDefault("PAYPAL_CURRENCY", "USD")
	v.SetDefault("PAYPAL_BRAND_NAME", "EventHub")
	v.SetDefault("PAYPAL_TIMEOUT", "15s")
	v.SetDefault("PAYPAL_MAX_ATTEMPTS", 3)
	v.SetDefault("PAYPAL_RETRY_BACKOFF", "200ms")

	v.SetDefault("HOLD_TTL", "15m")
	v.SetDefault("HOLD_SWEEP_INTERVAL", "1m")
	v.SetDefault("REMINDER_SWEEP_INTERVAL", "1h")
	v.SetDefault("REMINDER_WINDOW", "24h")

	v.SetDefault("NOTIFY_TRANSPORT", "local")
	v.SetDefault("EMAIL_QUEUE", "EmailsToSend")
	v.SetDefault("MAIL_TRANSPORT", "smtp")

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM_NAME", "EventHub")

	v.SetDefault("AWS_REGION", "ap-southeast-1")
}

// Load reads the environment (and .env for local runs) into a Config.
func Load() (Config, error) {
	if os.Getenv("API_ENV") == "" || os.Getenv("API_ENV") == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading .env: %w", err)
		}
	}
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:             v.GetString("API_ENV"),
		Port:            v.GetString("PORT"),
		AppHost:         v.GetString("APP_HOST"),
		MaintenanceMode: v.GetBool("MAINTENANCE_MODE"),
		LogDir:          v.GetString("LOG_DIR"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		RedisURL:        v.GetString("REDIS_URL"),
		AdminEmails:     splitList(v.GetString("ADMIN_EMAILS")),
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetString("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
			TimeZone: v.GetString("DATABASE_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		PayPal: PayPalConfig{
			ClientID:     v.GetString("PAYPAL_CLIENT_ID"),
			ClientSecret: v.GetString("PAYPAL_CLIENT_SECRET"),
			Mode:         strings.ToLower(v.GetString("PAYPAL_MODE")),
			Currency:     strings.ToUpper(v.GetString("PAYPAL_CURRENCY")),
			BrandName:    v.GetString("PAYPAL_BRAND_NAME"),
			ReturnURL:    v.GetString("PAYPAL_RETURN_URL"),
			CancelURL:    v.GetString("PAYPAL_CANCEL_URL"),
			Timeout:      v.GetDuration("PAYPAL_TIMEOUT"),
			MaxAttempts:  v.GetInt("PAYPAL_MAX_ATTEMPTS"),
			RetryBackoff: v.GetDuration("PAYPAL_RETRY_BACKOFF"),
		},
		Booking: BookingConfig{
			HoldTTL:               v.GetDuration("HOLD_TTL"),
			HoldSweepInterval:     v.GetDuration("HOLD_SWEEP_INTERVAL"),
			ReminderSweepInterval: v.GetDuration("REMINDER_SWEEP_INTERVAL"),
			ReminderWindow:        v.GetDuration("REMINDER_WINDOW"),
		},
		Notify: NotifyConfig{
			Transport:     strings.ToLower(v.GetString("NOTIFY_TRANSPORT")),
			Queue:         v.GetString("EMAIL_QUEUE"),
			AMQPURL:       v.GetString("AMQP_URL"),
			MailTransport: strings.ToLower(v.GetString("MAIL_TRANSPORT")),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
			FromName: v.GetString("MAIL_FROM_NAME"),
		},
		AWS: AWSConfig{
			Region:       v.GetString("AWS_REGION"),
			IAMRoleARN:   v.GetString("AWS_IAM_ROLE_ARN"),
			AssetsBucket: v.GetString("S3_ASSETS_BUCKET"),
		},
	}
	if cfg.JWT.Secret == "" {
		if !cfg.IsLocal() {
			return Config{}, errors.New("JWT_SECRET is required")
		}
		cfg.JWT.Secret = "local-development-secret"
	}
	switch cfg.PayPal.Mode {
	case "sandbox", "live":
	default:
		return Config{}, fmt.Errorf("PAYPAL_MODE must be sandbox or live, got %q", cfg.PayPal.Mode)
	}
	switch cfg.Notify.Transport {
	case "local", "sqs", "amqp":
	default:
		return Config{}, fmt.Errorf("NOTIFY_TRANSPORT must be one of local, sqs, amqp, got %q", cfg.Notify.Transport)
	}
	switch cfg.Notify.MailTransport {
	case "smtp", "ses":
	default:
		return Config{}, fmt.Errorf("MAIL_TRANSPORT must be smtp or ses, got %q", cfg.Notify.MailTransport)
	}
	if cfg.PayPal.MaxAttempts < 1 {
		cfg.PayPal.MaxAttempts = 1
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
