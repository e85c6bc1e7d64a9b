package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Email transports understood by the dispatch layer.
const (
	TransportSMTP     = "smtp"
	TransportSendGrid = "sendgrid"
	TransportConsole  = "console"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Cache        CacheConfig
	Email        EmailConfig
	SMTP         SMTPConfig
	SendGrid     SendGridConfig
	DailyUpdates DailyUpdatesConfig
	Storage      StorageConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig controls caching of generated daily update payloads.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// EmailConfig governs the dispatch layer shared by every transport.
type EmailConfig struct {
	Transport        string
	FromAddress      string
	FromName         string
	DailyLimit       int
	MaxRetries       int
	RetryBackoff     time.Duration
	SendInterval     time.Duration
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// SMTPConfig configures the gomail dialer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLSMode is one of "tls", "starttls" or "none".
	TLSMode string
}

// SendGridConfig configures the SendGrid web API transport.
type SendGridConfig struct {
	APIKey  string
	BaseURL string
}

// DailyUpdatesConfig controls generation and asynchronous delivery.
type DailyUpdatesConfig struct {
	TimeZone          string
	DefaultSchoolName string
	AttachReport      bool
	WorkerConcurrency int
	WorkerRetries     int
}

// StorageConfig configures attachment and export storage.
type StorageConfig struct {
	Dir              string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	CleanupInterval  time.Duration
	Retention        time.Duration
	// HistoryRetention purges sent-email records older than this; zero keeps them.
	HistoryRetention time.Duration
}

// Location resolves the configured school time zone, defaulting to UTC.
func (c DailyUpdatesConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_DAILY_UPDATE_CACHE"),
		TTL:     parseDuration(v.GetString("DAILY_UPDATE_CACHE_TTL"), time.Minute),
	}

	cfg.Email = EmailConfig{
		Transport:        strings.ToLower(v.GetString("EMAIL_TRANSPORT")),
		FromAddress:      v.GetString("EMAIL_FROM_ADDRESS"),
		FromName:         v.GetString("EMAIL_FROM_NAME"),
		DailyLimit:       v.GetInt("EMAIL_DAILY_LIMIT"),
		MaxRetries:       v.GetInt("EMAIL_MAX_RETRIES"),
		RetryBackoff:     parseDuration(v.GetString("EMAIL_RETRY_BACKOFF"), time.Second),
		SendInterval:     parseDuration(v.GetString("EMAIL_SEND_INTERVAL"), 200*time.Millisecond),
		BreakerThreshold: v.GetUint32("EMAIL_BREAKER_THRESHOLD"),
		BreakerTimeout:   parseDuration(v.GetString("EMAIL_BREAKER_TIMEOUT"), 30*time.Second),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USERNAME"),
		Password: v.GetString("SMTP_PASSWORD"),
		TLSMode:  strings.ToLower(v.GetString("SMTP_TLS_MODE")),
	}

	cfg.SendGrid = SendGridConfig{
		APIKey:  v.GetString("SENDGRID_API_KEY"),
		BaseURL: v.GetString("SENDGRID_BASE_URL"),
	}

	cfg.DailyUpdates = DailyUpdatesConfig{
		TimeZone:          v.GetString("DAILY_UPDATE_TIMEZONE"),
		DefaultSchoolName: v.GetString("DAILY_UPDATE_SCHOOL_NAME"),
		AttachReport:      v.GetBool("DAILY_UPDATE_ATTACH_REPORT"),
		WorkerConcurrency: v.GetInt("DAILY_UPDATE_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("DAILY_UPDATE_WORKER_RETRIES"),
	}

	cfg.Storage = StorageConfig{
		Dir:              v.GetString("STORAGE_DIR"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:  parseDuration(v.GetString("STORAGE_CLEANUP_INTERVAL"), time.Hour),
		Retention:        parseDuration(v.GetString("STORAGE_EXPORT_RETENTION"), 72*time.Hour),
		HistoryRetention: parseDuration(v.GetString("EMAIL_HISTORY_RETENTION"), 0),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "daily_updates")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DAILY_UPDATE_CACHE", false)
	v.SetDefault("DAILY_UPDATE_CACHE_TTL", "1m")

	v.SetDefault("EMAIL_TRANSPORT", TransportConsole)
	v.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@example.com")
	v.SetDefault("EMAIL_FROM_NAME", "Daily Updates")
	v.SetDefault("EMAIL_DAILY_LIMIT", 1000)
	v.SetDefault("EMAIL_MAX_RETRIES", 3)
	v.SetDefault("EMAIL_RETRY_BACKOFF", "1s")
	v.SetDefault("EMAIL_SEND_INTERVAL", "200ms")
	v.SetDefault("EMAIL_BREAKER_THRESHOLD", 5)
	v.SetDefault("EMAIL_BREAKER_TIMEOUT", "30s")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_TLS_MODE", "starttls")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SENDGRID_BASE_URL", "https://api.sendgrid.com")

	v.SetDefault("DAILY_UPDATE_TIMEZONE", "UTC")
	v.SetDefault("DAILY_UPDATE_SCHOOL_NAME", "School")
	v.SetDefault("DAILY_UPDATE_ATTACH_REPORT", false)
	v.SetDefault("DAILY_UPDATE_WORKER_CONCURRENCY", 1)
	v.SetDefault("DAILY_UPDATE_WORKER_RETRIES", 2)

	v.SetDefault("STORAGE_DIR", "./storage")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "24h")
	v.SetDefault("STORAGE_CLEANUP_INTERVAL", "1h")
	v.SetDefault("STORAGE_EXPORT_RETENTION", "72h")
	v.SetDefault("EMAIL_HISTORY_RETENTION", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
