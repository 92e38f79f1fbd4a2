package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"barbeapp/internal/locale"
	"barbeapp/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Mail          MailConfig          `yaml:"mail"`
	Booking       BookingConfig       `yaml:"booking"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	API           APIConfig           `yaml:"api"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	FilesURL    string `yaml:"files_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

const (
	NotificationBackendRedis  = "redis"
	NotificationBackendMongo  = "mongo"
	NotificationBackendMemory = "memory"
)

type NotificationsConfig struct {
	Backend string      `yaml:"backend"`
	Mongo   MongoConfig `yaml:"mongo"`
	// Failover keeps notifications in memory while the primary backend is down.
	Failover bool `yaml:"failover"`
}

type MongoConfig struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

const (
	MailProviderSendGrid = "sendgrid"
	MailProviderStub     = "stub"
)

type MailConfig struct {
	Provider      string          `yaml:"provider"`
	FromEmail     string          `yaml:"from_email"`
	FromName      string          `yaml:"from_name"`
	SendGrid      SendGridConfig  `yaml:"sendgrid"`
	WorkerEnabled bool            `yaml:"worker_enabled"`
	Retry         MailRetryConfig `yaml:"retry"`
}

type SendGridConfig struct {
	APIKey string `yaml:"api_key"`
}

type MailRetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type BookingConfig struct {
	Locale       string        `yaml:"locale"`
	Timezone     string        `yaml:"timezone"`
	CancelNotice time.Duration `yaml:"cancel_notice"`
	// EnforceCancelNotice rejects cancellations inside CancelNotice of the appointment.
	EnforceCancelNotice bool `yaml:"enforce_cancel_notice"`
	// RejectRegisteredActors rejects bookings from actors that already exist as users.
	RejectRegisteredActors bool `yaml:"reject_registered_actors"`
	PageSize               int  `yaml:"page_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Подстановка переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.Auth.JWTSecret == "" {
		return errors.New("api auth jwt_secret is required")
	}

	switch c.Notifications.Backend {
	case NotificationBackendRedis:
		if c.Redis.Address == "" {
			return errors.New("notifications backend redis requires redis.address")
		}
	case NotificationBackendMongo:
		if c.Notifications.Mongo.URI == "" {
			return errors.New("notifications backend mongo requires notifications.mongo.uri")
		}
	case NotificationBackendMemory:
	default:
		return fmt.Errorf("unknown notifications backend %q", c.Notifications.Backend)
	}

	switch c.Mail.Provider {
	case MailProviderSendGrid:
		if c.Mail.SendGrid.APIKey == "" {
			return errors.New("mail provider sendgrid requires mail.sendgrid.api_key")
		}
	case MailProviderStub:
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}

	if !locale.Supported(c.Booking.Locale) {
		return fmt.Errorf("unsupported booking locale %q", c.Booking.Locale)
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone: %w", err)
	}
	if c.Booking.CancelNotice < 0 {
		return errors.New("booking cancel_notice must not be negative")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "barbeapp"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.Auth.TokenTTL == 0 {
		c.API.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	c.Notifications.Backend = strings.ToLower(strings.TrimSpace(c.Notifications.Backend))
	if c.Notifications.Backend == "" {
		c.Notifications.Backend = NotificationBackendRedis
	}
	if c.Notifications.Mongo.Database == "" {
		c.Notifications.Mongo.Database = "barbeapp"
	}
	if c.Notifications.Mongo.Collection == "" {
		c.Notifications.Mongo.Collection = "notifications"
	}
	if c.Notifications.Mongo.Timeout == 0 {
		c.Notifications.Mongo.Timeout = 10 * time.Second
	}

	c.Mail.Provider = strings.ToLower(strings.TrimSpace(c.Mail.Provider))
	if c.Mail.Provider == "" {
		c.Mail.Provider = MailProviderStub
	}
	if c.Mail.FromName == "" {
		c.Mail.FromName = "Equipe GoBarber"
	}

	// Booking defaults
	if c.Booking.Locale == "" {
		c.Booking.Locale = locale.PortugueseBR
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Booking.CancelNotice == 0 {
		c.Booking.CancelNotice = models.DefaultCancelNoticeHours * time.Hour
	}
	if c.Booking.PageSize == 0 {
		c.Booking.PageSize = models.AppointmentsPageSize
	}

	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "./data/backups"
	}
}
