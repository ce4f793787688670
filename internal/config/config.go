package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const insecureJWTSecret = "change-me-verbfy-development-secret"

// Config holds all configuration for the Verbfy service.
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
	FrontendURL string `mapstructure:"frontend_url"`

	HTTP    HTTPConfig    `mapstructure:"http"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	LiveKit LiveKitConfig `mapstructure:"livekit"`
	Storage StorageConfig `mapstructure:"storage"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	Stripe  StripeConfig  `mapstructure:"stripe"`
	Rollbar RollbarConfig `mapstructure:"rollbar"`
	Booking BookingConfig `mapstructure:"booking"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	ResetTTL   time.Duration `mapstructure:"reset_ttl"`
}

// LiveKitConfig covers the video room provider.
type LiveKitConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	APISecret  string        `mapstructure:"api_secret"`
	EarlyJoin  time.Duration `mapstructure:"early_join"`
	TokenGrace time.Duration `mapstructure:"token_grace"`
}

type StorageConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PublicURL     string        `mapstructure:"public_url"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
	PresignTTL    time.Duration `mapstructure:"presign_ttl"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	SenderEmail string `mapstructure:"sender_email"`
	SenderName  string `mapstructure:"sender_name"`
	InsecureTLS bool   `mapstructure:"insecure_tls"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

type RollbarConfig struct {
	Token       string `mapstructure:"token"`
	CodeVersion string `mapstructure:"code_version"`
}

// BookingConfig drives reservation validation and slot computation.
type BookingConfig struct {
	Timezone     string        `mapstructure:"timezone"`
	MinDuration  time.Duration `mapstructure:"min_duration"`
	MaxDuration  time.Duration `mapstructure:"max_duration"`
	SlotStep     time.Duration `mapstructure:"slot_step"`
	MinLeadTime  time.Duration `mapstructure:"min_lead_time"`
	MaxRangeDays int           `mapstructure:"max_range_days"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

type AuditConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

type MetricsConfig struct {
	Port string `mapstructure:"port"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "verbfy")
	v.SetDefault("environment", "development")
	v.SetDefault("frontend_url", "http://localhost:3000")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "verbfy")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("mongo.max_pool_size", 100)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.connect_timeout", "5s")
	v.SetDefault("nats.subject_prefix", "verbfy")

	v.SetDefault("jwt.secret", insecureJWTSecret)
	v.SetDefault("jwt.issuer", "verbfy")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("jwt.reset_ttl", "1h")

	v.SetDefault("livekit.url", "ws://localhost:7880")
	v.SetDefault("livekit.api_key", "")
	v.SetDefault("livekit.api_secret", "")
	v.SetDefault("livekit.early_join", "15m")
	v.SetDefault("livekit.token_grace", "10m")

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "verbfy-materials")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.public_url", "")
	v.SetDefault("storage.max_upload_size", 50<<20)
	v.SetDefault("storage.presign_ttl", "15m")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.sender_email", "no-reply@verbfy.com")
	v.SetDefault("smtp.sender_name", "Verbfy")
	v.SetDefault("smtp.insecure_tls", false)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.currency", "usd")

	v.SetDefault("rollbar.token", "")
	v.SetDefault("rollbar.code_version", "dev")

	v.SetDefault("booking.timezone", "UTC")
	v.SetDefault("booking.min_duration", "30m")
	v.SetDefault("booking.max_duration", "120m")
	v.SetDefault("booking.slot_step", "30m")
	v.SetDefault("booking.min_lead_time", "2h")
	v.SetDefault("booking.max_range_days", 31)
	v.SetDefault("booking.lock_ttl", "10s")

	v.SetDefault("audit.retention_days", 365)
	v.SetDefault("metrics.port", "9093")
	v.SetDefault("tracing.otlp_endpoint", "")
}

// LoadConfig reads defaults, an optional YAML file at path and the
// environment (MONGO_URI overrides mongo.uri and so on).
func LoadConfig(path string, appLogger *logger.Logger) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if fi, err := os.Stat(path); err == nil {
			if fi.IsDir() {
				v.AddConfigPath(path)
				v.SetConfigName("config")
				v.SetConfigType("yaml")
			} else {
				v.SetConfigFile(path)
			}
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("read config %s: %w", path, err)
				}
				appLogger.Info("Config file not found, using defaults and environment")
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		appLogger.Error("Failed to unmarshal configuration", zap.Error(err))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == insecureJWTSecret {
		appLogger.Warn("JWT_SECRET is set to its insecure default. Set a strong secret in the environment.")
	}
	if cfg.LiveKit.APIKey == "" || cfg.LiveKit.APISecret == "" {
		appLogger.Warn("LiveKit credentials are not set, joining lessons will fail")
	}

	appLogger.Debug("Configuration loaded",
		zap.String("service_name", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.HTTP.Port),
		zap.String("mongo_database", cfg.Mongo.Database),
		zap.String("redis_address", cfg.Redis.Address),
		zap.String("nats_url", cfg.NATS.URL),
		zap.String("storage_bucket", cfg.Storage.Bucket),
		zap.Bool("smtp_configured", cfg.SMTP.Host != ""),
		zap.Bool("stripe_configured", cfg.Stripe.SecretKey != ""),
		zap.String("booking_timezone", cfg.Booking.Timezone),
	)
	return &cfg, nil
}

// Validate checks settings the service cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if c.Mongo.URI == "" {
		problems = append(problems, "mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		problems = append(problems, "mongo.database is required")
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("booking.timezone %q is invalid", c.Booking.Timezone))
	}
	if c.Booking.MinDuration <= 0 || c.Booking.MaxDuration < c.Booking.MinDuration {
		problems = append(problems, "booking durations must satisfy 0 < min_duration <= max_duration")
	}
	if c.Booking.SlotStep <= 0 {
		problems = append(problems, "booking.slot_step must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the booking timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
