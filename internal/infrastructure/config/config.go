package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Swagger    SwaggerConfig
	Queue      QueueConfig
	Kafka      KafkaConfig
	Scheduler  SchedulerConfig
	Storefront StorefrontConfig
	Archive    ArchiveConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds settings for operator API tokens
type JWTConfig struct {
	Secret          string
	Issuer          string
	TokenExpiration time.Duration
}

// SwaggerConfig guards the API documentation endpoint
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	// AllowedIPs takes single addresses and CIDR ranges; empty allows all
	AllowedIPs []string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// QueueConfig selects and sizes the task queue
type QueueConfig struct {
	Driver        string // memory or kafka
	Workers       int
	BufferSize    int
	TaskTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	HistorySize   int
}

// KafkaConfig holds Kafka connection settings for the kafka queue driver
type KafkaConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	BatchSize      int
	BatchTimeout   time.Duration
	CommitInterval time.Duration
}

// ArchiveConfig holds the S3-compatible bucket that keeps daily reports.
// Works with AWS S3, MinIO and RustFS.
type ArchiveConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	Prefix            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// SchedulerConfig holds the periodic trigger intervals
type SchedulerConfig struct {
	Enabled              bool
	RetryInterval        time.Duration
	PendingInterval      time.Duration
	InventoryInterval    time.Duration
	HealthInterval       time.Duration
	MaintenanceInterval  time.Duration
	ReportInterval       time.Duration
	StalePendingAfter    time.Duration
	RetryBatchSize       int
	PendingBatchSize     int
	InventoryBatchSize   int
	SettingsCacheTTL     time.Duration
	WebhookIdempotentTTL time.Duration
}

// StorefrontConfig seeds the integration settings on first start. After
// that the settings are managed through the API and stored in the database.
type StorefrontConfig struct {
	Enabled                  bool
	APIBaseURL               string
	SiteBaseURL              string
	SiteID                   string
	AccountID                string
	APIKey                   string
	WebhookSecret            string
	AllowUnsignedWebhooks    bool
	AutoSyncItems            bool
	AutoSyncInventory        bool
	SyncDescription          bool
	SyncPrice                bool
	SyncImages               bool
	SyncInventory            bool
	SyncCategories           bool
	RetryAttempts            int
	RetryBaseDelay           time.Duration
	MaxRetryDelay            time.Duration
	TimeoutSeconds           int
	DefaultPriceList         string
	DefaultWarehouse         string
	DefaultCurrency          string
	BulkBatchSize            int
	BulkItemDelay            time.Duration
	VerifyRemoteBeforeUpdate bool
	SuccessRetention         time.Duration
	ErrorRetention           time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled bool // Enable database query tracing (otelgorm)
	// Continuous profiling
	ProfilingEnabled  bool
	ProfilingEndpoint string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_DATABASE_PASSWORD),
//    including those from an optional .env file
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	// A .env file is optional; values already in the environment win
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/storesync")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true need explicit viper defaults so that an
	// unset key is distinguishable from false
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("storefront.auto_sync_items", true)
	v.SetDefault("storefront.sync_description", true)
	v.SetDefault("storefront.sync_price", true)
	v.SetDefault("storefront.sync_images", true)
	v.SetDefault("storefront.sync_inventory", true)
	v.SetDefault("storefront.sync_categories", true)
	v.SetDefault("storefront.retry_attempts", integration.DefaultRetryAttempts)
	v.SetDefault("archive.use_path_style", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Issuer:          v.GetString("jwt.issuer"),
			TokenExpiration: v.GetDuration("jwt.token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),

			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Queue: QueueConfig{
			Driver:        v.GetString("queue.driver"),
			Workers:       v.GetInt("queue.workers"),
			BufferSize:    v.GetInt("queue.buffer_size"),
			TaskTimeout:   v.GetDuration("queue.task_timeout"),
			RetryAttempts: v.GetInt("queue.retry_attempts"),
			RetryDelay:    v.GetDuration("queue.retry_delay"),
			HistorySize:   v.GetInt("queue.history_size"),
		},
		Kafka: KafkaConfig{
			Brokers:        v.GetStringSlice("kafka.brokers"),
			Topic:          v.GetString("kafka.topic"),
			GroupID:        v.GetString("kafka.group_id"),
			BatchSize:      v.GetInt("kafka.batch_size"),
			BatchTimeout:   v.GetDuration("kafka.batch_timeout"),
			CommitInterval: v.GetDuration("kafka.commit_interval"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("scheduler.enabled"),
			RetryInterval:        v.GetDuration("scheduler.retry_interval"),
			PendingInterval:      v.GetDuration("scheduler.pending_interval"),
			InventoryInterval:    v.GetDuration("scheduler.inventory_interval"),
			HealthInterval:       v.GetDuration("scheduler.health_interval"),
			MaintenanceInterval:  v.GetDuration("scheduler.maintenance_interval"),
			ReportInterval:       v.GetDuration("scheduler.report_interval"),
			StalePendingAfter:    v.GetDuration("scheduler.stale_pending_after"),
			RetryBatchSize:       v.GetInt("scheduler.retry_batch_size"),
			PendingBatchSize:     v.GetInt("scheduler.pending_batch_size"),
			InventoryBatchSize:   v.GetInt("scheduler.inventory_batch_size"),
			SettingsCacheTTL:     v.GetDuration("scheduler.settings_cache_ttl"),
			WebhookIdempotentTTL: v.GetDuration("scheduler.webhook_idempotency_ttl"),
		},
		Storefront: StorefrontConfig{
			Enabled:                  v.GetBool("storefront.enabled"),
			APIBaseURL:               v.GetString("storefront.api_base_url"),
			SiteBaseURL:              v.GetString("storefront.site_base_url"),
			SiteID:                   v.GetString("storefront.site_id"),
			AccountID:                v.GetString("storefront.account_id"),
			APIKey:                   v.GetString("storefront.api_key"),
			WebhookSecret:            v.GetString("storefront.webhook_secret"),
			AllowUnsignedWebhooks:    v.GetBool("storefront.allow_unsigned_webhooks"),
			AutoSyncItems:            v.GetBool("storefront.auto_sync_items"),
			AutoSyncInventory:        v.GetBool("storefront.auto_sync_inventory"),
			SyncDescription:          v.GetBool("storefront.sync_description"),
			SyncPrice:                v.GetBool("storefront.sync_price"),
			SyncImages:               v.GetBool("storefront.sync_images"),
			SyncInventory:            v.GetBool("storefront.sync_inventory"),
			SyncCategories:           v.GetBool("storefront.sync_categories"),
			RetryAttempts:            v.GetInt("storefront.retry_attempts"),
			RetryBaseDelay:           v.GetDuration("storefront.retry_base_delay"),
			MaxRetryDelay:            v.GetDuration("storefront.max_retry_delay"),
			TimeoutSeconds:           v.GetInt("storefront.timeout_seconds"),
			DefaultPriceList:         v.GetString("storefront.default_price_list"),
			DefaultWarehouse:         v.GetString("storefront.default_warehouse"),
			DefaultCurrency:          v.GetString("storefront.default_currency"),
			BulkBatchSize:            v.GetInt("storefront.bulk_batch_size"),
			BulkItemDelay:            v.GetDuration("storefront.bulk_item_delay"),
			VerifyRemoteBeforeUpdate: v.GetBool("storefront.verify_remote_before_update"),
			SuccessRetention:         v.GetDuration("storefront.success_retention"),
			ErrorRetention:           v.GetDuration("storefront.error_retention"),
		},
		Archive: ArchiveConfig{
			Enabled:           v.GetBool("archive.enabled"),
			Endpoint:          v.GetString("archive.endpoint"),
			Region:            v.GetString("archive.region"),
			Bucket:            v.GetString("archive.bucket"),
			Prefix:            v.GetString("archive.prefix"),
			AccessKey:         v.GetString("archive.access_key"),
			SecretKey:         v.GetString("archive.secret_key"),
			UseSSL:            v.GetBool("archive.use_ssl"),
			UsePathStyle:      v.GetBool("archive.use_path_style"),
			PresignExpiration: v.GetDuration("archive.presign_expiration"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingEndpoint: v.GetString("telemetry.profiling_endpoint"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storesync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storesync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "storesync"
	}
	if cfg.JWT.TokenExpiration == 0 {
		cfg.JWT.TokenExpiration = 12 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// An empty origin list means no cross-origin requests are allowed
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 120
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Queue.Driver == "" {
		cfg.Queue.Driver = "memory"
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 3
	}
	if cfg.Queue.BufferSize == 0 {
		cfg.Queue.BufferSize = 100
	}
	if cfg.Queue.TaskTimeout == 0 {
		cfg.Queue.TaskTimeout = 10 * time.Minute
	}
	if cfg.Queue.RetryAttempts == 0 {
		cfg.Queue.RetryAttempts = 3
	}
	if cfg.Queue.RetryDelay == 0 {
		cfg.Queue.RetryDelay = 30 * time.Second
	}
	if cfg.Queue.HistorySize == 0 {
		cfg.Queue.HistorySize = 100
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "storesync.tasks"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "storesync-workers"
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 10 * time.Millisecond
	}
	if cfg.Kafka.CommitInterval == 0 {
		cfg.Kafka.CommitInterval = time.Second
	}
	if cfg.Scheduler.RetryInterval == 0 {
		cfg.Scheduler.RetryInterval = 15 * time.Minute
	}
	if cfg.Scheduler.PendingInterval == 0 {
		cfg.Scheduler.PendingInterval = time.Hour
	}
	if cfg.Scheduler.InventoryInterval == 0 {
		cfg.Scheduler.InventoryInterval = 30 * time.Minute
	}
	if cfg.Scheduler.HealthInterval == 0 {
		cfg.Scheduler.HealthInterval = time.Hour
	}
	if cfg.Scheduler.MaintenanceInterval == 0 {
		cfg.Scheduler.MaintenanceInterval = 24 * time.Hour
	}
	if cfg.Scheduler.ReportInterval == 0 {
		cfg.Scheduler.ReportInterval = 24 * time.Hour
	}
	if cfg.Scheduler.StalePendingAfter == 0 {
		cfg.Scheduler.StalePendingAfter = 24 * time.Hour
	}
	if cfg.Scheduler.RetryBatchSize == 0 {
		cfg.Scheduler.RetryBatchSize = 10
	}
	if cfg.Scheduler.PendingBatchSize == 0 {
		cfg.Scheduler.PendingBatchSize = 20
	}
	if cfg.Scheduler.InventoryBatchSize == 0 {
		cfg.Scheduler.InventoryBatchSize = 50
	}
	if cfg.Scheduler.SettingsCacheTTL == 0 {
		cfg.Scheduler.SettingsCacheTTL = integration.DefaultSettingsCacheTTL
	}
	if cfg.Scheduler.WebhookIdempotentTTL == 0 {
		cfg.Scheduler.WebhookIdempotentTTL = 24 * time.Hour
	}
	if cfg.Storefront.RetryBaseDelay == 0 {
		cfg.Storefront.RetryBaseDelay = integration.DefaultRetryBaseDelay
	}
	if cfg.Storefront.MaxRetryDelay == 0 {
		cfg.Storefront.MaxRetryDelay = integration.DefaultMaxRetryDelay
	}
	if cfg.Storefront.TimeoutSeconds == 0 {
		cfg.Storefront.TimeoutSeconds = integration.DefaultTimeoutSeconds
	}
	if cfg.Storefront.DefaultCurrency == "" {
		cfg.Storefront.DefaultCurrency = "USD"
	}
	if cfg.Storefront.BulkBatchSize == 0 {
		cfg.Storefront.BulkBatchSize = integration.DefaultBulkBatchSize
	}
	if cfg.Storefront.BulkItemDelay == 0 {
		cfg.Storefront.BulkItemDelay = integration.DefaultBulkItemDelay
	}
	if cfg.Storefront.SuccessRetention == 0 {
		cfg.Storefront.SuccessRetention = integration.DefaultSuccessRetention
	}
	if cfg.Storefront.ErrorRetention == 0 {
		cfg.Storefront.ErrorRetention = integration.DefaultErrorRetention
	}
	// Unsigned webhooks are accepted without a secret only in development
	if cfg.App.Env == "development" && cfg.Storefront.WebhookSecret == "" {
		cfg.Storefront.AllowUnsignedWebhooks = true
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "us-east-1"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "reports"
	}
	if cfg.Archive.PresignExpiration == 0 {
		cfg.Archive.PresignExpiration = 15 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storesync"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
	if cfg.Telemetry.ProfilingEndpoint == "" {
		cfg.Telemetry.ProfilingEndpoint = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Queue.Driver {
	case "memory", "kafka":
	default:
		return fmt.Errorf("queue.driver must be 'memory' or 'kafka', got %q", c.Queue.Driver)
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}

	if err := c.Storefront.ToSettings().Validate(); err != nil {
		return fmt.Errorf("storefront: %w", err)
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when the archive is enabled")
		}
		if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
			return fmt.Errorf("archive.access_key and archive.secret_key are required when the archive is enabled")
		}
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Storefront.AllowUnsignedWebhooks {
			return fmt.Errorf("storefront.allow_unsigned_webhooks must be false in production")
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ToSettings converts the seed configuration into integration settings
func (s StorefrontConfig) ToSettings() integration.Settings {
	out := integration.DefaultSettings()
	out.Enabled = s.Enabled
	out.APIBaseURL = s.APIBaseURL
	out.SiteBaseURL = s.SiteBaseURL
	out.SiteID = s.SiteID
	out.AccountID = s.AccountID
	out.APIKey = s.APIKey
	out.WebhookSecret = s.WebhookSecret
	out.AllowUnsignedWebhooks = s.AllowUnsignedWebhooks
	out.AutoSyncItems = s.AutoSyncItems
	out.AutoSyncInventory = s.AutoSyncInventory
	out.SyncDescription = s.SyncDescription
	out.SyncPrice = s.SyncPrice
	out.SyncImages = s.SyncImages
	out.SyncInventory = s.SyncInventory
	out.SyncCategories = s.SyncCategories
	out.RetryAttempts = s.RetryAttempts
	out.RetryBaseDelay = s.RetryBaseDelay
	out.MaxRetryDelay = s.MaxRetryDelay
	out.TimeoutSeconds = s.TimeoutSeconds
	out.DefaultPriceList = s.DefaultPriceList
	out.DefaultWarehouse = s.DefaultWarehouse
	out.DefaultCurrency = s.DefaultCurrency
	out.BulkBatchSize = s.BulkBatchSize
	out.BulkItemDelay = s.BulkItemDelay
	out.VerifyRemoteBeforeUpdate = s.VerifyRemoteBeforeUpdate
	out.SuccessRetention = s.SuccessRetention
	out.ErrorRetention = s.ErrorRetention
	return out
}
