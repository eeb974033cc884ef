package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides
const EnvPrefix = "RIBOTFLOW"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Storage   StorageConfig
	Mail      MailConfig
	Printing  PrintingConfig
	AI        AIConfig
	Realtime  RealtimeConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	BaseURL string // public URL used in emails
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	MaxUploadSize    int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	SwaggerEnabled   bool
	SwaggerAllowIPs  []string // IPs or CIDRs; empty allows everyone
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
	SlowQuery       time.Duration
	MigrationsPath  string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	ListTTL  time.Duration
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	Issuer                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	MaxLoginAttempts       int
	LockDuration           time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// StorageConfig holds object storage settings. An empty Endpoint with Driver "s3"
// targets AWS; set Endpoint for MinIO or other S3-compatible services.
type StorageConfig struct {
	Driver            string // s3, memory
	Endpoint          string
	Region            string
	AccessKeyID       string
	SecretAccessKey   string
	UsePathStyle      bool
	BucketPrefix      string
	PresignExpiration time.Duration
}

// MailConfig holds transactional email settings
type MailConfig struct {
	Driver      string // smtp, api, log
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	APIURL      string
	APIKey      string
	Timeout     time.Duration
}

// PrintingConfig holds the headless Chrome settings used for PDFs
type PrintingConfig struct {
	ChromeURL string // remote DevTools endpoint; empty launches a local browser
	NoSandbox bool
	Timeout   time.Duration
	PaperSize string // A4, Letter
}

// AIConfig holds settings of the AI completion API
type AIConfig struct {
	Enabled       bool
	APIKey        string
	Model         string
	AudioModel    string
	Timeout       time.Duration
	MaxImageSide  int
	OCREnabled    bool
	OCRLanguages  []string
	MaxAudioBytes int64
}

// RealtimeConfig holds websocket change-feed settings
type RealtimeConfig struct {
	Enabled        bool
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBufferSize int
	AllowedOrigins []string
}

// SchedulerConfig holds cron job configuration
type SchedulerConfig struct {
	Enabled            bool
	QuoteExpirySpec    string
	InvoiceOverdueSpec string
	AudioWorkerSpec    string
	AudioStaleSpec     string
	AudioBatchSize     int
	AudioStaleAfter    time.Duration
	JobTimeout         time.Duration
	BatchSize          int
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	LogExportEnabled  bool
	ProfilingEnabled  bool
	PyroscopeURL      string
}

// RateLimitConfig holds token bucket settings
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
	AuthPerMinute  int
	CleanupAfter   time.Duration
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with RIBOTFLOW_ prefix (e.g., RIBOTFLOW_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return build(v)
}

// LoadAndWatch loads the configuration and calls onChange with the freshly built
// config each time the file changes. Invalid reloads are ignored.
func LoadAndWatch(onChange func(*Config)) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	cfg, err := build(v)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() != "" && onChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			if next, err := build(v); err == nil {
				onChange(next)
			}
		})
		v.WatchConfig()
	}
	return cfg, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ribotflow")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			BaseURL: v.GetString("app.base_url"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			MaxUploadSize:    v.GetInt64("http.max_upload_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			SwaggerEnabled:   v.GetBool("http.swagger_enabled"),
			SwaggerAllowIPs:  v.GetStringSlice("http.swagger_allow_ips"),
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
			SlowQuery:       v.GetDuration("database.slow_query"),
			MigrationsPath:  v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			ListTTL:  v.GetDuration("redis.list_ttl"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			Issuer:                 v.GetString("jwt.issuer"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			MaxLoginAttempts:       v.GetInt("jwt.max_login_attempts"),
			LockDuration:           v.GetDuration("jwt.lock_duration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Storage: StorageConfig{
			Driver:            v.GetString("storage.driver"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			AccessKeyID:       v.GetString("storage.access_key_id"),
			SecretAccessKey:   v.GetString("storage.secret_access_key"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			BucketPrefix:      v.GetString("storage.bucket_prefix"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Mail: MailConfig{
			Driver:      v.GetString("mail.driver"),
			FromAddress: v.GetString("mail.from_address"),
			FromName:    v.GetString("mail.from_name"),
			SMTPHost:    v.GetString("mail.smtp_host"),
			SMTPPort:    v.GetInt("mail.smtp_port"),
			SMTPUser:    v.GetString("mail.smtp_user"),
			SMTPPass:    v.GetString("mail.smtp_pass"),
			APIURL:      v.GetString("mail.api_url"),
			APIKey:      v.GetString("mail.api_key"),
			Timeout:     v.GetDuration("mail.timeout"),
		},
		Printing: PrintingConfig{
			ChromeURL: v.GetString("printing.chrome_url"),
			NoSandbox: v.GetBool("printing.no_sandbox"),
			Timeout:   v.GetDuration("printing.timeout"),
			PaperSize: v.GetString("printing.paper_size"),
		},
		AI: AIConfig{
			Enabled:       v.GetBool("ai.enabled"),
			APIKey:        v.GetString("ai.api_key"),
			Model:         v.GetString("ai.model"),
			AudioModel:    v.GetString("ai.audio_model"),
			Timeout:       v.GetDuration("ai.timeout"),
			MaxImageSide:  v.GetInt("ai.max_image_side"),
			OCREnabled:    v.GetBool("ai.ocr_enabled"),
			OCRLanguages:  v.GetStringSlice("ai.ocr_languages"),
			MaxAudioBytes: v.GetInt64("ai.max_audio_bytes"),
		},
		Realtime: RealtimeConfig{
			Enabled:        v.GetBool("realtime.enabled"),
			PingInterval:   v.GetDuration("realtime.ping_interval"),
			WriteTimeout:   v.GetDuration("realtime.write_timeout"),
			SendBufferSize: v.GetInt("realtime.send_buffer_size"),
			AllowedOrigins: v.GetStringSlice("realtime.allowed_origins"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("scheduler.enabled"),
			QuoteExpirySpec:    v.GetString("scheduler.quote_expiry_spec"),
			InvoiceOverdueSpec: v.GetString("scheduler.invoice_overdue_spec"),
			AudioWorkerSpec:    v.GetString("scheduler.audio_worker_spec"),
			AudioStaleSpec:     v.GetString("scheduler.audio_stale_spec"),
			AudioBatchSize:     v.GetInt("scheduler.audio_batch_size"),
			AudioStaleAfter:    v.GetDuration("scheduler.audio_stale_after"),
			JobTimeout:         v.GetDuration("scheduler.job_timeout"),
			BatchSize:          v.GetInt("scheduler.batch_size"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogExportEnabled:  v.GetBool("telemetry.log_export_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeURL:      v.GetString("telemetry.pyroscope_url"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        v.GetBool("ratelimit.enabled"),
			RequestsPerSec: v.GetFloat64("ratelimit.requests_per_sec"),
			Burst:          v.GetInt("ratelimit.burst"),
			AuthPerMinute:  v.GetInt("ratelimit.auth_per_minute"),
			CleanupAfter:   v.GetDuration("ratelimit.cleanup_after"),
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
	setString(&cfg.App.Name, "ribotflow")
	setString(&cfg.App.Env, "development")
	setString(&cfg.App.Port, "8080")
	setString(&cfg.App.BaseURL, "http://localhost:3000")

	setDuration(&cfg.HTTP.ReadTimeout, 15*time.Second)
	setDuration(&cfg.HTTP.WriteTimeout, 60*time.Second)
	setDuration(&cfg.HTTP.IdleTimeout, 60*time.Second)
	setDuration(&cfg.HTTP.ShutdownTimeout, 10*time.Second)
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20
	}
	if cfg.HTTP.MaxUploadSize == 0 {
		cfg.HTTP.MaxUploadSize = 50 << 20
	}
	// No CORS origin default: cross-origin requests stay blocked until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}

	setString(&cfg.Database.Host, "localhost")
	setInt(&cfg.Database.Port, 5432)
	setString(&cfg.Database.User, "postgres")
	setString(&cfg.Database.DBName, "ribotflow")
	setString(&cfg.Database.SSLMode, "disable")
	setInt(&cfg.Database.MaxOpenConns, 25)
	setInt(&cfg.Database.MaxIdleConns, 5)
	setInt(&cfg.Database.ConnMaxLifetime, 60)
	setInt(&cfg.Database.ConnMaxIdleTime, 30)
	setDuration(&cfg.Database.SlowQuery, 200*time.Millisecond)
	setString(&cfg.Database.MigrationsPath, "migrations")

	setString(&cfg.Redis.Host, "localhost")
	setInt(&cfg.Redis.Port, 6379)
	setDuration(&cfg.Redis.ListTTL, 5*time.Minute)

	setString(&cfg.JWT.Issuer, "ribotflow")
	setDuration(&cfg.JWT.AccessTokenExpiration, 15*time.Minute)
	setDuration(&cfg.JWT.RefreshTokenExpiration, 168*time.Hour)
	setInt(&cfg.JWT.MaxLoginAttempts, 5)
	setDuration(&cfg.JWT.LockDuration, 15*time.Minute)

	setString(&cfg.Log.Level, "info")
	setString(&cfg.Log.Format, "console")
	setString(&cfg.Log.Output, "stdout")

	setString(&cfg.Storage.Driver, "memory")
	setString(&cfg.Storage.Region, "eu-west-1")
	setDuration(&cfg.Storage.PresignExpiration, 15*time.Minute)

	setString(&cfg.Mail.Driver, "log")
	setString(&cfg.Mail.FromAddress, "no-reply@ribotflow.local")
	setString(&cfg.Mail.FromName, "RibotFlow")
	setInt(&cfg.Mail.SMTPPort, 587)
	setDuration(&cfg.Mail.Timeout, 15*time.Second)

	setDuration(&cfg.Printing.Timeout, 30*time.Second)
	setString(&cfg.Printing.PaperSize, "A4")

	setString(&cfg.AI.Model, "gemini-2.5-flash")
	setString(&cfg.AI.AudioModel, "gemini-2.5-flash")
	setDuration(&cfg.AI.Timeout, 90*time.Second)
	setInt(&cfg.AI.MaxImageSide, 2000)
	if len(cfg.AI.OCRLanguages) == 0 {
		cfg.AI.OCRLanguages = []string{"spa", "eng"}
	}
	if cfg.AI.MaxAudioBytes == 0 {
		cfg.AI.MaxAudioBytes = 20 << 20
	}

	setDuration(&cfg.Realtime.PingInterval, 30*time.Second)
	setDuration(&cfg.Realtime.WriteTimeout, 10*time.Second)
	setInt(&cfg.Realtime.SendBufferSize, 64)

	setString(&cfg.Scheduler.QuoteExpirySpec, "0 1 * * *")
	setString(&cfg.Scheduler.InvoiceOverdueSpec, "30 1 * * *")
	setString(&cfg.Scheduler.AudioWorkerSpec, "@every 15s")
	setString(&cfg.Scheduler.AudioStaleSpec, "@every 5m")
	setInt(&cfg.Scheduler.AudioBatchSize, 2)
	setDuration(&cfg.Scheduler.AudioStaleAfter, 15*time.Minute)
	setDuration(&cfg.Scheduler.JobTimeout, 10*time.Minute)
	setInt(&cfg.Scheduler.BatchSize, 200)

	setString(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	setString(&cfg.Telemetry.ServiceName, cfg.App.Name)
	setString(&cfg.Telemetry.PyroscopeURL, "http://localhost:4040")

	if cfg.RateLimit.RequestsPerSec == 0 {
		cfg.RateLimit.RequestsPerSec = 10
	}
	setInt(&cfg.RateLimit.Burst, 20)
	setInt(&cfg.RateLimit.AuthPerMinute, 5)
	setDuration(&cfg.RateLimit.CleanupAfter, 10*time.Minute)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	switch c.Storage.Driver {
	case "s3", "memory":
	default:
		return fmt.Errorf("storage.driver must be one of s3, memory; got %q", c.Storage.Driver)
	}
	switch c.Mail.Driver {
	case "smtp", "api", "log":
	default:
		return fmt.Errorf("mail.driver must be one of smtp, api, log; got %q", c.Mail.Driver)
	}
	if c.Mail.Driver == "smtp" && c.Mail.SMTPHost == "" {
		return fmt.Errorf("mail.smtp_host is required for the smtp driver")
	}
	if c.Mail.Driver == "api" && (c.Mail.APIURL == "" || c.Mail.APIKey == "") {
		return fmt.Errorf("mail.api_url and mail.api_key are required for the api driver")
	}
	if c.AI.Enabled && c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required when ai.enabled is true")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storage.Driver == "memory" {
			return fmt.Errorf("storage.driver cannot be 'memory' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
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
