package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	S3       S3Config
	Log      LogConfig
	Pipeline PipelineConfig
	Approval ApprovalConfig
	Notify   NotifyConfig
	Auth     AuthConfig
}

// ServerConfig holds approval-console HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds object-store settings.
type S3Config struct {
	Region         string        `mapstructure:"region"`
	Bucket         string        `mapstructure:"bucket"`
	Endpoint       string        `mapstructure:"endpoint"`
	AccessKey      string        `mapstructure:"access_key"`
	SecretKey      string        `mapstructure:"secret_key"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PipelineConfig holds stage-execution settings.
type PipelineConfig struct {
	Workers        int           `mapstructure:"workers"`
	ExceptionBatch int           `mapstructure:"exception_batch"`
	AuditBuffer    int           `mapstructure:"audit_buffer"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	WorkDir        string        `mapstructure:"work_dir"`
	TemplateDir    string        `mapstructure:"template_dir"`
}

// ApprovalConfig holds auto-approval policy.
type ApprovalConfig struct {
	SKUPrefixAllowlist []string `mapstructure:"sku_prefix_allowlist"`
	ValueThreshold     float64  `mapstructure:"value_threshold"`
	AllowGSTOverride   bool     `mapstructure:"allow_gst_override"`
	BlockOnUnmapped    bool     `mapstructure:"block_on_unmapped"`
}

// NotifyConfig holds notification sink settings.
type NotifyConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	ToAddress   string `mapstructure:"to_address"`
}

// AuthConfig holds the approval-console token settings.
type AuthConfig struct {
	Secret      string        `mapstructure:"secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	Issuer      string        `mapstructure:"issuer"`
}

// Load reads configuration from environment variables with the X2B_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("X2B")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "x2beta")
	v.SetDefault("db.password", "x2beta_secret")
	v.SetDefault("db.name", "x2beta_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "x2beta-artifacts")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.call_timeout", "30s")
	v.SetDefault("s3.retry_delay", "500ms")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.exception_batch", 100)
	v.SetDefault("pipeline.audit_buffer", 100)
	v.SetDefault("pipeline.query_timeout", "30s")
	v.SetDefault("pipeline.work_dir", "work")
	v.SetDefault("pipeline.template_dir", "templates")

	// Approval defaults
	v.SetDefault("approval.sku_prefix_allowlist", "FG-,KIT-,CMB-")
	v.SetDefault("approval.value_threshold", 10000.0)
	v.SetDefault("approval.allow_gst_override", false)
	v.SetDefault("approval.block_on_unmapped", true)

	// Notify defaults
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("notify.region", "ap-south-1")
	v.SetDefault("notify.from_address", "pipeline@example.com")
	v.SetDefault("notify.to_address", "finance@example.com")

	// Auth defaults
	v.SetDefault("auth.secret", "change-me-in-production")
	v.SetDefault("auth.token_expiry", "168h")
	v.SetDefault("auth.issuer", "x2beta")

	envBindings := map[string]string{
		"server.port":                   "X2B_SERVER_PORT",
		"server.read_timeout":           "X2B_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "X2B_SERVER_WRITE_TIMEOUT",
		"server.environment":            "X2B_SERVER_ENVIRONMENT",
		"db.host":                       "X2B_DB_HOST",
		"db.port":                       "X2B_DB_PORT",
		"db.user":                       "X2B_DB_USER",
		"db.password":                   "X2B_DB_PASSWORD",
		"db.name":                       "X2B_DB_NAME",
		"db.sslmode":                    "X2B_DB_SSLMODE",
		"db.max_open":                   "X2B_DB_MAX_OPEN",
		"db.max_idle":                   "X2B_DB_MAX_IDLE",
		"s3.region":                     "X2B_S3_REGION",
		"s3.bucket":                     "X2B_S3_BUCKET",
		"s3.endpoint":                   "X2B_S3_ENDPOINT",
		"s3.access_key":                 "X2B_S3_ACCESS_KEY",
		"s3.secret_key":                 "X2B_S3_SECRET_KEY",
		"s3.call_timeout":               "X2B_S3_CALL_TIMEOUT",
		"s3.retry_delay":                "X2B_S3_RETRY_DELAY",
		"log.level":                     "X2B_LOG_LEVEL",
		"log.format":                    "X2B_LOG_FORMAT",
		"pipeline.workers":              "X2B_PIPELINE_WORKERS",
		"pipeline.exception_batch":      "X2B_PIPELINE_EXCEPTION_BATCH",
		"pipeline.audit_buffer":         "X2B_PIPELINE_AUDIT_BUFFER",
		"pipeline.query_timeout":        "X2B_PIPELINE_QUERY_TIMEOUT",
		"pipeline.work_dir":             "X2B_PIPELINE_WORK_DIR",
		"pipeline.template_dir":         "X2B_PIPELINE_TEMPLATE_DIR",
		"approval.sku_prefix_allowlist": "X2B_APPROVAL_SKU_PREFIX_ALLOWLIST",
		"approval.value_threshold":      "X2B_APPROVAL_VALUE_THRESHOLD",
		"approval.allow_gst_override":   "X2B_APPROVAL_ALLOW_GST_OVERRIDE",
		"approval.block_on_unmapped":    "X2B_APPROVAL_BLOCK_ON_UNMAPPED",
		"notify.provider":               "X2B_NOTIFY_PROVIDER",
		"notify.region":                 "X2B_NOTIFY_REGION",
		"notify.from_address":           "X2B_NOTIFY_FROM_ADDRESS",
		"notify.to_address":             "X2B_NOTIFY_TO_ADDRESS",
		"auth.secret":                   "X2B_AUTH_SECRET",
		"auth.token_expiry":             "X2B_AUTH_TOKEN_EXPIRY",
		"auth.issuer":                   "X2B_AUTH_ISSUER",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Platform-provided PORT wins unless X2B_SERVER_PORT is set explicitly.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("X2B_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:      v.GetString("s3.region"),
		Bucket:      v.GetString("s3.bucket"),
		Endpoint:    v.GetString("s3.endpoint"),
		AccessKey:   v.GetString("s3.access_key"),
		SecretKey:   v.GetString("s3.secret_key"),
		CallTimeout: v.GetDuration("s3.call_timeout"),
		RetryDelay:  v.GetDuration("s3.retry_delay"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Pipeline = PipelineConfig{
		Workers:        v.GetInt("pipeline.workers"),
		ExceptionBatch: v.GetInt("pipeline.exception_batch"),
		AuditBuffer:    v.GetInt("pipeline.audit_buffer"),
		QueryTimeout:   v.GetDuration("pipeline.query_timeout"),
		WorkDir:        v.GetString("pipeline.work_dir"),
		TemplateDir:    v.GetString("pipeline.template_dir"),
	}

	var prefixes []string
	for _, p := range strings.Split(v.GetString("approval.sku_prefix_allowlist"), ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	cfg.Approval = ApprovalConfig{
		SKUPrefixAllowlist: prefixes,
		ValueThreshold:     v.GetFloat64("approval.value_threshold"),
		AllowGSTOverride:   v.GetBool("approval.allow_gst_override"),
		BlockOnUnmapped:    v.GetBool("approval.block_on_unmapped"),
	}
	cfg.Notify = NotifyConfig{
		Provider:    v.GetString("notify.provider"),
		Region:      v.GetString("notify.region"),
		FromAddress: v.GetString("notify.from_address"),
		ToAddress:   v.GetString("notify.to_address"),
	}
	cfg.Auth = AuthConfig{
		Secret:      v.GetString("auth.secret"),
		TokenExpiry: v.GetDuration("auth.token_expiry"),
		Issuer:      v.GetString("auth.issuer"),
	}

	return cfg, nil
}
