package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"hookrelay/internal/common"
	"hookrelay/internal/domain/notification"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Upload providers.
const (
	UploadNone  = ""
	UploadImgur = "imgur"
	UploadS3    = "s3"
)

// Config holds all application configuration.
type Config struct {
	Webhook           notification.WebhookConfig `mapstructure:"webhook"`
	Upload            UploadConfig               `mapstructure:"upload"`
	Ask               AskConfig                  `mapstructure:"ask"`
	MCP               MCPConfig                  `mapstructure:"mcp"`
	HTTP              HTTPConfig                 `mapstructure:"http"`
	Server            ServerConfig               `mapstructure:"server"`
	Auth              AuthConfig                 `mapstructure:"auth"`
	CORS              CORSConfig                 `mapstructure:"cors"`
	RateLimit         RateLimitConfig            `mapstructure:"rate_limit"`
	Redis             RedisConfig                `mapstructure:"redis"`
	DeliveryRateLimit DeliveryRateLimitConfig    `mapstructure:"delivery_rate_limit"`
}

// UploadConfig selects and configures the image uploader.
type UploadConfig struct {
	Provider string      `mapstructure:"provider"`
	Imgur    ImgurConfig `mapstructure:"imgur"`
	S3       S3Config    `mapstructure:"s3"`
}

// ImgurConfig holds Imgur API settings. Anonymous uploads need no client id.
type ImgurConfig struct {
	ClientID string `mapstructure:"client_id"`
	APIURL   string `mapstructure:"api_url"`
}

// S3Config holds S3-compatible bucket settings.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	PublicURL    string `mapstructure:"public_url"`
	URLExpirySec int    `mapstructure:"url_expiry_sec"`
}

// AskConfig holds the ask/answer workflow settings.
// Port is the port written into question URLs and defaults to server.port.
type AskConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerURL string `mapstructure:"server_url"`
	Port      int    `mapstructure:"port"`
}

// MCPConfig controls the stdio tool server.
type MCPConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// HTTPConfig holds outbound HTTP client settings.
// TimeoutSec of 0 means webhook calls have no timeout.
type HTTPConfig struct {
	TimeoutSec int `mapstructure:"timeout_sec"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// CORSConfig holds CORS policy settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig holds inbound per-IP rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DeliveryRateLimitConfig caps outbound deliveries per destination.
// MaxPerHour of 0 disables the limiter and Redis is never contacted.
type DeliveryRateLimitConfig struct {
	MaxPerHour int `mapstructure:"max_per_hour"`
}

// HTTPTimeout returns the outbound webhook timeout, zero when unset.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSec) * time.Second
}

// Load reads configuration from hookrelay.yaml (or .json) and environment variables.
// Environment variables use the HOOKRELAY_ prefix and underscore separators.
// Example: HOOKRELAY_WEBHOOK_URL overrides webhook.url in hookrelay.yaml.
// The unprefixed WEBHOOK_URL, WEBHOOK_TYPE, FEISHU_WEBHOOK_URL, IMGUR_CLIENT_ID
// and IMGUR_API_URL variables are honoured as well and take precedence.
func Load() (*Config, error) {
	v := viper.New()

	// Config file settings
	v.SetConfigName("hookrelay")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.config/hookrelay")

	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment variable settings
	v.SetEnvPrefix("HOOKRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional, env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Comma-separated API keys from env vars arrive untrimmed
	cfg.Auth.APIKeys = splitList(strings.Join(cfg.Auth.APIKeys, ","))

	applyLegacyEnv(&cfg)

	if cfg.Ask.Port == 0 {
		cfg.Ask.Port = cfg.Server.Port
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.type", string(notification.ProviderGeneric))
	v.SetDefault("webhook.name", "")
	v.SetDefault("webhook.token", "")
	v.SetDefault("webhook.default_priority", 0)
	v.SetDefault("webhook.username", "")
	v.SetDefault("webhook.avatar_url", "")
	v.SetDefault("webhook.templates.title", "")
	v.SetDefault("webhook.templates.message", "")

	v.SetDefault("upload.provider", UploadNone)
	v.SetDefault("upload.imgur.client_id", "")
	v.SetDefault("upload.imgur.api_url", "")
	v.SetDefault("upload.s3.bucket", "")
	v.SetDefault("upload.s3.prefix", "hookrelay/")
	v.SetDefault("upload.s3.region", "us-east-1")
	v.SetDefault("upload.s3.endpoint", "")
	v.SetDefault("upload.s3.access_key", "")
	v.SetDefault("upload.s3.secret_key", "")
	v.SetDefault("upload.s3.public_url", "")
	v.SetDefault("upload.s3.url_expiry_sec", 86400)

	v.SetDefault("ask.enabled", false)
	v.SetDefault("ask.server_url", "http://localhost")
	v.SetDefault("ask.port", 0)

	v.SetDefault("mcp.enabled", true)
	v.SetDefault("http.timeout_sec", 0)

	v.SetDefault("server.port", 4591)
	v.SetDefault("server.mode", "release")
	v.SetDefault("auth.api_keys", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("delivery_rate_limit.max_per_hour", 0)
}

// applyLegacyEnv honours the unprefixed variables older deployments set.
func applyLegacyEnv(cfg *Config) {
	if url, ok := os.LookupEnv("WEBHOOK_URL"); ok && url != "" {
		cfg.Webhook.URL = url
	}
	if typ, ok := os.LookupEnv("WEBHOOK_TYPE"); ok && typ != "" {
		cfg.Webhook.Type = notification.ProviderType(strings.ToLower(typ))
	}
	if url, ok := os.LookupEnv("FEISHU_WEBHOOK_URL"); ok && url != "" {
		cfg.Webhook.URL = url
		cfg.Webhook.Type = notification.ProviderFeishu
	}

	if id, ok := os.LookupEnv("IMGUR_CLIENT_ID"); ok && id != "" {
		cfg.Upload.Imgur.ClientID = id
		if cfg.Upload.Provider == UploadNone {
			cfg.Upload.Provider = UploadImgur
		}
	}
	if api, ok := os.LookupEnv("IMGUR_API_URL"); ok && api != "" {
		cfg.Upload.Imgur.APIURL = api
	}
}

// Validate reports the first setting that makes the process unable to deliver.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Webhook.URL) == "" {
		return common.NewConfigurationError("webhook.url",
			"no webhook URL configured; set WEBHOOK_URL or webhook.url in hookrelay.yaml")
	}
	if c.Webhook.DefaultPriority < 0 || c.Webhook.DefaultPriority > 5 {
		return common.NewConfigurationError("webhook.default_priority", "must be between 1 and 5")
	}
	switch c.Upload.Provider {
	case UploadNone, UploadImgur:
	case UploadS3:
		if c.Upload.S3.Bucket == "" {
			return common.NewConfigurationError("upload.s3.bucket", "required when upload.provider is s3")
		}
	default:
		return common.NewConfigurationError("upload.provider",
			fmt.Sprintf("unsupported provider %q (use imgur or s3)", c.Upload.Provider))
	}
	if c.HTTP.TimeoutSec < 0 {
		return common.NewConfigurationError("http.timeout_sec", "must not be negative")
	}
	if (c.Ask.Enabled || len(c.Auth.APIKeys) > 0) && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return common.NewConfigurationError("server.port", "must be a valid TCP port")
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
