package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bookpromo/pkg/domain"
)

// ConfigPath is the default config location; PROMO_CONFIG overrides it.
const ConfigPath = "config.yaml"

// State backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Generation providers.
const (
	ProviderGemini       = "gemini"
	ProviderOpenAICompat = "openai_compat"
)

// Notify backends.
const (
	NotifyNone  = "none"
	NotifyAMQP  = "amqp"
	NotifyRedis = "redis"
)

// MinioConfig configures the optional post media bucket.
type MinioConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"useSSL"`
	ExpiryMinutes int    `yaml:"urlExpiryMinutes"`
}

// Enabled reports whether media uploads are configured.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	GenerationProvider       string `yaml:"generationProvider"`
	GenerationBaseURL        string `yaml:"generationBaseURL"`
	GenerationAPIKey         string `yaml:"generationAPIKey"`
	GeminiAPIKey             string `yaml:"geminiAPIKey"`
	TextModel                string `yaml:"textModel"`
	ImageModel               string `yaml:"imageModel"`
	GenerationTimeoutSeconds int    `yaml:"generationTimeoutSeconds"`

	StateBackend       string `yaml:"stateBackend"`
	DatabaseURL        string `yaml:"databaseURL"`
	RedisAddr          string `yaml:"redisAddr"`
	RedisPassword      string `yaml:"redisPassword"`
	StateTTLHours      int    `yaml:"stateTTLHours"`
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute"`
	DeployDelayMs      int    `yaml:"deployDelayMs"`

	NotifyBackend string `yaml:"notifyBackend"`
	AMQPURL       string `yaml:"amqpURL"`
	AMQPExchange  string `yaml:"amqpExchange"`
	EventStream   string `yaml:"eventStream"`

	Minio MinioConfig `yaml:"minio"`

	CORSOrigins       []string          `yaml:"corsOrigins"`
	TrustedProxyCIDRs []string          `yaml:"trustedProxyCidrs"`
	ChannelHandles    map[string]string `yaml:"channelHandles"`

	Book domain.BookProfile `yaml:"book"`
}

// DefaultBook is served when the config file has no book section.
var DefaultBook = domain.BookProfile{
	Title:          "Rich By Design",
	Subtitle:       "The 7 Laws of Money",
	Author:         "Morgan Haze",
	Description:    "Wealth is not an accident. It is an architecture. Rich By Design lays out seven laws that turn income into lasting, structural wealth and a life built on purpose.",
	TargetAudience: "Ambitious professionals and entrepreneurs who earn well but feel they are fighting a losing battle with money.",
	KeyTakeaways: []string{
		"Pay yourself first, before any other obligation.",
		"Follow the 70-10-10-10 rule: live on 70%, save 10%, invest 10%, give 10%.",
		"Stop trading time for money; build assets that work for you.",
		"Holistic wealth spans physical, emotional, spiritual, social and financial health.",
		"Design the structure first and the results follow.",
		"Protect what you build before you grow it.",
		"Leave a legacy, not just an inheritance.",
	},
	PurchaseLink: "https://www.amazon.com/s?k=Rich+By+Design+Morgan+Haze",
}

// Path returns the config path, honouring PROMO_CONFIG.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("PROMO_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads config from path (defaults to config.yaml). A .env file in the
// working directory is loaded first; existing environment variables win.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	str("PORT", &cfg.Port)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("GENERATION_PROVIDER", &cfg.GenerationProvider)
	str("GENERATION_BASE_URL", &cfg.GenerationBaseURL)
	str("GENERATION_API_KEY", &cfg.GenerationAPIKey)
	str("GEMINI_API_KEY", &cfg.GeminiAPIKey)
	str("GEMINI_TEXT_MODEL", &cfg.TextModel)
	str("GEMINI_IMAGE_MODEL", &cfg.ImageModel)
	str("STATE_BACKEND", &cfg.StateBackend)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	str("NOTIFY_BACKEND", &cfg.NotifyBackend)
	str("AMQP_URL", &cfg.AMQPURL)
	str("MINIO_ENDPOINT", &cfg.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &cfg.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &cfg.Minio.SecretKey)
	str("MINIO_BUCKET", &cfg.Minio.Bucket)
	num("DEPLOY_DELAY_MS", &cfg.DeployDelayMs)
	num("RATE_LIMIT_PER_MINUTE", &cfg.RateLimitPerMinute)
	if v := strings.TrimSpace(os.Getenv("MINIO_USE_SSL")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Minio.UseSSL = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.GenerationProvider = strings.ToLower(strings.TrimSpace(cfg.GenerationProvider))
	if cfg.GenerationProvider == "" {
		cfg.GenerationProvider = ProviderGemini
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" && cfg.GenerationProvider == ProviderGemini {
		cfg.ImageModel = "gemini-2.5-flash-image"
	}
	if cfg.GenerationTimeoutSeconds == 0 {
		cfg.GenerationTimeoutSeconds = 60
	}
	cfg.StateBackend = strings.ToLower(strings.TrimSpace(cfg.StateBackend))
	if cfg.StateBackend == "" {
		cfg.StateBackend = BackendMemory
	}
	cfg.NotifyBackend = strings.ToLower(strings.TrimSpace(cfg.NotifyBackend))
	if cfg.NotifyBackend == "" {
		cfg.NotifyBackend = NotifyNone
	}
	if cfg.EventStream == "" {
		cfg.EventStream = "bookpromo:events"
	}
	if cfg.DeployDelayMs == 0 {
		cfg.DeployDelayMs = 1500
	}
	if cfg.Minio.ExpiryMinutes == 0 {
		cfg.Minio.ExpiryMinutes = 24 * 60
	}
	if strings.TrimSpace(cfg.Book.Title) == "" {
		cfg.Book = DefaultBook
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	switch cfg.GenerationProvider {
	case ProviderGemini:
	case ProviderOpenAICompat:
		if cfg.GenerationBaseURL == "" {
			return errors.New("config: generationBaseURL is required for the openai_compat provider")
		}
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if cfg.GenerationTimeoutSeconds < 0 {
		return errors.New("config: generationTimeoutSeconds must not be negative")
	}
	switch cfg.StateBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for the redis state backend")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the postgres state backend (set in config.yaml or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: unknown stateBackend %q", cfg.StateBackend)
	}
	switch cfg.NotifyBackend {
	case NotifyNone:
	case NotifyAMQP:
		if cfg.AMQPURL == "" {
			return errors.New("config: amqpURL is required for the amqp notify backend")
		}
	case NotifyRedis:
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for the redis notify backend")
		}
	default:
		return fmt.Errorf("config: unknown notifyBackend %q", cfg.NotifyBackend)
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must not be negative")
	}
	if cfg.RateLimitPerMinute > 0 && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when rateLimitPerMinute is set")
	}
	if cfg.DeployDelayMs < 0 {
		return errors.New("config: deployDelayMs must not be negative")
	}
	if cfg.Minio.Enabled() && (cfg.Minio.Bucket == "" || cfg.Minio.AccessKey == "" || cfg.Minio.SecretKey == "") {
		return errors.New("config: minio requires bucket, accessKey and secretKey")
	}
	return nil
}

// GenerationTimeout returns the provider HTTP timeout.
func (c FileConfig) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// DeployDelay returns the simulated publish latency.
func (c FileConfig) DeployDelay() time.Duration {
	return time.Duration(c.DeployDelayMs) * time.Millisecond
}

// MediaURLExpiry returns the presigned URL lifetime.
func (c FileConfig) MediaURLExpiry() time.Duration {
	return time.Duration(c.Minio.ExpiryMinutes) * time.Minute
}

// StateTTL returns the Redis state expiry; zero keeps state forever.
func (c FileConfig) StateTTL() time.Duration {
	return time.Duration(c.StateTTLHours) * time.Hour
}

// GeneratorAPIKey returns the key for the selected provider.
func (c FileConfig) GeneratorAPIKey() string {
	if c.GenerationProvider == ProviderOpenAICompat {
		return c.GenerationAPIKey
	}
	return c.GeminiAPIKey
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
