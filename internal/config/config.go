package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort   string `yaml:"api_port" validate:"required,numeric"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json text"`

	YearMin                   int     `yaml:"year_min" validate:"gte=1900"`
	YearMax                   int     `yaml:"year_max" validate:"gtefield=YearMin,lte=9999"`
	IDTimeoutSeconds          int     `yaml:"id_timeout_seconds" validate:"gte=1"`
	HandwritingTimeoutSeconds int     `yaml:"handwriting_timeout_seconds" validate:"gte=1"`
	IDMinConfidence           float64 `yaml:"id_min_confidence" validate:"gte=0,lte=1"`
	MaxPages                  int     `yaml:"max_pages" validate:"gte=0"`
	RenderDPI                 float64 `yaml:"render_dpi" validate:"gte=36,lte=600"`

	GoogleCloudProjectID             string `yaml:"google_cloud_project_id"`
	GoogleCloudLocation              string `yaml:"google_cloud_location"`
	GoogleCloudProcessorID           string `yaml:"google_cloud_processor_id"`
	GoogleApplicationCredentialsJSON string `yaml:"google_application_credentials_json"`

	HandwritingProvider string `yaml:"handwriting_provider" validate:"oneof=openai ollama gemini none"`
	OpenAIAPIKey        string `yaml:"openai_api_key"`
	OpenAIBaseURL       string `yaml:"openai_base_url" validate:"omitempty,url"`
	OpenAIModel         string `yaml:"openai_model"`
	OllamaURL           string `yaml:"ollama_url" validate:"omitempty,url"`
	OllamaVisionModel   string `yaml:"ollama_vision_model"`
	GeminiAPIKey        string `yaml:"gemini_api_key"`
	GeminiModel         string `yaml:"gemini_model"`

	PostgresDSN   string `yaml:"postgres_dsn"`
	NATSURL       string `yaml:"nats_url"`
	NATSSubject   string `yaml:"nats_subject" validate:"required"`
	EventsEnabled bool   `yaml:"events_enabled"`

	DiscordWebhookURL string `yaml:"discord_webhook_url" validate:"omitempty,url"`

	APIRateLimitRPS          float64 `yaml:"api_rate_limit_rps" validate:"gte=0"`
	APIRateLimitBurst        int     `yaml:"api_rate_limit_burst" validate:"gte=0"`
	FileRateLimitCount       int     `yaml:"file_rate_limit_count" validate:"gte=0"`
	FileRateLimitWindowHours int     `yaml:"file_rate_limit_window_hours" validate:"gte=0"`
	APIMaxInflight           int     `yaml:"api_max_inflight" validate:"gte=0"`
	APIBackpressureWaitMS    int     `yaml:"api_backpressure_wait_ms" validate:"gte=0"`
	APIMaxConnections        int     `yaml:"api_max_connections" validate:"gte=0"`

	BreakerEnabled            bool    `yaml:"breaker_enabled"`
	BreakerMinRequests        int     `yaml:"breaker_min_requests" validate:"gte=0"`
	BreakerFailureRatio       float64 `yaml:"breaker_failure_ratio" validate:"gte=0,lte=1"`
	BreakerOpenTimeoutSeconds int     `yaml:"breaker_open_timeout_seconds" validate:"gte=0"`

	WorkerMetricsPort string `yaml:"worker_metrics_port" validate:"omitempty,numeric"`
}

func Default() Config {
	return Config{
		APIPort:   "8080",
		LogLevel:  "info",
		LogFormat: "json",

		YearMin:                   1990,
		YearMax:                   2099,
		IDTimeoutSeconds:          20,
		HandwritingTimeoutSeconds: 30,
		IDMinConfidence:           0.5,
		RenderDPI:                 144,

		GoogleCloudLocation: "us",

		HandwritingProvider: "openai",
		OpenAIBaseURL:       "https://api.openai.com/v1",
		OpenAIModel:         "gpt-4o-mini",
		OllamaURL:           "http://localhost:11434",
		OllamaVisionModel:   "llava:7b",
		GeminiModel:         "gemini-1.5-flash",

		NATSURL:       "nats://localhost:4222",
		NATSSubject:   "documents.classified",
		EventsEnabled: true,

		APIRateLimitRPS:          5,
		APIRateLimitBurst:        10,
		FileRateLimitCount:       10,
		FileRateLimitWindowHours: 48,
		APIMaxInflight:           32,
		APIBackpressureWaitMS:    250,
		APIMaxConnections:        256,

		BreakerEnabled:            true,
		BreakerMinRequests:        10,
		BreakerFailureRatio:       0.5,
		BreakerOpenTimeoutSeconds: 30,

		WorkerMetricsPort: "9090",
	}
}

// Load applies defaults, then the YAML file named by CONFIG_FILE, then the environment.
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = strings.ToLower(mustEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(mustEnv("LOG_FORMAT", cfg.LogFormat))

	cfg.YearMin = mustEnvInt("YEAR_MIN", cfg.YearMin)
	cfg.YearMax = mustEnvInt("YEAR_MAX", cfg.YearMax)
	cfg.IDTimeoutSeconds = mustEnvInt("ID_TIMEOUT_SECONDS", cfg.IDTimeoutSeconds)
	cfg.HandwritingTimeoutSeconds = mustEnvInt("HANDWRITING_TIMEOUT_SECONDS", cfg.HandwritingTimeoutSeconds)
	cfg.IDMinConfidence = mustEnvFloat("ID_MIN_CONFIDENCE", cfg.IDMinConfidence)
	cfg.MaxPages = mustEnvInt("MAX_PAGES", cfg.MaxPages)
	cfg.RenderDPI = mustEnvFloat("RENDER_DPI", cfg.RenderDPI)

	cfg.GoogleCloudProjectID = mustEnv("GOOGLE_CLOUD_PROJECT_ID", cfg.GoogleCloudProjectID)
	cfg.GoogleCloudLocation = mustEnv("GOOGLE_CLOUD_LOCATION", cfg.GoogleCloudLocation)
	cfg.GoogleCloudProcessorID = mustEnv("GOOGLE_CLOUD_PROCESSOR_ID", cfg.GoogleCloudProcessorID)
	cfg.GoogleApplicationCredentialsJSON = mustEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", cfg.GoogleApplicationCredentialsJSON)

	cfg.HandwritingProvider = strings.ToLower(mustEnv("HANDWRITING_PROVIDER", cfg.HandwritingProvider))
	cfg.OpenAIAPIKey = mustEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = mustEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIModel = mustEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OllamaURL = mustEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaVisionModel = mustEnv("OLLAMA_VISION_MODEL", cfg.OllamaVisionModel)
	cfg.GeminiAPIKey = mustEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = mustEnv("GEMINI_MODEL", cfg.GeminiModel)

	cfg.PostgresDSN = mustEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", cfg.NATSSubject)
	cfg.EventsEnabled = mustEnvBool("EVENTS_ENABLED", cfg.EventsEnabled)

	cfg.DiscordWebhookURL = mustEnv("DISCORD_WEBHOOK_URL", mustEnv("DISCORDWEBHOOK", cfg.DiscordWebhookURL))

	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.FileRateLimitCount = mustEnvInt("FILE_RATE_LIMIT_COUNT", cfg.FileRateLimitCount)
	cfg.FileRateLimitWindowHours = mustEnvInt("FILE_RATE_LIMIT_WINDOW_HOURS", cfg.FileRateLimitWindowHours)
	cfg.APIMaxInflight = mustEnvInt("API_MAX_INFLIGHT", cfg.APIMaxInflight)
	cfg.APIBackpressureWaitMS = mustEnvInt("API_BACKPRESSURE_WAIT_MS", cfg.APIBackpressureWaitMS)
	cfg.APIMaxConnections = mustEnvInt("API_MAX_CONNECTIONS", cfg.APIMaxConnections)

	cfg.BreakerEnabled = mustEnvBool("BREAKER_ENABLED", cfg.BreakerEnabled)
	cfg.BreakerMinRequests = mustEnvInt("BREAKER_MIN_REQUESTS", cfg.BreakerMinRequests)
	cfg.BreakerFailureRatio = mustEnvFloat("BREAKER_FAILURE_RATIO", cfg.BreakerFailureRatio)
	cfg.BreakerOpenTimeoutSeconds = mustEnvInt("BREAKER_OPEN_TIMEOUT_SECONDS", cfg.BreakerOpenTimeoutSeconds)

	cfg.WorkerMetricsPort = mustEnv("WORKER_METRICS_PORT", cfg.WorkerMetricsPort)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateWorker checks the settings the event consumer cannot run without.
func (c Config) ValidateWorker() error {
	var errs []error
	if err := validate.Var(c.PostgresDSN, "required"); err != nil {
		errs = append(errs, fmt.Errorf("POSTGRES_DSN: %w", err))
	}
	if err := validate.Var(c.NATSURL, "required"); err != nil {
		errs = append(errs, fmt.Errorf("NATS_URL: %w", err))
	}
	return errors.Join(errs...)
}

// DocumentAIEnabled reports whether ID detection has a processor to call.
func (c Config) DocumentAIEnabled() bool {
	return c.GoogleCloudProjectID != "" && c.GoogleCloudProcessorID != ""
}

func (c Config) IDTimeout() time.Duration {
	return time.Duration(c.IDTimeoutSeconds) * time.Second
}

func (c Config) HandwritingTimeout() time.Duration {
	return time.Duration(c.HandwritingTimeoutSeconds) * time.Second
}

func (c Config) FileRateLimitWindow() time.Duration {
	return time.Duration(c.FileRateLimitWindowHours) * time.Hour
}

func (c Config) BackpressureWait() time.Duration {
	return time.Duration(c.APIBackpressureWaitMS) * time.Millisecond
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
