package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"estimator-core/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the service settings, read from the environment.
type Config struct {
	Port       string `mapstructure:"PORT"`
	Env        string `mapstructure:"ENV"`
	AppVersion string `mapstructure:"APP_VERSION"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogJSON    bool   `mapstructure:"LOG_JSON"`

	RedisAddr           string        `mapstructure:"REDIS_ADDR"`
	ClientRequestLimit  int           `mapstructure:"CLIENT_REQUEST_LIMIT"`
	TrustClientIDHeader bool          `mapstructure:"TRUST_CLIENT_ID_HEADER"`
	CacheTTL            time.Duration `mapstructure:"ESTIMATE_CACHE_TTL"`

	QdrantHost          string  `mapstructure:"QDRANT_HOST"`
	QdrantPort          int     `mapstructure:"QDRANT_PORT"`
	QdrantCollection    string  `mapstructure:"QDRANT_COLLECTION"`
	SimilarityThreshold float32 `mapstructure:"SIMILARITY_THRESHOLD"`
	SimilarCacheEnabled bool    `mapstructure:"SIMILAR_CACHE_ENABLED"`

	GoogleCloudProject  string        `mapstructure:"GOOGLE_CLOUD_PROJECT"`
	GoogleCloudLocation string        `mapstructure:"GOOGLE_CLOUD_LOCATION"`
	ClassifierModel     string        `mapstructure:"CLASSIFIER_MODEL"`
	FallbackModel       string        `mapstructure:"CLASSIFIER_FALLBACK_MODEL"`
	EmbeddingModel      string        `mapstructure:"EMBEDDING_MODEL"`
	UtilityModel        string        `mapstructure:"UTILITY_MODEL"`
	ClassifierTimeout   time.Duration `mapstructure:"CLASSIFIER_LOAD_TIMEOUT"`
	DeviceCheckEnabled  bool          `mapstructure:"DEVICE_CHECK_ENABLED"`

	FlatRatePerHour float64 `mapstructure:"FLAT_RATE_PER_HOUR"`
	HourlyAICost    float64 `mapstructure:"HOURLY_AI_API_COST"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads .env.dev / .env when present, then the process environment.
func Load() (*Config, error) {
	if err := loadDotenv(".env.dev", ".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotenv loads each file that exists. A missing file only logs a warning;
// an unreadable or malformed one fails the load.
func loadDotenv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			logger.Global().Warn().Str("file", f).Msg("env file not found, using system environment variables")
		default:
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: PORT is empty", ErrInvalidConfig)
	}
	if c.FlatRatePerHour < 0 || c.HourlyAICost < 0 {
		return fmt.Errorf("%w: hourly rates must not be negative", ErrInvalidConfig)
	}
	if c.ClientRequestLimit <= 0 {
		return fmt.Errorf("%w: CLIENT_REQUEST_LIMIT must be positive", ErrInvalidConfig)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: SIMILARITY_THRESHOLD must be in (0, 1]", ErrInvalidConfig)
	}
	return nil
}

// ClassifierEnabled reports whether a Vertex AI project is configured.
func (c *Config) ClassifierEnabled() bool {
	return c.GoogleCloudProject != "" && c.GoogleCloudLocation != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_VERSION", "v0.0.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("CLIENT_REQUEST_LIMIT", 500)
	v.SetDefault("TRUST_CLIENT_ID_HEADER", false)
	v.SetDefault("ESTIMATE_CACHE_TTL", "24h")

	v.SetDefault("QDRANT_HOST", "localhost")
	v.SetDefault("QDRANT_PORT", 6334)
	v.SetDefault("QDRANT_COLLECTION", "project_estimates")
	v.SetDefault("SIMILARITY_THRESHOLD", 0.95)
	v.SetDefault("SIMILAR_CACHE_ENABLED", false)

	v.SetDefault("GOOGLE_CLOUD_PROJECT", "")
	v.SetDefault("GOOGLE_CLOUD_LOCATION", "")
	v.SetDefault("CLASSIFIER_MODEL", "gemini-2.5-flash")
	v.SetDefault("CLASSIFIER_FALLBACK_MODEL", "gemini-2.0-flash-lite")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("UTILITY_MODEL", "gemini-2.5-flash")
	v.SetDefault("CLASSIFIER_LOAD_TIMEOUT", "30s")
	v.SetDefault("DEVICE_CHECK_ENABLED", true)

	v.SetDefault("FLAT_RATE_PER_HOUR", 50.0)
	v.SetDefault("HOURLY_AI_API_COST", 5.0)
}
