package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"
)

// Config represents the service configuration.
type Config struct {
	Server      ServerConfig
	CORS        CORSConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Collector   CollectorConfig
	Methodology MethodologyConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"false"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend         string `env:"STORAGE_BACKEND"       envDefault:"local"` // local or s3
	DataDir         string `env:"DATA_DIR"              envDefault:"data"`
	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION"             envDefault:"us-east-1"`
	S3Prefix        string `env:"S3_PREFIX"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// RedisConfig contains the read-API response cache settings. An empty URL
// disables Redis and the API falls back to an in-process cache.
type RedisConfig struct {
	URL          string `env:"REDIS_URL"`
	CacheTTLSecs int    `env:"CACHE_TTL_SECONDS" envDefault:"60"`
}

// CollectorConfig contains data collection settings.
type CollectorConfig struct {
	OpenRouterURL  string  `env:"OPENROUTER_URL"   envDefault:"https://openrouter.ai/api/v1/models"`
	TimeoutSecs    int     `env:"COLLECT_TIMEOUT"  envDefault:"30"`
	DriftThreshold float64 `env:"DRIFT_THRESHOLD"  envDefault:"0.05"`
	PricingDir     string  `env:"PRICING_DIR"      envDefault:"data/fixtures"`
	FixturePath    string  `env:"FIXTURE_PATH"     envDefault:"data/fixtures/observations.sample.json"`
	OpenAIAPIKey   string  `env:"OPENAI_API_KEY"`
}

// MethodologyConfig locates the methodology document.
type MethodologyConfig struct {
	Path string `env:"METHODOLOGY_PATH" envDefault:"data/fixtures/methodology.yaml"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*StorageConfig
	*RedisConfig
	*CollectorConfig
	*MethodologyConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Storage,
		&cfg.Redis,
		&cfg.Collector,
		&cfg.Methodology,
	}
}
