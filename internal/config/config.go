package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	ORS       ORSConfig       `yaml:"ors" mapstructure:"ors"`
	Overpass  OverpassConfig  `yaml:"overpass" mapstructure:"overpass"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Fallback  FallbackConfig  `yaml:"fallback" mapstructure:"fallback"`
	Results   ResultsConfig   `yaml:"results" mapstructure:"results"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// NominatimConfig holds geocoding service settings.
type NominatimConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ORSConfig holds openrouteservice isochrone settings.
type ORSConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
	Profile string `yaml:"profile" mapstructure:"profile"`
}

// OverpassConfig holds Overpass POI search settings.
type OverpassConfig struct {
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	QueryTimeoutSecs int    `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
}

// RetryConfig configures retries on outbound calls.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialDelaySecs int     `yaml:"initial_delay_secs" mapstructure:"initial_delay_secs"`
	BackoffFactor    float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
}

// FallbackConfig configures the stale-fallback cache around isochrone
// fetches.
type FallbackConfig struct {
	MaxSize  int `yaml:"max_size" mapstructure:"max_size"`
	TTLHours int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// ResultsConfig configures the recommendation result cache.
type ResultsConfig struct {
	MaxSize             int `yaml:"max_size" mapstructure:"max_size"`
	TTLSecs             int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	CleanupIntervalSecs int `yaml:"cleanup_interval_secs" mapstructure:"cleanup_interval_secs"`
}

// SearchConfig configures the recommendation geometry and result size.
type SearchConfig struct {
	IsochroneIntervals []int   `yaml:"isochrone_intervals" mapstructure:"isochrone_intervals"`
	Buffer             float64 `yaml:"buffer" mapstructure:"buffer"`
	TopN               int     `yaml:"top_n" mapstructure:"top_n"`
}

// ScoringConfig configures candidate scoring.
type ScoringConfig struct {
	MaxTier   int                `yaml:"max_tier" mapstructure:"max_tier"`
	MaxRating float64            `yaml:"max_rating" mapstructure:"max_rating"`
	Weights   map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// ReportConfig configures markdown report output.
type ReportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int    `yaml:"port" mapstructure:"port"`
	Env         string `yaml:"env" mapstructure:"env"`
	FrontendURL string `yaml:"frontend_url" mapstructure:"frontend_url"`
}

// CORSOrigins returns the allowed origins: everything in development, only
// the configured frontend in production.
func (s ServerConfig) CORSOrigins() []string {
	if s.Env == "prod" {
		return []string{s.FrontendURL}
	}
	return []string{"*"}
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INNSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "innsight")
	v.SetDefault("nominatim.timeout_secs", 10)
	v.SetDefault("nominatim.rate_limit", 1.0)
	v.SetDefault("ors.base_url", "https://api.openrouteservice.org/v2")
	v.SetDefault("ors.profile", "driving-car")
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.query_timeout_secs", 25)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay_secs", 1)
	v.SetDefault("retry.backoff_factor", 2.0)
	v.SetDefault("fallback.max_size", 128)
	v.SetDefault("fallback.ttl_hours", 24)
	v.SetDefault("results.max_size", 20)
	v.SetDefault("results.ttl_secs", 1800)
	v.SetDefault("results.cleanup_interval_secs", 60)
	v.SetDefault("search.isochrone_intervals", []int{15, 30, 60})
	v.SetDefault("search.buffer", 1e-5)
	v.SetDefault("search.top_n", 20)
	v.SetDefault("scoring.max_tier", 3)
	v.SetDefault("scoring.max_rating", 5.0)
	v.SetDefault("scoring.weights", map[string]float64{
		"tier":       4,
		"rating":     2,
		"parking":    1,
		"wheelchair": 1,
		"kids":       1,
		"pet":        1,
	})
	v.SetDefault("report.dir", "report")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "local")
	v.SetDefault("server.frontend_url", "http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Nominatim.BaseURL == "" {
		return eris.New("config: nominatim.base_url must not be empty")
	}
	if c.ORS.BaseURL == "" {
		return eris.New("config: ors.base_url must not be empty")
	}
	if c.Overpass.BaseURL == "" {
		return eris.New("config: overpass.base_url must not be empty")
	}
	if c.Nominatim.TimeoutSecs <= 0 {
		return eris.New("config: nominatim.timeout_secs must be positive")
	}
	if len(c.Search.IsochroneIntervals) == 0 {
		return eris.New("config: search.isochrone_intervals must not be empty")
	}
	for i := 1; i < len(c.Search.IsochroneIntervals); i++ {
		if c.Search.IsochroneIntervals[i] <= c.Search.IsochroneIntervals[i-1] {
			return eris.New("config: search.isochrone_intervals must be strictly ascending")
		}
	}
	for name, w := range c.Scoring.Weights {
		if w < 0 {
			return eris.Errorf("config: scoring weight %q must be non-negative", name)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
