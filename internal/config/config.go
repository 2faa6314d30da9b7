package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:147.0) Gecko/20100101 Firefox/147.0"

// Default DNS-over-HTTPS endpoints. The fallback is tried when the primary fails to answer.
const (
	DefaultDoHURL         = "https://1.1.1.1/dns-query"
	DefaultDoHFallbackURL = "https://dns.google/dns-query"
)

// RankingConfig is the per-provider server ranking policy.
type RankingConfig struct {
	FourK     string   `mapstructure:"four_k"` // "drop", "deprioritize" or "keep"
	Preferred []string `mapstructure:"preferred"`
}

// ProviderConfig holds per-provider overrides.
type ProviderConfig struct {
	Domain            string        `mapstructure:"domain"`
	UnsafeTLSFallback *bool         `mapstructure:"unsafe_tls_fallback"`
	Disabled          bool          `mapstructure:"disabled"`
	Ranking           RankingConfig `mapstructure:"ranking"`
}

type Config struct {
	ProxyConnectionString string `mapstructure:"proxy_connection_string"`
	ClientTimeout         string `mapstructure:"client_timeout"` // Go duration string like "30s", "1h", etc.
	UserAgent             string `mapstructure:"user_agent"`
	Language              string `mapstructure:"language"`
	ActiveProvider        string `mapstructure:"active_provider"`
	DoH                   struct {
		Enabled     bool   `mapstructure:"enabled"`
		URL         string `mapstructure:"url"`
		FallbackURL string `mapstructure:"fallback_url"`
	} `mapstructure:"doh"`
	Retry struct {
		MaxRetries int    `mapstructure:"max_retries"`
		Delay      string `mapstructure:"delay"`
	} `mapstructure:"retry"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Search    struct {
		Concurrency int    `mapstructure:"concurrency"`
		Timeout     string `mapstructure:"timeout"`
	} `mapstructure:"search"`
	Server struct {
		Port    int    `mapstructure:"port"`
		Address string `mapstructure:"address"`
	} `mapstructure:"server"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  struct {
		Path       string `mapstructure:"path"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
		Compress   bool   `mapstructure:"compress"`
	} `mapstructure:"log_file"`
	Cache struct {
		Type  string `mapstructure:"type"` // "memory" or "redis"
		Size  int    `mapstructure:"size"` // Maximum number of entries in the LRU cache
		TTL   string `mapstructure:"ttl"`  // Go duration string like "1h", "24h", etc.
		Redis struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Discovery struct {
		Interval string `mapstructure:"interval"`
	} `mapstructure:"discovery"`
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
	logRotator   *lumberjack.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stdout,
		NoColor: false,
	}).With().Timestamp().Logger()

	// A .env file only fills variables the environment does not already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level := zerolog.InfoLevel
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}
	zerolog.SetGlobalLevel(level)

	logger = newLogger(config, level)
	logger.Info().Str("level", level.String()).Msg("Logging configured")
	globalConfig = config
	logger.Info().Msg("Configuration loaded successfully")
}

// newLogger builds the console logger and, when a log file path is configured,
// tees the output into a rotating file.
func newLogger(cfg *Config, level zerolog.Level) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout}

	if cfg.LogFile.Path != "" {
		if err := os.MkdirAll(cfg.LogFile.Path, 0o755); err != nil {
			logger.Warn().Err(err).Str("path", cfg.LogFile.Path).Msg("Cannot create log directory, logging to console only")
		} else {
			logRotator = &lumberjack.Logger{
				Filename:   filepath.Join(cfg.LogFile.Path, "streamscraper.log"),
				MaxSize:    positiveOr(cfg.LogFile.MaxSizeMB, 10),
				MaxBackups: positiveOr(cfg.LogFile.MaxBackups, 5),
				MaxAge:     positiveOr(cfg.LogFile.MaxAgeDays, 30),
				Compress:   cfg.LogFile.Compress,
				LocalTime:  true,
			}
			out = zerolog.MultiLevelWriter(out, logRotator)
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Add specific environment variable for log level
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client_timeout", "30s")
	v.SetDefault("language", "it")
	v.SetDefault("doh.enabled", true)
	v.SetDefault("doh.url", DefaultDoHURL)
	v.SetDefault("doh.fallback_url", DefaultDoHFallbackURL)
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.delay", "500ms")
	v.SetDefault("search.concurrency", 8)
	v.SetDefault("search.timeout", "45s")
	v.SetDefault("server.address", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.size", 500)
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("database.path", "data/streamscraper.db")
	v.SetDefault("discovery.interval", "6h")
}

func GetConfig() *Config {
	return globalConfig
}

func GetUserAgent() string {
	if globalConfig != nil && globalConfig.UserAgent != "" {
		return globalConfig.UserAgent
	}

	return DefaultUserAgent
}

func GetLogger() zerolog.Logger {
	return logger
}

// CloseLogFile flushes and closes the rotating log file, if any.
func CloseLogFile() error {
	if logRotator != nil {
		return logRotator.Close()
	}
	return nil
}

// ProviderSettings returns the overrides configured for the named provider.
// Provider names are matched case-insensitively because viper lowercases map keys.
func (c *Config) ProviderSettings(name string) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[strings.ToLower(name)]
}

// DoHURLs returns the DNS-over-HTTPS endpoints in resolution order, or nil when DoH is disabled.
func (c *Config) DoHURLs() []string {
	if c == nil || !c.DoH.Enabled {
		return nil
	}
	var urls []string
	for _, u := range []string{c.DoH.URL, c.DoH.FallbackURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Duration parses a Go duration string, logging and returning fallback when it is empty or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("value", value).Dur("fallback", fallback).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
