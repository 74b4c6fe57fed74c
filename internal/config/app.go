package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverMemcached = "memcached"

	defaultConfigFile = "config.yaml"
	configPathEnv     = "FXSYNC_CONFIG"
)

var ErrAppIDRequired = errors.New("exchange rate api app id is required")

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// GetConnectionStr leaves pool_max_conns out when MaxConns is unset so pgxpool applies its default.
func (config *DbServer) GetConnectionStr() string {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
	if config.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", config.MaxConns)
	}
	return dsn
}

type HTTPClient struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

func (c HTTPClient) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type ExchangeRateAPI struct {
	BaseURL string `mapstructure:"base_url"`
	AppID   string `mapstructure:"app_id"`
}

type Store struct {
	Driver     string `mapstructure:"driver"`
	CacheItems int64  `mapstructure:"cache_items"`
}

type Memcached struct {
	Hosts  []string `mapstructure:"hosts"`
	Prefix string   `mapstructure:"prefix"`
}

type Sync struct {
	StaleAfterMinutes   int    `mapstructure:"stale_after_minutes"`
	FetchTimeoutSeconds int    `mapstructure:"fetch_timeout_seconds"`
	EventBuffer         int    `mapstructure:"event_buffer"`
	DefaultCurrency     string `mapstructure:"default_currency"`
}

func (s Sync) StaleAfter() time.Duration {
	return time.Duration(s.StaleAfterMinutes) * time.Minute
}

func (s Sync) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutSeconds) * time.Second
}

type Scheduler struct {
	JobDurationSec int `mapstructure:"job_duration_sec"`
}

func (s Scheduler) JobDuration() time.Duration {
	return time.Duration(s.JobDurationSec) * time.Second
}

type Logging struct {
	Level string `mapstructure:"level"`
}

type AppConfig struct {
	HTTPServer      HTTPServer      `mapstructure:"http_server"`
	DbServer        DbServer        `mapstructure:"db_server"`
	HTTPClient      HTTPClient      `mapstructure:"http_client"`
	ExchangeRateAPI ExchangeRateAPI `mapstructure:"exchange_rate_api"`
	Store           Store           `mapstructure:"store"`
	Memcached       Memcached       `mapstructure:"memcached"`
	Sync            Sync            `mapstructure:"sync"`
	Scheduler       Scheduler       `mapstructure:"scheduler"`
	Logging         Logging         `mapstructure:"logging"`
}

// Init reads .env (when present) and the config file named by FXSYNC_CONFIG, or config.yaml.
func Init() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	path := os.Getenv(configPathEnv)
	if path == "" {
		path = defaultConfigFile
	}
	return Load(path)
}

// Load builds the config from the YAML file at path, environment variables and defaults.
// A missing file is not an error, everything can come from the environment.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetDefault("http_server.port", "8080")
	v.SetDefault("db_server.max_conns", 10)
	v.SetDefault("http_client.timeout_seconds", 10)
	v.SetDefault("exchange_rate_api.base_url", "https://openexchangerates.org/api")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.cache_items", 128)
	v.SetDefault("memcached.prefix", "fxsync:")
	v.SetDefault("sync.stale_after_minutes", 30)
	v.SetDefault("sync.fetch_timeout_seconds", 5)
	v.SetDefault("sync.event_buffer", 16)
	v.SetDefault("sync.default_currency", "USD")
	v.SetDefault("scheduler.job_duration_sec", 60)
	v.SetDefault("logging.level", "info")

	// http server env vars
	_ = v.BindEnv("http_server.port", "HTTP_PORT")

	// db server env vars
	_ = v.BindEnv("db_server.host", "DB_HOST")
	_ = v.BindEnv("db_server.port", "DB_PORT")
	_ = v.BindEnv("db_server.user", "DB_USER")
	_ = v.BindEnv("db_server.pass", "DB_PASS")
	_ = v.BindEnv("db_server.name", "DB_NAME")
	_ = v.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// http client env vars
	_ = v.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")

	// remote api env vars
	_ = v.BindEnv("exchange_rate_api.base_url", "OXR_BASE_URL")
	_ = v.BindEnv("exchange_rate_api.app_id", "OXR_APP_ID")

	// store env vars
	_ = v.BindEnv("store.driver", "STORE_DRIVER")
	_ = v.BindEnv("memcached.hosts", "MEMCACHED_HOSTS")

	_ = v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.ExchangeRateAPI.AppID == "" {
		return ErrAppIDRequired
	}
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres:
	case DriverMemcached:
		if len(c.Memcached.Hosts) == 0 {
			return errors.New("memcached hosts are required for the memcached store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}
