package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Transport TransportConfig `mapstructure:"transport"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	SubjectBase string `mapstructure:"subject_base"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

type SourcesConfig struct {
	OpenPhish SourceConfig `mapstructure:"openphish"`
	AbuseIPDB SourceConfig `mapstructure:"abuseipdb"`
	URLhaus   SourceConfig `mapstructure:"urlhaus"`
	NumLookup SourceConfig `mapstructure:"numlookup"`
	EmailRep  SourceConfig `mapstructure:"emailrep"`
}

type SourceConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIURL      string        `mapstructure:"api_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Reliability float64       `mapstructure:"reliability"`
}

type ScoringConfig struct {
	CacheTTL          time.Duration      `mapstructure:"cache_ttl"`
	SourceReliability map[string]float64 `mapstructure:"source_reliability"`
}

type RulesConfig struct {
	File string `mapstructure:"file"`
}

type DispatchConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type TransportConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	ReconnectBase     time.Duration `mapstructure:"reconnect_base"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
}

type ChannelsConfig struct {
	Push  ChannelProviderConfig `mapstructure:"push"`
	Email ChannelProviderConfig `mapstructure:"email"`
	SMS   ChannelProviderConfig `mapstructure:"sms"`
}

type ChannelProviderConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/scamguard")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("SCAMGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.host", "SCAMGUARD_REDIS_HOST")
	v.BindEnv("redis.port", "SCAMGUARD_REDIS_PORT")
	v.BindEnv("redis.password", "SCAMGUARD_REDIS_PASSWORD")
	v.BindEnv("database.host", "SCAMGUARD_DATABASE_HOST")
	v.BindEnv("database.port", "SCAMGUARD_DATABASE_PORT")
	v.BindEnv("database.user", "SCAMGUARD_DATABASE_USER")
	v.BindEnv("database.password", "SCAMGUARD_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "SCAMGUARD_DATABASE_DBNAME")
	v.BindEnv("nats.enabled", "SCAMGUARD_NATS_ENABLED")
	v.BindEnv("nats.url", "SCAMGUARD_NATS_URL")
	v.BindEnv("app.environment", "SCAMGUARD_APP_ENVIRONMENT")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with the default search path
func LoadDefault() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "scamguard")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("redis.key_prefix", "scamguard:")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("scoring.cache_ttl", time.Hour)

	v.SetDefault("dispatch.tick_interval", time.Second)

	v.SetDefault("transport.heartbeat_interval", 30*time.Second)
	v.SetDefault("transport.reconnect_base", time.Second)
	v.SetDefault("transport.max_reconnects", 5)
}
