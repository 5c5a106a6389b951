package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix префикс переменных окружения, например TUTORING_DATABASE_PASSWORD.
// У листовых полей не должно быть тега envconfig: с ним envconfig читает и ключ без префикса (USER, PATH).
const EnvPrefix = "TUTORING"

var (
	// ErrReadConfig возвращается, если не удалось прочитать файл конфигурации
	ErrReadConfig = errors.New("config: failed to read config file")

	// ErrEnvOverride возвращается при ошибке разбора переменных окружения
	ErrEnvOverride = errors.New("config: failed to apply environment overrides")

	// ErrInvalidConfig возвращается при невалидной конфигурации
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

type Config struct {
	Server         ServerConfig         `toml:"server" envconfig:"SERVER"`
	Database       DatabaseConfig       `toml:"database" envconfig:"DATABASE"`
	Logs           LogsConfig           `toml:"logs" envconfig:"LOGS"`
	Metrics        MetricsConfig        `toml:"metrics" envconfig:"METRICS"`
	Auth           AuthConfig           `toml:"auth" envconfig:"AUTH"`
	Allocation     AllocationConfig     `toml:"allocation" envconfig:"ALLOCATION"`
	Workers        WorkersConfig        `toml:"workers" envconfig:"WORKERS"`
	Redis          RedisConfig          `toml:"redis" envconfig:"REDIS"`
	Telegram       TelegramConfig       `toml:"telegram" envconfig:"TELEGRAM"`
	RabbitMQ       RabbitMQConfig       `toml:"rabbitmq" envconfig:"RABBITMQ"`
	CatalogService CatalogServiceConfig `toml:"catalog_service" envconfig:"CATALOG_SERVICE"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port" split_words:"true"`
	ReadTimeout     int `toml:"read_timeout" split_words:"true"`
	WriteTimeout    int `toml:"write_timeout" split_words:"true"`
	IdleTimeout     int `toml:"idle_timeout" split_words:"true"`
	ShutdownTimeout int `toml:"shutdown_timeout" split_words:"true"`
}

type DatabaseConfig struct {
	Host            string `toml:"host" split_words:"true"`
	Port            int    `toml:"port" split_words:"true"`
	User            string `toml:"user" split_words:"true"`
	Password        string `toml:"password" split_words:"true"`
	DBName          string `toml:"dbname" split_words:"true"`
	SSLMode         string `toml:"sslmode" split_words:"true"`
	MaxOpenConns    int    `toml:"max_open_conns" split_words:"true"`
	MaxIdleConns    int    `toml:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime" split_words:"true"`
	TxMaxRetries    int    `toml:"tx_max_retries" split_words:"true"`
	AutoMigrate     bool   `toml:"auto_migrate" split_words:"true"`
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type LogsConfig struct {
	File   string `toml:"file" split_words:"true"`
	Level  string `toml:"level" split_words:"true"`
	Format string `toml:"format" split_words:"true"` // json | console
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled" split_words:"true"`
	Path        string `toml:"path" split_words:"true"`
	ServiceName string `toml:"service_name" split_words:"true"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret" split_words:"true"`
	Issuer    string `toml:"issuer" split_words:"true"`
}

type AllocationConfig struct {
	// random | load
	Selector                   string `toml:"selector" split_words:"true"`
	MaxCommitAttempts          int    `toml:"max_commit_attempts" split_words:"true"`
	CountRequestedAsCommitment *bool  `toml:"count_requested_as_commitment" split_words:"true"`
}

// RequestedBlocks возвращает true, если requested-бронирования блокируют время преподавателя
func (a AllocationConfig) RequestedBlocks() bool {
	return a.CountRequestedAsCommitment == nil || *a.CountRequestedAsCommitment
}

type WorkersConfig struct {
	ArchiveInterval     int `toml:"archive_interval" split_words:"true"`     // секунды
	RebroadcastInterval int `toml:"rebroadcast_interval" split_words:"true"` // секунды, 0 - выключено
	NotificationWorkers int `toml:"notification_workers" split_words:"true"`
	NotificationQueue   int `toml:"notification_queue" split_words:"true"`
	NotificationTimeout int `toml:"notification_timeout" split_words:"true"` // секунды
}

type RedisConfig struct {
	Enabled      bool   `toml:"enabled" split_words:"true"`
	Addr         string `toml:"addr" split_words:"true"`
	Password     string `toml:"password" split_words:"true"`
	DB           int    `toml:"db" split_words:"true"`
	BroadcastTTL int    `toml:"broadcast_ttl" split_words:"true"` // секунды
}

type TelegramConfig struct {
	Enabled bool   `toml:"enabled" split_words:"true"`
	Token   string `toml:"token" split_words:"true"`
}

type RabbitMQConfig struct {
	Enabled  bool   `toml:"enabled" split_words:"true"`
	URL      string `toml:"url" split_words:"true"`
	Exchange string `toml:"exchange" split_words:"true"`
}

type CatalogServiceConfig struct {
	URL     string `toml:"url" split_words:"true"`
	Timeout int    `toml:"timeout" split_words:"true"` // секунды
}

// Load читает TOML-файл, затем .env и переменные окружения с префиксом TUTORING
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrReadConfig, path, err)
		}
	}

	// .env не обязателен
	_ = godotenv.Load(".env")

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvOverride, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 300
	}
	if c.Database.TxMaxRetries == 0 {
		c.Database.TxMaxRetries = 3
	}

	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
	if c.Logs.Format == "" {
		c.Logs.Format = "json"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = "tutoring-service"
	}

	if c.Allocation.Selector == "" {
		c.Allocation.Selector = SelectorRandom
	}
	if c.Allocation.MaxCommitAttempts == 0 {
		c.Allocation.MaxCommitAttempts = 3
	}

	if c.Workers.ArchiveInterval == 0 {
		c.Workers.ArchiveInterval = 3600
	}
	if c.Workers.NotificationWorkers == 0 {
		c.Workers.NotificationWorkers = 4
	}
	if c.Workers.NotificationQueue == 0 {
		c.Workers.NotificationQueue = 256
	}
	if c.Workers.NotificationTimeout == 0 {
		c.Workers.NotificationTimeout = 10
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.BroadcastTTL == 0 {
		c.Redis.BroadcastTTL = 7 * 24 * 3600
	}

	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "tutoring.events"
	}

	if c.CatalogService.Timeout == 0 {
		c.CatalogService.Timeout = 5
	}
}

const (
	SelectorRandom = "random"
	SelectorLoad   = "load"
)

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Host == "" {
		problems = append(problems, "database.host is required")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.DBName == "" {
		problems = append(problems, "database.dbname is required")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.Allocation.Selector != SelectorRandom && c.Allocation.Selector != SelectorLoad {
		problems = append(problems, fmt.Sprintf("allocation.selector must be %q or %q", SelectorRandom, SelectorLoad))
	}
	if c.Allocation.MaxCommitAttempts < 1 {
		problems = append(problems, "allocation.max_commit_attempts must be >= 1")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		problems = append(problems, "telegram.token is required when telegram is enabled")
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		problems = append(problems, "rabbitmq.url is required when rabbitmq is enabled")
	}
	if c.CatalogService.URL == "" {
		problems = append(problems, "catalog_service.url is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
