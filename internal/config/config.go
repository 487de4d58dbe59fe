package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Payment modes understood by the swipe client
const (
	PaymentModeDemo = "demo"
	PaymentModeLive = "live"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Worker   WorkerConfig   `yaml:"worker"`
	Pi       PiConfig       `yaml:"pi"`
	Client   ClientConfig   `yaml:"client"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	SeedOnStartup   bool            `yaml:"seed_on_startup"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
	DeadLetter DeadLetterConfig `yaml:"dead_letter"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// DeadLetterConfig names where rejected events are parked. Empty disables it.
type DeadLetterConfig struct {
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	EventTimeout    time.Duration `yaml:"event_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PiConfig holds the Pi Platform API credentials used to approve and complete payments
type PiConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// ClientConfig holds settings for the interactive swipe client
type ClientConfig struct {
	APIBaseURL       string        `yaml:"api_base_url"`
	UserID           string        `yaml:"user_id"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	MessageTTL       time.Duration `yaml:"message_ttl"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PaymentMode      string        `yaml:"payment_mode"`
	WalletBridgeURL  string        `yaml:"wallet_bridge_url"`
	Scopes           []string      `yaml:"scopes"`
	UnitsPerCell     float64       `yaml:"units_per_cell"`
}

// Load reads and parses the configuration file.
// ${VAR} references are expanded from the environment before parsing.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Pi.BaseURL == "" {
		c.Pi.BaseURL = "https://api.minepi.com/v2"
	}
	if c.Pi.Timeout <= 0 {
		c.Pi.Timeout = 10 * time.Second
	}
	if c.Client.UserID == "" {
		c.Client.UserID = "demo_user"
	}
	if c.Client.RequestTimeout <= 0 {
		c.Client.RequestTimeout = 10 * time.Second
	}
	if c.Client.MessageTTL <= 0 {
		c.Client.MessageTTL = 3 * time.Second
	}
	if c.Client.PaymentMode == "" {
		c.Client.PaymentMode = PaymentModeDemo
	}
	if len(c.Client.Scopes) == 0 {
		c.Client.Scopes = []string{"username", "payments"}
	}
	if c.Client.UnitsPerCell <= 0 {
		c.Client.UnitsPerCell = 10
	}
}

// PaymentsEnabled reports whether the API can approve and complete payments
func (c *Config) PaymentsEnabled() bool {
	return c.Pi.APIKey != ""
}

// ValidateAPIConfig checks the settings required by the API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RequestsPerSecond <= 0 || c.Server.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requests_per_second and burst must be greater than 0")
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	return c.validateRabbitMQ()
}

// ValidateWorkerConfig checks the settings required by the worker service
func (c *Config) ValidateWorkerConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.EventTimeout <= 0 {
		return fmt.Errorf("worker event_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.RabbitMQ.Consumer.PrefetchCount < 0 {
		return fmt.Errorf("rabbitmq consumer prefetch_count must not be negative")
	}

	return nil
}

// ValidateClientConfig checks the settings required by the swipe terminal
func (c *Config) ValidateClientConfig() error {
	if c.Client.APIBaseURL == "" {
		return fmt.Errorf("client api_base_url is required")
	}

	switch c.Client.PaymentMode {
	case PaymentModeDemo:
	case PaymentModeLive:
		if c.Client.WalletBridgeURL == "" {
			return fmt.Errorf("client wallet_bridge_url is required in live payment mode")
		}
	default:
		return fmt.Errorf("invalid client payment_mode: %q (must be %q or %q)", c.Client.PaymentMode, PaymentModeDemo, PaymentModeLive)
	}

	if c.Client.HandshakeTimeout < 0 {
		return fmt.Errorf("client handshake_timeout must not be negative")
	}

	return nil
}

// ValidateDatabaseConfig checks the settings required to reach PostgreSQL
func (c *Config) ValidateDatabaseConfig() error {
	return c.validateDatabase()
}

// ValidateRabbitMQConfig checks the settings required to reach RabbitMQ
func (c *Config) ValidateRabbitMQConfig() error {
	return c.validateRabbitMQ()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.RabbitMQ.DeadLetter.Queue != "" && c.RabbitMQ.DeadLetter.Exchange == "" {
		return fmt.Errorf("rabbitmq dead_letter queue requires a dead_letter exchange")
	}

	return nil
}
