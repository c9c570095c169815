package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the tip bot configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Farcaster  FarcasterConfig  `mapstructure:"farcaster"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Tokens     TokensConfig     `mapstructure:"tokens"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ChainConfig contains Monad testnet RPC and signing settings
type ChainConfig struct {
	RPCURL              string        `mapstructure:"rpc_url" validate:"required"`
	ChainID             int64         `mapstructure:"chain_id"`
	BotPrivateKey       string        `mapstructure:"bot_private_key" validate:"required"`
	FactoryContract     string        `mapstructure:"factory_contract" validate:"required"`
	GasLimit            uint64        `mapstructure:"gas_limit"`
	MaxGasPrice         string        `mapstructure:"max_gas_price"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
}

// FarcasterConfig contains Neynar API and webhook settings
type FarcasterConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key" validate:"required"`
	WebhookSecret  string        `mapstructure:"webhook_secret" validate:"required"`
	SignerUUID     string        `mapstructure:"signer_uuid"`
	BotFID         int64         `mapstructure:"bot_fid"`
	BotUsername    string        `mapstructure:"bot_username"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RedisConfig contains wallet cache settings
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	WalletTTL time.Duration `mapstructure:"wallet_ttl"`
}

// TokensConfig controls the token registry and command limits
type TokensConfig struct {
	// RegistryFile optionally extends or overrides the built-in token table.
	RegistryFile string `mapstructure:"registry_file"`
	// MaxTipAmount is the upper bound accepted by the command parser,
	// expressed in whole tokens.
	MaxTipAmount string `mapstructure:"max_tip_amount"`
}

// DispatchConfig contains transaction dispatcher settings
type DispatchConfig struct {
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	QueueDepth     int           `mapstructure:"queue_depth"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
}

// LedgerConfig contains idempotency ledger settings
type LedgerConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AuditConfig contains audit writer settings
type AuditConfig struct {
	BufferSize   int           `mapstructure:"buffer_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "tipbot")

	// Chain defaults (Monad testnet)
	viper.SetDefault("chain.chain_id", 10143)
	viper.SetDefault("chain.gas_limit", 300000)
	viper.SetDefault("chain.confirmation_timeout", "2m")
	viper.SetDefault("chain.receipt_poll_interval", "3s")

	// Farcaster defaults
	viper.SetDefault("farcaster.base_url", "https://api.neynar.com")
	viper.SetDefault("farcaster.request_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.wallet_ttl", "1h")

	// Token defaults
	viper.SetDefault("tokens.max_tip_amount", "1000000")

	// Dispatch defaults
	viper.SetDefault("dispatch.max_concurrent", 4)
	viper.SetDefault("dispatch.queue_depth", 64)
	viper.SetDefault("dispatch.max_retries", 3)
	viper.SetDefault("dispatch.retry_base_delay", "1s")
	viper.SetDefault("dispatch.retry_max_delay", "30s")

	// Ledger defaults
	viper.SetDefault("ledger.retention", "720h")
	viper.SetDefault("ledger.sweep_interval", "1h")

	// Audit defaults
	viper.SetDefault("audit.buffer_size", 256)
	viper.SetDefault("audit.write_timeout", "5s")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}
