package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Session and password settings
	Auth AuthConfig

	// Wallet pricing
	Wallet WalletConfig

	// Avatar upload settings
	Upload UploadConfig

	// Network monitor settings
	Monitor MonitorConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// AuthConfig holds session token and password hashing settings
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// Bonus policies for wallet top-ups
const (
	// BonusZeroBalance grants the bonus whenever the balance is exactly zero
	BonusZeroBalance = "zero_balance"
	// BonusFirstTopUp grants the bonus only if the account never received one
	BonusFirstTopUp = "first_topup"
)

// WalletConfig holds coin conversion and VIP pricing
type WalletConfig struct {
	CoinsPerUnit int64
	BonusPercent int64
	VIPPrice     int64
	BonusPolicy  string
}

// UploadConfig holds avatar upload settings
type UploadConfig struct {
	AvatarDir     string
	MaxAvatarSize int64 // in bytes
}

// Monitor sinks
const (
	SinkMemory = "memory"
	SinkRedis  = "redis"
)

// MonitorConfig holds network monitor settings
type MonitorConfig struct {
	Sink           string
	Window         time.Duration
	SampleInterval time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisKey       string
	// StatsdAddr enables forwarding to a DogStatsD agent when set
	StatsdAddr string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from .env files, an optional config.yaml and
// environment variables, in increasing priority.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getString(v, "PORT", "8080"),
			ReadTimeout:     getDuration(v, "SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration(v, "SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDuration(v, "SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: databaseConfig(v),
		Auth: AuthConfig{
			JWTSecret:  getString(v, "JWT_SECRET", ""),
			TokenTTL:   getDuration(v, "JWT_TTL", 24*time.Hour),
			BcryptCost: getInt(v, "BCRYPT_COST", bcrypt.DefaultCost),
		},
		Wallet: WalletConfig{
			CoinsPerUnit: getInt64(v, "WALLET_COINS_PER_UNIT", 10),
			BonusPercent: getInt64(v, "WALLET_BONUS_PERCENT", 15),
			VIPPrice:     getInt64(v, "WALLET_VIP_PRICE", 300),
			BonusPolicy:  getString(v, "WALLET_BONUS_POLICY", BonusZeroBalance),
		},
		Upload: UploadConfig{
			AvatarDir:     getString(v, "AVATAR_DIR", "./data/avatars"),
			MaxAvatarSize: getInt64(v, "MAX_AVATAR_SIZE", 2*1024*1024), // 2MB
		},
		Monitor: MonitorConfig{
			Sink:           getString(v, "MONITOR_SINK", SinkMemory),
			Window:         getDuration(v, "MONITOR_WINDOW", time.Minute),
			SampleInterval: getDuration(v, "MONITOR_SAMPLE_INTERVAL", time.Minute),
			RedisAddr:      getString(v, "REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getString(v, "REDIS_PASSWORD", ""),
			RedisKey:       getString(v, "MONITOR_REDIS_KEY", "blog:monitor"),
			StatsdAddr:     getString(v, "STATSD_ADDR", ""),
		},
		Log: LogConfig{
			Level:  getString(v, "LOG_LEVEL", "info"),
			Format: getString(v, "LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database section, for tools that do not
// serve requests.
func LoadDatabase() (*DatabaseConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	cfg := databaseConfig(v)
	if cfg.Host == "" || cfg.Name == "" {
		return nil, fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	return &cfg, nil
}

func newViper() (*viper.Viper, error) {
	LoadDotEnvs()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

func databaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:           getString(v, "DB_HOST", "localhost"),
		Port:           getString(v, "DB_PORT", "5432"),
		User:           getString(v, "DB_USER", "postgres"),
		Password:       getString(v, "DB_PASSWORD", "postgres"),
		Name:           getString(v, "DB_NAME", "blog"),
		SSLMode:        getString(v, "DB_SSLMODE", "disable"),
		MaxOpenConns:   getInt(v, "DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:   getInt(v, "DB_MAX_IDLE_CONNS", 5),
		MaxLifetime:    getDuration(v, "DB_MAX_LIFETIME", 5*time.Minute),
		MigrationsPath: getString(v, "MIGRATIONS_PATH", "./migrations"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Wallet.CoinsPerUnit <= 0 || c.Wallet.VIPPrice <= 0 || c.Wallet.BonusPercent < 0 {
		return fmt.Errorf("wallet ratios must be positive")
	}
	if c.Wallet.BonusPolicy != BonusZeroBalance && c.Wallet.BonusPolicy != BonusFirstTopUp {
		return fmt.Errorf("WALLET_BONUS_POLICY must be %q or %q", BonusZeroBalance, BonusFirstTopUp)
	}
	if c.Monitor.Sink != SinkMemory && c.Monitor.Sink != SinkRedis {
		return fmt.Errorf("MONITOR_SINK must be %q or %q", SinkMemory, SinkRedis)
	}
	if c.Monitor.Window <= 0 || c.Monitor.SampleInterval <= 0 {
		return fmt.Errorf("monitor durations must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// LoadDotEnvs loads .env files for the current ENV. Earlier files win because
// godotenv never overrides variables that are already set.
func LoadDotEnvs() {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	godotenv.Load(".env." + env + ".local")
	if env != "test" {
		godotenv.Load(".env.local")
	}
	godotenv.Load(".env." + env)
	godotenv.Load()
}

// Helper functions for configuration lookup

func getString(v *viper.Viper, key, defaultValue string) string {
	v.SetDefault(key, defaultValue)
	return v.GetString(key)
}

func getInt(v *viper.Viper, key string, defaultValue int) int {
	v.SetDefault(key, defaultValue)
	return v.GetInt(key)
}

func getInt64(v *viper.Viper, key string, defaultValue int64) int64 {
	v.SetDefault(key, defaultValue)
	return v.GetInt64(key)
}

func getDuration(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	v.SetDefault(key, defaultValue)
	return v.GetDuration(key)
}
