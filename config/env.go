package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Notify NotifyConfig
	Auth   AuthConfig
	App    AppConfig
}

type ServerConfig struct {
	HTTPPort string
	GRPCPort string
	GinMode  string
}

// DBConfig selects the storage backend. A non-empty URL means Postgres,
// otherwise a local SQLite file at SQLitePath is used.
type DBConfig struct {
	URL        string
	SQLitePath string
	LogMode    bool
}

type NotifyConfig struct {
	TelegramToken  string
	TelegramChatID string
	Timeout        time.Duration
}

type AuthConfig struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

func (a AuthConfig) Enabled() bool {
	return a.Username != ""
}

type AppConfig struct {
	RateLimit string
	Timezone  string
}

func (a AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			HTTPPort: v.GetString("HTTP_PORT"),
			GRPCPort: v.GetString("GRPC_PORT"),
			GinMode:  v.GetString("GIN_MODE"),
		},
		DB: DBConfig{
			URL:        v.GetString("DATABASE_URL"),
			SQLitePath: v.GetString("SQLITE_PATH"),
			LogMode:    v.GetBool("DB_LOG"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Notify: NotifyConfig{
			TelegramToken:  v.GetString("TELEGRAM_BOT_TOKEN"),
			TelegramChatID: v.GetString("TELEGRAM_CHAT_ID"),
			Timeout:        v.GetDuration("NOTIFY_TIMEOUT"),
		},
		Auth: AuthConfig{
			Username:     v.GetString("AUTH_USERNAME"),
			PasswordHash: v.GetString("AUTH_PASSWORD_HASH"),
			JWTSecret:    v.GetString("JWT_SECRET"),
			TokenTTL:     v.GetDuration("JWT_TTL"),
		},
		App: AppConfig{
			RateLimit: v.GetString("RATE_LIMIT"),
			Timezone:  v.GetString("TIMEZONE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("GRPC_PORT", "50053")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("SQLITE_PATH", "store.db")
	v.SetDefault("DB_LOG", false)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("RATE_LIMIT", "60-M")
	v.SetDefault("TIMEZONE", "UTC")
}

func (c Config) validate() error {
	if c.Auth.Enabled() {
		if c.Auth.PasswordHash == "" {
			return fmt.Errorf("AUTH_PASSWORD_HASH is required when AUTH_USERNAME is set")
		}
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_USERNAME is set")
		}
	}
	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.App.Timezone, err)
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}
	return nil
}
