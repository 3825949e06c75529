// config предоставляет конфигурацию процесса, загружаемую один раз на старте
// из переменных окружения (при наличии — поверх .env файла).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config — корневая конфигурация сервиса.
type Config struct {
	Env    string       `env:"ENV" env-default:"local"`
	HTTP   HTTPConfig   `env-prefix:""`
	DB     DBConfig     `env-prefix:""`
	Auth   AuthConfig   `env-prefix:""`
	Market MarketConfig `env-prefix:""`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8000"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig — путь к локальному SQLite файлу.
type DBConfig struct {
	Path string `env:"DATABASE_PATH" env-default:"data/nvidia_stock.db"`
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	JWTSecret                string `env:"SECRET_KEY" env-required:"true"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" env-default:"30"`
}

// AccessTokenTTL возвращает время жизни access token.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

// MarketConfig — параметры ETL пайплайна котировок.
type MarketConfig struct {
	Symbol   string `env:"MARKET_SYMBOL" env-default:"NVDA"`
	Period   string `env:"MARKET_PERIOD" env-default:"max"`
	Interval string `env:"MARKET_INTERVAL" env-default:"1d"`
	CSVPath  string `env:"MARKET_CSV_PATH" env-default:"data/raw/nvidia_stock_max.csv"`
	Table    string `env:"MARKET_TABLE" env-default:"nvidia_stock"`
	BaseURL  string `env:"MARKET_BASE_URL" env-default:"https://query1.finance.yahoo.com"`
}

// Load читает конфигурацию из окружения. Если в рабочей директории лежит
// .env файл, его значения подгружаются первыми (без перекрытия уже
// установленных переменных).
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	if c.Auth.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.Auth.AccessTokenExpireMinutes)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	return nil
}
