package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" env-default:"local"`
	HTTP     HTTPConfig
	Database DBConfig
	Redis    RedisConfig
	Security SecConfig
	Pricing  PricingConfig
}

type HTTPConfig struct {
	Port         uint16        `env:"HTTP_PORT" env-default:"8080"`
	Timeout      time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`
	AllowOrigins string        `env:"CORS_ALLOW_ORIGINS" env-default:"*"`
}

type DBConfig struct {
	Host     string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port     uint16 `env:"POSTGRES_PORT" env-default:"5432"`
	User     string `env:"POSTGRES_USER" env-default:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	DBName   string `env:"POSTGRES_DB" env-default:"portfolio_db"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type SecConfig struct {
	JWTSecret      string        `env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"15m"`
}

type PricingConfig struct {
	BaseURL  string        `env:"PRICE_API_URL" env-default:"https://api.coingecko.com/api/v3"`
	Timeout  time.Duration `env:"PRICE_API_TIMEOUT" env-default:"5s"`
	CacheTTL time.Duration `env:"PRICE_CACHE_TTL" env-default:"60s"`
}

func MustLoad() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment variables")
	}

	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("failed to read environment variables", "error", err)
		os.Exit(1)
	}

	return &cfg
}
