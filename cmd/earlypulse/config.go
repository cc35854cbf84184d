package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/ratelimit"
)

const (
	defaultListenAddr      = "localhost:8000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProd
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// HMAC secrets to sign access and refresh tokens. Both required and must differ
	AccessSecret  string
	RefreshSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Mark auth cookies Secure
	SecureCookies bool

	// Environment (dev, prod)
	Environment string

	// Redis for login throttling. Throttling is off when empty
	RedisAddr               string
	RateLimitCapacity       int
	RateLimitRefillInterval time.Duration

	// AMQP broker for order events. Events are dropped when empty
	RabbitMQURL string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:                defaultLoggingLevel,
		ListenAddr:              defaultListenAddr,
		Environment:             defaultEnvironment,
		AccessTokenTTL:          defaultAccessTokenTTL,
		RefreshTokenTTL:         defaultRefreshTokenTTL,
		RateLimitCapacity:       ratelimit.DefaultCapacity,
		RateLimitRefillInterval: ratelimit.DefaultRefillInterval,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}
	setInt := func(o *int) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":                setString(&c.ListenAddr),
		"DATABASE_URI":               setString(&c.DatabaseDSN),
		"ACCESS_TOKEN_SECRET":        setString(&c.AccessSecret),
		"REFRESH_TOKEN_SECRET":       setString(&c.RefreshSecret),
		"ACCESS_TOKEN_EXPIRY":        setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_EXPIRY":       setDuration(&c.RefreshTokenTTL),
		"LOG_LEVEL":                  setString(&c.LogLevel),
		"ENVIRONMENT":                setString(&c.Environment),
		"SECURE_COOKIES":             setBool(&c.SecureCookies),
		"REDIS_ADDR":                 setString(&c.RedisAddr),
		"RATE_LIMIT_CAPACITY":        setInt(&c.RateLimitCapacity),
		"RATE_LIMIT_REFILL_INTERVAL": setDuration(&c.RateLimitRefillInterval),
		"RABBITMQ_URL":               setString(&c.RabbitMQURL),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("earlypulse", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.AccessSecret, "access-secret", c.AccessSecret, "Secret to sign access tokens")
	fs.StringVar(&c.RefreshSecret, "refresh-secret", c.RefreshSecret, "Secret to sign refresh tokens")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.BoolVar(&c.SecureCookies, "secure-cookies", c.SecureCookies, "Mark auth cookies Secure")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for rate limiting")
	fs.IntVar(&c.RateLimitCapacity, "rate-limit", c.RateLimitCapacity, "Login attempts allowed in a burst")
	fs.DurationVar(&c.RateLimitRefillInterval, "rate-limit-refill", c.RateLimitRefillInterval, "Time to regain one login attempt")
	fs.StringVar(&c.RabbitMQURL, "amqp", c.RabbitMQURL, "AMQP broker URL for order events")

	return fs.Parse(args)
}
