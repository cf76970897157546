package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	MailDriverSMTP    = "smtp"
	MailDriverAMQP    = "amqp"
	MailDriverConsole = "console"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL"`

	PinStore       string `env:"PIN_STORE" envDefault:"redis"`
	RateLimitStore string `env:"RATE_LIMIT_STORE" envDefault:"redis"`

	PinCodeLength         int    `env:"PIN_CODE_LENGTH" envDefault:"5"`
	PinTTLSeconds         int    `env:"PIN_TTL_SECONDS" envDefault:"600"`
	PinMaxAttempts        int    `env:"PIN_MAX_ATTEMPTS" envDefault:"3"`
	PinIssueLimit         int    `env:"PIN_ISSUE_LIMIT" envDefault:"5"`
	PinIssueWindowSeconds int    `env:"PIN_ISSUE_WINDOW_SECONDS" envDefault:"3600"`
	PinHashSecret         string `env:"PIN_HASH_SECRET"`

	DeliveryTimeoutSeconds int    `env:"DELIVERY_TIMEOUT_SECONDS" envDefault:"10"`
	MailDriver             string `env:"MAIL_DRIVER" envDefault:"console"`
	MailFrom               string `env:"MAIL_FROM" envDefault:"Auth247 <no-reply@auth247.io>"`
	SMTPHost               string `env:"SMTP_HOST"`
	SMTPPort               int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername           string `env:"SMTP_USERNAME"`
	SMTPPassword           string `env:"SMTP_PASSWORD"`
	AMQPURL                string `env:"AMQP_URL"`
	MailAMQPExchange       string `env:"MAIL_AMQP_EXCHANGE" envDefault:"notifications"`
	MailAMQPRoutingKey     string `env:"MAIL_AMQP_ROUTING_KEY" envDefault:"email.pin"`

	AdminAPIKeyHash    string   `env:"ADMIN_API_KEY_HASH"`
	ValidateIPLimit    int      `env:"VALIDATE_IP_LIMIT" envDefault:"30"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

func (c *Config) PinTTL() time.Duration {
	return time.Duration(c.PinTTLSeconds) * time.Second
}

func (c *Config) PinIssueWindow() time.Duration {
	return time.Duration(c.PinIssueWindowSeconds) * time.Second
}

func (c *Config) DeliveryTimeout() time.Duration {
	return time.Duration(c.DeliveryTimeoutSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// NeedsRedis reports whether any component is configured to use Redis.
func (c *Config) NeedsRedis() bool {
	return c.PinStore == StoreRedis || c.RateLimitStore == StoreRedis
}

func (c *Config) Validate(isProduction bool) error {
	if err := validateChoice("PIN_STORE", c.PinStore, StoreRedis, StoreMemory); err != nil {
		return err
	}
	if err := validateChoice("RATE_LIMIT_STORE", c.RateLimitStore, StoreRedis, StoreMemory); err != nil {
		return err
	}
	if err := validateChoice("MAIL_DRIVER", c.MailDriver, MailDriverSMTP, MailDriverAMQP, MailDriverConsole); err != nil {
		return err
	}

	if c.NeedsRedis() && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when PIN_STORE or RATE_LIMIT_STORE is %q", StoreRedis)
	}

	if c.PinCodeLength < 4 || c.PinCodeLength > 10 {
		return fmt.Errorf("PIN_CODE_LENGTH must be between 4 and 10")
	}
	if c.PinTTLSeconds <= 0 {
		return fmt.Errorf("PIN_TTL_SECONDS must be positive")
	}
	if c.PinMaxAttempts <= 0 {
		return fmt.Errorf("PIN_MAX_ATTEMPTS must be positive")
	}
	if c.PinIssueLimit <= 0 || c.PinIssueWindowSeconds <= 0 {
		return fmt.Errorf("PIN_ISSUE_LIMIT and PIN_ISSUE_WINDOW_SECONDS must be positive")
	}
	if c.DeliveryTimeoutSeconds <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT_SECONDS must be positive")
	}
	if c.ValidateIPLimit <= 0 {
		return fmt.Errorf("VALIDATE_IP_LIMIT must be positive")
	}

	switch c.MailDriver {
	case MailDriverSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when MAIL_DRIVER=smtp")
		}
	case MailDriverAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required when MAIL_DRIVER=amqp")
		}
	}

	if c.AdminAPIKeyHash != "" {
		if !strings.HasPrefix(c.AdminAPIKeyHash, "$2a$") &&
			!strings.HasPrefix(c.AdminAPIKeyHash, "$2b$") &&
			!strings.HasPrefix(c.AdminAPIKeyHash, "$2y$") {
			return fmt.Errorf("ADMIN_API_KEY_HASH must be a bcrypt hash (generate with: go run scripts/hash-admin-key.go <key>)")
		}
	}

	if isProduction {
		if err := validateSecret("PIN_HASH_SECRET", c.PinHashSecret); err != nil {
			return err
		}
		if c.MailDriver == MailDriverConsole {
			return fmt.Errorf("MAIL_DRIVER=console prints codes to the log and is not allowed in production")
		}

		if c.PinStore == StoreMemory {
			log.Warn().Msg("PIN_STORE=memory in production: PIN records are not shared between instances, use sticky routing")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.AdminAPIKeyHash == "" {
			log.Warn().Msg("ADMIN_API_KEY_HASH is empty in production: /auth/otp/clear is disabled")
		}
	}

	return nil
}

func validateChoice(name, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s (got %q)", name, strings.Join(allowed, ", "), value)
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
