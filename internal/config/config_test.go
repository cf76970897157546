package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                   8080,
		DatabaseURL:            "postgres://localhost/test",
		RedisURL:               "redis://localhost:6379",
		PinStore:               StoreRedis,
		RateLimitStore:         StoreRedis,
		PinCodeLength:          5,
		PinTTLSeconds:          600,
		PinMaxAttempts:         3,
		PinIssueLimit:          5,
		PinIssueWindowSeconds:  3600,
		DeliveryTimeoutSeconds: 10,
		MailDriver:             MailDriverConsole,
		ValidateIPLimit:        30,
	}
}

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("PinTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{PinTTLSeconds: 600}
		assert.Equal(t, 10*time.Minute, cfg.PinTTL())
	})

	t.Run("PinIssueWindow converts seconds to duration", func(t *testing.T) {
		cfg := &Config{PinIssueWindowSeconds: 3600}
		assert.Equal(t, time.Hour, cfg.PinIssueWindow())
	})

	t.Run("DeliveryTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{DeliveryTimeoutSeconds: 10}
		assert.Equal(t, 10*time.Second, cfg.DeliveryTimeout())
	})

	t.Run("NeedsRedis", func(t *testing.T) {
		assert.True(t, (&Config{PinStore: StoreRedis, RateLimitStore: StoreMemory}).NeedsRedis())
		assert.True(t, (&Config{PinStore: StoreMemory, RateLimitStore: StoreRedis}).NeedsRedis())
		assert.False(t, (&Config{PinStore: StoreMemory, RateLimitStore: StoreMemory}).NeedsRedis())
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads config with defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("REDIS_URL", "redis://localhost:6379")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, StoreRedis, cfg.PinStore)
		assert.Equal(t, 5, cfg.PinCodeLength)
		assert.Equal(t, 600, cfg.PinTTLSeconds)
		assert.Equal(t, 3, cfg.PinMaxAttempts)
		assert.Equal(t, 5, cfg.PinIssueLimit)
		assert.Equal(t, 3600, cfg.PinIssueWindowSeconds)
		assert.Equal(t, MailDriverConsole, cfg.MailDriver)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("PORT", "3000")
		t.Setenv("PIN_STORE", "memory")
		t.Setenv("PIN_TTL_SECONDS", "300")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, StoreMemory, cfg.PinStore)
		assert.Equal(t, 5*time.Minute, cfg.PinTTL())
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts defaults in development", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate(false))
	})

	t.Run("rejects unknown store", func(t *testing.T) {
		cfg := validConfig()
		cfg.PinStore = "etcd"
		assert.ErrorContains(t, cfg.Validate(false), "PIN_STORE")
	})

	t.Run("requires REDIS_URL for redis store", func(t *testing.T) {
		cfg := validConfig()
		cfg.RedisURL = ""
		assert.ErrorContains(t, cfg.Validate(false), "REDIS_URL")

		cfg.PinStore = StoreMemory
		cfg.RateLimitStore = StoreMemory
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("requires SMTP_HOST for smtp driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.MailDriver = MailDriverSMTP
		assert.ErrorContains(t, cfg.Validate(false), "SMTP_HOST")
	})

	t.Run("requires AMQP_URL for amqp driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.MailDriver = MailDriverAMQP
		assert.ErrorContains(t, cfg.Validate(false), "AMQP_URL")
	})

	t.Run("rejects non-bcrypt admin key hash", func(t *testing.T) {
		cfg := validConfig()
		cfg.AdminAPIKeyHash = "plaintext"
		assert.ErrorContains(t, cfg.Validate(false), "ADMIN_API_KEY_HASH")
	})

	t.Run("rejects out of range code length", func(t *testing.T) {
		cfg := validConfig()
		cfg.PinCodeLength = 2
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive validate ip limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.ValidateIPLimit = 0
		assert.ErrorContains(t, cfg.Validate(false), "VALIDATE_IP_LIMIT")

		cfg.ValidateIPLimit = -1
		assert.ErrorContains(t, cfg.Validate(false), "VALIDATE_IP_LIMIT")
	})

	t.Run("production requires strong hash secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.MailDriver = MailDriverSMTP
		cfg.SMTPHost = "smtp.example.com"
		cfg.PinHashSecret = "secret"
		assert.ErrorContains(t, cfg.Validate(true), "PIN_HASH_SECRET")

		cfg.PinHashSecret = "0123456789abcdef0123456789abcdef"
		assert.NoError(t, cfg.Validate(true))
	})

	t.Run("production refuses console mailer", func(t *testing.T) {
		cfg := validConfig()
		cfg.PinHashSecret = "0123456789abcdef0123456789abcdef"
		assert.ErrorContains(t, cfg.Validate(true), "MAIL_DRIVER")
	})
}
