package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Checkout    CheckoutConfig
	Gateway     GatewayConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CheckoutConfig controls order pipeline policy.
type CheckoutConfig struct {
	// CODCities is the allow-list of cities eligible for cash on delivery.
	CODCities []string `default:"Bangalore,Mumbai,Chennai" usage:"Cities eligible for cash on delivery" flag:"cod-cities"`
	// Currency is the ISO code used for gateway payment intents.
	Currency string `default:"INR" usage:"Currency for payment intents"`
	// SessionTTL bounds how long a staged gateway checkout stays confirmable.
	SessionTTL time.Duration `default:"30m" usage:"Payment session time to live" flag:"session-ttl"`
	// SessionReapInterval is how often expired sessions are purged.
	SessionReapInterval time.Duration `default:"5m" usage:"How often expired payment sessions are purged" flag:"session-reap-interval"`
}

// GatewayConfig holds payment gateway credentials.
type GatewayConfig struct {
	BaseURL   string `default:"https://api.razorpay.com/v1" usage:"Payment gateway API base URL" flag:"gateway-url"`
	KeyID     string `usage:"Payment gateway key id (SHOP_GATEWAY_KEY_ID)" flag:"gateway-key-id"`
	KeySecret string `usage:"Payment gateway key secret (SHOP_GATEWAY_KEY_SECRET)" flag:"gateway-key-secret"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shopsphere/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Gateway.KeySecret == "" {
		return nil, errors.New("gateway key secret is required: set SHOP_GATEWAY_KEY_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
