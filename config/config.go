package config

import (
	"flag"
	"os"
	"sync"
	"time"
)

const (
	defaultServerAddr     = ":8080"
	defaultDatabaseDSN    = ""
	defaultRedisAddr      = "localhost:6379"
	defaultLogLevel       = "debug"
	defaultCardAddr       = "https://api.cardrail.example"
	defaultPayPalAddr     = "https://api.paypal.example"
	defaultCurrency       = "USD"
	defaultTaxRateBP      = 800
	defaultDeliveryFee    = 500
	defaultMinimumOrder   = 1000
	defaultEtaBuffer      = 5 * time.Minute
	defaultQueuePenalty   = 2 * time.Minute
	defaultVerifyInterval = 30 * time.Second
	defaultVerifyGrace    = 2 * time.Minute
)

type Config struct {
	ServerAddr  string
	DatabaseDSN string
	RedisAddr   string
	LogLevel    string

	CardProviderAddr   string
	CardAPIKey         string
	CardWebhookSecret  string
	PayPalProviderAddr string
	PayPalAPIKey       string
	PayPalWebhookID    string

	Currency     string
	TaxRateBP    int64 // basis points, 800 = 8%
	DeliveryFee  int64 // minor units
	MinimumOrder int64 // minor units

	EtaBuffer    time.Duration
	QueuePenalty time.Duration

	VerifyInterval time.Duration
	VerifyGrace    time.Duration

	StaffLogin        string
	StaffPasswordHash string
}

var (
	once      sync.Once
	singleton *Config
)

// New returns new Config. It parses command line and environment variables only once.
func New() (*Config, error) {
	once.Do(func() {
		cfg := Config{}

		// initialize flags
		flag.StringVar(&cfg.ServerAddr, "a", defaultServerAddr, "chowline server address")
		flag.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "chowline database DSN")
		flag.StringVar(&cfg.RedisAddr, "r", defaultRedisAddr, "redis address for order broadcasts")
		flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")
		flag.StringVar(&cfg.CardProviderAddr, "card-addr", defaultCardAddr, "card rail base URL")
		flag.StringVar(&cfg.CardAPIKey, "card-key", "", "card rail API key")
		flag.StringVar(&cfg.CardWebhookSecret, "card-secret", "", "card rail webhook signing secret")
		flag.StringVar(&cfg.PayPalProviderAddr, "paypal-addr", defaultPayPalAddr, "paypal base URL")
		flag.StringVar(&cfg.PayPalAPIKey, "paypal-key", "", "paypal API key")
		flag.StringVar(&cfg.PayPalWebhookID, "paypal-webhook-id", "", "paypal webhook signing id")
		flag.StringVar(&cfg.Currency, "currency", defaultCurrency, "payment currency")
		flag.Int64Var(&cfg.TaxRateBP, "tax-bp", defaultTaxRateBP, "tax rate in basis points")
		flag.Int64Var(&cfg.DeliveryFee, "delivery-fee", defaultDeliveryFee, "flat delivery fee in minor units")
		flag.Int64Var(&cfg.MinimumOrder, "min-order", defaultMinimumOrder, "minimum order subtotal in minor units")
		flag.DurationVar(&cfg.EtaBuffer, "eta-buffer", defaultEtaBuffer, "fixed buffer added to every ready-time estimate")
		flag.DurationVar(&cfg.QueuePenalty, "eta-queue-penalty", defaultQueuePenalty, "added ready-time per queued order")
		flag.DurationVar(&cfg.VerifyInterval, "verify-interval", defaultVerifyInterval, "interval between payment verification sweeps")
		flag.DurationVar(&cfg.VerifyGrace, "verify-grace", defaultVerifyGrace, "age before a pending payment is re-verified")
		flag.StringVar(&cfg.StaffLogin, "staff-login", "staff", "staff login")
		flag.StringVar(&cfg.StaffPasswordHash, "staff-hash", "", "bcrypt hash of the staff password")

		flag.Parse()

		// if environment variable is set, then using it
		if runAddrEnv := os.Getenv("RUN_ADDRESS"); runAddrEnv != "" {
			cfg.ServerAddr = runAddrEnv
		}
		if databaseURIEnv := os.Getenv("DATABASE_URI"); databaseURIEnv != "" {
			cfg.DatabaseDSN = databaseURIEnv
		}
		if redisAddrEnv := os.Getenv("REDIS_ADDRESS"); redisAddrEnv != "" {
			cfg.RedisAddr = redisAddrEnv
		}
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			cfg.LogLevel = logLevelEnv
		}
		if cardAddrEnv := os.Getenv("CARD_PROVIDER_ADDRESS"); cardAddrEnv != "" {
			cfg.CardProviderAddr = cardAddrEnv
		}
		if cardKeyEnv := os.Getenv("CARD_API_KEY"); cardKeyEnv != "" {
			cfg.CardAPIKey = cardKeyEnv
		}
		if cardSecretEnv := os.Getenv("CARD_WEBHOOK_SECRET"); cardSecretEnv != "" {
			cfg.CardWebhookSecret = cardSecretEnv
		}
		if paypalAddrEnv := os.Getenv("PAYPAL_PROVIDER_ADDRESS"); paypalAddrEnv != "" {
			cfg.PayPalProviderAddr = paypalAddrEnv
		}
		if paypalKeyEnv := os.Getenv("PAYPAL_API_KEY"); paypalKeyEnv != "" {
			cfg.PayPalAPIKey = paypalKeyEnv
		}
		if paypalWebhookEnv := os.Getenv("PAYPAL_WEBHOOK_ID"); paypalWebhookEnv != "" {
			cfg.PayPalWebhookID = paypalWebhookEnv
		}
		if staffLoginEnv := os.Getenv("STAFF_LOGIN"); staffLoginEnv != "" {
			cfg.StaffLogin = staffLoginEnv
		}
		if staffHashEnv := os.Getenv("STAFF_PASSWORD_HASH"); staffHashEnv != "" {
			cfg.StaffPasswordHash = staffHashEnv
		}

		singleton = &cfg
	})

	return singleton, nil
}
