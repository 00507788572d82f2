package config

import (
	"os"
	"time"
)

// Config carries everything cmd/api needs to wire the app. Values come
// from the environment; .env loading happens in main before Load.
type Config struct {
	Addr     string
	DBDSN    string
	Currency string

	Gateway GatewayConfig
}

type GatewayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	VerifySecret  string // client-submitted proof-of-payment signatures
	WebhookSecret string // webhook body signatures (distinct secret)
	Timeout       time.Duration
}

// Configured reports whether the remote gateway can be called at all.
// Webhook/verify secrets are checked separately: a deployment may accept
// webhooks for a gateway it no longer opens intents with.
func (g GatewayConfig) Configured() bool {
	return g.KeyID != "" && g.KeySecret != ""
}

func Load() Config {
	return Config{
		Addr:     getenv("APP_ADDR", ":8080"),
		DBDSN:    os.Getenv("DB_DSN"),
		Currency: getenv("APP_CURRENCY", "INR"),
		Gateway: GatewayConfig{
			BaseURL:       getenv("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:         os.Getenv("GATEWAY_KEY_ID"),
			KeySecret:     os.Getenv("GATEWAY_KEY_SECRET"),
			VerifySecret:  os.Getenv("GATEWAY_VERIFY_SECRET"),
			WebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
			Timeout:       getdur("GATEWAY_TIMEOUT", 10*time.Second),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
