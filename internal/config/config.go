package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything the service needs at startup. Gateway credentials
// are sourced from the environment, never from literals in code.
type Config struct {
	DBSource string
	Port     string
	Env      string

	// Redis is optional; when RedisAddr is empty the distributor index is
	// checked against Postgres directly.
	RedisAddr     string
	RedisPassword string

	// Minimum amount accepted by the transfer engine, in currency units.
	MinTransferAmount float64

	// External payment gateway integration.
	GatewayID         string
	GatewayMode       string
	GatewayMerchantID string
	GatewayAPIKey     string
	GatewayReturnURL  string

	// Gateway response codes treated as an approved payment. Live and test
	// mode issue distinct codes; both sets are accepted.
	ApprovedLiveCodes []string
	ApprovedTestCodes []string
}

func Load() (*Config, error) {
	// .env is a local development convenience; production relies on real env vars.
	_ = godotenv.Load()

	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	cfg := &Config{
		DBSource:          dbSource,
		Port:              getEnv("SERVER_PORT", "8080"),
		Env:               getEnv("ENVIRONMENT", "development"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		MinTransferAmount: 10,
		GatewayID:         getEnv("GATEWAY_ID", "qpay"),
		GatewayMode:       getEnv("GATEWAY_MODE", "live"),
		GatewayMerchantID: os.Getenv("GATEWAY_MERCHANT_ID"),
		GatewayAPIKey:     os.Getenv("GATEWAY_API_KEY"),
		GatewayReturnURL:  os.Getenv("GATEWAY_RETURN_URL"),
		ApprovedLiveCodes: splitCodes(getEnv("GATEWAY_APPROVED_LIVE_CODES", "0000")),
		ApprovedTestCodes: splitCodes(getEnv("GATEWAY_APPROVED_TEST_CODES", "0300")),
	}

	if raw := os.Getenv("MIN_TRANSFER_AMOUNT"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MIN_TRANSFER_AMOUNT %q: %w", raw, err)
		}
		cfg.MinTransferAmount = min
	}

	return cfg, nil
}

// ApprovedCodes merges the live and test approval sets into one lookup.
func (c *Config) ApprovedCodes() map[string]bool {
	codes := make(map[string]bool, len(c.ApprovedLiveCodes)+len(c.ApprovedTestCodes))
	for _, code := range c.ApprovedLiveCodes {
		codes[code] = true
	}
	for _, code := range c.ApprovedTestCodes {
		codes[code] = true
	}
	return codes
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCodes(raw string) []string {
	var codes []string
	for _, part := range strings.Split(raw, ",") {
		if code := strings.TrimSpace(part); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
