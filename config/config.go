package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Port string
	DB   DB

	Kafka    Kafka
	Payment  Payment
	Profile  Profile
	Shipping Shipping
	Expiry   Expiry
	Metrics  Metrics
}

type DB struct {
	database.Config
}

type Kafka struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type Payment struct {
	APIURL        string
	StoreID       int
	AuthKey       string
	TestMode      bool
	SuccessURL    string
	FailureURL    string
	CancelURL     string
	WebhookSecret string
}

type Profile struct {
	APIURL string
}

type Shipping struct {
	// Raw district table, "district=cents" pairs separated by commas.
	Table map[string]int64
}

type Expiry struct {
	SweepInterval time.Duration
	HoldWindow    time.Duration
}

type Metrics struct {
	Enabled     bool
	ServiceName string
}

func Load(log *zap.Logger) *Config {
	return &Config{
		Port: getEnvDefault("APP_PORT", ":8080"),
		DB: DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
			},
		},
		Kafka: Kafka{
			Enabled: getEnvDefault("KAFKA_ENABLED", "false") == "true",
			Brokers: splitAndTrim(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnvDefault("KAFKA_TOPIC_EMAIL", "storefront.email"),
		},
		Payment: Payment{
			APIURL:        getEnv("PAYMENT_API_URL", log),
			StoreID:       atoiDefault(os.Getenv("PAYMENT_STORE_ID"), 0),
			AuthKey:       getEnv("PAYMENT_AUTH_KEY", log),
			TestMode:      getEnvDefault("PAYMENT_MODE", "live") != "live",
			SuccessURL:    getEnvDefault("PAYMENT_SUCCESS_URL", ""),
			FailureURL:    getEnvDefault("PAYMENT_FAILURE_URL", ""),
			CancelURL:     getEnvDefault("PAYMENT_CANCEL_URL", ""),
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", log),
		},
		Profile: Profile{
			APIURL: getEnv("PROFILE_API_URL", log),
		},
		Shipping: Shipping{
			Table: parseShippingTable(getEnv("SHIPPING_TABLE", log), log),
		},
		Expiry: Expiry{
			SweepInterval: durationDefault(os.Getenv("ORDER_SWEEP_INTERVAL"), time.Minute),
			HoldWindow:    durationDefault(os.Getenv("ORDER_HOLD_WINDOW"), 30*time.Minute),
		},
		Metrics: Metrics{
			Enabled:     getEnvDefault("METRICS_ENABLED", "false") == "true",
			ServiceName: getEnvDefault("OTEL_SERVICE_NAME", "storefront"),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}

// parseShippingTable turns "downtown=1000,suburbs=1500" into a district
// cost table. Districts are lower-cased; malformed pairs are rejected at
// startup rather than silently dropped.
func parseShippingTable(raw string, log *zap.Logger) map[string]int64 {
	table := map[string]int64{}
	for _, pair := range splitAndTrim(raw) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			log.Error("malformed shipping table entry", zap.String("entry", pair))
			panic("malformed SHIPPING_TABLE entry: " + pair)
		}
		cents, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || cents < 0 {
			log.Error("malformed shipping table cost", zap.String("entry", pair))
			panic("malformed SHIPPING_TABLE cost: " + pair)
		}
		table[strings.ToLower(strings.TrimSpace(k))] = cents
	}
	if len(table) == 0 {
		log.Error("shipping table is empty")
		panic("SHIPPING_TABLE must contain at least one district")
	}
	return table
}
