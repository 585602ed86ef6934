// config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/model"
)

type Config struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string

	StorageDriver     string
	MongoURI          string
	MongoDBName       string
	MongoTransactions bool
	SeedProductsFile  string

	AuthURL     string
	AuthTimeout time.Duration

	RabbitURL           string
	OrderEventsExchange string
	CartCleanupQueue    string
	CartCleanupOnOrder  bool

	KafkaBrokers    []string
	KafkaOrderTopic string

	RedisAddr        string
	TrackingCacheTTL time.Duration

	FreeShippingThreshold model.Money
	FlatShippingPrice     model.Money
	TaxRatePercent        decimal.Decimal

	DefaultCarrier   string
	DefaultSignature string
}

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Load lee .env si existe y después las variables de entorno.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not read .env file")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),

		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", StorageMongo)),
		MongoURI:          getEnv("MONGO_URI", "mongodb://host.docker.internal:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "storefront"),
		MongoTransactions: getEnvBool("MONGO_TRANSACTIONS", true),
		SeedProductsFile:  getEnv("SEED_PRODUCTS_FILE", ""),

		AuthURL:     getEnv("AUTH_URL", "http://host.docker.internal:3000"),
		AuthTimeout: getEnvDuration("AUTH_TIMEOUT", 5*time.Second),

		RabbitURL:           getEnv("RABBIT_URL", ""),
		OrderEventsExchange: getEnv("ORDER_EVENTS_EXCHANGE", "order_events"),
		CartCleanupQueue:    getEnv("CART_CLEANUP_QUEUE", "fulfillment_cart_cleanup"),
		CartCleanupOnOrder:  getEnvBool("CART_CLEANUP_ON_ORDER", true),

		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "storefront.order-events"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		TrackingCacheTTL: getEnvDuration("TRACKING_CACHE_TTL", 30*time.Second),

		FreeShippingThreshold: getEnvMoney("FREE_SHIPPING_THRESHOLD", 5000),
		FlatShippingPrice:     getEnvMoney("FLAT_SHIPPING_PRICE", 999),
		TaxRatePercent:        getEnvDecimal("TAX_RATE_PERCENT", decimal.NewFromInt(10)),

		DefaultCarrier:   getEnv("DEFAULT_CARRIER", "Standard Shipping"),
		DefaultSignature: getEnv("DEFAULT_SIGNATURE", "Digital Signature"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid boolean %q, using %v", v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid duration %q, using %s", v, fallback)
		return fallback
	}
	return d
}

// getEnvMoney acepta importes con punto decimal: "9.99".
func getEnvMoney(key string, fallback model.Money) model.Money {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	m, err := model.ParseMoney(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid amount %q, using %s", v, fallback)
		return fallback
	}
	return m
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		log.WithField("key", key).Warnf("invalid decimal %q, using %s", v, fallback)
		return fallback
	}
	return d
}

// getEnvList separa por comas y descarta vacíos. Sin valor devuelve nil.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
