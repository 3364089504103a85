package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // POS_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	DatabaseURL   string
	DB            DBConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	FeedChannel   string

	JWTSecret string
	TokenTTL  time.Duration

	// Location is the business timezone that defines a calendar day.
	Location *time.Location

	Checkout CheckoutConfig
	Outbox   OutboxConfig
	Receipt  ReceiptConfig

	LowStockThreshold int
	LogFile           string
	Debug             bool
}

// DBConfig holds the discrete connection settings used when DATABASE_URL
// is empty.
type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

type CheckoutConfig struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

type OutboxConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxDeliveries int
	StepAttempts  uint
}

type ReceiptConfig struct {
	StoreName string
	Tagline   string
	Currency  string
	Width     int
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	tz := getEnv("POS_TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("POS_TIMEZONE %q: %w", tz, err)
	}

	cfg := Config{
		Port:          getEnv("PORT", "3000"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "*"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "pos"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		FeedChannel:   getEnv("FEED_CHANNEL", "pos:events"),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTL:      getDuration("TOKEN_TTL", 12*time.Hour),
		Location:      loc,
		Checkout: CheckoutConfig{
			MaxAttempts:  getAttempts("CHECKOUT_MAX_ATTEMPTS", 5),
			InitialDelay: getDuration("CHECKOUT_RETRY_INITIAL", 20*time.Millisecond),
			MaxDelay:     getDuration("CHECKOUT_RETRY_MAX", 500*time.Millisecond),
		},
		Outbox: OutboxConfig{
			PollInterval:  getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:     getInt("OUTBOX_BATCH_SIZE", 50),
			MaxDeliveries: getInt("OUTBOX_MAX_DELIVERIES", 10),
			StepAttempts:  getAttempts("OUTBOX_STEP_ATTEMPTS", 3),
		},
		Receipt: ReceiptConfig{
			StoreName: getEnv("RECEIPT_STORE_NAME", "INJAPAN FOOD"),
			Tagline:   getEnv("RECEIPT_TAGLINE", "POS KASIR"),
			Currency:  getEnv("RECEIPT_CURRENCY", "¥"),
			Width:     getInt("RECEIPT_WIDTH", 32),
		},
		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 10),
		LogFile:           os.Getenv("LOG_FILE"),
		Debug:             getBool("DEBUG", false),
	}

	if cfg.Outbox.BatchSize < 1 {
		cfg.Outbox.BatchSize = 50
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// DSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DB.Host, c.DB.User, c.DB.Password, c.DB.Name, c.DB.Port, c.DB.SSLMode, c.Location.String(),
	)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

// getAttempts reads a retry count; zero and negative values mean one try.
func getAttempts(key string, fallback int) uint {
	n := getInt(key, fallback)
	if n < 1 {
		n = 1
	}
	return uint(n)
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
