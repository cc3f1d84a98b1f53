package config // package config loads application configuration from environment variables

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration of the booking server.  Each field
// maps to an environment variable.
type Config struct {
	Env      string // application environment (dev, test, prod)
	Port     string // HTTP port to listen on
	LogLevel string

	BackendURL string // base URL of the inventory/payment backend

	JWTSecret  string        // secret used to sign session tokens
	SessionTTL time.Duration // idle lifetime of a booking session

	FarePerSeat    int64  // amount per seat sent to create-order
	Currency       string // currency assumed when an order omits one
	QuoteTTL       time.Duration
	QuoteTimeout   time.Duration
	ConfirmTimeout time.Duration
	ConfirmLockTTL time.Duration

	RazorpayKeyID     string // public checkout key handed to the widget
	RazorpayScriptURL string
	MerchantName      string
	ThemeColor        string

	DB        DBConfig
	RabbitURL string // empty disables booking events
}

// DBConfig holds the MySQL connection settings of the booking ledger.
type DBConfig struct {
	Enabled bool
	User    string
	Pass    string
	Host    string
	Port    string
	Name    string
}

// LoadEnvFile loads variables from the given .env files (".env" when none
// are given) without overriding variables already set.  Missing files are
// ignored.
func LoadEnvFile(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads the configuration from the environment.  Required variables
// are enforced by must(); a missing one stops the program.
func Load() Config {
	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "8080"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		BackendURL: must("BACKEND_URL"),

		JWTSecret:  must("JWT_SECRET"),
		SessionTTL: time.Duration(envInt("SESSION_TTL_MIN", 30)) * time.Minute,

		FarePerSeat:    int64(envInt("FARE_PER_SEAT", 500)),
		Currency:       envStr("CURRENCY", "INR"),
		QuoteTTL:       envDur("QUOTE_TTL", 15*time.Minute),
		QuoteTimeout:   envDur("QUOTE_TIMEOUT", 10*time.Second),
		ConfirmTimeout: envDur("CONFIRM_TIMEOUT", 15*time.Second),
		ConfirmLockTTL: envDur("CONFIRM_LOCK_TTL", 2*time.Minute),

		RazorpayKeyID:     must("RAZORPAY_KEY_ID"),
		RazorpayScriptURL: envStr("RAZORPAY_SCRIPT_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		MerchantName:      envStr("MERCHANT_NAME", "Bus Ticket Booking"),
		ThemeColor:        envStr("THEME_COLOR", "#F37254"),

		DB: DBConfig{
			Enabled: envBool("DB_ENABLED", true),
			User:    os.Getenv("DB_USER"),
			Pass:    os.Getenv("DB_PASS"), // empty allowed
			Host:    envStr("DB_HOST", "127.0.0.1"),
			Port:    envStr("DB_PORT", "3306"),
			Name:    os.Getenv("DB_NAME"),
		},
		RabbitURL: envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
	}
	if cfg.DB.Enabled {
		cfg.DB.User = must("DB_USER")
		cfg.DB.Name = must("DB_NAME")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	return cfg
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}

// ConsumerConfig configures the booking event consumer.
type ConsumerConfig struct {
	Env       string
	LogLevel  string
	RabbitURL string
	LogPath   string // booking log file
}

// LoadConsumer reads the consumer configuration.  RABBITMQ_URL is required.
func LoadConsumer() ConsumerConfig {
	url := envStr("RABBITMQ_URL", os.Getenv("AMQP_URL"))
	if url == "" {
		url = must("RABBITMQ_URL")
	}
	return ConsumerConfig{
		Env:       envStr("APP_ENV", "dev"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		RabbitURL: url,
		LogPath:   envStr("BOOKING_LOG_PATH", "logs/booking.log"),
	}
}
