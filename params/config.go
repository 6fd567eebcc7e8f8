package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Server struct {
	Addr        string
	CORSOrigins []string
	TxLogFile   string // audit journal, one JSON line per ledger entry; empty disables
}

type Storage struct {
	DBPath string
}

type Log struct {
	File  string
	Level string
}

type Bank struct {
	// ConnectionSecret signs platform connection tokens. Rotating it does
	// not invalidate stored tokens; they are compared verbatim.
	ConnectionSecret string
	SystemLabel      string
	HistoryDays      int
	CardExpiryYears  int
	OpTimeout        time.Duration
}

type Quotes struct {
	Provider  string // "alpaca" or "static"
	Timeout   time.Duration
	APIKey    string
	APISecret string
	BaseURL   string
	DataURL   string
	Feed      string
}

type Config struct {
	Server  Server
	Storage Storage
	Log     Log
	Bank    Bank
	Quotes  Quotes
}

// DefaultConnectionSecret is the signing secret used when CONNECTION_SECRET
// is unset. It is public; production deployments must override it.
const DefaultConnectionSecret = "connection_key"

func Default() Config {
	return Config{
		Server: Server{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Storage: Storage{
			DBPath: "data/cardbank",
		},
		Log: Log{
			File:  "data/cardbank.log",
			Level: "info",
		},
		Bank: Bank{
			ConnectionSecret: DefaultConnectionSecret,
			SystemLabel:      "Stock Bot",
			HistoryDays:      7,
			CardExpiryYears:  5,
			OpTimeout:        15 * time.Second,
		},
		Quotes: Quotes{
			Provider: "alpaca",
			Timeout:  5 * time.Second,
			Feed:     "iex",
		},
	}
}

// UsesDefaultSecret reports whether tokens are signed with the public
// default secret.
func (c Config) UsesDefaultSecret() bool {
	return c.Bank.ConnectionSecret == DefaultConnectionSecret
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Server.Addr = getEnv("API_ADDR", cfg.Server.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = splitList(origins)
	}
	cfg.Server.TxLogFile = getEnv("TX_LOG_FILE", cfg.Server.TxLogFile)

	cfg.Storage.DBPath = getEnv("DB_PATH", cfg.Storage.DBPath)

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.Bank.ConnectionSecret = getEnv("CONNECTION_SECRET", cfg.Bank.ConnectionSecret)
	cfg.Bank.SystemLabel = getEnv("SYSTEM_LABEL", cfg.Bank.SystemLabel)
	cfg.Bank.HistoryDays = getEnvInt("HISTORY_DAYS", cfg.Bank.HistoryDays)
	cfg.Bank.CardExpiryYears = getEnvInt("CARD_EXPIRY_YEARS", cfg.Bank.CardExpiryYears)
	cfg.Bank.OpTimeout = getEnvMillis("OP_TIMEOUT_MS", cfg.Bank.OpTimeout)

	cfg.Quotes.Provider = strings.ToLower(getEnv("QUOTE_PROVIDER", cfg.Quotes.Provider))
	cfg.Quotes.Timeout = getEnvMillis("QUOTE_TIMEOUT_MS", cfg.Quotes.Timeout)
	cfg.Quotes.APIKey = getEnv("ALPACA_API_KEY", cfg.Quotes.APIKey)
	cfg.Quotes.APISecret = getEnv("ALPACA_API_SECRET", cfg.Quotes.APISecret)
	cfg.Quotes.BaseURL = getEnv("ALPACA_BASE_URL", cfg.Quotes.BaseURL)
	cfg.Quotes.DataURL = getEnv("ALPACA_DATA_URL", cfg.Quotes.DataURL)
	cfg.Quotes.Feed = getEnv("ALPACA_FEED", cfg.Quotes.Feed)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt ignores values that are not positive integers.
func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
