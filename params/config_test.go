package params

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("HISTORY_DAYS", "14")
	t.Setenv("QUOTE_TIMEOUT_MS", "750")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("QUOTE_PROVIDER", "Static")
	t.Setenv("CARD_EXPIRY_YEARS", "not-a-number")

	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %s", cfg.Server.Addr)
	}
	if cfg.Bank.HistoryDays != 14 {
		t.Errorf("HistoryDays = %d, want 14", cfg.Bank.HistoryDays)
	}
	if cfg.Quotes.Timeout != 750*time.Millisecond {
		t.Errorf("quote timeout = %v", cfg.Quotes.Timeout)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Quotes.Provider != "static" {
		t.Errorf("provider = %s, want static", cfg.Quotes.Provider)
	}
	if cfg.Bank.CardExpiryYears != 5 {
		t.Errorf("bad CARD_EXPIRY_YEARS should keep default, got %d", cfg.Bank.CardExpiryYears)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SYSTEM_LABEL=House\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv.Load does not override variables that are already set
	t.Setenv("SYSTEM_LABEL", "")
	os.Unsetenv("SYSTEM_LABEL")

	cfg := LoadFromEnv(path)
	if cfg.Bank.SystemLabel != "House" {
		t.Errorf("SystemLabel = %q, want House", cfg.Bank.SystemLabel)
	}
	os.Unsetenv("SYSTEM_LABEL")
}

func TestUsesDefaultSecret(t *testing.T) {
	t.Setenv("CONNECTION_SECRET", "")
	cfg := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	if !cfg.UsesDefaultSecret() {
		t.Errorf("unset CONNECTION_SECRET should report the default secret")
	}

	t.Setenv("CONNECTION_SECRET", "rotated-secret")
	cfg = LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.UsesDefaultSecret() {
		t.Errorf("custom CONNECTION_SECRET reported as default")
	}
}
