package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/finledger_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("TX_MAX_PER_LIST", "")

	cfg, err := Load("ignore-missing.env.nonexistent")
	if err == nil {
		t.Fatal("expected error for explicit missing env file")
	}

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Transactions.MaxPerListRequest != 100 {
		t.Errorf("MaxPerListRequest = %d, want 100", cfg.Transactions.MaxPerListRequest)
	}
	if cfg.RateLimit.WriteWindow != time.Minute {
		t.Errorf("WriteWindow = %v, want 1m", cfg.RateLimit.WriteWindow)
	}
}

func TestLoadOverridesAndValidation(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/finledger_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TX_MAX_PER_LIST", "25")
	t.Setenv("TX_MAX_FILTER_RANGE_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transactions.MaxPerListRequest != 25 {
		t.Errorf("MaxPerListRequest = %d, want 25", cfg.Transactions.MaxPerListRequest)
	}
	if cfg.Transactions.MaxFilterRangeDays != 30 {
		t.Errorf("MaxFilterRangeDays = %d, want 30", cfg.Transactions.MaxFilterRangeDays)
	}

	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/finledger_test")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when JWT_SECRET is missing")
	}
}
