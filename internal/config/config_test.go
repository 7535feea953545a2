package config_test

import (
	"testing"
	"time"

	"onebid/internal/config"
	"onebid/internal/money"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REACTIVATION_FEE", "75.5")
	t.Setenv("FINALIZE_INTERVAL", "0")
	t.Setenv("VIP_MIN_TRANSACTIONS", "not-a-number")

	cfg := config.Load()
	if cfg.Port != "9090" {
		t.Fatalf("port = %s", cfg.Port)
	}
	if cfg.ReactivationFee != money.Must("75.50") {
		t.Fatalf("fee = %s", cfg.ReactivationFee)
	}
	if cfg.FinalizeInterval != 0 {
		t.Fatalf("interval = %s", cfg.FinalizeInterval)
	}
	if cfg.VIPMinTransactions != 5 {
		t.Fatalf("bad value should keep default, got %d", cfg.VIPMinTransactions)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("ttl = %s", cfg.TokenTTL)
	}
}
