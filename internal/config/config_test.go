package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr: got %q", cfg.ListenAddr)
	}
	if cfg.TradeTimeout != 15*time.Minute {
		t.Errorf("trade timeout: got %s", cfg.TradeTimeout)
	}
	if cfg.MaxItemsPerSide != 50 {
		t.Errorf("max items per side: got %d", cfg.MaxItemsPerSide)
	}
	if cfg.AllowUnknownItemTypes {
		t.Error("unknown item types should be rejected by default")
	}
	if cfg.DBDSN != "" || cfg.RedisAddr != "" {
		t.Error("expected in-memory adapters by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRADECORE_TRADE_TIMEOUT", "90s")
	t.Setenv("TRADECORE_MAX_ITEMS_PER_SIDE", "10")
	t.Setenv("TRADECORE_ALLOW_UNKNOWN_ITEM_TYPES", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TradeTimeout != 90*time.Second {
		t.Errorf("trade timeout: got %s", cfg.TradeTimeout)
	}
	if cfg.MaxItemsPerSide != 10 {
		t.Errorf("max items per side: got %d", cfg.MaxItemsPerSide)
	}
	if !cfg.AllowUnknownItemTypes {
		t.Error("override not applied")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TRADECORE_TRADE_TIMEOUT", "-5m")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative trade timeout")
	}

	t.Setenv("TRADECORE_TRADE_TIMEOUT", "15m")
	t.Setenv("TRADECORE_MAX_ITEMS_PER_SIDE", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero max items per side")
	}
}
