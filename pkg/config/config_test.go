package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "backtest" {
		t.Errorf("mode = %q, want backtest", cfg.Mode)
	}
	if cfg.Capital != 1000 {
		t.Errorf("capital = %v, want 1000", cfg.Capital)
	}
	if cfg.Instrument != "BTC-USDT-SWAP" || cfg.Bar != "1m" {
		t.Errorf("instrument/bar = %q/%q", cfg.Instrument, cfg.Bar)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MODE", "live")
	t.Setenv("CAPITAL", "2500.5")
	t.Setenv("LEVERAGE", "10")
	t.Setenv("OKX_API_KEY", "k")
	t.Setenv("OKX_SECRET_KEY", "s")
	t.Setenv("OKX_PASSPHRASE", "p")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "live" || cfg.Capital != 2500.5 || cfg.Leverage != 10 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	t.Setenv("MODE", "paper")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLiveRequiresCredentials(t *testing.T) {
	t.Setenv("MODE", "live")
	t.Setenv("OKX_API_KEY", "")
	t.Setenv("OKX_SECRET_KEY", "")
	t.Setenv("OKX_PASSPHRASE", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
