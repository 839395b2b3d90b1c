package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DISPATCHER_CONFIG", "")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	core := cfg.Core()
	if core.TX.MaxRepeat != 3 || core.TX.Interval != 300*time.Millisecond ||
		core.TX.MaxResendTTL != 10*time.Second || core.RxDuplicatesTimeout != time.Second {
		t.Fatalf("unexpected defaults %+v", core)
	}
	if cfg.CmdSubTopic != "telldus/request/#" || cfg.HTTPPort != 8080 || cfg.GRPCPort != 50051 {
		t.Fatalf("unexpected service defaults %+v", cfg)
	}
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatcher.yaml")
	yml := "mqtt:\n  host: broker.lan\n  port: 8883\ntx_max_repeat: 5\ntx_interval_ms: 250\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DISPATCHER_CONFIG", path)
	t.Setenv("TX_INTERVAL_MS", "400")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MQTT.Host != "broker.lan" || cfg.MQTT.Port != 8883 || cfg.MQTT.ClientID != "telldus-dispatcher" {
		t.Fatalf("unexpected mqtt config %+v", cfg.MQTT)
	}
	if cfg.TxMaxRepeat != 5 || cfg.TxIntervalMs != 400 {
		t.Fatalf("expected yaml repeat and env interval, got %d/%d", cfg.TxMaxRepeat, cfg.TxIntervalMs)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("DISPATCHER_CONFIG", "")
	t.Setenv("TX_MAX_REPEAT", "-1")
	t.Setenv("RX_DUPLICATES_TIMEOUT_MS", "0")
	if _, err := loadConfig(); err == nil {
		t.Fatalf("expected validation error")
	}
}
