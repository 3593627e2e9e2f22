package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("OBGATE_HOST", "0.0.0.0")
	t.Setenv("OBGATE_PORT", "8200")
	t.Setenv("OBGATE_TOKEN", "env-token")
	t.Setenv("OBGATE_CORE_HOST", "core.internal")
	t.Setenv("OBGATE_CORE_PORT", "9000")
	t.Setenv("OBGATE_RESPONSE_TIMEOUT", "45s")
	t.Setenv("OBGATE_DETECTION", "true")
	t.Setenv("OBGATE_DETECTION_API_URL", "https://mod.example.com")
	t.Setenv("OBGATE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}

	if cfg.Host != "0.0.0.0" || cfg.Port != 8200 || cfg.Token != "env-token" {
		t.Errorf("ingress = %s:%d token=%q", cfg.Host, cfg.Port, cfg.Token)
	}
	if cfg.CoreHost != "core.internal" || cfg.CorePort != 9000 {
		t.Errorf("core = %s:%d", cfg.CoreHost, cfg.CorePort)
	}
	if cfg.ResponseTimeout != 45*time.Second {
		t.Errorf("response timeout = %v", cfg.ResponseTimeout)
	}
	if !cfg.DetectionEnabled {
		t.Error("detection not enabled from env")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestApplyEnvConfig_FlagsWin(t *testing.T) {
	t.Setenv("OBGATE_PORT", "8200")

	cfg := DefaultConfig()
	cfg.Port = 7777
	if err := ApplyEnvConfig(&cfg, map[string]bool{"port": true}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}
	if cfg.Port != 7777 {
		t.Errorf("port = %d, flag override lost", cfg.Port)
	}
}

func TestApplyEnvConfig_BadValues(t *testing.T) {
	t.Setenv("OBGATE_PORT", "not-a-number")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err == nil {
		t.Error("ApplyEnvConfig accepted garbage port")
	}
}

func TestApplyEnvConfig_EmptyLeavesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	want := cfg

	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatalf("ApplyEnvConfig: %v", err)
	}
	if cfg.Host != want.Host || cfg.Port != want.Port || cfg.ResponseTimeout != want.ResponseTimeout {
		t.Error("defaults mutated by empty environment")
	}
}
