package config

import (
	"errors"
	"testing"

	"github.com/knadh/koanf/v2"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Env != "prod" {
		t.Errorf("expected default env 'prod', got %q", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level 'info', got %q", cfg.LogLevel)
	}
	if cfg.Socket != "/tmp/focusgate.sock" {
		t.Errorf("expected default socket, got %q", cfg.Socket)
	}
	if cfg.CacheSize != 1024 {
		t.Errorf("expected default cache_size 1024, got %d", cfg.CacheSize)
	}
	if cfg.TickSeconds != 60 {
		t.Errorf("expected default tick_seconds 60, got %d", cfg.TickSeconds)
	}
	if cfg.BlockPage != "focusgate://blocked" {
		t.Errorf("expected default block_page, got %q", cfg.BlockPage)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FOCUSGATE_ENV", "dev")
	t.Setenv("FOCUSGATE_LOG_LEVEL", "debug")
	t.Setenv("FOCUSGATE_SOCKET", "/run/fg.sock")
	t.Setenv("FOCUSGATE_TICK_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected env 'dev', got %q", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level 'debug', got %q", cfg.LogLevel)
	}
	if cfg.Socket != "/run/fg.sock" {
		t.Errorf("expected socket override, got %q", cfg.Socket)
	}
	if cfg.TickSeconds != 5 {
		t.Errorf("expected tick_seconds 5, got %d", cfg.TickSeconds)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad env", "FOCUSGATE_ENV", "staging"},
		{"bad log level", "FOCUSGATE_LOG_LEVEL", "verbose"},
		{"zero cache size", "FOCUSGATE_CACHE_SIZE", "0"},
		{"zero tick", "FOCUSGATE_TICK_SECONDS", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_EnvLoaderError(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { envLoader = orig }()

	if _, err := Load(); err == nil {
		t.Error("expected an env loading error")
	}
}
