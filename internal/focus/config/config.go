package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Socket is the unix socket path the command channel listens on.
	Socket string `koanf:"socket" validate:"required"`

	// DBPath is the bbolt database holding the settings snapshot.
	DBPath string `koanf:"db_path" validate:"required"`

	// UsageDBPath is the bbolt database holding per-site usage.
	UsageDBPath string `koanf:"usage_db_path" validate:"required"`

	// CacheSize bounds the per-URL decision cache.
	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// TickSeconds is the period of the transition tick.
	TickSeconds uint `koanf:"tick_seconds" validate:"required,gte=1"`

	// BlockPage is the interstitial base URL blocked navigations are
	// redirected to.
	BlockPage string `koanf:"block_page" validate:"required"`
}

// envLoader loads environment variables with the prefix "FOCUSGATE_",
// lowercasing keys and stripping the prefix. Mockable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "FOCUSGATE_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "FOCUSGATE_")), value
		},
	}), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Defaults via structs provider.
	k.Load(structs.Provider(AppConfig{
		Env:         "prod",
		LogLevel:    "info",
		Socket:      "/tmp/focusgate.sock",
		DBPath:      "focusgate.db",
		UsageDBPath: "focusgate-usage.db",
		CacheSize:   1024,
		TickSeconds: 60,
		BlockPage:   "focusgate://blocked",
	}, "koanf"), nil)

	err := envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
