package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"scorebot/internal/cache"
)

const (
	// SectionBot is the file holding the application settings (bot.yaml).
	SectionBot = "bot"
	// SectionSecrets is the file holding credentials (secrets.yaml).
	SectionSecrets = "secrets"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SCOREBOT_"
)

// App is the bot configuration: the bot section overlaid with SCOREBOT_*
// environment variables.
type App struct {
	LogLevel    string   `yaml:"log_level" env:"LOG_LEVEL"`
	Locale      string   `yaml:"locale" env:"LOCALE"`
	HelpAliases []string `yaml:"help_aliases" env:"HELP_ALIASES" envSeparator:","`

	Kernel  Kernel       `yaml:"kernel" envPrefix:"KERNEL_"`
	Cache   cache.Config `yaml:"cache" envPrefix:"CACHE_"`
	Metrics Metrics      `yaml:"metrics" envPrefix:"METRICS_"`

	Drivers []Driver `yaml:"drivers"`
}

// Kernel tunes message dispatch.
type Kernel struct {
	Workers           int           `yaml:"workers" env:"WORKERS"`
	QueueSize         int           `yaml:"queue_size" env:"QUEUE_SIZE"`
	HandlerTimeout    time.Duration `yaml:"handler_timeout" env:"HANDLER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	ModuleHookTimeout time.Duration `yaml:"module_hook_timeout" env:"MODULE_HOOK_TIMEOUT"`
}

// Metrics configures the metrics and health HTTP listener. An empty Addr
// disables it.
type Metrics struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Driver is one configured chat gateway. Config is decoded by the driver
// type's builder.
type Driver struct {
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
	Enabled *bool     `yaml:"enabled"`
	Config  yaml.Node `yaml:"config"`
}

// IsEnabled reports whether the driver should run. Drivers default to enabled.
func (d Driver) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// DefaultApp returns the settings used for every field the bot section and
// environment leave unset.
func DefaultApp() App {
	return App{
		LogLevel:    "info",
		Locale:      "en",
		HelpAliases: []string{"aide"},
		Cache: cache.Config{
			Backend: cache.BackendFilesystem,
			Path:    "var/cache",
		},
	}
}

// LoadApp decodes the bot section of dir over DefaultApp and applies
// environment overrides. A missing bot section leaves the defaults.
func LoadApp(dir *Dir) (App, error) {
	app := DefaultApp()
	if dir != nil {
		if err := dir.Decode(SectionBot, &app); err != nil && !errors.Is(err, ErrSectionNotFound) {
			return App{}, err
		}
	}
	if err := env.ParseWithOptions(&app, env.Options{Prefix: EnvPrefix}); err != nil {
		return App{}, fmt.Errorf("parse env: %w", err)
	}
	if err := app.Validate(); err != nil {
		return App{}, err
	}

	return app, nil
}

// Validate checks values that cannot be corrected by defaults.
func (a App) Validate() error {
	if _, err := ParseLogLevel(a.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if a.Kernel.Workers < 0 {
		return fmt.Errorf("kernel.workers: must be >= 0")
	}
	if a.Kernel.QueueSize < 0 {
		return fmt.Errorf("kernel.queue_size: must be >= 0")
	}

	seen := make(map[string]struct{}, len(a.Drivers))
	for index, definition := range a.Drivers {
		name := strings.TrimSpace(definition.Name)
		if name == "" {
			return fmt.Errorf("drivers[%d].name is required", index)
		}
		if strings.TrimSpace(definition.Type) == "" {
			return fmt.Errorf("drivers[%s].type is required", name)
		}
		if _, exists := seen[name]; exists {
			return fmt.Errorf("drivers[%s]: duplicate name", name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// Level returns the parsed log level.
func (a App) Level() slog.Level {
	level, err := ParseLogLevel(a.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

// ParseLogLevel maps debug, info, warn, and error to slog levels.
func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}
