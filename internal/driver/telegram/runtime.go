package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gotd/td/session"
	gotdtelegram "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"gopkg.in/yaml.v3"
)

const (
	defaultRuntimeSessionFile  = "var/telegram/session.json"
	defaultRuntimeUpdateBuffer = 256

	// SecretBotToken is the secrets key consulted when bot_token is not set inline.
	SecretBotToken = "telegram_bot_token"
)

type runtimeConfig struct {
	AppID          int    `yaml:"app_id"`
	AppHash        string `yaml:"app_hash"`
	BotToken       string `yaml:"bot_token"`
	SessionFile    string `yaml:"session_file"`
	UpdateBuffer   int    `yaml:"update_buffer"`
	PublishTimeout string `yaml:"publish_timeout"`
	RPCTimeout     string `yaml:"rpc_timeout"`
}

type parsedRuntimeConfig struct {
	appID          int
	appHash        string
	botToken       string
	sessionFile    string
	updateBuffer   int
	publishTimeout time.Duration
	rpcTimeout     time.Duration
}

// Runtime bundles the inbound driver and outbound for one configured bot.
type Runtime struct {
	Driver   *Driver
	Outbound *Outbound
}

// BuildRuntime builds one Telegram bot from its driver config section.
// secret resolves credentials kept outside the driver section and may be nil.
func BuildRuntime(
	name string,
	logger *slog.Logger,
	config *yaml.Node,
	secret func(key string) string,
) (Runtime, error) {
	cfg, err := parseRuntimeConfig(config, secret)
	if err != nil {
		return Runtime{}, fmt.Errorf("parse telegram runtime config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("driver", name)

	sessionStorage, err := newGotdSessionStorage(cfg.sessionFile)
	if err != nil {
		return Runtime{}, fmt.Errorf("new gotd session storage: %w", err)
	}

	dispatcher := tg.NewUpdateDispatcher()
	client := gotdtelegram.NewClient(cfg.appID, cfg.appHash, gotdtelegram.Options{
		UpdateHandler:  gotdUpdateHandler{dispatcher: dispatcher},
		SessionStorage: sessionStorage,
	})

	peers := NewPeerCache()
	source, err := NewGotdSource(
		botSession{client: client, botToken: cfg.botToken, logger: logger},
		dispatcher,
		peers,
		logger,
		cfg.updateBuffer,
	)
	if err != nil {
		return Runtime{}, fmt.Errorf("new gotd source: %w", err)
	}

	driver, err := NewDriver(
		source,
		WithName(name),
		WithPublishTimeout(cfg.publishTimeout),
		WithErrorHandler(func(_ context.Context, err error) {
			logger.Error("telegram driver async error", "error", err)
		}),
	)
	if err != nil {
		return Runtime{}, fmt.Errorf("new telegram driver: %w", err)
	}

	outbound, err := NewOutbound(
		client,
		peers,
		WithOutboundTimeout(cfg.rpcTimeout),
		WithOutboundLogger(logger),
	)
	if err != nil {
		return Runtime{}, fmt.Errorf("new telegram outbound: %w", err)
	}

	return Runtime{Driver: driver, Outbound: outbound}, nil
}

func parseRuntimeConfig(node *yaml.Node, secret func(key string) string) (parsedRuntimeConfig, error) {
	if node == nil || node.Kind == 0 {
		return parsedRuntimeConfig{}, fmt.Errorf("missing config")
	}

	var parsed runtimeConfig
	if err := node.Decode(&parsed); err != nil {
		return parsedRuntimeConfig{}, fmt.Errorf("decode: %w", err)
	}

	cfg := parsedRuntimeConfig{
		appID:          parsed.AppID,
		appHash:        strings.TrimSpace(parsed.AppHash),
		botToken:       strings.TrimSpace(parsed.BotToken),
		sessionFile:    strings.TrimSpace(parsed.SessionFile),
		updateBuffer:   parsed.UpdateBuffer,
		publishTimeout: defaultPublishTimeout,
		rpcTimeout:     defaultOutboundTimeout,
	}
	if cfg.botToken == "" && secret != nil {
		cfg.botToken = strings.TrimSpace(secret(SecretBotToken))
	}
	if cfg.updateBuffer <= 0 {
		cfg.updateBuffer = defaultRuntimeUpdateBuffer
	}
	if cfg.sessionFile == "" {
		cfg.sessionFile = defaultRuntimeSessionFile
	}

	var err error
	if cfg.publishTimeout, err = parsePositiveDuration("publish_timeout", parsed.PublishTimeout, cfg.publishTimeout); err != nil {
		return parsedRuntimeConfig{}, err
	}
	if cfg.rpcTimeout, err = parsePositiveDuration("rpc_timeout", parsed.RPCTimeout, cfg.rpcTimeout); err != nil {
		return parsedRuntimeConfig{}, err
	}

	if cfg.appID <= 0 {
		return parsedRuntimeConfig{}, fmt.Errorf("app_id must be > 0")
	}
	if cfg.appHash == "" {
		return parsedRuntimeConfig{}, fmt.Errorf("app_hash is required")
	}
	if cfg.botToken == "" {
		return parsedRuntimeConfig{}, fmt.Errorf("bot_token is required (inline or secrets.%s)", SecretBotToken)
	}

	return cfg, nil
}

func parsePositiveDuration(field, raw string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("parse %s: must be > 0", field)
	}

	return parsed, nil
}

func newGotdSessionStorage(path string) (*session.FileStorage, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("empty session file path")
	}

	absPath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute session file path: %w", err)
	}
	sessionDir := filepath.Dir(absPath)
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory %s: %w", sessionDir, err)
	}

	return &session.FileStorage{Path: absPath}, nil
}
