package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scorebot/internal/config"
	"scorebot/internal/driver"
)

func writeConfigFile(t *testing.T, path string, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func loadTestApp(t *testing.T, botYAML string) (config.App, *config.Dir) {
	t.Helper()

	configDir := filepath.Join(t.TempDir(), "config")
	writeConfigFile(t, filepath.Join(configDir, "bot.yaml"), botYAML)
	writeConfigFile(t, filepath.Join(configDir, "secrets.yaml"), "telegram_bot_token: \"1:abc\"\n")

	dir, err := config.LoadDir(configDir)
	if err != nil {
		t.Fatalf("load config dir: %v", err)
	}
	app, err := config.LoadApp(dir)
	if err != nil {
		t.Fatalf("load app config: %v", err)
	}

	return app, dir
}

func TestRunBotConsoleSession(t *testing.T) {
	cacheDir := t.TempDir()
	app, dir := loadTestApp(t, `
log_level: debug
locale: en
kernel:
  workers: 1
cache:
  backend: filesystem
  path: `+cacheDir+`
drivers:
  - name: local
    type: console
    config:
      channel_id: "-42"
`)

	input := strings.Join([]string{
		"!result 1 0",
		"!result fix 2 1",
		"!results 1 0",
		"!result view",
		"!ping",
		"!result",
		"!result aide",
		"hello there",
	}, "\n") + "\n"

	var output bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := runBot(ctx, app, driver.Environment{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Secret: secretLookup(dir),
		Stdin:  strings.NewReader(input),
		Stdout: &output,
	})
	if err != nil {
		t.Fatalf("runBot = %v, want nil", err)
	}

	replies := strings.Split(strings.TrimSpace(output.String()), "\n\n")
	wantPrefixes := []string{
		"This channel has no tracker yet.",
		"> **Cumulative results**: `2-1`, win rate `66.67%` over 3 games",
		"> **Cumulative results**: `3-1`, win rate `75.00%` over 4 games",
		"> **Cumulative results**: `3-1`, win rate `75.00%` over 4 games",
		"Hey, how are you ?",
		"> **Command Help: **",
		"> **Command Help: **",
	}
	if len(replies) != len(wantPrefixes) {
		t.Fatalf("replies = %d %q, want %d", len(replies), replies, len(wantPrefixes))
	}
	for index, want := range wantPrefixes {
		if !strings.HasPrefix(replies[index], want) {
			t.Fatalf("reply[%d] = %q, want prefix %q", index, replies[index], want)
		}
	}

	record, err := os.ReadFile(filepath.Join(cacheDir, "tracker--42.cache"))
	if err != nil {
		t.Fatalf("read tracker record: %v", err)
	}
	if !strings.Contains(string(record), `"score":{"victories":3,"defeats":1}`) {
		t.Fatalf("record = %s, want 3-1 score", record)
	}
}

func TestRunBotRequiresDriver(t *testing.T) {
	app, dir := loadTestApp(t, "cache:\n  path: "+t.TempDir()+"\n")

	err := runBot(context.Background(), app, driver.Environment{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Secret: secretLookup(dir),
	})
	if err == nil || !strings.Contains(err.Error(), "no enabled driver") {
		t.Fatalf("error = %v, want no enabled driver", err)
	}
}

func TestSecretLookup(t *testing.T) {
	_, dir := loadTestApp(t, "log_level: info\n")

	lookup := secretLookup(dir)
	if got := lookup("telegram_bot_token"); got != "1:abc" {
		t.Fatalf("secret = %q, want 1:abc", got)
	}
	if got := lookup("missing"); got != "" {
		t.Fatalf("secret = %q, want empty", got)
	}
}
