package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func newTestConfigDir(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	cacheDir := filepath.Join(root, "cache")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	botYAML := "cache:\n  backend: filesystem\n  path: " + cacheDir + "\n"
	if err := os.WriteFile(filepath.Join(configDir, "bot.yaml"), []byte(botYAML), 0o600); err != nil {
		t.Fatalf("write bot.yaml: %v", err)
	}

	return configDir, cacheDir
}

func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()

	var output bytes.Buffer
	fullArgs := append([]string{"scorectl", "--config-dir", configDir}, args...)
	err := newApp(&output).Run(fullArgs)

	return output.String(), err
}

func TestScorectlLifecycle(t *testing.T) {
	configDir, cacheDir := newTestConfigDir(t)

	output, err := runCLI(t, configDir, "fix", "--", "-42", "2", "1")
	if err != nil {
		t.Fatalf("fix: %v", err)
	}
	if !strings.Contains(output, "66.67%") {
		t.Fatalf("fix output = %q, want win rate", output)
	}

	if _, err := runCLI(t, configDir, "fix", "--", "-1000000000007", "0", "0"); err != nil {
		t.Fatalf("fix second: %v", err)
	}

	output, err = runCLI(t, configDir, "show", "--raw", "--", "-42", "missing")
	if err != nil {
		t.Fatalf("show raw: %v", err)
	}
	if !strings.Contains(output, `-42: {"id":"-42"`) || !strings.Contains(output, "missing: no tracker") {
		t.Fatalf("show raw output = %q", output)
	}

	output, err = runCLI(t, configDir, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Fatalf("list lines = %d %q, want header + 2", len(lines), lines)
	}
	if !strings.HasPrefix(lines[1], "-1000000000007") || !strings.Contains(lines[1], " - ") {
		t.Fatalf("list row = %q, want empty tracker with '-' win rate first", lines[1])
	}

	workbookPath := filepath.Join(t.TempDir(), "scores.xlsx")
	if _, err := runCLI(t, configDir, "export", "--out", workbookPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	workbook, err := excelize.OpenFile(workbookPath)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer workbook.Close()
	rows, err := workbook.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][0] != "Channel" || rows[2][0] != "-42" || rows[2][1] != "2" || rows[2][4] != "66.67%" {
		t.Fatalf("rows = %q", rows)
	}

	if _, err := runCLI(t, configDir, "delete", "--", "-42"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "tracker--42.cache")); !os.IsNotExist(err) {
		t.Fatalf("stat deleted record = %v, want not exist", err)
	}

	if _, err := runCLI(t, configDir, "purge"); err == nil {
		t.Fatal("purge without --yes succeeded")
	}
	if _, err := runCLI(t, configDir, "purge", "--yes"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	output, err = runCLI(t, configDir, "list")
	if err != nil {
		t.Fatalf("list after purge: %v", err)
	}
	if strings.Count(strings.TrimSpace(output), "\n") != 0 {
		t.Fatalf("list after purge = %q, want header only", output)
	}
}

func TestScorectlArgumentErrors(t *testing.T) {
	configDir, _ := newTestConfigDir(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "fix arity", args: []string{"fix", "42"}},
		{name: "fix negative", args: []string{"fix", "42", "-1", "0"}},
		{name: "fix not a number", args: []string{"fix", "42", "two", "0"}},
		{name: "show without channel", args: []string{"show"}},
		{name: "delete without channel", args: []string{"delete"}},
		{name: "export without out", args: []string{"export"}},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := runCLI(t, configDir, testCase.args...); err == nil {
				t.Fatalf("%v succeeded, want error", testCase.args)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	if got, err := parseCount("12"); err != nil || got != 12 {
		t.Fatalf("parseCount(12) = %d, %v", got, err)
	}
	for _, raw := range []string{"-1", "1.5", "", "x"} {
		if _, err := parseCount(raw); err == nil {
			t.Fatalf("parseCount(%q) succeeded", raw)
		}
	}
}
