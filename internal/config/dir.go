// Package config loads a directory of YAML files as named sections and
// builds the bot configuration from it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigDir overrides the configuration directory.
	EnvConfigDir = "SCOREBOT_CONFIG_DIR"

	defaultConfigDir   = "config"
	alternateConfigDir = "bin/config"
)

// ErrSectionNotFound indicates a lookup into a section no file defined.
var ErrSectionNotFound = errors.New("config: section not found")

// Dir holds every YAML file of one directory, keyed by file name without
// extension.
type Dir struct {
	path     string
	raw      map[string][]byte
	sections map[string]map[string]any
}

// ResolveDir returns SCOREBOT_CONFIG_DIR when set, else the first existing
// of "config" and "bin/config".
func ResolveDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return dir, nil
	}

	for _, candidate := range []string{defaultConfigDir, alternateConfigDir} {
		info, err := os.Stat(candidate)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("config dir %s is not a directory", candidate)
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config dir %s: %w", candidate, err)
		}
	}

	return "", fmt.Errorf(
		"config dir not found; create %s or %s, or set %s",
		defaultConfigDir,
		alternateConfigDir,
		EnvConfigDir,
	)
}

// LoadDir parses every *.yaml and *.yml file in path. Two files naming the
// same section are rejected.
func LoadDir(path string) (*Dir, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %s: %w", path, err)
	}

	dir := &Dir{
		path:     path,
		raw:      make(map[string][]byte),
		sections: make(map[string]map[string]any),
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		section := strings.TrimSuffix(entry.Name(), ext)
		if _, exists := dir.raw[section]; exists {
			return nil, fmt.Errorf("config section %s: defined twice in %s", section, path)
		}

		filePath := filepath.Join(path, entry.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", filePath, err)
		}
		values := make(map[string]any)
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", filePath, err)
		}

		dir.raw[section] = data
		dir.sections[section] = values
	}

	return dir, nil
}

// Path returns the loaded directory.
func (d *Dir) Path() string {
	return d.path
}

// Sections returns the section names, sorted.
func (d *Dir) Sections() []string {
	names := make([]string, 0, len(d.sections))
	for name := range d.sections {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Lookup returns the value at key in section. Dots in key descend into
// nested maps.
func (d *Dir) Lookup(section string, key string) (any, bool) {
	values, ok := d.sections[section]
	if !ok {
		return nil, false
	}

	var current any = values
	for _, part := range strings.Split(key, ".") {
		nested, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = nested[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// String returns the value at key rendered as a string, or fallback when it
// is missing or not a scalar.
func (d *Dir) String(section string, key string, fallback string) string {
	value, ok := d.Lookup(section, key)
	if !ok || value == nil {
		return fallback
	}

	switch typed := value.(type) {
	case string:
		return typed
	case map[string]any, []any:
		return fallback
	default:
		return fmt.Sprint(typed)
	}
}

// Decode unmarshals a whole section into target.
func (d *Dir) Decode(section string, target any) error {
	data, ok := d.raw[section]
	if !ok {
		return fmt.Errorf("decode %s: %w", section, ErrSectionNotFound)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", section, err)
	}

	return nil
}
