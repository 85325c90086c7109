package cache

import (
	"fmt"
	"strings"
)

// ValidateKey rejects empty keys and keys that would escape a flat namespace.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if key == "." || key == ".." || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q contains a parent reference", ErrInvalidKey, key)
	}
	if strings.ContainsAny(key, "/\\\x00") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}

	return nil
}
