package cache

import "errors"

var (
	// ErrInvalidKey indicates a key that cannot be mapped safely onto storage.
	ErrInvalidKey = errors.New("cache: invalid key")
	// ErrDeserialization indicates stored content the codec cannot decode.
	ErrDeserialization = errors.New("cache: deserialization failed")
	// ErrSerialization indicates a value the codec cannot encode.
	ErrSerialization = errors.New("cache: serialization failed")
)
