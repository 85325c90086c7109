package cache

import (
	"encoding/json"
	"fmt"
)

// Codec converts typed values to and from the string form a Store persists.
type Codec interface {
	Encode(v any) (string, error)
	Decode(data string, v any) error
}

// JSONCodec stores values as JSON documents.
type JSONCodec struct{}

// Encode marshals v as JSON.
func (JSONCodec) Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	return string(data), nil
}

// Decode unmarshals JSON data into v.
func (JSONCodec) Decode(data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}

	return nil
}

// RawCodec passes strings through unchanged. It only accepts *string and string.
type RawCodec struct{}

// Encode returns v when it is a string.
func (RawCodec) Encode(v any) (string, error) {
	switch typed := v.(type) {
	case string:
		return typed, nil
	case *string:
		if typed == nil {
			return "", fmt.Errorf("%w: nil string pointer", ErrSerialization)
		}
		return *typed, nil
	default:
		return "", fmt.Errorf("%w: raw codec cannot encode %T", ErrSerialization, v)
	}
}

// Decode stores data into v when v is a *string.
func (RawCodec) Decode(data string, v any) error {
	target, ok := v.(*string)
	if !ok || target == nil {
		return fmt.Errorf("%w: raw codec cannot decode into %T", ErrDeserialization, v)
	}
	*target = data

	return nil
}
