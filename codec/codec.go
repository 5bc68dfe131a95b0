// Package codec encodes and decodes JSON-RPC payloads.
package codec

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Decode unmarshals bz into a new T
func Decode[T any](bz []byte) (*T, error) {
	out := new(T)
	if err := json.Unmarshal(bz, out); err != nil {
		return nil, fmt.Errorf("decoding %T: %w", out, err)
	}
	return out, nil
}

// DecodeInto unmarshals bz into v
func DecodeInto(bz []byte, v any) error {
	if err := json.Unmarshal(bz, v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}

func Encode(v any) ([]byte, error) {
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return bz, nil
}

// EncodeIndent is Encode with two space indentation, for human output
func EncodeIndent(v any) ([]byte, error) {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return bz, nil
}
