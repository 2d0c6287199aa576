package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// JSONConfig provides centralized JSON configuration for consistent decoding behavior
type JSONConfig struct {
	// DisallowUnknownFields controls whether unknown fields are rejected
	DisallowUnknownFields bool
	// UseNumber controls whether numbers should be decoded as json.Number
	UseNumber bool
}

// DefaultConfig allows unknown fields so newer datafiles keep loading.
func DefaultConfig() *JSONConfig {
	return &JSONConfig{
		DisallowUnknownFields: false,
		UseNumber:             false,
	}
}

// StrictConfig returns a strict JSON configuration that disallows unknown fields
func StrictConfig() *JSONConfig {
	return &JSONConfig{
		DisallowUnknownFields: true,
		UseNumber:             false,
	}
}

// Decode decodes a single JSON document from data into v. Trailing data after
// the document is an error.
func Decode(data []byte, v interface{}, config *JSONConfig) error {
	if config == nil {
		config = DefaultConfig()
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	if config.DisallowUnknownFields {
		decoder.DisallowUnknownFields()
	}
	if config.UseNumber {
		decoder.UseNumber()
	}

	if err := decoder.Decode(v); err != nil {
		return err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after JSON document")
	}
	return nil
}
