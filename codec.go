package payright

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
)

// checkDestination makes sure dst can receive a decoded value.
func checkDestination(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dst)
	}
	return nil
}

func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode payload into %T: %w", dst, err)
	}
	return nil
}

// reset sets the value dst points to back to its zero value.
func reset(dst any) {
	reflect.ValueOf(dst).Elem().SetZero()
}

// envelope is a parsed success response. Values are kept loosely typed until
// the configured members are extracted.
type envelope map[string]any

func parseEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}
	if env == nil {
		return nil, fmt.Errorf("response envelope is null")
	}
	return env, nil
}

// stringField extracts the named member, which must be a JSON string.
func (e envelope) stringField(name string) (string, error) {
	v, ok := e[name]
	if !ok || v == nil {
		return "", fmt.Errorf("response envelope has no %q member", name)
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("response envelope member %q is not a string (got %T)", name, v)
	}
	return s, nil
}
