// JSON decoding for container and bus configuration. Uses goccy/go-json, a
// drop-in faster encoding/json replacement, and mitchellh/mapstructure to
// turn a generic config map into a factory-specific typed struct.

package iotrt_internal

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

// Marshal / Unmarshal re-export the go-json equivalents so the rest of the
// package never imports encoding/json directly.
func Marshal(v any) ([]byte, error)        { return json.Marshal(v) }
func Unmarshal(data []byte, v any) error   { return json.Unmarshal(data, v) }
func UnmarshalString(s string, v any) error { return json.Unmarshal([]byte(s), v) }

// DecodeOrderedStringMap decodes a top-level JSON object whose values are
// all strings, preserving declaration order -- the container's top-level
// "component name -> component type" map needs this, since declaration
// order is both the startup order and the reverse of the teardown order.
func DecodeOrderedStringMap(data []byte) (keys []string, values map[string]string, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	values = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected string key, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		val, ok := valTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("component %q: expected string type value, got %v", key, valTok)
		}

		keys = append(keys, key)
		values[key] = val
	}
	return keys, values, nil
}

// DecodeConfigMap turns a generic JSON object into map[string]any, the shape
// a ComponentFactory.ConfigFn receives.
func DecodeConfigMap(data []byte) (map[string]any, error) {
	m := make(map[string]any)
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeInto decodes a generic config map into a typed struct via
// mapstructure, the idiomatic way to turn a loosely-typed configuration map
// into the struct a specific factory expects.
func DecodeInto(config map[string]any, target any) error {
	return mapstructure.Decode(config, target)
}
