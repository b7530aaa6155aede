package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrUndecodable is returned when no decoding strategy produced a value.
var ErrUndecodable = errors.New("payload could not be decoded")

// ParseHJSON converts Human JSON (comments, unquoted keys, optional commas)
// into standard JSON.
func ParseHJSON(data []byte) ([]byte, error) {
	var result interface{}
	if err := hjson.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("hjson: %w", err)
	}
	return json.Marshal(result)
}

// RepairJSON fixes truncated or sloppy JSON such as unclosed objects,
// single quotes and trailing commas.
func RepairJSON(data []byte) ([]byte, error) {
	repaired, err := jsonrepair.RepairJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("json repair: %w", err)
	}
	return []byte(repaired), nil
}

// DecodeLenient decodes raw into v. Strict JSON is tried first, then Hjson,
// then repaired JSON. Hand-edited request files usually fail the first step.
func DecodeLenient(raw []byte, v interface{}) error {
	strictErr := json.Unmarshal(raw, v)
	if strictErr == nil {
		return nil
	}

	for _, convert := range []func([]byte) ([]byte, error){ParseHJSON, RepairJSON} {
		converted, err := convert(raw)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(converted, v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrUndecodable, strictErr)
}
