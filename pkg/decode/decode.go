// Package decode converts loosely typed event payloads into structs.
package decode

import "encoding/json"

// FromMap round-trips data through JSON into T, so struct json tags
// decide which keys are read.
func FromMap[T any](data map[string]any) (T, error) {
	var result T
	b, err := json.Marshal(data)
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(b, &result)
	return result, err
}
