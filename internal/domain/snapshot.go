package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EncodeSnapshot serializes a row map for conflict storage: timestamps as
// ISO-8601 strings, numbers as-is, anything exotic via string fallback
func EncodeSnapshot(row map[string]any) (string, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = snapshotValue(v)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func snapshotValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int, int32, int64, float32, float64, json.Number:
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// DecodeSnapshot parses a stored conflict snapshot back into a row map
func DecodeSnapshot(data string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	return m, nil
}
