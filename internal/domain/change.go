package domain

import (
	"encoding/json"
	"time"

	perr "syncfabric/internal/platform/errors"
)

// Change op types as emitted by the table triggers. Deletes are recognized in
// the schema but never emitted by the current triggers and are not applied.
const (
	OpInsert = "I"
	OpUpdate = "U"
	OpDelete = "D"
)

// ChangeEvent is one row of a backend's change_log
type ChangeEvent struct {
	ChangeID  int64
	TableName string
	PKValue   string
	OpType    string
	RowData   any // JSON string from the log, or an already-decoded map
	SourceDB  string
	CreatedAt time.Time
}

// DecodeRow returns the row snapshot as a map, decoding RowData when it
// arrives as a JSON string
func (c ChangeEvent) DecodeRow() (map[string]any, error) {
	switch v := c.RowData.(type) {
	case map[string]any:
		return v, nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, perr.JSONErrf("change %d row_data: %v", c.ChangeID, err)
		}
		return m, nil
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, perr.JSONErrf("change %d row_data: %v", c.ChangeID, err)
		}
		return m, nil
	case nil:
		return map[string]any{}, nil
	}
	return nil, perr.JSONErrf("change %d row_data has unsupported type %T", c.ChangeID, c.RowData)
}

// VersionOf reads row_version out of a snapshot, defaulting to 1 the way the
// triggers seed new rows
func VersionOf(row map[string]any) int64 {
	switch v := row[ColRowVersion].(type) {
	case int64:
		if v > 0 {
			return v
		}
	case int:
		if v > 0 {
			return int64(v)
		}
	case float64:
		if v > 0 {
			return int64(v)
		}
	case string:
		var n int64
		for i := 0; i < len(v); i++ {
			if v[i] < '0' || v[i] > '9' {
				return 1
			}
			n = n*10 + int64(v[i]-'0')
		}
		if n > 0 {
			return n
		}
	}
	return 1
}
