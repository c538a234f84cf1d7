package domain

import "time"

// Conflict lifecycle states
const (
	ConflictOpen     = "OPEN"
	ConflictResolved = "RESOLVED"
)

// WinnerCustom marks a resolution authored by the administrator rather than
// copied from either side
const WinnerCustom = "CUSTOM"

// Conflict is a detected divergence recorded in the control backend
type Conflict struct {
	ConflictID    int64      `json:"conflict_id"`
	TableName     string     `json:"table_name"`
	PKValue       string     `json:"pk_value"`
	SourceDB      string     `json:"source_db"`
	TargetDB      string     `json:"target_db"`
	SourceRowData string     `json:"-"`
	TargetRowData string     `json:"-"`
	Status        string     `json:"status"`
	WinnerDB      string     `json:"winner_db,omitempty"`
	ResolvedBy    string     `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}
