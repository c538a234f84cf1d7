package replicator

import (
	"strings"
	"time"
)

// timestampLayouts covers the ISO-8601 shapes the three backends emit in
// change_log snapshots: offset or Z suffixed, fractional or not, and the
// space-separated form mysql produces without ParseTime
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp parses an ISO-8601 string into UTC. Offsetless values are
// taken as UTC. Returns false when no layout matches.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizeRow coerces a decoded snapshot into values every dialect can bind:
// string values under *_at keys become time.Time, bools become 0/1 ints.
// Values that are already normalized pass through unchanged, so applying the
// normalizer twice is a no-op. The input map is not mutated.
func NormalizeRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		switch tv := v.(type) {
		case string:
			if strings.HasSuffix(k, "_at") {
				if t, ok := parseTimestamp(tv); ok {
					out[k] = t
					continue
				}
			}
			out[k] = tv
		case bool:
			if tv {
				out[k] = int64(1)
			} else {
				out[k] = int64(0)
			}
		default:
			out[k] = v
		}
	}
	return out
}
