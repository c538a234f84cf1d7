package domain_test

import (
	"testing"
	"time"

	"syncfabric/internal/domain"
)

func TestDecodeRow_JSONString(t *testing.T) {
	ch := domain.ChangeEvent{ChangeID: 7, RowData: `{"user_id":"u1","row_version":3}`}
	row, err := ch.DecodeRow()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if row["user_id"] != "u1" {
		t.Fatalf("expected user_id u1 got %v", row["user_id"])
	}
}

func TestDecodeRow_NilBecomesEmptyMap(t *testing.T) {
	row, err := domain.ChangeEvent{}.DecodeRow()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(row) != 0 {
		t.Fatalf("expected empty map got %v", row)
	}
}

func TestDecodeRow_BadJSONFails(t *testing.T) {
	_, err := domain.ChangeEvent{RowData: `{"oops"`}.DecodeRow()
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestVersionOf_DefaultsToOne(t *testing.T) {
	cases := []map[string]any{
		{},
		{"row_version": nil},
		{"row_version": 0},
		{"row_version": "abc"},
		{"row_version": -2},
	}
	for _, row := range cases {
		if got := domain.VersionOf(row); got != 1 {
			t.Fatalf("VersionOf(%v): expected 1 got %d", row, got)
		}
	}
}

func TestVersionOf_ReadsNumericForms(t *testing.T) {
	cases := []map[string]any{
		{"row_version": 4},
		{"row_version": int64(4)},
		{"row_version": float64(4)}, // json.Unmarshal produces float64
		{"row_version": "4"},
	}
	for _, row := range cases {
		if got := domain.VersionOf(row); got != 4 {
			t.Fatalf("VersionOf(%v): expected 4 got %d", row, got)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	when := time.Date(2025, 12, 19, 12, 34, 56, 0, time.UTC)
	encoded, err := domain.EncodeSnapshot(map[string]any{
		"product_id": "p1",
		"price":      19.99,
		"updated_at": when,
		"blob":       []byte("raw"),
	})
	if err != nil {
		t.Fatalf("unexpected encode error %v", err)
	}

	row, err := domain.DecodeSnapshot(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error %v", err)
	}
	if row["updated_at"] != "2025-12-19T12:34:56Z" {
		t.Fatalf("expected ISO timestamp got %v", row["updated_at"])
	}
	if row["blob"] != "raw" {
		t.Fatalf("expected bytes decoded to string got %v", row["blob"])
	}
}
