package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("zero limit should default, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("oversized limit should cap, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("valid limit should pass through, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ID:        uuid.New(),
	}
	encoded := EncodeCursor(cursor)
	decoded, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if decoded == nil {
		t.Fatal("decoded cursor is nil")
	}
	if !decoded.CreatedAt.Equal(cursor.CreatedAt) || decoded.ID != cursor.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, cursor)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatal("expected decode error")
	}
	if got, err := ParseCursor("   "); err != nil || got != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", got, err)
	}
}
