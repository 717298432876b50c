package postgres

import (
	"errors"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 0, 123456000, time.UTC),
		ID:        "3f1c9a2e-0000-0000-0000-000000000000",
	}

	out, err := DecodeCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecodeCursorEmptyIsFirstPage(t *testing.T) {
	c, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor(\"\"): %v", err)
	}
	if c != nil {
		t.Errorf("empty cursor should decode to nil, got %+v", c)
	}
}

func TestDecodeCursorInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not base64", "not-base64!!"},
		{"no separator", "bm8tcGlwZQ"}, // "no-pipe"
		{"bad timestamp", "YWJjfGlk"},  // "abc|id"
		{"empty id", "MTIzfA"},         // "123|"
	}
	for _, tc := range cases {
		if _, err := DecodeCursor(tc.raw); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("%s: DecodeCursor(%q) = %v, want ErrInvalidCursor", tc.name, tc.raw, err)
		}
	}
}
