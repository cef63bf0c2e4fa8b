package sandbox

import (
	"testing"
	"time"
)

func TestTokenRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tm := NewTokenMaker("secret")
	tm.now = func() time.Time { return now }

	tok, err := tm.New(42, "a@b.c", time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c, err := tm.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.CustomerID != 42 || c.Subject != "42" || c.ID == "" {
		t.Fatalf("claims = %+v", c)
	}

	now = now.Add(2 * time.Hour)
	if _, err := tm.Parse(tok); err == nil {
		t.Fatalf("expired token accepted")
	}

	if _, err := NewTokenMaker("other").Parse(tok); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}
}
