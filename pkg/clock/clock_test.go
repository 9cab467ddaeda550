package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	at := time.Date(2024, 6, 10, 12, 0, 0, 0, time.FixedZone("X", 3600))
	c := NewFixed(at)

	if !c.Now().Equal(at) {
		t.Errorf("expected %v, got %v", at, c.Now())
	}
	if c.Now().Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", c.Now().Location())
	}
}

func TestManual_Advance(t *testing.T) {
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	c := NewManual(start)

	c.Advance(90 * time.Second)
	if got := c.Now().Sub(start); got != 90*time.Second {
		t.Errorf("expected 90s elapsed, got %v", got)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("expected clock reset to %v, got %v", start, c.Now())
	}
}
