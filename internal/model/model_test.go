package model

import (
	"testing"
	"time"
)

func TestInstant(t *testing.T) {
	now := time.Date(2021, time.March, 1, 9, 0, 0, 0, time.UTC)
	fallback := now.Add(-9 * time.Hour)

	if None().Present() || !At(now).Present() {
		t.Fatal("presence mismatch")
	}
	if got := None().Or(fallback); !got.Equal(fallback) {
		t.Fatalf("Or on absent: %s", got)
	}
	if got := At(now).Or(fallback); !got.Equal(now) {
		t.Fatalf("Or on present: %s", got)
	}
	if !None().Equal(None()) || At(now).Equal(None()) || !At(now).Equal(At(now.In(time.FixedZone("x", 3600)))) {
		t.Fatal("Equal mismatch")
	}
}

func TestNannysDayTotalMilliseconds(t *testing.T) {
	d := NannysDay{Total: 8*time.Hour + 30*time.Minute}
	if got := d.TotalMilliseconds(); got != 30_600_000 {
		t.Fatalf("got %d", got)
	}
}

func TestIsRecurringMaster(t *testing.T) {
	if (RawEvent{}).IsRecurringMaster() {
		t.Fatal("plain event is not a master")
	}
	if !(RawEvent{Recurrence: []string{"RRULE:FREQ=WEEKLY"}}).IsRecurringMaster() {
		t.Fatal("expected master")
	}
}
