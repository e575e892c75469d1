package model

import "time"

// EventTime is a provider-shaped timestamp: the literal value as delivered
// by the calendar feed plus the optional IANA zone it is expressed in.
type EventTime struct {
	// DateTime is e.g. "2021-03-04T09:00:00", "2021-03-04T09:00:00+01:00"
	// or the ICS basic form "20210304T090000".
	DateTime string `json:"dateTime,omitempty"`
	// Date is set instead of DateTime for all-day entries ("2021-03-04").
	// All-day entries never resolve to a work start.
	Date string `json:"date,omitempty"`
	// TimeZone, if set, means DateTime is wall-clock time in that zone.
	TimeZone string `json:"timeZone,omitempty"`
}

// RawEvent is a single event as received from the calendar collaborator.
// Recurring masters carry a non-empty Recurrence; their expanded instances
// do not and reference the master through RecurringEventID.
type RawEvent struct {
	ID               string     `json:"id"`
	Summary          string     `json:"summary,omitempty"`
	Start            *EventTime `json:"start,omitempty"`
	End              *EventTime `json:"end,omitempty"`
	Recurrence       []string   `json:"recurrence,omitempty"`
	RecurringEventID string     `json:"recurringEventId,omitempty"`
}

// IsRecurringMaster reports whether e still carries a recurrence marker.
func (e RawEvent) IsRecurringMaster() bool {
	return len(e.Recurrence) > 0
}

// Instant is an optional point in time.
type Instant struct {
	t     time.Time
	valid bool
}

// At returns a present Instant.
func At(t time.Time) Instant {
	return Instant{t: t, valid: true}
}

// None returns an absent Instant.
func None() Instant {
	return Instant{}
}

// Get returns the time and whether it is present.
func (i Instant) Get() (time.Time, bool) {
	return i.t, i.valid
}

// Present reports whether the instant is set.
func (i Instant) Present() bool {
	return i.valid
}

// Or returns the instant, or fallback when absent.
func (i Instant) Or(fallback time.Time) time.Time {
	if !i.valid {
		return fallback
	}
	return i.t
}

// Equal reports whether both instants are absent, or both present and equal.
func (i Instant) Equal(o Instant) bool {
	if i.valid != o.valid {
		return false
	}
	return !i.valid || i.t.Equal(o.t)
}

// CanonicalEvent is a normalized work event with absolute start/end.
type CanonicalEvent struct {
	ID      string
	Summary string
	Start   Instant
	End     Instant
}

// Shift is one of the three daily windows (a "child deposit").
type Shift struct {
	Arrival   Instant
	Departure Instant
}

// Fees holds the expense eligibility flags of a day.
type Fees struct {
	GeneralFees   bool `json:"generalFees"`
	Lunch         bool `json:"lunch"`
	AfterNoonMeal bool `json:"afterNoonMeal"`
}

// NannysDay is the attendance breakdown of one calendar day.
type NannysDay struct {
	Date      time.Time
	Morning   Shift
	Noon      Shift
	Afternoon Shift
	// Total is the sum of the three shift durations.
	Total time.Duration
	Fees  Fees
	// HasEvent is false for days with no covering event.
	HasEvent bool
}

// TotalMilliseconds returns Total in milliseconds.
func (d NannysDay) TotalMilliseconds() int64 {
	return d.Total.Milliseconds()
}

// CalendarLimits is the monthly query collected from the user.
type CalendarLimits struct {
	Start time.Time
	End   time.Time
	// Name filters events by summary; empty means no filtering.
	Name string
	// Forfait is the monthly contracted-hour cap, nil if unset.
	Forfait *float64
	// OvertimeIsPaid enables complementary hours above the forfait.
	OvertimeIsPaid bool
}
