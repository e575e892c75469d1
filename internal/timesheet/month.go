package timesheet

import (
	"errors"
	"fmt"
	"time"

	"nannypay/internal/model"
)

// ErrOverlappingEvents is returned when more than one event starts on the
// same calendar day. Overlapping shifts are not supported.
var ErrOverlappingEvents = errors.New("timesheet: several events on the same day are not supported")

// Days lists the start of every calendar day from start's day to end's day
// inclusive, in start's location.
func Days(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	loc := start.Location()
	first := StartOfDay(start)
	last := StartOfDay(end.In(loc))

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// SameDay reports whether t falls on the calendar day of day, in day's
// location.
func SameDay(t, day time.Time) bool {
	y1, m1, d1 := t.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Build segments every day of days using the event starting on it. It
// fails as a whole, returning no days, as soon as one day has more than
// one event.
func Build(days []time.Time, evs []model.CanonicalEvent) ([]model.NannysDay, error) {
	out := make([]model.NannysDay, 0, len(days))
	for _, day := range days {
		var found *model.CanonicalEvent
		for i := range evs {
			start, ok := evs[i].Start.Get()
			if !ok || !SameDay(start, day) {
				continue
			}
			if found != nil {
				return nil, fmt.Errorf("%w: %s (%s, %s)",
					ErrOverlappingEvents, day.Format("2006-01-02"), found.ID, evs[i].ID)
			}
			found = &evs[i]
		}
		out = append(out, Segment(day, found))
	}
	return out, nil
}

// TotalHours sums the worked duration of days, in hours.
func TotalHours(days []model.NannysDay) float64 {
	var total time.Duration
	for _, d := range days {
		total += d.Total
	}
	return total.Hours()
}
