// Package timesheet splits worked events into daily shift windows and
// renders the monthly attendance sheet.
package timesheet

import (
	"time"

	"nannypay/internal/model"
)

// Hour boundaries of the shift windows, in local wall-clock hours.
const (
	noonStartHour      = 12
	afternoonStartHour = 14
	lunchBeforeHour    = 12
	snackAfterHour     = 16
)

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Segment classifies the arrival and departure of ev into the morning,
// noon and afternoon windows of day. ev may be nil for a day without work.
// The result depends only on its arguments.
func Segment(day time.Time, ev *model.CanonicalEvent) model.NannysDay {
	sod := StartOfDay(day)
	nd := model.NannysDay{Date: sod}
	if ev == nil {
		return nd
	}
	nd.HasEvent = true

	loc := sod.Location()
	arrival, hasArrival := ev.Start.Get()
	departure, hasDeparture := ev.End.Get()

	if hasArrival {
		arrival = arrival.In(loc)
		switch h := arrival.Hour(); {
		case h <= noonStartHour:
			nd.Morning.Arrival = model.At(arrival)
		case h < afternoonStartHour:
			nd.Noon.Arrival = model.At(arrival)
		default:
			nd.Afternoon.Arrival = model.At(arrival)
		}
	}
	if hasDeparture {
		departure = departure.In(loc)
		switch h := departure.Hour(); {
		case h <= noonStartHour:
			nd.Morning.Departure = model.At(departure)
		case h < afternoonStartHour:
			nd.Noon.Departure = model.At(departure)
		default:
			nd.Afternoon.Departure = model.At(departure)
		}
	}

	nd.Total = shiftDuration(nd.Morning, sod) +
		shiftDuration(nd.Noon, sod) +
		shiftDuration(nd.Afternoon, sod)

	nd.Fees.GeneralFees = nd.Total > 0
	if t, ok := nd.Morning.Arrival.Get(); ok && t.Hour() < lunchBeforeHour {
		nd.Fees.Lunch = true
	}
	if t, ok := nd.Afternoon.Departure.Get(); ok && t.Hour() > snackAfterHour {
		nd.Fees.AfterNoonMeal = true
	}
	return nd
}

// shiftDuration is departure minus arrival, with start of day standing in
// for a missing bound. A one-sided shift therefore yields a signed offset
// from midnight rather than a worked span; only the sum over a day is
// meaningful.
func shiftDuration(s model.Shift, sod time.Time) time.Duration {
	if !s.Arrival.Present() && !s.Departure.Present() {
		return 0
	}
	return s.Departure.Or(sod).Sub(s.Arrival.Or(sod))
}
