package report

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nannypay/internal/model"
)

// ErrInvalidLimits reports malformed month boundaries or forfait.
var ErrInvalidLimits = errors.New("report: invalid calendar limits")

// monthStartOffset shifts the month start past midnight so a shift ending
// at midnight on the last day of the previous month is not listed.
const monthStartOffset = 5 * time.Second

// MonthLimits returns the limits covering one calendar month in loc.
func MonthLimits(year int, month time.Month, loc *time.Location) model.CalendarLimits {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return model.CalendarLimits{
		Start: first.Add(monthStartOffset),
		End:   first.AddDate(0, 1, 0).Add(-time.Millisecond),
	}
}

// PreviousMonth returns the month before now's month.
func PreviousMonth(now time.Time) (int, time.Month) {
	y, m, _ := now.Date()
	prev := time.Date(y, m, 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}

// ParseForfait reads a contracted-hour cap; a decimal comma is accepted.
// An empty value means no cap.
func ParseForfait(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: forfait %q", ErrInvalidLimits, s)
	}
	if f < 0 {
		return nil, fmt.Errorf("%w: negative forfait %q", ErrInvalidLimits, s)
	}
	return &f, nil
}

// ParseLimits reads CalendarLimits from query parameters. The month is
// given either as year+month (1-12) or as start/end instants, each epoch
// milliseconds or RFC3339.
func ParseLimits(q url.Values, loc *time.Location) (model.CalendarLimits, error) {
	var limits model.CalendarLimits

	if q.Get("year") != "" || q.Get("month") != "" {
		year, yerr := strconv.Atoi(q.Get("year"))
		month, merr := strconv.Atoi(q.Get("month"))
		if yerr != nil || merr != nil || month < 1 || month > 12 {
			return limits, fmt.Errorf("%w: year=%q month=%q", ErrInvalidLimits, q.Get("year"), q.Get("month"))
		}
		limits = MonthLimits(year, time.Month(month), loc)
	} else {
		start, err := parseInstant(q.Get("start"), loc)
		if err != nil {
			return limits, fmt.Errorf("%w: start: %v", ErrInvalidLimits, err)
		}
		end, err := parseInstant(q.Get("end"), loc)
		if err != nil {
			return limits, fmt.Errorf("%w: end: %v", ErrInvalidLimits, err)
		}
		limits.Start, limits.End = start, end
	}
	if limits.End.Before(limits.Start) {
		return limits, fmt.Errorf("%w: end before start", ErrInvalidLimits)
	}

	forfait, err := ParseForfait(q.Get("forfait"))
	if err != nil {
		return limits, err
	}
	limits.Forfait = forfait
	limits.Name = strings.TrimSpace(q.Get("name"))
	limits.OvertimeIsPaid = parseBool(q.Get("isComplementaryHours"))
	return limits, nil
}

func parseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing value")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).In(loc), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
