package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "nannypay/internal/log"
	"nannypay/internal/model"
)

// ParsedEvent is a VEVENT with the literal DTSTART/DTEND values and the
// recurrence data needed for expansion.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary string

	Start  model.EventTime
	End    model.EventTime
	AllDay bool

	RawRRule string
	// ExDates keep their literal value and TZID.
	ExDates []model.EventTime
	// Recurrence is the RECURRENCE-ID of an overridden instance.
	Recurrence *model.EventTime
}

// IsOverride reports whether the VEVENT replaces one instance of a
// recurring event.
func (p ParsedEvent) IsOverride() bool {
	return p.Recurrence != nil
}

// ParseICS parses a single ICS payload into a list of ParsedEvent.
//
// Time values are kept as written (value + TZID): zone resolution is the
// normalizer's job. Recurrences are recorded but not expanded here.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Source = src

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		out.Start, out.AllDay = eventTime(p.Value, p.ICalParameters)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		out.End, _ = eventTime(p.Value, p.ICalParameters)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE can appear multiple times, each with a comma separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			et, _ := eventTime(part, p.ICalParameters)
			out.ExDates = append(out.ExDates, et)
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil && p.Value != "" {
		et, _ := eventTime(p.Value, p.ICalParameters)
		out.Recurrence = &et
	}

	return out, nil
}

// eventTime maps an ICS date or date-time value to an EventTime. Date-only
// values (VALUE=DATE or no 'T') are all-day and go to EventTime.Date.
func eventTime(value string, params map[string][]string) (model.EventTime, bool) {
	value = strings.TrimSpace(value)
	allDay := !strings.Contains(value, "T")
	if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}
	if allDay {
		return model.EventTime{Date: value}, true
	}

	et := model.EventTime{DateTime: value}
	if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
		et.TimeZone = tzs[0]
	}
	return et, false
}

// RawEvents returns the events as a calendar provider's default listing
// would: singles by UID, overrides under their instance ID, recurring
// masters with their recurrence marker still set. loc resolves floating
// RECURRENCE-ID values.
func RawEvents(parsed []ParsedEvent, loc *time.Location) []model.RawEvent {
	out := make([]model.RawEvent, 0, len(parsed))
	for _, p := range parsed {
		re := model.RawEvent{
			ID:      p.UID,
			Summary: p.Summary,
			Start:   eventTimePtr(p.Start),
			End:     eventTimePtr(p.End),
		}
		switch {
		case p.IsOverride():
			if id, ok := instanceIDFromTime(p.UID, *p.Recurrence, loc); ok {
				re.ID = id
			}
			re.RecurringEventID = p.UID
		case p.RawRRule != "":
			re.Recurrence = []string{"RRULE:" + p.RawRRule}
		}
		out = append(out, re)
	}
	return out
}

func eventTimePtr(et model.EventTime) *model.EventTime {
	if et == (model.EventTime{}) {
		return nil
	}
	return &et
}
