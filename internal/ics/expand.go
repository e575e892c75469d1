package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"nannypay/internal/events"
	appLog "nannypay/internal/log"
	"nannypay/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 500

	wallClockLayout = "2006-01-02T15:04:05"
	instanceLayout  = "20060102T150405Z"
)

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is used for masters without TZID. If nil, time.Local
	// is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window for instances.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps the instances produced per master. If
	// zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded instances and the UIDs that hit the cap.
type ExpandResult struct {
	Instances       []model.RawEvent
	TruncatedEvents []string
}

// ExpandInstances produces one RawEvent per occurrence of every recurring
// master within the range, honoring EXDATE. Instance IDs are
// "<uid>_<UTC start>", the same ID an override of that occurrence gets in
// RawEvents, so an override listed first shadows the generated instance.
func ExpandInstances(parsed []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	for _, ev := range parsed {
		if ev.RawRRule == "" || ev.IsOverride() {
			continue
		}
		instances, hitCap := expandMaster(ev, cfg)
		if hitCap {
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
		result.Instances = append(result.Instances, instances...)
	}
	return result, nil
}

func expandMaster(ev ParsedEvent, cfg ExpandConfig) ([]model.RawEvent, bool) {
	zone := cfg.DisplayLocation
	if ev.Start.TimeZone != "" {
		if loc, err := time.LoadLocation(ev.Start.TimeZone); err == nil {
			zone = loc
		} else {
			appLog.Error("expand: unknown TZID, using display zone", err, "uid", ev.UID, "tz", ev.Start.TimeZone)
		}
	}
	resolver := events.NewNormalizer(zone)

	dtstart, ok := resolver.ResolveTime(&ev.Start)
	if !ok {
		// All-day or malformed masters never yield work instances.
		appLog.Debug("expand: master without start time", "uid", ev.UID)
		return nil, false
	}
	dtend, hasEnd := resolver.ResolveTime(&ev.End)
	dur := dtend.Sub(dtstart)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(dtstart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		if t, ok := resolver.ResolveTime(&ex); ok {
			set.ExDate(t)
		}
	}

	occTimes := set.Between(cfg.RangeStart.In(zone), cfg.RangeEnd.In(zone), true)
	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.RawEvent, 0, len(occTimes))
	for _, occStart := range occTimes {
		inst := model.RawEvent{
			ID:               instanceID(ev.UID, occStart),
			Summary:          ev.Summary,
			Start:            instanceTime(occStart, ev.Start.TimeZone, zone),
			RecurringEventID: ev.UID,
		}
		if hasEnd {
			inst.End = instanceTime(occStart.Add(dur), ev.Start.TimeZone, zone)
		}
		out = append(out, inst)
	}
	return out, hitCap
}

// instanceTime keeps the master's zone as wall-clock time when it had one.
func instanceTime(t time.Time, tzid string, zone *time.Location) *model.EventTime {
	if tzid == "" {
		return &model.EventTime{DateTime: t.Format(time.RFC3339)}
	}
	return &model.EventTime{DateTime: t.In(zone).Format(wallClockLayout), TimeZone: tzid}
}

func instanceID(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format(instanceLayout)
}

func instanceIDFromTime(uid string, et model.EventTime, loc *time.Location) (string, bool) {
	t, ok := events.NewNormalizer(loc).ResolveTime(&et)
	if !ok {
		return "", false
	}
	return instanceID(uid, t), true
}
