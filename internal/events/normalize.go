// Package events turns provider-shaped calendar records into canonical
// work events.
package events

import (
	"sort"
	"strings"
	"time"

	appLog "nannypay/internal/log"
	"nannypay/internal/model"
)

// Layouts carrying their own UTC offset. A match is an absolute instant
// regardless of any zone attached to the value.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"20060102T150405Z",
}

// Wall-clock layouts, resolved in the event zone or the default location.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"20060102T150405",
}

// Normalizer converts RawEvents into CanonicalEvents expressed in Location.
// It holds no mutable state and can be shared.
type Normalizer struct {
	// Location is used for timestamps without zone and for the returned
	// instants. Nil means time.Local.
	Location *time.Location
}

// NewNormalizer returns a Normalizer for the given display location.
func NewNormalizer(loc *time.Location) *Normalizer {
	return &Normalizer{Location: loc}
}

func (n *Normalizer) location() *time.Location {
	if n == nil || n.Location == nil {
		return time.Local
	}
	return n.Location
}

// Normalize filters, deduplicates and orders raw events.
//
//   - events with no resolvable start are dropped
//   - recurring masters (still carrying a recurrence marker) are dropped
//   - the first event seen for an ID wins
//   - the result is sorted by start; equal starts keep arrival order
func (n *Normalizer) Normalize(raw []model.RawEvent) []model.CanonicalEvent {
	zones := make(map[string]*time.Location)
	seen := make(map[string]struct{}, len(raw))
	out := make([]model.CanonicalEvent, 0, len(raw))

	for _, re := range raw {
		if re.IsRecurringMaster() {
			appLog.Debug("normalize: dropping recurring master", "id", re.ID)
			continue
		}
		start, ok := n.resolve(re.Start, zones)
		if !ok {
			appLog.Debug("normalize: dropping event without start", "id", re.ID)
			continue
		}
		if _, dup := seen[re.ID]; dup {
			appLog.Debug("normalize: dropping duplicate", "id", re.ID)
			continue
		}
		seen[re.ID] = struct{}{}

		ev := model.CanonicalEvent{
			ID:      re.ID,
			Summary: re.Summary,
			Start:   model.At(start),
		}
		if end, ok := n.resolve(re.End, zones); ok {
			ev.End = model.At(end)
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Start.Get()
		b, _ := out[j].Start.Get()
		return a.Before(b)
	})
	return out
}

// ResolveTime converts one EventTime into an instant in the normalizer's
// location. ok is false for a nil value or an unparseable timestamp.
func (n *Normalizer) ResolveTime(et *model.EventTime) (time.Time, bool) {
	return n.resolve(et, nil)
}

func (n *Normalizer) resolve(et *model.EventTime, zones map[string]*time.Location) (time.Time, bool) {
	if et == nil {
		return time.Time{}, false
	}
	value := strings.TrimSpace(et.DateTime)
	if value == "" {
		return time.Time{}, false
	}
	display := n.location()

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.In(display), true
		}
	}

	loc := display
	if et.TimeZone != "" {
		loc = n.zone(et.TimeZone, zones)
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.In(display), true
		}
	}
	return time.Time{}, false
}

// zone loads an IANA zone, memoizing within one Normalize pass. Unknown
// zones fall back to the display location.
func (n *Normalizer) zone(name string, zones map[string]*time.Location) *time.Location {
	if loc, ok := zones[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Debug("normalize: unknown time zone, using display zone", "tz", name)
		loc = n.location()
	}
	if zones != nil {
		zones[name] = loc
	}
	return loc
}

// FilterBySummary keeps events whose summary contains name, ignoring case.
// An empty name keeps everything.
func FilterBySummary(evs []model.CanonicalEvent, name string) []model.CanonicalEvent {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return evs
	}
	out := make([]model.CanonicalEvent, 0, len(evs))
	for _, ev := range evs {
		if strings.Contains(strings.ToLower(ev.Summary), name) {
			out = append(out, ev)
		}
	}
	return out
}
