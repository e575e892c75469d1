package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nannypay/internal/events"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//nannypay//test//EN
BEGIN:VEVENT
UID:single-1
DTSTAMP:20210301T000000Z
SUMMARY:Nounou
DTSTART;TZID=Europe/Paris:20210302T090000
DTEND;TZID=Europe/Paris:20210302T170000
END:VEVENT
BEGIN:VEVENT
UID:weekly
DTSTAMP:20210301T000000Z
SUMMARY:Nounou mercredi
DTSTART;TZID=Europe/Paris:20210303T083000
DTEND;TZID=Europe/Paris:20210303T123000
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE;TZID=Europe/Paris:20210317T083000
END:VEVENT
BEGIN:VEVENT
UID:weekly
DTSTAMP:20210301T000000Z
RECURRENCE-ID;TZID=Europe/Paris:20210310T083000
SUMMARY:Nounou mercredi decale
DTSTART;TZID=Europe/Paris:20210310T100000
DTEND;TZID=Europe/Paris:20210310T150000
END:VEVENT
BEGIN:VEVENT
UID:holiday
DTSTAMP:20210301T000000Z
SUMMARY:Vacances
DTSTART;VALUE=DATE:20210305
DTEND;VALUE=DATE:20210306
END:VEVENT
END:VCALENDAR
`

func feedBody() []byte {
	return []byte(strings.ReplaceAll(feed, "\n", "\r\n"))
}

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func march(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(2021, time.March, 1, 0, 0, 5, 0, loc)
	end := time.Date(2021, time.March, 31, 23, 59, 59, 0, loc)
	return start, end
}

func TestParseICS(t *testing.T) {
	parsed, err := ParseICS(Source{ID: "test"}, feedBody())
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(parsed) != 4 {
		t.Fatalf("expected 4 VEVENTs, got %d", len(parsed))
	}

	single := parsed[0]
	if single.Start.DateTime != "20210302T090000" || single.Start.TimeZone != "Europe/Paris" {
		t.Fatalf("unexpected start %+v", single.Start)
	}
	if parsed[1].RawRRule != "FREQ=WEEKLY;COUNT=4" || len(parsed[1].ExDates) != 1 {
		t.Fatalf("unexpected master %+v", parsed[1])
	}
	if !parsed[2].IsOverride() {
		t.Fatal("expected RECURRENCE-ID override")
	}
	if !parsed[3].AllDay || parsed[3].Start.DateTime != "" || parsed[3].Start.Date != "20210305" {
		t.Fatalf("unexpected all-day event %+v", parsed[3])
	}
}

func TestParseICSRejectsEmptyBody(t *testing.T) {
	if _, err := ParseICS(Source{}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRawEventsAndExpansion(t *testing.T) {
	loc := paris(t)
	parsed, err := ParseICS(Source{ID: "test"}, feedBody())
	if err != nil {
		t.Fatal(err)
	}

	listing := RawEvents(parsed, loc)
	if !listing[1].IsRecurringMaster() {
		t.Fatal("master should keep its recurrence marker")
	}
	if listing[2].ID != "weekly_20210310T073000Z" || listing[2].RecurringEventID != "weekly" {
		t.Fatalf("override listed as %q", listing[2].ID)
	}
	if listing[3].Start == nil || listing[3].Start.DateTime != "" {
		t.Fatalf("all-day start should carry a date only: %+v", listing[3].Start)
	}

	start, end := march(loc)
	res, err := ExpandInstances(parsed, ExpandConfig{DisplayLocation: loc, RangeStart: start, RangeEnd: end})
	if err != nil {
		t.Fatalf("ExpandInstances: %v", err)
	}
	ids := make([]string, 0, len(res.Instances))
	for _, inst := range res.Instances {
		ids = append(ids, inst.ID)
	}
	want := "weekly_20210303T073000Z,weekly_20210310T073000Z,weekly_20210324T073000Z"
	if got := strings.Join(ids, ","); got != want {
		t.Fatalf("instances: got %s, want %s", got, want)
	}
	if res.Instances[0].Start.DateTime != "2021-03-03T08:30:00" || res.Instances[0].End.DateTime != "2021-03-03T12:30:00" {
		t.Fatalf("unexpected instance times %+v %+v", res.Instances[0].Start, res.Instances[0].End)
	}

	canonical := events.NewNormalizer(loc).Normalize(append(listing, res.Instances...))
	if len(canonical) != 4 {
		t.Fatalf("expected 4 canonical events, got %d", len(canonical))
	}
	moved, _ := canonical[2].Start.Get()
	if canonical[2].ID != "weekly_20210310T073000Z" || moved.Hour() != 10 {
		t.Fatalf("override should shadow the generated instance, got %s at %s", canonical[2].ID, moved)
	}
}

func TestExpandRejectsReversedRange(t *testing.T) {
	now := time.Now()
	if _, err := ExpandInstances(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFeedProviderUsesCacheOn304(t *testing.T) {
	loc := paris(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(feedBody())
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), srv.Client())
	p := NewFeedProvider(fetcher, []Source{{ID: "nanny", URL: srv.URL + "/private/token.ics"}}, loc)
	start, end := march(loc)

	first, err := p.Events(context.Background(), start, end)
	if err != nil {
		t.Fatalf("first Events: %v", err)
	}
	second, err := p.Events(context.Background(), start, end)
	if err != nil {
		t.Fatalf("second Events: %v", err)
	}
	if len(first) != 7 || len(second) != len(first) {
		t.Fatalf("expected 7 raw events twice, got %d and %d", len(first), len(second))
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", hits.Load())
	}
}

func TestFeedProviderAllSourcesFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewFetcher(t.TempDir(), srv.Client())
	p := NewFeedProvider(fetcher, []Source{{ID: "a", URL: srv.URL + "/a.ics"}, {ID: "b", URL: srv.URL + "/b.ics"}}, time.UTC)

	_, err := p.Events(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://calendar.example.com/ical/secret-token/basic.ics?x=1")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Fatalf("got %q", got)
	}
	if redactURL("not a url") != "ics://...(redacted)" {
		t.Fatal("expected generic redaction")
	}
}

const midnightFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//nannypay//test//EN
BEGIN:VEVENT
UID:night
DTSTAMP:20210301T000000Z
SUMMARY:Nounou nuit
DTSTART;TZID=Europe/Paris:20210301T000000
DTEND;TZID=Europe/Paris:20210301T060000
RRULE:FREQ=DAILY;COUNT=2
END:VEVENT
END:VCALENDAR
`

func TestFeedProviderExpandsFromFirstMidnight(t *testing.T) {
	loc := paris(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.ReplaceAll(midnightFeed, "\n", "\r\n")))
	}))
	defer srv.Close()

	p := NewFeedProvider(NewFetcher(t.TempDir(), srv.Client()), []Source{{ID: "night", URL: srv.URL + "/night.ics"}}, loc)
	start, end := march(loc)

	raw, err := p.Events(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	var ids []string
	for _, ev := range raw {
		if ev.RecurringEventID == "night" {
			ids = append(ids, ev.ID)
		}
	}
	want := "night_20210228T230000Z,night_20210301T230000Z"
	if got := strings.Join(ids, ","); got != want {
		t.Fatalf("instances: got %s, want %s", got, want)
	}
}
