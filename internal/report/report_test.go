package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"
	"time"

	"nannypay/internal/model"
	"nannypay/internal/payroll"
	"nannypay/internal/timesheet"
)

type staticSource struct {
	events []model.RawEvent
	err    error
	calls  int
}

func (s *staticSource) Events(ctx context.Context, start, end time.Time) ([]model.RawEvent, error) {
	s.calls++
	return s.events, s.err
}

func raw(id, summary, start, end string) model.RawEvent {
	return model.RawEvent{
		ID:      id,
		Summary: summary,
		Start:   &model.EventTime{DateTime: start},
		End:     &model.EventTime{DateTime: end},
	}
}

func newService(src EventSource) *Service {
	return NewService(src, time.UTC, payroll.DefaultRates(), payroll.DefaultAllowances())
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func marchEvents() []model.RawEvent {
	return []model.RawEvent{
		raw("b", "Nounou", "2021-03-03T08:30:00Z", "2021-03-03T12:00:00Z"),
		raw("a", "Nounou", "2021-03-01T09:00:00Z", "2021-03-01T17:00:00Z"),
		raw("c", "Ménage", "2021-03-04T09:00:00Z", "2021-03-04T10:00:00Z"),
		raw("feb", "Nounou", "2021-02-26T09:00:00Z", "2021-02-26T17:00:00Z"),
	}
}

func TestBuildReport(t *testing.T) {
	svc := newService(&staticSource{events: marchEvents()})
	limits := MonthLimits(2021, time.March, time.UTC)
	limits.Name = "NOUNOU"

	rep, err := svc.Build(context.Background(), limits)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(rep.Days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(rep.Days))
	}
	if !rep.Days[0].HasEvent || rep.Days[1].HasEvent || !rep.Days[2].HasEvent || rep.Days[3].HasEvent {
		t.Fatal("unexpected event days")
	}
	if rep.HoursMade != 11.5 {
		t.Fatalf("hours made: got %v", rep.HoursMade)
	}
	if !near(rep.Pay.BasePay, 11.5*3.89) {
		t.Fatalf("base pay: got %v", rep.Pay.BasePay)
	}

	r := rep.Reimbursements
	if r.GeneralFees.Days != 2 || r.Lunch.Days != 2 || r.AfterNoonMeal.Days != 1 {
		t.Fatalf("unexpected reimbursement days %+v", r)
	}
	if !near(r.Total, 6.90+4+1) {
		t.Fatalf("reimbursement total: got %v", r.Total)
	}

	view := rep.View()
	if view.Days[0].MorningArrival != "09:00" || view.Days[0].AfternoonDeparture != "17:00" || view.Days[0].Total != "8:00" {
		t.Fatalf("unexpected day view %+v", view.Days[0])
	}
	if view.Days[1].Total != "0:00" {
		t.Fatalf("empty day total: got %q", view.Days[1].Total)
	}
}

func TestBuildRejectsOverlappingEvents(t *testing.T) {
	evs := append(marchEvents(), raw("d", "Nounou", "2021-03-01T18:00:00Z", "2021-03-01T19:00:00Z"))
	svc := newService(&staticSource{events: evs})

	_, err := svc.Build(context.Background(), MonthLimits(2021, time.March, time.UTC))
	if !errors.Is(err, timesheet.ErrOverlappingEvents) {
		t.Fatalf("expected overlap error, got %v", err)
	}
}

func TestBuildRejectsReversedLimits(t *testing.T) {
	src := &staticSource{}
	svc := newService(src)
	limits := MonthLimits(2021, time.March, time.UTC)
	limits.Start, limits.End = limits.End, limits.Start

	if _, err := svc.Build(context.Background(), limits); !errors.Is(err, ErrInvalidLimits) {
		t.Fatalf("expected ErrInvalidLimits, got %v", err)
	}
	if src.calls != 0 {
		t.Fatal("source should not be queried")
	}
}

func TestBuildPropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	svc := newService(&staticSource{err: boom})

	if _, err := svc.Build(context.Background(), MonthLimits(2021, time.March, time.UTC)); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	svc := newService(&staticSource{events: marchEvents()})
	limits := MonthLimits(2021, time.March, time.UTC)
	limits.Name = "nounou"
	var buf bytes.Buffer

	name, err := svc.ExportCSV(context.Background(), limits, &buf)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if name != "feuille-de-presence-03-2021.csv" {
		t.Fatalf("filename: got %q", name)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 31 {
		t.Fatalf("expected 31 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "09:00;") {
		t.Fatalf("first row: %q", lines[0])
	}
	if lines[3] != strings.Repeat(";", timesheet.Columns-1) {
		t.Fatalf("filtered day should be empty: %q", lines[3])
	}
}

func TestMonthLimits(t *testing.T) {
	l := MonthLimits(2021, time.February, time.UTC)
	if !l.Start.Equal(time.Date(2021, time.February, 1, 0, 0, 5, 0, time.UTC)) {
		t.Fatalf("start: %s", l.Start)
	}
	if !l.End.Equal(time.Date(2021, time.February, 28, 23, 59, 59, int(999*time.Millisecond), time.UTC)) {
		t.Fatalf("end: %s", l.End)
	}
	if n := len(timesheet.Days(l.Start, l.End)); n != 28 {
		t.Fatalf("expected 28 days, got %d", n)
	}
}

func TestPreviousMonth(t *testing.T) {
	y, m := PreviousMonth(time.Date(2021, time.January, 15, 0, 0, 0, 0, time.UTC))
	if y != 2020 || m != time.December {
		t.Fatalf("got %d-%d", y, m)
	}
	y, m = PreviousMonth(time.Date(2021, time.March, 31, 0, 0, 0, 0, time.UTC))
	if y != 2021 || m != time.February {
		t.Fatalf("got %d-%d", y, m)
	}
}

func TestParseLimits(t *testing.T) {
	start := time.Date(2021, time.March, 1, 0, 0, 5, 0, time.UTC)
	q := url.Values{}
	q.Set("start", "1614556805000")
	q.Set("end", "2021-03-31T23:59:59Z")
	q.Set("name", " Nounou ")
	q.Set("forfait", "151,67")
	q.Set("isComplementaryHours", "true")

	l, err := ParseLimits(q, time.UTC)
	if err != nil {
		t.Fatalf("ParseLimits: %v", err)
	}
	if !l.Start.Equal(start) {
		t.Fatalf("start: %s", l.Start)
	}
	if l.Name != "Nounou" || l.Forfait == nil || *l.Forfait != 151.67 || !l.OvertimeIsPaid {
		t.Fatalf("unexpected limits %+v", l)
	}

	ym := url.Values{"year": {"2021"}, "month": {"3"}}
	l, err = ParseLimits(ym, time.UTC)
	if err != nil {
		t.Fatalf("ParseLimits year/month: %v", err)
	}
	if !l.Start.Equal(start) || l.Forfait != nil || l.OvertimeIsPaid {
		t.Fatalf("unexpected limits %+v", l)
	}
}

func TestParseLimitsErrors(t *testing.T) {
	cases := map[string]url.Values{
		"missing":  {},
		"reversed": {"start": {"2021-03-31T00:00:00Z"}, "end": {"2021-03-01T00:00:00Z"}},
		"garbage":  {"start": {"yesterday"}, "end": {"2021-03-01T00:00:00Z"}},
		"month":    {"year": {"2021"}, "month": {"13"}},
		"forfait":  {"year": {"2021"}, "month": {"3"}, "forfait": {"beaucoup"}},
		"negative": {"year": {"2021"}, "month": {"3"}, "forfait": {"-1"}},
	}
	for name, q := range cases {
		if _, err := ParseLimits(q, time.UTC); !errors.Is(err, ErrInvalidLimits) {
			t.Errorf("%s: expected ErrInvalidLimits, got %v", name, err)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                               "0:00",
		8*time.Hour + 30*time.Minute:    "8:30",
		26*time.Hour + 5*time.Minute:    "26:05",
		-(1*time.Hour + 15*time.Minute): "-1:15",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%s): got %q, want %q", d, got, want)
		}
	}
}
