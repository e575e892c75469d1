// Package report assembles the monthly attendance, pay and timesheet of
// the employee from the calendar events of that month.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"nannypay/internal/events"
	appLog "nannypay/internal/log"
	"nannypay/internal/model"
	"nannypay/internal/payroll"
	"nannypay/internal/timesheet"
)

// EventSource lists the raw events of a time range. All fetching is
// finished when Events returns.
type EventSource interface {
	Events(ctx context.Context, start, end time.Time) ([]model.RawEvent, error)
}

// Report is the monthly result shown to the user.
type Report struct {
	Limits         model.CalendarLimits
	Days           []model.NannysDay
	HoursMade      float64
	Pay            payroll.Result
	Reimbursements payroll.Reimbursements
}

// Service builds reports. It keeps no per-request state.
type Service struct {
	source     EventSource
	normalizer *events.Normalizer
	calc       *payroll.Calculator
	allowances payroll.Allowances
	loc        *time.Location
}

func NewService(source EventSource, loc *time.Location, rates payroll.Rates, allowances payroll.Allowances) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		source:     source,
		normalizer: events.NewNormalizer(loc),
		calc:       payroll.NewCalculator(rates),
		allowances: allowances,
		loc:        loc,
	}
}

// Location returns the zone days are evaluated in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Build computes the report of limits. It fails with
// timesheet.ErrOverlappingEvents when a day holds several events.
func (s *Service) Build(ctx context.Context, limits model.CalendarLimits) (*Report, error) {
	days, evs, err := s.load(ctx, limits)
	if err != nil {
		return nil, err
	}

	nds, err := timesheet.Build(days, evs)
	if err != nil {
		return nil, err
	}

	hours := timesheet.TotalHours(nds)
	rep := &Report{
		Limits:         limits,
		Days:           nds,
		HoursMade:      hours,
		Pay:            s.calc.ComputePay(hours, limits.OvertimeIsPaid, limits.Forfait),
		Reimbursements: payroll.ComputeReimbursements(nds, s.allowances),
	}
	appLog.Info("report built",
		"start", limits.Start.Format(time.RFC3339),
		"days", len(nds),
		"hours", hours,
		"net_pay", rep.Pay.NetPay,
	)
	return rep, nil
}

// ExportCSV writes the timesheet of limits to w and returns its file name.
// Nothing is written if the export fails.
func (s *Service) ExportCSV(ctx context.Context, limits model.CalendarLimits, w io.Writer) (string, error) {
	days, evs, err := s.load(ctx, limits)
	if err != nil {
		return "", err
	}
	if len(days) == 0 {
		return "", fmt.Errorf("%w: empty range", ErrInvalidLimits)
	}
	if err := timesheet.Export(w, days, evs); err != nil {
		return "", err
	}
	return timesheet.Filename(days[0]), nil
}

func (s *Service) load(ctx context.Context, limits model.CalendarLimits) ([]time.Time, []model.CanonicalEvent, error) {
	if limits.End.Before(limits.Start) {
		return nil, nil, fmt.Errorf("%w: end before start", ErrInvalidLimits)
	}
	raw, err := s.source.Events(ctx, limits.Start, limits.End)
	if err != nil {
		return nil, nil, fmt.Errorf("list events: %w", err)
	}
	evs := events.FilterBySummary(s.normalizer.Normalize(raw), limits.Name)
	days := timesheet.Days(limits.Start.In(s.loc), limits.End.In(s.loc))
	return days, evs, nil
}
