package report

import (
	"fmt"
	"time"

	"nannypay/internal/model"
	"nannypay/internal/payroll"
	"nannypay/internal/timesheet"
)

// DayView is the display form of a NannysDay.
type DayView struct {
	Date               string     `json:"date"`
	MorningArrival     string     `json:"morningArrival,omitempty"`
	MorningDeparture   string     `json:"morningDeparture,omitempty"`
	NoonArrival        string     `json:"noonArrival,omitempty"`
	NoonDeparture      string     `json:"noonDeparture,omitempty"`
	AfternoonArrival   string     `json:"afternoonArrival,omitempty"`
	AfternoonDeparture string     `json:"afternoonDeparture,omitempty"`
	Total              string     `json:"total"`
	TotalMilliseconds  int64      `json:"totalMilliseconds"`
	Fees               model.Fees `json:"fees"`
}

// View is the JSON document of a report.
type View struct {
	Start          time.Time              `json:"start"`
	End            time.Time              `json:"end"`
	Name           string                 `json:"name,omitempty"`
	Forfait        *float64               `json:"forfait,omitempty"`
	OvertimeIsPaid bool                   `json:"isComplementaryHours"`
	HoursMade      float64                `json:"hoursMade"`
	Days           []DayView              `json:"days"`
	Pay            payroll.Result         `json:"pay"`
	Reimbursements payroll.Reimbursements `json:"reimbursements"`
}

// View converts the report for display.
func (r *Report) View() View {
	days := make([]DayView, 0, len(r.Days))
	for _, d := range r.Days {
		days = append(days, DayView{
			Date:               d.Date.Format("2006-01-02"),
			MorningArrival:     clock(d.Morning.Arrival),
			MorningDeparture:   clock(d.Morning.Departure),
			NoonArrival:        clock(d.Noon.Arrival),
			NoonDeparture:      clock(d.Noon.Departure),
			AfternoonArrival:   clock(d.Afternoon.Arrival),
			AfternoonDeparture: clock(d.Afternoon.Departure),
			Total:              FormatDuration(d.Total),
			TotalMilliseconds:  d.TotalMilliseconds(),
			Fees:               d.Fees,
		})
	}
	return View{
		Start:          r.Limits.Start,
		End:            r.Limits.End,
		Name:           r.Limits.Name,
		Forfait:        r.Limits.Forfait,
		OvertimeIsPaid: r.Limits.OvertimeIsPaid,
		HoursMade:      r.HoursMade,
		Days:           days,
		Pay:            r.Pay,
		Reimbursements: r.Reimbursements,
	}
}

func clock(i model.Instant) string {
	t, ok := i.Get()
	if !ok {
		return ""
	}
	return t.Format("15:04")
}

// FormatDuration renders d as H:MM; negative durations keep their sign.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%s%d:%02d", sign, int(d.Hours()), int(d.Minutes())%60)
}

// Month returns the first exported day, for titles and file names.
func (r *Report) Month() time.Time {
	if len(r.Days) == 0 {
		return timesheet.StartOfDay(r.Limits.Start)
	}
	return r.Days[0].Date
}
