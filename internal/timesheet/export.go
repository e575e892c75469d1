package timesheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"nannypay/internal/model"
)

// Row layout of the attendance sheet. Every shift value is followed by an
// empty spacer column.
const (
	colMorningArrival     = 0
	colMorningDeparture   = 2
	colNoonArrival        = 4
	colNoonDeparture      = 6
	colAfternoonArrival   = 8
	colAfternoonDeparture = 10
	colTotal              = 12
	// 13..23 reserved
	colGeneralFees   = 24
	colLunch         = 25
	colAfterNoonMeal = 26

	Columns = 27
)

const clockLayout = "15:04"

// Row renders one day. Days without an event are a row of empty columns.
func Row(d model.NannysDay) []string {
	row := make([]string, Columns)
	if !d.HasEvent {
		return row
	}

	row[colMorningArrival] = clock(d.Morning.Arrival)
	row[colMorningDeparture] = clock(d.Morning.Departure)
	row[colNoonArrival] = clock(d.Noon.Arrival)
	row[colNoonDeparture] = clock(d.Noon.Departure)
	row[colAfternoonArrival] = clock(d.Afternoon.Arrival)
	row[colAfternoonDeparture] = clock(d.Afternoon.Departure)

	// The total is shown as a time of day: midnight plus the duration.
	row[colTotal] = StartOfDay(d.Date).Add(d.Total).Format(clockLayout)

	row[colGeneralFees] = flag(d.Fees.GeneralFees)
	row[colLunch] = flag(d.Fees.Lunch)
	row[colAfterNoonMeal] = flag(d.Fees.AfterNoonMeal)
	return row
}

func clock(i model.Instant) string {
	t, ok := i.Get()
	if !ok {
		return ""
	}
	return t.Format(clockLayout)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return ""
}

// WriteCSV writes one semicolon separated row per day, without header.
func WriteCSV(w io.Writer, days []model.NannysDay) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	for _, d := range days {
		if err := cw.Write(Row(d)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export segments evs over days and writes the sheet to w. Nothing is
// written when any day has overlapping events.
func Export(w io.Writer, days []time.Time, evs []model.CanonicalEvent) error {
	nds, err := Build(days, evs)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nds); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// Filename names the export after the month of the first exported day.
func Filename(first time.Time) string {
	return fmt.Sprintf("feuille-de-presence-%02d-%d.csv", int(first.Month()), first.Year())
}
