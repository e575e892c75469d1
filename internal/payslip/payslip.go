// Package payslip renders the monthly pay of a report as a PDF.
package payslip

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"nannypay/internal/payroll"
	"nannypay/internal/report"
)

// Parties are the names printed in the payslip header.
type Parties struct {
	Employee string
	Employer string
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// Filename returns the download name of the payslip of month.
func Filename(month time.Time) string {
	return fmt.Sprintf("bulletin-de-salaire-%02d-%d.pdf", int(month.Month()), month.Year())
}

// Write renders rep to w.
func Write(w io.Writer, rep *report.Report, parties Parties) error {
	if rep == nil {
		return errors.New("payslip: nil report")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Bulletin de salaire"), false)
	pdf.AddPage()

	month := rep.Month()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Bulletin de salaire - %s %d", frenchMonths[month.Month()-1], month.Year())))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	if parties.Employer != "" {
		pdf.Cell(0, 6, tr("Employeur : "+parties.Employer))
		pdf.Ln(6)
	}
	if parties.Employee != "" {
		pdf.Cell(0, 6, tr("Salarié : "+parties.Employee))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, tr(fmt.Sprintf("Période : du %s au %s",
		rep.Limits.Start.Format("02/01/2006"), rep.Limits.End.Format("02/01/2006"))))
	pdf.Ln(10)

	pay := rep.Pay
	section(pdf, tr, "Rémunération")
	line(pdf, tr, "Heures effectuées", hours(pay.HoursMade))
	line(pdf, tr, "Heures payées", hours(pay.HoursToPay))
	line(pdf, tr, "Salaire de base", euros(pay.BasePay))
	line(pdf, tr, vacationLabel(pay.VacationRate), euros(pay.VacationOnBase))
	if pay.ComplementaryHours != 0 {
		line(pdf, tr, "Heures complémentaires ("+hours(pay.ComplementaryHours)+")", euros(pay.ComplementaryHoursToPay))
		line(pdf, tr, "Congés payés sur heures complémentaires", euros(pay.VacationOnComplementary))
	}
	line(pdf, tr, "Salaire brut", euros(pay.RawSalary))
	pdf.Ln(4)

	section(pdf, tr, "Cotisations salariales")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(90, 6, tr("Libellé"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, tr("Base"), "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, tr("Taux"), "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, tr("Montant"), "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, c := range pay.Charges {
		chargeRow(pdf, tr, c)
	}
	pdf.SetFont("Helvetica", "I", 9)
	chargeRow(pdf, tr, pay.Exemption)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(155, 6, tr("Total des cotisations"), "T", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, tr(euros(pay.SumOfCharges)), "T", 1, "R", false, 0, "")
	pdf.Ln(4)

	r := rep.Reimbursements
	section(pdf, tr, "Indemnités")
	line(pdf, tr, fmt.Sprintf("Frais d'entretien (%d jours)", r.GeneralFees.Days), euros(r.GeneralFees.Amount))
	line(pdf, tr, fmt.Sprintf("Repas (%d jours)", r.Lunch.Days), euros(r.Lunch.Amount))
	line(pdf, tr, fmt.Sprintf("Goûters (%d jours)", r.AfterNoonMeal.Days), euros(r.AfterNoonMeal.Amount))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	line(pdf, tr, "Salaire net", euros(pay.NetPay))
	line(pdf, tr, "Net à payer", euros(payroll.Round2(pay.NetPay+r.Total)))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("payslip: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr(title))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
}

func line(pdf *gofpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.CellFormat(150, 6, tr(label), "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, tr(value), "", 1, "R", false, 0, "")
}

func chargeRow(pdf *gofpdf.Fpdf, tr func(string) string, c payroll.Charge) {
	pdf.CellFormat(90, 5, tr(c.Label), "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 5, tr(euros(c.Basis)), "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 5, tr(percent(c.Rate)), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 5, tr(euros(c.Amount)), "", 1, "R", false, 0, "")
}

func euros(v float64) string {
	return decimalComma(strconv.FormatFloat(payroll.Round2(v), 'f', 2, 64)) + " €"
}

func hours(v float64) string {
	return decimalComma(strconv.FormatFloat(v, 'f', 2, 64)) + " h"
}

func vacationLabel(rate float64) string {
	return "Congés payés (" + percent(rate) + ")"
}

func percent(rate float64) string {
	s := strconv.FormatFloat(rate*100, 'f', 3, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return decimalComma(s) + " %"
}

func decimalComma(s string) string {
	return strings.Replace(s, ".", ",", 1)
}
