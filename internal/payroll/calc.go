package payroll

import "math"

// Base identifies the salary amount a charge is computed on.
type Base string

const (
	BaseRawSalary       Base = "raw_salary"
	BaseWithoutOvertime Base = "raw_salary_without_overtime"
	BaseCSG             Base = "csg_crds"
	BaseOvertime        Base = "overtime"
)

// Charge is one payslip deduction line.
type Charge struct {
	Label  string  `json:"label"`
	Base   Base    `json:"base"`
	Basis  float64 `json:"basis"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Result is the outcome of one pay computation.
type Result struct {
	HoursMade          float64 `json:"hoursMade"`
	HoursToPay         float64 `json:"hoursToPay"`
	ComplementaryHours float64 `json:"complementaryHours"`

	VacationRate            float64 `json:"vacationRate"`
	BasePay                 float64 `json:"basePay"`
	ComplementaryHoursToPay float64 `json:"complementaryHoursToPay"`
	VacationOnBase          float64 `json:"vacationOnBase"`
	VacationOnComplementary float64 `json:"vacationOnComplementary"`

	RawSalary                float64 `json:"rawSalary"`
	RawSalaryWithoutOvertime float64 `json:"rawSalaryWithoutOvertime"`
	CSGBase                  float64 `json:"csgBase"`

	Charges []Charge `json:"charges"`
	// Exemption is shown on the payslip but not part of SumOfCharges.
	Exemption Charge `json:"exemption"`

	SumOfCharges float64 `json:"sumOfCharges"`
	NetPay       float64 `json:"netPay"`
}

// Calculator computes pay from a fixed rate table.
type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rates returns a copy of the rate table in use.
func (c *Calculator) Rates() Rates {
	return c.rates
}

// Round2 rounds to cents, halves going up.
func Round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}

// ComputePay derives gross pay, charges and net pay.
//
// With a forfait, the forfait is paid instead of the hours made. When
// overtime is paid the difference to the forfait is added as complementary
// hours; it is negative when fewer hours than contracted were worked.
func (c *Calculator) ComputePay(hoursMade float64, overtimeIsPaid bool, forfait *float64) Result {
	r := c.rates

	hoursToPay := hoursMade
	if forfait != nil {
		hoursToPay = *forfait
	}
	complementaryHours := 0.0
	if overtimeIsPaid && forfait != nil {
		complementaryHours = hoursMade - *forfait
	}

	basePay := hoursToPay * r.HourlyRate
	complementaryPay := complementaryHours * r.HourlyRate
	vacationOnBase := basePay * r.VacationRate
	vacationOnComplementary := complementaryPay * r.VacationRate

	raw := basePay + complementaryPay + vacationOnBase + vacationOnComplementary
	withoutOvertime := basePay + vacationOnBase
	csgBase := raw * r.CSGBaseFactor

	res := Result{
		HoursMade:                hoursMade,
		HoursToPay:               hoursToPay,
		ComplementaryHours:       complementaryHours,
		VacationRate:             r.VacationRate,
		BasePay:                  basePay,
		ComplementaryHoursToPay:  complementaryPay,
		VacationOnBase:           vacationOnBase,
		VacationOnComplementary:  vacationOnComplementary,
		RawSalary:                raw,
		RawSalaryWithoutOvertime: withoutOvertime,
		CSGBase:                  csgBase,
	}

	bases := map[Base]float64{
		BaseRawSalary:       raw,
		BaseWithoutOvertime: withoutOvertime,
		BaseCSG:             csgBase,
		BaseOvertime:        raw - withoutOvertime,
	}

	// Each line is rounded before summing.
	for _, line := range chargeTable(r) {
		basis := bases[line.base]
		ch := Charge{
			Label:  line.label,
			Base:   line.base,
			Basis:  basis,
			Rate:   line.rate,
			Amount: Round2(basis * line.rate),
		}
		res.Charges = append(res.Charges, ch)
		res.SumOfCharges += ch.Amount
	}

	// Excluded from the sum, as on the reference payslip.
	res.Exemption = Charge{
		Label:  "Exonération HC/HS",
		Base:   BaseOvertime,
		Basis:  bases[BaseOvertime],
		Rate:   r.ExonerationHCHS,
		Amount: Round2(bases[BaseOvertime] * r.ExonerationHCHS),
	}

	res.NetPay = raw - res.SumOfCharges
	return res
}

type chargeLine struct {
	label string
	base  Base
	rate  float64
}

// chargeTable lists the deductions in payslip order. Prévoyance is not an
// old-age contribution and is charged on the full salary.
func chargeTable(r Rates) []chargeLine {
	return []chargeLine{
		{"Maladie, maternité, invalidité, décès, solidarité", BaseWithoutOvertime, r.MaladieSolidarite},
		{"Assurance vieillesse déplafonnée", BaseWithoutOvertime, r.VieillesseDeplafonnee},
		{"Assurance vieillesse plafonnée", BaseWithoutOvertime, r.VieillessePlafonnee},
		{"Allocations familiales", BaseWithoutOvertime, r.AllocationsFamiliales},
		{"Accident du travail", BaseWithoutOvertime, r.AccidentTravail},
		{"FNAL", BaseWithoutOvertime, r.FNAL},
		{"IRCEM Prévoyance", BaseRawSalary, r.IRCEMPrevoyance},
		{"IRCEM Retraite", BaseWithoutOvertime, r.IRCEMRetraite},
		{"CEG", BaseWithoutOvertime, r.CEG},
		{"Assurance chômage", BaseWithoutOvertime, r.AssuranceChomage},
		{"Formation professionnelle", BaseWithoutOvertime, r.Formation},
		{"CSG/CRDS non déductible", BaseCSG, r.CSGCRDS},
		{"CSG déductible", BaseCSG, r.CSGDeductible},
	}
}
