package payroll

// Rates is the payroll rate table. It is loaded once from configuration and
// never mutated afterwards; a Calculator keeps its own copy.
type Rates struct {
	HourlyRate   float64 `yaml:"hourly_rate" json:"hourlyRate"`
	VacationRate float64 `yaml:"vacation_rate" json:"vacationRate"`

	MaladieSolidarite     float64 `yaml:"maladie_solidarite" json:"maladieSolidarite"`
	VieillesseDeplafonnee float64 `yaml:"vieillesse_deplafonnee" json:"vieillesseDeplafonnee"`
	VieillessePlafonnee   float64 `yaml:"vieillesse_plafonnee" json:"vieillessePlafonnee"`
	AllocationsFamiliales float64 `yaml:"allocations_familiales" json:"allocationsFamiliales"`
	AccidentTravail       float64 `yaml:"accident_travail" json:"accidentTravail"`
	FNAL                  float64 `yaml:"fnal" json:"fnal"`
	IRCEMPrevoyance       float64 `yaml:"ircem_prevoyance" json:"ircemPrevoyance"`
	IRCEMRetraite         float64 `yaml:"ircem_retraite" json:"ircemRetraite"`
	CEG                   float64 `yaml:"ceg" json:"ceg"`
	AssuranceChomage      float64 `yaml:"assurance_chomage" json:"assuranceChomage"`
	Formation             float64 `yaml:"formation" json:"formation"`
	CSGCRDS               float64 `yaml:"csg_crds" json:"csgCrds"`
	CSGDeductible         float64 `yaml:"csg_deductible" json:"csgDeductible"`

	// ExonerationHCHS applies to the overtime share of the salary. The
	// resulting line is informational and never deducted.
	ExonerationHCHS float64 `yaml:"exoneration_hc_hs" json:"exonerationHcHs"`

	// CSGBaseFactor is the abatement applied to the gross salary to get
	// the CSG/CRDS base.
	CSGBaseFactor float64 `yaml:"csg_base_factor" json:"csgBaseFactor"`
}

// DefaultRates returns the rate table of the reference payslip.
func DefaultRates() Rates {
	return Rates{
		HourlyRate:   3.89,
		VacationRate: 0.1,

		MaladieSolidarite:     0,
		VieillesseDeplafonnee: 0.004,
		VieillessePlafonnee:   0.069,
		AllocationsFamiliales: 0,
		AccidentTravail:       0,
		FNAL:                  0,
		IRCEMPrevoyance:       0.0115,
		IRCEMRetraite:         0.03148,
		CEG:                   0.0086,
		AssuranceChomage:      0,
		Formation:             0,
		CSGCRDS:               0.029,
		CSGDeductible:         0.068,

		ExonerationHCHS: -0.1131,
		CSGBaseFactor:   0.9825,
	}
}

// Allowances are the per-day expense reimbursements.
type Allowances struct {
	GeneralFees float64 `yaml:"general_fees" json:"generalFees"`
	Meal        float64 `yaml:"meal" json:"meal"`
	Snack       float64 `yaml:"snack" json:"snack"`
}

func DefaultAllowances() Allowances {
	return Allowances{
		GeneralFees: 3.45,
		Meal:        2,
		Snack:       1,
	}
}
