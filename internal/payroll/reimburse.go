package payroll

import "nannypay/internal/model"

// Reimbursement is one expense category of the month.
type Reimbursement struct {
	Days   int     `json:"days"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

// Reimbursements are paid on top of the net salary and bear no charges.
type Reimbursements struct {
	GeneralFees   Reimbursement `json:"generalFees"`
	Lunch         Reimbursement `json:"lunch"`
	AfterNoonMeal Reimbursement `json:"afterNoonMeal"`
	Total         float64       `json:"total"`
}

// ComputeReimbursements counts eligible days per category. Each category
// total is rounded to cents before the grand total is summed.
func ComputeReimbursements(days []model.NannysDay, a Allowances) Reimbursements {
	var general, lunch, snack int
	for _, d := range days {
		if d.Fees.GeneralFees {
			general++
		}
		if d.Fees.Lunch {
			lunch++
		}
		if d.Fees.AfterNoonMeal {
			snack++
		}
	}

	out := Reimbursements{
		GeneralFees:   category(general, a.GeneralFees),
		Lunch:         category(lunch, a.Meal),
		AfterNoonMeal: category(snack, a.Snack),
	}
	out.Total = out.GeneralFees.Amount + out.Lunch.Amount + out.AfterNoonMeal.Amount
	return out
}

func category(days int, rate float64) Reimbursement {
	return Reimbursement{
		Days:   days,
		Rate:   rate,
		Amount: Round2(float64(days) * rate),
	}
}
