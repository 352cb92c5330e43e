package report

import (
	"time"

	"coop-ledger/internal/pkg/store/models"

	"github.com/shopspring/decimal"
)

// DefaultMonthlyRate is the simple monthly interest rate (24% a year).
var DefaultMonthlyRate = decimal.RequireFromString("0.02")

type Totals struct {
	LoanAmount         float64 `json:"loanAmount"`
	Interest           float64 `json:"interest"`
	Installment        float64 `json:"installment"`
	Balance            float64 `json:"balance"`
	InitialDeposit     float64 `json:"initialDeposit"`
	MonthlySaving      float64 `json:"monthlySaving"`
	NextPeriodInterest float64 `json:"nextPeriodInterest"`
}

type Row struct {
	models.Member
	NextPeriodInterest float64 `json:"nextPeriodInterest"`
}

type Report struct {
	GeneratedAt   time.Time          `json:"generatedAt"`
	MemberCount   int                `json:"memberCount"`
	MonthlyRate   float64            `json:"monthlyRate"`
	Totals        Totals             `json:"totals"`
	Rows          []Row              `json:"rows"`
	PaymentTotals map[string]float64 `json:"paymentTotals,omitempty"`
}

// Aggregate sums the ledger fields of members and projects next period
// interest as balance times rate. members is not modified.
func Aggregate(members []models.Member, rate decimal.Decimal, generatedAt time.Time) Report {
	var loan, interest, installment, balance, deposit, saving, next decimal.Decimal
	rows := make([]Row, 0, len(members))
	for _, m := range members {
		loan = loan.Add(models.Dec(m.LoanAmount))
		interest = interest.Add(models.Dec(m.Interest))
		installment = installment.Add(models.Dec(m.Installment))
		balance = balance.Add(models.Dec(m.Balance))
		deposit = deposit.Add(models.Dec(m.InitialDeposit))
		saving = saving.Add(models.Dec(m.MonthlySaving))

		memberNext := models.Dec(m.Balance).Mul(rate)
		next = next.Add(memberNext)
		rows = append(rows, Row{Member: m, NextPeriodInterest: models.Amount(memberNext)})
	}

	return Report{
		GeneratedAt: generatedAt,
		MemberCount: len(members),
		MonthlyRate: models.Amount(rate),
		Totals: Totals{
			LoanAmount:         models.Amount(loan),
			Interest:           models.Amount(interest),
			Installment:        models.Amount(installment),
			Balance:            models.Amount(balance),
			InitialDeposit:     models.Amount(deposit),
			MonthlySaving:      models.Amount(saving),
			NextPeriodInterest: models.Amount(balance.Mul(rate)),
		},
		Rows: rows,
	}
}
