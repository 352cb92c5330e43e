package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/store/models"

	"github.com/shopspring/decimal"
)

var (
	memberHeader  = []string{"Member No.", "Name", "Loan Amount", "Interest", "Installment", "Balance", "Next Month Interest"}
	historyHeader = []string{"Member No.", "Name", "Date", "Payment Type", "Type", "Amount", "Previous Balance", "New Balance"}
)

// FileName is the object name used for an exported member report.
func FileName(day time.Time) string {
	return "member-report-" + day.Format(consts.ReportFileDateLayout) + ".csv"
}

// WriteCSV renders r as a summary block followed by one row per member and
// a totals row.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{"Summary"},
		{"Total Members", strconv.Itoa(r.MemberCount)},
		{"Total Loan Amount", number(r.Totals.LoanAmount)},
		{"Total Interest", number(r.Totals.Interest)},
		{"Outstanding Balance", number(r.Totals.Balance)},
		{"Next Month Total Interest", number(r.Totals.NextPeriodInterest)},
		{},
		memberHeader,
	}
	for _, row := range r.Rows {
		records = append(records, []string{
			PadMemberNumber(row.MemberNumber),
			row.Name,
			number(row.LoanAmount),
			number(row.Interest),
			number(row.Installment),
			number(row.Balance),
			number(row.NextPeriodInterest),
		})
	}
	records = append(records, []string{
		"Totals",
		"",
		number(r.Totals.LoanAmount),
		number(r.Totals.Interest),
		number(r.Totals.Installment),
		number(r.Totals.Balance),
		number(r.Totals.NextPeriodInterest),
	})
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write member report: %w", err)
	}
	return nil
}

// WriteTransactionHistoryCSV writes each member's transactions in member
// order. history is expected newest first per member.
func WriteTransactionHistoryCSV(w io.Writer, members []models.Member, history map[string][]models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeader); err != nil {
		return fmt.Errorf("write transaction history: %w", err)
	}
	for _, m := range members {
		for _, tx := range history[m.ID] {
			record := []string{
				PadMemberNumber(m.MemberNumber),
				m.Name,
				tx.PaymentDate.UTC().Format(consts.ReportFileDateLayout),
				tx.PaymentType,
				tx.Type,
				number(tx.Amount),
				number(tx.PreviousBalance),
				number(tx.NewBalance),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write transaction history: %w", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write transaction history: %w", err)
	}
	return nil
}

// PadMemberNumber left-pads member numbers to three characters with zeros.
func PadMemberNumber(n string) string {
	if len(n) >= 3 {
		return n
	}
	return strings.Repeat("0", 3-len(n)) + n
}

func number(f float64) string {
	return decimal.NewFromFloat(f).String()
}
