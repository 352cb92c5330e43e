package consts

type PaymentType string

const (
	PaymentTypeDeposit       PaymentType = "deposit"
	PaymentTypeMonthlySaving PaymentType = "monthlySaving"
	PaymentTypeLoanAmount    PaymentType = "loanAmount"
	PaymentTypeInterest      PaymentType = "interest"
	PaymentTypeInstallment   PaymentType = "installment"
)

// PaymentTypes lists every accepted payment type in display order.
var PaymentTypes = []PaymentType{
	PaymentTypeDeposit,
	PaymentTypeMonthlySaving,
	PaymentTypeLoanAmount,
	PaymentTypeInterest,
	PaymentTypeInstallment,
}

func (p PaymentType) Valid() bool {
	for _, t := range PaymentTypes {
		if p == t {
			return true
		}
	}
	return false
}

const (
	DirectionCredit string = "credit"
	DirectionDebit  string = "debit"

	TransactionStatusPending    string = "pending"
	TransactionStatusApplied    string = "applied"
	TransactionStatusSuperseded string = "superseded"
	TransactionStatusOrphaned   string = "orphaned"

	MemberStatusDraft   string = "DRAFT"
	MemberStatusActive  string = "ACTIVE"
	MemberStatusSettled string = "SETTLED"

	LoanStatusPending  string = "pending"
	LoanStatusApproved string = "approved"
	LoanStatusRejected string = "rejected"
	LoanStatusClosed   string = "closed"

	EntityMember      string = "member"
	EntityLoan        string = "loan"
	EntityTransaction string = "transaction"
)

var LoanStatuses = []string{LoanStatusPending, LoanStatusApproved, LoanStatusRejected, LoanStatusClosed}
