package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FieldLoanMemberID    = "memberId"
	FieldLoanStatus      = "status"
	FieldLoanPayments    = "payments"
	FieldLoanDateApplied = "dateApplied"
)

type LoanPayment struct {
	PaymentID string    `bson:"paymentId" json:"paymentId"`
	Amount    float64   `bson:"amount" json:"amount"`
	Date      time.Time `bson:"date" json:"date"`
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type Loan struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID        string             `bson:"memberId,omitempty" json:"memberId,omitempty"`
	FullName        string             `bson:"fullName" json:"fullName"`
	Email           string             `bson:"email" json:"email"`
	Phone           string             `bson:"phone" json:"phone"`
	LoanAmount      float64            `bson:"loanAmount" json:"loanAmount"`
	MonthlyInterest float64            `bson:"monthlyInterest" json:"monthlyInterest"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	Status          string             `bson:"status" json:"status"`
	DateApplied     time.Time          `bson:"dateApplied" json:"dateApplied"`
	Payments        []LoanPayment      `bson:"payments" json:"payments"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// PaidAmount sums the recorded payments.
func (l Loan) PaidAmount() float64 {
	total := Dec(0)
	for _, p := range l.Payments {
		total = total.Add(Dec(p.Amount))
	}
	return Amount(total)
}

// RemainingAmount may go negative; overpayment is not rejected.
func (l Loan) RemainingAmount() float64 {
	return Amount(Dec(l.TotalAmount).Sub(Dec(l.PaidAmount())))
}
