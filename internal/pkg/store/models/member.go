package models

import (
	"time"

	"coop-ledger/internal/pkg/consts"

	"go.mongodb.org/mongo-driver/bson"
)

// Member document field names.
const (
	FieldID                = "_id"
	FieldMemberNumber      = "memberNumber"
	FieldName              = "name"
	FieldLoanAmount        = "loanAmount"
	FieldInterest          = "interest"
	FieldInstallment       = "installment"
	FieldBalance           = "balance"
	FieldInitialDeposit    = "initialDeposit"
	FieldMonthlySaving     = "monthlySaving"
	FieldAddress           = "address"
	FieldPhoneNumber       = "phoneNumber"
	FieldAadharNumber      = "aadharNumber"
	FieldPanNumber         = "panNumber"
	FieldNomineeName       = "nomineeName"
	FieldNomineeRelation   = "nomineeRelation"
	FieldNomineePhone      = "nomineePhone"
	FieldInterestRate      = "interestRate"
	FieldJoiningDate       = "joiningDate"
	FieldLastPaymentDate   = "lastPaymentDate"
	FieldLastTransactionID = "lastTransactionId"
	FieldVersion           = "version"
	FieldCreatedAt         = "createdAt"
	FieldUpdatedAt         = "updatedAt"
)

// LedgerFields are the numeric member fields summed by reports.
var LedgerFields = []string{
	FieldLoanAmount,
	FieldInterest,
	FieldInstallment,
	FieldBalance,
	FieldInitialDeposit,
	FieldMonthlySaving,
}

// Member is the typed view of a member document after coercion.
type Member struct {
	ID                string     `json:"id"`
	MemberNumber      string     `json:"memberNumber"`
	Name              string     `json:"name"`
	LoanAmount        float64    `json:"loanAmount"`
	Interest          float64    `json:"interest"`
	Installment       float64    `json:"installment"`
	Balance           float64    `json:"balance"`
	InitialDeposit    float64    `json:"initialDeposit"`
	MonthlySaving     float64    `json:"monthlySaving"`
	Address           string     `json:"address,omitempty"`
	PhoneNumber       string     `json:"phoneNumber,omitempty"`
	AadharNumber      string     `json:"aadharNumber,omitempty"`
	PanNumber         string     `json:"panNumber,omitempty"`
	NomineeName       string     `json:"nomineeName,omitempty"`
	NomineeRelation   string     `json:"nomineeRelation,omitempty"`
	NomineePhone      string     `json:"nomineePhone,omitempty"`
	InterestRate      string     `json:"interestRate,omitempty"`
	JoiningDate       *time.Time `json:"joiningDate,omitempty"`
	LastPaymentDate   *time.Time `json:"lastPaymentDate,omitempty"`
	LastTransactionID string     `json:"lastTransactionId,omitempty"`
	Version           int64      `json:"version"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
	Status            string     `json:"status"`
}

// DecodeMember coerces a raw member document into a Member.
func DecodeMember(raw bson.M) Member {
	m := Member{
		ID:                CoerceID(raw[FieldID]),
		MemberNumber:      CoerceString(raw[FieldMemberNumber]),
		Name:              CoerceString(raw[FieldName]),
		LoanAmount:        CoerceNumber(raw[FieldLoanAmount]),
		Interest:          CoerceNumber(raw[FieldInterest]),
		Installment:       CoerceNumber(raw[FieldInstallment]),
		Balance:           CoerceNumber(raw[FieldBalance]),
		InitialDeposit:    CoerceNumber(raw[FieldInitialDeposit]),
		MonthlySaving:     CoerceNumber(raw[FieldMonthlySaving]),
		Address:           CoerceString(raw[FieldAddress]),
		PhoneNumber:       CoerceString(raw[FieldPhoneNumber]),
		AadharNumber:      CoerceString(raw[FieldAadharNumber]),
		PanNumber:         CoerceString(raw[FieldPanNumber]),
		NomineeName:       CoerceString(raw[FieldNomineeName]),
		NomineeRelation:   CoerceString(raw[FieldNomineeRelation]),
		NomineePhone:      CoerceString(raw[FieldNomineePhone]),
		InterestRate:      CoerceString(raw[FieldInterestRate]),
		JoiningDate:       CoerceTime(raw[FieldJoiningDate]),
		LastPaymentDate:   CoerceTime(raw[FieldLastPaymentDate]),
		LastTransactionID: CoerceID(raw[FieldLastTransactionID]),
		Version:           CoerceInt64(raw[FieldVersion]),
		CreatedAt:         CoerceTime(raw[FieldCreatedAt]),
		UpdatedAt:         CoerceTime(raw[FieldUpdatedAt]),
	}
	m.Status = m.LifecycleStatus()
	return m
}

// LifecycleStatus derives ACTIVE or SETTLED for a persisted member.
func (m Member) LifecycleStatus() string {
	if m.ID == "" {
		return consts.MemberStatusDraft
	}
	if m.Balance > 0 || m.LoanAmount > 0 {
		return consts.MemberStatusActive
	}
	return consts.MemberStatusSettled
}

// FieldValue returns the numeric ledger field with the given document name.
func (m Member) FieldValue(field string) float64 {
	switch field {
	case FieldLoanAmount:
		return m.LoanAmount
	case FieldInterest:
		return m.Interest
	case FieldInstallment:
		return m.Installment
	case FieldBalance:
		return m.Balance
	case FieldInitialDeposit:
		return m.InitialDeposit
	case FieldMonthlySaving:
		return m.MonthlySaving
	default:
		return 0
	}
}
