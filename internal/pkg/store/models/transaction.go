package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction document field names.
const (
	FieldTxMemberID  = "memberId"
	FieldTxStatus    = "status"
	FieldTxTimestamp = "timestamp"
)

// Transaction is an immutable record of one ledger mutation. Only Status
// moves after creation: pending, then applied, superseded or orphaned.
type Transaction struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID        string             `bson:"memberId" json:"memberId"`
	MemberNumber    string             `bson:"memberNumber" json:"memberNumber"`
	MemberName      string             `bson:"memberName" json:"memberName"`
	Amount          float64            `bson:"amount" json:"amount"`
	Type            string             `bson:"type" json:"type"`
	PaymentType     string             `bson:"paymentType" json:"paymentType"`
	Field           string             `bson:"field" json:"field"`
	PreviousValue   float64            `bson:"previousValue" json:"previousValue"`
	NewValue        float64            `bson:"newValue" json:"newValue"`
	PreviousBalance float64            `bson:"previousBalance" json:"previousBalance"`
	NewBalance      float64            `bson:"newBalance" json:"newBalance"`
	MemberVersion   int64              `bson:"memberVersion" json:"memberVersion"`
	PaymentDate     time.Time          `bson:"paymentDate" json:"paymentDate"`
	Timestamp       time.Time          `bson:"timestamp" json:"timestamp"`
	Status          string             `bson:"status" json:"status"`
}

// LedgerEvent is the message published after a payment is applied.
type LedgerEvent struct {
	EventID         string    `json:"eventId"`
	TransactionID   string    `json:"transactionId"`
	MemberID        string    `json:"memberId"`
	MemberNumber    string    `json:"memberNumber"`
	MemberName      string    `json:"memberName"`
	PaymentType     string    `json:"paymentType"`
	Type            string    `json:"type"`
	Amount          float64   `json:"amount"`
	PreviousBalance float64   `json:"previousBalance"`
	NewBalance      float64   `json:"newBalance"`
	PaymentDate     time.Time `json:"paymentDate"`
	PublishedAt     time.Time `json:"publishedAt"`
}

func NewLedgerEvent(eventID string, tx Transaction, publishedAt time.Time) LedgerEvent {
	return LedgerEvent{
		EventID:         eventID,
		TransactionID:   tx.ID.Hex(),
		MemberID:        tx.MemberID,
		MemberNumber:    tx.MemberNumber,
		MemberName:      tx.MemberName,
		PaymentType:     tx.PaymentType,
		Type:            tx.Type,
		Amount:          tx.Amount,
		PreviousBalance: tx.PreviousBalance,
		NewBalance:      tx.NewBalance,
		PaymentDate:     tx.PaymentDate,
		PublishedAt:     publishedAt,
	}
}
