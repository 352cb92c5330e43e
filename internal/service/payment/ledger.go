package payment

import (
	"fmt"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/store/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

type effect struct {
	field     string
	direction string
	// moves balance along with field
	withBalance bool
}

var effects = map[consts.PaymentType]effect{
	consts.PaymentTypeDeposit:       {field: models.FieldInitialDeposit, direction: consts.DirectionCredit},
	consts.PaymentTypeMonthlySaving: {field: models.FieldMonthlySaving, direction: consts.DirectionCredit},
	consts.PaymentTypeLoanAmount:    {field: models.FieldLoanAmount, direction: consts.DirectionDebit, withBalance: true},
	consts.PaymentTypeInterest:      {field: models.FieldInterest, direction: consts.DirectionDebit},
	consts.PaymentTypeInstallment:   {field: models.FieldBalance, direction: consts.DirectionDebit},
}

// Change is the effect of one payment on one member's ledger.
type Change struct {
	Field           string
	Direction       string
	PreviousValue   float64
	NewValue        float64
	PreviousBalance float64
	NewBalance      float64
}

// ComputeChange applies a payment of amount to member without touching the
// store. Values may go negative; overpayment is not rejected.
func ComputeChange(member models.Member, paymentType consts.PaymentType, amount decimal.Decimal) (Change, error) {
	eff, ok := effects[paymentType]
	if !ok {
		return Change{}, apperrors.NewValidationError("paymentType", fmt.Sprintf("unsupported payment type %q", paymentType))
	}

	delta := amount
	if eff.direction == consts.DirectionDebit {
		delta = amount.Neg()
	}

	prev := models.Dec(member.FieldValue(eff.field))
	next := prev.Add(delta)
	c := Change{
		Field:           eff.field,
		Direction:       eff.direction,
		PreviousValue:   models.Amount(prev),
		NewValue:        models.Amount(next),
		PreviousBalance: member.Balance,
		NewBalance:      member.Balance,
	}
	switch {
	case eff.field == models.FieldBalance:
		c.NewBalance = c.NewValue
	case eff.withBalance:
		c.NewBalance = models.Amount(models.Dec(member.Balance).Add(delta))
	}
	return c, nil
}

// Set returns the member fields the change writes.
func (c Change) Set() bson.M {
	set := bson.M{c.Field: c.NewValue}
	if c.Field != models.FieldBalance && c.NewBalance != c.PreviousBalance {
		set[models.FieldBalance] = c.NewBalance
	}
	return set
}

// changeFromTransaction rebuilds the recorded change of tx.
func changeFromTransaction(tx models.Transaction) Change {
	return Change{
		Field:           tx.Field,
		Direction:       tx.Type,
		PreviousValue:   tx.PreviousValue,
		NewValue:        tx.NewValue,
		PreviousBalance: tx.PreviousBalance,
		NewBalance:      tx.NewBalance,
	}
}
