package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/store/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type fixture struct {
	members *memberStore
	txs     *transactionStore
	runner  *runner
	events  *eventRecorder
	proc    *Processor
}

func newFixture(cfg config.LedgerConfig) *fixture {
	f := &fixture{
		members: newMemberStore(),
		txs:     newTransactionStore(),
		runner:  &runner{},
		events:  &eventRecorder{},
	}
	f.proc = NewProcessor(f.members, f.txs, f.runner, f.events, cfg)
	f.proc.now = func() time.Time { return time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func defaultFixture() *fixture {
	return newFixture(config.LedgerConfig{MaxBatchSize: 10, MaxRetries: 2})
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func borrower(number string) bson.M {
	return bson.M{
		models.FieldMemberNumber: number,
		models.FieldName:         "Member " + number,
		models.FieldLoanAmount:   1000.0,
		models.FieldBalance:      1000.0,
		models.FieldVersion:      int64(0),
	}
}

func TestProcess_ValidationRejectsBeforeAnyWrite(t *testing.T) {
	f := defaultFixture()
	f.members.add(borrower("1"))

	tests := []struct {
		name   string
		req    Request
		fields []string
	}{
		{"empty request", Request{}, []string{"memberIds", "paymentType", "amount"}},
		{"zero amount", Request{MemberIDs: []string{"x"}, PaymentType: "installment", Amount: amount("0")}, []string{"amount"}},
		{"unknown type", Request{MemberIDs: []string{"x"}, PaymentType: "bonus", Amount: amount("5")}, []string{"paymentType"}},
		{"blank id", Request{MemberIDs: []string{"  "}, PaymentType: "deposit", Amount: amount("5")}, []string{"memberIds"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.proc.Process(context.Background(), tt.req)

			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr))
			for _, field := range tt.fields {
				found := false
				for _, fe := range verr.Fields {
					if fe.Field == field {
						found = true
					}
				}
				assert.True(t, found, "expected %s in %v", field, verr.Fields)
			}
		})
	}
	assert.Empty(t, f.txs.all())
	assert.Zero(t, f.members.applyCalls)
}

func TestProcess_RejectsOversizedBatch(t *testing.T) {
	f := newFixture(config.LedgerConfig{MaxBatchSize: 2})

	_, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{"a", "b", "c"},
		PaymentType: "deposit",
		Amount:      amount("1"),
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "at most 2")
}

func TestProcess_LoanAmountMovesLoanAndBalance(t *testing.T) {
	f := defaultFixture()
	id := f.members.add(borrower("1"))
	effective := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:     []string{id},
		PaymentType:   "loanAmount",
		Amount:        amount("250"),
		EffectiveDate: &effective,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Zero(t, result.Failed)
	require.Len(t, result.Members, 1)
	mr := result.Members[0]
	assert.Equal(t, ResultApplied, mr.Status)
	assert.Equal(t, 1000.0, mr.PreviousBalance)
	assert.Equal(t, 750.0, mr.NewBalance)

	m := f.members.member(id)
	assert.Equal(t, 750.0, m.LoanAmount)
	assert.Equal(t, 750.0, m.Balance)
	assert.Equal(t, int64(1), m.Version)
	assert.Equal(t, mr.TransactionID, m.LastTransactionID)
	require.NotNil(t, m.LastPaymentDate)
	assert.True(t, effective.Equal(*m.LastPaymentDate))

	txs := f.txs.all()
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, consts.TransactionStatusApplied, tx.Status)
	assert.Equal(t, id, tx.MemberID)
	assert.Equal(t, "1", tx.MemberNumber)
	assert.Equal(t, 250.0, tx.Amount)
	assert.Equal(t, consts.DirectionDebit, tx.Type)
	assert.Equal(t, "loanAmount", tx.PaymentType)
	assert.Equal(t, 1000.0, tx.PreviousBalance)
	assert.Equal(t, 750.0, tx.NewBalance)
	assert.Equal(t, int64(0), tx.MemberVersion)
	assert.Equal(t, effective, tx.PaymentDate)

	require.Len(t, f.events.txs, 1)
	assert.Equal(t, tx.ID, f.events.txs[0].ID)
}

func TestProcess_InstallmentMovesBalanceOnly(t *testing.T) {
	f := defaultFixture()
	id := f.members.add(borrower("2"))

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	m := f.members.member(id)
	assert.Equal(t, 900.0, m.Balance)
	assert.Equal(t, 1000.0, m.LoanAmount)
	assert.Equal(t, f.proc.now(), result.EffectiveDate)
}

func TestProcess_OneTransactionPerMemberAndDuplicatesCollapsed(t *testing.T) {
	f := defaultFixture()
	a := f.members.add(borrower("1"))
	b := f.members.add(borrower("2"))

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{a, b, a},
		PaymentType: "monthlySaving",
		Amount:      amount("50"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied)
	assert.Len(t, f.txs.all(), 2)
	assert.Equal(t, 50.0, f.members.member(a).MonthlySaving)
	assert.Equal(t, 50.0, f.members.member(b).MonthlySaving)
}

func TestProcess_MissingMemberDoesNotStopBatch(t *testing.T) {
	f := defaultFixture()
	id := f.members.add(borrower("1"))

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{"missing", id},
		PaymentType: "deposit",
		Amount:      amount("10"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, ResultFailed, result.Members[0].Status)
	assert.Equal(t, apperrors.CodeNotFound, result.Members[0].ErrorCode)
	assert.ErrorIs(t, result.Members[0].Err, apperrors.ErrNotFound)
	assert.Equal(t, ResultApplied, result.Members[1].Status)
	assert.Len(t, f.txs.all(), 1)
}

func TestProcess_RetriesAfterConcurrentUpdate(t *testing.T) {
	f := defaultFixture()
	id := f.members.add(borrower("1"))
	f.members.beforeApply = func(memberID string, s *memberStore) error {
		if s.applyCalls == 1 {
			// another writer records an installment first
			s.docs[memberID][models.FieldBalance] = 900.0
			s.bump(memberID)
		}
		return nil
	}

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 900.0, result.Members[0].PreviousBalance)
	assert.Equal(t, 800.0, result.Members[0].NewBalance)
	assert.Equal(t, 800.0, f.members.member(id).Balance)

	txs := f.txs.all()
	require.Len(t, txs, 2)
	assert.Equal(t, consts.TransactionStatusSuperseded, txs[0].Status)
	assert.Equal(t, consts.TransactionStatusApplied, txs[1].Status)
}

func TestProcess_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(config.LedgerConfig{MaxBatchSize: 10, MaxRetries: 1})
	id := f.members.add(borrower("1"))
	f.members.beforeApply = func(memberID string, s *memberStore) error {
		s.bump(memberID)
		return nil
	}

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.ErrorIs(t, result.Members[0].Err, apperrors.ErrConflict)
	assert.Equal(t, 2, f.members.applyCalls)
	assert.Equal(t, 1000.0, f.members.member(id).Balance)
	assert.Empty(t, f.events.txs)
	assert.True(t, result.Unchanged())
}

func TestProcess_TransactionRecordFailureLeavesMemberUntouched(t *testing.T) {
	f := defaultFixture()
	id := f.members.add(borrower("1"))
	f.txs.createErr = apperrors.NewStoreError("create transaction", errors.New("disk full"))

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, apperrors.CodeStore, result.Members[0].ErrorCode)
	assert.Equal(t, 1000.0, f.members.member(id).Balance)
	assert.Zero(t, f.members.applyCalls)
	assert.False(t, result.Members[0].InDoubt)
	assert.True(t, result.Unchanged())
}

func TestProcess_MemberWriteFailureIsInDoubt(t *testing.T) {
	f := defaultFixture()
	id := f.members.add(borrower("1"))
	f.members.beforeApply = func(memberID string, s *memberStore) error {
		return apperrors.NewStoreError("apply ledger change", errors.New("socket closed"))
	}

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Applied)
	assert.True(t, result.Members[0].InDoubt)
	assert.False(t, result.Unchanged())
	assert.Equal(t, consts.TransactionStatusPending, f.txs.all()[0].Status)
}

func TestProcess_MemberWriteFailureInsideTransactionIsSettled(t *testing.T) {
	f := defaultFixture()
	f.runner.enabled = true
	id := f.members.add(borrower("1"))
	f.members.beforeApply = func(memberID string, s *memberStore) error {
		return apperrors.NewStoreError("apply ledger change", errors.New("socket closed"))
	}

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	assert.False(t, result.Members[0].InDoubt)
	assert.True(t, result.Unchanged())
}

func TestProcess_MarkAppliedFailureIsPartialConsistency(t *testing.T) {
	f := defaultFixture()
	id := f.members.add(borrower("1"))
	f.txs.markErr = func(status string) error {
		if status == consts.TransactionStatusApplied {
			return apperrors.NewStoreError("mark transaction applied", errors.New("timeout"))
		}
		return nil
	}

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	mr := result.Members[0]
	assert.Equal(t, ResultFailed, mr.Status)
	assert.ErrorIs(t, mr.Err, apperrors.ErrPartialConsistency)
	assert.Equal(t, apperrors.CodePartialConsistency, mr.ErrorCode)
	assert.NotEmpty(t, mr.TransactionID)
	assert.True(t, mr.InDoubt)
	assert.False(t, result.Unchanged())

	// member moved, record still pending until recovery confirms it
	assert.Equal(t, 900.0, f.members.member(id).Balance)
	assert.Equal(t, consts.TransactionStatusPending, f.txs.all()[0].Status)
}

func TestProcess_MarkAppliedFailureInsideTransactionIsStoreError(t *testing.T) {
	f := defaultFixture()
	f.runner.enabled = true
	id := f.members.add(borrower("1"))
	f.txs.markErr = func(status string) error {
		return errors.New("write conflict")
	}

	result, err := f.proc.Process(context.Background(), Request{
		MemberIDs:   []string{id},
		PaymentType: "installment",
		Amount:      amount("100"),
	})

	require.NoError(t, err)
	assert.Equal(t, apperrors.CodeStore, result.Members[0].ErrorCode)
	assert.Equal(t, 1, f.runner.calls)
}
