package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/pkg/validation"
	"coop-ledger/internal/service/interfaces"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultMaxBatchSize = 100
	defaultMaxRetries   = 3

	ResultApplied = "applied"
	ResultFailed  = "failed"
)

type Request struct {
	MemberIDs     []string         `json:"memberIds" validate:"required,min=1,dive,required"`
	PaymentType   string           `json:"paymentType" validate:"required,paymenttype"`
	Amount        *decimal.Decimal `json:"amount" validate:"required,gt=0"`
	EffectiveDate *time.Time       `json:"effectiveDate,omitempty"`
}

// MemberResult is the outcome for one member of a batch.
type MemberResult struct {
	MemberID        string  `json:"memberId"`
	MemberNumber    string  `json:"memberNumber,omitempty"`
	Status          string  `json:"status"`
	TransactionID   string  `json:"transactionId,omitempty"`
	Field           string  `json:"field,omitempty"`
	PreviousValue   float64 `json:"previousValue"`
	NewValue        float64 `json:"newValue"`
	PreviousBalance float64 `json:"previousBalance"`
	NewBalance      float64 `json:"newBalance"`
	Error           string  `json:"error,omitempty"`
	ErrorCode       string  `json:"errorCode,omitempty"`
	// InDoubt marks a failure after which the member may still have changed;
	// recovery settles it.
	InDoubt bool  `json:"inDoubt,omitempty"`
	Err     error `json:"-"`
}

type Result struct {
	PaymentType   string         `json:"paymentType"`
	Amount        float64        `json:"amount"`
	EffectiveDate time.Time      `json:"effectiveDate"`
	Applied       int            `json:"applied"`
	Failed        int            `json:"failed"`
	Members       []MemberResult `json:"members"`
}

// Unchanged reports whether the batch left every member as it was, so the
// same request may safely be sent again.
func (r Result) Unchanged() bool {
	if r.Applied > 0 {
		return false
	}
	for _, m := range r.Members {
		if m.InDoubt {
			return false
		}
	}
	return true
}

// Processor applies payments to member ledgers. Each member's update is a
// two-phase write: a pending transaction record first, then a versioned
// member update, then the record is marked applied.
type Processor struct {
	members      interfaces.MemberRepository
	transactions interfaces.TransactionRepository
	runner       interfaces.TransactionRunner
	events       interfaces.LedgerEventPublisher
	maxBatchSize int
	maxRetries   int
	now          func() time.Time
}

func NewProcessor(
	members interfaces.MemberRepository,
	transactions interfaces.TransactionRepository,
	runner interfaces.TransactionRunner,
	events interfaces.LedgerEventPublisher,
	cfg config.LedgerConfig,
) *Processor {
	p := &Processor{
		members:      members,
		transactions: transactions,
		runner:       runner,
		events:       events,
		maxBatchSize: cfg.MaxBatchSize,
		maxRetries:   cfg.MaxRetries,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if p.maxBatchSize <= 0 {
		p.maxBatchSize = defaultMaxBatchSize
	}
	if p.maxRetries < 0 {
		p.maxRetries = defaultMaxRetries
	}
	return p
}

// Process validates req and applies it to every listed member. Members are
// processed independently; a failure for one is reported in its result and
// does not stop the batch. Only a request that fails validation returns an
// error, and in that case nothing is written.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	ids, err := p.validate(req)
	if err != nil {
		logger.CtxWarn(ctx, log_messages.PaymentValidationFailed, zap.Error(err))
		return Result{}, err
	}

	paymentType := consts.PaymentType(req.PaymentType)
	amount := *req.Amount
	effective := p.now()
	if req.EffectiveDate != nil && !req.EffectiveDate.IsZero() {
		effective = req.EffectiveDate.UTC()
	}

	result := Result{
		PaymentType:   req.PaymentType,
		Amount:        models.Amount(amount),
		EffectiveDate: effective,
		Members:       make([]MemberResult, 0, len(ids)),
	}
	for _, id := range ids {
		mr := p.processMember(ctx, id, paymentType, amount, effective)
		if mr.Status == ResultApplied {
			result.Applied++
		} else {
			result.Failed++
		}
		result.Members = append(result.Members, mr)
	}
	return result, nil
}

func (p *Processor) validate(req Request) ([]string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(req.MemberIDs))
	ids := make([]string, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, apperrors.NewValidationError("memberIds", "must not contain empty ids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) > p.maxBatchSize {
		return nil, apperrors.NewValidationError("memberIds", fmt.Sprintf("must contain at most %d item(s)", p.maxBatchSize))
	}
	return ids, nil
}

func (p *Processor) processMember(
	ctx context.Context,
	memberID string,
	paymentType consts.PaymentType,
	amount decimal.Decimal,
	effective time.Time,
) MemberResult {
	var (
		tx      models.Transaction
		inDoubt bool
	)
	err := p.runner.RunInTransaction(ctx, func(ctx context.Context) error {
		var applyErr error
		tx, inDoubt, applyErr = p.apply(ctx, memberID, paymentType, amount, effective)
		return applyErr
	})

	var partial *apperrors.PartialConsistencyError
	if err != nil && errors.As(err, &partial) && p.runner.TransactionsEnabled() {
		// the enclosing transaction rolled back both writes
		err = apperrors.NewStoreError("apply payment", partial.Err)
	}

	mr := MemberResult{
		MemberID:        memberID,
		MemberNumber:    tx.MemberNumber,
		Field:           tx.Field,
		PreviousValue:   tx.PreviousValue,
		NewValue:        tx.NewValue,
		PreviousBalance: tx.PreviousBalance,
		NewBalance:      tx.NewBalance,
	}
	if !tx.ID.IsZero() {
		mr.TransactionID = tx.ID.Hex()
	}
	if err != nil {
		mr.Status = ResultFailed
		mr.Err = err
		mr.Error = err.Error()
		mr.ErrorCode = apperrors.Code(err)
		mr.InDoubt = inDoubt && !p.runner.TransactionsEnabled()
		if !errors.As(err, &partial) {
			logger.CtxError(ctx, log_messages.PaymentFailed, err,
				zap.String("member_id", memberID), zap.String("payment_type", string(paymentType)))
		}
		return mr
	}

	mr.Status = ResultApplied
	logger.CtxInfo(ctx, log_messages.PaymentApplied,
		zap.String("member_id", memberID),
		zap.String("transaction_id", mr.TransactionID),
		zap.String("payment_type", string(paymentType)),
		zap.Float64("previous_balance", tx.PreviousBalance),
		zap.Float64("new_balance", tx.NewBalance),
	)
	if p.events != nil {
		p.events.PaymentApplied(ctx, tx)
	}
	return mr
}

// apply runs the two-phase write for one member, retrying when the member
// changes between read and write. inDoubt reports a failure after the member
// update may already have landed.
func (p *Processor) apply(
	ctx context.Context,
	memberID string,
	paymentType consts.PaymentType,
	amount decimal.Decimal,
	effective time.Time,
) (tx models.Transaction, inDoubt bool, err error) {
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		member, err := p.members.GetByID(ctx, memberID)
		if err != nil {
			return tx, false, err
		}
		change, err := ComputeChange(member, paymentType, amount)
		if err != nil {
			return tx, false, err
		}

		tx = newTransaction(member, change, paymentType, amount, effective, p.now())
		txID, err := p.transactions.Create(ctx, tx)
		if err != nil {
			return models.Transaction{}, false, err
		}
		tx.ID = txID

		applied, err := p.members.ApplyLedgerChange(ctx, memberID, member.Version, ledgerSet(change, txID, effective))
		if err != nil {
			// outcome unknown; the pending record is left for recovery
			return tx, true, err
		}
		if !applied {
			p.supersede(ctx, tx, attempt)
			continue
		}

		if err := p.transactions.MarkStatus(ctx, txID, consts.TransactionStatusApplied); err != nil {
			perr := &apperrors.PartialConsistencyError{
				TransactionID: txID.Hex(),
				MemberID:      memberID,
				Stage:         "mark transaction applied",
				Err:           err,
			}
			logger.CtxError(ctx, log_messages.PartialConsistencyDetected, perr,
				zap.String("member_id", memberID), zap.String("transaction_id", txID.Hex()))
			return tx, true, perr
		}
		tx.Status = consts.TransactionStatusApplied
		return tx, false, nil
	}
	return tx, false, &apperrors.ConflictError{Entity: consts.EntityMember, ID: memberID}
}

func (p *Processor) supersede(ctx context.Context, tx models.Transaction, attempt int) {
	logger.CtxWarn(ctx, log_messages.PaymentConflictRetry,
		zap.String("member_id", tx.MemberID),
		zap.String("transaction_id", tx.ID.Hex()),
		zap.Int("attempt", attempt+1),
	)
	if err := p.transactions.MarkStatus(ctx, tx.ID, consts.TransactionStatusSuperseded); err != nil {
		// recovery orphans it later: its member version no longer matches
		logger.CtxWarn(ctx, log_messages.ErrorUpdatingTransaction,
			zap.String("transaction_id", tx.ID.Hex()), zap.Error(err))
	}
}

func newTransaction(
	member models.Member,
	change Change,
	paymentType consts.PaymentType,
	amount decimal.Decimal,
	effective, now time.Time,
) models.Transaction {
	return models.Transaction{
		MemberID:        member.ID,
		MemberNumber:    member.MemberNumber,
		MemberName:      member.Name,
		Amount:          models.Amount(amount),
		Type:            change.Direction,
		PaymentType:     string(paymentType),
		Field:           change.Field,
		PreviousValue:   change.PreviousValue,
		NewValue:        change.NewValue,
		PreviousBalance: change.PreviousBalance,
		NewBalance:      change.NewBalance,
		MemberVersion:   member.Version,
		PaymentDate:     effective,
		Timestamp:       now,
		Status:          consts.TransactionStatusPending,
	}
}

func ledgerSet(change Change, txID primitive.ObjectID, effective time.Time) bson.M {
	set := change.Set()
	set[models.FieldLastTransactionID] = txID.Hex()
	set[models.FieldLastPaymentDate] = effective
	return set
}
