package payment

import (
	"context"
	"errors"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/store/models"

	"go.uber.org/zap"
)

// RecoverySummary counts what Recover did with each pending transaction.
type RecoverySummary struct {
	Scanned   int `json:"scanned"`
	Confirmed int `json:"confirmed"`
	Reapplied int `json:"reapplied"`
	Orphaned  int `json:"orphaned"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type recoveryOutcome int

const (
	outcomeConfirmed recoveryOutcome = iota
	outcomeReapplied
	outcomeOrphaned
)

// Recover settles transactions left pending by an interrupted payment.
// Transactions younger than grace are skipped so in-flight payments are
// not touched.
//
//   - the member already points at the transaction: it is marked applied
//   - the member is unchanged since the transaction was written: the
//     recorded values are written and it is marked applied
//   - otherwise it is marked orphaned for manual reconciliation
func (p *Processor) Recover(ctx context.Context, grace time.Duration) (RecoverySummary, error) {
	var summary RecoverySummary
	logger.CtxInfo(ctx, log_messages.RecoveryStarted, zap.Duration("grace", grace))

	pending, err := p.transactions.FindByStatus(ctx, consts.TransactionStatusPending)
	if err != nil {
		logger.CtxError(ctx, log_messages.RecoveryFailed, err)
		return summary, err
	}

	cutoff := p.now().Add(-grace)
	for _, tx := range pending {
		summary.Scanned++
		if grace > 0 && tx.Timestamp.After(cutoff) {
			summary.Skipped++
			continue
		}
		outcome, err := p.recoverOne(ctx, tx)
		if err != nil {
			summary.Failed++
			logger.CtxError(ctx, log_messages.RecoveryFailed, err, zap.String("transaction_id", tx.ID.Hex()))
			continue
		}
		switch outcome {
		case outcomeConfirmed:
			summary.Confirmed++
		case outcomeReapplied:
			summary.Reapplied++
		case outcomeOrphaned:
			summary.Orphaned++
		}
	}

	logger.CtxInfo(ctx, log_messages.RecoveryCompleted,
		zap.Int("scanned", summary.Scanned),
		zap.Int("confirmed", summary.Confirmed),
		zap.Int("reapplied", summary.Reapplied),
		zap.Int("orphaned", summary.Orphaned),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (p *Processor) recoverOne(ctx context.Context, tx models.Transaction) (recoveryOutcome, error) {
	member, err := p.members.GetByID(ctx, tx.MemberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return p.orphan(ctx, tx, err)
		}
		return 0, err
	}

	if member.LastTransactionID == tx.ID.Hex() {
		if err := p.transactions.MarkStatus(ctx, tx.ID, consts.TransactionStatusApplied); err != nil {
			return 0, err
		}
		return outcomeConfirmed, nil
	}

	unchanged := member.Version == tx.MemberVersion &&
		models.Dec(member.FieldValue(tx.Field)).Equal(models.Dec(tx.PreviousValue))
	if !unchanged {
		return p.orphan(ctx, tx, errors.New("member changed after the transaction was recorded"))
	}

	var outcome recoveryOutcome
	err = p.runner.RunInTransaction(ctx, func(ctx context.Context) error {
		applied, err := p.members.ApplyLedgerChange(ctx, tx.MemberID, tx.MemberVersion,
			ledgerSet(changeFromTransaction(tx), tx.ID, tx.PaymentDate))
		if err != nil {
			return err
		}
		if !applied {
			outcome = outcomeOrphaned
			return p.transactions.MarkStatus(ctx, tx.ID, consts.TransactionStatusOrphaned)
		}
		outcome = outcomeReapplied
		return p.transactions.MarkStatus(ctx, tx.ID, consts.TransactionStatusApplied)
	})
	if err != nil {
		return 0, err
	}
	if outcome == outcomeOrphaned {
		p.logOrphan(ctx, tx, errors.New("member changed during recovery"))
	}
	return outcome, nil
}

func (p *Processor) orphan(ctx context.Context, tx models.Transaction, cause error) (recoveryOutcome, error) {
	if err := p.transactions.MarkStatus(ctx, tx.ID, consts.TransactionStatusOrphaned); err != nil {
		return 0, err
	}
	p.logOrphan(ctx, tx, cause)
	return outcomeOrphaned, nil
}

func (p *Processor) logOrphan(ctx context.Context, tx models.Transaction, cause error) {
	perr := &apperrors.PartialConsistencyError{
		TransactionID: tx.ID.Hex(),
		MemberID:      tx.MemberID,
		Stage:         "recovery",
		Err:           cause,
	}
	logger.CtxError(ctx, log_messages.PartialConsistencyDetected, perr,
		zap.String("member_id", tx.MemberID),
		zap.String("transaction_id", tx.ID.Hex()),
		zap.String("status", consts.TransactionStatusOrphaned),
	)
}
