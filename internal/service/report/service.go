package report

import (
	"bytes"
	"context"
	"io"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/service/interfaces"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	members      interfaces.MemberView
	transactions interfaces.TransactionRepository
	uploader     interfaces.ReportUploader
	rate         decimal.Decimal
	now          func() time.Time
}

// NewService builds the report service. uploader may be nil, which disables
// Export.
func NewService(
	members interfaces.MemberView,
	transactions interfaces.TransactionRepository,
	uploader interfaces.ReportUploader,
	rate decimal.Decimal,
) *Service {
	return &Service{
		members:      members,
		transactions: transactions,
		uploader:     uploader,
		rate:         rate,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Summary aggregates the canonical member view and adds applied payment
// totals per payment type.
func (s *Service) Summary(ctx context.Context) (Report, error) {
	r := Aggregate(s.members.Members(), s.rate, s.now())
	totals, err := s.transactions.TotalsByPaymentType(ctx)
	if err != nil {
		return Report{}, err
	}
	r.PaymentTotals = totals
	return r, nil
}

func (s *Service) MembersCSV(ctx context.Context, w io.Writer) error {
	r := Aggregate(s.members.Members(), s.rate, s.now())
	if err := WriteCSV(w, r); err != nil {
		logger.CtxError(ctx, log_messages.ErrorWritingReport, err)
		return err
	}
	return nil
}

func (s *Service) TransactionsCSV(ctx context.Context, w io.Writer) error {
	txs, err := s.transactions.ListAll(ctx)
	if err != nil {
		return err
	}
	history := make(map[string][]models.Transaction)
	for _, tx := range txs {
		if tx.Status != consts.TransactionStatusApplied {
			continue
		}
		history[tx.MemberID] = append(history[tx.MemberID], tx)
	}
	if err := WriteTransactionHistoryCSV(w, s.members.Members(), history); err != nil {
		logger.CtxError(ctx, log_messages.ErrorWritingReport, err)
		return err
	}
	return nil
}

// Export renders the member report and uploads it. It returns the stored
// object name.
func (s *Service) Export(ctx context.Context) (string, error) {
	if s.uploader == nil {
		return "", &apperrors.UnavailableError{Feature: "report export"}
	}
	now := s.now()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Aggregate(s.members.Members(), s.rate, now)); err != nil {
		logger.CtxError(ctx, log_messages.ErrorWritingReport, err)
		return "", err
	}
	name, err := s.uploader.UploadReport(ctx, FileName(now), buf.Bytes(), consts.ReportContentType)
	if err != nil {
		return "", apperrors.NewStoreError("upload report", err)
	}
	logger.CtxInfo(ctx, log_messages.UploadedToGCSBucket, zap.String("object", name))
	return name, nil
}
