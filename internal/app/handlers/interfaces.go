package handlers

import (
	"context"
	"io"
	"time"

	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/service/loans"
	"coop-ledger/internal/service/members"
	"coop-ledger/internal/service/payment"
	"coop-ledger/internal/service/report"
)

type MemberService interface {
	Register(ctx context.Context, req members.RegisterRequest) (models.Member, error)
	Update(ctx context.Context, id string, req members.UpdateRequest) (models.Member, error)
	Delete(ctx context.Context, id string) error
	BulkDelete(ctx context.Context, ids []string) ([]members.DeleteOutcome, error)
	List() []models.Member
	Get(ctx context.Context, id string) (models.Member, error)
	Transactions(ctx context.Context, id string) ([]models.Transaction, error)
	Loans(ctx context.Context, id string) ([]models.Loan, error)
}

type PaymentService interface {
	Process(ctx context.Context, req payment.Request) (payment.Result, error)
	Recover(ctx context.Context, grace time.Duration) (payment.RecoverySummary, error)
}

type ReportService interface {
	Summary(ctx context.Context) (report.Report, error)
	MembersCSV(ctx context.Context, w io.Writer) error
	TransactionsCSV(ctx context.Context, w io.Writer) error
	Export(ctx context.Context) (string, error)
}

type LoanService interface {
	Apply(ctx context.Context, req loans.ApplyRequest) (models.Loan, error)
	RecordPayment(ctx context.Context, id string, req loans.PaymentRequest) (loans.PaymentResult, error)
	Get(ctx context.Context, id string) (models.Loan, error)
	List(ctx context.Context) ([]models.Loan, error)
	UpdateStatus(ctx context.Context, id string, req loans.StatusRequest) (models.Loan, error)
}

// SnapshotStatus reports the freshness of the canonical member view.
type SnapshotStatus interface {
	Version() uint64
	LastUpdated() time.Time
}
