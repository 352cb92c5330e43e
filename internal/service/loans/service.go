package loans

import (
	"context"
	"strconv"
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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultMinLoanAmount = 1000

var defaultLoanRate = decimal.RequireFromString("0.02")

type ApplyRequest struct {
	MemberID   string           `json:"memberId,omitempty"`
	FullName   string           `json:"fullName" validate:"required"`
	Email      string           `json:"email" validate:"required,email"`
	Phone      string           `json:"phone" validate:"required,phone"`
	LoanAmount *decimal.Decimal `json:"loanAmount" validate:"required,gt=0"`
}

type PaymentRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required,gt=0"`
	Date   *time.Time       `json:"date,omitempty"`
	Note   string           `json:"note,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected closed"`
}

// PaymentResult reports a recorded payment and the loan position after it.
type PaymentResult struct {
	LoanID    string             `json:"loanId"`
	Payment   models.LoanPayment `json:"payment"`
	Paid      float64            `json:"paid"`
	Remaining float64            `json:"remaining"`
}

type Service struct {
	repo      interfaces.LoanRepository
	rate      decimal.Decimal
	minAmount decimal.Decimal
	now       func() time.Time
	newID     func() string
}

func NewService(repo interfaces.LoanRepository, cfg config.LedgerConfig) *Service {
	rate := defaultLoanRate
	if cfg.LoanInterestRate != "" {
		if r, err := decimal.NewFromString(cfg.LoanInterestRate); err == nil {
			rate = r
		}
	}
	minAmount := cfg.MinLoanAmount
	if minAmount <= 0 {
		minAmount = defaultMinLoanAmount
	}
	return &Service{
		repo:      repo,
		rate:      rate,
		minAmount: decimal.NewFromInt(int64(minAmount)),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return uuid.New().String() },
	}
}

// Apply records a pending loan application. Interest is one month at the
// configured loan rate.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (models.Loan, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.MemberID = strings.TrimSpace(req.MemberID)
	if err := validation.Struct(req); err != nil {
		return models.Loan{}, err
	}
	if req.LoanAmount.LessThan(s.minAmount) {
		return models.Loan{}, apperrors.NewValidationError("loanAmount",
			"must be at least "+strconv.FormatInt(s.minAmount.IntPart(), 10))
	}

	interest := req.LoanAmount.Mul(s.rate)
	loan, err := s.repo.Create(ctx, models.Loan{
		MemberID:        req.MemberID,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		LoanAmount:      models.Amount(*req.LoanAmount),
		MonthlyInterest: models.Amount(interest),
		TotalAmount:     models.Amount(req.LoanAmount.Add(interest)),
		Status:          consts.LoanStatusPending,
		DateApplied:     s.now(),
	})
	if err != nil {
		return models.Loan{}, err
	}
	logger.CtxInfo(ctx, log_messages.LoanApplicationCreated,
		zap.String("loan_id", loan.ID.Hex()), zap.Float64("amount", loan.LoanAmount))
	return loan, nil
}

// RecordPayment appends a payment to the loan. Overpayment is accepted and
// shows up as a negative remaining amount.
func (s *Service) RecordPayment(ctx context.Context, id string, req PaymentRequest) (PaymentResult, error) {
	if err := validation.Struct(req); err != nil {
		return PaymentResult{}, err
	}
	now := s.now()
	payment := models.LoanPayment{
		PaymentID: s.newID(),
		Amount:    models.Amount(*req.Amount),
		Date:      now,
		Note:      strings.TrimSpace(req.Note),
		CreatedAt: now,
	}
	if req.Date != nil && !req.Date.IsZero() {
		payment.Date = req.Date.UTC()
	}
	if err := s.repo.AppendPayment(ctx, id, payment); err != nil {
		return PaymentResult{}, err
	}
	loan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return PaymentResult{}, err
	}
	logger.CtxInfo(ctx, log_messages.LoanPaymentRecorded,
		zap.String("loan_id", id), zap.String("payment_id", payment.PaymentID), zap.Float64("amount", payment.Amount))
	return PaymentResult{
		LoanID:    id,
		Payment:   payment,
		Paid:      loan.PaidAmount(),
		Remaining: loan.RemainingAmount(),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Loan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Loan, error) {
	return s.repo.List(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, req StatusRequest) (models.Loan, error) {
	req.Status = strings.TrimSpace(req.Status)
	if err := validation.Struct(req); err != nil {
		return models.Loan{}, err
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return models.Loan{}, err
	}
	logger.CtxInfo(ctx, log_messages.LoanStatusUpdated, zap.String("loan_id", id), zap.String("status", req.Status))
	return s.repo.GetByID(ctx, id)
}
