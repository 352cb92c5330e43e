package members

import (
	"context"
	"errors"
	"strings"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/pkg/validation"
	"coop-ledger/internal/service/interfaces"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const defaultInterestRate = "2"

const (
	OutcomeDeleted  = "deleted"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// RegisterRequest is the registration form. Ledger amounts accept JSON
// numbers or numeric strings.
type RegisterRequest struct {
	MemberNumber    string           `json:"memberNumber" validate:"required"`
	Name            string           `json:"name" validate:"required"`
	LoanAmount      *decimal.Decimal `json:"loanAmount" validate:"required,gt=0"`
	Interest        *decimal.Decimal `json:"interest,omitempty" validate:"omitnil,gte=0"`
	Installment     *decimal.Decimal `json:"installment,omitempty" validate:"omitnil,gte=0"`
	InitialDeposit  *decimal.Decimal `json:"initialDeposit,omitempty" validate:"omitnil,gte=0"`
	MonthlySaving   *decimal.Decimal `json:"monthlySaving,omitempty" validate:"omitnil,gte=0"`
	Address         string           `json:"address,omitempty"`
	PhoneNumber     string           `json:"phoneNumber,omitempty" validate:"omitempty,phone"`
	AadharNumber    string           `json:"aadharNumber,omitempty" validate:"omitempty,aadhar"`
	PanNumber       string           `json:"panNumber,omitempty" validate:"omitempty,pan"`
	NomineeName     string           `json:"nomineeName,omitempty"`
	NomineeRelation string           `json:"nomineeRelation,omitempty"`
	NomineePhone    string           `json:"nomineePhone,omitempty" validate:"omitempty,phone"`
	InterestRate    string           `json:"interestRate,omitempty" validate:"omitempty,numeric"`
	JoiningDate     *time.Time       `json:"joiningDate,omitempty"`
}

// UpdateRequest is a partial update; nil fields are left untouched. Ledger
// amounts set here are administrative corrections and produce no
// transaction record.
type UpdateRequest struct {
	MemberNumber    *string          `json:"memberNumber,omitempty" validate:"omitnil,min=1"`
	Name            *string          `json:"name,omitempty" validate:"omitnil,min=1"`
	LoanAmount      *decimal.Decimal `json:"loanAmount,omitempty" validate:"omitnil,gte=0"`
	Interest        *decimal.Decimal `json:"interest,omitempty" validate:"omitnil,gte=0"`
	Installment     *decimal.Decimal `json:"installment,omitempty" validate:"omitnil,gte=0"`
	Balance         *decimal.Decimal `json:"balance,omitempty" validate:"omitnil,gte=0"`
	InitialDeposit  *decimal.Decimal `json:"initialDeposit,omitempty" validate:"omitnil,gte=0"`
	MonthlySaving   *decimal.Decimal `json:"monthlySaving,omitempty" validate:"omitnil,gte=0"`
	Address         *string          `json:"address,omitempty"`
	PhoneNumber     *string          `json:"phoneNumber,omitempty" validate:"omitnil,phone"`
	AadharNumber    *string          `json:"aadharNumber,omitempty" validate:"omitnil,aadhar"`
	PanNumber       *string          `json:"panNumber,omitempty" validate:"omitnil,pan"`
	NomineeName     *string          `json:"nomineeName,omitempty"`
	NomineeRelation *string          `json:"nomineeRelation,omitempty"`
	NomineePhone    *string          `json:"nomineePhone,omitempty" validate:"omitnil,phone"`
	InterestRate    *string          `json:"interestRate,omitempty" validate:"omitnil,numeric"`
	JoiningDate     *time.Time       `json:"joiningDate,omitempty"`
}

type DeleteOutcome struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Service struct {
	repo         interfaces.MemberRepository
	view         interfaces.MemberView
	transactions interfaces.TransactionRepository
	loans        interfaces.LoanRepository
	interestRate string
}

func NewService(
	repo interfaces.MemberRepository,
	view interfaces.MemberView,
	transactions interfaces.TransactionRepository,
	loans interfaces.LoanRepository,
	cfg config.LedgerConfig,
) *Service {
	rate := cfg.DefaultInterestRate
	if rate == "" {
		rate = defaultInterestRate
	}
	return &Service{
		repo:         repo,
		view:         view,
		transactions: transactions,
		loans:        loans,
		interestRate: rate,
	}
}

// Register validates req and creates the member. Every check, including
// member number uniqueness, runs before the first write.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (models.Member, error) {
	req.trim()
	if err := validation.Struct(req); err != nil {
		logger.CtxWarn(ctx, log_messages.MemberRegistrationRejected, zap.Error(err))
		return models.Member{}, err
	}
	if err := s.ensureUniqueNumber(ctx, req.MemberNumber, ""); err != nil {
		logger.CtxWarn(ctx, log_messages.MemberRegistrationRejected,
			zap.String("member_number", req.MemberNumber), zap.Error(err))
		return models.Member{}, err
	}

	doc := req.document(s.interestRate)
	id, err := s.repo.Create(ctx, doc)
	if err != nil {
		return models.Member{}, err
	}
	logger.CtxInfo(ctx, log_messages.MemberRegistered,
		zap.String("member_id", id), zap.String("member_number", req.MemberNumber))
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (models.Member, error) {
	req.trim()
	if err := validation.Struct(req); err != nil {
		return models.Member{}, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Member{}, err
	}
	if req.MemberNumber != nil && *req.MemberNumber != current.MemberNumber {
		if err := s.ensureUniqueNumber(ctx, *req.MemberNumber, id); err != nil {
			return models.Member{}, err
		}
	}

	set := req.set()
	if len(set) == 0 {
		return current, nil
	}
	if err := s.repo.Update(ctx, id, set); err != nil {
		return models.Member{}, err
	}
	logger.CtxInfo(ctx, log_messages.MemberUpdated, zap.String("member_id", id), zap.Int("fields", len(set)))
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.CtxInfo(ctx, log_messages.MemberDeleted, zap.String("member_id", id))
	return nil
}

// BulkDelete removes every listed member that exists in one write and
// reports an outcome per id.
func (s *Service) BulkDelete(ctx context.Context, ids []string) ([]DeleteOutcome, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("ids", "must contain at least 1 item(s)")
	}

	outcomes := make([]DeleteOutcome, 0, len(ids))
	existing := make([]string, 0, len(ids))
	pending := make([]int, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}

		_, err := s.repo.GetByID(ctx, id)
		switch {
		case err == nil:
			existing = append(existing, id)
			pending = append(pending, len(outcomes))
			outcomes = append(outcomes, DeleteOutcome{ID: id, Status: OutcomeDeleted})
		case errors.Is(err, apperrors.ErrNotFound):
			outcomes = append(outcomes, DeleteOutcome{ID: id, Status: OutcomeNotFound})
		default:
			outcomes = append(outcomes, DeleteOutcome{ID: id, Status: OutcomeFailed, Error: err.Error()})
		}
	}
	if len(existing) == 0 {
		return outcomes, nil
	}

	deleted, err := s.repo.DeleteMany(ctx, existing)
	if err != nil {
		for _, i := range pending {
			outcomes[i].Status = OutcomeFailed
			outcomes[i].Error = err.Error()
		}
		return outcomes, nil
	}
	if deleted != int64(len(existing)) {
		logger.CtxWarn(ctx, log_messages.MemberDeleted,
			zap.Int("expected", len(existing)), zap.Int64("deleted", deleted))
	} else {
		logger.CtxInfo(ctx, log_messages.MemberDeleted, zap.Int64("deleted", deleted))
	}
	return outcomes, nil
}

// List returns the canonical member view.
func (s *Service) List() []models.Member {
	return s.view.Members()
}

func (s *Service) Get(ctx context.Context, id string) (models.Member, error) {
	if m, ok := s.view.Get(id); ok {
		return m, nil
	}
	return s.repo.GetByID(ctx, id)
}

// Transactions returns the member's transaction history, newest first.
func (s *Service) Transactions(ctx context.Context, id string) ([]models.Transaction, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.transactions.FindByMemberID(ctx, id)
}

func (s *Service) Loans(ctx context.Context, id string) ([]models.Loan, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.loans.FindByMemberID(ctx, id)
}

func (s *Service) ensureUniqueNumber(ctx context.Context, memberNumber, selfID string) error {
	matches, err := s.repo.FindByMemberNumber(ctx, memberNumber)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.ID != selfID {
			return apperrors.NewValidationError(models.FieldMemberNumber, "is already registered")
		}
	}
	return nil
}

func (r *RegisterRequest) trim() {
	for _, f := range []*string{
		&r.MemberNumber, &r.Name, &r.Address, &r.PhoneNumber, &r.AadharNumber, &r.PanNumber,
		&r.NomineeName, &r.NomineeRelation, &r.NomineePhone, &r.InterestRate,
	} {
		*f = strings.TrimSpace(*f)
	}
}

func (r RegisterRequest) document(defaultRate string) bson.M {
	rate := r.InterestRate
	if rate == "" {
		rate = defaultRate
	}
	loan := models.Amount(*r.LoanAmount)
	doc := bson.M{
		models.FieldMemberNumber:    r.MemberNumber,
		models.FieldName:            r.Name,
		models.FieldLoanAmount:      loan,
		models.FieldBalance:         loan,
		models.FieldInterest:        optionalAmount(r.Interest),
		models.FieldInstallment:     optionalAmount(r.Installment),
		models.FieldInitialDeposit:  optionalAmount(r.InitialDeposit),
		models.FieldMonthlySaving:   optionalAmount(r.MonthlySaving),
		models.FieldAddress:         r.Address,
		models.FieldPhoneNumber:     r.PhoneNumber,
		models.FieldAadharNumber:    r.AadharNumber,
		models.FieldPanNumber:       r.PanNumber,
		models.FieldNomineeName:     r.NomineeName,
		models.FieldNomineeRelation: r.NomineeRelation,
		models.FieldNomineePhone:    r.NomineePhone,
		models.FieldInterestRate:    rate,
	}
	if r.JoiningDate != nil && !r.JoiningDate.IsZero() {
		doc[models.FieldJoiningDate] = r.JoiningDate.UTC()
	}
	return doc
}

func (r *UpdateRequest) trim() {
	for _, f := range []*string{
		r.MemberNumber, r.Name, r.Address, r.PhoneNumber, r.AadharNumber, r.PanNumber,
		r.NomineeName, r.NomineeRelation, r.NomineePhone, r.InterestRate,
	} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

func (r UpdateRequest) set() bson.M {
	set := bson.M{}
	strs := map[string]*string{
		models.FieldMemberNumber:    r.MemberNumber,
		models.FieldName:            r.Name,
		models.FieldAddress:         r.Address,
		models.FieldPhoneNumber:     r.PhoneNumber,
		models.FieldAadharNumber:    r.AadharNumber,
		models.FieldPanNumber:       r.PanNumber,
		models.FieldNomineeName:     r.NomineeName,
		models.FieldNomineeRelation: r.NomineeRelation,
		models.FieldNomineePhone:    r.NomineePhone,
		models.FieldInterestRate:    r.InterestRate,
	}
	for field, v := range strs {
		if v != nil {
			set[field] = *v
		}
	}
	amounts := map[string]*decimal.Decimal{
		models.FieldLoanAmount:     r.LoanAmount,
		models.FieldInterest:       r.Interest,
		models.FieldInstallment:    r.Installment,
		models.FieldBalance:        r.Balance,
		models.FieldInitialDeposit: r.InitialDeposit,
		models.FieldMonthlySaving:  r.MonthlySaving,
	}
	for field, v := range amounts {
		if v != nil {
			set[field] = models.Amount(*v)
		}
	}
	if r.JoiningDate != nil && !r.JoiningDate.IsZero() {
		set[models.FieldJoiningDate] = r.JoiningDate.UTC()
	}
	return set
}

func optionalAmount(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	return models.Amount(*d)
}
