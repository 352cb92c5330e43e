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

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) Register(ctx context.Context, req members.RegisterRequest) (models.Member, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Member), args.Error(1)
}

func (m *MockMemberService) Update(ctx context.Context, id string, req members.UpdateRequest) (models.Member, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(models.Member), args.Error(1)
}

func (m *MockMemberService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMemberService) BulkDelete(ctx context.Context, ids []string) ([]members.DeleteOutcome, error) {
	args := m.Called(ctx, ids)
	out, _ := args.Get(0).([]members.DeleteOutcome)
	return out, args.Error(1)
}

func (m *MockMemberService) List() []models.Member {
	return m.Called().Get(0).([]models.Member)
}

func (m *MockMemberService) Get(ctx context.Context, id string) (models.Member, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Member), args.Error(1)
}

func (m *MockMemberService) Transactions(ctx context.Context, id string) ([]models.Transaction, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]models.Transaction)
	return out, args.Error(1)
}

func (m *MockMemberService) Loans(ctx context.Context, id string) ([]models.Loan, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).([]models.Loan)
	return out, args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Process(ctx context.Context, req payment.Request) (payment.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.Result), args.Error(1)
}

func (m *MockPaymentService) Recover(ctx context.Context, grace time.Duration) (payment.RecoverySummary, error) {
	args := m.Called(ctx, grace)
	return args.Get(0).(payment.RecoverySummary), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Summary(ctx context.Context) (report.Report, error) {
	args := m.Called(ctx)
	return args.Get(0).(report.Report), args.Error(1)
}

func (m *MockReportService) MembersCSV(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if s, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, s)
	}
	return args.Error(1)
}

func (m *MockReportService) TransactionsCSV(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if s, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, s)
	}
	return args.Error(1)
}

func (m *MockReportService) Export(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Apply(ctx context.Context, req loans.ApplyRequest) (models.Loan, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Loan), args.Error(1)
}

func (m *MockLoanService) RecordPayment(ctx context.Context, id string, req loans.PaymentRequest) (loans.PaymentResult, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(loans.PaymentResult), args.Error(1)
}

func (m *MockLoanService) Get(ctx context.Context, id string) (models.Loan, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Loan), args.Error(1)
}

func (m *MockLoanService) List(ctx context.Context) ([]models.Loan, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]models.Loan)
	return out, args.Error(1)
}

func (m *MockLoanService) UpdateStatus(ctx context.Context, id string, req loans.StatusRequest) (models.Loan, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(models.Loan), args.Error(1)
}

type MockRedisStore struct {
	mock.Mock
}

func (m *MockRedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *MockRedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockRedisStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockRedisStore) Claim(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

type staticSnapshot struct {
	version uint64
	updated time.Time
}

func (s staticSnapshot) Version() uint64        { return s.version }
func (s staticSnapshot) LastUpdated() time.Time { return s.updated }
