package interfaces

import (
	"context"

	"coop-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LoansStoreInterface interface {
	Create(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error)
	FindByID(ctx context.Context, id string) (models.Loan, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Loan, error)
	UpdateRaw(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type LoanRepository interface {
	Create(ctx context.Context, loan models.Loan) (models.Loan, error)
	GetByID(ctx context.Context, id string) (models.Loan, error)
	List(ctx context.Context) ([]models.Loan, error)
	FindByMemberID(ctx context.Context, memberID string) ([]models.Loan, error)
	AppendPayment(ctx context.Context, id string, payment models.LoanPayment) error
	UpdateStatus(ctx context.Context, id string, status string) error
}
