package loans

import (
	"context"
	"errors"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/consts"
	mongodb "coop-ledger/internal/pkg/db/mongo"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/pkg/store/repository"
	"coop-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var _ interfaces.LoanRepository = (*LoansRepository)(nil)

type LoansRepository struct {
	repo interfaces.LoansStoreInterface
}

func NewLoansRepository(client *mongodb.MongoClient, collection string) *LoansRepository {
	if collection == "" {
		collection = consts.LoansCollection
	}
	coll := client.Database.Collection(collection)
	repo := repository.NewMongoRepository[models.Loan](coll)
	return &LoansRepository{repo: repo}
}

func NewLoansRepositoryWithInterface(repo interfaces.LoansStoreInterface) *LoansRepository {
	return &LoansRepository{repo: repo}
}

func (r *LoansRepository) Create(ctx context.Context, loan models.Loan) (models.Loan, error) {
	if loan.ID.IsZero() {
		loan.ID = primitive.NewObjectID()
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = time.Now().UTC()
	}
	if loan.Payments == nil {
		loan.Payments = []models.LoanPayment{}
	}
	if _, err := r.repo.Create(ctx, loan); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingLoan, err, zap.String("full_name", loan.FullName))
		return models.Loan{}, apperrors.NewStoreError("create loan", err)
	}
	return loan, nil
}

func (r *LoansRepository) GetByID(ctx context.Context, id string) (models.Loan, error) {
	loan, err := r.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Loan{}, apperrors.NewNotFoundError(consts.EntityLoan, id)
		}
		logger.CtxError(ctx, log_messages.ErrorFetchingLoan, err, zap.String("loan_id", id))
		return models.Loan{}, apperrors.NewStoreError("get loan", err)
	}
	return loan, nil
}

// List returns all loans, most recent application first.
func (r *LoansRepository) List(ctx context.Context) ([]models.Loan, error) {
	return r.find(ctx, bson.M{})
}

func (r *LoansRepository) FindByMemberID(ctx context.Context, memberID string) ([]models.Loan, error) {
	return r.find(ctx, bson.M{models.FieldLoanMemberID: memberID})
}

func (r *LoansRepository) find(ctx context.Context, filter bson.M) ([]models.Loan, error) {
	opts := options.Find().SetSort(bson.D{{Key: models.FieldLoanDateApplied, Value: -1}})
	loans, err := r.repo.Find(ctx, filter, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingLoan, err)
		return nil, apperrors.NewStoreError("list loans", err)
	}
	return loans, nil
}

func (r *LoansRepository) AppendPayment(ctx context.Context, id string, payment models.LoanPayment) error {
	update := bson.M{
		"$addToSet":    bson.M{models.FieldLoanPayments: payment},
		"$currentDate": bson.M{models.FieldUpdatedAt: true},
	}
	return r.update(ctx, id, update, log_messages.ErrorAppendingLoanPayment, "append loan payment")
}

func (r *LoansRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	update := bson.M{
		"$set":         bson.M{models.FieldLoanStatus: status},
		"$currentDate": bson.M{models.FieldUpdatedAt: true},
	}
	return r.update(ctx, id, update, log_messages.ErrorUpdatingLoan, "update loan status")
}

func (r *LoansRepository) update(ctx context.Context, id string, update bson.M, logMsg, op string) error {
	result, err := r.repo.UpdateRaw(ctx, bson.M{models.FieldID: models.ToObjectID(id)}, update)
	if err != nil {
		logger.CtxError(ctx, logMsg, err, zap.String("loan_id", id))
		return apperrors.NewStoreError(op, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NewNotFoundError(consts.EntityLoan, id)
	}
	return nil
}
