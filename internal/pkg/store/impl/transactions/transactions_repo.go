package transactions

import (
	"context"

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

var _ interfaces.TransactionRepository = (*TransactionsRepository)(nil)

type TransactionsRepository struct {
	repo interfaces.TransactionsStoreInterface
}

func NewTransactionsRepository(client *mongodb.MongoClient, collection string) *TransactionsRepository {
	if collection == "" {
		collection = consts.TransactionsCollection
	}
	coll := client.Database.Collection(collection)
	repo := repository.NewMongoRepository[models.Transaction](coll)
	return &TransactionsRepository{repo: repo}
}

func NewTransactionsRepositoryWithInterface(repo interfaces.TransactionsStoreInterface) *TransactionsRepository {
	return &TransactionsRepository{repo: repo}
}

// Create stores tx, assigning an id when it has none.
func (r *TransactionsRepository) Create(ctx context.Context, tx models.Transaction) (primitive.ObjectID, error) {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	if _, err := r.repo.Create(ctx, tx); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingTransaction, err, zap.String("member_id", tx.MemberID))
		return primitive.NilObjectID, apperrors.NewStoreError("create transaction", err)
	}
	logger.CtxDebug(ctx, log_messages.SuccessTransactionCreation,
		zap.String("transaction_id", tx.ID.Hex()), zap.String("status", tx.Status))
	return tx.ID, nil
}

// FindByMemberID returns the member's transactions, newest first.
func (r *TransactionsRepository) FindByMemberID(ctx context.Context, memberID string) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: models.FieldTxTimestamp, Value: -1}})
	txs, err := r.repo.Find(ctx, bson.M{models.FieldTxMemberID: memberID}, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingTransactions, err, zap.String("member_id", memberID))
		return nil, apperrors.NewStoreError("find member transactions", err)
	}
	return txs, nil
}

// FindByStatus returns transactions in the given status, oldest first.
func (r *TransactionsRepository) FindByStatus(ctx context.Context, status string) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: models.FieldTxTimestamp, Value: 1}})
	txs, err := r.repo.Find(ctx, bson.M{models.FieldTxStatus: status}, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingTransactions, err, zap.String("status", status))
		return nil, apperrors.NewStoreError("find transactions by status", err)
	}
	return txs, nil
}

func (r *TransactionsRepository) MarkStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	result, err := r.repo.UpdateOne(ctx, bson.M{models.FieldID: id}, bson.M{models.FieldTxStatus: status})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingTransaction, err,
			zap.String("transaction_id", id.Hex()), zap.String("status", status))
		return apperrors.NewStoreError("mark transaction "+status, err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NewNotFoundError(consts.EntityTransaction, id.Hex())
	}
	return nil
}

func (r *TransactionsRepository) ListAll(ctx context.Context) ([]models.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: models.FieldTxTimestamp, Value: -1}})
	txs, err := r.repo.Find(ctx, bson.M{}, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingTransactions, err)
		return nil, apperrors.NewStoreError("list transactions", err)
	}
	return txs, nil
}

// TotalsByPaymentType sums applied transaction amounts per payment type.
func (r *TransactionsRepository) TotalsByPaymentType(ctx context.Context) (map[string]float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{models.FieldTxStatus: consts.TransactionStatusApplied}}},
		{{Key: "$group", Value: bson.M{"_id": "$paymentType", "total": bson.M{"$sum": "$amount"}}}},
	}
	rows, err := r.repo.Aggregate(ctx, pipeline)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorFetchingTransactions, err)
		return nil, apperrors.NewStoreError("aggregate transactions", err)
	}
	totals := make(map[string]float64, len(rows))
	for _, row := range rows {
		totals[models.CoerceString(row["_id"])] = models.CoerceNumber(row["total"])
	}
	return totals, nil
}
