package interfaces

import (
	"context"

	"coop-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TransactionsStoreInterface interface {
	Create(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Transaction, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error)
	Aggregate(ctx context.Context, pipeline interface{}) ([]bson.M, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx models.Transaction) (primitive.ObjectID, error)
	FindByMemberID(ctx context.Context, memberID string) ([]models.Transaction, error)
	FindByStatus(ctx context.Context, status string) ([]models.Transaction, error)
	MarkStatus(ctx context.Context, id primitive.ObjectID, status string) error
	ListAll(ctx context.Context) ([]models.Transaction, error)
	TotalsByPaymentType(ctx context.Context) (map[string]float64, error)
}

// TransactionRunner groups store writes into one unit where the deployment allows it.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	TransactionsEnabled() bool
}
