package interfaces

import (
	"context"

	"coop-ledger/internal/pkg/store/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MembersStoreInterface interface {
	FindByID(ctx context.Context, id string) (bson.M, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.M, error)
	Query(ctx context.Context, field, op string, value interface{}, opts ...*options.FindOptions) ([]bson.M, error)
	UpdateRaw(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, filter interface{}) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}) (int64, error)
	Watch(ctx context.Context, pipeline interface{}) (*mongo.ChangeStream, error)
}

// ChangeFeed is the part of a change stream the snapshot subscription reads.
type ChangeFeed interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// SnapshotSource is a collection the snapshot subscription can watch.
type SnapshotSource interface {
	ListRaw(ctx context.Context, filter bson.M) ([]bson.M, error)
	WatchChanges(ctx context.Context) (ChangeFeed, error)
}

type MemberRepository interface {
	Create(ctx context.Context, document bson.M) (string, error)
	GetByID(ctx context.Context, id string) (models.Member, error)
	FindByMemberNumber(ctx context.Context, memberNumber string) ([]models.Member, error)
	Update(ctx context.Context, id string, set bson.M) error
	ApplyLedgerChange(ctx context.Context, id string, expectedVersion int64, set bson.M) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	SnapshotSource
}

// MemberView is the canonical member list maintained from snapshots.
type MemberView interface {
	Members() []models.Member
	Get(id string) (models.Member, bool)
}
