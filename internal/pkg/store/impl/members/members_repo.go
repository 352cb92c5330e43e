package members

import (
	"context"
	"errors"

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

var _ interfaces.MemberRepository = (*MembersRepository)(nil)

type MembersRepository struct {
	repo interfaces.MembersStoreInterface
}

func NewMembersRepository(client *mongodb.MongoClient, collection string) *MembersRepository {
	if collection == "" {
		collection = consts.MembersCollection
	}
	coll := client.Database.Collection(collection)
	repo := repository.NewMongoRepository[bson.M](coll)
	return &MembersRepository{repo: repo}
}

func NewMembersRepositoryWithInterface(repo interfaces.MembersStoreInterface) *MembersRepository {
	return &MembersRepository{repo: repo}
}

// Create inserts a new member document. createdAt and updatedAt are assigned
// by the server.
func (r *MembersRepository) Create(ctx context.Context, document bson.M) (string, error) {
	id := primitive.NewObjectID()
	fields := bson.M{}
	for k, v := range document {
		switch k {
		case models.FieldID, models.FieldCreatedAt, models.FieldUpdatedAt:
			continue
		}
		fields[k] = v
	}
	if _, ok := fields[models.FieldVersion]; !ok {
		fields[models.FieldVersion] = int64(0)
	}

	update := bson.M{
		"$setOnInsert": fields,
		"$currentDate": bson.M{models.FieldCreatedAt: true, models.FieldUpdatedAt: true},
	}
	if _, err := r.repo.UpdateRaw(ctx, bson.M{models.FieldID: id}, update, options.Update().SetUpsert(true)); err != nil {
		logger.CtxError(ctx, log_messages.ErrorCreatingMember, err)
		return "", apperrors.NewStoreError("create member", err)
	}
	logger.CtxInfo(ctx, log_messages.SuccessMemberCreation, zap.String("member_id", id.Hex()))
	return id.Hex(), nil
}

func (r *MembersRepository) GetByID(ctx context.Context, id string) (models.Member, error) {
	raw, err := r.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, apperrors.NewNotFoundError(consts.EntityMember, id)
		}
		logger.CtxError(ctx, log_messages.ErrorFetchingMember, err, zap.String("member_id", id))
		return models.Member{}, apperrors.NewStoreError("get member", err)
	}
	return models.DecodeMember(raw), nil
}

func (r *MembersRepository) FindByMemberNumber(ctx context.Context, memberNumber string) ([]models.Member, error) {
	raws, err := r.repo.Query(ctx, models.FieldMemberNumber, "==", memberNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return nil, err
		}
		logger.CtxError(ctx, log_messages.ErrorListingMembers, err)
		return nil, apperrors.NewStoreError("find members by number", err)
	}
	result := make([]models.Member, 0, len(raws))
	for _, raw := range raws {
		result = append(result, models.DecodeMember(raw))
	}
	return result, nil
}

// ListRaw returns the matching member documents untouched, ordered by _id.
// A nil filter matches every member.
func (r *MembersRepository) ListRaw(ctx context.Context, filter bson.M) ([]bson.M, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().SetSort(bson.D{{Key: models.FieldID, Value: 1}})
	raws, err := r.repo.Find(ctx, filter, opts)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorListingMembers, err)
		return nil, apperrors.NewStoreError("list members", err)
	}
	return raws, nil
}

// Update sets the given fields, refreshes updatedAt and bumps the version so
// an in-flight ledger change read before the edit fails its version check.
func (r *MembersRepository) Update(ctx context.Context, id string, set bson.M) error {
	fields := bson.M{}
	for k, v := range set {
		if k == models.FieldID || k == models.FieldUpdatedAt || k == models.FieldCreatedAt || k == models.FieldVersion {
			continue
		}
		fields[k] = v
	}
	update := bson.M{
		"$inc":         bson.M{models.FieldVersion: int64(1)},
		"$currentDate": bson.M{models.FieldUpdatedAt: true},
	}
	if len(fields) > 0 {
		update["$set"] = fields
	}

	result, err := r.repo.UpdateRaw(ctx, bson.M{models.FieldID: models.ToObjectID(id)}, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingMember, err, zap.String("member_id", id))
		return apperrors.NewStoreError("update member", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.NewNotFoundError(consts.EntityMember, id)
	}
	return nil
}

// ApplyLedgerChange writes set only if the member is still at expectedVersion,
// bumping the version. It reports false when another writer got there first.
func (r *MembersRepository) ApplyLedgerChange(ctx context.Context, id string, expectedVersion int64, set bson.M) (bool, error) {
	filter := bson.M{models.FieldID: models.ToObjectID(id)}
	if expectedVersion == 0 {
		filter["$or"] = bson.A{
			bson.M{models.FieldVersion: int64(0)},
			bson.M{models.FieldVersion: bson.M{"$exists": false}},
		}
	} else {
		filter[models.FieldVersion] = expectedVersion
	}
	update := bson.M{
		"$set":         set,
		"$inc":         bson.M{models.FieldVersion: int64(1)},
		"$currentDate": bson.M{models.FieldUpdatedAt: true},
	}

	result, err := r.repo.UpdateRaw(ctx, filter, update)
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorUpdatingMember, err,
			zap.String("member_id", id), zap.Int64("expected_version", expectedVersion))
		return false, apperrors.NewStoreError("apply ledger change", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *MembersRepository) Delete(ctx context.Context, id string) error {
	deleted, err := r.repo.Delete(ctx, bson.M{models.FieldID: models.ToObjectID(id)})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorDeletingMember, err, zap.String("member_id", id))
		return apperrors.NewStoreError("delete member", err)
	}
	if deleted == 0 {
		return apperrors.NewNotFoundError(consts.EntityMember, id)
	}
	return nil
}

func (r *MembersRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make(bson.A, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, models.ToObjectID(id))
	}
	deleted, err := r.repo.DeleteMany(ctx, bson.M{models.FieldID: bson.M{"$in": keys}})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorDeletingMember, err, zap.Int("count", len(ids)))
		return 0, apperrors.NewStoreError("delete members", err)
	}
	return deleted, nil
}

// WatchChanges opens a change stream over the members collection.
func (r *MembersRepository) WatchChanges(ctx context.Context) (interfaces.ChangeFeed, error) {
	stream, err := r.repo.Watch(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStoreError("watch members", err)
	}
	return stream, nil
}
