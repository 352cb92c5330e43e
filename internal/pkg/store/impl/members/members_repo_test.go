package members

import (
	"context"
	"errors"
	"testing"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/store/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mock implementation of MembersStoreInterface for testing
type mockMembersStore struct {
	findByIDFunc   func(ctx context.Context, id string) (bson.M, error)
	findFunc       func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.M, error)
	queryFunc      func(ctx context.Context, field, op string, value interface{}, opts ...*options.FindOptions) ([]bson.M, error)
	updateRawFunc  func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	deleteFunc     func(ctx context.Context, filter interface{}) (int64, error)
	deleteManyFunc func(ctx context.Context, filter interface{}) (int64, error)
	watchFunc      func(ctx context.Context, pipeline interface{}) (*mongo.ChangeStream, error)
}

func (m *mockMembersStore) FindByID(ctx context.Context, id string) (bson.M, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("mock findByID not implemented")
}

func (m *mockMembersStore) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.M, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, opts...)
	}
	return nil, errors.New("mock find not implemented")
}

func (m *mockMembersStore) Query(ctx context.Context, field, op string, value interface{}, opts ...*options.FindOptions) ([]bson.M, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, field, op, value, opts...)
	}
	return nil, errors.New("mock query not implemented")
}

func (m *mockMembersStore) UpdateRaw(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if m.updateRawFunc != nil {
		return m.updateRawFunc(ctx, filter, update, opts...)
	}
	return nil, errors.New("mock updateRaw not implemented")
}

func (m *mockMembersStore) Delete(ctx context.Context, filter interface{}) (int64, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, filter)
	}
	return 0, errors.New("mock delete not implemented")
}

func (m *mockMembersStore) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	if m.deleteManyFunc != nil {
		return m.deleteManyFunc(ctx, filter)
	}
	return 0, errors.New("mock deleteMany not implemented")
}

func (m *mockMembersStore) Watch(ctx context.Context, pipeline interface{}) (*mongo.ChangeStream, error) {
	if m.watchFunc != nil {
		return m.watchFunc(ctx, pipeline)
	}
	return nil, errors.New("mock watch not implemented")
}

func TestNewMembersRepositoryWithInterface(t *testing.T) {
	mockRepo := &mockMembersStore{}
	repo := NewMembersRepositoryWithInterface(mockRepo)
	require.NotNil(t, repo)
	assert.Equal(t, mockRepo, repo.repo)
}

func TestMembersRepositoryCreate(t *testing.T) {
	var gotFilter bson.M
	var gotUpdate bson.M
	var gotOpts []*options.UpdateOptions
	mockRepo := &mockMembersStore{
		updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			gotFilter = filter.(bson.M)
			gotUpdate = update.(bson.M)
			gotOpts = opts
			return &mongo.UpdateResult{UpsertedCount: 1}, nil
		},
	}
	repo := NewMembersRepositoryWithInterface(mockRepo)

	id, err := repo.Create(context.Background(), bson.M{
		models.FieldName:      "Asha",
		models.FieldCreatedAt: time.Now(),
		models.FieldID:        "client-supplied",
	})

	require.NoError(t, err)
	assert.True(t, primitive.IsValidObjectID(id))
	assert.Equal(t, id, gotFilter[models.FieldID].(primitive.ObjectID).Hex())

	inserted := gotUpdate["$setOnInsert"].(bson.M)
	assert.Equal(t, "Asha", inserted[models.FieldName])
	assert.Equal(t, int64(0), inserted[models.FieldVersion])
	assert.NotContains(t, inserted, models.FieldCreatedAt)
	assert.NotContains(t, inserted, models.FieldID)
	assert.Equal(t, bson.M{models.FieldCreatedAt: true, models.FieldUpdatedAt: true}, gotUpdate["$currentDate"])

	require.Len(t, gotOpts, 1)
	require.NotNil(t, gotOpts[0].Upsert)
	assert.True(t, *gotOpts[0].Upsert)
}

func TestMembersRepositoryCreateError(t *testing.T) {
	mockRepo := &mockMembersStore{
		updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
			return nil, errors.New("write failed")
		},
	}
	repo := NewMembersRepositoryWithInterface(mockRepo)

	_, err := repo.Create(context.Background(), bson.M{models.FieldName: "Asha"})

	assert.ErrorIs(t, err, apperrors.ErrStore)
}

func TestMembersRepositoryGetByID(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("decodes document", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			findByIDFunc: func(ctx context.Context, got string) (bson.M, error) {
				assert.Equal(t, id.Hex(), got)
				return bson.M{models.FieldID: id, models.FieldBalance: "150.5", models.FieldMemberNumber: 7}, nil
			},
		}
		member, err := NewMembersRepositoryWithInterface(mockRepo).GetByID(context.Background(), id.Hex())

		require.NoError(t, err)
		assert.Equal(t, id.Hex(), member.ID)
		assert.Equal(t, 150.5, member.Balance)
		assert.Equal(t, "7", member.MemberNumber)
	})

	t.Run("missing document", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			findByIDFunc: func(ctx context.Context, got string) (bson.M, error) {
				return nil, mongo.ErrNoDocuments
			},
		}
		_, err := NewMembersRepositoryWithInterface(mockRepo).GetByID(context.Background(), id.Hex())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			findByIDFunc: func(ctx context.Context, got string) (bson.M, error) {
				return nil, errors.New("socket closed")
			},
		}
		_, err := NewMembersRepositoryWithInterface(mockRepo).GetByID(context.Background(), id.Hex())
		assert.ErrorIs(t, err, apperrors.ErrStore)
	})
}

func TestMembersRepositoryFindByMemberNumber(t *testing.T) {
	mockRepo := &mockMembersStore{
		queryFunc: func(ctx context.Context, field, op string, value interface{}, opts ...*options.FindOptions) ([]bson.M, error) {
			assert.Equal(t, models.FieldMemberNumber, field)
			assert.Equal(t, "==", op)
			assert.Equal(t, "12", value)
			return []bson.M{{models.FieldID: primitive.NewObjectID(), models.FieldMemberNumber: "12"}}, nil
		},
	}

	found, err := NewMembersRepositoryWithInterface(mockRepo).FindByMemberNumber(context.Background(), "12")

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "12", found[0].MemberNumber)
}

func TestMembersRepositoryListRaw(t *testing.T) {
	docs := []bson.M{{models.FieldID: primitive.NewObjectID()}, {models.FieldID: primitive.NewObjectID()}}
	mockRepo := &mockMembersStore{
		findFunc: func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.M, error) {
			assert.Equal(t, bson.M{}, filter)
			require.Len(t, opts, 1)
			assert.Equal(t, bson.D{{Key: models.FieldID, Value: 1}}, opts[0].Sort)
			return docs, nil
		},
	}

	got, err := NewMembersRepositoryWithInterface(mockRepo).ListRaw(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, docs, got)
}

func TestMembersRepositoryListRawError(t *testing.T) {
	mockRepo := &mockMembersStore{
		findFunc: func(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]bson.M, error) {
			return nil, errors.New("cursor failed")
		},
	}
	_, err := NewMembersRepositoryWithInterface(mockRepo).ListRaw(context.Background(), bson.M{models.FieldMemberNumber: "1"})
	assert.ErrorIs(t, err, apperrors.ErrStore)
}

func TestMembersRepositoryUpdate(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("sets fields, refreshes updatedAt and bumps version", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
				assert.Equal(t, bson.M{models.FieldID: id}, filter)
				u := update.(bson.M)
				assert.Equal(t, bson.M{models.FieldAddress: "Pune"}, u["$set"])
				assert.Equal(t, bson.M{models.FieldUpdatedAt: true}, u["$currentDate"])
				assert.Equal(t, bson.M{models.FieldVersion: int64(1)}, u["$inc"])
				return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
			},
		}
		err := NewMembersRepositoryWithInterface(mockRepo).Update(context.Background(), id.Hex(),
			bson.M{models.FieldAddress: "Pune", models.FieldUpdatedAt: time.Now(), models.FieldVersion: int64(9)})
		assert.NoError(t, err)
	})

	t.Run("balance edit still bumps version without other fields", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
				u := update.(bson.M)
				assert.Equal(t, bson.M{models.FieldBalance: 500.0}, u["$set"])
				assert.Equal(t, bson.M{models.FieldVersion: int64(1)}, u["$inc"])
				return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
			},
		}
		err := NewMembersRepositoryWithInterface(mockRepo).Update(context.Background(), id.Hex(),
			bson.M{models.FieldBalance: 500.0})
		assert.NoError(t, err)
	})

	t.Run("no match", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
				return &mongo.UpdateResult{}, nil
			},
		}
		err := NewMembersRepositoryWithInterface(mockRepo).Update(context.Background(), id.Hex(), bson.M{models.FieldAddress: "Pune"})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestMembersRepositoryApplyLedgerChange(t *testing.T) {
	id := primitive.NewObjectID()

	t.Run("matches expected version", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
				f := filter.(bson.M)
				assert.Equal(t, id, f[models.FieldID])
				assert.Equal(t, int64(3), f[models.FieldVersion])
				u := update.(bson.M)
				assert.Equal(t, bson.M{models.FieldVersion: int64(1)}, u["$inc"])
				assert.Equal(t, bson.M{models.FieldBalance: 200.0}, u["$set"])
				return &mongo.UpdateResult{MatchedCount: 1}, nil
			},
		}
		ok, err := NewMembersRepositoryWithInterface(mockRepo).ApplyLedgerChange(context.Background(), id.Hex(), 3,
			bson.M{models.FieldBalance: 200.0})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("version zero also matches unversioned documents", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
				f := filter.(bson.M)
				assert.NotContains(t, f, models.FieldVersion)
				assert.Len(t, f["$or"], 2)
				return &mongo.UpdateResult{}, nil
			},
		}
		ok, err := NewMembersRepositoryWithInterface(mockRepo).ApplyLedgerChange(context.Background(), id.Hex(), 0,
			bson.M{models.FieldBalance: 10.0})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("store failure", func(t *testing.T) {
		mockRepo := &mockMembersStore{
			updateRawFunc: func(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
				return nil, errors.New("timeout")
			},
		}
		_, err := NewMembersRepositoryWithInterface(mockRepo).ApplyLedgerChange(context.Background(), id.Hex(), 1, bson.M{})
		assert.ErrorIs(t, err, apperrors.ErrStore)
	})
}

func TestMembersRepositoryDelete(t *testing.T) {
	id := primitive.NewObjectID()
	deleted := int64(1)
	mockRepo := &mockMembersStore{
		deleteFunc: func(ctx context.Context, filter interface{}) (int64, error) {
			assert.Equal(t, bson.M{models.FieldID: id}, filter)
			return deleted, nil
		},
	}
	repo := NewMembersRepositoryWithInterface(mockRepo)

	assert.NoError(t, repo.Delete(context.Background(), id.Hex()))

	deleted = 0
	assert.ErrorIs(t, repo.Delete(context.Background(), id.Hex()), apperrors.ErrNotFound)
}

func TestMembersRepositoryDeleteMany(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	mockRepo := &mockMembersStore{
		deleteManyFunc: func(ctx context.Context, filter interface{}) (int64, error) {
			in := filter.(bson.M)[models.FieldID].(bson.M)["$in"].(bson.A)
			assert.Equal(t, bson.A{a, b}, in)
			return 2, nil
		},
	}
	repo := NewMembersRepositoryWithInterface(mockRepo)

	n, err := repo.DeleteMany(context.Background(), []string{a.Hex(), b.Hex()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMembersRepositoryWatchChangesError(t *testing.T) {
	mockRepo := &mockMembersStore{
		watchFunc: func(ctx context.Context, pipeline interface{}) (*mongo.ChangeStream, error) {
			return nil, errors.New("change streams need a replica set")
		},
	}
	feed, err := NewMembersRepositoryWithInterface(mockRepo).WatchChanges(context.Background())
	assert.Nil(t, feed)
	assert.ErrorIs(t, err, apperrors.ErrStore)
}
