package repository

import (
	"context"

	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository[T any] struct {
	collection interfaces.MongoRepositoryInterface
}

func NewMongoRepository[T any](collection interfaces.MongoRepositoryInterface) *MongoRepository[T] {
	return &MongoRepository[T]{collection: collection}
}

func (r *MongoRepository[T]) Create(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error) {
	return r.collection.InsertOne(ctx, document)
}

// FindOne reads a document by filter
func (r *MongoRepository[T]) FindOne(ctx context.Context, filter interface{}, opt *options.FindOneOptions) (T, error) {
	var result T
	if opt == nil {
		opt = options.FindOne()
	}
	if err := r.collection.FindOne(ctx, filter, opt).Decode(&result); err != nil {
		return result, err
	}
	return result, nil
}

// FindByID looks a document up by its storage id. A malformed id is looked
// up as a plain string and so yields mongo.ErrNoDocuments.
func (r *MongoRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	return r.FindOne(ctx, bson.M{"_id": models.ToObjectID(id)}, nil)
}

func (r *MongoRepository[T]) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	results := make([]T, 0)
	for cursor.Next(ctx) {
		var entity T
		if err := cursor.Decode(&entity); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Query runs a single-field comparison such as ("memberNumber", "==", "12").
func (r *MongoRepository[T]) Query(ctx context.Context, field, op string, value interface{}, opts ...*options.FindOptions) ([]T, error) {
	filter, err := BuildFilter(field, op, value)
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, filter, opts...)
}

// UpdateOne applies update as a $set
func (r *MongoRepository[T]) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (*mongo.UpdateResult, error) {
	return r.collection.UpdateOne(ctx, filter, bson.M{"$set": update})
}

// UpdateRaw passes update operators through unchanged.
func (r *MongoRepository[T]) UpdateRaw(
	ctx context.Context,
	filter interface{},
	update interface{},
	opts ...*options.UpdateOptions,
) (*mongo.UpdateResult, error) {
	return r.collection.UpdateOne(ctx, filter, update, opts...)
}

func (r *MongoRepository[T]) Delete(ctx context.Context, filter interface{}) (int64, error) {
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *MongoRepository[T]) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Aggregate runs pipeline and returns the raw result documents.
func (r *MongoRepository[T]) Aggregate(ctx context.Context, pipeline interface{}) ([]bson.M, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	results := make([]bson.M, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Watch opens a change stream on the collection.
func (r *MongoRepository[T]) Watch(ctx context.Context, pipeline interface{}) (*mongo.ChangeStream, error) {
	if pipeline == nil {
		pipeline = mongo.Pipeline{}
	}
	return r.collection.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
}
