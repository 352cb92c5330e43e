package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// RunInTransaction runs fn inside a multi-document transaction when the
// deployment was configured for it, otherwise it runs fn directly.
// WithTransaction may invoke fn more than once on transient errors.
func (m *MongoClient) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m == nil || !m.UseTransactions || m.Client == nil {
		return fn(ctx)
	}

	session, err := m.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// TransactionsEnabled reports whether RunInTransaction is atomic.
func (m *MongoClient) TransactionsEnabled() bool {
	return m != nil && m.UseTransactions && m.Client != nil
}
