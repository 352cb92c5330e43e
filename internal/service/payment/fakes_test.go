package payment

import (
	"context"
	"sync"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memberStore is an in-memory MemberRepository with compare-and-set
// semantics on version.
type memberStore struct {
	mu   sync.Mutex
	docs map[string]bson.M
	// beforeApply runs before each ApplyLedgerChange; returning an error fails it
	beforeApply func(id string, s *memberStore) error
	applyCalls int
}

var _ interfaces.MemberRepository = (*memberStore)(nil)

func newMemberStore() *memberStore {
	return &memberStore{docs: map[string]bson.M{}}
}

func (s *memberStore) add(doc bson.M) string {
	id := primitive.NewObjectID()
	doc[models.FieldID] = id
	s.docs[id.Hex()] = doc
	return id.Hex()
}

func (s *memberStore) member(id string) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DecodeMember(s.docs[id])
}

func (s *memberStore) bump(id string) {
	doc := s.docs[id]
	doc[models.FieldVersion] = models.CoerceInt64(doc[models.FieldVersion]) + 1
}

func (s *memberStore) Create(ctx context.Context, document bson.M) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(document), nil
}

func (s *memberStore) GetByID(ctx context.Context, id string) (models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return models.Member{}, apperrors.NewNotFoundError(consts.EntityMember, id)
	}
	return models.DecodeMember(doc), nil
}

func (s *memberStore) FindByMemberNumber(ctx context.Context, memberNumber string) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Member
	for _, doc := range s.docs {
		if models.CoerceString(doc[models.FieldMemberNumber]) == memberNumber {
			out = append(out, models.DecodeMember(doc))
		}
	}
	return out, nil
}

func (s *memberStore) ListRaw(ctx context.Context, filter bson.M) ([]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bson.M, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (s *memberStore) WatchChanges(ctx context.Context) (interfaces.ChangeFeed, error) {
	return nil, apperrors.NewStoreError("watch members", context.Canceled)
}

func (s *memberStore) Update(ctx context.Context, id string, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return apperrors.NewNotFoundError(consts.EntityMember, id)
	}
	for k, v := range set {
		doc[k] = v
	}
	doc[models.FieldVersion] = models.CoerceInt64(doc[models.FieldVersion]) + 1
	return nil
}

func (s *memberStore) ApplyLedgerChange(ctx context.Context, id string, expectedVersion int64, set bson.M) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls++
	if s.beforeApply != nil {
		if err := s.beforeApply(id, s); err != nil {
			return false, err
		}
	}
	doc, ok := s.docs[id]
	if !ok || models.CoerceInt64(doc[models.FieldVersion]) != expectedVersion {
		return false, nil
	}
	for k, v := range set {
		doc[k] = v
	}
	doc[models.FieldVersion] = expectedVersion + 1
	return true, nil
}

func (s *memberStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return apperrors.NewNotFoundError(consts.EntityMember, id)
	}
	delete(s.docs, id)
	return nil
}

func (s *memberStore) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if s.Delete(ctx, id) == nil {
			n++
		}
	}
	return n, nil
}

type transactionStore struct {
	mu        sync.Mutex
	records   map[primitive.ObjectID]*models.Transaction
	order     []primitive.ObjectID
	createErr error
	markErr   func(status string) error
}

var _ interfaces.TransactionRepository = (*transactionStore)(nil)

func newTransactionStore() *transactionStore {
	return &transactionStore{records: map[primitive.ObjectID]*models.Transaction{}}
}

func (s *transactionStore) Create(ctx context.Context, tx models.Transaction) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return primitive.NilObjectID, s.createErr
	}
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	s.records[tx.ID] = &tx
	s.order = append(s.order, tx.ID)
	return tx.ID, nil
}

func (s *transactionStore) FindByMemberID(ctx context.Context, memberID string) ([]models.Transaction, error) {
	return s.filter(func(tx models.Transaction) bool { return tx.MemberID == memberID }), nil
}

func (s *transactionStore) FindByStatus(ctx context.Context, status string) ([]models.Transaction, error) {
	return s.filter(func(tx models.Transaction) bool { return tx.Status == status }), nil
}

func (s *transactionStore) MarkStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		if err := s.markErr(status); err != nil {
			return err
		}
	}
	tx, ok := s.records[id]
	if !ok {
		return apperrors.NewNotFoundError(consts.EntityTransaction, id.Hex())
	}
	tx.Status = status
	return nil
}

func (s *transactionStore) ListAll(ctx context.Context) ([]models.Transaction, error) {
	return s.filter(func(models.Transaction) bool { return true }), nil
}

func (s *transactionStore) TotalsByPaymentType(ctx context.Context) (map[string]float64, error) {
	totals := map[string]float64{}
	for _, tx := range s.filter(func(tx models.Transaction) bool { return tx.Status == consts.TransactionStatusApplied }) {
		totals[tx.PaymentType] += tx.Amount
	}
	return totals, nil
}

func (s *transactionStore) filter(keep func(models.Transaction) bool) []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Transaction, 0)
	for _, id := range s.order {
		if tx := *s.records[id]; keep(tx) {
			out = append(out, tx)
		}
	}
	return out
}

func (s *transactionStore) all() []models.Transaction {
	return s.filter(func(models.Transaction) bool { return true })
}

type runner struct {
	enabled bool
	calls   int
}

func (r *runner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func (r *runner) TransactionsEnabled() bool { return r.enabled }

type eventRecorder struct {
	mu  sync.Mutex
	txs []models.Transaction
}

func (e *eventRecorder) PaymentApplied(ctx context.Context, tx models.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.txs = append(e.txs, tx)
}
