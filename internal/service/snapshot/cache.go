package snapshot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/service/interfaces"
	"coop-ledger/internal/service/reconciliation"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type mirrored struct {
	Members   []models.Member `json:"members"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Cache holds the latest canonical member view. Every snapshot replaces
// the view wholesale.
type Cache struct {
	mu          sync.RWMutex
	members     []models.Member
	byID        map[string]int
	version     uint64
	lastUpdated time.Time

	mirror    interfaces.RedisStoreInterface
	mirrorTTL time.Duration
	now       func() time.Time
}

// NewCache builds an empty cache. mirror may be nil.
func NewCache(mirror interfaces.RedisStoreInterface, mirrorTTL time.Duration) *Cache {
	return &Cache{
		byID:      map[string]int{},
		mirror:    mirror,
		mirrorTTL: mirrorTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Update projects a raw snapshot and swaps it in. Its signature matches
// subscription.SnapshotFunc.
func (c *Cache) Update(ctx context.Context, raws []bson.M) {
	canonical := reconciliation.Canonicalize(raws)
	updatedAt := c.now()
	c.replace(canonical, updatedAt)

	logger.CtxDebug(ctx, log_messages.SnapshotApplied,
		zap.Int("documents", len(raws)), zap.Int("members", len(canonical)))
	c.mirrorView(ctx, canonical, updatedAt)
}

func (c *Cache) replace(members []models.Member, updatedAt time.Time) {
	byID := make(map[string]int, len(members))
	for i, m := range members {
		byID[m.ID] = i
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = members
	c.byID = byID
	c.version++
	c.lastUpdated = updatedAt
}

func (c *Cache) mirrorView(ctx context.Context, members []models.Member, updatedAt time.Time) {
	if c.mirror == nil {
		return
	}
	payload, err := json.Marshal(mirrored{Members: members, UpdatedAt: updatedAt})
	if err != nil {
		logger.CtxError(ctx, log_messages.ErrorMarshallingJSON, err)
		return
	}
	if err := c.mirror.Set(ctx, consts.CanonicalMembersKey, payload, c.mirrorTTL); err != nil {
		logger.CtxWarn(ctx, log_messages.SnapshotMirrorFailed, zap.Error(err))
	}
}

// Warm loads the mirrored view when nothing has been delivered yet.
// It reports whether the mirror was used.
func (c *Cache) Warm(ctx context.Context) bool {
	if c.mirror == nil || c.Version() > 0 {
		return false
	}
	data, err := c.mirror.Get(ctx, consts.CanonicalMembersKey)
	if err != nil {
		logger.CtxWarn(ctx, log_messages.SnapshotWarmFailed, zap.Error(err))
		return false
	}
	if data == nil {
		return false
	}
	var view mirrored
	if err := json.Unmarshal(data, &view); err != nil {
		logger.CtxWarn(ctx, log_messages.SnapshotWarmFailed, zap.Error(err))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version > 0 {
		return false
	}
	c.members = view.Members
	c.byID = make(map[string]int, len(view.Members))
	for i, m := range view.Members {
		c.byID[m.ID] = i
	}
	c.version++
	c.lastUpdated = view.UpdatedAt
	return true
}

// Members returns a copy of the canonical view.
func (c *Cache) Members() []models.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Member, len(c.members))
	copy(out, c.members)
	return out
}

func (c *Cache) Get(id string) (models.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return models.Member{}, false
	}
	return c.members[i], true
}

// Version counts the views applied so far; 0 means nothing has arrived.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

func (c *Cache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}
