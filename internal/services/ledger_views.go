package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roomledger/internal/cache"
	"roomledger/internal/core"
	"roomledger/internal/storage"
)

// LedgerViews computes the derived read models (settlement, pairwise,
// analytics) from ledger snapshots, memoizing the expensive ones between
// writes.
//
// Invalidation is by room generation: every cache key embeds the room's
// generation counter and a write bumps it, so all of a room's cached views
// become unreachable at once. A month-keyed report embeds all-time sections
// (trend, pace, highlights, status totals), so dropping only the written
// month's key would leave stale reports under other months.
type LedgerViews struct {
	storage     *storage.SQLiteRepository
	settlements *cache.LRUCache[core.Settlement]
	reports     *cache.LRUCache[core.Report]

	mu   sync.Mutex
	gens map[string]uint64

	now func() time.Time
}

func NewLedgerViews(storage *storage.SQLiteRepository, cacheSize int, cacheTTL time.Duration) *LedgerViews {
	return &LedgerViews{
		storage:     storage,
		settlements: cache.NewLRUCache[core.Settlement](cacheSize, cacheTTL),
		reports:     cache.NewLRUCache[core.Report](cacheSize, cacheTTL),
		gens:        make(map[string]uint64),
		now:         time.Now,
	}
}

// Settlement returns who owes what in a room, over approved expenses only.
func (v *LedgerViews) Settlement(ctx context.Context, roomID string) (core.Settlement, error) {
	key := v.settlementKey(roomID)
	if cached, ok := v.settlements.Get(key); ok {
		return cached, nil
	}

	expenses, members, err := v.snapshot(ctx, roomID)
	if err != nil {
		return core.Settlement{}, err
	}

	settlement := core.ComputeSettlement(expenses, members)
	v.settlements.Set(key, settlement)
	return settlement, nil
}

// Pairwise returns the direct balance between two members. Cheap enough to
// recompute on every call.
func (v *LedgerViews) Pairwise(ctx context.Context, roomID, memberA, memberB string) (core.PairwiseBalance, error) {
	expenses, err := v.storage.ListExpenses(ctx, roomID)
	if err != nil {
		return core.PairwiseBalance{}, err
	}
	return core.ComputePairwise(expenses, memberA, memberB), nil
}

// Analytics returns the aggregation report for one calendar month.
func (v *LedgerViews) Analytics(ctx context.Context, roomID string, year int, month time.Month) (core.Report, error) {
	key := v.analyticsKey(roomID, year, month)
	if cached, ok := v.reports.Get(key); ok {
		return cached, nil
	}

	expenses, err := v.storage.ListExpenses(ctx, roomID)
	if err != nil {
		return core.Report{}, err
	}

	report := core.ComputeAnalytics(expenses, core.MonthWindow(year, month), v.now())
	v.reports.Set(key, report)
	return report, nil
}

// InvalidateRoom drops every cached view for the room by bumping its
// generation. Superseded entries linger until LRU eviction or TTL but can no
// longer be read.
func (v *LedgerViews) InvalidateRoom(roomID string) {
	v.mu.Lock()
	v.gens[roomID]++
	v.mu.Unlock()
}

func (v *LedgerViews) generation(roomID string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gens[roomID]
}

func (v *LedgerViews) settlementKey(roomID string) string {
	return fmt.Sprintf("settlement:%s:%d", roomID, v.generation(roomID))
}

func (v *LedgerViews) analyticsKey(roomID string, year int, month time.Month) string {
	return fmt.Sprintf("analytics:%s:%d:%04d-%02d", roomID, v.generation(roomID), year, int(month))
}

func (v *LedgerViews) snapshot(ctx context.Context, roomID string) ([]core.Expense, []core.Member, error) {
	expenses, err := v.storage.ListExpenses(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	members, err := v.storage.ListMembers(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return expenses, members, nil
}
