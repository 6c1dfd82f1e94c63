package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/electwix/db-mapper/cache"
	"github.com/electwix/db-mapper/mapping"
	"github.com/electwix/db-mapper/transaction"
)

// fakeDelegate is a minimal tier-1 stand-in that counts calls; the
// shared tier under test sits on top of it.
type fakeDelegate struct {
	rows       []any
	queries    int
	updates    int
	commits    int
	rollbacks  int
	closes     int
	lastForced bool
}

var _ Executor = (*fakeDelegate)(nil)

func (d *fakeDelegate) Query(ctx context.Context, ms *mapping.MappedStatement, param any, bounds mapping.RowBounds, handler RowHandler) ([]any, error) {
	bound, err := ms.BoundStatement(param)
	if err != nil {
		return nil, err
	}
	key, err := d.CreateCacheKey(ms, bounds, bound)
	if err != nil {
		return nil, err
	}
	return d.QueryWithKey(ctx, ms, param, bounds, handler, key, bound)
}

func (d *fakeDelegate) QueryWithKey(_ context.Context, _ *mapping.MappedStatement, _ any, _ mapping.RowBounds, handler RowHandler, _ *cache.Key, _ *mapping.BoundStatement) ([]any, error) {
	d.queries++
	if handler != nil {
		for _, row := range d.rows {
			if err := handler(row); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return d.rows, nil
}

func (d *fakeDelegate) Update(context.Context, *mapping.MappedStatement, any) (int64, error) {
	d.updates++
	return 1, nil
}

func (d *fakeDelegate) FlushStatements(context.Context) ([]BatchResult, error) { return nil, nil }

func (d *fakeDelegate) Commit(context.Context, bool) error {
	d.commits++
	return nil
}

func (d *fakeDelegate) Rollback(context.Context, bool) error {
	d.rollbacks++
	return nil
}

func (d *fakeDelegate) CreateCacheKey(ms *mapping.MappedStatement, bounds mapping.RowBounds, bound *mapping.BoundStatement) (*cache.Key, error) {
	key := cache.NewKey()
	if err := key.UpdateAll(ms.ID, bounds.Offset, bounds.Limit, bound.SQL); err != nil {
		return nil, err
	}
	return key, nil
}

func (d *fakeDelegate) IsCached(*mapping.MappedStatement, *cache.Key) bool { return false }
func (d *fakeDelegate) ClearLocalCache()                                   {}
func (d *fakeDelegate) DeferLoad(context.Context, *mapping.MappedStatement, any, string, *cache.Key) error {
	return nil
}
func (d *fakeDelegate) Transaction() transaction.Transaction { return nil }
func (d *fakeDelegate) Close(forceRollback bool) error {
	d.closes++
	d.lastForced = forceRollback
	return nil
}

func cachedStatement(t *testing.T, id string, region cache.Cache) *mapping.MappedStatement {
	t.Helper()
	ms := selectStatement(t, id, "SELECT * FROM things")
	ms.Cache = region
	return ms
}

func regionGet(t *testing.T, region cache.Cache, key *cache.Key) (cache.Value, bool) {
	t.Helper()
	val, ok, err := region.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("region Get = %v, want nil", err)
	}
	return val, ok
}

func TestCachingExecutor_PublishesOnCommit(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{rows: []any{map[string]any{"id": int64(1)}}}
	exec := NewCachingExecutor(delegate, nil)
	ms := cachedStatement(t, "things.list", region)

	if _, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil); err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}
	bound, _ := ms.BoundStatement(nil)
	key, _ := delegate.CreateCacheKey(ms, mapping.DefaultBounds, bound)
	if _, ok := regionGet(t, region, key); ok {
		t.Fatal("region holds the entry before commit; staging must be invisible")
	}

	// The staged write is invisible to this session's reads too.
	if _, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil); err != nil {
		t.Fatalf("Query (repeat) = %v, want nil", err)
	}
	if delegate.queries != 2 {
		t.Errorf("delegate queries = %d, want 2 (buffer serves no staged entries)", delegate.queries)
	}

	if err := exec.Commit(ctx, true); err != nil {
		t.Fatalf("Commit = %v, want nil", err)
	}
	if delegate.commits != 1 {
		t.Errorf("delegate commits = %d, want 1", delegate.commits)
	}
	val, ok := regionGet(t, region, key)
	if !ok || len(val.Rows()) != 1 {
		t.Fatalf("region after commit = (%v, %v), want the published rows", val, ok)
	}

	// A fresh read now hits tier 2 without touching the delegate.
	if _, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil); err != nil {
		t.Fatalf("Query after commit = %v, want nil", err)
	}
	if delegate.queries != 2 {
		t.Errorf("delegate queries = %d, want still 2 after the shared hit", delegate.queries)
	}
}

func TestCachingExecutor_NullMarkerIsAMiss(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{rows: []any{map[string]any{"id": int64(1)}}}
	exec := NewCachingExecutor(delegate, nil)
	ms := cachedStatement(t, "things.list", region)

	bound, _ := ms.BoundStatement(nil)
	key, _ := delegate.CreateCacheKey(ms, mapping.DefaultBounds, bound)
	if err := region.Put(ctx, key, cache.Null()); err != nil {
		t.Fatalf("seed region = %v", err)
	}

	rows, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil)
	if err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}
	if delegate.queries != 1 {
		t.Errorf("delegate queries = %d, want 1 (null marker re-queries)", delegate.queries)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %d, want 1 from the delegate", len(rows))
	}

	if err := exec.Commit(ctx, true); err != nil {
		t.Fatalf("Commit = %v, want nil", err)
	}
	val, ok := regionGet(t, region, key)
	if !ok || val.IsNull() {
		t.Errorf("region after commit = (%v, %v), want real rows replacing the marker", val, ok)
	}
}

func TestCachingExecutor_RowHandlerBypasses(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{rows: []any{map[string]any{"id": int64(1)}}}
	exec := NewCachingExecutor(delegate, nil)
	ms := cachedStatement(t, "things.list", region)

	var streamed int
	if _, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, func(any) error { streamed++; return nil }); err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}
	if streamed != 1 {
		t.Errorf("streamed = %d, want 1", streamed)
	}
	if err := exec.Commit(ctx, true); err != nil {
		t.Fatalf("Commit = %v, want nil", err)
	}
	if region.Size() != 0 {
		t.Errorf("region size = %d, want 0 (streamed reads stage nothing)", region.Size())
	}
}

func TestCachingExecutor_UseCacheOffBypasses(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{rows: []any{map[string]any{"id": int64(1)}}}
	exec := NewCachingExecutor(delegate, nil)
	ms := cachedStatement(t, "things.list", region)
	ms.UseCache = false

	for i := 0; i < 2; i++ {
		if _, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil); err != nil {
			t.Fatalf("Query #%d = %v, want nil", i+1, err)
		}
	}
	if delegate.queries != 2 {
		t.Errorf("delegate queries = %d, want 2 (use_cache off)", delegate.queries)
	}
	if err := exec.Commit(ctx, true); err != nil {
		t.Fatalf("Commit = %v, want nil", err)
	}
	if region.Size() != 0 {
		t.Errorf("region size = %d, want 0", region.Size())
	}
}

func TestCachingExecutor_OutParamsRejected(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{}
	exec := NewCachingExecutor(delegate, nil)

	ms := &mapping.MappedStatement{
		ID:       "things.call",
		Command:  mapping.CommandSelect,
		Type:     mapping.StatementCallable,
		Cache:    region,
		UseCache: true,
		Source: mapping.SQLSourceFunc(func(param any) (*mapping.BoundStatement, error) {
			return mapping.NewBoundStatement("CALL x(?)", []mapping.ParameterMapping{
				{Property: "total", Mode: mapping.ModeOut},
			}, param), nil
		}),
	}

	_, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil)
	if !errors.Is(err, ErrOutParamsNotCacheable) {
		t.Fatalf("Query = %v, want ErrOutParamsNotCacheable", err)
	}
	if delegate.queries != 0 {
		t.Errorf("delegate queries = %d, want 0 (rejected before delegation)", delegate.queries)
	}
}

func TestCachingExecutor_WriteClearsStagedRegion(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{rows: []any{map[string]any{"id": int64(1)}}}
	exec := NewCachingExecutor(delegate, nil)
	query := cachedStatement(t, "things.list", region)
	update := &mapping.MappedStatement{
		ID:                 "things.update",
		Command:            mapping.CommandUpdate,
		Cache:              region,
		FlushCacheRequired: true,
		Source: mapping.SQLSourceFunc(func(param any) (*mapping.BoundStatement, error) {
			return mapping.NewBoundStatement("UPDATE things SET x = 1", nil, param), nil
		}),
	}

	if _, err := exec.Query(ctx, query, nil, mapping.DefaultBounds, nil); err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}
	if _, err := exec.Update(ctx, update, nil); err != nil {
		t.Fatalf("Update = %v, want nil", err)
	}
	if err := exec.Commit(ctx, true); err != nil {
		t.Fatalf("Commit = %v, want nil", err)
	}
	if delegate.updates != 1 {
		t.Errorf("delegate updates = %d, want 1", delegate.updates)
	}

	// The staged rows were dropped by the flush; the read's unanswered
	// miss is still confirmed as a null marker at commit.
	bound, _ := query.BoundStatement(nil)
	key, _ := delegate.CreateCacheKey(query, mapping.DefaultBounds, bound)
	val, ok := regionGet(t, region, key)
	if !ok || !val.IsNull() {
		t.Errorf("region entry after flush+commit = (%v, %v), want the null marker", val, ok)
	}
}

func TestCachingExecutor_RollbackDiscardsStaged(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{rows: []any{map[string]any{"id": int64(1)}}}
	exec := NewCachingExecutor(delegate, nil)
	ms := cachedStatement(t, "things.list", region)

	if _, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil); err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}
	if err := exec.Rollback(ctx, true); err != nil {
		t.Fatalf("Rollback = %v, want nil", err)
	}
	if delegate.rollbacks != 1 {
		t.Errorf("delegate rollbacks = %d, want 1", delegate.rollbacks)
	}

	// Nothing publishes on a later commit.
	if err := exec.Commit(ctx, true); err != nil {
		t.Fatalf("Commit = %v, want nil", err)
	}
	if region.Size() != 0 {
		t.Errorf("region size = %d, want 0 after rollback", region.Size())
	}
}

func TestCachingExecutor_Close(t *testing.T) {
	ctx := context.Background()
	region := cache.NewPerpetual("things")
	delegate := &fakeDelegate{rows: []any{map[string]any{"id": int64(1)}}}
	exec := NewCachingExecutor(delegate, nil)
	ms := cachedStatement(t, "things.list", region)

	if _, err := exec.Query(ctx, ms, nil, mapping.DefaultBounds, nil); err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}

	t.Run("graceful close publishes", func(t *testing.T) {
		if err := exec.Close(false); err != nil {
			t.Fatalf("Close = %v, want nil", err)
		}
		if delegate.closes != 1 || delegate.lastForced {
			t.Errorf("delegate close = (%d, forced=%v), want (1, false)", delegate.closes, delegate.lastForced)
		}
		if region.Size() != 1 {
			t.Errorf("region size = %d, want 1 (graceful close commits the buffer)", region.Size())
		}
	})

	t.Run("forced close discards", func(t *testing.T) {
		region2 := cache.NewPerpetual("things2")
		delegate2 := &fakeDelegate{rows: []any{map[string]any{"id": int64(2)}}}
		exec2 := NewCachingExecutor(delegate2, nil)
		ms2 := cachedStatement(t, "things2.list", region2)

		if _, err := exec2.Query(ctx, ms2, nil, mapping.DefaultBounds, nil); err != nil {
			t.Fatalf("Query = %v, want nil", err)
		}
		if err := exec2.Close(true); err != nil {
			t.Fatalf("Close = %v, want nil", err)
		}
		if !delegate2.lastForced {
			t.Error("delegate close not forced")
		}
		if region2.Size() != 0 {
			t.Errorf("region size = %d, want 0 (forced close discards the buffer)", region2.Size())
		}
	})
}
