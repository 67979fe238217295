package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/persistence"
)

func TestEntityMappingRepository_Postgres(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormEntityMappingRepository(tdb.DB)
	ctx := context.Background()

	newMapping := func(localID string) *integration.EntityMapping {
		m, err := integration.NewEntityMapping(integration.EntityKindProduct, localID)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, m))
		return m
	}

	t.Run("unique local id per kind", func(t *testing.T) {
		newMapping("SKU-UNIQ")
		dup, err := integration.NewEntityMapping(integration.EntityKindProduct, "SKU-UNIQ")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), integration.ErrMappingAlreadyExists)

		other, err := integration.NewEntityMapping(integration.EntityKindCategory, "SKU-UNIQ")
		require.NoError(t, err)
		assert.NoError(t, repo.Create(ctx, other))
	})

	t.Run("only one concurrent claim wins", func(t *testing.T) {
		m := newMapping("SKU-CLAIM")

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.Claim(ctx, m.ID, time.Now())
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)

		found, err := repo.FindByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, integration.SyncStatusPending, found.Status)
	})

	t.Run("retry due and stale pending", func(t *testing.T) {
		now := time.Now().UTC()

		due := newMapping("SKU-DUE")
		due.RecordFailure("HTTP 503", now.Add(-time.Hour))
		dueAt := now.Add(-time.Minute)
		due.ApplyRetry(integration.RetryDecision{Retry: true, NextRetryAt: &dueAt})
		require.NoError(t, repo.Save(ctx, due))

		later := newMapping("SKU-LATER")
		later.RecordFailure("HTTP 503", now)
		laterAt := now.Add(time.Hour)
		later.ApplyRetry(integration.RetryDecision{Retry: true, NextRetryAt: &laterAt})
		require.NoError(t, repo.Save(ctx, later))

		rows, err := repo.FindRetryDue(ctx, integration.EntityKindProduct, now, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "SKU-DUE", rows[0].LocalID)

		stuck := newMapping("SKU-STUCK")
		ok, err := repo.Claim(ctx, stuck.ID, now.Add(-2*time.Hour))
		require.NoError(t, err)
		require.True(t, ok)

		stale, err := repo.FindStalePending(ctx, now.Add(-time.Hour), 10)
		require.NoError(t, err)
		refs := make([]string, len(stale))
		for i := range stale {
			refs[i] = stale[i].LocalID
		}
		assert.Contains(t, refs, "SKU-STUCK")
		assert.NotContains(t, refs, "SKU-CLAIM")
	})

	t.Run("count by status", func(t *testing.T) {
		synced := newMapping("SKU-SYNCED")
		synced.RecordSuccess("R-1", time.Now())
		require.NoError(t, repo.Save(ctx, synced))

		counts, err := repo.CountByStatus(ctx, integration.EntityKindProduct)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[integration.SyncStatusSynced])
		assert.GreaterOrEqual(t, counts[integration.SyncStatusPending], int64(2))

		found, err := repo.FindByRemoteID(ctx, integration.EntityKindProduct, "R-1")
		require.NoError(t, err)
		assert.Equal(t, synced.ID, found.ID)
	})

	t.Run("remote id is unique per kind and versions guard saves", func(t *testing.T) {
		other := newMapping("SKU-OTHER")
		stale := *other
		other.RecordSuccess("R-1", time.Now())
		assert.ErrorIs(t, repo.Save(ctx, other), integration.ErrMappingAlreadyExists)

		other.RemoteID = "R-2"
		require.NoError(t, repo.Save(ctx, other))
		assert.Equal(t, 1, other.Version)
		assert.ErrorIs(t, repo.Save(ctx, &stale), integration.ErrMappingConflict)
	})
}

func TestSalesOrderRepository_Postgres(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormSalesOrderRepository(tdb.DB)
	ctx := context.Background()

	order := func(remoteID string) *integration.InboundOrder {
		return &integration.InboundOrder{
			RemoteOrderID: remoteID,
			Number:        "10" + remoteID,
			BuyerName:     "Jane Buyer",
			Currency:      "USD",
			Total:         decimal.RequireFromString("20.00"),
			CreatedAt:     time.Now(),
			Lines: []integration.InboundOrderLine{{
				RemoteProductID: "R-1",
				ItemCode:        "SKU-001",
				Name:            "Mug",
				Quantity:        decimal.NewFromInt(2),
				Price:           decimal.RequireFromString("10.00"),
			}},
		}
	}

	first, err := repo.CreateSalesOrder(ctx, order("ord-1"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SO-WEB-%d-00001", time.Now().Year()), first)

	second, err := repo.CreateSalesOrder(ctx, order("ord-2"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SO-WEB-%d-00002", time.Now().Year()), second)

	again, err := repo.CreateSalesOrder(ctx, order("ord-1"))
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int64(2), tdb.Count("sales_orders", "1 = 1"))
	assert.Equal(t, int64(2), tdb.Count("sales_order_lines", "1 = 1"))

	require.NoError(t, repo.MarkPaid(ctx, first, time.Now()))
	assert.Equal(t, int64(1), tdb.Count("sales_orders", "paid = ?", true))
	assert.ErrorIs(t, repo.MarkPaid(ctx, "SO-NOPE", time.Now()), integration.ErrOrderNotFound)

	number, _, err := repo.FindByRemoteOrderID(ctx, "ord-2")
	require.NoError(t, err)
	assert.Equal(t, second, number)
}

func TestAuditLogRepository_Postgres(t *testing.T) {
	tdb := NewTestDB(t)
	repo := persistence.NewGormAuditLogRepository(tdb.DB)
	ctx := context.Background()

	appendEntry := func(status integration.AuditStatus, detail string, age time.Duration) {
		e := integration.NewAuditLogEntry(integration.OperationProductSync, integration.EntityKindProduct, "SKU-001", status).
			WithError(detail)
		e.Duration = 200 * time.Millisecond
		e.CreatedAt = time.Now().Add(-age)
		require.NoError(t, repo.Append(ctx, e))
	}

	appendEntry(integration.AuditStatusSuccess, "", time.Minute)
	appendEntry(integration.AuditStatusError, "HTTP 503", time.Minute)
	appendEntry(integration.AuditStatusError, "HTTP 503", 2*time.Minute)
	appendEntry(integration.AuditStatusError, "HTTP 400", 3*time.Minute)
	appendEntry(integration.AuditStatusSuccess, "", 60*24*time.Hour)

	stats, err := repo.Stats(ctx, time.Now().Add(-time.Hour), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(3), stats.ByStatus[integration.AuditStatusError])
	require.Len(t, stats.TopErrors, 1)
	assert.Equal(t, "HTTP 503", stats.TopErrors[0].Message)
	assert.Equal(t, int64(2), stats.TopErrors[0].Count)
	assert.Equal(t, 200*time.Millisecond, stats.AvgDuration)

	entries, total, err := repo.FindAll(ctx, integration.AuditLogFilter{Status: integration.AuditStatusError, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 2)

	purged, err := repo.PurgeBefore(ctx, integration.AuditStatusSuccess, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
