package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/infra/memstore"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTx_CommitMakesWritesVisible(t *testing.T) {
	s := memstore.New(time.Second)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		c, created, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10)
		require.NoError(t, err)
		assert.True(t, created)

		c.StockQuantity = 5
		c.AvailableQuantity = 5
		if err := r.Counters().Save(ctx, c); err != nil {
			return err
		}
		_, err = r.Ledger().Append(ctx, model.LedgerEntry{ShopID: 1, ProductID: 10, Quantity: 5, MovementKind: model.MovementPurchase, StockAfter: 5})
		return err
	})
	require.NoError(t, err)

	c, err := s.Counters().FindByProductID(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.StockQuantity)

	items, total, err := s.Ledger().History(ctx, 1, 10, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}

func TestWithinTx_ErrorDiscardsStagedWrites(t *testing.T) {
	s := memstore.New(time.Second)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		c, _, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10)
		require.NoError(t, err)
		c.StockQuantity = 7
		require.NoError(t, r.Counters().Save(ctx, c))
		_, err = r.Ledger().Append(ctx, model.LedgerEntry{ShopID: 1, ProductID: 10, Quantity: 7})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Counters().FindByProductID(ctx, 1, 10)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, total, err := s.Ledger().History(ctx, 1, 10, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestWithinTx_BeforeCommitFailureAborts(t *testing.T) {
	s := memstore.New(time.Second)
	ctx := context.Background()
	s.SetBeforeCommit(func() error { return errors.New("disk full") })

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		_, _, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10)
		return err
	})
	require.ErrorIs(t, err, repo.ErrTxAborted)

	_, err = s.Counters().FindByProductID(ctx, 1, 10)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestGetOrCreateForUpdate_LockTimeout(t *testing.T) {
	s := memstore.New(50 * time.Millisecond)
	ctx := context.Background()

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.WithinTx(ctx, func(r repo.TxRepos) error {
			_, _, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		_, _, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10)
		return err
	})
	close(done)
	assert.ErrorIs(t, err, repo.ErrLockTimeout)
}

func TestGetOrCreateForUpdate_SameTxRelockDoesNotBlock(t *testing.T) {
	s := memstore.New(50 * time.Millisecond)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, _, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10); err != nil {
			return err
		}
		_, created, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10)
		assert.False(t, created)
		return err
	})
	assert.NoError(t, err)
}

func TestGetOrCreateForUpdate_ShopRules(t *testing.T) {
	s := memstore.New(time.Second)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(r repo.TxRepos) error {
		_, _, err := r.Counters().GetOrCreateForUpdate(ctx, 0, 10)
		return err
	})
	assert.ErrorIs(t, err, repo.ErrShopIDRequired)

	require.NoError(t, s.WithinTx(ctx, func(r repo.TxRepos) error {
		_, _, err := r.Counters().GetOrCreateForUpdate(ctx, 1, 10)
		return err
	}))

	err = s.WithinTx(ctx, func(r repo.TxRepos) error {
		_, _, err := r.Counters().GetOrCreateForUpdate(ctx, 2, 10)
		return err
	})
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestProducts_ShopScopedAndSoftDeleted(t *testing.T) {
	s := memstore.New(time.Second)
	ctx := context.Background()
	p := s.SeedProduct(model.Product{ShopID: 1, SKU: "A-1", Name: "Apple", Price: 100})
	gone := s.SeedProduct(model.Product{ShopID: 1, SKU: "B-1", Name: "Banana"})
	gone.DeletedAt.Valid = true
	s.SeedProduct(gone)

	got, err := s.Products().FindByID(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple", got.Name)

	_, err = s.Products().FindByID(ctx, 2, p.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	list, err := s.Products().ListByIDs(ctx, 1, []int64{gone.ID, p.ID, p.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestListLowStock_OrderedByRatioThenProduct(t *testing.T) {
	s := memstore.New(time.Second)
	ctx := context.Background()

	seed := func(pid, stock, level int64) {
		require.NoError(t, s.WithinTx(ctx, func(r repo.TxRepos) error {
			c, _, err := r.Counters().GetOrCreateForUpdate(ctx, 1, pid)
			if err != nil {
				return err
			}
			c.StockQuantity = stock
			c.ReorderLevel = level
			return r.Counters().Save(ctx, c)
		}))
	}
	seed(3, 5, 10) // 0.5
	seed(1, 2, 4)  // 0.5
	seed(2, 0, 10) // 0
	seed(4, 20, 10)
	seed(5, 0, 0)

	items, err := s.Counters().ListLowStock(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{2, 1, 3}, []int64{items[0].ProductID, items[1].ProductID, items[2].ProductID})
}

func TestDailySales_SkipsRefundedSales(t *testing.T) {
	s := memstore.New(time.Second)
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var kept, refunded model.Sale
	require.NoError(t, s.WithinTx(ctx, func(r repo.TxRepos) error {
		for _, q := range []int64{2, 3} {
			sale, _, err := r.Sales().Create(ctx,
				model.Sale{ShopID: 1, CashierID: 9, Status: model.SaleStatusCompleted, TotalAmount: q * 150, CreatedAt: day},
				[]model.SaleItem{{ProductID: 10, ProductNameSnapshot: "Tea", UnitPrice: 150, Quantity: q}},
			)
			if err != nil {
				return err
			}
			ref := sale.ID
			if _, err := r.Ledger().Append(ctx, model.LedgerEntry{
				ShopID: 1, ProductID: 10, Quantity: -q,
				MovementKind: model.MovementSale, ReferenceType: model.ReferenceSale, ReferenceID: &ref,
				CreatedAt: day,
			}); err != nil {
				return err
			}
			if q == 2 {
				kept = sale
			} else {
				refunded = sale
			}
		}
		return r.Sales().MarkRefunded(ctx, refunded.ID, day)
	}))

	rows, err := s.Ledger().DailySales(ctx, 1, 10, day.Add(-time.Hour), day.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-03-01", rows[0].Day)
	assert.Equal(t, int64(2), rows[0].Quantity)
	assert.Equal(t, int64(300), rows[0].Revenue)

	got, err := s.Sales().FindByID(ctx, 1, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleStatusCompleted, got.Status)
}
