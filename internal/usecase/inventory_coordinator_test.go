package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定する
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Repos)
}

type TxReposMock struct {
	counters repo.StockCounterRepository
	ledger   repo.LedgerRepository
}

func (r *TxReposMock) Products() repo.ProductRepository      { panic("not used") }
func (r *TxReposMock) Counters() repo.StockCounterRepository { return r.counters }
func (r *TxReposMock) Ledger() repo.LedgerRepository         { return r.ledger }
func (r *TxReposMock) Sales() repo.SaleRepository            { panic("not used") }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository    { panic("not used") }

type CounterRepoMock struct{ mock.Mock }

func (m *CounterRepoMock) GetOrCreateForUpdate(ctx context.Context, shopID int64, productID int64) (model.StockCounter, bool, error) {
	args := m.Called(ctx, shopID, productID)
	c, _ := args.Get(0).(model.StockCounter)
	return c, args.Bool(1), args.Error(2)
}

func (m *CounterRepoMock) FindByProductID(ctx context.Context, shopID int64, productID int64) (model.StockCounter, error) {
	panic("not used in coordinator tests")
}

func (m *CounterRepoMock) Save(ctx context.Context, c model.StockCounter) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *CounterRepoMock) ListLowStock(ctx context.Context, shopID int64) ([]model.StockCounter, error) {
	panic("not used in coordinator tests")
}

type LedgerRepoMock struct{ mock.Mock }

func (m *LedgerRepoMock) Append(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	args := m.Called(ctx, e)
	out, _ := args.Get(0).(model.LedgerEntry)
	return out, args.Error(1)
}

func (m *LedgerRepoMock) History(ctx context.Context, shopID int64, productID int64, page int, pageSize int) ([]model.LedgerEntry, int64, error) {
	panic("not used in coordinator tests")
}

func (m *LedgerRepoMock) Aggregate(ctx context.Context, q repo.LedgerAggregateQuery) (repo.LedgerAggregate, error) {
	panic("not used in coordinator tests")
}

func (m *LedgerRepoMock) DailySales(ctx context.Context, shopID int64, productID int64, from time.Time, to time.Time) ([]repo.DailySales, error) {
	panic("not used in coordinator tests")
}

type LockerMock struct {
	mock.Mock
	order []int64
}

func (m *LockerMock) Lock(ctx context.Context, shopID int64, productID int64) (func(), error) {
	args := m.Called(ctx, shopID, productID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	m.order = append(m.order, productID)
	return func() {}, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newMockCoordinator(opts ...usecase.CoordinatorOption) (*usecase.InventoryCoordinator, *TxManagerMock, *CounterRepoMock, *LedgerRepoMock) {
	counters := &CounterRepoMock{}
	ledger := &LedgerRepoMock{}
	txm := &TxManagerMock{Repos: &TxReposMock{counters: counters, ledger: ledger}}
	c := usecase.NewInventoryCoordinator(txm, zap.NewNop(), opts...)
	return c, txm, counters, ledger
}

func counterWith(productID int64, stock, available, reserved int64) model.StockCounter {
	return model.StockCounter{
		ID:                productID * 10,
		ShopID:            shopID,
		ProductID:         productID,
		StockQuantity:     stock,
		AvailableQuantity: available,
		ReservedQuantity:  reserved,
	}
}

func TestCoordinator_AppendsEntryWithDeltaAndSnapshot(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c, txm, counters, ledger := newMockCoordinator(usecase.WithClock(fixedClock{now}))
	ctx := context.Background()
	ref := int64(55)

	txm.On("WithinTx", mock.Anything).Return(nil).Once()
	counters.On("GetOrCreateForUpdate", mock.Anything, shopID, int64(3)).Return(counterWith(3, 0, 0, 0), true, nil).Once()
	counters.On("GetOrCreateForUpdate", mock.Anything, shopID, int64(3)).Return(counterWith(3, 0, 0, 0), false, nil).Once()
	counters.On("Save", mock.Anything, mock.MatchedBy(func(s model.StockCounter) bool {
		return s.StockQuantity == 12 && s.AvailableQuantity == 12 && s.UpdatedAt.Equal(now)
	})).Return(nil).Once()
	ledger.On("Append", mock.Anything, mock.MatchedBy(func(e model.LedgerEntry) bool {
		return e.Quantity == 12 &&
			e.MovementKind == model.MovementPurchase &&
			e.StockBefore == 0 && e.StockAfter == 12 &&
			e.ReferenceType == model.ReferencePurchaseOrder &&
			e.ReferenceID != nil && *e.ReferenceID == 55 &&
			e.CreatedAt.Equal(now)
	})).Return(model.LedgerEntry{ID: 1, Quantity: 12}, nil).Once()

	res, err := c.ApplyChange(ctx, usecase.StockChangeRequest{
		ShopID:        shopID,
		ProductID:     3,
		Change:        model.DeltaOf(12, 12, 0),
		Kind:          model.MovementPurchase,
		ReferenceType: model.ReferencePurchaseOrder,
		ReferenceID:   &ref,
	})
	require.NoError(t, err)

	assert.True(t, res.Created)
	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(1), res.Entry.ID)
	assert.Equal(t, int64(12), res.Counter.StockQuantity)

	txm.AssertExpectations(t)
	counters.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestCoordinator_RejectionWritesNothing(t *testing.T) {
	c, txm, counters, ledger := newMockCoordinator()
	ctx := context.Background()

	txm.On("WithinTx", mock.Anything).Return(nil).Once()
	counters.On("GetOrCreateForUpdate", mock.Anything, shopID, int64(3)).Return(counterWith(3, 5, 5, 0), false, nil)

	_, err := c.ApplyChange(ctx, usecase.StockChangeRequest{
		ShopID: shopID, ProductID: 3,
		Change: model.DeltaOf(-6, -6, 0),
		Kind:   model.MovementAdjustmentOut,
	})
	assertCode(t, err, usecase.CodeInsufficientStock)

	counters.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestCoordinator_ZeroChangeSkipsWrites(t *testing.T) {
	c, txm, counters, ledger := newMockCoordinator()
	ctx := context.Background()

	txm.On("WithinTx", mock.Anything).Return(nil).Once()
	counters.On("GetOrCreateForUpdate", mock.Anything, shopID, int64(3)).Return(counterWith(3, 5, 5, 0), false, nil)

	res, err := c.ApplyChange(ctx, usecase.StockChangeRequest{
		ShopID: shopID, ProductID: 3,
		Change: model.DeltaSpec{Stock: model.QuantityChange{Set: i64(5)}},
		Kind:   model.MovementAdjustment,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Entry)

	counters.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestCoordinator_SaveFailureIsPersistenceError(t *testing.T) {
	c, txm, counters, ledger := newMockCoordinator()
	ctx := context.Background()

	txm.On("WithinTx", mock.Anything).Return(nil).Once()
	counters.On("GetOrCreateForUpdate", mock.Anything, shopID, int64(3)).Return(counterWith(3, 5, 5, 0), false, nil)
	counters.On("Save", mock.Anything, mock.Anything).Return(errors.New("conn reset")).Once()

	_, err := c.ApplyChange(ctx, usecase.StockChangeRequest{
		ShopID: shopID, ProductID: 3,
		Change: model.DeltaOf(1, 1, 0),
		Kind:   model.MovementAdjustmentIn,
	})
	assertCode(t, err, usecase.CodePersistence)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestCoordinator_InfrastructureErrorsAreRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"lock timeout", fmt.Errorf("wrap: %w", repo.ErrLockTimeout), usecase.CodeLockTimeout},
		{"aborted", fmt.Errorf("wrap: %w", repo.ErrTxAborted), usecase.CodeTransactionAborted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, txm, _, _ := newMockCoordinator()
			txm.On("WithinTx", mock.Anything).Return(tc.err).Once()

			_, err := c.ApplyChange(context.Background(), usecase.StockChangeRequest{
				ShopID: shopID, ProductID: 3,
				Change: model.DeltaOf(1, 1, 0),
				Kind:   model.MovementAdjustmentIn,
			})
			assertCode(t, err, tc.code)
			he, _ := usecase.AsHTTPError(err)
			assert.True(t, he.Retryable())
		})
	}
}

func TestCoordinator_MissingKindForStockChange(t *testing.T) {
	c, txm, counters, _ := newMockCoordinator()
	txm.On("WithinTx", mock.Anything).Return(nil).Once()
	counters.On("GetOrCreateForUpdate", mock.Anything, shopID, int64(3)).Return(counterWith(3, 5, 5, 0), false, nil)

	_, err := c.ApplyChange(context.Background(), usecase.StockChangeRequest{
		ShopID: shopID, ProductID: 3,
		Change: model.DeltaOf(1, 1, 0),
	})
	assertCode(t, err, usecase.CodeValidation)
}

func TestCoordinator_BatchLocksInAscendingProductOrder(t *testing.T) {
	locker := &LockerMock{}
	c, txm, counters, ledger := newMockCoordinator(usecase.WithProductLocker(locker))
	ctx := context.Background()

	var rowLocks []int64
	txm.On("WithinTx", mock.Anything).Return(nil).Once()
	locker.On("Lock", mock.Anything, shopID, mock.Anything).Return(nil)
	counters.On("GetOrCreateForUpdate", mock.Anything, shopID, mock.Anything).
		Run(func(args mock.Arguments) { rowLocks = append(rowLocks, args.Get(2).(int64)) }).
		Return(counterWith(0, 10, 10, 0), false, nil)
	counters.On("Save", mock.Anything, mock.Anything).Return(nil)
	ledger.On("Append", mock.Anything, mock.Anything).Return(model.LedgerEntry{}, nil)

	reqs := []usecase.StockChangeRequest{}
	for _, pid := range []int64{9, 3, 5, 3} {
		reqs = append(reqs, usecase.StockChangeRequest{
			ShopID: shopID, ProductID: pid,
			Change: model.DeltaOf(-1, -1, 0),
			Kind:   model.MovementSale,
		})
	}
	results, err := c.ApplyBatch(ctx, reqs)
	require.NoError(t, err)
	assert.Len(t, results, 4)

	assert.Equal(t, []int64{3, 5, 9}, locker.order)
	require.GreaterOrEqual(t, len(rowLocks), 3)
	assert.Equal(t, []int64{3, 5, 9}, rowLocks[:3])
}

func TestCoordinator_LockerTimeoutSkipsTransaction(t *testing.T) {
	locker := &LockerMock{}
	c, txm, _, _ := newMockCoordinator(usecase.WithProductLocker(locker))

	locker.On("Lock", mock.Anything, shopID, int64(3)).Return(repo.ErrLockTimeout)

	_, err := c.ApplyChange(context.Background(), usecase.StockChangeRequest{
		ShopID: shopID, ProductID: 3,
		Change: model.DeltaOf(1, 1, 0),
		Kind:   model.MovementAdjustmentIn,
	})
	assertCode(t, err, usecase.CodeLockTimeout)
	txm.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestCoordinator_BatchRejectsMixedShops(t *testing.T) {
	c, txm, _, _ := newMockCoordinator()

	_, err := c.ApplyBatch(context.Background(), []usecase.StockChangeRequest{
		{ShopID: 1, ProductID: 1, Change: model.DeltaOf(1, 1, 0), Kind: model.MovementAdjustmentIn},
		{ShopID: 2, ProductID: 2, Change: model.DeltaOf(1, 1, 0), Kind: model.MovementAdjustmentIn},
	})
	assertCode(t, err, usecase.CodeValidation)
	txm.AssertNotCalled(t, "WithinTx", mock.Anything)
}
