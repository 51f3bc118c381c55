package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/metrics"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// 商品単位のプロセス間ロック（Txの外で取る）
type ProductLocker interface {
	Lock(ctx context.Context, shopID int64, productID int64) (unlock func(), err error)
}

// 在庫変更の依頼。数量はChange、属性はAttributesで渡す。
type StockChangeRequest struct {
	ShopID        int64
	ProductID     int64
	Change        model.DeltaSpec
	Attributes    model.CounterAttributes
	Kind          model.MovementKind
	ReferenceType model.ReferenceType
	ReferenceID   *int64
	Note          string
	ActorID       *int64
}

type ChangeResult struct {
	Before  model.StockCounter
	Counter model.StockCounter
	// 在庫数が変わらなければnil
	Entry   *model.LedgerEntry
	Created bool
}

// 在庫を変更できる唯一の入口。
// カウンタの更新と台帳の追記を同じTxで行い、商品ごとに直列化する。
type InventoryCoordinator struct {
	tx     repo.TransactionManager
	locker ProductLocker
	strict bool
	clock  Clock
	logger *zap.Logger
}

type CoordinatorOption func(*InventoryCoordinator)

func WithProductLocker(l ProductLocker) CoordinatorOption {
	return func(c *InventoryCoordinator) { c.locker = l }
}

// available + reserved <= stock も検証する
func WithStrictReconcile(strict bool) CoordinatorOption {
	return func(c *InventoryCoordinator) { c.strict = strict }
}

func WithClock(clock Clock) CoordinatorOption {
	return func(c *InventoryCoordinator) { c.clock = clock }
}

// DI
func NewInventoryCoordinator(tx repo.TransactionManager, logger *zap.Logger, opts ...CoordinatorOption) *InventoryCoordinator {
	c := &InventoryCoordinator{
		tx:     tx,
		clock:  systemClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

func (c *InventoryCoordinator) ApplyChange(ctx context.Context, req StockChangeRequest) (ChangeResult, error) {
	results, err := c.ApplyBatch(ctx, []StockChangeRequest{req})
	if err != nil {
		return ChangeResult{}, err
	}
	return results[0], nil
}

// 同じショップの複数商品をまとめて変更する（全部成功か全部失敗）
func (c *InventoryCoordinator) ApplyBatch(ctx context.Context, reqs []StockChangeRequest) ([]ChangeResult, error) {
	if len(reqs) == 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "no changes")
	}
	shopID := reqs[0].ShopID
	ids := make([]int64, 0, len(reqs))
	for _, req := range reqs {
		if req.ShopID != shopID {
			return nil, NewHTTPError(http.StatusBadRequest, "changes span multiple shops")
		}
		ids = append(ids, req.ProductID)
	}

	var results []ChangeResult
	err := c.WithinProducts(ctx, shopID, ids, func(r repo.TxRepos) error {
		results = make([]ChangeResult, 0, len(reqs))
		for _, req := range reqs {
			res, err := c.ApplyInTx(ctx, r, req)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// 商品IDの昇順でロックを取ってからfnを1つのTxで実行する。
// 呼び出し側はfnの中でApplyInTxを使い、販売や監査ログも同じTxで書ける。
func (c *InventoryCoordinator) WithinProducts(ctx context.Context, shopID int64, productIDs []int64, fn func(r repo.TxRepos) error) error {
	start := time.Now()
	ids, err := sortedUnique(productIDs)
	if err != nil {
		return err
	}

	//分散ロック（Txの前に取る）
	if c.locker != nil {
		for _, pid := range ids {
			unlock, err := c.locker.Lock(ctx, shopID, pid)
			if err != nil {
				c.finish("lock", ids, start, err)
				return translateError(err)
			}
			defer unlock()
		}
	}

	err = c.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		pt := &productTx{TxRepos: r, created: map[int64]bool{}}
		//行ロックも同じ順で取る
		for _, pid := range ids {
			_, created, err := r.Counters().GetOrCreateForUpdate(ctx, shopID, pid)
			if err != nil {
				return err
			}
			pt.created[pid] = created
		}
		return fn(pt)
	})
	c.finish("tx", ids, start, err)
	return translateError(err)
}

// WithinProducts内のTx。先にロックしたときに作成したカウンタを覚えておく。
type productTx struct {
	repo.TxRepos
	created map[int64]bool
}

// Tx内で1商品分の変更を適用する。ロックはWithinProductsで取得済みの前提。
func (c *InventoryCoordinator) ApplyInTx(ctx context.Context, r repo.TxRepos, req StockChangeRequest) (ChangeResult, error) {
	start := time.Now()
	res, err := c.applyInTx(ctx, r, req)
	c.observe(req, start, err)
	return res, err
}

func (c *InventoryCoordinator) applyInTx(ctx context.Context, r repo.TxRepos, req StockChangeRequest) (ChangeResult, error) {
	if req.ProductID <= 0 {
		return ChangeResult{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	counter, created, err := r.Counters().GetOrCreateForUpdate(ctx, req.ShopID, req.ProductID)
	if err != nil {
		return ChangeResult{}, err
	}
	if pt, ok := r.(*productTx); ok && pt.created[req.ProductID] {
		created = true
	}
	before := counter

	//変更後の値を計算して検証
	after := counter.Levels().Apply(req.Change)
	if err := model.ValidateLevels(after, c.strict); err != nil {
		return ChangeResult{}, err
	}

	delta := after.Stock - before.StockQuantity
	if delta != 0 && !req.Kind.Valid() {
		return ChangeResult{}, NewHTTPError(http.StatusBadRequest, "invalid movement_kind")
	}

	//何も変わらないなら書かない
	if after == before.Levels() && req.Attributes.IsEmpty() {
		return ChangeResult{Before: before, Counter: counter, Created: created}, nil
	}

	now := c.clock.Now()
	counter.SetLevels(after)
	counter.ApplyAttributes(req.Attributes)
	counter.UpdatedAt = now
	if err := r.Counters().Save(ctx, counter); err != nil {
		return ChangeResult{}, err
	}

	res := ChangeResult{Before: before, Counter: counter, Created: created}
	if delta == 0 {
		return res, nil
	}

	//在庫数の変化は必ず台帳に1行
	entry, err := r.Ledger().Append(ctx, model.LedgerEntry{
		ShopID:        req.ShopID,
		ProductID:     req.ProductID,
		Quantity:      delta,
		MovementKind:  req.Kind,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Note:          req.Note,
		ActorID:       req.ActorID,
		StockBefore:   before.StockQuantity,
		StockAfter:    after.Stock,
		CreatedAt:     now,
	})
	if err != nil {
		return ChangeResult{}, err
	}
	res.Entry = &entry
	return res, nil
}

func (c *InventoryCoordinator) observe(req StockChangeRequest, start time.Time, err error) {
	kind := string(req.Kind)
	if kind == "" {
		kind = "rebalance"
	}
	outcome := outcomeOf(err)
	metrics.ObserveMutation(kind, outcome, time.Since(start))

	if outcome == "rejected" {
		c.logger.Info("stock change rejected",
			zap.Int64("shop_id", req.ShopID),
			zap.Int64("product_id", req.ProductID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func (c *InventoryCoordinator) finish(stage string, ids []int64, start time.Time, err error) {
	if err == nil || outcomeOf(err) == "rejected" {
		return
	}
	level := c.logger.Error
	if errors.Is(err, repo.ErrLockTimeout) || errors.Is(err, repo.ErrTxAborted) {
		level = c.logger.Warn
	}
	level("stock transaction failed",
		zap.String("stage", stage),
		zap.Int64s("product_ids", ids),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
}

// 入力・在庫不足による拒否と、基盤側の失敗を分ける
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrUnreconciled),
		errors.Is(err, repo.ErrShopIDRequired),
		errors.Is(err, repo.ErrNotFound):
		return "rejected"
	}
	if he, ok := AsHTTPError(err); ok && he.Status < http.StatusInternalServerError && !he.Retryable() {
		return "rejected"
	}
	return "failed"
}

func sortedUnique(ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "no products")
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
