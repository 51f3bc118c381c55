// Package memstore は repository の約束をメモリ上で満たす実装。
// 開発用のSTORE_BACKEND=memoryとテストで使う。
// Tx内の書き込みはステージングしてcommit時にまとめて反映する。
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/domain/model"
	repo "github.com/hamedAligholizade/ajiro-backend-cursor-sub001/internal/repository"
)

var errOutsideTx = errors.New("memstore: locking read outside transaction")

type Store struct {
	mu sync.RWMutex

	products  map[int64]model.Product
	counters  map[int64]model.StockCounter // product_id -> counter
	ledger    []model.LedgerEntry
	sales     map[int64]model.Sale
	saleItems map[int64][]model.SaleItem
	auditLogs []model.AuditLog

	seqMu sync.Mutex
	seq   map[string]int64

	locksMu     sync.Mutex
	locks       map[string]chan struct{}
	lockTimeout time.Duration

	hookMu       sync.Mutex
	beforeCommit func() error
}

// lockTimeoutは行ロック待ちの上限（0なら無制限）
func New(lockTimeout time.Duration) *Store {
	return &Store{
		products:    map[int64]model.Product{},
		counters:    map[int64]model.StockCounter{},
		sales:       map[int64]model.Sale{},
		saleItems:   map[int64][]model.SaleItem{},
		seq:         map[string]int64{},
		locks:       map[string]chan struct{}{},
		lockTimeout: lockTimeout,
	}
}

// 商品を登録する（IDが0なら採番）
func (s *Store) SeedProduct(p model.Product) model.Product {
	if p.ID == 0 {
		p.ID = s.nextID("products")
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return p
}

// commit直前に呼ばれる。エラーを返すとTxは中断される（障害注入用）。
func (s *Store) SetBeforeCommit(fn func() error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.beforeCommit = fn
}

// コミット済みの監査ログ
func (s *Store) AuditTrail() []model.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AuditLog, len(s.auditLogs))
	copy(out, s.auditLogs)
	return out
}

func (s *Store) nextID(table string) int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq[table]++
	return s.seq[table]
}

// ロックなしのリポジトリ（コミット済みの値だけを読む）
func (s *Store) Products() repo.ProductRepository      { return &productRepo{s: s} }
func (s *Store) Counters() repo.StockCounterRepository { return &counterRepo{s: s} }
func (s *Store) Ledger() repo.LedgerRepository         { return &ledgerRepo{s: s} }
func (s *Store) Sales() repo.SaleRepository            { return &saleRepo{s: s} }
func (s *Store) AuditLogs() repo.AuditLogRepository    { return &auditRepo{s: s} }

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	t := &tx{
		s:         s,
		ctx:       ctx,
		held:      map[string]chan struct{}{},
		counters:  map[int64]model.StockCounter{},
		sales:     map[int64]model.Sale{},
		saleItems: map[int64][]model.SaleItem{},
	}
	//commitの反映後にロックを外す
	defer t.releaseAll()

	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) acquire(ctx context.Context, key string) (chan struct{}, error) {
	s.locksMu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	s.locksMu.Unlock()

	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- struct{}{}:
		return ch, nil
	case <-timeout:
		return nil, fmt.Errorf("%w: %s", repo.ErrLockTimeout, key)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type tx struct {
	s    *Store
	ctx  context.Context
	held map[string]chan struct{}

	counters  map[int64]model.StockCounter
	ledger    []model.LedgerEntry
	sales     map[int64]model.Sale
	saleItems map[int64][]model.SaleItem
	auditLogs []model.AuditLog
}

func (t *tx) Products() repo.ProductRepository      { return &productRepo{s: t.s, t: t} }
func (t *tx) Counters() repo.StockCounterRepository { return &counterRepo{s: t.s, t: t} }
func (t *tx) Ledger() repo.LedgerRepository         { return &ledgerRepo{s: t.s, t: t} }
func (t *tx) Sales() repo.SaleRepository            { return &saleRepo{s: t.s, t: t} }
func (t *tx) AuditLogs() repo.AuditLogRepository    { return &auditRepo{s: t.s, t: t} }

// 同じTxで同じキーを2回取っても待たない
func (t *tx) lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	ch, err := t.s.acquire(ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = ch
	return nil
}

func (t *tx) releaseAll() {
	for key, ch := range t.held {
		<-ch
		delete(t.held, key)
	}
}

func (t *tx) commit() error {
	t.s.hookMu.Lock()
	hook := t.s.beforeCommit
	t.s.hookMu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return fmt.Errorf("%w: %v", repo.ErrTxAborted, err)
		}
	}

	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for pid, c := range t.counters {
		s.counters[pid] = c
	}
	s.ledger = append(s.ledger, t.ledger...)
	for id, sale := range t.sales {
		s.sales[id] = sale
	}
	for id, items := range t.saleItems {
		s.saleItems[id] = items
	}
	s.auditLogs = append(s.auditLogs, t.auditLogs...)
	return nil
}

func productKey(id int64) string { return fmt.Sprintf("product:%d", id) }
func saleKey(id int64) string    { return fmt.Sprintf("sale:%d", id) }
